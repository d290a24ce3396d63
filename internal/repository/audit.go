// Package repository provides persistence implementations for the audit trail.
package repository

import (
	"context"
	"database/sql"

	"github.com/NhanHoThanh/smart-home-faceauth/internal/models"
	"github.com/google/uuid"
)

// PostgresAuditRepository records authentication events in PostgreSQL.
// Sessions themselves are never persisted; only the event trail is.
type PostgresAuditRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuditRepository creates a new PostgresAuditRepository with the
// given database connection.
func NewPostgresAuditRepository(db *sql.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{DB: db}
}

// Record inserts one auth event.
func (r *PostgresAuditRepository) Record(ctx context.Context, event models.AuthEvent) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO auth_events (id, kind, identity_id, identity_name, reason, confidence, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New().String(),
		event.Kind,
		event.IdentityID,
		event.IdentityName,
		event.Reason,
		event.Confidence,
		event.At,
	)
	return err
}

// RecentEvents returns up to limit events, newest first.
func (r *PostgresAuditRepository) RecentEvents(ctx context.Context, limit int) ([]models.AuthEvent, error) {
	rows, err := r.DB.QueryContext(
		ctx,
		`SELECT kind, identity_id, identity_name, reason, confidence, occurred_at
		   FROM auth_events
		  ORDER BY occurred_at DESC
		  LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.AuthEvent
	for rows.Next() {
		var e models.AuthEvent
		if err := rows.Scan(&e.Kind, &e.IdentityID, &e.IdentityName, &e.Reason, &e.Confidence, &e.At); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
