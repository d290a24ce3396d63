package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/NhanHoThanh/smart-home-faceauth/internal/models"
)

func setupAuditMock(t *testing.T) (*PostgresAuditRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresAuditRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestRecord_Success(t *testing.T) {
	repo, mock, cleanup := setupAuditMock(t)
	defer cleanup()

	event := models.AuthEvent{
		Kind:         "granted",
		IdentityID:   "u1",
		IdentityName: "Alice",
		Confidence:   0.92,
		At:           time.Now(),
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO auth_events (id, kind, identity_id, identity_name, reason, confidence, occurred_at)`)).
		WithArgs(sqlmock.AnyArg(), event.Kind, event.IdentityID, event.IdentityName, event.Reason, event.Confidence, event.At).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Record(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRecord_Error(t *testing.T) {
	repo, mock, cleanup := setupAuditMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO auth_events`)).
		WillReturnError(errors.New("insert failed"))

	err := repo.Record(context.Background(), models.AuthEvent{Kind: "denied", At: time.Now()})
	if err == nil {
		t.Errorf("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRecentEvents_Success(t *testing.T) {
	repo, mock, cleanup := setupAuditMock(t)
	defer cleanup()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"kind", "identity_id", "identity_name", "reason", "confidence", "occurred_at"}).
		AddRow("granted", "u1", "Alice", "", 0.92, at).
		AddRow("denied", "u1", "Alice", "no_match", 0.0, at.Add(-time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT kind, identity_id, identity_name, reason, confidence, occurred_at`)).
		WithArgs(10).
		WillReturnRows(rows)

	events, err := repo.RecentEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != "granted" || events[0].Confidence != 0.92 {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].Reason != "no_match" {
		t.Errorf("unexpected second event: %+v", events[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRecentEvents_QueryError(t *testing.T) {
	repo, mock, cleanup := setupAuditMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT kind, identity_id, identity_name, reason, confidence, occurred_at`)).
		WillReturnError(errors.New("query failed"))

	if _, err := repo.RecentEvents(context.Background(), 10); err == nil {
		t.Errorf("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
