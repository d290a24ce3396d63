// Package service provides the face-authentication business logic, wiring
// the registry client, the engine, the gate, event publishing, and auditing.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/NhanHoThanh/smart-home-faceauth/internal/faceid"
	"github.com/NhanHoThanh/smart-home-faceauth/internal/models"
	"go.uber.org/zap"
)

// RegistryClient defines the backend registry operations required by the
// service.
type RegistryClient interface {
	// List fetches the current registry snapshot.
	List(ctx context.Context) ([]models.Identity, error)
	// Register enrolls a new identity from one capture.
	Register(ctx context.Context, name string, capture models.Capture) (models.RegisterResult, error)
	// Remove deletes one identity.
	Remove(ctx context.Context, identityID string) error
}

// AuthEngine defines the engine operations required by the service.
type AuthEngine interface {
	SelectIdentity(ctx context.Context, identityID string) error
	Submit(ctx context.Context, image []byte) error
	Acknowledge()
	Reset()
	InvalidateIdentity(identityID string)
	Session() models.Session
	State() faceid.State
	Denial() (faceid.DenyReason, string)
}

// DoorGate defines the gate operations required by the service.
type DoorGate interface {
	Authorize() bool
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
}

// EventSink receives auth events for publication. May be nil in Service.
type EventSink interface {
	Publish(event models.AuthEvent) error
}

// AuditRecorder persists auth events. May be nil in Service.
type AuditRecorder interface {
	Record(ctx context.Context, event models.AuthEvent) error
}

// Service orchestrates the authentication flow. It is the only place where
// identity removal is tied to session invalidation.
type Service struct {
	registry RegistryClient
	engine   AuthEngine
	gate     DoorGate
	events   EventSink
	audit    AuditRecorder
	log      *zap.Logger

	// lastKnown is the most recent registry snapshot. It is refreshed on
	// every successful list and after each grant, and is served when a
	// fetch fails so the UI keeps a list through transient backend trouble.
	mu        sync.RWMutex
	lastKnown []models.Identity
}

// NewFaceAuthService constructs a Service. events and audit may be nil, in
// which case the corresponding side effects are skipped.
func NewFaceAuthService(
	registry RegistryClient,
	engine AuthEngine,
	gate DoorGate,
	events EventSink,
	audit AuditRecorder,
	log *zap.Logger,
) *Service {
	return &Service{
		registry: registry,
		engine:   engine,
		gate:     gate,
		events:   events,
		audit:    audit,
		log:      log,
	}
}

// Identities returns a fresh registry snapshot, falling back to the last
// known one when the fetch fails and a copy exists.
func (s *Service) Identities(ctx context.Context) ([]models.Identity, error) {
	identities, err := s.registry.List(ctx)
	if err != nil {
		s.mu.RLock()
		cached := s.lastKnown
		s.mu.RUnlock()
		if cached != nil {
			s.log.Warn("registry fetch failed, serving last known identities", zap.Error(err))
			return cached, nil
		}
		return nil, err
	}

	s.rememberIdentities(identities)
	return identities, nil
}

// rememberIdentities stores a copy of the snapshot for later fallback.
func (s *Service) rememberIdentities(identities []models.Identity) {
	copied := append([]models.Identity(nil), identities...)
	s.mu.Lock()
	s.lastKnown = copied
	s.mu.Unlock()
}

// Enroll registers a new identity from one capture.
func (s *Service) Enroll(ctx context.Context, name string, image []byte) (models.RegisterResult, error) {
	return s.registry.Register(ctx, name, models.Capture{Image: image})
}

// Remove deletes an identity and, if the active session belongs to it,
// invalidates that session. The invalidation is not automatic anywhere else;
// this wiring is the contract.
func (s *Service) Remove(ctx context.Context, identityID string) error {
	if err := s.registry.Remove(ctx, identityID); err != nil {
		return err
	}
	s.engine.InvalidateIdentity(identityID)
	return nil
}

// StartAttempt selects an identity and moves the engine to awaiting-capture.
func (s *Service) StartAttempt(ctx context.Context, identityID string) error {
	return s.engine.SelectIdentity(ctx, identityID)
}

// SubmitCapture runs one capture through verification.
func (s *Service) SubmitCapture(ctx context.Context, image []byte) error {
	return s.engine.Submit(ctx, image)
}

// Acknowledge dismisses a denial.
func (s *Service) Acknowledge() {
	s.engine.Acknowledge()
}

// ResetAttempt tears down the current attempt and session.
func (s *Service) ResetAttempt() {
	s.engine.Reset()
}

// Session returns the current session copy.
func (s *Service) Session() models.Session {
	return s.engine.Session()
}

// State returns the engine state.
func (s *Service) State() faceid.State {
	return s.engine.State()
}

// Denial returns the last denial's reason and detail.
func (s *Service) Denial() (faceid.DenyReason, string) {
	return s.engine.Denial()
}

// Authorize re-checks the session at action time.
func (s *Service) Authorize() bool {
	return s.gate.Authorize()
}

// Unlock unlocks the door through the gate.
func (s *Service) Unlock(ctx context.Context) error {
	return s.gate.Unlock(ctx)
}

// Lock locks the door through the gate.
func (s *Service) Lock(ctx context.Context) error {
	return s.gate.Lock(ctx)
}

// HandleAuthEvent is the engine's notify hook: it publishes the event,
// records it in the audit trail, and on grants refreshes the last known
// registry snapshot so the identity's updated last-authenticated timestamp
// is visible even if the backend becomes unreachable right after. All three
// are best-effort and never block or fail a transition.
func (s *Service) HandleAuthEvent(event models.AuthEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.events != nil {
		if err := s.events.Publish(event); err != nil {
			s.log.Warn("failed to publish auth event",
				zap.String("kind", event.Kind),
				zap.Error(err),
			)
		}
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, event); err != nil {
			s.log.Warn("failed to record auth event",
				zap.String("kind", event.Kind),
				zap.Error(err),
			)
		}
	}

	if event.Kind == "granted" {
		identities, err := s.registry.List(ctx)
		if err != nil {
			s.log.Debug("post-grant registry refresh failed", zap.Error(err))
			return
		}
		s.rememberIdentities(identities)
	}
}
