package faceid

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NhanHoThanh/smart-home-faceauth/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State names the phases of one authentication attempt.
type State string

const (
	// StateIdle means no attempt is in progress and no session is held.
	StateIdle State = "idle"
	// StateAwaitingCapture means an identity is selected and the engine is
	// waiting for an image payload.
	StateAwaitingCapture State = "awaiting_capture"
	// StateVerifying means one capture is with the backend. At most one
	// verification is ever in flight.
	StateVerifying State = "verifying"
	// StateGranted means a session is active until its expiry.
	StateGranted State = "granted"
	// StateDenied is a terminal display state cleared by Acknowledge.
	StateDenied State = "denied"
)

// DenyReason tells the UI which remediation to suggest after a denial.
type DenyReason string

const (
	// DenyNoMatch means the backend examined the capture and rejected it.
	DenyNoMatch DenyReason = "no_match"
	// DenyNetwork means the verification call failed in transport or timed out.
	DenyNetwork DenyReason = "network"
	// DenyContract means the backend's response violated the API contract and
	// the engine failed closed.
	DenyContract DenyReason = "contract"
)

// Verifier is the slice of the registry client the engine depends on.
type Verifier interface {
	// List fetches the current registry snapshot.
	List(ctx context.Context) ([]models.Identity, error)
	// Verify submits one capture for recognition.
	Verify(ctx context.Context, capture models.Capture) (models.VerifyResult, error)
}

// Engine owns the authentication state machine and the single active session.
// All session mutation goes through its transition methods; consumers only
// read copies via Session.
type Engine struct {
	verifier Verifier
	log      *zap.Logger

	// events feeds the single delivery goroutine, so notify observes
	// grants, denials, and expiries in the order they happened.
	events chan models.AuthEvent

	// now is swapped out in tests.
	now func() time.Time

	mu         sync.Mutex
	state      State
	target     string
	targetName string
	denyReason DenyReason
	denyDetail string
	session    models.Session

	// attempt identifies the current attempt or grant. Every reset bumps it,
	// so a verification completing after teardown finds a stale token and
	// discards its result.
	attempt string
	timer   *time.Timer
}

// NewEngine creates an idle engine. notify receives auth lifecycle events and
// may be nil.
func NewEngine(verifier Verifier, notify func(models.AuthEvent), log *zap.Logger) *Engine {
	e := &Engine{
		verifier: verifier,
		log:      log,
		now:      time.Now,
		state:    StateIdle,
		attempt:  uuid.New().String(),
	}
	if notify != nil {
		e.events = make(chan models.AuthEvent, 16)
		go func() {
			for event := range e.events {
				notify(event)
			}
		}()
	}
	return e
}

// SelectIdentity starts an attempt against one enrolled identity. The
// registry must be non-empty and must contain the identity; both are checked
// before any capture is requested.
func (e *Engine) SelectIdentity(ctx context.Context, identityID string) error {
	if identityID == "" {
		return &ValidationError{Field: "identityId", Reason: "must not be empty"}
	}

	identities, err := e.verifier.List(ctx)
	if err != nil {
		return err
	}
	if len(identities) == 0 {
		return &PreconditionError{Reason: "no identities enrolled"}
	}

	var name string
	found := false
	for _, id := range identities {
		if id.ID == identityID {
			name = id.Name
			found = true
			break
		}
	}
	if !found {
		return &PreconditionError{Reason: "identity " + identityID + " is not enrolled"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateIdle, StateAwaitingCapture:
	case StateVerifying:
		return ErrVerifyInFlight
	default:
		return &PreconditionError{Reason: "attempt already in progress, reset or acknowledge first"}
	}

	e.state = StateAwaitingCapture
	e.target = identityID
	e.targetName = name
	return nil
}

// Submit runs one capture through backend verification and applies the
// resulting transition. A second Submit while one is pending is rejected with
// ErrVerifyInFlight; the racing capture is dropped, since a stale face image
// is never worth queuing.
func (e *Engine) Submit(ctx context.Context, image []byte) error {
	if len(image) == 0 {
		return &ValidationError{Field: "image", Reason: "capture payload is missing"}
	}

	e.mu.Lock()
	if e.state == StateVerifying {
		e.mu.Unlock()
		return ErrVerifyInFlight
	}
	if e.state != StateAwaitingCapture {
		e.mu.Unlock()
		return &PreconditionError{Reason: "no identity selected"}
	}
	e.state = StateVerifying
	token := uuid.New().String()
	e.attempt = token
	capture := models.Capture{Image: image, TargetIdentityID: e.target}
	e.mu.Unlock()

	// Network call happens outside the lock; the Verifying state plus the
	// attempt token serialize everything that matters.
	result, err := e.verifier.Verify(ctx, capture)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.attempt != token {
		// The engine was reset or torn down while the call was in flight.
		// The result must not mutate anything.
		e.log.Debug("discarding stale verification result")
		return nil
	}

	if err != nil {
		reason, detail := denyFor(err)
		e.denyLocked(reason, detail)
		return err
	}

	if !result.Success {
		e.denyLocked(DenyNoMatch, result.Message)
		return nil
	}

	e.grantLocked(result)
	return nil
}

// denyFor maps a verification error to a denial reason and detail.
func denyFor(err error) (DenyReason, string) {
	var netErr *NetworkError
	var contractErr *ContractError
	switch {
	case errors.As(err, &netErr):
		return DenyNetwork, netErr.Error()
	case errors.As(err, &contractErr):
		return DenyContract, contractErr.Detail
	default:
		return DenyNoMatch, err.Error()
	}
}

// denyLocked transitions to Denied. Caller holds the lock.
func (e *Engine) denyLocked(reason DenyReason, detail string) {
	e.state = StateDenied
	e.denyReason = reason
	e.denyDetail = detail
	e.session = models.Session{}

	e.log.Info("authentication denied",
		zap.String("identity", e.target),
		zap.String("reason", string(reason)),
	)
	e.emit(models.AuthEvent{
		Kind:         "denied",
		IdentityID:   e.target,
		IdentityName: e.targetName,
		Reason:       string(reason),
		At:           e.now(),
	})
}

// grantLocked transitions to Granted and arms the expiry timer. Caller holds
// the lock.
func (e *Engine) grantLocked(result models.VerifyResult) {
	grantedAt := e.now()
	e.state = StateGranted
	e.denyReason = ""
	e.denyDetail = ""
	e.session = models.Session{
		Authenticated:   true,
		IdentityID:      result.IdentityID,
		IdentityName:    result.IdentityName,
		Confidence:      result.Confidence,
		AuthenticatedAt: grantedAt,
		ExpiresAt:       grantedAt.Add(models.SessionDuration),
	}

	token := e.attempt
	e.stopTimerLocked()
	e.timer = time.AfterFunc(e.session.ExpiresAt.Sub(grantedAt), func() {
		e.expire(token)
	})

	e.log.Info("authentication granted",
		zap.String("identity", result.IdentityID),
		zap.String("name", result.IdentityName),
		zap.Float64("confidence", result.Confidence),
		zap.Time("expiresAt", e.session.ExpiresAt),
	)
	e.emit(models.AuthEvent{
		Kind:         "granted",
		IdentityID:   result.IdentityID,
		IdentityName: result.IdentityName,
		Confidence:   result.Confidence,
		At:           grantedAt,
	})
}

// expire is the timer callback. The attempt token guards against firing for
// a session that was since replaced or cleared.
func (e *Engine) expire(token string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.attempt != token || e.state != StateGranted {
		return
	}
	if e.now().Before(e.session.ExpiresAt) {
		return
	}
	e.expireLocked()
}

// expireLocked clears a lapsed session. Caller holds the lock.
func (e *Engine) expireLocked() {
	identityID := e.session.IdentityID
	identityName := e.session.IdentityName
	e.clearLocked()

	e.log.Info("session expired", zap.String("identity", identityID))
	e.emit(models.AuthEvent{
		Kind:         "expired",
		IdentityID:   identityID,
		IdentityName: identityName,
		At:           e.now(),
	})
}

// Acknowledge dismisses a denial, returning the engine to Idle. It is
// user-driven, never timed, so the denial message cannot flicker away.
func (e *Engine) Acknowledge() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateDenied {
		return
	}
	e.clearLocked()
}

// Reset tears down the current attempt and session, e.g. when the consuming
// screen navigates away. Any in-flight verification result is discarded.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked()
}

// InvalidateIdentity clears the session if it belongs to the given identity.
// The registry does not push removals, so removal callers must invoke this.
func (e *Engine) InvalidateIdentity(identityID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateGranted || e.session.IdentityID != identityID {
		return
	}

	identityName := e.session.IdentityName
	e.clearLocked()

	e.log.Info("session invalidated, identity removed", zap.String("identity", identityID))
	e.emit(models.AuthEvent{
		Kind:         "identity_removed",
		IdentityID:   identityID,
		IdentityName: identityName,
		At:           e.now(),
	})
}

// clearLocked resets to Idle and bumps the attempt token. Caller holds the
// lock.
func (e *Engine) clearLocked() {
	e.state = StateIdle
	e.target = ""
	e.targetName = ""
	e.denyReason = ""
	e.denyDetail = ""
	e.session = models.Session{}
	e.attempt = uuid.New().String()
	e.stopTimerLocked()
}

func (e *Engine) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// Session returns a copy of the current session. A lapsed session is cleared
// here authoritatively, so validity never depends on the timer having fired.
func (e *Engine) Session() models.Session {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reapLocked()
	return e.session
}

// State returns the current state, folding a lapsed grant into Idle.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reapLocked()
	return e.state
}

// Denial returns the reason and detail of the last denial. Meaningful only
// while State is StateDenied.
func (e *Engine) Denial() (DenyReason, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.denyReason, e.denyDetail
}

// reapLocked expires a lapsed grant in place. Caller holds the lock.
func (e *Engine) reapLocked() {
	if e.state == StateGranted && !e.now().Before(e.session.ExpiresAt) {
		e.expireLocked()
	}
}

// emit hands an event to the delivery goroutine. Delivery is best-effort
// and must never block a transition, so a full buffer drops the event.
func (e *Engine) emit(event models.AuthEvent) {
	if e.events == nil {
		return
	}
	select {
	case e.events <- event:
	default:
		e.log.Warn("dropping auth event, delivery backlog full", zap.String("kind", event.Kind))
	}
}
