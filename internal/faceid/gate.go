package faceid

import (
	"context"
	"time"

	"github.com/NhanHoThanh/smart-home-faceauth/internal/models"
	"go.uber.org/zap"
)

// DoorController flips the lock state of a door-type device. Implemented by
// the devices client; faked in tests.
type DoorController interface {
	SetLocked(ctx context.Context, deviceID string, locked bool) error
}

// SessionSource yields the current session. The engine implements it; the
// gate never mutates what it reads.
type SessionSource interface {
	Session() models.Session
}

// Gate is the single authorization check every protected door action passes
// through. The check runs at the moment of the action, because the session
// can expire between a render and a tap.
type Gate struct {
	sessions SessionSource
	doors    DoorController
	deviceID string
	log      *zap.Logger

	now func() time.Time
}

// NewGate creates a gate for one door device.
func NewGate(sessions SessionSource, doors DoorController, deviceID string, log *zap.Logger) *Gate {
	return &Gate{
		sessions: sessions,
		doors:    doors,
		deviceID: deviceID,
		log:      log,
		now:      time.Now,
	}
}

// Authorize reports whether a protected action may proceed right now.
func (g *Gate) Authorize() bool {
	return g.sessions.Session().ValidAt(g.now())
}

// Unlock unlocks the door after re-checking authorization. ErrNotAuthorized
// means the caller must present a re-authenticate path, not silently no-op.
func (g *Gate) Unlock(ctx context.Context) error {
	return g.setLocked(ctx, false)
}

// Lock locks the door after re-checking authorization.
func (g *Gate) Lock(ctx context.Context) error {
	return g.setLocked(ctx, true)
}

func (g *Gate) setLocked(ctx context.Context, locked bool) error {
	session := g.sessions.Session()
	if !session.ValidAt(g.now()) {
		g.log.Warn("door action refused, no valid session",
			zap.String("device", g.deviceID),
			zap.Bool("locked", locked),
		)
		return ErrNotAuthorized
	}

	if err := g.doors.SetLocked(ctx, g.deviceID, locked); err != nil {
		return err
	}

	g.log.Info("door state changed",
		zap.String("device", g.deviceID),
		zap.Bool("locked", locked),
		zap.String("identity", session.IdentityID),
	)
	return nil
}
