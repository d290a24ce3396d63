package faceid

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NhanHoThanh/smart-home-faceauth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSessionSource implements SessionSource with a settable session.
type fakeSessionSource struct {
	session models.Session
}

func (f *fakeSessionSource) Session() models.Session { return f.session }

// fakeDoor implements DoorController and records the last command.
type fakeDoor struct {
	calls  int
	locked bool
	err    error
}

func (f *fakeDoor) SetLocked(ctx context.Context, deviceID string, locked bool) error {
	f.calls++
	f.locked = locked
	return f.err
}

func grantedSession(at time.Time) models.Session {
	return models.Session{
		Authenticated:   true,
		IdentityID:      "u1",
		IdentityName:    "Alice",
		AuthenticatedAt: at,
		ExpiresAt:       at.Add(models.SessionDuration),
	}
}

func TestAuthorize(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		session models.Session
		now     time.Time
		want    bool
	}{
		{
			name:    "valid session",
			session: grantedSession(base),
			now:     base.Add(time.Minute),
			want:    true,
		},
		{
			name:    "unauthenticated session",
			session: models.Session{},
			now:     base,
			want:    false,
		},
		{
			name: "authenticated flag without expiry",
			session: models.Session{
				Authenticated: true,
			},
			now:  base,
			want: false,
		},
		{
			name:    "exactly at expiry",
			session: grantedSession(base),
			now:     base.Add(models.SessionDuration),
			want:    false,
		},
		{
			name:    "one millisecond past expiry",
			session: grantedSession(base),
			now:     base.Add(models.SessionDuration + time.Millisecond),
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeSessionSource{session: tt.session}
			gate := NewGate(source, &fakeDoor{}, "door-1", zap.NewNop())
			gate.now = func() time.Time { return tt.now }

			assert.Equal(t, tt.want, gate.Authorize())
		})
	}
}

func TestGate_UnlockWithValidSession(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSessionSource{session: grantedSession(base)}
	door := &fakeDoor{locked: true}

	gate := NewGate(source, door, "door-1", zap.NewNop())
	gate.now = func() time.Time { return base.Add(time.Minute) }

	require.NoError(t, gate.Unlock(context.Background()))
	assert.Equal(t, 1, door.calls)
	assert.False(t, door.locked)
}

func TestGate_RefusesWithoutSession(t *testing.T) {
	source := &fakeSessionSource{}
	door := &fakeDoor{}
	gate := NewGate(source, door, "door-1", zap.NewNop())

	err := gate.Unlock(context.Background())

	require.ErrorIs(t, err, ErrNotAuthorized)
	assert.Zero(t, door.calls, "the door must never move without authorization")
}

func TestGate_ChecksAtActionTimeNotRenderTime(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSessionSource{session: grantedSession(base)}
	door := &fakeDoor{}

	now := base.Add(time.Minute)
	gate := NewGate(source, door, "door-1", zap.NewNop())
	gate.now = func() time.Time { return now }

	// The UI rendered while the session was valid.
	require.True(t, gate.Authorize())

	// The session lapsed between render and tap.
	now = base.Add(models.SessionDuration + time.Second)
	err := gate.Unlock(context.Background())

	require.ErrorIs(t, err, ErrNotAuthorized)
	assert.Zero(t, door.calls)
}

func TestGate_PropagatesDeviceError(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	deviceErr := errors.New("device unreachable")
	source := &fakeSessionSource{session: grantedSession(base)}
	door := &fakeDoor{err: deviceErr}

	gate := NewGate(source, door, "door-1", zap.NewNop())
	gate.now = func() time.Time { return base.Add(time.Minute) }

	err := gate.Lock(context.Background())
	require.ErrorIs(t, err, deviceErr)
}

func TestGate_RemovalInvalidatesActiveSession(t *testing.T) {
	// End to end against a real engine: removing the authenticated identity
	// must fail a subsequent authorize.
	verifier := &fakeVerifier{identities: []models.Identity{alice}}
	verifier.verifyFunc = matchAlice(0.9)
	engine := newTestEngine(t, verifier)

	require.NoError(t, engine.SelectIdentity(context.Background(), "u1"))
	require.NoError(t, engine.Submit(context.Background(), []byte("jpeg")))

	door := &fakeDoor{}
	gate := NewGate(engine, door, "door-1", zap.NewNop())
	require.True(t, gate.Authorize())

	engine.InvalidateIdentity("u1")

	assert.False(t, gate.Authorize())
	require.ErrorIs(t, gate.Unlock(context.Background()), ErrNotAuthorized)
}
