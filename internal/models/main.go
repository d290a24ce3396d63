// Package models defines the core data structures for enrolled identities,
// authentication sessions, and capture attempts.
package models

import "time"

// SessionDuration is how long an authenticated session stays valid.
const SessionDuration = 5 * time.Minute

// Identity represents one enrolled face record held by the backend registry.
type Identity struct {
	// ID is the opaque identifier assigned by the backend at registration.
	ID string `json:"id"`
	// Name is the human-readable label supplied at registration.
	Name string `json:"name"`
	// EnrolledAt is the registration time. Set once, immutable.
	EnrolledAt time.Time `json:"enrolledAt"`
	// LastAuthenticatedAt is the time of the most recent successful
	// authentication against this identity. Zero if never authenticated.
	LastAuthenticatedAt time.Time `json:"lastAuthenticatedAt,omitempty"`
}

// Session is the client-side record that a specific identity has been
// authenticated. At most one active session exists at a time; it is owned
// by the authentication engine and only read by consumers.
type Session struct {
	// Authenticated reports whether the session was granted.
	Authenticated bool `json:"authenticated"`
	// IdentityID is the authenticated identity. Empty when not authenticated.
	IdentityID string `json:"identityId,omitempty"`
	// IdentityName is the display name of the authenticated identity.
	IdentityName string `json:"identityName,omitempty"`
	// Confidence is the backend's match confidence in [0,1], informational only.
	Confidence float64 `json:"confidence,omitempty"`
	// AuthenticatedAt is the grant time.
	AuthenticatedAt time.Time `json:"authenticatedAt,omitempty"`
	// ExpiresAt is AuthenticatedAt plus SessionDuration.
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// ValidAt reports whether the session authorizes a protected action at the
// given instant. Consumers must re-evaluate this at action time, never cache
// an earlier result.
func (s Session) ValidAt(now time.Time) bool {
	return s.Authenticated && now.Before(s.ExpiresAt)
}

// Capture is one image payload obtained for a single recognition attempt.
// It is transient: consumed by exactly one register or verify call, then
// discarded.
type Capture struct {
	// Image is the raw image payload.
	Image []byte
	// TargetIdentityID constrains verification to one enrolled identity.
	// Empty for registration captures.
	TargetIdentityID string
}

// VerifyResult is the normalized outcome of one backend verification call.
type VerifyResult struct {
	// Success reports whether the backend matched the capture.
	Success bool
	// IdentityID and IdentityName identify the matched identity on success.
	IdentityID   string
	IdentityName string
	// Confidence is the backend's match score in [0,1].
	Confidence float64
	// Message carries the backend's diagnostic text, e.g. "Face not recognized".
	Message string
}

// RegisterResult is the normalized outcome of one enrollment call.
type RegisterResult struct {
	// Success reports whether the identity was enrolled.
	Success bool
	// IdentityID is the backend-assigned ID of the new identity on success.
	IdentityID string
	// Message carries the backend's diagnostic text.
	Message string
}

// AuthEvent describes an authentication lifecycle event for publication and
// auditing.
type AuthEvent struct {
	// Kind is one of "granted", "denied", "expired", "identity_removed".
	Kind string `json:"kind"`
	// IdentityID and IdentityName refer to the identity involved, when known.
	IdentityID   string `json:"identityId,omitempty"`
	IdentityName string `json:"identityName,omitempty"`
	// Reason distinguishes denial causes: "no_match", "network", "contract".
	Reason string `json:"reason,omitempty"`
	// Confidence is the backend's match score for granted events.
	Confidence float64 `json:"confidence,omitempty"`
	// At is when the event occurred.
	At time.Time `json:"at"`
}
