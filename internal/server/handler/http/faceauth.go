// Package http provides the control API handlers the household UI calls to
// drive face enrollment, authentication, and the gated door actions.
package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NhanHoThanh/smart-home-faceauth/internal/faceid"
	"github.com/NhanHoThanh/smart-home-faceauth/internal/models"
	"github.com/go-chi/chi/v5"
)

// FaceAuthService defines the operations required by the control API
// handlers.
type FaceAuthService interface {
	Identities(ctx context.Context) ([]models.Identity, error)
	Enroll(ctx context.Context, name string, image []byte) (models.RegisterResult, error)
	Remove(ctx context.Context, identityID string) error
	StartAttempt(ctx context.Context, identityID string) error
	SubmitCapture(ctx context.Context, image []byte) error
	Acknowledge()
	ResetAttempt()
	Session() models.Session
	State() faceid.State
	Denial() (faceid.DenyReason, string)
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
}

// FaceAuthHandler handles HTTP requests for the face-authentication flow.
type FaceAuthHandler struct {
	// Service performs the underlying operations.
	Service FaceAuthService
}

// EnrollRequest represents the JSON payload for enrolling an identity.
type EnrollRequest struct {
	// Name is the display name for the new identity.
	Name string `json:"name"`
	// Image is the Base64-encoded JPEG capture.
	Image string `json:"image"`
}

// AttemptRequest represents the JSON payload for starting an attempt.
type AttemptRequest struct {
	// IdentityID selects the identity to verify against.
	IdentityID string `json:"identityId"`
}

// CaptureRequest represents the JSON payload for submitting a capture.
type CaptureRequest struct {
	// Image is the Base64-encoded JPEG capture.
	Image string `json:"image"`
}

// sessionResponse is the state snapshot returned after flow operations.
type sessionResponse struct {
	State      faceid.State   `json:"state"`
	Session    models.Session `json:"session"`
	DenyReason string         `json:"denyReason,omitempty"`
	DenyDetail string         `json:"denyDetail,omitempty"`
}

// ListIdentities returns the current registry snapshot.
func (h *FaceAuthHandler) ListIdentities(w http.ResponseWriter, r *http.Request) {
	identities, err := h.Service.Identities(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, identities)
}

// Enroll registers a new identity from a Base64 capture.
func (h *FaceAuthHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		http.Error(w, "invalid base64 image", http.StatusBadRequest)
		return
	}

	result, err := h.Service.Enroll(r.Context(), req.Name, image)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// RemoveIdentity deletes one identity. If the active session belongs to it,
// the session is invalidated by the service.
func (h *FaceAuthHandler) RemoveIdentity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Service.Remove(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StartAttempt selects an identity for verification.
func (h *FaceAuthHandler) StartAttempt(w http.ResponseWriter, r *http.Request) {
	var req AttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.Service.StartAttempt(r.Context(), req.IdentityID); err != nil {
		writeError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK)
}

// SubmitCapture runs one capture through verification. Denials are a normal
// flow outcome: the handler returns the resulting state rather than an error
// status, so the UI can render the denial reason.
func (h *FaceAuthHandler) SubmitCapture(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		http.Error(w, "invalid base64 image", http.StatusBadRequest)
		return
	}

	if err := h.Service.SubmitCapture(r.Context(), image); err != nil {
		var validationErr *faceid.ValidationError
		var preconditionErr *faceid.PreconditionError
		switch {
		case errors.Is(err, faceid.ErrVerifyInFlight):
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case errors.As(err, &validationErr), errors.As(err, &preconditionErr):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Verification failures land the engine in Denied; fall through and
		// report that state.
	}
	h.writeSession(w, http.StatusOK)
}

// AcknowledgeDenial dismisses a denial.
func (h *FaceAuthHandler) AcknowledgeDenial(w http.ResponseWriter, r *http.Request) {
	h.Service.Acknowledge()
	h.writeSession(w, http.StatusOK)
}

// ResetAttempt tears down the current attempt, e.g. when the UI navigates
// away.
func (h *FaceAuthHandler) ResetAttempt(w http.ResponseWriter, r *http.Request) {
	h.Service.ResetAttempt()
	h.writeSession(w, http.StatusOK)
}

// GetSession returns the current state snapshot.
func (h *FaceAuthHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.writeSession(w, http.StatusOK)
}

// UnlockDoor unlocks the gated door. Authorization is re-checked at this
// moment, never taken from an earlier render.
func (h *FaceAuthHandler) UnlockDoor(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Unlock(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// LockDoor locks the gated door.
func (h *FaceAuthHandler) LockDoor(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Lock(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Health reports liveness.
func (h *FaceAuthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *FaceAuthHandler) writeSession(w http.ResponseWriter, status int) {
	resp := sessionResponse{
		State:   h.Service.State(),
		Session: h.Service.Session(),
	}
	if resp.State == faceid.StateDenied {
		reason, detail := h.Service.Denial()
		resp.DenyReason = string(reason)
		resp.DenyDetail = detail
	}
	writeJSON(w, status, resp)
}

// writeError maps the error taxonomy to HTTP statuses. Anything outside the
// taxonomy is an internal error; raw transport errors never reach here with
// their original type.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *faceid.ValidationError
	var preconditionErr *faceid.PreconditionError
	var networkErr *faceid.NetworkError
	var serverErr *faceid.ServerError
	var contractErr *faceid.ContractError

	switch {
	case errors.Is(err, faceid.ErrNotAuthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.As(err, &validationErr), errors.As(err, &preconditionErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &networkErr), errors.As(err, &serverErr), errors.As(err, &contractErr):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
