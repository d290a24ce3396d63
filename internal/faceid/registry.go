package faceid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/NhanHoThanh/smart-home-faceauth/internal/models"
	"go.uber.org/zap"
)

// Registry is the client for the backend's face-recognition endpoints. It
// holds no authoritative local state: every List call fetches a fresh
// snapshot, and registrations become visible only through subsequent lists.
type Registry struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewRegistry creates a registry client for the backend at baseURL. The
// client's timeout bounds every call, including verification uploads.
func NewRegistry(baseURL string, timeout time.Duration, log *zap.Logger) *Registry {
	return &Registry{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// looseMessage tolerates the backend's loosely typed "message" field, which
// arrives sometimes as a string and sometimes as a JSON object.
type looseMessage string

func (m *looseMessage) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = looseMessage(s)
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err == nil {
		if detail, ok := obj["detail"].(string); ok {
			*m = looseMessage(detail)
			return nil
		}
		*m = looseMessage(string(data))
		return nil
	}
	*m = looseMessage(string(data))
	return nil
}

// identityDTO is the wire shape of one registry entry. Timestamps are epoch
// milliseconds.
type identityDTO struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	AddedAt           int64  `json:"addedAt"`
	LastAuthenticated int64  `json:"lastAuthenticated,omitempty"`
}

func (d identityDTO) toModel() models.Identity {
	id := models.Identity{
		ID:         d.ID,
		Name:       d.Name,
		EnrolledAt: time.UnixMilli(d.AddedAt),
	}
	if d.LastAuthenticated > 0 {
		id.LastAuthenticatedAt = time.UnixMilli(d.LastAuthenticated)
	}
	return id
}

// List fetches the current registry snapshot.
func (r *Registry) List(ctx context.Context) ([]models.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/face-recognition/users", nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "list identities", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, r.serverError(resp)
	}

	var dtos []identityDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, &ContractError{Detail: fmt.Sprintf("malformed identity list: %v", err)}
	}

	identities := make([]models.Identity, 0, len(dtos))
	for _, d := range dtos {
		identities = append(identities, d.toModel())
	}
	return identities, nil
}

// Register enrolls a new identity from one capture. Name and image are
// validated locally before any network call.
func (r *Registry) Register(ctx context.Context, name string, capture models.Capture) (models.RegisterResult, error) {
	if strings.TrimSpace(name) == "" {
		return models.RegisterResult{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if len(capture.Image) == 0 {
		return models.RegisterResult{}, &ValidationError{Field: "image", Reason: "capture payload is missing"}
	}

	body, contentType, err := multipartBody(map[string]string{"name": name}, capture.Image)
	if err != nil {
		return models.RegisterResult{}, fmt.Errorf("build register payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/face-recognition/register", body)
	if err != nil {
		return models.RegisterResult{}, fmt.Errorf("build register request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := r.client.Do(req)
	if err != nil {
		return models.RegisterResult{}, &NetworkError{Op: "register identity", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return models.RegisterResult{}, r.serverError(resp)
	}

	var dto struct {
		Success bool         `json:"success"`
		UserID  string       `json:"userId"`
		Message looseMessage `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return models.RegisterResult{}, &ContractError{Detail: fmt.Sprintf("malformed register response: %v", err)}
	}
	if dto.Success && dto.UserID == "" {
		return models.RegisterResult{}, &ContractError{Detail: "register succeeded without a user id"}
	}

	return models.RegisterResult{
		Success:    dto.Success,
		IdentityID: dto.UserID,
		Message:    string(dto.Message),
	}, nil
}

// Verify submits one capture for recognition. When the capture carries a
// target identity, verification is constrained to that identity. A response
// claiming success without identifying the match is rejected as a contract
// violation so callers never grant an unidentified session.
func (r *Registry) Verify(ctx context.Context, capture models.Capture) (models.VerifyResult, error) {
	if len(capture.Image) == 0 {
		return models.VerifyResult{}, &ValidationError{Field: "image", Reason: "capture payload is missing"}
	}

	fields := map[string]string{}
	if capture.TargetIdentityID != "" {
		fields["user_id"] = capture.TargetIdentityID
	}
	body, contentType, err := multipartBody(fields, capture.Image)
	if err != nil {
		return models.VerifyResult{}, fmt.Errorf("build verify payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/face-recognition/authenticate", body)
	if err != nil {
		return models.VerifyResult{}, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := r.client.Do(req)
	if err != nil {
		return models.VerifyResult{}, &NetworkError{Op: "verify capture", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.VerifyResult{}, r.serverError(resp)
	}

	var dto struct {
		Success    bool         `json:"success"`
		UserID     string       `json:"userId"`
		UserName   string       `json:"userName"`
		Confidence float64      `json:"confidence"`
		Message    looseMessage `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return models.VerifyResult{}, &ContractError{Detail: fmt.Sprintf("malformed verify response: %v", err)}
	}
	if dto.Success && (dto.UserID == "" || dto.UserName == "") {
		return models.VerifyResult{}, &ContractError{Detail: "verify succeeded without identifying the match"}
	}

	return models.VerifyResult{
		Success:      dto.Success,
		IdentityID:   dto.UserID,
		IdentityName: dto.UserName,
		Confidence:   dto.Confidence,
		Message:      string(dto.Message),
	}, nil
}

// Remove deletes one identity from the registry. Callers holding a session
// for this identity must invalidate it; the backend does not push that.
func (r *Registry) Remove(ctx context.Context, identityID string) error {
	if identityID == "" {
		return &ValidationError{Field: "identityId", Reason: "must not be empty"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, r.baseURL+"/face-recognition/users/"+identityID, nil)
	if err != nil {
		return fmt.Errorf("build remove request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return &NetworkError{Op: "remove identity", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return r.serverError(resp)
	}

	var dto struct {
		Success bool         `json:"success"`
		Message looseMessage `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return &ContractError{Detail: fmt.Sprintf("malformed remove response: %v", err)}
	}
	if !dto.Success {
		return &ServerError{Code: resp.StatusCode, Detail: string(dto.Message)}
	}
	return nil
}

// serverError reads a non-2xx response into the error taxonomy, keeping the
// backend's diagnostic text where it can be extracted.
func (r *Registry) serverError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var dto struct {
		Message looseMessage `json:"message"`
	}
	detail := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &dto); err == nil && dto.Message != "" {
		detail = string(dto.Message)
	}

	r.log.Warn("backend returned error status",
		zap.Int("status", resp.StatusCode),
		zap.String("detail", detail),
	)
	return &ServerError{Code: resp.StatusCode, Detail: detail}
}

// multipartBody assembles the multipart payload used by the register and
// authenticate endpoints: text fields plus one "image" file part.
func multipartBody(fields map[string]string, image []byte) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile("image", "capture.jpg")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}
