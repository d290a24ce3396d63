// Package devices is a minimal client for the backend's device endpoints,
// covering just what the session gate needs: flipping a door lock.
package devices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/NhanHoThanh/smart-home-faceauth/internal/faceid"
	"go.uber.org/zap"
)

// Client talks to the backend's device API.
type Client struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewClient creates a device client for the backend at baseURL.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// SetLocked sets the lock state of a door-type device.
func (c *Client) SetLocked(ctx context.Context, deviceID string, locked bool) error {
	if deviceID == "" {
		return &faceid.ValidationError{Field: "deviceId", Reason: "must not be empty"}
	}

	payload, err := json.Marshal(map[string]bool{"locked": locked})
	if err != nil {
		return fmt.Errorf("marshal device payload: %w", err)
	}

	url := c.baseURL + "/devices/" + deviceID + "/state"
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build device request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &faceid.NetworkError{Op: "set device state", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &faceid.ServerError{Code: resp.StatusCode}
	}

	c.log.Debug("device state updated",
		zap.String("device", deviceID),
		zap.Bool("locked", locked),
	)
	return nil
}
