package devices

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NhanHoThanh/smart-home-faceauth/internal/faceid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSetLocked(t *testing.T) {
	var gotPath string
	var gotBody map[string]bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zap.NewNop())

	require.NoError(t, client.SetLocked(context.Background(), "door-1", false))
	assert.Equal(t, "/devices/door-1/state", gotPath)
	assert.Equal(t, map[string]bool{"locked": false}, gotBody)
}

func TestSetLocked_EmptyDeviceID(t *testing.T) {
	client := NewClient("http://localhost", time.Second, zap.NewNop())

	err := client.SetLocked(context.Background(), "", true)

	var validationErr *faceid.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestSetLocked_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zap.NewNop())

	err := client.SetLocked(context.Background(), "door-1", true)

	var serverErr *faceid.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusInternalServerError, serverErr.Code)
}

func TestSetLocked_TransportError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second, zap.NewNop())

	err := client.SetLocked(context.Background(), "door-1", true)

	var netErr *faceid.NetworkError
	require.ErrorAs(t, err, &netErr)
}
