// Package capture abstracts where face images come from. The hardware side
// (cameras, video elements) lives behind Provider; the core only needs one
// image payload per attempt.
package capture

import (
	"context"
	"errors"
	"net/http"
	"os"
)

// ErrInvalidFormat is returned when a payload is not a JPEG image.
var ErrInvalidFormat = errors.New("invalid image format, expected jpeg")

// ErrEmptyCapture is returned when a provider yields no data.
var ErrEmptyCapture = errors.New("empty capture payload")

// Provider produces one face image payload per call, or fails.
type Provider interface {
	Capture(ctx context.Context) ([]byte, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) ([]byte, error)

// Capture calls f.
func (f ProviderFunc) Capture(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// Validate checks that a payload is a non-empty JPEG. The backend rejects
// other formats anyway; checking locally saves a round trip.
func Validate(payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyCapture
	}
	if http.DetectContentType(payload) != "image/jpeg" {
		return ErrInvalidFormat
	}
	return nil
}

// FileProvider reads captures from a file path, e.g. an image dropped by a
// camera daemon or handed over on the CLI.
type FileProvider struct {
	Path string
}

// Capture reads and validates the file's contents.
func (p FileProvider) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, err
	}
	if err := Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}
