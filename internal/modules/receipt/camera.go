package receipt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"sync"

	"github.com/georgemunganga/pantry-backend/internal/modules/ocr"
)

var (
	// ErrPermission is returned when access to the camera is denied.
	ErrPermission = errors.New("camera permission denied")
	// ErrDeviceUnavailable is returned when there is no usable camera.
	ErrDeviceUnavailable = errors.New("camera unavailable")
)

// Camera grants access to a capture device.
type Camera interface {
	// Open requests access and returns a live stream. Failures wrap ErrPermission or ErrDeviceUnavailable.
	Open(ctx context.Context) (Stream, error)
}

// Stream is a live camera feed. The holder must Close it to free the device.
type Stream interface {
	Snapshot(ctx context.Context) (ocr.Image, error)
	Close() error
}

// deviceCamera reads frames from a device node or frame file.
type deviceCamera struct{ path string }

// NewDeviceCamera creates a camera backed by the file at path. Each snapshot re-reads the file.
func NewDeviceCamera(path string) Camera { return &deviceCamera{path: path} }

func (c *deviceCamera) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(c.path)
	switch {
	case err == nil:
		return &deviceStream{f: f}, nil
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: %s", ErrPermission, c.path)
	default:
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
}

type deviceStream struct {
	mu     sync.Mutex
	f      *os.File
	closed bool
}

func (s *deviceStream) Snapshot(ctx context.Context) (ocr.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ocr.Image{}, fmt.Errorf("%w: stream closed", ErrDeviceUnavailable)
	}
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return ocr.Image{}, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	data, err := io.ReadAll(s.f)
	if err != nil {
		return ocr.Image{}, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	if len(data) == 0 {
		return ocr.Image{}, fmt.Errorf("%w: empty frame", ErrDeviceUnavailable)
	}
	return ocr.Image{Data: data, MIMEType: http.DetectContentType(data)}, nil
}

func (s *deviceStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.f.Close()
}
