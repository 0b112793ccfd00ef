package receipt

import (
	"context"
	"errors"
	"sync"

	"github.com/georgemunganga/pantry-backend/internal/modules/ocr"
	"go.uber.org/zap"
)

var ErrNoSession = errors.New("no active receipt session")

// Manager holds the single active receipt session. Starting a new session
// tears down the previous one and frees its camera.
type Manager struct {
	mu       sync.Mutex
	camera   Camera
	provider ocr.Provider
	logger   *zap.Logger
	current  *Session
}

func NewManager(camera Camera, provider ocr.Provider, logger *zap.Logger) *Manager {
	return &Manager{camera: camera, provider: provider, logger: logger}
}

// Start replaces the active session and requests camera access for it.
// The new session stays active when access fails so the caller can retry.
func (m *Manager) Start(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if m.current != nil {
		m.current.End()
	}
	s := NewSession(m.camera, m.provider, m.logger)
	m.current = s
	m.mu.Unlock()
	return s, s.Start(ctx)
}

func (m *Manager) Current() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNoSession
	}
	return m.current, nil
}

// End tears down the active session.
func (m *Manager) End() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNoSession
	}
	m.current.End()
	m.current = nil
	return nil
}

// Close ends any active session. Used on shutdown.
func (m *Manager) Close() {
	if err := m.End(); err != nil && !errors.Is(err, ErrNoSession) {
		m.logger.Warn("failed to end receipt session", zap.Error(err))
	}
}
