// Package boundary isolates failures of a subtree of logic behind a call boundary.
//
// A Boundary runs calls into external collaborators. A panic inside a call is
// recovered, logged with its stack and the path of the failing call, and trips
// the boundary: later calls return the fallback without running until Reset.
// Errors returned normally by a call pass through untouched.
package boundary

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrRecovered is returned by the call that panicked.
	ErrRecovered = errors.New("recovered from panic")
	// ErrTripped is returned while the boundary is failed.
	ErrTripped = errors.New("boundary is in failed state")
)

type State string

const (
	StateOK     State = "ok"
	StateFailed State = "failed"
)

// Failure describes the panic that tripped a boundary.
type Failure struct {
	Message string    `json:"message"`
	Stack   string    `json:"stack"`
	Path    string    `json:"path"`
	At      time.Time `json:"at"`
}

type Status struct {
	State   State    `json:"state"`
	Failure *Failure `json:"failure,omitempty"`
}

type Boundary struct {
	mu      sync.Mutex
	name    string
	logger  *zap.Logger
	failure *Failure
}

func New(name string, logger *zap.Logger) *Boundary {
	return &Boundary{name: name, logger: logger}
}

// Run calls fn unless the boundary is failed.
func (b *Boundary) Run(path string, fn func() error) error {
	_, err := Guard(b, path, struct{}{}, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Guard calls fn through b and returns fallback when fn panics or b is failed.
func Guard[T any](b *Boundary, path string, fallback T, fn func() (T, error)) (result T, err error) {
	if f := b.current(); f != nil {
		return fallback, fmt.Errorf("%w: %s at %s", ErrTripped, f.Message, f.Path)
	}
	defer func() {
		if r := recover(); r != nil {
			f := b.trip(path, r, debug.Stack())
			result = fallback
			err = fmt.Errorf("%w: %s", ErrRecovered, f.Message)
		}
	}()
	return fn()
}

// Reset returns the boundary to its initial ok state.
func (b *Boundary) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failure != nil {
		b.logger.Info("boundary reset", zap.String("boundary", b.name), zap.String("path", b.failure.Path))
	}
	b.failure = nil
}

func (b *Boundary) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failure == nil {
		return Status{State: StateOK}
	}
	f := *b.failure
	return Status{State: StateFailed, Failure: &f}
}

func (b *Boundary) current() *Failure {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failure
}

func (b *Boundary) trip(path string, recovered interface{}, stack []byte) *Failure {
	f := &Failure{
		Message: fmt.Sprint(recovered),
		Stack:   string(stack),
		Path:    b.name + "/" + path,
		At:      time.Now().UTC(),
	}
	b.mu.Lock()
	b.failure = f
	b.mu.Unlock()
	b.logger.Error("unhandled failure",
		zap.String("boundary", b.name),
		zap.String("path", f.Path),
		zap.String("message", f.Message),
		zap.String("stack", f.Stack))
	return f
}
