package ocr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrOCR wraps every failure of a provider's Process call.
	ErrOCR = errors.New("ocr failed")
	// ErrProviderUnavailable is returned when the selected provider reports it cannot run.
	ErrProviderUnavailable = errors.New("ocr provider unavailable")
	// ErrUnknownProvider is returned for a provider name nobody registered.
	ErrUnknownProvider = errors.New("unknown ocr provider")
)

// ProgressFunc receives recognition progress as a percentage.
type ProgressFunc func(percent int)

// Provider is the text-recognition capability used by receipt sessions.
// To add a new recognizer, implement this interface and register it.
type Provider interface {
	// Process reads the text on img. Failures wrap ErrOCR.
	Process(ctx context.Context, img Image, progress ProgressFunc) (*RecognitionResult, error)
	// IsAvailable reports whether the provider can serve requests.
	IsAvailable(ctx context.Context) bool
}

// ProviderName identifies a registered provider.
type ProviderName string

const (
	ProviderMock   ProviderName = "mock"
	ProviderGemini ProviderName = "gemini"
)

// Registry maps provider names to their implementations.
type Registry map[ProviderName]Provider

// Select returns the provider registered under name once it reports itself available.
func (r Registry) Select(ctx context.Context, name string) (Provider, error) {
	key := ProviderName(strings.ToLower(strings.TrimSpace(name)))
	p, ok := r[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)", ErrUnknownProvider, name, strings.Join(r.names(), ", "))
	}
	if !p.IsAvailable(ctx) {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, key)
	}
	return p, nil
}

func (r Registry) names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, string(n))
	}
	sort.Strings(names)
	return names
}

func report(progress ProgressFunc, percent int) {
	if progress != nil {
		progress(percent)
	}
}
