package logger

import (
	"testing"

	"github.com/georgemunganga/pantry-backend/internal/config"
	"go.uber.org/zap/zapcore"
)

func TestNewHonoursLevel(t *testing.T) {
	log, err := New(config.LoggerConfig{Level: "warn", Encoding: "json"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !log.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("error should be enabled at warn level")
	}
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	log, err := New(config.LoggerConfig{Development: true, Level: "chatty", Encoding: "console"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug should be disabled after fallback")
	}
	if !log.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be enabled after fallback")
	}
}
