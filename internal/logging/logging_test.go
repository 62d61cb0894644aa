package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewReplacesGlobal(t *testing.T) {
	logger, cleanup, err := New("debug", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()
	if zap.L() != logger {
		t.Fatalf("expected global logger to be replaced")
	}
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("expected debug level enabled")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, _, err := New("chatty", false); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
