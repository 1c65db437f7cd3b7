package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	quiet, err := New(false)
	if err != nil {
		t.Fatalf("New(false) failed: %v", err)
	}
	if quiet.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info to be disabled without verbose")
	}
	if !quiet.Core().Enabled(zapcore.WarnLevel) {
		t.Error("expected warnings to be enabled")
	}

	loud, err := New(true)
	if err != nil {
		t.Fatalf("New(true) failed: %v", err)
	}
	if !loud.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug to be enabled with verbose")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("expected a logger")
	}
	l, _ := New(false)
	if OrNop(l) != l {
		t.Error("expected the same logger back")
	}
}
