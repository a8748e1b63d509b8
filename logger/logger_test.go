package logger

import (
	"context"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"nonsense", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := levelFromString(tt.in); got != tt.want {
			t.Errorf("levelFromString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestContextLogger(t *testing.T) {
	fallback := NewNop()
	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Error("expected fallback logger for empty context")
	}

	scoped := fallback.With(String("request_id", "abc"))
	ctx := NewContext(context.Background(), scoped)
	if got := FromContext(ctx, fallback); got != scoped {
		t.Error("expected scoped logger from context")
	}
}
