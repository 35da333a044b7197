package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected logger to be enabled")
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	output := buf.String()
	if output == "" {
		t.Error("Expected log output, got empty string")
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", output)
	}
}

func TestNewWithConfig(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantErr   bool
		wantDebug bool
	}{
		{name: "json debug", level: "debug", format: "json", wantDebug: true},
		{name: "console info", level: "INFO", format: "console"},
		{name: "default format", level: "warn", format: ""},
		{name: "bad level", level: "loud", format: "json", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log, err := NewWithConfig(buf, tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewWithConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			log.Debug().Msg("debug line")
			if got := strings.Contains(buf.String(), "debug line"); got != tt.wantDebug {
				t.Errorf("debug output present = %v, want %v", got, tt.wantDebug)
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	log := New()
	ctx := context.Background()

	ctxWithLogger := WithContext(ctx, log)

	if ctxWithLogger.Value(LoggerKey) == nil {
		t.Error("Expected logger in context, got nil")
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	testLog := NewWithWriter(buf)
	ctx := WithContext(context.Background(), testLog)

	retrievedLog := FromContext(ctx)
	retrievedLog.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	// Should return a default logger when none is in context
	log := FromContext(context.Background())

	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestFromContextOr(t *testing.T) {
	ctxBuf, fallbackBuf := &bytes.Buffer{}, &bytes.Buffer{}
	fallback := NewWithWriter(fallbackBuf)

	got := FromContextOr(context.Background(), fallback)
	got.Info().Msg("no logger in context")
	if !strings.Contains(fallbackBuf.String(), "no logger in context") {
		t.Errorf("Expected fallback logger to be used, got: %s", fallbackBuf.String())
	}

	ctx := WithContext(context.Background(), NewWithWriter(ctxBuf))
	got = FromContextOr(ctx, fallback)
	got.Info().Msg("scoped")
	if !strings.Contains(ctxBuf.String(), "scoped") || strings.Contains(fallbackBuf.String(), "scoped") {
		t.Errorf("Expected context logger to win, ctx=%q fallback=%q", ctxBuf.String(), fallbackBuf.String())
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	fields := map[string]interface{}{
		"transaction_id": "tx-123",
		"op":             "add",
	}

	logWithFields := WithFields(log, fields)
	logWithFields.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "transaction_id") || !strings.Contains(output, "tx-123") {
		t.Errorf("Expected output to contain transaction_id field, got: %s", output)
	}
	if !strings.Contains(output, `"op":"add"`) {
		t.Errorf("Expected output to contain op field, got: %s", output)
	}
}
