package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LogLevelDebug, false},
		{"INFO", LogLevelInfo, false},
		{"", LogLevelInfo, false},
		{"warning", LogLevelWarn, false},
		{"error", LogLevelError, false},
		{"loud", LogLevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_RespectsLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LogLevelWarn, Format: "json", Output: &buf, Component: "search"})

	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("shown", "provider", "tavily")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"component":"search"`)
	assert.Contains(t, buf.String(), `"provider":"tavily"`)
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	l := With(New(Config{Level: LogLevelDebug, Output: &buf}), "run_id", "r-1")
	l.Debug("hello")
	assert.Contains(t, buf.String(), "run_id=r-1")

	assert.Equal(t, NoOpLogger{}, With(NoOpLogger{}, "a", 1))
}

func TestRedactHandler(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		wantMask bool
	}{
		{"api_key key", "api_key", "anything", true},
		{"authorization key", "Authorization", "Bearer abc", true},
		{"tavily key value", "value", "tvly-dev-abc123", true},
		{"openai key value", "value", "sk-abcdefghijklmnopqrstuvwx", true},
		{"groq key value", "value", "gsk_abcdefghijklmnopqrstuvwx", true},
		{"bearer value", "header", "Bearer xyz", true},
		{"max_tokens is visible", "max_tokens", "1000", false},
		{"plain query", "query", "tech news", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewRedactHandler(slog.NewTextHandler(&buf, nil)))
			logger.Info("msg", tt.key, tt.value)

			if tt.wantMask {
				assert.Contains(t, buf.String(), MaskValue)
				assert.NotContains(t, buf.String(), tt.value)
			} else {
				assert.Contains(t, buf.String(), tt.value)
			}
		})
	}
}

func TestRedactString_URLQuery(t *testing.T) {
	got := RedactString("https://serpapi.com/search.json?q=go&api_key=secret123&num=5")
	assert.NotContains(t, got, "secret123")
	assert.Contains(t, got, "q=go")
	assert.Contains(t, got, "num=5")
}

func TestRedactHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewRedactHandler(slog.NewJSONHandler(&buf, nil)))
	logger.With("api_key", "k").WithGroup("req").Info("call", slog.Group("auth", "authorization", "Bearer x"))

	assert.NotContains(t, buf.String(), `"k"`)
	assert.NotContains(t, buf.String(), "Bearer x")
}
