package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces redacted attribute values.
const MaskValue = "***REDACTED***"

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	"authorization": true,
	"x-api-key":     true,
	"api_key":       true,
	"apikey":        true,
	"api-key":       true,
	"password":      true,
	"secret":        true,
	"access_token":  true,
}

// sensitiveKeywords match as substrings of the lower-cased key. A bare
// "token" is not listed so that max_tokens and token_count stay visible.
var sensitiveKeywords = []string{"password", "secret", "api_key", "apikey", "credential"}

// sensitivePatterns match values that look like provider keys regardless of key name.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`^tvly-[A-Za-z0-9_-]+$`),
	regexp.MustCompile(`^sk-[A-Za-z0-9_-]{16,}$`),
	regexp.MustCompile(`^gsk_[A-Za-z0-9]{16,}$`),
	regexp.MustCompile(`^AIza[0-9A-Za-z_-]{30,}$`),
}

// keyInURL matches api_key / apiKey query parameters embedded in URLs.
var keyInURL = regexp.MustCompile(`(?i)(api_?key=)[^&\s]+`)

// RedactHandler wraps an slog.Handler and masks credentials before records
// reach the underlying handler.
type RedactHandler struct {
	handler slog.Handler
}

// NewRedactHandler creates a RedactHandler wrapping handler. A nil handler
// falls back to slog.Default().Handler().
func NewRedactHandler(handler slog.Handler) *RedactHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &RedactHandler{handler: handler}
}

// Enabled delegates to the underlying handler.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and forwards it.
func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(redactAttr(a))
		return true
	})

	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the masked attributes added.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = redactAttr(a)
	}
	return &RedactHandler{handler: h.handler.WithAttrs(masked)}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{handler: h.handler.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		masked := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			masked[i] = redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, RedactString(a.Value.String()))
	}

	return a
}

// IsSensitiveKey reports whether values logged under key must be masked.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	if sensitiveKeys[k] {
		return true
	}
	for _, kw := range sensitiveKeywords {
		if strings.Contains(k, kw) {
			return true
		}
	}
	return false
}

// RedactString masks s if it looks like a credential and strips api keys
// embedded in URL query strings.
func RedactString(s string) string {
	for _, p := range sensitivePatterns {
		if p.MatchString(s) {
			return MaskValue
		}
	}
	return keyInURL.ReplaceAllString(s, "${1}"+MaskValue)
}
