package logger

import (
	"log/slog"
	"strings"
)

const redacted = "***REDACTED***"

// Keys whose string values are always replaced.
var sensitiveKeys = []string{
	"password",
	"passphrase",
	"secret",
	"token",
	"authorization",
	"bearer",
	"credential",
}

func redact(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		if v == "" {
			return a
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redacted)
		}
		if masked, ok := mask(v); ok {
			return slog.String(a.Key, masked)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			out[i] = redact(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// mask shortens bearer credentials and JWT-shaped strings to a hint
// that is still useful when comparing two log lines.
func mask(v string) (string, bool) {
	if rest, ok := cutPrefixFold(v, "bearer "); ok {
		return "Bearer " + hint(rest), true
	}
	if looksLikeJWT(v) {
		return hint(v), true
	}
	return v, false
}

// hint keeps the first and last four characters.
func hint(v string) string {
	if len(v) <= 12 {
		return "***"
	}
	return v[:4] + "..." + v[len(v)-4:]
}

func looksLikeJWT(v string) bool {
	return strings.HasPrefix(v, "eyJ") && strings.Count(v, ".") == 2 && !strings.ContainsAny(v, " \t\n")
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// RedactString masks v if it is a bearer credential or a token.
func RedactString(v string) string {
	if m, ok := mask(v); ok {
		return m
	}
	return v
}

// IsSensitiveKey reports whether values logged under key are redacted.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
