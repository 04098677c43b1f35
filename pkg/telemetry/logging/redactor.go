package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"mercator-hq/ropsim/pkg/config"
)

// Redacted replaces masked values.
const Redacted = "***"

// Redactor masks credentials in log attributes and messages.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternPassword    = "password"
	PatternPrivateKey  = "private_key"
	PatternBearerToken = "bearer_token"
	PatternURLPassword = "url_password"
)

var sensitiveKeys = []string{
	"password", "passwd", "passphrase",
	"secret", "token", "authorization",
	"private_key", "privatekey",
}

// NewRedactor creates a Redactor with the built-in patterns plus
// customPatterns. Custom patterns that do not compile are skipped.
func NewRedactor(customPatterns []config.RedactPattern) *Redactor {
	r := &Redactor{}
	r.add(PatternPrivateKey, `-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`, "-----PRIVATE KEY "+Redacted+"-----")
	r.add(PatternPassword, `(?i)(password|passwd|passphrase)([=:]\s*)[^\s&;,]+`, "${1}${2}"+Redacted)
	r.add(PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer "+Redacted)
	r.add(PatternURLPassword, `(\w+://[^:/@\s]+:)[^@\s]+@`, "${1}"+Redacted+"@")

	for _, p := range customPatterns {
		if err := r.addPattern(p.Name, p.Pattern, p.Replacement); err != nil {
			slog.Default().Warn("skipping invalid redact pattern", "name", p.Name, "error", err)
		}
	}
	return r
}

func (r *Redactor) add(name, expr, replacement string) {
	r.patterns = append(r.patterns, &redactPattern{
		name:        name,
		regex:       regexp.MustCompile(expr),
		replacement: replacement,
	})
}

func (r *Redactor) addPattern(name, expr, replacement string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return err
	}
	if replacement == "" {
		replacement = Redacted
	}
	r.patterns = append(r.patterns, &redactPattern{name: name, regex: re, replacement: replacement})
	return nil
}

// RedactString applies every pattern to value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr masks a whole attribute when its key looks sensitive and
// otherwise applies the value patterns. Groups are walked recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		attrs := v.Group()
		out := make([]any, len(attrs))
		for i, ga := range attrs {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Group(a.Key, out...)
	}

	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, Redacted)
	}

	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
		if s, ok := v.Any().(fmt.Stringer); ok {
			return slog.String(a.Key, r.RedactString(s.String()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// IsSensitiveKey reports whether an attribute key names a credential.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
