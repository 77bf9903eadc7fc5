package logging

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
)

// RedactPattern is one named redaction rule.
type RedactPattern struct {
	// Name identifies the rule; it appears in the replacement marker.
	Name string `yaml:"name"`

	// Pattern is the regular expression to mask.
	Pattern string `yaml:"pattern"`
}

// builtinPatterns cover the identifiers that most often leak into logs
// from clinical fact data.
var builtinPatterns = []RedactPattern{
	{Name: "ssn", Pattern: `\b\d{3}-\d{2}-\d{4}\b`},
	{Name: "mrn", Pattern: `\b(?i:mrn)[:\s#-]*\d{6,10}\b`},
	{Name: "email", Pattern: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`},
	{Name: "phone", Pattern: `\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}\b`},
}

// compiledPattern pairs a rule with its compiled regexp.
type compiledPattern struct {
	name string
	re   *regexp.Regexp
}

// Redactor masks identifier patterns in strings. It is immutable after
// construction and safe for concurrent use.
type Redactor struct {
	patterns []compiledPattern
}

// NewRedactor compiles the built-in patterns plus any extras.
func NewRedactor(extra []RedactPattern) (*Redactor, error) {
	all := make([]RedactPattern, 0, len(builtinPatterns)+len(extra))
	all = append(all, builtinPatterns...)
	all = append(all, extra...)

	r := &Redactor{patterns: make([]compiledPattern, 0, len(all))}
	for _, p := range all {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p.Name, err)
		}
		r.patterns = append(r.patterns, compiledPattern{name: p.Name, re: re})
	}
	return r, nil
}

// Redact masks every pattern occurrence in s.
func (r *Redactor) Redact(s string) string {
	for _, p := range r.patterns {
		s = p.re.ReplaceAllString(s, "[REDACTED:"+p.name+"]")
	}
	return s
}

// redactingHandler masks string attribute values and the message before
// delegating to the wrapped handler.
type redactingHandler struct {
	inner    slog.Handler
	redactor *Redactor
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, h.redactor.Redact(record.Message), record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		clean.AddAttrs(h.redactAttr(attr))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		clean[i] = h.redactAttr(attr)
	}
	return &redactingHandler{inner: h.inner.WithAttrs(clean), redactor: h.redactor}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}

// redactAttr masks string values, recursing into groups. Non-string
// values pass through untouched.
func (h *redactingHandler) redactAttr(attr slog.Attr) slog.Attr {
	switch attr.Value.Kind() {
	case slog.KindString:
		attr.Value = slog.StringValue(h.redactor.Redact(attr.Value.String()))
	case slog.KindGroup:
		members := attr.Value.Group()
		clean := make([]slog.Attr, len(members))
		for i, m := range members {
			clean[i] = h.redactAttr(m)
		}
		attr.Value = slog.GroupValue(clean...)
	}
	return attr
}
