package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Writer = &buf

	logger, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("engine started", "rule_sets", 3)
	logger.Debug("should be filtered")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1 (debug filtered at info level)", len(lines))
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if record["msg"] != "engine started" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["rule_sets"] != float64(3) {
		t.Errorf("rule_sets = %v", record["rule_sets"])
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Debug("verbose detail")
	if !strings.Contains(buf.String(), "msg=\"verbose detail\"") {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("invalid level accepted")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("invalid format accepted")
	}
	if _, err := New(Config{RedactPHI: true, RedactPatterns: []RedactPattern{{Name: "bad", Pattern: "("}}}); err == nil {
		t.Error("invalid redact pattern accepted")
	}
}

func TestRedactionInAttributes(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Writer = &buf

	logger, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("patient lookup", "contact", "reach me at nurse@example.org", "note", "ssn 123-45-6789 on file")

	out := buf.String()
	if strings.Contains(out, "nurse@example.org") {
		t.Error("email leaked through redaction")
	}
	if strings.Contains(out, "123-45-6789") {
		t.Error("SSN leaked through redaction")
	}
	if !strings.Contains(out, "[REDACTED:email]") || !strings.Contains(out, "[REDACTED:ssn]") {
		t.Errorf("redaction markers missing: %s", out)
	}
}

func TestRedactionOnChildLoggers(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Writer = &buf

	logger, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	child := logger.With("caller", "dr.smith@hospital.test")
	child.Info("request admitted")

	if strings.Contains(buf.String(), "dr.smith@hospital.test") {
		t.Errorf("With-attached attribute leaked: %s", buf.String())
	}
}
