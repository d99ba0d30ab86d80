package main

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs("1, 2,3 ,4")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ids) != 4 || ids[0] != 1 || ids[3] != 4 {
		t.Fatalf("unexpected ids: %v", ids)
	}

	if _, err := parseIDs(""); err == nil {
		t.Fatalf("expected error for empty input")
	}
	if _, err := parseIDs("1,x"); err == nil {
		t.Fatalf("expected error for non-numeric id")
	}
}

func TestFormatIDs(t *testing.T) {
	if got := formatIDs([]int{10, 20, 30}); got != "10 20 30" {
		t.Fatalf("unexpected format: %q", got)
	}
	if got := formatIDs(nil); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestFileConfigUnsetFields(t *testing.T) {
	var cfg fileConfig
	if err := yaml.Unmarshal([]byte("host: engine.local\nport: 8500\n"), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.Host != "engine.local" {
		t.Fatalf("unexpected host: %q", cfg.Host)
	}
	if cfg.Port == nil || *cfg.Port != 8500 {
		t.Fatalf("unexpected port: %v", cfg.Port)
	}
	// Absent keys stay nil so they don't override flags or env.
	if cfg.Timeout != nil {
		t.Fatalf("timeout should be unset")
	}

	var zero fileConfig
	if err := yaml.Unmarshal([]byte("timeout: 2.5\n"), &zero); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if zero.Timeout == nil || *zero.Timeout != 2.5 {
		t.Fatalf("unexpected timeout: %v", zero.Timeout)
	}
}
