// manager_test.go: Unit tests for the CLI manager
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/agilira/janus"
	"github.com/google/go-cmp/cmp"
)

// TestNewManager verifies proper initialization of CLI manager.
func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager() returned nil")
	}
	if manager.app == nil {
		t.Fatal("Manager.app not initialized")
	}
	if manager.auditLogger != nil {
		t.Error("Manager.auditLogger should be nil by default")
	}
	if manager.out == nil {
		t.Error("Manager.out should default to stdout")
	}
}

// TestManagerWithAudit verifies that CLI operations land in the audit trail.
func TestManagerWithAudit(t *testing.T) {
	auditPath := filepath.Join(t.TempDir(), "manager_audit.jsonl")
	auditLogger, err := janus.NewAuditLogger(janus.AuditConfig{
		Enabled:       true,
		OutputFile:    auditPath,
		MinLevel:      janus.AuditInfo,
		BufferSize:    100,
		FlushInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("Failed to create audit logger: %v", err)
	}

	fixture := NewCLITestFixture(t)
	fixture.manager.WithAudit(auditLogger)
	flags := fixture.CreateFile("a.flags", "--a=1\n")
	if _, err := fixture.RunCLI("flagfile", "expand", flags); err != nil {
		t.Fatalf("flagfile expand failed: %v", err)
	}
	if err := auditLogger.Close(); err != nil {
		t.Fatalf("Failed to close audit logger: %v", err)
	}

	events, err := janus.OpenAuditRecent(auditPath, 10)
	if err != nil {
		t.Fatalf("OpenAuditRecent: %v", err)
	}
	if len(events) != 1 || events[0].Event != "cli_flagfile_expand" || events[0].Source != flags {
		t.Errorf("unexpected audit events: %+v", events)
	}
}

func TestSummarizeTokens(t *testing.T) {
	s := summarizeTokens([]string{"--a=1", "-b", "--a=2", "pos", "--", "--c=3"})

	want := map[string][]string{"a": {"1", "2"}, "b": {"true"}}
	if diff := cmp.Diff(want, s.values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"pos", "--c=3"}, s.positional); diff != "" {
		t.Errorf("positional mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, s.repeated()); diff != "" {
		t.Errorf("repeated mismatch (-want +got):\n%s", diff)
	}
}

func TestParseExtendedDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"90s", 90 * time.Second, false},
		{"24h", 24 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"3y", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseExtendedDuration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseExtendedDuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseExtendedDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		512:         "512 B",
		2048:        "2.0 KiB",
		5 * 1 << 20: "5.0 MiB",
	}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
