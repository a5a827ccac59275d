// audit_test.go: Tests for the flag audit trail
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// newAuditedRegistry returns a registry writing its audit trail to path.
func newAuditedRegistry(t *testing.T, path string, minLevel AuditLevel) (*FlagValues, *AuditLogger) {
	t.Helper()
	logger, err := NewAuditLogger(AuditConfig{
		Enabled:    true,
		OutputFile: path,
		MinLevel:   minLevel,
		BufferSize: 100,
	})
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return New(Config{Name: "test", HelpWidth: 80, Audit: logger}), logger
}

type auditRow struct {
	Event    string
	Flag     string
	Source   string
	OldValue string
	NewValue string
}

func auditRows(events []AuditEvent) []auditRow {
	rows := make([]auditRow, 0, len(events))
	for _, ev := range events {
		rows = append(rows, auditRow{ev.Event, ev.Flag, ev.Source, ev.OldValue, ev.NewValue})
	}
	return rows
}

func TestAudit_SourcesOfChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	flagfile := writeFlagfile(t, dir, "prod.flags", "--name=prod\n")

	fv, logger := newAuditedRegistry(t, path, AuditInfo)
	defineServerFlags(t, fv)
	snap := fv.Snapshot()

	if _, err := fv.Parse([]string{"--port=9000", "--flagfile=" + flagfile}); err != nil {
		t.Fatal(err)
	}
	if err := fv.Set("port", 9001); err != nil {
		t.Fatal(err)
	}
	fv.Restore(snap)
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	events, err := OpenAuditRecent(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []auditRow{
		{EventFlagRestored, "port", SourceSnapshot, "--port=9001", "--port=8080"},
		{EventFlagRestored, "name", SourceSnapshot, "--name=prod", "--name=server"},
		{EventFlagSet, "port", SourceDirect, "--port=9000", "--port=9001"},
		{EventFlagParsed, "name", "flagfile:" + flagfile, "--name=server", "--name=prod"},
		{EventFlagParsed, "port", SourceArgv, "--port=8080", "--port=9000"},
	}
	// restored events come from a map walk; compare them as a set
	got := auditRows(events)
	sortRows := cmpopts.SortSlices(func(a, b auditRow) bool {
		return a.Event+a.Flag < b.Event+b.Flag
	})
	if diff := cmp.Diff(want, got, sortRows); diff != "" {
		t.Errorf("audit trail mismatch (-want +got):\n%s", diff)
	}
	for _, ev := range events {
		if ev.Module != thisModule || ev.Checksum == "" || ev.ProcessID == 0 {
			t.Errorf("incomplete event: %+v", ev)
		}
	}
}

func TestAudit_MinLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	fv, logger := newAuditedRegistry(t, path, AuditWarn)
	flags := defineServerFlags(t, fv)
	fv.MarkAsParsed()

	if err := flags.name.Set("ignored"); err != nil {
		t.Fatal(err)
	}
	if err := fv.SetDefault("port", 7070); err != nil {
		t.Fatal(err)
	}

	stats, err := logger.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalEvents != 1 || stats.EventsByEvent[EventFlagDefaultChanged] != 1 {
		t.Errorf("only the default change is WARN: %+v", stats)
	}
	if stats.EventsByLevel["WARN"] != 1 || stats.BackendName != "jsonl" {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestAudit_Disabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	logger, err := NewAuditLogger(AuditConfig{Enabled: false, OutputFile: path})
	if err != nil {
		t.Fatal(err)
	}
	logger.Log(AuditCritical, "anything", "m", "f", SourceDirect, "", "", nil)
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close should be a no-op: %v", err)
	}
	stats, err := OpenAuditStats(path)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalEvents != 0 {
		t.Errorf("disabled logger recorded %d events", stats.TotalEvents)
	}

	var nilLogger *AuditLogger
	nilLogger.LogFlagChange(EventFlagSet, nil, SourceDirect, "", "")
}

func TestAudit_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.db")
	fv, logger := newAuditedRegistry(t, path, AuditInfo)
	defineServerFlags(t, fv)

	if _, err := fv.Parse([]string{"--port=1", "--port=2", "-d"}); err != nil {
		t.Fatal(err)
	}
	stats, err := logger.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.BackendName != "sqlite" || stats.SchemaVersion != auditSchemaVersion {
		t.Errorf("unexpected backend: %+v", stats)
	}
	if stats.TotalEvents != 3 || stats.DistinctFlags != 2 || stats.EventsBySource[SourceArgv] != 3 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	events, err := OpenAuditRecent(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []auditRow{
		{EventFlagParsed, "debug", SourceArgv, "--nodebug", "--debug"},
		{EventFlagParsed, "port", SourceArgv, "--port=1", "--port=2"},
	}
	if diff := cmp.Diff(want, auditRows(events)); diff != "" {
		t.Errorf("recent events mismatch (-want +got):\n%s", diff)
	}
	if events[0].Level != AuditInfo || events[0].Timestamp.IsZero() {
		t.Errorf("event fields not restored: %+v", events[0])
	}
}

func TestOpenAuditStore_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.db")
	if _, err := OpenAuditStats(missing); err == nil {
		t.Error("opening a missing store should fail")
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Error("inspecting a missing store must not create it")
	}
}

func TestParseAuditLevel(t *testing.T) {
	for _, level := range []AuditLevel{AuditInfo, AuditWarn, AuditCritical, AuditSecurity} {
		got, ok := ParseAuditLevel(strings.ToLower(level.String()))
		if !ok || got != level {
			t.Errorf("ParseAuditLevel(%q) = %v, %v", level.String(), got, ok)
		}
	}
	if _, ok := ParseAuditLevel("loud"); ok {
		t.Error("unknown level accepted")
	}
	if AuditLevel(42).String() != "UNKNOWN" {
		t.Error("out of range level should print UNKNOWN")
	}
}
