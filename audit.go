// audit.go: Audit trail of flag mutations
//
// When a registry carries an AuditLogger, every mutation of a flag value
// (argv, flagfile, direct assignment, default change, reset, snapshot
// restore) is recorded with the serialized old and new value and the
// source of the change.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

// AuditLevel represents the severity of audit events
type AuditLevel int

const (
	AuditInfo AuditLevel = iota
	AuditWarn
	AuditCritical
	AuditSecurity
)

func (al AuditLevel) String() string {
	switch al {
	case AuditInfo:
		return "INFO"
	case AuditWarn:
		return "WARN"
	case AuditCritical:
		return "CRITICAL"
	case AuditSecurity:
		return "SECURITY"
	default:
		return "UNKNOWN"
	}
}

// ParseAuditLevel is the inverse of AuditLevel.String, case-insensitive.
func ParseAuditLevel(s string) (AuditLevel, bool) {
	for _, l := range []AuditLevel{AuditInfo, AuditWarn, AuditCritical, AuditSecurity} {
		if strings.EqualFold(l.String(), s) {
			return l, true
		}
	}
	return AuditInfo, false
}

// Audit event names.
const (
	EventFlagParsed         = "flag_parsed"
	EventFlagSet            = "flag_set"
	EventFlagDefaultChanged = "flag_default_changed"
	EventFlagUnparsed       = "flag_unparsed"
	EventFlagRestored       = "flag_restored"
)

// Sources of a flag mutation. Flagfile tokens use "flagfile:<path>".
const (
	SourceArgv     = "argv"
	SourceDirect   = "direct"
	SourceSnapshot = "snapshot"
)

func flagfileSource(path string) string { return "flagfile:" + path }

// AuditEvent represents a single flag mutation
type AuditEvent struct {
	Timestamp   time.Time              `json:"timestamp"`
	Level       AuditLevel             `json:"level"`
	Event       string                 `json:"event"`
	Module      string                 `json:"module"`
	Flag        string                 `json:"flag"`
	Source      string                 `json:"source,omitempty"`
	OldValue    string                 `json:"old_value,omitempty"`
	NewValue    string                 `json:"new_value,omitempty"`
	ProcessID   int                    `json:"process_id"`
	ProcessName string                 `json:"process_name"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Checksum    string                 `json:"checksum"`
}

// AuditConfig configures the audit system
type AuditConfig struct {
	Enabled       bool          `json:"enabled"`
	OutputFile    string        `json:"output_file"`
	MinLevel      AuditLevel    `json:"min_level"`
	BufferSize    int           `json:"buffer_size"`
	FlushInterval time.Duration `json:"flush_interval"`
}

// DefaultAuditConfig returns an enabled configuration writing to the
// shared SQLite database under the temp directory.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:       true,
		OutputFile:    "",
		MinLevel:      AuditInfo,
		BufferSize:    256,
		FlushInterval: 5 * time.Second,
	}
}

// AuditLogger buffers flag mutation events and writes them in batches to
// a SQLite or JSONL backend. It is safe for concurrent use.
type AuditLogger struct {
	config      AuditConfig
	backend     auditBackend
	buffer      []AuditEvent
	bufferMu    sync.Mutex
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
	processID   int
	processName string
}

// NewAuditLogger creates an audit logger. Output files ending in .jsonl
// select the JSONL backend, everything else tries SQLite first and falls
// back to JSONL.
func NewAuditLogger(config AuditConfig) (*AuditLogger, error) {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultAuditConfig().BufferSize
	}
	backend, err := createAuditBackend(config)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeAuditError, "failed to initialize audit backend")
	}

	logger := &AuditLogger{
		config:      config,
		backend:     backend,
		buffer:      make([]AuditEvent, 0, config.BufferSize),
		stopCh:      make(chan struct{}),
		processID:   os.Getpid(),
		processName: getProcessName(),
	}

	if config.FlushInterval > 0 {
		logger.flushTicker = time.NewTicker(config.FlushInterval)
		go logger.flushLoop()
	}

	return logger, nil
}

// Log records an audit event
func (al *AuditLogger) Log(level AuditLevel, event, module, flag, source, oldVal, newVal string, context map[string]interface{}) {
	if al == nil || al.backend == nil || !al.config.Enabled || level < al.config.MinLevel {
		return
	}

	auditEvent := AuditEvent{
		Timestamp:   timecache.CachedTime(),
		Level:       level,
		Event:       event,
		Module:      module,
		Flag:        flag,
		Source:      source,
		OldValue:    oldVal,
		NewValue:    newVal,
		ProcessID:   al.processID,
		ProcessName: al.processName,
		Context:     context,
	}
	auditEvent.Checksum = al.generateChecksum(auditEvent)

	al.bufferMu.Lock()
	al.buffer = append(al.buffer, auditEvent)
	if len(al.buffer) >= al.config.BufferSize {
		_ = al.flushBufferUnsafe()
	}
	al.bufferMu.Unlock()
}

// LogFlagChange records a value mutation of f.
func (al *AuditLogger) LogFlagChange(event string, f *Flag, source, oldVal, newVal string) {
	if al == nil || f == nil {
		return
	}
	level := AuditInfo
	if event == EventFlagDefaultChanged {
		level = AuditWarn
	}
	al.Log(level, event, f.module, f.name, source, oldVal, newVal, nil)
}

// Flush immediately writes all buffered events
func (al *AuditLogger) Flush() error {
	al.bufferMu.Lock()
	defer al.bufferMu.Unlock()
	return al.flushBufferUnsafe()
}

// Stats flushes pending events and returns backend statistics.
func (al *AuditLogger) Stats() (*AuditDatabaseStats, error) {
	if err := al.Flush(); err != nil {
		return nil, err
	}
	return al.backend.GetStats()
}

// Close stops the background flusher, writes pending events and releases
// the backend. Calling Close twice is a no-op.
func (al *AuditLogger) Close() error {
	var err error
	al.closeOnce.Do(func() {
		close(al.stopCh)
		if al.flushTicker != nil {
			al.flushTicker.Stop()
		}
		if ferr := al.Flush(); ferr != nil {
			err = fmt.Errorf("failed to flush audit logger during close: %w", ferr)
			return
		}
		if cerr := al.backend.Close(); cerr != nil {
			err = fmt.Errorf("failed to close audit backend: %w", cerr)
		}
	})
	return err
}

func (al *AuditLogger) flushLoop() {
	for {
		select {
		case <-al.flushTicker.C:
			_ = al.Flush()
		case <-al.stopCh:
			return
		}
	}
}

// flushBufferUnsafe writes the buffer to the backend (caller must hold bufferMu).
func (al *AuditLogger) flushBufferUnsafe() error {
	if len(al.buffer) == 0 {
		return nil
	}
	if err := al.backend.Write(al.buffer); err != nil {
		return fmt.Errorf("failed to write audit events to backend: %w", err)
	}
	al.buffer = al.buffer[:0]
	return nil
}

func (al *AuditLogger) generateChecksum(event AuditEvent) string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s:%s",
		event.Timestamp.Format(time.RFC3339Nano),
		event.Event, event.Flag, event.Source, event.OldValue, event.NewValue)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

func getProcessName() string {
	if len(os.Args) > 0 && os.Args[0] != "" {
		return filepath.Base(os.Args[0])
	}
	return "janus"
}
