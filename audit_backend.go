// audit_backend.go: Storage backends for the flag audit trail
//
// Two backends share one interface: SQLite (default, queryable, WAL mode)
// and JSONL (one event per line, selected by a .jsonl output file or used
// as fallback when SQLite cannot be opened).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// auditBackend abstracts where audit events are persisted.
type auditBackend interface {
	// Write persists a batch of events.
	Write(events []AuditEvent) error

	// Flush commits pending writes to storage.
	Flush() error

	// Close releases all resources. The backend must not be used afterwards.
	Close() error

	// Maintenance runs retention cleanup and storage optimization.
	Maintenance() error

	// GetStats returns aggregate counts over the stored events.
	GetStats() (*AuditDatabaseStats, error)

	// Recent returns up to limit events, newest first.
	Recent(limit int) ([]AuditEvent, error)
}

// AuditDatabaseStats summarizes an audit store.
type AuditDatabaseStats struct {
	TotalEvents    int64            `json:"total_events"`
	EventsByLevel  map[string]int64 `json:"events_by_level"`
	EventsByEvent  map[string]int64 `json:"events_by_event"`
	EventsBySource map[string]int64 `json:"events_by_source"`
	DistinctFlags  int64            `json:"distinct_flags"`
	OldestEvent    *time.Time       `json:"oldest_event"`
	NewestEvent    *time.Time       `json:"newest_event"`
	DatabaseSize   int64            `json:"database_size_bytes"`
	SchemaVersion  int              `json:"schema_version"`
	BackendName    string           `json:"backend"`
}

func newAuditDatabaseStats(backend string) *AuditDatabaseStats {
	return &AuditDatabaseStats{
		EventsByLevel:  make(map[string]int64),
		EventsByEvent:  make(map[string]int64),
		EventsBySource: make(map[string]int64),
		BackendName:    backend,
	}
}

func createAuditBackend(config AuditConfig) (auditBackend, error) {
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".jsonl" {
		return newJSONLBackend(config)
	}

	backend, err := newSQLiteBackend(config)
	if err == nil {
		return backend, nil
	}

	jsonlBackend, jsonlErr := newJSONLBackend(config)
	if jsonlErr != nil {
		return nil, fmt.Errorf("all audit backends failed - SQLite: %w, JSONL: %v", err, jsonlErr)
	}
	return jsonlBackend, nil
}

// OpenAuditStats opens an existing audit store read-only for inspection
// and returns its statistics.
func OpenAuditStats(path string) (*AuditDatabaseStats, error) {
	backend, err := openAuditStore(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = backend.Close() }()
	return backend.GetStats()
}

// OpenAuditRecent returns up to limit events of an existing audit store,
// newest first.
func OpenAuditRecent(path string, limit int) ([]AuditEvent, error) {
	backend, err := openAuditStore(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = backend.Close() }()
	return backend.Recent(limit)
}

func openAuditStore(path string) (auditBackend, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("audit store %s: %w", path, err)
	}
	config := AuditConfig{OutputFile: path}
	if filepath.Ext(path) == ".jsonl" {
		return newJSONLBackend(config)
	}
	return newSQLiteBackend(config)
}

// DefaultAuditPath is the SQLite database audit loggers share when their
// output file is not a .db file.
func DefaultAuditPath() string { return getUnifiedAuditPath() }

// getUnifiedAuditPath is the database used when no .db output file is set.
func getUnifiedAuditPath() string {
	return filepath.Join(os.TempDir(), "janus", "flag-audit.db")
}

type sqliteAuditBackend struct {
	db         *sql.DB
	dbPath     string
	insertStmt *sql.Stmt
	mu         sync.RWMutex
	closed     bool
}

func newSQLiteBackend(config AuditConfig) (*sqliteAuditBackend, error) {
	dbPath := getUnifiedAuditPath()
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".db" {
		dbPath = config.OutputFile
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create audit database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache_size=1000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	backend := &sqliteAuditBackend{db: db, dbPath: dbPath}
	if err := backend.ensureSchemaVersion(); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to initialize audit database schema: %w", err)
	}
	if err := backend.prepareStatements(); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to prepare audit database statements: %w", err)
	}
	return backend, nil
}

const auditSchemaVersion = 2

func (s *sqliteAuditBackend) ensureSchemaVersion() error {
	if _, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_info (
		version INTEGER PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("failed to create schema_info table: %w", err)
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to check schema version: %w", err)
	}
	if version >= auditSchemaVersion {
		return nil
	}

	if err := s.migrateSchema(version, auditSchemaVersion); err != nil {
		return fmt.Errorf("schema migration from v%d to v%d failed: %w", version, auditSchemaVersion, err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO schema_info (version, updated_at) VALUES (?, CURRENT_TIMESTAMP)`, auditSchemaVersion)
	if err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return nil
}

func (s *sqliteAuditBackend) migrateSchema(oldVersion, newVersion int) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for version := oldVersion; version < newVersion; version++ {
		var stmts []string
		switch version {
		case 0:
			stmts = []string{
				`CREATE TABLE IF NOT EXISTS flag_events (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					timestamp TEXT NOT NULL,
					level TEXT NOT NULL,
					event TEXT NOT NULL,
					module TEXT NOT NULL,
					flag TEXT NOT NULL,
					source TEXT,
					old_value TEXT,
					new_value TEXT,
					process_id INTEGER NOT NULL,
					process_name TEXT NOT NULL,
					context TEXT,
					checksum TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				"CREATE INDEX IF NOT EXISTS idx_flag_events_timestamp ON flag_events(timestamp)",
				"CREATE INDEX IF NOT EXISTS idx_flag_events_flag ON flag_events(flag)",
			}
		case 1:
			stmts = []string{
				"CREATE INDEX IF NOT EXISTS idx_flag_events_event_flag ON flag_events(event, flag, timestamp)",
				"CREATE INDEX IF NOT EXISTS idx_flag_events_source ON flag_events(source)",
			}
		default:
			return fmt.Errorf("unknown migration path from version %d", version)
		}
		for _, stmt := range stmts {
			if _, err = tx.Exec(stmt); err != nil {
				return fmt.Errorf("migration to v%d failed: %w", version+1, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}
	return nil
}

func (s *sqliteAuditBackend) prepareStatements() error {
	stmt, err := s.db.Prepare(`
	INSERT INTO flag_events (
		timestamp, level, event, module, flag, source,
		old_value, new_value, process_id, process_name, context, checksum
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	s.insertStmt = stmt
	return nil
}

func (s *sqliteAuditBackend) Write(events []AuditEvent) (err error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return fmt.Errorf("cannot write to closed SQLite audit backend")
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txStmt := tx.Stmt(s.insertStmt)
	defer func() { _ = txStmt.Close() }()

	for _, event := range events {
		contextJSON := ""
		if event.Context != nil {
			data, jerr := json.Marshal(event.Context)
			if jerr != nil {
				return fmt.Errorf("failed to serialize context: %w", jerr)
			}
			contextJSON = string(data)
		}
		_, err = txStmt.Exec(
			event.Timestamp.Format(time.RFC3339Nano),
			event.Level.String(),
			event.Event,
			event.Module,
			event.Flag,
			event.Source,
			event.OldValue,
			event.NewValue,
			event.ProcessID,
			event.ProcessName,
			contextJSON,
			event.Checksum,
		)
		if err != nil {
			return fmt.Errorf("failed to insert audit event: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit transaction: %w", err)
	}
	return nil
}

func (s *sqliteAuditBackend) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to flush SQLite audit backend: %w", err)
	}
	return nil
}

func (s *sqliteAuditBackend) Maintenance() error {
	const retentionDays = 90
	if _, err := s.db.Exec(`DELETE FROM flag_events WHERE created_at < datetime('now', '-' || ? || ' days')`, retentionDays); err != nil {
		return fmt.Errorf("failed to cleanup old audit events: %w", err)
	}
	for _, task := range []string{"PRAGMA optimize", "PRAGMA wal_checkpoint(FULL)"} {
		_, _ = s.db.Exec(task)
	}
	return nil
}

func (s *sqliteAuditBackend) GetStats() (*AuditDatabaseStats, error) {
	stats := newAuditDatabaseStats("sqlite")

	if err := s.db.QueryRow("SELECT COUNT(*), COUNT(DISTINCT flag) FROM flag_events").Scan(&stats.TotalEvents, &stats.DistinctFlags); err != nil {
		return nil, fmt.Errorf("failed to count audit events: %w", err)
	}
	groups := []struct {
		column string
		into   map[string]int64
	}{
		{"level", stats.EventsByLevel},
		{"event", stats.EventsByEvent},
		{"source", stats.EventsBySource},
	}
	for _, g := range groups {
		if err := s.countBy(g.column, g.into); err != nil {
			return nil, err
		}
	}

	var oldest, newest sql.NullString
	if err := s.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM flag_events").Scan(&oldest, &newest); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get event time range: %w", err)
	}
	if oldest.Valid {
		if t, err := time.Parse(time.RFC3339Nano, oldest.String); err == nil {
			stats.OldestEvent = &t
		}
	}
	if newest.Valid {
		if t, err := time.Parse(time.RFC3339Nano, newest.String); err == nil {
			stats.NewestEvent = &t
		}
	}

	if err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").Scan(&stats.SchemaVersion); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}
	if info, err := os.Stat(s.dbPath); err == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
}

// countBy fills into with COUNT(*) grouped by column. column is one of a
// fixed set of identifiers, never user input.
func (s *sqliteAuditBackend) countBy(column string, into map[string]int64) error {
	rows, err := s.db.Query("SELECT COALESCE(" + column + ", ''), COUNT(*) FROM flag_events GROUP BY " + column)
	if err != nil {
		return fmt.Errorf("failed to group audit events by %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan %s stats: %w", column, err)
		}
		into[key] = count
	}
	return rows.Err()
}

func (s *sqliteAuditBackend) Recent(limit int) ([]AuditEvent, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(`
		SELECT timestamp, level, event, module, flag, COALESCE(source, ''),
			COALESCE(old_value, ''), COALESCE(new_value, ''), process_id, process_name, COALESCE(checksum, '')
		FROM flag_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []AuditEvent
	for rows.Next() {
		var ev AuditEvent
		var ts, level string
		if err := rows.Scan(&ts, &level, &ev.Event, &ev.Module, &ev.Flag, &ev.Source,
			&ev.OldValue, &ev.NewValue, &ev.ProcessID, &ev.ProcessName, &ev.Checksum); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		ev.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		ev.Level, _ = ParseAuditLevel(level)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *sqliteAuditBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		errs = append(errs, err)
	}
	if s.insertStmt != nil {
		if err := s.insertStmt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close insert statement: %w", err))
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing SQLite audit backend: %v", errs)
	}
	return nil
}

type jsonlAuditBackend struct {
	file *os.File
	path string
	mu   sync.Mutex

	closed bool
}

func newJSONLBackend(config AuditConfig) (*jsonlAuditBackend, error) {
	if config.OutputFile == "" {
		return nil, fmt.Errorf("JSONL backend requires OutputFile to be specified")
	}
	if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0750); err != nil {
		return nil, fmt.Errorf("failed to create JSONL audit log directory: %w", err)
	}
	file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL audit log file: %w", err)
	}
	return &jsonlAuditBackend{file: file, path: config.OutputFile}, nil
}

func (j *jsonlAuditBackend) Write(events []AuditEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return fmt.Errorf("cannot write to closed JSONL audit backend")
	}
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize audit event: %w", err)
		}
		data = append(data, '\n')
		if _, err := j.file.Write(data); err != nil {
			return fmt.Errorf("failed to write audit event to JSONL: %w", err)
		}
	}
	return nil
}

func (j *jsonlAuditBackend) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync JSONL audit file: %w", err)
	}
	return nil
}

func (j *jsonlAuditBackend) Maintenance() error { return nil }

// readAll decodes every event of the file, skipping malformed lines.
func (j *jsonlAuditBackend) readAll() ([]AuditEvent, error) {
	f, err := os.Open(j.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL audit file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []AuditEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var ev AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, scanner.Err()
}

func (j *jsonlAuditBackend) GetStats() (*AuditDatabaseStats, error) {
	stats := newAuditDatabaseStats("jsonl")
	stats.SchemaVersion = 1

	events, err := j.readAll()
	if err != nil {
		return nil, err
	}
	flags := make(map[string]struct{})
	for i := range events {
		ev := &events[i]
		stats.TotalEvents++
		stats.EventsByLevel[ev.Level.String()]++
		stats.EventsByEvent[ev.Event]++
		stats.EventsBySource[ev.Source]++
		flags[ev.Flag] = struct{}{}
		ts := ev.Timestamp
		if stats.OldestEvent == nil || ts.Before(*stats.OldestEvent) {
			stats.OldestEvent = &ts
		}
		if stats.NewestEvent == nil || ts.After(*stats.NewestEvent) {
			stats.NewestEvent = &ts
		}
	}
	stats.DistinctFlags = int64(len(flags))
	if info, err := os.Stat(j.path); err == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
}

func (j *jsonlAuditBackend) Recent(limit int) ([]AuditEvent, error) {
	if limit <= 0 {
		return nil, nil
	}
	events, err := j.readAll()
	if err != nil {
		return nil, err
	}
	out := make([]AuditEvent, 0, limit)
	for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, events[i])
	}
	return out, nil
}

func (j *jsonlAuditBackend) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.file.Close()
}
