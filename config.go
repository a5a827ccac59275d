// config.go: Registry configuration for Janus
//
// Copyright (c) 2025 AGILira
// Series: AGILira System Libraries
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Config controls a FlagValues registry. The zero value is usable; New
// applies WithDefaults.
type Config struct {
	// Name is the program name shown in help output.
	// Default: base name of os.Args[0]
	Name string

	// Usage is the program description shown above the flag list.
	Usage string

	// Logger receives registry warnings (flagfile cycles, required flags
	// with defaults, skipped undefok flags).
	// Default: a logger that discards everything
	Logger *slog.Logger

	// Audit records every flag mutation when non-nil.
	Audit *AuditLogger

	// AllowUndefined drops unknown flags instead of failing Parse.
	AllowUndefined bool

	// MaxFlagfileDepth bounds --flagfile nesting.
	// Default: 16
	MaxFlagfileDepth int

	// HelpWidth is the column limit of help output. Zero detects the
	// terminal width and falls back to 80.
	HelpWidth int
}

// DefaultMaxFlagfileDepth bounds flagfile nesting when Config leaves it unset.
const DefaultMaxFlagfileDepth = 16

// WithDefaults applies sensible defaults to the configuration
func (c *Config) WithDefaults() *Config {
	config := *c

	if config.Name == "" {
		config.Name = programName()
	}

	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if config.MaxFlagfileDepth <= 0 {
		config.MaxFlagfileDepth = DefaultMaxFlagfileDepth
	}

	if config.HelpWidth < 0 {
		config.HelpWidth = 0
	}

	return &config
}

func programName() string {
	if len(os.Args) > 0 && os.Args[0] != "" {
		return filepath.Base(os.Args[0])
	}
	return "janus"
}
