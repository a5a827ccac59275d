// config_validation.go - validation of registry and audit configuration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agilira/go-errors"
)

// Validation errors
var (
	ErrInvalidFlagfileDepth = errors.New(ErrCodeInvalidConfig, "max flagfile depth must not be negative")
	ErrInvalidHelpWidth     = errors.New(ErrCodeInvalidConfig, "help width must not be negative")
	ErrInvalidBufferSize    = errors.New(ErrCodeInvalidConfig, "audit buffer size must not be negative")
	ErrInvalidFlushInterval = errors.New(ErrCodeInvalidConfig, "audit flush interval must not be negative")
	ErrInvalidOutputFile    = errors.New(ErrCodeInvalidConfig, "audit output file path is invalid")
)

// ValidationResult contains the result of configuration validation with
// errors and warnings.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// String returns a human-readable representation of validation results
func (vr ValidationResult) String() string {
	if vr.Valid {
		if len(vr.Warnings) == 0 {
			return "Configuration is valid"
		}
		return fmt.Sprintf("Configuration is valid with %d warning(s)", len(vr.Warnings))
	}
	return fmt.Sprintf("Configuration is invalid: %d error(s), %d warning(s)",
		len(vr.Errors), len(vr.Warnings))
}

// Validate returns the first validation error, or nil.
func (c *Config) Validate() error {
	result := c.ValidateDetailed()
	if result.Valid {
		return nil
	}
	first := result.Errors[0]
	for _, known := range []error{ErrInvalidFlagfileDepth, ErrInvalidHelpWidth} {
		if first == known.Error() {
			return known
		}
	}
	return errors.New(ErrCodeInvalidConfig, first)
}

// ValidateDetailed reports every error and warning of the configuration.
func (c *Config) ValidateDetailed() ValidationResult {
	result := ValidationResult{
		Valid:    true,
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}

	if c.MaxFlagfileDepth < 0 {
		result.Errors = append(result.Errors, ErrInvalidFlagfileDepth.Error())
	} else if c.MaxFlagfileDepth > 256 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("max flagfile depth %d is unusually deep", c.MaxFlagfileDepth))
	}

	if c.HelpWidth < 0 {
		result.Errors = append(result.Errors, ErrInvalidHelpWidth.Error())
	} else if c.HelpWidth > 0 && c.HelpWidth < 40 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("help width %d is narrow, help text will wrap heavily", c.HelpWidth))
	}

	if strings.ContainsAny(c.Name, " \t\n") {
		result.Warnings = append(result.Warnings, "program name contains whitespace")
	}

	if c.AllowUndefined {
		result.Warnings = append(result.Warnings, "unknown flags will be dropped silently")
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidateDetailed checks an audit configuration before a logger is opened.
func (ac AuditConfig) ValidateDetailed() ValidationResult {
	result := ValidationResult{
		Valid:    true,
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}
	if !ac.Enabled {
		result.Warnings = append(result.Warnings, "audit is disabled, events will be discarded")
		return result
	}

	if ac.BufferSize < 0 {
		result.Errors = append(result.Errors, ErrInvalidBufferSize.Error())
	} else if ac.BufferSize > 10000 {
		result.Warnings = append(result.Warnings, "Large audit buffer size may consume significant memory")
	}

	if ac.FlushInterval < 0 {
		result.Errors = append(result.Errors, ErrInvalidFlushInterval.Error())
	} else if ac.FlushInterval == 0 {
		result.Warnings = append(result.Warnings, "Audit flush interval is 0, events are written when the buffer fills or on Close")
	}

	if ac.OutputFile != "" {
		if err := validateOutputFile(ac.OutputFile); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func validateOutputFile(outputFile string) error {
	cleanPath := filepath.Clean(outputFile)
	if cleanPath == "." || cleanPath == "/" {
		return errors.New(ErrCodeInvalidConfig,
			fmt.Sprintf("path '%s' is not a valid file path", outputFile))
	}

	dir := filepath.Dir(cleanPath)
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New(ErrCodeInvalidConfig,
				fmt.Sprintf("directory '%s' does not exist", dir))
		}
		return errors.Wrap(err, ErrCodeInvalidConfig,
			fmt.Sprintf("cannot access directory '%s'", dir))
	}
	if !info.IsDir() {
		return errors.New(ErrCodeInvalidConfig,
			fmt.Sprintf("'%s' is not a directory", dir))
	}
	return nil
}
