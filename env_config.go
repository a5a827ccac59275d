// env_config.go: Environment variable support for registry configuration
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/go-errors"
)

// EnvConfig represents configuration loaded from environment variables
type EnvConfig struct {
	HelpWidth        int  `env:"JANUS_HELP_WIDTH"`
	MaxFlagfileDepth int  `env:"JANUS_MAX_FLAGFILE_DEPTH"`
	AllowUndefined   bool `env:"JANUS_ALLOW_UNDEFINED"`

	AuditEnabled       bool          `env:"JANUS_AUDIT_ENABLED"`
	AuditOutputFile    string        `env:"JANUS_AUDIT_OUTPUT_FILE"`
	AuditMinLevel      string        `env:"JANUS_AUDIT_MIN_LEVEL"`
	AuditFlushInterval time.Duration `env:"JANUS_AUDIT_FLUSH_INTERVAL"`
}

// LoadConfigFromEnv builds a Config from JANUS_* environment variables.
// When JANUS_AUDIT_ENABLED is true an AuditLogger is opened and stored in
// Config.Audit; the caller owns it and must Close it.
func LoadConfigFromEnv() (*Config, error) {
	envConfig := &EnvConfig{}
	if err := loadEnvVars(envConfig); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to load environment configuration")
	}

	config := &Config{
		HelpWidth:        envConfig.HelpWidth,
		MaxFlagfileDepth: envConfig.MaxFlagfileDepth,
		AllowUndefined:   envConfig.AllowUndefined,
	}

	if envConfig.AuditEnabled {
		auditConfig, err := envConfig.auditConfig()
		if err != nil {
			return nil, err
		}
		if result := auditConfig.ValidateDetailed(); !result.Valid {
			return nil, errors.New(ErrCodeInvalidConfig, "invalid audit configuration: "+strings.Join(result.Errors, "; "))
		}
		logger, err := NewAuditLogger(auditConfig)
		if err != nil {
			return nil, err
		}
		config.Audit = logger
	}

	return config.WithDefaults(), nil
}

func loadEnvVars(envConfig *EnvConfig) error {
	if s := os.Getenv("JANUS_HELP_WIDTH"); s != "" {
		width, err := strconv.Atoi(s)
		if err != nil || width < 0 {
			return errors.New(ErrCodeInvalidConfig, "invalid JANUS_HELP_WIDTH value")
		}
		envConfig.HelpWidth = width
	}

	if s := os.Getenv("JANUS_MAX_FLAGFILE_DEPTH"); s != "" {
		depth, err := strconv.Atoi(s)
		if err != nil || depth <= 0 {
			return errors.New(ErrCodeInvalidConfig, "invalid JANUS_MAX_FLAGFILE_DEPTH value")
		}
		envConfig.MaxFlagfileDepth = depth
	}

	if s := os.Getenv("JANUS_ALLOW_UNDEFINED"); s != "" {
		envConfig.AllowUndefined = parseBool(s)
	}

	if s := os.Getenv("JANUS_AUDIT_ENABLED"); s != "" {
		envConfig.AuditEnabled = parseBool(s)
	}
	envConfig.AuditOutputFile = os.Getenv("JANUS_AUDIT_OUTPUT_FILE")
	envConfig.AuditMinLevel = os.Getenv("JANUS_AUDIT_MIN_LEVEL")

	if s := os.Getenv("JANUS_AUDIT_FLUSH_INTERVAL"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return errors.New(ErrCodeInvalidConfig, "invalid JANUS_AUDIT_FLUSH_INTERVAL format")
		}
		envConfig.AuditFlushInterval = d
	}
	return nil
}

func (e *EnvConfig) auditConfig() (AuditConfig, error) {
	config := DefaultAuditConfig()
	if e.AuditOutputFile != "" {
		config.OutputFile = e.AuditOutputFile
	}
	if e.AuditMinLevel != "" {
		level, ok := ParseAuditLevel(e.AuditMinLevel)
		if !ok {
			return config, errors.New(ErrCodeInvalidConfig, "invalid JANUS_AUDIT_MIN_LEVEL value")
		}
		config.MinLevel = level
	}
	if e.AuditFlushInterval > 0 {
		config.FlushInterval = e.AuditFlushInterval
	}
	return config, nil
}

// parseBool accepts the usual spellings of a boolean environment value.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on", "enabled":
		return true
	}
	return false
}
