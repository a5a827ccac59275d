// Package cli provides the janus command-line tool.
//
// The tool works on the artefacts a janus-based program leaves behind:
// flagfiles (expand, check, diff) and the flag audit trail (stats, tail).
// It is built on the Orpheus framework with git-style subcommands.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"io"
	"os"

	"github.com/agilira/janus"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// Version of the janus tool.
const Version = "1.0.0"

// Manager wires the janus commands into an Orpheus application.
type Manager struct {
	app         *orpheus.App
	auditLogger *janus.AuditLogger // optional
	out         io.Writer
}

// NewManager creates the CLI with every command registered.
func NewManager() *Manager {
	app := orpheus.New("janus").
		SetDescription("Inspect flagfiles and flag audit trails").
		SetVersion(Version)

	manager := &Manager{
		app: app,
		out: os.Stdout,
	}

	manager.setupFlagfileCommands()
	manager.setupAuditCommands()
	manager.setupUtilityCommands()

	return manager
}

// WithAudit records every CLI operation in auditLogger.
func (m *Manager) WithAudit(auditLogger *janus.AuditLogger) *Manager {
	m.auditLogger = auditLogger
	return m
}

// WithOutput redirects command output, stdout by default.
func (m *Manager) WithOutput(w io.Writer) *Manager {
	m.out = w
	return m
}

// Run executes the CLI with args (without the program name).
func (m *Manager) Run(args []string) error {
	return m.app.Run(args)
}

// setupFlagfileCommands configures the 'flagfile' command group.
func (m *Manager) setupFlagfileCommands() {
	flagfileCmd := orpheus.NewCommand("flagfile", "Flagfile operations")

	// flagfile expand <file>... [--depth=16]
	expandCmd := flagfileCmd.Subcommand("expand", "Print the tokens a flagfile expands to", m.handleFlagfileExpand)
	expandCmd.AddIntFlag("depth", "d", janus.DefaultMaxFlagfileDepth, "Maximum flagfile nesting")

	// flagfile check <file>... [--depth=16]
	checkCmd := flagfileCmd.Subcommand("check", "Check flagfile syntax and report repeated flags", m.handleFlagfileCheck)
	checkCmd.AddIntFlag("depth", "d", janus.DefaultMaxFlagfileDepth, "Maximum flagfile nesting")
	checkCmd.AddBoolFlag("strict", "s", false, "Treat repeated flags as errors")

	// flagfile diff <old> <new>
	flagfileCmd.Subcommand("diff", "Compare the flags set by two flagfiles", m.handleFlagfileDiff)

	m.app.AddCommand(flagfileCmd)
}

// setupAuditCommands configures the 'audit' command group.
func (m *Manager) setupAuditCommands() {
	auditCmd := orpheus.NewCommand("audit", "Flag audit trail")

	// audit stats [path]
	auditCmd.Subcommand("stats", "Summarize an audit store", m.handleAuditStats)

	// audit tail [path] [--limit=20]
	tailCmd := auditCmd.Subcommand("tail", "Show the most recent flag events", m.handleAuditTail)
	tailCmd.AddIntFlag("limit", "l", 20, "Maximum events")
	tailCmd.AddFlag("flag", "f", "", "Only events of this flag")
	tailCmd.AddFlag("since", "s", "", "Only events newer than this (e.g., 24h, 7d, 2w)")

	m.app.AddCommand(auditCmd)
}

// setupUtilityCommands configures info and completion.
func (m *Manager) setupUtilityCommands() {
	infoCmd := orpheus.NewCommand("info", "Show the janus environment configuration")
	infoCmd.SetHandler(m.handleInfo)
	infoCmd.AddBoolFlag("verbose", "v", false, "Also validate the configuration")
	m.app.AddCommand(infoCmd)

	completionCmd := orpheus.NewCommand("completion", "Generate shell completion scripts")
	completionCmd.SetHandler(m.handleCompletion)
	m.app.AddCommand(completionCmd)
}
