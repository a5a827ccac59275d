// Command handlers for the janus CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/janus"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// ErrCodeUsage marks command-line misuse of the tool itself.
const ErrCodeUsage = "JANUS_CLI_USAGE"

// handleFlagfileExpand prints every token the named flagfiles expand to,
// one per line, nested flagfiles included.
func (m *Manager) handleFlagfileExpand(ctx *orpheus.Context) error {
	paths := positionalArgs(ctx)
	if len(paths) == 0 {
		return errors.New(ErrCodeUsage, "flagfile expand needs at least one file")
	}
	m.audit("cli_flagfile_expand", strings.Join(paths, ","))

	tokens, err := expandFlagfiles(paths, ctx.GetFlagInt("depth"))
	if err != nil {
		return err
	}
	for _, token := range tokens {
		fmt.Fprintln(m.out, token)
	}
	return nil
}

// handleFlagfileCheck expands the flagfiles and reports their shape:
// token count, distinct flags, repeated flags and stray positionals.
func (m *Manager) handleFlagfileCheck(ctx *orpheus.Context) error {
	paths := positionalArgs(ctx)
	if len(paths) == 0 {
		return errors.New(ErrCodeUsage, "flagfile check needs at least one file")
	}
	m.audit("cli_flagfile_check", strings.Join(paths, ","))

	tokens, err := expandFlagfiles(paths, ctx.GetFlagInt("depth"))
	if err != nil {
		return err
	}
	summary := summarizeTokens(tokens)

	fmt.Fprintf(m.out, "%d tokens, %d distinct flags\n", len(tokens), len(summary.values))
	for _, name := range summary.repeated() {
		fmt.Fprintf(m.out, "repeated: --%s (%d times)\n", name, len(summary.values[name]))
	}
	for _, p := range summary.positional {
		fmt.Fprintf(m.out, "positional: %s\n", p)
	}

	if len(summary.positional) > 0 {
		return errors.New(janus.ErrCodeIllegalFlagValue,
			fmt.Sprintf("flagfiles contain %d non-flag tokens", len(summary.positional)))
	}
	if ctx.GetFlagBool("strict") && len(summary.repeated()) > 0 {
		return errors.New(janus.ErrCodeIllegalFlagValue,
			fmt.Sprintf("flagfiles repeat %d flags", len(summary.repeated())))
	}
	fmt.Fprintln(m.out, "OK")
	return nil
}

// handleFlagfileDiff prints the flags whose final value differs between
// two flagfiles, "-" for the old file and "+" for the new one.
func (m *Manager) handleFlagfileDiff(ctx *orpheus.Context) error {
	oldPath, newPath := ctx.GetArg(0), ctx.GetArg(1)
	if oldPath == "" || newPath == "" {
		return errors.New(ErrCodeUsage, "flagfile diff needs two files")
	}
	m.audit("cli_flagfile_diff", oldPath+","+newPath)

	oldTokens, err := expandFlagfiles([]string{oldPath}, janus.DefaultMaxFlagfileDepth)
	if err != nil {
		return err
	}
	newTokens, err := expandFlagfiles([]string{newPath}, janus.DefaultMaxFlagfileDepth)
	if err != nil {
		return err
	}
	for _, line := range diffSummaries(summarizeTokens(oldTokens), summarizeTokens(newTokens)) {
		fmt.Fprintln(m.out, line)
	}
	return nil
}

// handleAuditStats prints the statistics of an audit store.
func (m *Manager) handleAuditStats(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	if path == "" {
		path = janus.DefaultAuditPath()
	}

	stats, err := janus.OpenAuditStats(path)
	if err != nil {
		return errors.Wrap(err, janus.ErrCodeAuditError, "failed to read audit store")
	}

	fmt.Fprintf(m.out, "Audit store: %s (%s, schema v%d)\n", path, stats.BackendName, stats.SchemaVersion)
	fmt.Fprintf(m.out, "Events: %d over %d flags\n", stats.TotalEvents, stats.DistinctFlags)
	if stats.OldestEvent != nil && stats.NewestEvent != nil {
		fmt.Fprintf(m.out, "Range: %s .. %s\n",
			stats.OldestEvent.Format("2006-01-02 15:04:05"), stats.NewestEvent.Format("2006-01-02 15:04:05"))
	}
	if stats.DatabaseSize > 0 {
		fmt.Fprintf(m.out, "Size: %s\n", formatBytes(stats.DatabaseSize))
	}
	printCounts(m.out, "By level", stats.EventsByLevel)
	printCounts(m.out, "By event", stats.EventsByEvent)
	printCounts(m.out, "By source", stats.EventsBySource)
	return nil
}

// handleAuditTail prints the newest events of an audit store.
func (m *Manager) handleAuditTail(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	if path == "" {
		path = janus.DefaultAuditPath()
	}
	limit := ctx.GetFlagInt("limit")
	if limit <= 0 {
		return errors.New(ErrCodeUsage, fmt.Sprintf("invalid limit %d", limit))
	}
	only := ctx.GetFlagString("flag")
	var cutoff time.Time
	if since := ctx.GetFlagString("since"); since != "" {
		d, err := parseExtendedDuration(since)
		if err != nil {
			return errors.Wrap(err, ErrCodeUsage, "invalid --since")
		}
		cutoff = time.Now().Add(-d)
	}

	fetch := limit
	if only != "" || !cutoff.IsZero() {
		// filtering happens after the read, so read deeper
		fetch = limit * 10
	}
	events, err := janus.OpenAuditRecent(path, fetch)
	if err != nil {
		return errors.Wrap(err, janus.ErrCodeAuditError, "failed to read audit store")
	}

	shown := 0
	for _, event := range events {
		if only != "" && event.Flag != only {
			continue
		}
		if !cutoff.IsZero() && event.Timestamp.Before(cutoff) {
			break
		}
		fmt.Fprintln(m.out, formatEvent(event))
		shown++
		if shown == limit {
			break
		}
	}
	if shown == 0 {
		fmt.Fprintln(m.out, "no events")
	}
	return nil
}

// handleInfo shows the configuration LoadConfigFromEnv would produce.
func (m *Manager) handleInfo(ctx *orpheus.Context) error {
	verbose := ctx.GetFlagBool("verbose")

	config, err := janus.LoadConfigFromEnv()
	if err != nil {
		return errors.Wrap(err, janus.ErrCodeInvalidConfig, "failed to load configuration from environment")
	}
	if config.Audit != nil {
		defer func() { _ = config.Audit.Close() }()
	}

	fmt.Fprintf(m.out, "janus %s (%s)\n", Version, runtime.Version())
	fmt.Fprintf(m.out, "Program name: %s\n", config.Name)
	fmt.Fprintf(m.out, "Max flagfile depth: %d\n", config.MaxFlagfileDepth)
	if config.HelpWidth > 0 {
		fmt.Fprintf(m.out, "Help width: %d\n", config.HelpWidth)
	} else {
		fmt.Fprintf(m.out, "Help width: terminal\n")
	}
	fmt.Fprintf(m.out, "Allow undefined flags: %v\n", config.AllowUndefined)
	fmt.Fprintf(m.out, "Audit: %v\n", config.Audit != nil)
	fmt.Fprintf(m.out, "Audit store: %s\n", janus.DefaultAuditPath())

	if verbose {
		fmt.Fprintf(m.out, "\n%s\n", config.ValidateDetailed().String())
	}
	return nil
}

// handleCompletion generates shell completion scripts.
func (m *Manager) handleCompletion(ctx *orpheus.Context) error {
	shell := ctx.GetArg(0)
	commands := "flagfile audit info completion"

	switch shell {
	case "bash":
		fmt.Fprintf(m.out, "# Bash completion for janus\n")
		fmt.Fprintf(m.out, "# Add to ~/.bashrc: source <(janus completion bash)\n")
		fmt.Fprintf(m.out, "_janus_completion() {\n")
		fmt.Fprintf(m.out, "  COMPREPLY=($(compgen -W '%s' -- \"${COMP_WORDS[COMP_CWORD]}\"))\n", commands)
		fmt.Fprintf(m.out, "}\n")
		fmt.Fprintf(m.out, "complete -F _janus_completion janus\n")
	case "zsh":
		fmt.Fprintf(m.out, "#compdef janus\n")
		fmt.Fprintf(m.out, "_janus() {\n")
		fmt.Fprintf(m.out, "  _arguments '1: :(%s)'\n", commands)
		fmt.Fprintf(m.out, "}\n")
	case "fish":
		fmt.Fprintf(m.out, "complete -c janus -f -a '%s'\n", commands)
	default:
		return errors.New(ErrCodeUsage, fmt.Sprintf("unsupported shell: %s", shell))
	}
	return nil
}

func (m *Manager) audit(event, target string) {
	if m.auditLogger == nil {
		return
	}
	m.auditLogger.Log(janus.AuditInfo, event, "cli", "", target, "", "", nil)
}
