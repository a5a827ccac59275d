// Utility functions for the janus CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/janus"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// maxPositional bounds how many positional arguments a command reads.
const maxPositional = 256

// positionalArgs collects the non-empty positional arguments of ctx.
func positionalArgs(ctx *orpheus.Context) []string {
	var args []string
	for i := 0; i < maxPositional; i++ {
		arg := ctx.GetArg(i)
		if arg == "" {
			break
		}
		args = append(args, arg)
	}
	return args
}

// expandFlagfiles expands paths with an empty janus registry, so every
// flag is kept as a token.
func expandFlagfiles(paths []string, depth int) ([]string, error) {
	fv := janus.New(janus.Config{Name: "janus", MaxFlagfileDepth: depth})
	args := make([]string, 0, len(paths))
	for _, p := range paths {
		args = append(args, "--flagfile="+p)
	}
	return fv.ReadFlagsFromFiles(args)
}

// tokenSummary groups expanded tokens by flag name.
type tokenSummary struct {
	values     map[string][]string
	positional []string
}

func summarizeTokens(tokens []string) tokenSummary {
	s := tokenSummary{values: make(map[string][]string)}
	for i, token := range tokens {
		if token == "--" {
			s.positional = append(s.positional, tokens[i+1:]...)
			break
		}
		if !strings.HasPrefix(token, "-") || token == "-" {
			s.positional = append(s.positional, token)
			continue
		}
		body := strings.TrimPrefix(strings.TrimPrefix(token, "-"), "-")
		name, value, hasValue := strings.Cut(body, "=")
		if !hasValue {
			value = "true"
		}
		s.values[name] = append(s.values[name], value)
	}
	return s
}

// repeated lists the flags given more than once, sorted.
func (s tokenSummary) repeated() []string {
	var names []string
	for name, values := range s.values {
		if len(values) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// final renders every value given for name, in order.
func (s tokenSummary) final(name string) (string, bool) {
	values, ok := s.values[name]
	if !ok {
		return "", false
	}
	return strings.Join(values, ","), true
}

// diffSummaries compares two summaries flag by flag, names sorted.
func diffSummaries(oldSum, newSum tokenSummary) []string {
	names := make(map[string]bool)
	for name := range oldSum.values {
		names[name] = true
	}
	for name := range newSum.values {
		names[name] = true
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	var lines []string
	for _, name := range sorted {
		before, inOld := oldSum.final(name)
		after, inNew := newSum.final(name)
		switch {
		case inOld && !inNew:
			lines = append(lines, "- --"+name+"="+before)
		case !inOld && inNew:
			lines = append(lines, "+ --"+name+"="+after)
		case before != after:
			lines = append(lines, "- --"+name+"="+before, "+ --"+name+"="+after)
		}
	}
	return lines
}

func printCounts(w io.Writer, title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-24s %d\n", k, counts[k])
	}
}

func formatEvent(e janus.AuditEvent) string {
	line := fmt.Sprintf("%s %-8s %-20s --%s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Level, e.Event, e.Flag)
	if e.OldValue != "" || e.NewValue != "" {
		line += fmt.Sprintf(" %q -> %q", e.OldValue, e.NewValue)
	}
	if e.Source != "" {
		line += " (" + e.Source + ")"
	}
	return line
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

var extendedDuration = regexp.MustCompile(`^(\d+)(d|w)$`)

// parseExtendedDuration parses duration strings with extended units (d, w).
// Supports all Go standard units (ns, us, ms, s, m, h) plus:
// - d: days (24 hours)
// - w: weeks (7 days)
func parseExtendedDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	matches := extendedDuration.FindStringSubmatch(s)
	if len(matches) != 3 {
		_, err := time.ParseDuration(s)
		return 0, err
	}

	value, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value: %s", matches[1])
	}

	switch matches[2] {
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	}
}
