// logflags.go: Logging flags and the slog logger built from them
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package logflags defines the standard logging flags on a janus registry
// and builds a *slog.Logger from their parsed values.
//
//	lf := logflags.MustRegister(janus.CommandLine)
//	if _, err := janus.Parse(os.Args[1:]); err != nil { ... }
//	logger, closer, err := lf.NewLogger("")
//
// Verbosity follows the absl convention: -1 logs warnings and above, 0
// adds info, 1 adds debug, and every step above 1 lowers the level further.
package logflags

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/agilira/janus"
)

// Flag names.
const (
	FlagVerbosity         = "verbosity"
	FlagLogToStderr       = "logtostderr"
	FlagAlsoLogToStderr   = "alsologtostderr"
	FlagLogDir            = "log_dir"
	FlagStderrThreshold   = "stderrthreshold"
	FlagShowPrefixForInfo = "showprefixforinfo"
	FlagLoggerLevels      = "logger_levels"
	FlagLogFormat         = "log_format"
)

// Flags holds the typed handles of the logging flags.
type Flags struct {
	Verbosity         *janus.Holder[int]
	LogToStderr       *janus.Holder[bool]
	AlsoLogToStderr   *janus.Holder[bool]
	LogDir            *janus.Holder[string]
	StderrThreshold   *janus.Holder[string]
	ShowPrefixForInfo *janus.Holder[bool]
	LoggerLevels      *janus.Holder[map[string]string]
	LogFormat         *janus.Holder[string]

	fv *janus.FlagValues
}

// Register defines the logging flags on fv. They can be read before Parse
// (yielding their defaults) and may be overridden by a later definition
// given janus.AllowOverride.
func Register(fv *janus.FlagValues) (*Flags, error) {
	lf := &Flags{fv: fv}
	var err error
	override := []janus.FlagOption{janus.AllowOverride(), janus.AvailableBeforeParse()}

	if lf.LogToStderr, err = fv.Bool(FlagLogToStderr, false, "Should only log to stderr?", override...); err != nil {
		return nil, err
	}
	if lf.AlsoLogToStderr, err = fv.Bool(FlagAlsoLogToStderr, false, "also log to stderr?", override...); err != nil {
		return nil, err
	}
	if lf.LogDir, err = fv.String(FlagLogDir, os.Getenv("TEST_TMPDIR"), "directory to write logfiles into", override...); err != nil {
		return nil, err
	}
	if lf.Verbosity, err = fv.Int(FlagVerbosity, -1,
		"Logging verbosity level. Messages logged at this level or lower will be included. "+
			"Set to 1 for debug logging. If the flag was not set or supplied, the value will be "+
			"changed from the default of -1 (warning) to 0 (info) after flags are parsed.",
		append(override, janus.WithShortName("v"))...); err != nil {
		return nil, err
	}
	if lf.StderrThreshold, err = janus.Define[string](fv, ThresholdParser{}, ThresholdParser{}, FlagStderrThreshold, "fatal",
		"log messages at this level, or more severe, to stderr in addition to the logfile. "+
			"Possible values are 'debug', 'info', 'warning', 'error', and 'fatal'. "+
			"Obsoletes --alsologtostderr. Using --alsologtostderr cancels the effect of this flag.",
		override...); err != nil {
		return nil, err
	}
	if lf.ShowPrefixForInfo, err = fv.Bool(FlagShowPrefixForInfo, true,
		"If False, do not prepend prefix to info messages when it's logged to stderr.", override...); err != nil {
		return nil, err
	}
	if lf.LoggerLevels, err = janus.Define[map[string]string](fv, LevelsParser{}, LevelsParser{}, FlagLoggerLevels, nil,
		"Specify log level of loggers. The format is a CSV list of `name:level`. "+
			"Where `name` is the logger name used with NewLogger, and `level` is a name "+
			"accepted by --stderrthreshold. e.g. `myapp.foo:INFO,other.logger:DEBUG`.",
		override...); err != nil {
		return nil, err
	}
	if lf.LogFormat, err = fv.Enum(FlagLogFormat, "text", []string{"text", "json"},
		"format of the log records", override...); err != nil {
		return nil, err
	}
	return lf, nil
}

// MustRegister is Register that panics on error.
func MustRegister(fv *janus.FlagValues) *Flags {
	lf, err := Register(fv)
	if err != nil {
		panic(err)
	}
	return lf
}

// cppLevels maps the numeric levels --stderrthreshold accepts to names.
var cppLevels = map[string]string{
	"0": "info",
	"1": "warning",
	"2": "error",
	"3": "fatal",
}

// thresholdNames are the accepted level names, "warn" included.
var thresholdNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warning": slog.LevelWarn,
	"warn":    slog.LevelWarn,
	"error":   slog.LevelError,
	"fatal":   LevelFatal,
}

// LevelFatal sits above slog.LevelError.
const LevelFatal = slog.Level(12)

// ThresholdParser accepts level names case-insensitively or the numeric
// levels 0-3 and normalizes them to lowercase names, "warn" to "warning".
type ThresholdParser struct{}

func (ThresholdParser) Parse(argument string) (string, error) {
	if name, ok := cppLevels[argument]; ok {
		return name, nil
	}
	v := strings.ToLower(argument)
	if _, ok := thresholdNames[v]; !ok {
		return "", fmt.Errorf("--stderrthreshold must be one of (case-insensitive) "+
			"'debug', 'info', 'warning', 'error', 'fatal', or '0', '1', '2', '3', not '%s'", argument)
	}
	if v == "warn" {
		v = "warning"
	}
	return v, nil
}

func (ThresholdParser) FlagType() string              { return "string" }
func (ThresholdParser) Serialize(value string) string { return value }

// ParseLevel converts a threshold name or numeric level to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	name, err := ThresholdParser{}.Parse(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return thresholdNames[name], nil
}

// LevelsParser parses "name:level,name:level" into a map.
type LevelsParser struct{}

func (LevelsParser) Parse(argument string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range strings.Split(argument, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, level, ok := strings.Cut(part, ":")
		name, level = strings.TrimSpace(name), strings.TrimSpace(level)
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed logger level %q, want name:level", part)
		}
		if _, err := ParseLevel(level); err != nil {
			return nil, fmt.Errorf("logger %s: %w", name, err)
		}
		out[name] = strings.ToUpper(level)
	}
	return out, nil
}

func (LevelsParser) FlagType() string { return "logger levels" }

func (LevelsParser) SyntacticHelp() string { return "a comma-separated list of name:level" }

// Serialize emits the entries sorted by logger name.
func (LevelsParser) Serialize(value map[string]string) string {
	names := make([]string, 0, len(value))
	for name := range value {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+":"+value[name])
	}
	return strings.Join(parts, ",")
}

// VerbosityToLevel maps an absl verbosity to a slog level.
func VerbosityToLevel(v int) slog.Level {
	switch {
	case v < 0:
		return slog.LevelWarn
	case v == 0:
		return slog.LevelInfo
	default:
		return slog.LevelDebug - slog.Level(v-1)
	}
}

// EffectiveVerbosity is the parsed verbosity, with an unset -1 raised to
// 0 once the registry was parsed.
func (lf *Flags) EffectiveVerbosity() int {
	v := lf.value(lf.Verbosity)
	if v == -1 && lf.Verbosity.Present() == 0 && lf.fv.IsParsed() {
		return 0
	}
	return v
}

// LevelFor returns the level of the named logger: its --logger_levels
// entry if any, else the verbosity level.
func (lf *Flags) LevelFor(name string) slog.Level {
	if name != "" {
		levels, _ := lf.LoggerLevels.Get()
		if raw, ok := levels[name]; ok {
			if level, err := ParseLevel(raw); err == nil {
				return level
			}
		}
	}
	return VerbosityToLevel(lf.EffectiveVerbosity())
}

// StderrLevel is the level from which records also go to stderr when
// logging into a file.
func (lf *Flags) StderrLevel() slog.Level {
	if lf.valueBool(lf.AlsoLogToStderr) {
		return slog.LevelDebug - 1000
	}
	level, err := ParseLevel(lf.valueString(lf.StderrThreshold))
	if err != nil {
		return LevelFatal
	}
	return level
}

func (lf *Flags) value(h *janus.Holder[int]) int {
	v, _ := h.Get()
	return v
}

func (lf *Flags) valueBool(h *janus.Holder[bool]) bool {
	v, _ := h.Get()
	return v
}

func (lf *Flags) valueString(h *janus.Holder[string]) string {
	v, _ := h.Get()
	return v
}

// SetVerbosity assigns --verbosity and returns the previous value.
func (lf *Flags) SetVerbosity(v int) (int, error) {
	old := lf.value(lf.Verbosity)
	return old, lf.Verbosity.Set(v)
}

// SetStderrThreshold assigns --stderrthreshold from a name or numeric level.
func (lf *Flags) SetStderrThreshold(s string) error {
	name, err := ThresholdParser{}.Parse(s)
	if err != nil {
		return err
	}
	return lf.StderrThreshold.Set(name)
}

// Describe renders the logging setup for diagnostics.
func (lf *Flags) Describe() string {
	return "verbosity=" + strconv.Itoa(lf.EffectiveVerbosity()) +
		" stderrthreshold=" + lf.valueString(lf.StderrThreshold) +
		" log_dir=" + strconv.Quote(lf.valueString(lf.LogDir))
}
