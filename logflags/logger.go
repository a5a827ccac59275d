// logger.go: Building slog loggers from the logging flags
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package logflags

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/agilira/go-errors"
	"github.com/agilira/janus"
)

// ErrCodeLogSetup is the code of errors raised while opening log outputs.
const ErrCodeLogSetup = "JANUS_LOG_SETUP"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds a logger for the named logger ("" for the root one)
// from the current flag values:
//   - --logtostderr sends everything to stderr;
//   - otherwise, with --log_dir set, records go to <log_dir>/<program>.log
//     and those at --stderrthreshold or above (all of them with
//     --alsologtostderr) are copied to stderr;
//   - without --log_dir records go to stderr.
//
// The returned closer releases the log file.
func (lf *Flags) NewLogger(name string) (*slog.Logger, io.Closer, error) {
	return lf.newLogger(name, os.Stderr)
}

func (lf *Flags) newLogger(name string, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	level := lf.LevelFor(name)
	format := lf.valueString(lf.LogFormat)
	showPrefix := lf.valueBool(lf.ShowPrefixForInfo)

	stderrHandler := newHandler(format, stderr, level, showPrefix)
	dir := lf.valueString(lf.LogDir)
	if lf.valueBool(lf.LogToStderr) || dir == "" {
		return withName(slog.New(stderrHandler), name), nopCloser{}, nil
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, nil, errors.Wrap(err, ErrCodeLogSetup, "cannot create log directory "+dir)
	}
	path := filepath.Join(dir, logFileName(lf.fv))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) // #nosec G304 - path built from --log_dir
	if err != nil {
		return nil, nil, errors.Wrap(err, ErrCodeLogSetup, "cannot open log file "+path)
	}

	fileHandler := newHandler(format, file, level, true)
	threshold := lf.StderrLevel()
	if threshold < level {
		threshold = level
	}
	handler := &teeHandler{
		primary:   fileHandler,
		secondary: stderrHandler,
		threshold: threshold,
	}
	return withName(slog.New(handler), name), file, nil
}

func withName(logger *slog.Logger, name string) *slog.Logger {
	if name == "" {
		return logger
	}
	return logger.With("logger", name)
}

func logFileName(fv *janus.FlagValues) string {
	name := fv.Config().Name
	if name == "" {
		name = "janus"
	}
	return filepath.Base(name) + ".log"
}

// newHandler mirrors the usual level/format switch; showPrefix=false drops
// the level attribute from info records.
func newHandler(format string, w io.Writer, level slog.Level, showPrefix bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if !showPrefix {
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == slog.LevelInfo {
					return slog.Attr{}
				}
			}
			return a
		}
	}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// teeHandler writes every record to primary and records at threshold or
// above to secondary as well.
type teeHandler struct {
	primary   slog.Handler
	secondary slog.Handler
	threshold slog.Level
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	err := h.primary.Handle(ctx, r.Clone())
	if r.Level >= h.threshold && h.secondary.Enabled(ctx, r.Level) {
		if serr := h.secondary.Handle(ctx, r.Clone()); err == nil {
			err = serr
		}
	}
	return err
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{
		primary:   h.primary.WithAttrs(attrs),
		secondary: h.secondary.WithAttrs(attrs),
		threshold: h.threshold,
	}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{
		primary:   h.primary.WithGroup(name),
		secondary: h.secondary.WithGroup(name),
		threshold: h.threshold,
	}
}
