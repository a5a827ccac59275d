// flagsaver.go: Scoped flag overrides for tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package flagsaver saves the state of a janus registry and restores it
// later. Tests use it to override flags for the duration of one test:
//
//	defer flagsaver.Must(flagsaver.Save(fv, flagsaver.Override("port", 9090))).Restore()
//
// Overrides are applied together and then validated together, so a pair
// of flags tied by a multi-flag validator can be switched in one step. If
// an override or validation fails nothing is left behind: the registry is
// restored before the error is returned.
//
// Flags defined while a Guard is active are removed again by Restore.
package flagsaver

import (
	"fmt"
	"testing"

	"github.com/agilira/go-errors"
	"github.com/agilira/janus"
)

// Setting is one override applied by Save or With.
type Setting struct {
	name   string
	value  interface{}
	tokens []string
	parsed bool
}

// Override sets name to a typed value, as FlagValues.Set would.
func Override(name string, value interface{}) Setting {
	return Setting{name: name, value: value}
}

// AsParsed sets name as if tokens had been given on the command line.
// Repeated tokens accumulate for multi flags.
func AsParsed(name string, tokens ...string) Setting {
	return Setting{name: name, tokens: tokens, parsed: true}
}

// Name returns the flag the setting applies to.
func (s Setting) Name() string { return s.name }

func (s Setting) String() string {
	if s.parsed {
		return fmt.Sprintf("%s=%q (parsed)", s.name, s.tokens)
	}
	return fmt.Sprintf("%s=%v", s.name, s.value)
}

// Guard holds a snapshot until Restore is called.
type Guard struct {
	fv       *janus.FlagValues
	snapshot *janus.Snapshot
	restored bool
}

// Save snapshots fv and applies settings. On failure the registry is
// restored and the guard is nil.
func Save(fv *janus.FlagValues, settings ...Setting) (*Guard, error) {
	g := &Guard{fv: fv, snapshot: fv.Snapshot()}
	if err := apply(fv, settings); err != nil {
		g.Restore()
		return nil, err
	}
	return g, nil
}

// Must returns g or panics with err.
func Must(g *Guard, err error) *Guard {
	if err != nil {
		panic(err)
	}
	return g
}

// Restore puts the registry back into the saved state. Calling it twice
// is harmless.
func (g *Guard) Restore() {
	if g == nil || g.restored {
		return
	}
	g.restored = true
	g.fv.Restore(g.snapshot)
}

// With runs fn with settings applied and restores the registry afterwards,
// also when fn panics.
func With(fv *janus.FlagValues, fn func() error, settings ...Setting) error {
	g, err := Save(fv, settings...)
	if err != nil {
		return err
	}
	defer g.Restore()
	return fn()
}

// ForTest applies settings for the rest of the test and restores the
// registry in t.Cleanup.
func ForTest(t testing.TB, fv *janus.FlagValues, settings ...Setting) {
	t.Helper()
	g, err := Save(fv, settings...)
	if err != nil {
		t.Fatalf("flagsaver: %v", err)
	}
	t.Cleanup(g.Restore)
}

func apply(fv *janus.FlagValues, settings []Setting) error {
	seen := make(map[*janus.Flag]string, len(settings))
	names := make([]string, 0, len(settings))
	for _, s := range settings {
		f := fv.Lookup(s.name)
		if f == nil {
			return errors.New(janus.ErrCodeFlagNotFound, fmt.Sprintf("flag --%s is not defined", s.name))
		}
		if prev, dup := seen[f]; dup {
			return errors.New(janus.ErrCodeInvalidDefinition,
				fmt.Sprintf("flag --%s is overridden twice (also as --%s)", s.name, prev))
		}
		seen[f] = s.name
		names = append(names, s.name)
	}

	for _, s := range settings {
		var err error
		if s.parsed {
			err = fv.ParseFlagValue(s.name, s.tokens...)
		} else {
			err = fv.Assign(s.name, s.value)
		}
		if err != nil {
			return err
		}
	}
	return fv.ValidateFlags(names)
}
