// integration_test.go: Tests for the flash-flags bridge
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	goerrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type bridgeFlags struct {
	port    *Holder[int]
	name    *Holder[string]
	debug   *Holder[bool]
	ratio   *Holder[float64]
	timeout *Holder[time.Duration]
	mode    *Holder[string]
	tags    *Holder[[]string]
}

func newBridgeRegistry(t *testing.T) (*FlagValues, bridgeFlags) {
	t.Helper()
	fv := newTestRegistry(t)
	var b bridgeFlags
	var err error
	if b.port, err = fv.Int("port", 8080, "port", LowerBound(1)); err != nil {
		t.Fatal(err)
	}
	if b.name, err = fv.String("name", "server", "name"); err != nil {
		t.Fatal(err)
	}
	if b.debug, err = fv.Bool("debug", false, "debug"); err != nil {
		t.Fatal(err)
	}
	if b.ratio, err = fv.Float("ratio", 0.25, "ratio"); err != nil {
		t.Fatal(err)
	}
	if b.timeout, err = fv.Duration("timeout", time.Second, "timeout"); err != nil {
		t.Fatal(err)
	}
	if b.mode, err = fv.Enum("mode", "fast", []string{"fast", "safe"}, "mode"); err != nil {
		t.Fatal(err)
	}
	if b.tags, err = fv.List("tags", []string{"a"}, "tags"); err != nil {
		t.Fatal(err)
	}
	if _, err := fv.MultiInt("ids", []int{1}, "ids"); err != nil {
		t.Fatal(err)
	}
	return fv, b
}

func TestFlashBridge_Mirror(t *testing.T) {
	fv, _ := newBridgeRegistry(t)
	bridge := NewFlashBridge(fv, "test")

	want := []string{"debug", "mode", "name", "port", "ratio", "tags", "timeout"}
	if diff := cmp.Diff(want, bridge.Mirrored()); diff != "" {
		t.Errorf("mirrored flags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ids"}, bridge.Skipped()); diff != "" {
		t.Errorf("skipped flags mismatch (-want +got):\n%s", diff)
	}
	if bridge.FlagSet() == nil || bridge.String() != "FlashBridge{mirrored: 7, skipped: 1}" {
		t.Errorf("String() = %q", bridge.String())
	}
}

func TestFlashBridge_Parse(t *testing.T) {
	fv, flags := newBridgeRegistry(t)
	bridge := NewFlashBridge(fv, "test").SetVersion("1.0.0")

	args := []string{"--port=9000", "--name", "edge", "--debug", "--ratio=0.5", "--timeout=3s", "--mode=SAFE", "--tags=x,y"}
	if err := bridge.Parse(args); err != nil {
		t.Fatal(err)
	}
	if !fv.IsParsed() {
		t.Fatal("bridge parse should open the parsed gate")
	}
	if flags.port.Value() != 9000 || flags.name.Value() != "edge" || !flags.debug.Value() {
		t.Errorf("port %d name %q debug %v", flags.port.Value(), flags.name.Value(), flags.debug.Value())
	}
	if flags.ratio.Value() != 0.5 || flags.timeout.Value() != 3*time.Second {
		t.Errorf("ratio %v timeout %v", flags.ratio.Value(), flags.timeout.Value())
	}
	if flags.mode.Value() != "safe" {
		t.Errorf("enum should be matched through the janus parser, got %q", flags.mode.Value())
	}
	if diff := cmp.Diff([]string{"x", "y"}, flags.tags.Value()); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if flags.port.Flag().UsingDefaultValue() {
		t.Error("pulled flag should not report its default")
	}
}

func TestFlashBridge_UnchangedKeepsDefault(t *testing.T) {
	fv, flags := newBridgeRegistry(t)
	if err := NewFlashBridge(fv, "test").Parse(nil); err != nil {
		t.Fatal(err)
	}
	if !flags.name.Flag().UsingDefaultValue() || flags.port.Present() != 0 {
		t.Error("flags not given on the command line should keep their defaults")
	}
}

func TestFlashBridge_JanusRulesApply(t *testing.T) {
	fv, _ := newBridgeRegistry(t)
	err := NewFlashBridge(fv, "test").Parse([]string{"--port=0"})
	var illegal *IllegalFlagValueError
	if !goerrors.As(err, &illegal) || illegal.FlagName != "port" {
		t.Errorf("lower bound should reject 0, got %v", err)
	}

	fv, _ = newBridgeRegistry(t)
	err = NewFlashBridge(fv, "test").Parse([]string{"--mode=turbo"})
	if err == nil || !strings.Contains(err.Error(), "value should be one of <fast|safe>") {
		t.Errorf("enum vocabulary should apply, got %v", err)
	}

	fv, _ = newBridgeRegistry(t)
	if err := fv.RegisterValidator("name", func(v interface{}) bool { return v.(string) != "forbidden" }, "name is forbidden"); err != nil {
		t.Fatal(err)
	}
	err = NewFlashBridge(fv, "test").Parse([]string{"--name=forbidden"})
	if err == nil || !strings.Contains(err.Error(), "name is forbidden") {
		t.Errorf("validators should run on pulled values, got %v", err)
	}
}
