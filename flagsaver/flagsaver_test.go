// flagsaver_test.go: Tests for scoped flag overrides
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package flagsaver_test

import (
	"errors"
	"testing"

	"github.com/agilira/janus"
	"github.com/agilira/janus/flagsaver"
	"github.com/google/go-cmp/cmp"
)

type testFlags struct {
	port  *janus.Holder[int]
	host  *janus.Holder[string]
	ids   *janus.Holder[[]int]
	lo    *janus.Holder[int]
	hi    *janus.Holder[int]
	debug *janus.Holder[bool]
}

func newRegistry(t *testing.T) (*janus.FlagValues, testFlags) {
	t.Helper()
	fv := janus.New(janus.Config{Name: "test"})
	var f testFlags
	var err error
	if f.port, err = fv.Int("port", 8080, "port", janus.LowerBound(1)); err != nil {
		t.Fatal(err)
	}
	if f.host, err = fv.String("host", "localhost", "host"); err != nil {
		t.Fatal(err)
	}
	if f.ids, err = fv.MultiInt("ids", nil, "ids"); err != nil {
		t.Fatal(err)
	}
	if f.lo, err = fv.Int("lo", 0, "lo"); err != nil {
		t.Fatal(err)
	}
	if f.hi, err = fv.Int("hi", 10, "hi"); err != nil {
		t.Fatal(err)
	}
	if f.debug, err = fv.Bool("debug", false, "debug"); err != nil {
		t.Fatal(err)
	}
	err = fv.RegisterMultiFlagsValidator([]string{"lo", "hi"}, func(v map[string]interface{}) bool {
		return v["lo"].(int) <= v["hi"].(int)
	}, "lo must not exceed hi")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fv.Parse(nil); err != nil {
		t.Fatal(err)
	}
	return fv, f
}

func TestSave_OverrideAndRestore(t *testing.T) {
	fv, f := newRegistry(t)

	g, err := flagsaver.Save(fv,
		flagsaver.Override("port", 9090),
		flagsaver.AsParsed("ids", "1", "2"),
		flagsaver.AsParsed("debug", "true"),
	)
	if err != nil {
		t.Fatal(err)
	}
	if f.port.Value() != 9090 || !f.debug.Value() {
		t.Errorf("overrides not applied: port %d debug %v", f.port.Value(), f.debug.Value())
	}
	if diff := cmp.Diff([]int{1, 2}, f.ids.Value()); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}

	g.Restore()
	g.Restore()
	if f.port.Value() != 8080 || f.debug.Value() || f.ids.Value() != nil {
		t.Errorf("not restored: port %d debug %v ids %v", f.port.Value(), f.debug.Value(), f.ids.Value())
	}
	if !f.port.Flag().UsingDefaultValue() {
		t.Error("restored flag should use its default again")
	}
}

func TestSave_OverridesValidatedTogether(t *testing.T) {
	fv, f := newRegistry(t)

	// lo=20 alone would violate lo <= hi
	g, err := flagsaver.Save(fv, flagsaver.Override("lo", 20), flagsaver.Override("hi", 30))
	if err != nil {
		t.Fatalf("pair of overrides should validate together: %v", err)
	}
	defer g.Restore()
	if f.lo.Value() != 20 || f.hi.Value() != 30 {
		t.Errorf("lo %d hi %d", f.lo.Value(), f.hi.Value())
	}
}

func TestSave_FailureRestores(t *testing.T) {
	tests := []struct {
		name     string
		settings []flagsaver.Setting
		code     string
	}{
		{"validation", []flagsaver.Setting{flagsaver.Override("host", "h"), flagsaver.Override("lo", 50)}, janus.ErrCodeValidation},
		{"bound", []flagsaver.Setting{flagsaver.Override("host", "h"), flagsaver.AsParsed("port", "0")}, janus.ErrCodeIllegalFlagValue},
		{"wrong type", []flagsaver.Setting{flagsaver.Override("host", "h"), flagsaver.Override("port", "80")}, janus.ErrCodeIllegalFlagValue},
		{"unknown", []flagsaver.Setting{flagsaver.Override("nope", 1)}, janus.ErrCodeFlagNotFound},
		{"twice", []flagsaver.Setting{flagsaver.Override("host", "a"), flagsaver.Override("host", "b")}, janus.ErrCodeInvalidDefinition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fv, f := newRegistry(t)
			g, err := flagsaver.Save(fv, tt.settings...)
			if g != nil || janus.ErrorCode(err) != tt.code {
				t.Fatalf("Save() = %v, %v; want code %s", g, err, tt.code)
			}
			if f.host.Value() != "localhost" || f.lo.Value() != 0 || f.port.Value() != 8080 {
				t.Errorf("registry not restored after failure: host %q lo %d port %d",
					f.host.Value(), f.lo.Value(), f.port.Value())
			}
		})
	}
}

func TestSave_DuplicateThroughAlias(t *testing.T) {
	fv, _ := newRegistry(t)
	if err := fv.DefineAlias("p", "port"); err != nil {
		t.Fatal(err)
	}
	_, err := flagsaver.Save(fv, flagsaver.Override("port", 1), flagsaver.Override("p", 2))
	if janus.ErrorCode(err) != janus.ErrCodeInvalidDefinition {
		t.Errorf("alias and name refer to one flag: %v", err)
	}
}

func TestGuard_RemovesFlagsDefinedInScope(t *testing.T) {
	fv, _ := newRegistry(t)
	g := flagsaver.Must(flagsaver.Save(fv))
	if _, err := fv.String("scoped", "", "temporary"); err != nil {
		t.Fatal(err)
	}
	g.Restore()
	if fv.Lookup("scoped") != nil {
		t.Error("flag defined in scope should be removed")
	}
}

func TestWith(t *testing.T) {
	fv, f := newRegistry(t)

	err := flagsaver.With(fv, func() error {
		if f.host.Value() != "example.com" {
			t.Errorf("inside With: host %q", f.host.Value())
		}
		return errors.New("boom")
	}, flagsaver.Override("host", "example.com"))
	if err == nil || err.Error() != "boom" {
		t.Errorf("With should return fn's error, got %v", err)
	}
	if f.host.Value() != "localhost" {
		t.Errorf("host not restored: %q", f.host.Value())
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic should propagate")
			}
		}()
		_ = flagsaver.With(fv, func() error { panic("inside") }, flagsaver.Override("port", 1234))
	}()
	if f.port.Value() != 8080 {
		t.Errorf("port not restored after panic: %d", f.port.Value())
	}
}

func TestForTest(t *testing.T) {
	fv, f := newRegistry(t)
	t.Run("scoped", func(t *testing.T) {
		flagsaver.ForTest(t, fv, flagsaver.Override("port", 7000))
		if f.port.Value() != 7000 {
			t.Errorf("port %d", f.port.Value())
		}
	})
	if f.port.Value() != 8080 {
		t.Errorf("subtest cleanup should restore port, got %d", f.port.Value())
	}
}

func TestMust(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Must should panic on error")
		}
	}()
	fv, _ := newRegistry(t)
	flagsaver.Must(flagsaver.Save(fv, flagsaver.Override("nope", 1)))
}

func TestSetting_String(t *testing.T) {
	if got := flagsaver.Override("port", 1).String(); got != "port=1" {
		t.Errorf("Override String() = %q", got)
	}
	if got := flagsaver.AsParsed("ids", "1", "2").String(); got != `ids=["1" "2"] (parsed)` {
		t.Errorf("AsParsed String() = %q", got)
	}
	if flagsaver.Override("x", 0).Name() != "x" {
		t.Error("Name()")
	}
}
