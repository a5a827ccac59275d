// flag_test.go: Tests for the Flag type
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	goerrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewFlag_InvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		make func() (*Flag, error)
	}{
		{"empty name", func() (*Flag, error) {
			return NewFlag[string](StringParser{}, StringParser{}, "", "", "help")
		}},
		{"leading dash", func() (*Flag, error) {
			return NewFlag[string](StringParser{}, StringParser{}, "-x", "", "help")
		}},
		{"equals sign", func() (*Flag, error) {
			return NewFlag[string](StringParser{}, StringParser{}, "a=b", "", "help")
		}},
		{"whitespace", func() (*Flag, error) {
			return NewFlag[string](StringParser{}, StringParser{}, "a b", "", "help")
		}},
		{"short equals name", func() (*Flag, error) {
			return NewFlag[string](StringParser{}, StringParser{}, "v", "", "help", WithShortName("v"))
		}},
		{"nil parser", func() (*Flag, error) {
			return NewFlag[string](nil, StringParser{}, "x", "", "help")
		}},
		{"wrong default type", func() (*Flag, error) {
			return NewFlag[int](IntParser{}, IntParser{}, "x", 1.5, "help")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.make(); err == nil {
				t.Error("definition should be rejected")
			}
		})
	}
}

func TestNewFlag_StringDefaultIsParsed(t *testing.T) {
	f, err := NewFlag[int](IntParser{}, IntParser{}, "port", "0x50", "port")
	if err != nil {
		t.Fatal(err)
	}
	if f.Value() != 80 || f.Default() != 80 {
		t.Errorf("value %v, default %v; want 80", f.Value(), f.Default())
	}
	if f.DefaultAsString() != "80" {
		t.Errorf("DefaultAsString() = %q", f.DefaultAsString())
	}

	_, err = NewFlag[int](IntParser{Lower: intPtr(1)}, IntParser{}, "port", "0", "port")
	var illegal *IllegalFlagValueError
	if !goerrors.As(err, &illegal) {
		t.Errorf("default outside bounds should be an IllegalFlagValueError, got %v", err)
	}
}

func TestFlag_ParseAndUnparse(t *testing.T) {
	f, err := NewFlag[int](IntParser{}, IntParser{}, "n", 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if f.Help() != "(no help available)" {
		t.Errorf("empty help should be replaced, got %q", f.Help())
	}
	if !f.UsingDefaultValue() || f.Present() != 0 {
		t.Fatal("fresh flag should use its default")
	}
	if err := f.Parse("5"); err != nil {
		t.Fatal(err)
	}
	if err := f.Parse("6"); err != nil {
		t.Fatal(err)
	}
	if f.Value() != 6 || f.Present() != 2 || f.UsingDefaultValue() {
		t.Errorf("after two parses: value %v, present %d, default %v", f.Value(), f.Present(), f.UsingDefaultValue())
	}

	err = f.Parse("x")
	var illegal *IllegalFlagValueError
	if !goerrors.As(err, &illegal) || illegal.FlagName != "n" || illegal.Value != "x" {
		t.Errorf("bad token should be an IllegalFlagValueError for n=x, got %v", err)
	}
	if ErrorCode(err) != ErrCodeIllegalFlagValue {
		t.Errorf("ErrorCode = %q", ErrorCode(err))
	}

	f.Unparse()
	if f.Value() != 1 || f.Present() != 0 || !f.UsingDefaultValue() {
		t.Errorf("Unparse should restore the default, got %v", f.Value())
	}
}

func TestFlag_NoOverwrite(t *testing.T) {
	f, err := NewFlag[string](StringParser{}, StringParser{}, "once", "", "help", AllowOverwrite(false))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Parse("a"); err != nil {
		t.Fatal(err)
	}
	if err := f.Parse("b"); err == nil {
		t.Error("second occurrence should be rejected")
	}
	if f.Value() != "a" {
		t.Errorf("value = %v, want the first occurrence", f.Value())
	}
}

func TestFlag_MultiAppends(t *testing.T) {
	f, err := NewMultiFlag[int](IntParser{}, IntParser{}, "n", []string{"1", "2"}, "numbers")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1, 2}, f.Value()); diff != "" {
		t.Errorf("string list default mismatch (-want +got):\n%s", diff)
	}
	for _, token := range []string{"7", "8"} {
		if err := f.Parse(token); err != nil {
			t.Fatal(err)
		}
	}
	// the first occurrence replaces the default, later ones append
	if diff := cmp.Diff([]int{7, 8}, f.Value()); diff != "" {
		t.Errorf("multi value mismatch (-want +got):\n%s", diff)
	}
	if f.Serialize() != "--n=7\n--n=8" {
		t.Errorf("Serialize() = %q", f.Serialize())
	}
	if !f.Multi() || f.Type() != "multi int" {
		t.Errorf("Multi() = %v, Type() = %q", f.Multi(), f.Type())
	}

	single, err := NewMultiFlag[int](IntParser{}, IntParser{}, "m", 3, "numbers")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{3}, single.Value()); diff != "" {
		t.Errorf("scalar default should become a one-element list (-want +got):\n%s", diff)
	}
}

func TestFlag_SerializeBoolean(t *testing.T) {
	f, err := NewFlag[bool](BoolParser{}, BoolParser{}, "debug", false, "debug")
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Serialize(); got != "--nodebug" {
		t.Errorf("false serializes as %q, want --nodebug", got)
	}
	if err := f.Parse("true"); err != nil {
		t.Fatal(err)
	}
	if got := f.Serialize(); got != "--debug" {
		t.Errorf("true serializes as %q, want --debug", got)
	}
	if !f.Boolean() {
		t.Error("bool flag should report Boolean()")
	}
}

func TestFlag_UnsetSerializesEmpty(t *testing.T) {
	f, err := NewFlag[string](StringParser{}, StringParser{}, "opt", nil, "optional")
	if err != nil {
		t.Fatal(err)
	}
	if f.Value() != nil || f.Serialize() != "" || f.DefaultAsString() != "" {
		t.Errorf("unset flag: value %v, serialize %q", f.Value(), f.Serialize())
	}
}

func TestFlag_ValuesDoNotAlias(t *testing.T) {
	def := []string{"a", "b"}
	f, err := NewFlag[[]string](ListParser{}, ListParser{}, "list", def, "list")
	if err != nil {
		t.Fatal(err)
	}
	def[0] = "mutated"
	got := f.Value().([]string)
	got[1] = "mutated"
	if diff := cmp.Diff([]string{"a", "b"}, f.Value()); diff != "" {
		t.Errorf("flag value aliased a caller slice (-want +got):\n%s", diff)
	}
	f.Unparse()
	if diff := cmp.Diff([]string{"a", "b"}, f.Value()); diff != "" {
		t.Errorf("default aliased after Unparse (-want +got):\n%s", diff)
	}
}
