// parsers_test.go: Tests for argument parsers and serializers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestBoolParser(t *testing.T) {
	p := BoolParser{}
	for _, in := range []string{"true", "TRUE", "t", "1"} {
		if v, err := p.Parse(in); err != nil || !v {
			t.Errorf("Parse(%q) = %v, %v; want true", in, v, err)
		}
	}
	for _, in := range []string{"false", "False", "f", "0"} {
		if v, err := p.Parse(in); err != nil || v {
			t.Errorf("Parse(%q) = %v, %v; want false", in, v, err)
		}
	}
	if _, err := p.Parse("yes"); err == nil {
		t.Error("Parse(\"yes\") should fail")
	}
	if !p.IsBoolFlag() {
		t.Error("BoolParser must mark boolean flags")
	}
}

func TestIntParser(t *testing.T) {
	tests := []struct {
		name    string
		parser  IntParser
		in      string
		want    int
		wantErr bool
	}{
		{"decimal", IntParser{}, "42", 42, false},
		{"negative", IntParser{}, "-7", -7, false},
		{"hex", IntParser{}, "0x10", 16, false},
		{"octal", IntParser{}, "0o17", 15, false},
		{"binary", IntParser{}, "0b101", 5, false},
		{"spaces", IntParser{}, " 3 ", 3, false},
		{"garbage", IntParser{}, "4two", 0, true},
		{"float", IntParser{}, "1.5", 0, true},
		{"lower ok", IntParser{Lower: intPtr(1)}, "1", 1, false},
		{"lower violated", IntParser{Lower: intPtr(1)}, "0", 0, true},
		{"upper violated", IntParser{Upper: intPtr(10)}, "11", 0, true},
		{"range ok", IntParser{Lower: intPtr(0), Upper: intPtr(10)}, "10", 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parser.Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestIntParser_BoundError(t *testing.T) {
	_, err := IntParser{Lower: intPtr(1)}.Parse("0")
	if err == nil || err.Error() != "0 is not a positive integer" {
		t.Errorf("unexpected bound error: %v", err)
	}
}

func TestNumericSyntacticHelp(t *testing.T) {
	tests := []struct {
		parser SyntacticHelper
		want   string
	}{
		{IntParser{}, "an integer"},
		{IntParser{Lower: intPtr(1)}, "a positive integer"},
		{IntParser{Lower: intPtr(0)}, "a non-negative integer"},
		{IntParser{Upper: intPtr(-1)}, "a negative integer"},
		{IntParser{Upper: intPtr(0)}, "a non-positive integer"},
		{IntParser{Lower: intPtr(5)}, "integer >= 5"},
		{IntParser{Lower: intPtr(0), Upper: intPtr(10)}, "an integer in the range [0, 10]"},
		{FloatParser{}, "a number"},
		{FloatParser{Lower: floatPtr(0), Upper: floatPtr(1)}, "a number in the range [0, 1]"},
	}
	for _, tt := range tests {
		if got := tt.parser.SyntacticHelp(); got != tt.want {
			t.Errorf("SyntacticHelp() = %q, want %q", got, tt.want)
		}
	}
}

func TestFloatParser(t *testing.T) {
	p := FloatParser{Lower: floatPtr(0)}
	if v, err := p.Parse("2.5"); err != nil || v != 2.5 {
		t.Errorf("Parse(2.5) = %v, %v", v, err)
	}
	if _, err := p.Parse("-0.1"); err == nil {
		t.Error("value below the lower bound should fail")
	}
	if _, err := p.Parse("pi"); err == nil {
		t.Error("non-numeric value should fail")
	}
}

func TestEnumParser(t *testing.T) {
	p, err := NewEnumParser([]string{"Fast", "safe"}, false)
	if err != nil {
		t.Fatalf("NewEnumParser: %v", err)
	}
	if v, err := p.Parse("FAST"); err != nil || v != "Fast" {
		t.Errorf("Parse(FAST) = %q, %v; want vocabulary spelling", v, err)
	}
	if got := p.Serialize("Fast"); got != "fast" {
		t.Errorf("Serialize(Fast) = %q, want lowercase", got)
	}
	_, err = p.Parse("slow")
	if err == nil || !strings.Contains(err.Error(), "<Fast|safe>") {
		t.Errorf("rejection should list the vocabulary, got %v", err)
	}

	strict, err := NewEnumParser([]string{"A", "a"}, true)
	if err != nil {
		t.Fatalf("case-sensitive vocabulary differing in case is legal: %v", err)
	}
	if _, err := strict.Parse("B"); err == nil {
		t.Error("unknown value should fail")
	}
	if v, _ := strict.Parse("a"); v != "a" {
		t.Errorf("case-sensitive Parse(a) = %q", v)
	}
}

func TestEnumParser_InvalidVocabulary(t *testing.T) {
	if _, err := NewEnumParser(nil, false); err == nil {
		t.Error("empty vocabulary should be rejected")
	}
	_, err := NewEnumParser([]string{"a", "b", "A", "B"}, false)
	if err == nil {
		t.Fatal("duplicates differing only in case should be rejected")
	}
	if ErrorCode(err) != ErrCodeInvalidDefinition {
		t.Errorf("ErrorCode = %q, want %q", ErrorCode(err), ErrCodeInvalidDefinition)
	}
	for _, want := range []string{"A (duplicate of a)", "B (duplicate of b)"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should report %q", err, want)
		}
	}
}

func TestListParser(t *testing.T) {
	tests := []struct {
		name string
		sep  rune
		in   string
		want []string
	}{
		{"simple", 0, "a,b,c", []string{"a", "b", "c"}},
		{"spaces", 0, " a , b ", []string{"a", "b"}},
		{"quoted comma", 0, `a, "b,c",d`, []string{"a", "b,c", "d"}},
		{"quoted spaces trimmed", 0, `" a",b`, []string{"a", "b"}},
		{"empty", 0, "", []string{}},
		{"blank", 0, "   ", []string{}},
		{"semicolon", ';', "a;b,c", []string{"a", "b,c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ListParser{Separator: tt.sep}.Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.in, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
	if _, err := (ListParser{}).Parse(`a,"b`); err == nil {
		t.Error("unterminated quote should fail")
	}
}

func TestWhitespaceListParser(t *testing.T) {
	got, _ := WhitespaceListParser{}.Parse("a  b\tc,d")
	if diff := cmp.Diff([]string{"a", "b", "c,d"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	got, _ = WhitespaceListParser{CommaCompat: true}.Parse("a,b c")
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Errorf("comma compat mismatch (-want +got):\n%s", diff)
	}
	got, _ = WhitespaceListParser{}.Parse("")
	if got == nil || len(got) != 0 {
		t.Errorf("empty input should yield an empty non-nil list, got %#v", got)
	}
}

// roundTrip checks Parse(Serialize(v)) == v.
func roundTrip[T any](t *testing.T, p ArgumentParser[T], s ArgumentSerializer[T], values ...T) {
	t.Helper()
	for _, v := range values {
		token := s.Serialize(v)
		got, err := p.Parse(token)
		if err != nil {
			t.Errorf("Parse(Serialize(%v)) = error %v (token %q)", v, err, token)
			continue
		}
		if diff := cmp.Diff(v, got); diff != "" {
			t.Errorf("round trip of %v via %q mismatch (-want +got):\n%s", v, token, diff)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	roundTrip[string](t, StringParser{}, StringParser{}, "", "plain", "with space", "ünïcode")
	roundTrip[bool](t, BoolParser{}, BoolParser{}, true, false)
	roundTrip[int](t, IntParser{}, IntParser{}, 0, -1, 1<<40, -(1 << 40))
	roundTrip[float64](t, FloatParser{}, FloatParser{}, 0, 0.1, -2.5e-300, 1e21, 3.141592653589793)
	roundTrip[time.Duration](t, DurationParser{}, DurationParser{}, 0, time.Millisecond, 90*time.Minute)
	roundTrip[[]string](t, ListParser{}, ListParser{},
		[]string{"a"}, []string{"a", "b,c", `quote"d`}, []string{"x", "y z"})
	roundTrip[[]string](t, WhitespaceListParser{}, WhitespaceListParser{}, []string{"a", "b"})

	enum, err := NewEnumParser([]string{"red", "green"}, false)
	if err != nil {
		t.Fatal(err)
	}
	roundTrip[string](t, enum, enum, "red", "green")
}
