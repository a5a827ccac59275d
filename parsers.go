// parsers.go: Argument parsers and serializers for Janus flags
//
// A parser turns one command-line token into a typed value and a
// serializer turns the value back into a token. Every pair shipped here
// honours Parse(Serialize(v)) == v for the values it can produce.
//
// Built-in parsers:
// - StringParser, BoolParser, DurationParser
// - IntParser, FloatParser (optional inclusive bounds)
// - EnumParser (closed vocabulary, case-insensitive by default)
// - ListParser (CSV quoting), WhitespaceListParser
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ArgumentParser converts a command-line token into a value of type T.
// Parsers are stateless and return a plain error on rejection; the owning
// flag rewraps it as an IllegalFlagValueError.
type ArgumentParser[T any] interface {
	Parse(argument string) (T, error)
	FlagType() string
}

// ArgumentSerializer converts a value of type T into its canonical token.
type ArgumentSerializer[T any] interface {
	Serialize(value T) string
}

// SyntacticHelper is implemented by parsers that describe the accepted
// grammar in help output, e.g. "a non-negative integer".
type SyntacticHelper interface {
	SyntacticHelp() string
}

// booleanParser marks parsers whose flags accept --name and --noname.
type booleanParser interface {
	IsBoolFlag() bool
}

// enumerated is implemented by parsers with a closed vocabulary.
type enumerated interface {
	EnumValues() []string
}

// StringParser accepts any token verbatim.
type StringParser struct{}

func (StringParser) Parse(argument string) (string, error) { return argument, nil }
func (StringParser) FlagType() string                      { return "string" }
func (StringParser) Serialize(value string) string         { return value }

// BoolParser accepts true/false, t/f and 1/0 in any case.
type BoolParser struct{}

func (BoolParser) Parse(argument string) (bool, error) {
	switch strings.ToLower(argument) {
	case "true", "t", "1":
		return true, nil
	case "false", "f", "0":
		return false, nil
	}
	return false, fmt.Errorf("non-boolean argument to boolean flag: %q", argument)
}

func (BoolParser) FlagType() string { return "bool" }
func (BoolParser) IsBoolFlag() bool { return true }

func (BoolParser) Serialize(value bool) string {
	if value {
		return "true"
	}
	return "false"
}

// DurationParser accepts anything time.ParseDuration accepts.
type DurationParser struct{}

func (DurationParser) Parse(argument string) (time.Duration, error) {
	return time.ParseDuration(strings.TrimSpace(argument))
}

func (DurationParser) FlagType() string                    { return "duration" }
func (DurationParser) SyntacticHelp() string               { return "a duration" }
func (DurationParser) Serialize(value time.Duration) string { return value.String() }

// IntParser accepts decimal, 0x hex, 0o/0 octal and 0b binary integers.
// Lower and Upper are inclusive bounds when non-nil.
type IntParser struct {
	Lower *int
	Upper *int
}

func (p IntParser) Parse(argument string) (int, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(argument), 0, strconv.IntSize)
	if err != nil {
		return 0, fmt.Errorf("could not parse %q as an integer", argument)
	}
	n := int(v)
	if !withinBounds(n, p.Lower, p.Upper) {
		return 0, fmt.Errorf("%d is not %s", n, p.SyntacticHelp())
	}
	return n, nil
}

func (IntParser) FlagType() string { return "int" }

func (p IntParser) SyntacticHelp() string {
	return numericHelp("an integer", "integer", p.Lower, p.Upper, 1, -1, 0)
}

func (IntParser) Serialize(value int) string { return strconv.Itoa(value) }

// FloatParser accepts any token strconv.ParseFloat accepts.
// Lower and Upper are inclusive bounds when non-nil.
type FloatParser struct {
	Lower *float64
	Upper *float64
}

func (p FloatParser) Parse(argument string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(argument), 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse %q as a number", argument)
	}
	if !withinBounds(v, p.Lower, p.Upper) {
		return 0, fmt.Errorf("%s is not %s", strconv.FormatFloat(v, 'g', -1, 64), p.SyntacticHelp())
	}
	return v, nil
}

func (FloatParser) FlagType() string { return "float" }

func (p FloatParser) SyntacticHelp() string {
	return numericHelp("a number", "number", p.Lower, p.Upper, 1, -1, 0)
}

func (FloatParser) Serialize(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}

func withinBounds[T cmp.Ordered](v T, lower, upper *T) bool {
	if lower != nil && v < *lower {
		return false
	}
	if upper != nil && v > *upper {
		return false
	}
	return true
}

func numericHelp[T cmp.Ordered](article, name string, lower, upper *T, one, minusOne, zero T) string {
	switch {
	case lower != nil && upper != nil:
		return fmt.Sprintf("%s in the range [%v, %v]", article, *lower, *upper)
	case lower != nil && *lower == one:
		return "a positive " + name
	case upper != nil && *upper == minusOne:
		return "a negative " + name
	case lower != nil && *lower == zero:
		return "a non-negative " + name
	case upper != nil && *upper == zero:
		return "a non-positive " + name
	case upper != nil:
		return fmt.Sprintf("%s <= %v", name, *upper)
	case lower != nil:
		return fmt.Sprintf("%s >= %v", name, *lower)
	}
	return article
}

// EnumParser accepts one value out of a closed vocabulary. Unless the
// parser is case sensitive, matching ignores case, Parse returns the
// vocabulary spelling and Serialize emits the lowercase form.
type EnumParser struct {
	values        []string
	caseSensitive bool
}

// NewEnumParser validates the vocabulary. Values differing only in case
// are rejected for case-insensitive parsers; every duplicate is reported.
func NewEnumParser(values []string, caseSensitive bool) (*EnumParser, error) {
	if len(values) == 0 {
		return nil, definitionError("enum values must be a non-empty list")
	}
	seen := make(map[string]string, len(values))
	var duplicates []string
	for _, v := range values {
		key := v
		if !caseSensitive {
			key = strings.ToLower(v)
		}
		if first, ok := seen[key]; ok {
			duplicates = append(duplicates, fmt.Sprintf("%s (duplicate of %s)", v, first))
			continue
		}
		seen[key] = v
	}
	if len(duplicates) > 0 {
		return nil, definitionError("duplicate enum values: %s", strings.Join(duplicates, ", "))
	}
	return &EnumParser{values: append([]string(nil), values...), caseSensitive: caseSensitive}, nil
}

func (p *EnumParser) Parse(argument string) (string, error) {
	for _, v := range p.values {
		if v == argument || (!p.caseSensitive && strings.EqualFold(v, argument)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("value should be one of <%s>", strings.Join(p.values, "|"))
}

func (p *EnumParser) Serialize(value string) string {
	if p.caseSensitive {
		return value
	}
	return strings.ToLower(value)
}

func (p *EnumParser) FlagType() string { return "enum" }

func (p *EnumParser) SyntacticHelp() string {
	return "<" + strings.Join(p.values, "|") + ">"
}

// EnumValues returns a copy of the vocabulary.
func (p *EnumParser) EnumValues() []string { return append([]string(nil), p.values...) }

// ListParser splits a token on Separator (',' when zero) honouring CSV
// quoting. Surrounding whitespace is stripped from every element, quoted
// or not, so a list like [" a", "b"] reads back as ["a", "b"]. The empty
// token yields an empty, non-nil slice.
type ListParser struct {
	Separator rune
}

func (p ListParser) sep() rune {
	if p.Separator == 0 {
		return ','
	}
	return p.Separator
}

func (p ListParser) Parse(argument string) ([]string, error) {
	if strings.TrimSpace(argument) == "" {
		return []string{}, nil
	}
	r := csv.NewReader(strings.NewReader(argument))
	r.Comma = p.sep()
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	record, err := r.Read()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("unable to parse the value %q as a %s", argument, p.SyntacticHelp())
	}
	if _, err := r.Read(); err != io.EOF {
		return nil, fmt.Errorf("unable to parse the value %q as a %s: unexpected line break", argument, p.SyntacticHelp())
	}
	out := make([]string, 0, len(record))
	for _, field := range record {
		out = append(out, strings.TrimSpace(field))
	}
	return out, nil
}

// Serialize writes value as a single CSV record.
func (p ListParser) Serialize(value []string) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Comma = p.sep()
	_ = w.Write(value)
	w.Flush()
	return strings.TrimRight(b.String(), "\r\n")
}

func (ListParser) FlagType() string { return "list" }

func (p ListParser) SyntacticHelp() string {
	if p.sep() == ',' {
		return "comma separated list of strings"
	}
	return fmt.Sprintf("%q separated list of strings", p.sep())
}

// WhitespaceListParser splits a token on whitespace. With CommaCompat
// commas separate elements as well.
type WhitespaceListParser struct {
	CommaCompat bool
}

func (p WhitespaceListParser) Parse(argument string) ([]string, error) {
	if p.CommaCompat {
		argument = strings.ReplaceAll(argument, ",", " ")
	}
	fields := strings.Fields(argument)
	if fields == nil {
		return []string{}, nil
	}
	return fields, nil
}

func (WhitespaceListParser) Serialize(value []string) string { return strings.Join(value, " ") }
func (WhitespaceListParser) FlagType() string                { return "whitespace list" }

func (p WhitespaceListParser) SyntacticHelp() string {
	if p.CommaCompat {
		return "whitespace or comma separated list of strings"
	}
	return "whitespace separated list of strings"
}
