// define.go: Flag definition helpers
//
// Define and DefineMulti register a flag for any parser/serializer pair.
// The typed helpers cover the built-in parsers; as FlagValues methods they
// return an error, as package-level functions they define on CommandLine
// and panic on definition errors, which can only come from program bugs.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	"time"
)

// Define creates a flag from parser and serializer and registers it in fv.
// def may be nil (unset), a T, or a string run through parser.
func Define[T any](fv *FlagValues, parser ArgumentParser[T], serializer ArgumentSerializer[T], name string, def interface{}, help string, opts ...FlagOption) (*Holder[T], error) {
	f, err := NewFlag(parser, serializer, name, def, help, opts...)
	if err != nil {
		return nil, err
	}
	if err := fv.Register(f); err != nil {
		return nil, err
	}
	return &Holder[T]{fv: fv, name: name}, nil
}

// DefineMulti creates a flag collecting every occurrence into a []T.
// def may be nil, a []T, a T, a []string or a string.
func DefineMulti[T any](fv *FlagValues, parser ArgumentParser[T], serializer ArgumentSerializer[T], name string, def interface{}, help string, opts ...FlagOption) (*Holder[[]T], error) {
	f, err := NewMultiFlag(parser, serializer, name, def, help, opts...)
	if err != nil {
		return nil, err
	}
	if err := fv.Register(f); err != nil {
		return nil, err
	}
	return &Holder[[]T]{fv: fv, name: name}, nil
}

func boundAs[T int | float64](v interface{}) (*T, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case int:
		t := T(b)
		return &t, nil
	case float64:
		t := T(b)
		return &t, nil
	}
	return nil, definitionError("bound of type %T is not numeric", v)
}

func intParser(opts []FlagOption) (IntParser, error) {
	s := applyOptions(opts)
	lower, err := boundAs[int](s.lower)
	if err != nil {
		return IntParser{}, err
	}
	upper, err := boundAs[int](s.upper)
	if err != nil {
		return IntParser{}, err
	}
	if lower != nil && upper != nil && *lower > *upper {
		return IntParser{}, definitionError("lower bound %d exceeds upper bound %d", *lower, *upper)
	}
	return IntParser{Lower: lower, Upper: upper}, nil
}

func floatParser(opts []FlagOption) (FloatParser, error) {
	s := applyOptions(opts)
	lower, err := boundAs[float64](s.lower)
	if err != nil {
		return FloatParser{}, err
	}
	upper, err := boundAs[float64](s.upper)
	if err != nil {
		return FloatParser{}, err
	}
	if lower != nil && upper != nil && *lower > *upper {
		return FloatParser{}, definitionError("lower bound %v exceeds upper bound %v", *lower, *upper)
	}
	return FloatParser{Lower: lower, Upper: upper}, nil
}

func listDefault(def []string) interface{} {
	if def == nil {
		return nil
	}
	return def
}

// String defines a string flag.
func (fv *FlagValues) String(name, def, help string, opts ...FlagOption) (*Holder[string], error) {
	return Define[string](fv, StringParser{}, StringParser{}, name, def, help, opts...)
}

// Bool defines a boolean flag, settable as --name, --noname or --name=false.
func (fv *FlagValues) Bool(name string, def bool, help string, opts ...FlagOption) (*Holder[bool], error) {
	return Define[bool](fv, BoolParser{}, BoolParser{}, name, def, help, opts...)
}

// Int defines an integer flag; LowerBound and UpperBound restrict it.
func (fv *FlagValues) Int(name string, def int, help string, opts ...FlagOption) (*Holder[int], error) {
	p, err := intParser(opts)
	if err != nil {
		return nil, err
	}
	return Define[int](fv, p, p, name, def, help, opts...)
}

// Float defines a float64 flag; LowerBound and UpperBound restrict it.
func (fv *FlagValues) Float(name string, def float64, help string, opts ...FlagOption) (*Holder[float64], error) {
	p, err := floatParser(opts)
	if err != nil {
		return nil, err
	}
	return Define[float64](fv, p, p, name, def, help, opts...)
}

// Duration defines a time.Duration flag.
func (fv *FlagValues) Duration(name string, def time.Duration, help string, opts ...FlagOption) (*Holder[time.Duration], error) {
	return Define[time.Duration](fv, DurationParser{}, DurationParser{}, name, def, help, opts...)
}

// Enum defines a flag restricted to values. An empty def leaves it unset.
func (fv *FlagValues) Enum(name, def string, values []string, help string, opts ...FlagOption) (*Holder[string], error) {
	p, err := NewEnumParser(values, applyOptions(opts).caseSensitive)
	if err != nil {
		return nil, err
	}
	var d interface{}
	if def != "" {
		d = def
	}
	return Define[string](fv, p, p, name, d, help, opts...)
}

// List defines a comma separated list flag. A nil def leaves it unset.
func (fv *FlagValues) List(name string, def []string, help string, opts ...FlagOption) (*Holder[[]string], error) {
	p := ListParser{Separator: applyOptions(opts).separator}
	return Define[[]string](fv, p, p, name, listDefault(def), help, opts...)
}

// WhitespaceList defines a whitespace separated list flag.
func (fv *FlagValues) WhitespaceList(name string, def []string, help string, opts ...FlagOption) (*Holder[[]string], error) {
	p := WhitespaceListParser{CommaCompat: applyOptions(opts).commaCompat}
	return Define[[]string](fv, p, p, name, listDefault(def), help, opts...)
}

// MultiString defines a repeatable string flag.
func (fv *FlagValues) MultiString(name string, def []string, help string, opts ...FlagOption) (*Holder[[]string], error) {
	return DefineMulti[string](fv, StringParser{}, StringParser{}, name, listDefault(def), help, opts...)
}

// MultiInt defines a repeatable integer flag.
func (fv *FlagValues) MultiInt(name string, def []int, help string, opts ...FlagOption) (*Holder[[]int], error) {
	p, err := intParser(opts)
	if err != nil {
		return nil, err
	}
	var d interface{}
	if def != nil {
		d = def
	}
	return DefineMulti[int](fv, p, p, name, d, help, opts...)
}

// MultiFloat defines a repeatable float64 flag.
func (fv *FlagValues) MultiFloat(name string, def []float64, help string, opts ...FlagOption) (*Holder[[]float64], error) {
	p, err := floatParser(opts)
	if err != nil {
		return nil, err
	}
	var d interface{}
	if def != nil {
		d = def
	}
	return DefineMulti[float64](fv, p, p, name, d, help, opts...)
}

// MultiEnum defines a repeatable flag restricted to values.
func (fv *FlagValues) MultiEnum(name string, def []string, values []string, help string, opts ...FlagOption) (*Holder[[]string], error) {
	p, err := NewEnumParser(values, applyOptions(opts).caseSensitive)
	if err != nil {
		return nil, err
	}
	return DefineMulti[string](fv, p, p, name, listDefault(def), help, opts...)
}

func must[T any](h *Holder[T], err error) *Holder[T] {
	if err != nil {
		panic(err)
	}
	return h
}

// String defines a string flag on CommandLine.
func String(name, def, help string, opts ...FlagOption) *Holder[string] {
	return must(CommandLine.String(name, def, help, opts...))
}

// Bool defines a boolean flag on CommandLine.
func Bool(name string, def bool, help string, opts ...FlagOption) *Holder[bool] {
	return must(CommandLine.Bool(name, def, help, opts...))
}

// Int defines an integer flag on CommandLine.
func Int(name string, def int, help string, opts ...FlagOption) *Holder[int] {
	return must(CommandLine.Int(name, def, help, opts...))
}

// Float defines a float64 flag on CommandLine.
func Float(name string, def float64, help string, opts ...FlagOption) *Holder[float64] {
	return must(CommandLine.Float(name, def, help, opts...))
}

// Duration defines a time.Duration flag on CommandLine.
func Duration(name string, def time.Duration, help string, opts ...FlagOption) *Holder[time.Duration] {
	return must(CommandLine.Duration(name, def, help, opts...))
}

// Enum defines an enum flag on CommandLine.
func Enum(name, def string, values []string, help string, opts ...FlagOption) *Holder[string] {
	return must(CommandLine.Enum(name, def, values, help, opts...))
}

// List defines a comma separated list flag on CommandLine.
func List(name string, def []string, help string, opts ...FlagOption) *Holder[[]string] {
	return must(CommandLine.List(name, def, help, opts...))
}

// WhitespaceList defines a whitespace separated list flag on CommandLine.
func WhitespaceList(name string, def []string, help string, opts ...FlagOption) *Holder[[]string] {
	return must(CommandLine.WhitespaceList(name, def, help, opts...))
}

// MultiString defines a repeatable string flag on CommandLine.
func MultiString(name string, def []string, help string, opts ...FlagOption) *Holder[[]string] {
	return must(CommandLine.MultiString(name, def, help, opts...))
}

// MultiInt defines a repeatable integer flag on CommandLine.
func MultiInt(name string, def []int, help string, opts ...FlagOption) *Holder[[]int] {
	return must(CommandLine.MultiInt(name, def, help, opts...))
}

// MultiEnum defines a repeatable enum flag on CommandLine.
func MultiEnum(name string, def []string, values []string, help string, opts ...FlagOption) *Holder[[]string] {
	return must(CommandLine.MultiEnum(name, def, values, help, opts...))
}

// DefineAlias binds name to original on CommandLine.
func DefineAlias(name, original string) error {
	return CommandLine.DefineAlias(name, original)
}

// Parse parses args (without the program name) into CommandLine.
func Parse(args []string) ([]string, error) {
	return CommandLine.Parse(args)
}

// Args returns the positional arguments left by the last CommandLine parse.
func Args() []string { return CommandLine.Args() }

// DeclareKeyFlag marks name as a key flag of the calling package.
func DeclareKeyFlag(name string) error {
	return CommandLine.DeclareKeyFlag(name)
}

// AdoptModuleKeyFlags makes the key flags of module key flags of the
// calling package.
func AdoptModuleKeyFlags(module string) error {
	return CommandLine.AdoptModuleKeyFlags(module)
}

// DisclaimKeyFlags attributes flags defined by the calling package to its
// callers.
func DisclaimKeyFlags() { CommandLine.DisclaimKeyFlags() }

// MarkFlagAsRequired marks a CommandLine flag as required.
func MarkFlagAsRequired(name string) error {
	return CommandLine.MarkFlagAsRequired(name)
}
