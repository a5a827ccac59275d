// flag.go: The Flag type and its definition options
//
// A Flag owns a name, help text, a default and a current value. The
// typed parser and serializer are hidden behind a small codec so that a
// registry can hold flags of every value type side by side.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	"fmt"
	"reflect"
	"strings"
)

// valueCodec is the type-erased view of a parser/serializer pair.
type valueCodec interface {
	parse(argument string) (interface{}, error)
	convertDefault(def interface{}) (interface{}, error)
	serialize(value interface{}) []string
	merge(current, parsed interface{}) interface{}
	accepts(value interface{}) bool
	flagType() string
	syntacticHelp() string
	boolean() bool
	multi() bool
	enumValues() []string
}

type singleCodec[T any] struct {
	parser     ArgumentParser[T]
	serializer ArgumentSerializer[T]
}

func (c singleCodec[T]) parse(argument string) (interface{}, error) {
	return c.parser.Parse(argument)
}

func (c singleCodec[T]) convertDefault(def interface{}) (interface{}, error) {
	if def == nil {
		return nil, nil
	}
	if v, ok := def.(T); ok {
		return cloneValue(v), nil
	}
	if s, ok := def.(string); ok {
		return c.parser.Parse(s)
	}
	return nil, fmt.Errorf("default of type %T is not a %s", def, c.parser.FlagType())
}

func (c singleCodec[T]) serialize(value interface{}) []string {
	return []string{c.serializer.Serialize(value.(T))}
}

func (c singleCodec[T]) merge(_, parsed interface{}) interface{} { return parsed }

func (c singleCodec[T]) accepts(value interface{}) bool {
	_, ok := value.(T)
	return ok
}

func (c singleCodec[T]) flagType() string { return c.parser.FlagType() }

func (c singleCodec[T]) syntacticHelp() string {
	if h, ok := c.parser.(SyntacticHelper); ok {
		return h.SyntacticHelp()
	}
	return ""
}

func (c singleCodec[T]) boolean() bool {
	b, ok := c.parser.(booleanParser)
	return ok && b.IsBoolFlag()
}

func (c singleCodec[T]) multi() bool { return false }

func (c singleCodec[T]) enumValues() []string {
	if e, ok := c.parser.(enumerated); ok {
		return e.EnumValues()
	}
	return nil
}

// multiCodec stores a []T and appends one element per occurrence.
type multiCodec[T any] struct {
	element singleCodec[T]
}

func (c multiCodec[T]) parse(argument string) (interface{}, error) {
	v, err := c.element.parser.Parse(argument)
	if err != nil {
		return nil, err
	}
	return []T{v}, nil
}

func (c multiCodec[T]) convertDefault(def interface{}) (interface{}, error) {
	switch d := def.(type) {
	case nil:
		return nil, nil
	case []T:
		return append([]T{}, d...), nil
	case T:
		return []T{d}, nil
	case []string:
		out := make([]T, 0, len(d))
		for _, s := range d {
			v, err := c.element.parser.Parse(s)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case string:
		v, err := c.element.parser.Parse(d)
		if err != nil {
			return nil, err
		}
		return []T{v}, nil
	}
	return nil, fmt.Errorf("default of type %T is not a list of %s", def, c.element.parser.FlagType())
}

func (c multiCodec[T]) serialize(value interface{}) []string {
	values := value.([]T)
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, c.element.serializer.Serialize(v))
	}
	return out
}

func (c multiCodec[T]) merge(current, parsed interface{}) interface{} {
	cur, _ := current.([]T)
	merged := make([]T, 0, len(cur)+1)
	merged = append(merged, cur...)
	return append(merged, parsed.([]T)...)
}

func (c multiCodec[T]) accepts(value interface{}) bool {
	_, ok := value.([]T)
	return ok
}

func (c multiCodec[T]) flagType() string      { return "multi " + c.element.flagType() }
func (c multiCodec[T]) syntacticHelp() string { return c.element.syntacticHelp() }
func (c multiCodec[T]) boolean() bool         { return false }
func (c multiCodec[T]) multi() bool           { return true }
func (c multiCodec[T]) enumValues() []string  { return c.element.enumValues() }

// cloneValue copies slices and maps so that defaults never alias values.
func cloneValue(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(out, rv)
		return out.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		return out.Interface()
	}
	return v
}

// Flag is a single named option. Flags are created with NewFlag or one of
// the Define helpers and become visible once registered in a FlagValues.
type Flag struct {
	name      string
	shortName string
	help      string
	module    string
	codec     valueCodec

	defaultUnparsed interface{}
	defaultValue    interface{}
	value           interface{}

	present           int
	usingDefaultValue bool
	allowOverride     bool
	allowOverwrite    bool
	preParseAccess    bool

	aliases    []string
	validators []*validator
}

type flagSettings struct {
	shortName      string
	module         string
	allowOverride  bool
	allowOverwrite bool
	preParseAccess bool
	lower          interface{}
	upper          interface{}
	caseSensitive  bool
	commaCompat    bool
	separator      rune
}

// FlagOption customizes a flag definition.
type FlagOption func(*flagSettings)

// WithShortName binds an additional single-dash name, e.g. "v" for verbosity.
func WithShortName(short string) FlagOption {
	return func(s *flagSettings) { s.shortName = short }
}

// WithModule attributes the flag to module instead of the calling package.
func WithModule(module string) FlagOption {
	return func(s *flagSettings) { s.module = module }
}

// AllowOverride lets a later definition with the same name replace this one.
func AllowOverride() FlagOption {
	return func(s *flagSettings) { s.allowOverride = true }
}

// AllowOverwrite controls whether the flag may occur more than once on a
// command line. Flags allow it by default.
func AllowOverwrite(allow bool) FlagOption {
	return func(s *flagSettings) { s.allowOverwrite = allow }
}

// AvailableBeforeParse exempts the flag from the parsed gate.
func AvailableBeforeParse() FlagOption {
	return func(s *flagSettings) { s.preParseAccess = true }
}

// LowerBound sets the inclusive lower bound of an Int or Float flag.
func LowerBound[T int | float64](v T) FlagOption {
	return func(s *flagSettings) { s.lower = v }
}

// UpperBound sets the inclusive upper bound of an Int or Float flag.
func UpperBound[T int | float64](v T) FlagOption {
	return func(s *flagSettings) { s.upper = v }
}

// CaseSensitive makes an Enum flag match its vocabulary exactly.
func CaseSensitive() FlagOption {
	return func(s *flagSettings) { s.caseSensitive = true }
}

// CommaCompat makes a whitespace list flag also split on commas.
func CommaCompat() FlagOption {
	return func(s *flagSettings) { s.commaCompat = true }
}

// ListSeparator changes the separator of a List flag.
func ListSeparator(sep rune) FlagOption {
	return func(s *flagSettings) { s.separator = sep }
}

func applyOptions(opts []FlagOption) flagSettings {
	s := flagSettings{allowOverwrite: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// NewFlag builds an unregistered flag. def may be nil (unset), a T, or a
// string that is run through parser.
func NewFlag[T any](parser ArgumentParser[T], serializer ArgumentSerializer[T], name string, def interface{}, help string, opts ...FlagOption) (*Flag, error) {
	if parser == nil || serializer == nil {
		return nil, definitionError("flag --%s needs both a parser and a serializer", name)
	}
	return newFlag(singleCodec[T]{parser: parser, serializer: serializer}, name, def, help, applyOptions(opts))
}

// NewMultiFlag builds an unregistered flag holding a []T; every occurrence
// on the command line appends one element.
func NewMultiFlag[T any](parser ArgumentParser[T], serializer ArgumentSerializer[T], name string, def interface{}, help string, opts ...FlagOption) (*Flag, error) {
	if parser == nil || serializer == nil {
		return nil, definitionError("flag --%s needs both a parser and a serializer", name)
	}
	codec := multiCodec[T]{element: singleCodec[T]{parser: parser, serializer: serializer}}
	return newFlag(codec, name, def, help, applyOptions(opts))
}

func newFlag(codec valueCodec, name string, def interface{}, help string, s flagSettings) (*Flag, error) {
	if err := validateFlagName(name); err != nil {
		return nil, err
	}
	if s.shortName != "" {
		if err := validateFlagName(s.shortName); err != nil {
			return nil, err
		}
		if s.shortName == name {
			return nil, definitionError("flag --%s uses its own name as short name", name)
		}
	}
	if help == "" {
		help = "(no help available)"
	}
	f := &Flag{
		name:              name,
		shortName:         s.shortName,
		help:              help,
		module:            s.module,
		codec:             codec,
		usingDefaultValue: true,
		allowOverride:     s.allowOverride,
		allowOverwrite:    s.allowOverwrite,
		preParseAccess:    s.preParseAccess,
	}
	if err := f.setDefault(def); err != nil {
		return nil, err
	}
	return f, nil
}

func validateFlagName(name string) error {
	if name == "" {
		return definitionError("flag name must not be empty")
	}
	if strings.HasPrefix(name, "-") {
		return definitionError("flag name %q must not start with a dash", name)
	}
	if strings.ContainsAny(name, "= \t\r\n") {
		return definitionError("flag name %q must not contain '=' or whitespace", name)
	}
	return nil
}

// Name returns the primary name.
func (f *Flag) Name() string { return f.name }

// ShortName returns the short name or "".
func (f *Flag) ShortName() string { return f.shortName }

// Help returns the help text.
func (f *Flag) Help() string { return f.help }

// Module returns the module the flag is attributed to.
func (f *Flag) Module() string { return f.module }

// Type returns the parser type name, e.g. "int" or "multi string".
func (f *Flag) Type() string { return f.codec.flagType() }

// Boolean reports whether the flag accepts --name and --noname.
func (f *Flag) Boolean() bool { return f.codec.boolean() }

// Multi reports whether repeated occurrences append.
func (f *Flag) Multi() bool { return f.codec.multi() }

// Present is the number of values supplied on the command line since the
// last Unparse.
func (f *Flag) Present() int { return f.present }

// UsingDefaultValue reports whether the value still tracks the default.
func (f *Flag) UsingDefaultValue() bool { return f.usingDefaultValue }

// AllowsOverride reports whether the flag was defined with AllowOverride.
func (f *Flag) AllowsOverride() bool { return f.allowOverride }

// Aliases returns the alias names bound to this flag.
func (f *Flag) Aliases() []string { return append([]string(nil), f.aliases...) }

// EnumValues returns the vocabulary of an enum flag, nil otherwise.
func (f *Flag) EnumValues() []string { return f.codec.enumValues() }

// Value returns the current value without consulting the parsed gate.
// Slices and maps are copied.
func (f *Flag) Value() interface{} { return cloneValue(f.value) }

// Default returns a copy of the parsed default value.
func (f *Flag) Default() interface{} { return cloneValue(f.defaultValue) }

// DefaultAsString renders the default the way help output shows it.
func (f *Flag) DefaultAsString() string {
	if f.defaultValue == nil {
		return ""
	}
	return strings.Join(f.codec.serialize(f.defaultValue), ",")
}

// Parse consumes one command-line token.
func (f *Flag) Parse(argument string) error {
	if f.present > 0 && !f.allowOverwrite {
		return newIllegalFlagValueError(f.name, argument,
			fmt.Errorf("flag --%s may be given only once, already set to %s", f.name, f.valueAsString()))
	}
	parsed, err := f.codec.parse(argument)
	if err != nil {
		return newIllegalFlagValueError(f.name, argument, err)
	}
	if f.codec.multi() && f.present > 0 {
		parsed = f.codec.merge(f.value, parsed)
	}
	f.value = parsed
	f.present++
	f.usingDefaultValue = false
	return nil
}

// Unparse resets the flag to a fresh copy of its default.
func (f *Flag) Unparse() {
	f.value = f.freshDefault()
	f.present = 0
	f.usingDefaultValue = true
}

// Serialize renders the current value as command-line tokens: --name=value,
// --name/--noname for booleans and one line per element for multi flags.
// A nil value serializes to "".
func (f *Flag) Serialize() string {
	return f.serializeValue(f.value)
}

func (f *Flag) serializeValue(value interface{}) string {
	return strings.Join(f.tokens(value), "\n")
}

// tokens renders value as the command-line tokens Serialize joins.
func (f *Flag) tokens(value interface{}) []string {
	if value == nil {
		return nil
	}
	if f.codec.boolean() {
		if b, ok := value.(bool); ok && !b {
			return []string{"--no" + f.name}
		}
		return []string{"--" + f.name}
	}
	parts := f.codec.serialize(value)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, "--"+f.name+"="+p)
	}
	return out
}

func (f *Flag) valueAsString() string {
	if f.value == nil {
		return "<unset>"
	}
	return strings.Join(f.codec.serialize(f.value), ",")
}

func (f *Flag) setDefault(def interface{}) error {
	parsed, err := f.codec.convertDefault(def)
	if err != nil {
		return newIllegalFlagValueError(f.name, fmt.Sprint(def), err)
	}
	f.defaultUnparsed = cloneValue(def)
	f.defaultValue = parsed
	if f.usingDefaultValue {
		f.value = cloneValue(parsed)
	}
	return nil
}

func (f *Flag) freshDefault() interface{} {
	if v, err := f.codec.convertDefault(f.defaultUnparsed); err == nil {
		return v
	}
	return cloneValue(f.defaultValue)
}

// assign stores a typed value directly, bypassing the parser.
func (f *Flag) assign(value interface{}) error {
	if value != nil && !f.codec.accepts(value) {
		return newIllegalFlagValueError(f.name, fmt.Sprint(value),
			fmt.Errorf("value of type %T does not fit a %s flag", value, f.codec.flagType()))
	}
	f.value = cloneValue(value)
	f.usingDefaultValue = false
	return nil
}
