// parse.go: Command-line parsing and flagfile expansion
//
// Parse works in two passes. The first pass expands --flagfile directives
// recursively into the token stream, remembering where every token came
// from. The second pass walks the tokens, applies known flags, collects
// positional arguments and unknown flags, and finally runs validators.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agilira/go-errors"
	"github.com/mattn/go-shellwords"
)

type argToken struct {
	text   string
	source string
}

type unknownFlag struct {
	name string
	arg  string
}

// Parse consumes args (without the program name), applies every known
// flag and returns the positional arguments. Unknown flags fail the parse
// unless listed in --undefok or Config.AllowUndefined is set. Parse may be
// called again later; it then applies only the new tokens.
func (fv *FlagValues) Parse(args []string) ([]string, error) {
	return fv.parse(args, false)
}

// ParseKnown is Parse that leaves unknown flags in the returned tail
// instead of failing.
func (fv *FlagValues) ParseKnown(args []string) ([]string, error) {
	return fv.parse(args, true)
}

func (fv *FlagValues) parse(args []string, knownOnly bool) ([]string, error) {
	if fv.parsing {
		return nil, errors.New(ErrCodeReentrantParse, "Parse called while a Parse is running")
	}
	fv.parsing = true
	defer func() { fv.parsing = false }()

	tokens, err := fv.expandFlagfiles(args)
	if err != nil {
		return nil, err
	}
	unknown, unparsed, err := fv.applyTokens(tokens, knownOnly)
	if err != nil {
		return nil, err
	}
	if len(unknown) > 0 {
		u := unknown[0]
		return nil, newUnrecognizedFlagError(u.name, u.arg, fv.suggestions(u.name))
	}

	fv.args = unparsed
	fv.parsed = true
	if err := fv.ValidateAllFlags(); err != nil {
		return nil, err
	}
	return append([]string(nil), unparsed...), nil
}

// ReadFlagsFromFiles returns args with every --flagfile directive replaced
// by the tokens of the named file.
func (fv *FlagValues) ReadFlagsFromFiles(args []string) ([]string, error) {
	tokens, err := fv.expandFlagfiles(args)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.text)
	}
	return out, nil
}

// flagfileDirective reports whether arg names a flagfile and, for the
// --flagfile=PATH form, returns the path.
func flagfileDirective(arg string) (path string, inline bool, ok bool) {
	for _, prefix := range []string{"--flagfile", "-flagfile"} {
		if arg == prefix {
			return "", false, true
		}
		if strings.HasPrefix(arg, prefix+"=") {
			return expandHome(arg[len(prefix)+1:]), true, true
		}
	}
	return "", false, false
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func (fv *FlagValues) expandFlagfiles(args []string) ([]argToken, error) {
	out := make([]argToken, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if path, inline, ok := flagfileDirective(arg); ok {
			if !inline {
				if i+1 >= len(args) {
					return nil, errors.New(ErrCodeMissingValue, "--flagfile with no argument")
				}
				i++
				path = expandHome(args[i])
			}
			expanded, err := fv.flagfileTokens(path, nil, 1)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
			continue
		}

		out = append(out, argToken{text: arg, source: SourceArgv})
		if arg == "--" {
			for _, rest := range args[i+1:] {
				out = append(out, argToken{text: rest, source: SourceArgv})
			}
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			if fv.gnuGetopt {
				continue
			}
			for _, rest := range args[i+1:] {
				out = append(out, argToken{text: rest, source: SourceArgv})
			}
			break
		}
		// "--name value": keep the value with its flag so that a value
		// spelled like a directive is not expanded.
		if !strings.Contains(arg, "=") && i+1 < len(args) {
			if fv.takesSeparateValue(strings.TrimLeft(arg, "-")) {
				i++
				out = append(out, argToken{text: args[i], source: SourceArgv})
			}
		}
	}
	return out, nil
}

// takesSeparateValue reports whether "--name value" consumes the next
// argument: undefok and every known non-boolean flag do.
func (fv *FlagValues) takesSeparateValue(name string) bool {
	if name == "undefok" {
		return true
	}
	f := fv.flags[name]
	return f != nil && !f.Boolean()
}

// flagfileTokens reads one flagfile. stack holds the files currently being
// expanded; a file already on it is skipped with a warning.
func (fv *FlagValues) flagfileTokens(path string, stack []string, depth int) ([]argToken, error) {
	if path == "" {
		return nil, nil
	}
	if depth > fv.config.MaxFlagfileDepth {
		return nil, newCantOpenFlagFileError(path,
			fmt.Errorf("flagfiles nested deeper than %d", fv.config.MaxFlagfileDepth))
	}
	for _, open := range stack {
		if open == path {
			fv.logger.Warn("circular flagfile reference skipped", "path", path, "stack", strings.Join(stack, " -> "))
			return nil, nil
		}
	}

	data, err := os.ReadFile(path) // #nosec G304 - reading user-named flagfiles is the purpose
	if err != nil {
		return nil, newCantOpenFlagFileError(path, err)
	}
	stack = append(stack[:len(stack):len(stack)], path)
	source := flagfileSource(path)

	var out []argToken
	for _, entry := range flagfileLines(string(data)) {
		lineNo := entry.number
		words, err := splitFlagfileLine(entry.text)
		if err != nil {
			return nil, newCantOpenFlagFileError(path, fmt.Errorf("line %d: %w", lineNo, err))
		}
		for j := 0; j < len(words); j++ {
			nested, inline, ok := flagfileDirective(words[j])
			if !ok {
				out = append(out, argToken{text: words[j], source: source})
				continue
			}
			if !inline {
				if j+1 >= len(words) {
					return nil, newCantOpenFlagFileError(path, fmt.Errorf("line %d: --flagfile with no argument", lineNo))
				}
				j++
				nested = expandHome(words[j])
			}
			tokens, err := fv.flagfileTokens(nested, stack, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, tokens...)
		}
	}
	return out, nil
}

type flagfileLine struct {
	number int
	text   string
}

// flagfileLines drops blank and comment lines and joins a line whose quote
// is still open with the lines that follow, so quoted values may span
// several physical lines. number is the first physical line of an entry.
func flagfileLines(data string) []flagfileLine {
	var (
		out     []flagfileLine
		pending strings.Builder
		start   int
	)
	for i, line := range strings.Split(data, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if pending.Len() > 0 {
			pending.WriteByte('\n')
			pending.WriteString(line)
		} else {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//") {
				continue
			}
			start = i + 1
			pending.WriteString(strings.TrimLeft(line, " \t"))
		}
		if !quoteOpen(pending.String()) {
			out = append(out, flagfileLine{number: start, text: pending.String()})
			pending.Reset()
		}
	}
	if pending.Len() > 0 {
		// unterminated quote: let the tokenizer report it
		out = append(out, flagfileLine{number: start, text: pending.String()})
	}
	return out
}

// quoteOpen reports whether s ends inside a single or double quote, using
// the same escaping rules as the shell tokenizer.
func quoteOpen(s string) bool {
	var single, double, escaped bool
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && !single:
			escaped = true
		case r == '\'' && !double:
			single = !single
		case r == '"' && !single:
			double = !double
		}
	}
	return single || double
}

// splitFlagfileLine tokenizes one line with shell quoting rules. Unquoted
// shell operators are rejected rather than silently truncating the line.
func splitFlagfileLine(line string) ([]string, error) {
	parser := shellwords.NewParser()
	words, err := parser.Parse(line)
	if err != nil {
		return nil, err
	}
	if parser.Position >= 0 {
		return nil, fmt.Errorf("unquoted shell operator at column %d", parser.Position+1)
	}
	return words, nil
}

// applyTokens is the token walk. It returns the unknown flags and the
// positional tail.
func (fv *FlagValues) applyTokens(tokens []argToken, knownOnly bool) ([]unknownFlag, []string, error) {
	var (
		leftovers []unknownFlag // name == "" marks a positional argument
		rest      []string
		undefok   = make(map[string]bool)
	)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		arg := tok.text

		if arg == "--" {
			if knownOnly {
				leftovers = append(leftovers, unknownFlag{arg: arg})
			}
			for _, t := range tokens[i+1:] {
				rest = append(rest, t.text)
			}
			break
		}

		if !strings.HasPrefix(arg, "-") || arg == "-" {
			leftovers = append(leftovers, unknownFlag{arg: arg})
			if fv.gnuGetopt {
				continue
			}
			for _, t := range tokens[i+1:] {
				rest = append(rest, t.text)
			}
			break
		}

		body := strings.TrimPrefix(arg, "-")
		if strings.HasPrefix(body, "-") {
			body = body[1:]
		}
		name, value, hasValue := strings.Cut(body, "=")
		if name == "" {
			leftovers = append(leftovers, unknownFlag{arg: arg})
			if fv.gnuGetopt {
				continue
			}
			for _, t := range tokens[i+1:] {
				rest = append(rest, t.text)
			}
			break
		}

		nextValue := func() (string, error) {
			if hasValue {
				return value, nil
			}
			if i+1 >= len(tokens) {
				return "", errors.New(ErrCodeMissingValue, fmt.Sprintf("flag --%s needs a value", name))
			}
			i++
			return tokens[i].text, nil
		}

		if name == "undefok" {
			v, err := nextValue()
			if err != nil {
				return nil, nil, err
			}
			for _, n := range strings.Split(v, ",") {
				if n = strings.TrimSpace(n); n != "" {
					undefok[n] = true
					undefok["no"+n] = true
				}
			}
			continue
		}

		f := fv.flags[name]
		switch {
		case f != nil && f.Boolean() && !hasValue:
			value = "true"
		case f != nil:
			v, err := nextValue()
			if err != nil {
				return nil, nil, err
			}
			value = v
		case strings.HasPrefix(name, "no") && len(name) > 2:
			if negated := fv.flags[name[2:]]; negated != nil && negated.Boolean() {
				if hasValue {
					return nil, nil, newIllegalFlagValueError(negated.name, value,
						fmt.Errorf("%s does not take an argument", "--"+name))
				}
				f = negated
				value = "false"
			}
		}

		if f == nil {
			leftovers = append(leftovers, unknownFlag{name: name, arg: arg})
			continue
		}

		old := f.Serialize()
		if err := f.Parse(value); err != nil {
			return nil, nil, err
		}
		fv.audit(EventFlagParsed, f, tok.source, old)
	}

	var unknown []unknownFlag
	var unparsed []string
	for _, l := range leftovers {
		switch {
		case l.name == "":
			unparsed = append(unparsed, l.arg)
		case undefok[l.name]:
			fv.logger.Debug("ignoring undefined flag listed in --undefok", "flag", l.name)
		case knownOnly:
			unparsed = append(unparsed, l.arg)
		case fv.config.AllowUndefined:
			fv.logger.Warn("ignoring undefined flag", "flag", l.name)
		default:
			unknown = append(unknown, l)
		}
	}
	unparsed = append(unparsed, rest...)
	return unknown, unparsed, nil
}
