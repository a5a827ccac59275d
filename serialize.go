// serialize.go: Writing flag state back as command-line tokens
//
// The output is deterministic (modules sorted, flags sorted by name) so it
// can be fed back as a flagfile or used as a rebuild cache key.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	"os"
	"sort"
	"strings"

	"github.com/agilira/go-errors"
)

// FlagsIntoString serializes every flag with a non-nil value, one token per
// line, modules in sorted order and flags sorted by name within a module.
// Tokens are shell-quoted where needed so the result reads back as a
// flagfile unchanged.
func (fv *FlagValues) FlagsIntoString() string {
	modules := make([]string, 0, len(fv.flagsByModule))
	for module, list := range fv.flagsByModule {
		if len(list) > 0 {
			modules = append(modules, module)
		}
	}
	sort.Strings(modules)

	var b strings.Builder
	for _, module := range modules {
		flags := append([]*Flag(nil), fv.flagsByModule[module]...)
		sort.Slice(flags, func(i, j int) bool { return flags[i].name < flags[j].name })
		for _, f := range flags {
			if f.value == nil {
				continue
			}
			for _, token := range f.tokens(f.value) {
				b.WriteString(quoteFlagfileToken(token))
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

// AppendFlagsIntoFile appends FlagsIntoString to the file at path,
// creating it if needed.
func (fv *FlagValues) AppendFlagsIntoFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) // #nosec G304 - caller-chosen output path
	if err != nil {
		return errors.Wrap(err, ErrCodeCantOpenFlagFile, "cannot open "+path+" for appending")
	}
	if _, err := file.WriteString(fv.FlagsIntoString()); err != nil {
		_ = file.Close()
		return errors.Wrap(err, ErrCodeCantOpenFlagFile, "cannot write flags into "+path)
	}
	if err := file.Close(); err != nil {
		return errors.Wrap(err, ErrCodeCantOpenFlagFile, "cannot close "+path)
	}
	return nil
}

// quoteFlagfileToken single-quotes token unless every byte is safe to
// leave bare on a flagfile line.
func quoteFlagfileToken(token string) string {
	safe := true
	for _, r := range token {
		if !isBareFlagfileRune(r) {
			safe = false
			break
		}
	}
	if safe && token != "" {
		return token
	}
	return "'" + strings.ReplaceAll(token, "'", `'\''`) + "'"
}

func isBareFlagfileRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("-_=./,:@%+", r)
}
