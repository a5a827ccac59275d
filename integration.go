// integration.go: Bridge between a janus registry and flash-flags
//
// FlashBridge mirrors the flags of a FlagValues into a flash-flags FlagSet,
// lets flash-flags parse argv (and its environment variables), then pulls
// the resulting values back into the registry and validates them together.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	"fmt"
	"sort"
	"strings"
	"time"

	flashflags "github.com/agilira/flash-flags"
	"github.com/agilira/go-errors"
)

// SourceFlash marks values pulled back from a flash-flags set.
const SourceFlash = "flash-flags"

// FlashBridge couples a registry with a flash-flags set.
type FlashBridge struct {
	fv       *FlagValues
	flags    *flashflags.FlagSet
	mirrored []*Flag
	skipped  []string
}

// NewFlashBridge mirrors every flag of fv whose type flash-flags can carry.
// Multi flags with non-string elements are left out and reported by Skipped.
func NewFlashBridge(fv *FlagValues, name string) *FlashBridge {
	b := &FlashBridge{fv: fv, flags: flashflags.New(name)}
	if usage := fv.config.Usage; usage != "" {
		b.flags.SetDescription(usage)
	}
	for _, f := range fv.Flags() {
		if b.mirror(f) {
			b.mirrored = append(b.mirrored, f)
		} else {
			b.skipped = append(b.skipped, f.name)
		}
	}
	return b
}

// SetEnvPrefix lets flash-flags read PREFIX_NAME environment variables.
func (b *FlashBridge) SetEnvPrefix(prefix string) *FlashBridge {
	b.flags.SetEnvPrefix(strings.ToUpper(prefix))
	return b
}

// SetVersion sets the version flash-flags prints in its help.
func (b *FlashBridge) SetVersion(version string) *FlashBridge {
	b.flags.SetVersion(version)
	return b
}

// FlagSet exposes the underlying flash-flags set.
func (b *FlashBridge) FlagSet() *flashflags.FlagSet { return b.flags }

// Skipped lists the flags that could not be mirrored.
func (b *FlashBridge) Skipped() []string { return append([]string(nil), b.skipped...) }

// Mirrored lists the names of the mirrored flags, sorted.
func (b *FlashBridge) Mirrored() []string {
	names := make([]string, 0, len(b.mirrored))
	b.flags.VisitAll(func(flag *flashflags.Flag) {
		names = append(names, flag.Name())
	})
	sort.Strings(names)
	return names
}

func (b *FlashBridge) mirror(f *Flag) bool {
	help := f.help
	switch current := f.value.(type) {
	case bool:
		b.flags.Bool(f.name, current, help)
	case int:
		b.flags.Int(f.name, current, help)
	case float64:
		b.flags.String(f.name, f.valueAsString(), help)
	case time.Duration:
		b.flags.Duration(f.name, current, help)
	case string:
		b.flags.String(f.name, current, help)
	case []string:
		b.flags.StringSlice(f.name, append([]string(nil), current...), help)
	case nil:
		switch f.Type() {
		case "string", "enum":
			b.flags.String(f.name, "", help)
		default:
			return false
		}
	default:
		return false
	}
	return true
}

// Parse runs flash-flags over args and copies every value that changed
// back into the registry. Pulled values go through the janus parser again,
// so bounds and enum vocabularies still apply. The copied flags are then
// validated together and the registry is marked as parsed.
func (b *FlashBridge) Parse(args []string) error {
	if err := b.flags.Parse(args); err != nil {
		return errors.Wrap(err, ErrCodeIllegalFlagValue, "flash-flags parse failed")
	}

	var changed []string
	for _, f := range b.mirrored {
		tokens, ok := b.pull(f)
		if !ok {
			continue
		}
		if f.value != nil && strings.Join(tokens, "\x00") == strings.Join(f.codec.serialize(f.value), "\x00") {
			continue
		}
		old := f.Serialize()
		f.Unparse()
		for _, token := range tokens {
			if err := f.Parse(token); err != nil {
				return err
			}
		}
		f.usingDefaultValue = false
		b.fv.audit(EventFlagParsed, f, SourceFlash, old)
		changed = append(changed, f.name)
	}

	b.fv.parsed = true
	if len(changed) > 0 {
		b.fv.logger.Debug("values pulled from flash-flags", "flags", strings.Join(changed, ","))
	}
	return b.fv.ValidateFlags(changed)
}

// pull reads a mirrored flag back as janus command-line tokens.
func (b *FlashBridge) pull(f *Flag) ([]string, bool) {
	switch f.value.(type) {
	case bool:
		return []string{fmt.Sprint(b.flags.GetBool(f.name))}, true
	case int:
		return []string{fmt.Sprint(b.flags.GetInt(f.name))}, true
	case time.Duration:
		return []string{b.flags.GetDuration(f.name).String()}, true
	case []string:
		values := b.flags.GetStringSlice(f.name)
		if f.Multi() {
			return values, true
		}
		return f.codec.serialize(values), true
	case string, float64, nil:
		v := b.flags.GetString(f.name)
		if f.value == nil && v == "" {
			return nil, false
		}
		return []string{v}, true
	}
	return nil, false
}

// PrintHelp prints the flash-flags rendition of the help.
func (b *FlashBridge) PrintHelp() { b.flags.PrintHelp() }

// String describes the bridge.
func (b *FlashBridge) String() string {
	return fmt.Sprintf("FlashBridge{mirrored: %d, skipped: %d}", len(b.mirrored), len(b.skipped))
}
