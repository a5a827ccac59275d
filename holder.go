// holder.go: Typed handles returned by flag definitions
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import "fmt"

// Holder is a typed handle on a registered flag. It looks the flag up by
// name on every access, so it follows overrides of the definition.
type Holder[T any] struct {
	fv   *FlagValues
	name string
}

// NewHolder returns a handle on an already registered flag.
func NewHolder[T any](fv *FlagValues, name string) (*Holder[T], error) {
	f := fv.Lookup(name)
	if f == nil {
		return nil, flagNotFoundError(name)
	}
	if f.value != nil || f.defaultValue != nil {
		probe := f.value
		if probe == nil {
			probe = f.defaultValue
		}
		if _, ok := probe.(T); !ok {
			return nil, definitionError("flag --%s holds %T, not the requested type", name, probe)
		}
	}
	return &Holder[T]{fv: fv, name: name}, nil
}

// Name returns the flag name the holder was created for.
func (h *Holder[T]) Name() string { return h.name }

// Flag returns the flag currently bound to the holder's name.
func (h *Holder[T]) Flag() *Flag { return h.fv.Lookup(h.name) }

// Get returns the current value, or an UnparsedFlagAccessError before the
// registry was parsed. An unset flag yields the zero T.
func (h *Holder[T]) Get() (T, error) {
	var zero T
	raw, err := h.fv.Get(h.name)
	if err != nil {
		return zero, err
	}
	if raw == nil {
		return zero, nil
	}
	v, ok := raw.(T)
	if !ok {
		return zero, definitionError("flag --%s holds %T, not %T", h.name, raw, zero)
	}
	return v, nil
}

// Value returns the current value. Reading a flag before Parse is a
// programming error and panics with *UnparsedFlagAccessError.
func (h *Holder[T]) Value() T {
	v, err := h.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// Default returns the parsed default, or the zero T when unset.
func (h *Holder[T]) Default() T {
	var zero T
	f := h.Flag()
	if f == nil {
		return zero
	}
	v, _ := f.Default().(T)
	return v
}

// Present returns how many values the command line supplied.
func (h *Holder[T]) Present() int {
	if f := h.Flag(); f != nil {
		return f.Present()
	}
	return 0
}

// Set assigns v through the registry, running the flag's validators.
func (h *Holder[T]) Set(v T) error { return h.fv.Set(h.name, v) }

// Serialize renders the current value as command-line tokens.
func (h *Holder[T]) Serialize() string {
	if f := h.Flag(); f != nil {
		return f.Serialize()
	}
	return ""
}

func (h *Holder[T]) String() string {
	return fmt.Sprintf("Holder(--%s)", h.name)
}
