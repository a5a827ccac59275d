// validators.go: Single-flag and multi-flag validators
//
// Validators run after every token of a Parse was consumed, and again for
// the affected flag whenever a value is assigned through Set or SetDefault.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	goerrors "errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

type validator struct {
	seq       int
	flagNames []string
	multi     bool
	check     func(values map[string]interface{}) error
}

func (fv *FlagValues) addValidator(names []string, multi bool, check func(map[string]interface{}) error) error {
	if len(names) == 0 {
		return definitionError("validator needs at least one flag name")
	}
	targets := make([]*Flag, 0, len(names))
	for _, name := range names {
		f := fv.flags[name]
		if f == nil {
			return flagNotFoundError(name)
		}
		targets = append(targets, f)
	}
	fv.validatorSeq++
	v := &validator{
		seq:       fv.validatorSeq,
		flagNames: append([]string(nil), names...),
		multi:     multi,
		check:     check,
	}
	for _, f := range targets {
		f.validators = append(f.validators, v)
	}
	return nil
}

// RegisterValidator attaches checker to the named flag. checker receives
// the current value and message is reported when it returns false.
func (fv *FlagValues) RegisterValidator(name string, checker func(value interface{}) bool, message string) error {
	if checker == nil {
		return definitionError("validator for --%s is nil", name)
	}
	return fv.addValidator([]string{name}, false, func(values map[string]interface{}) error {
		if checker(values[name]) {
			return nil
		}
		return goerrors.New(message)
	})
}

// RegisterValidatorFunc attaches fn to the named flag; a non-nil error
// rejects the value.
func (fv *FlagValues) RegisterValidatorFunc(name string, fn func(value interface{}) error) error {
	if fn == nil {
		return definitionError("validator for --%s is nil", name)
	}
	return fv.addValidator([]string{name}, false, func(values map[string]interface{}) error {
		return fn(values[name])
	})
}

// RegisterMultiFlagsValidator attaches checker to every named flag.
// checker receives the current values keyed by flag name.
func (fv *FlagValues) RegisterMultiFlagsValidator(names []string, checker func(values map[string]interface{}) bool, message string) error {
	if checker == nil {
		return definitionError("validator for %v is nil", names)
	}
	return fv.addValidator(names, true, func(values map[string]interface{}) error {
		if checker(values) {
			return nil
		}
		return goerrors.New(message)
	})
}

// RegisterMultiFlagsValidatorFunc is RegisterMultiFlagsValidator with an
// error-returning predicate.
func (fv *FlagValues) RegisterMultiFlagsValidatorFunc(names []string, fn func(values map[string]interface{}) error) error {
	if fn == nil {
		return definitionError("validator for %v is nil", names)
	}
	return fv.addValidator(names, true, fn)
}

// AddValidator attaches a typed checker to the flag behind h. An unset
// value is passed as the zero T.
func AddValidator[T any](h *Holder[T], checker func(value T) bool, message string) error {
	if h == nil {
		return definitionError("validator needs a flag holder")
	}
	return h.fv.RegisterValidator(h.name, func(value interface{}) bool {
		typed, _ := value.(T)
		return checker(typed)
	}, message)
}

// isSet reports whether a flag carries a meaningful value: not nil and not
// the zero value it was born with.
func isSet(f *Flag) bool {
	if f.value == nil {
		return false
	}
	return !(f.usingDefaultValue && isZeroValue(f.value))
}

func isZeroValue(v interface{}) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	}
	return rv.IsZero()
}

// MarkFlagAsRequired makes validation fail while the flag is unset.
func (fv *FlagValues) MarkFlagAsRequired(name string) error {
	f := fv.flags[name]
	if f == nil {
		return flagNotFoundError(name)
	}
	if f.defaultValue != nil && !isZeroValue(f.defaultValue) {
		fv.logger.Warn("required flag has a default value and always passes the check",
			"flag", name, "default", f.DefaultAsString())
	}
	return fv.addValidator([]string{name}, false, func(map[string]interface{}) error {
		if current := fv.flags[name]; current != nil && isSet(current) {
			return nil
		}
		return goerrors.New("flag --" + name + " must have a value")
	})
}

// MarkFlagsAsRequired marks every named flag as required.
func (fv *FlagValues) MarkFlagsAsRequired(names []string) error {
	for _, name := range names {
		if err := fv.MarkFlagAsRequired(name); err != nil {
			return err
		}
	}
	return nil
}

// MarkFlagsAsMutualExclusive allows at most one of names to be set, or
// exactly one when required is true.
func (fv *FlagValues) MarkFlagsAsMutualExclusive(names []string, required bool) error {
	return fv.markExclusive(names, required, isSet)
}

// MarkBoolFlagsAsMutualExclusive is MarkFlagsAsMutualExclusive for boolean
// flags, counting only those that are true.
func (fv *FlagValues) MarkBoolFlagsAsMutualExclusive(names []string, required bool) error {
	for _, name := range names {
		f := fv.flags[name]
		if f == nil {
			return flagNotFoundError(name)
		}
		if !f.Boolean() {
			return definitionError("flag --%s is not a boolean flag", name)
		}
	}
	return fv.markExclusive(names, required, func(f *Flag) bool {
		b, _ := f.value.(bool)
		return b
	})
}

func (fv *FlagValues) markExclusive(names []string, required bool, counts func(*Flag) bool) error {
	if len(names) < 2 {
		return definitionError("mutual exclusion needs at least two flags, got %v", names)
	}
	names = append([]string(nil), names...)
	quantifier := "at most"
	if required {
		quantifier = "exactly"
	}
	message := fmt.Sprintf("%s one of (%s) must be set", quantifier, strings.Join(names, ", "))
	return fv.addValidator(names, true, func(map[string]interface{}) error {
		n := 0
		for _, name := range names {
			if f := fv.flags[name]; f != nil && counts(f) {
				n++
			}
		}
		if n > 1 || (required && n == 0) {
			return goerrors.New(message)
		}
		return nil
	})
}

// ValidateAllFlags runs every validator of every registered flag and
// returns all failures joined, or nil.
func (fv *FlagValues) ValidateAllFlags() error {
	var all []*validator
	seen := make(map[*validator]bool)
	for _, f := range fv.distinctFlags() {
		for _, v := range f.validators {
			if !seen[v] {
				seen[v] = true
				all = append(all, v)
			}
		}
	}
	return fv.runValidators(all)
}

func (fv *FlagValues) assertFlagValidators(f *Flag) error {
	return fv.runValidators(f.validators)
}

func (fv *FlagValues) runValidators(validators []*validator) error {
	ordered := append([]*validator(nil), validators...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })

	var errs []error
	failed := make(map[string]bool)
	for _, v := range ordered {
		if v.multi {
			continue
		}
		name := v.flagNames[0]
		if failed[name] {
			continue
		}
		f := fv.flags[name]
		if f == nil {
			continue
		}
		if err := v.check(map[string]interface{}{name: f.value}); err != nil {
			failed[name] = true
			errs = append(errs, newIllegalFlagValueError(name, f.valueAsString(), err))
		}
	}
	for _, v := range ordered {
		if !v.multi {
			continue
		}
		skip := false
		values := make(map[string]interface{}, len(v.flagNames))
		described := make([]string, 0, len(v.flagNames))
		for _, name := range v.flagNames {
			f := fv.flags[name]
			if failed[name] || f == nil {
				skip = true
				break
			}
			values[name] = cloneValue(f.value)
			described = append(described, "--"+name+"="+f.valueAsString())
		}
		if skip {
			continue
		}
		if err := v.check(values); err != nil {
			errs = append(errs, newValidationError(v.flagNames, "flags "+strings.Join(described, ", "), err.Error()))
		}
	}
	return goerrors.Join(errs...)
}
