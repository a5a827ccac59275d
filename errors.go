// errors.go: Error kinds for the Janus flag registry
//
// Every error returned by the registry carries a JANUS_* code through
// go-errors, so callers can either match the kind with errors.As or
// switch on the code with ErrorCode.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package janus

import (
	goerrors "errors"
	"fmt"
	"strings"

	"github.com/agilira/go-errors"
)

// Error codes for Janus operations
const (
	ErrCodeDuplicateFlag      = "JANUS_DUPLICATE_FLAG"
	ErrCodeUnrecognizedFlag   = "JANUS_UNRECOGNIZED_FLAG"
	ErrCodeIllegalFlagValue   = "JANUS_ILLEGAL_FLAG_VALUE"
	ErrCodeValidation         = "JANUS_VALIDATION_FAILED"
	ErrCodeUnparsedFlagAccess = "JANUS_UNPARSED_FLAG_ACCESS"
	ErrCodeCantOpenFlagFile   = "JANUS_CANT_OPEN_FLAGFILE"
	ErrCodeInvalidDefinition  = "JANUS_INVALID_DEFINITION"
	ErrCodeFlagNotFound       = "JANUS_FLAG_NOT_FOUND"
	ErrCodeReentrantParse     = "JANUS_REENTRANT_PARSE"
	ErrCodeMissingValue       = "JANUS_MISSING_VALUE"
	ErrCodeInvalidConfig      = "JANUS_INVALID_CONFIG"
	ErrCodeAuditError         = "JANUS_AUDIT_ERROR"
)

// ErrorCode returns the JANUS_* code carried by err, or "" when err does
// not carry one.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return string(coder.ErrorCode())
	}
	return ""
}

// DuplicateFlagError is returned when a name or short name is already bound
// to a different flag and neither definition allows overriding.
type DuplicateFlagError struct {
	FlagName        string
	ExistingModule  string
	DuplicateModule string
	cause           error
}

func newDuplicateFlagError(name, existingModule, duplicateModule string) *DuplicateFlagError {
	msg := fmt.Sprintf("the flag '%s' is defined twice. First from %s, Second from %s. "+
		"Description from first occurrence: see --help", name, existingModule, duplicateModule)
	return &DuplicateFlagError{
		FlagName:        name,
		ExistingModule:  existingModule,
		DuplicateModule: duplicateModule,
		cause:           errors.New(ErrCodeDuplicateFlag, msg),
	}
}

func (e *DuplicateFlagError) Error() string { return e.cause.Error() }
func (e *DuplicateFlagError) Unwrap() error { return e.cause }

// UnrecognizedFlagError is returned when argv names a flag that is not
// registered. Suggestions holds the closest known names, best first.
type UnrecognizedFlagError struct {
	FlagName    string
	FlagValue   string
	Suggestions []string
	cause       error
}

func newUnrecognizedFlagError(name, value string, suggestions []string) *UnrecognizedFlagError {
	msg := fmt.Sprintf("unknown command line flag '%s'", name)
	if len(suggestions) > 0 {
		msg += fmt.Sprintf(". Did you mean: %s ?", strings.Join(suggestions, ", "))
	}
	return &UnrecognizedFlagError{
		FlagName:    name,
		FlagValue:   value,
		Suggestions: suggestions,
		cause:       errors.New(ErrCodeUnrecognizedFlag, msg),
	}
}

func (e *UnrecognizedFlagError) Error() string { return e.cause.Error() }
func (e *UnrecognizedFlagError) Unwrap() error { return e.cause }

// IllegalFlagValueError is returned when a parser rejects a token or a
// single-flag validator rejects a value.
type IllegalFlagValueError struct {
	FlagName string
	Value    string
	cause    error
}

func newIllegalFlagValueError(name, value string, err error) *IllegalFlagValueError {
	msg := fmt.Sprintf("flag --%s=%s", name, value)
	var cause error
	if err != nil {
		cause = errors.Wrap(err, ErrCodeIllegalFlagValue, msg+": "+err.Error())
	} else {
		cause = errors.New(ErrCodeIllegalFlagValue, msg)
	}
	return &IllegalFlagValueError{FlagName: name, Value: value, cause: cause}
}

func (e *IllegalFlagValueError) Error() string { return e.cause.Error() }
func (e *IllegalFlagValueError) Unwrap() error { return e.cause }

// ValidationError is returned when a multi-flag validator fails.
type ValidationError struct {
	FlagNames []string
	Message   string
	cause     error
}

func newValidationError(names []string, described, message string) *ValidationError {
	return &ValidationError{
		FlagNames: names,
		Message:   message,
		cause:     errors.New(ErrCodeValidation, described+": "+message),
	}
}

func (e *ValidationError) Error() string { return e.cause.Error() }
func (e *ValidationError) Unwrap() error { return e.cause }

// UnparsedFlagAccessError is returned (or raised by Holder.Value) when a
// flag value is read before the registry was parsed.
type UnparsedFlagAccessError struct {
	FlagName string
	cause    error
}

func newUnparsedFlagAccessError(name string) *UnparsedFlagAccessError {
	msg := fmt.Sprintf("trying to access flag --%s before flags were parsed", name)
	return &UnparsedFlagAccessError{
		FlagName: name,
		cause:    errors.New(ErrCodeUnparsedFlagAccess, msg),
	}
}

func (e *UnparsedFlagAccessError) Error() string { return e.cause.Error() }
func (e *UnparsedFlagAccessError) Unwrap() error { return e.cause }

// CantOpenFlagFileError is returned when a flagfile cannot be read or
// tokenized, or when flagfiles nest deeper than the configured bound.
type CantOpenFlagFileError struct {
	Path  string
	cause error
}

func newCantOpenFlagFileError(path string, err error) *CantOpenFlagFileError {
	msg := fmt.Sprintf("unable to open flagfile %s", path)
	var cause error
	if err != nil {
		cause = errors.Wrap(err, ErrCodeCantOpenFlagFile, msg+": "+err.Error())
	} else {
		cause = errors.New(ErrCodeCantOpenFlagFile, msg)
	}
	return &CantOpenFlagFileError{Path: path, cause: cause}
}

func (e *CantOpenFlagFileError) Error() string { return e.cause.Error() }
func (e *CantOpenFlagFileError) Unwrap() error { return e.cause }

func definitionError(format string, args ...interface{}) error {
	return errors.New(ErrCodeInvalidDefinition, fmt.Sprintf(format, args...))
}

func flagNotFoundError(name string) error {
	return errors.New(ErrCodeFlagNotFound, fmt.Sprintf("flag --%s is not defined", name))
}
