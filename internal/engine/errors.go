package engine

import (
	"errors"
	"fmt"
)

// InputError is returned when a caller violates an operation's contract.
// The engine state is unchanged whenever an InputError is returned.
type InputError struct {
	// Code identifies the error category.
	Code InputErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context (lengths, offending ids).
	Details map[string]string
}

// InputErrorCode categorizes invalid input.
type InputErrorCode string

const (
	// ErrCodeLengthMismatch: an opinion or timestamp vector is not length N.
	ErrCodeLengthMismatch InputErrorCode = "LENGTH_MISMATCH"

	// ErrCodeEmptyGroup: a partition subgroup has no members.
	ErrCodeEmptyGroup InputErrorCode = "EMPTY_GROUP"

	// ErrCodeNoGroups: a partition was resolved with no subgroups at all.
	ErrCodeNoGroups InputErrorCode = "NO_GROUPS"

	// ErrCodeUnknownGranule: a granule id has no rank in the priority map.
	ErrCodeUnknownGranule InputErrorCode = "UNKNOWN_GRANULE"

	// ErrCodeInvalidConfig: granule count, alpha, beta or priority map is out of range.
	ErrCodeInvalidConfig InputErrorCode = "INVALID_CONFIG"

	// ErrCodeNonFinite: an opinion is NaN or infinite.
	ErrCodeNonFinite InputErrorCode = "NON_FINITE"

	// ErrCodeDriftOverflow: a round's drift contribution or the resulting
	// drift and weights are outside the range of float64.
	ErrCodeDriftOverflow InputErrorCode = "DRIFT_OVERFLOW"
)

// Error implements the error interface.
func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInputError reports whether err is (or wraps) an *InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// HasCode reports whether err is (or wraps) an *InputError with the given code.
func HasCode(err error, code InputErrorCode) bool {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie.Code == code
	}
	return false
}

// CodeOf returns the InputErrorCode carried by err, or "" if err is not an
// *InputError.
func CodeOf(err error) InputErrorCode {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}

func newLengthError(what string, got, want int) *InputError {
	return &InputError{
		Code:    ErrCodeLengthMismatch,
		Message: fmt.Sprintf("%s has length %d, expected %d", what, got, want),
		Details: map[string]string{
			"input": what,
			"got":   fmt.Sprintf("%d", got),
			"want":  fmt.Sprintf("%d", want),
		},
	}
}

func newConfigError(format string, args ...any) *InputError {
	return &InputError{
		Code:    ErrCodeInvalidConfig,
		Message: fmt.Sprintf(format, args...),
	}
}
