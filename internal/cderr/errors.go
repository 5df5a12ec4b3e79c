// Package cderr defines the error kinds shared by every layer of the
// dictionary engine.
//
// Each kind has a sentinel for errors.Is checks and a typed error that carries
// the offending key, path or algorithm name.
package cderr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedValue is returned when a value cannot be represented by the
	// canonical encoding.
	ErrUnsupportedValue = errors.New("unsupported value")

	// ErrCorruptData is returned when bytes cannot be decompressed or do not
	// form a well-formed encoding or file.
	ErrCorruptData = errors.New("corrupt data")

	// ErrKeyNotFound is returned by lookups and deletions of absent keys.
	ErrKeyNotFound = errors.New("key not found")

	// ErrUnsupportedAlgorithm is returned for unknown compression identifiers.
	ErrUnsupportedAlgorithm = errors.New("unsupported compression algorithm")

	// ErrInvalidArgument is returned for contradictory or missing arguments.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicateKey is returned by strict merges when inputs share a key.
	ErrDuplicateKey = errors.New("duplicate key")
)

// UnsupportedValueError reports the location and Go type of a value that the
// canonical encoding cannot hold.
type UnsupportedValueError struct {
	Path   string // location inside the value, e.g. "$.items[3]"
	Type   string
	Reason string
}

func (e *UnsupportedValueError) Error() string {
	msg := fmt.Sprintf("unsupported value at %s", e.Path)
	if e.Type != "" {
		msg += fmt.Sprintf(" (type %s)", e.Type)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *UnsupportedValueError) Is(target error) bool { return target == ErrUnsupportedValue }

// CorruptDataError reports a decompression or framing failure.
type CorruptDataError struct {
	Op     string // "decompress", "decode", "load", ...
	Reason string
	Err    error
}

func (e *CorruptDataError) Error() string {
	msg := "corrupt data"
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptDataError) Is(target error) bool { return target == ErrCorruptData }

func (e *CorruptDataError) Unwrap() error { return e.Err }

// KeyNotFoundError reports an absent key.
type KeyNotFoundError struct {
	Key uint32
}

func (e *KeyNotFoundError) Error() string { return fmt.Sprintf("key %d not found", e.Key) }

func (e *KeyNotFoundError) Is(target error) bool { return target == ErrKeyNotFound }

// UnsupportedAlgorithmError reports an unknown compression identifier.
type UnsupportedAlgorithmError struct {
	Name string
}

func (e *UnsupportedAlgorithmError) Error() string {
	if e.Name == "" {
		return "unsupported compression algorithm: cannot infer algorithm"
	}
	return fmt.Sprintf("unsupported compression algorithm %q", e.Name)
}

func (e *UnsupportedAlgorithmError) Is(target error) bool { return target == ErrUnsupportedAlgorithm }

// InvalidArgumentError reports a bad argument to split, merge or a tool.
type InvalidArgumentError struct {
	Arg    string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	if e.Arg == "" {
		return "invalid argument: " + e.Reason
	}
	return fmt.Sprintf("invalid argument %s: %s", e.Arg, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// DuplicateKeyError reports a key present in more than one merge input.
type DuplicateKeyError struct {
	Key uint32
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %d: merge with reset keys or use inputs with disjoint keys", e.Key)
}

func (e *DuplicateKeyError) Is(target error) bool { return target == ErrDuplicateKey }

// Corrupt builds a CorruptDataError.
func Corrupt(op, reason string, err error) error {
	return &CorruptDataError{Op: op, Reason: reason, Err: err}
}

// InvalidArg builds an InvalidArgumentError.
func InvalidArg(arg, format string, args ...any) error {
	return &InvalidArgumentError{Arg: arg, Reason: fmt.Sprintf(format, args...)}
}

// ExitCode maps an error to a process exit status: 0 for nil, 2 for argument
// errors, 1 for every other failure.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidArgument):
		return 2
	default:
		return 1
	}
}
