package cderr_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/freeeve/cdict/internal/cderr"
)

func TestErrorKindsMatchSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{&cderr.UnsupportedValueError{Path: "$", Type: "chan int"}, cderr.ErrUnsupportedValue},
		{cderr.Corrupt("load", "short header", nil), cderr.ErrCorruptData},
		{&cderr.KeyNotFoundError{Key: 5}, cderr.ErrKeyNotFound},
		{&cderr.UnsupportedAlgorithmError{Name: "rar"}, cderr.ErrUnsupportedAlgorithm},
		{cderr.InvalidArg("parts", "must be positive"), cderr.ErrInvalidArgument},
		{&cderr.DuplicateKeyError{Key: 7}, cderr.ErrDuplicateKey},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("outer: %w", tc.err)
		assert.ErrorIs(t, wrapped, tc.sentinel, tc.err.Error())
	}
}

func TestCorruptUnwrapsCause(t *testing.T) {
	err := cderr.Corrupt("decompress", "", io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, cderr.ErrCorruptData)
	assert.Equal(t, "decompress: corrupt data: unexpected EOF", err.Error())
}

func TestKeyNotFoundMessage(t *testing.T) {
	var knf *cderr.KeyNotFoundError
	err := fmt.Errorf("get: %w", &cderr.KeyNotFoundError{Key: 42})
	assert.True(t, errors.As(err, &knf))
	assert.Equal(t, uint32(42), knf.Key)
	assert.Equal(t, "get: key 42 not found", err.Error())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, cderr.ExitCode(nil))
	assert.Equal(t, 2, cderr.ExitCode(cderr.InvalidArg("", "neither parts nor parts-length")))
	assert.Equal(t, 1, cderr.ExitCode(cderr.Corrupt("load", "bad magic", nil)))
	assert.Equal(t, 1, cderr.ExitCode(errors.New("disk full")))
}
