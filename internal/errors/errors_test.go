package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		expected string
	}{
		{
			name:     "with cause",
			appError: &AppError{Type: ErrorTypeStorage, Message: "put 'ada'", Err: errors.New("database is locked")},
			expected: "storage: put 'ada': database is locked",
		},
		{
			name:     "without cause",
			appError: &AppError{Type: ErrorTypePatch, Message: "test failed at /items/0"},
			expected: "patch: test failed at /items/0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appError.Error())
		})
	}
}

func TestAppError_UnwrapAndIs(t *testing.T) {
	cause := categoryErr("compile")
	appErr := NewValidationError("order.json does not match the schema", cause)

	assert.Equal(t, error(cause), appErr.Unwrap())
	assert.ErrorIs(t, appErr, &AppError{Type: ErrorTypeValidation, Message: "other"})
	assert.NotErrorIs(t, appErr, &AppError{Type: ErrorTypeCompile})
	assert.False(t, appErr.Is(errors.New("validation")))

	var target categoryErr
	require.ErrorAs(t, fmt.Errorf("cli: %w", appErr), &target)
	assert.Equal(t, "compile", target.Category())
}

func TestUserFriendlyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "input error",
			err:      NewInputError("failed to read file", nil),
			expected: "Input error: failed to read file",
		},
		{
			name:     "parsing error",
			err:      NewParsingError("invalid document", errors.New("unexpected token")),
			expected: "JSON parsing error: invalid document: unexpected token",
		},
		{
			name:     "validation error",
			err:      NewValidationError("document rejected", nil),
			expected: "Validation failed: document rejected",
		},
		{
			name:     "storage error",
			err:      NewStorageError("put failed", nil),
			expected: "Storage error: put failed",
		},
		{
			name:     "output error",
			err:      NewOutputError("failed to write output", nil),
			expected: "Output error: failed to write output",
		},
		{
			name:     "classified patch error",
			err:      &AppError{Type: ErrorTypePatch, Message: "apply"},
			expected: "Patch error: apply",
		},
		{
			name:     "standard error - empty input",
			err:      ErrEmptyInput,
			expected: "Error: The input is empty. Please provide valid JSON data.",
		},
		{
			name:     "standard error - no input",
			err:      ErrNoInput,
			expected: "Error: No input provided. Please specify a file or pipe JSON data to stdin.",
		},
		{
			name:     "unknown error",
			err:      errors.New("some unknown error"),
			expected: "Error: some unknown error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := UserFriendlyError(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

type categoryErr string

func (c categoryErr) Error() string    { return "category " + string(c) }
func (c categoryErr) Category() string { return string(c) }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"category", categoryErr("lex"), ErrorTypeLex},
		{"wrapped", fmt.Errorf("loading: %w", categoryErr("storage")), ErrorTypeStorage},
		{"unknown category", categoryErr("weather"), ErrorTypeUnknown},
		{"plain", errors.New("boom"), ErrorTypeUnknown},
		{"app error wins", NewOutputError("write", categoryErr("patch")), ErrorTypeOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeInput, "read"))

	err := Wrap(categoryErr("validation"), ErrorTypeInput, "check")
	assert.Equal(t, ErrorTypeValidation, err.Type)
	assert.Equal(t, "validation: check: category validation", err.Error())

	err = Wrap(errors.New("disk full"), ErrorTypeOutput, "write")
	assert.Equal(t, ErrorTypeOutput, err.Type)
	assert.ErrorIs(t, err, &AppError{Type: ErrorTypeOutput})
}
