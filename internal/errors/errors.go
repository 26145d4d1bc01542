package errors

import (
	"errors"
	"fmt"
)

// Standard application errors
var (
	ErrEmptyInput      = errors.New("input is empty or contains only whitespace")
	ErrFileNotFound    = errors.New("file not found")
	ErrFileEmpty       = errors.New("file is empty")
	ErrNoInput         = errors.New("no input provided: please specify a file or pipe JSON data to stdin")
	ErrInvalidFilePath = errors.New("invalid file path")
	ErrDocumentsDiffer = errors.New("documents differ")
)

// ErrorType categorizes errors
type ErrorType string

const (
	ErrorTypeInput      ErrorType = "input"
	ErrorTypeLex        ErrorType = "lex"
	ErrorTypeParsing    ErrorType = "parsing"
	ErrorTypeSerialize  ErrorType = "serialize"
	ErrorTypeConversion ErrorType = "conversion"
	ErrorTypeCompile    ErrorType = "compile"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypePatch      ErrorType = "patch"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeOutput     ErrorType = "output"
	ErrorTypeUnknown    ErrorType = "unknown"
)

var knownTypes = map[string]ErrorType{
	string(ErrorTypeInput):      ErrorTypeInput,
	string(ErrorTypeLex):        ErrorTypeLex,
	string(ErrorTypeParsing):    ErrorTypeParsing,
	string(ErrorTypeSerialize):  ErrorTypeSerialize,
	string(ErrorTypeConversion): ErrorTypeConversion,
	string(ErrorTypeCompile):    ErrorTypeCompile,
	string(ErrorTypeValidation): ErrorTypeValidation,
	string(ErrorTypePatch):      ErrorTypePatch,
	string(ErrorTypeStorage):    ErrorTypeStorage,
	string(ErrorTypeOutput):     ErrorTypeOutput,
}

// AppError is an application-specific error with context
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for comparison
func (e *AppError) Is(target error) bool {
	// Check if target is also an *AppError and if the types match
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// categorized is implemented by the domain errors of every engine package.
type categorized interface {
	Category() string
}

// Classify returns the ErrorType of the first error in err's chain that
// names its category, or ErrorTypeUnknown.
func Classify(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	var c categorized
	if errors.As(err, &c) {
		if t, ok := knownTypes[c.Category()]; ok {
			return t
		}
	}
	return ErrorTypeUnknown
}

// Wrap attaches a message to err under the type Classify picks for it.
// fallback is used when err carries no category.
func Wrap(err error, fallback ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	t := Classify(err)
	if t == ErrorTypeUnknown {
		t = fallback
	}
	return &AppError{Type: t, Message: message, Err: err}
}

// NewInputError creates a new error related to input processing
func NewInputError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInput,
		Message: message,
		Err:     err,
	}
}

// NewParsingError creates a new error related to JSON parsing
func NewParsingError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeParsing,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a new error for a document a schema rejects
func NewValidationError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Err:     err,
	}
}

// NewStorageError creates a new error related to the document store
func NewStorageError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeStorage,
		Message: message,
		Err:     err,
	}
}

// NewOutputError creates a new error related to output processing
func NewOutputError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeOutput,
		Message: message,
		Err:     err,
	}
}

// UserFriendlyError returns a user-friendly error message
func UserFriendlyError(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		msg := appErr.Message
		if appErr.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, appErr.Err)
		}
		switch appErr.Type {
		case ErrorTypeInput:
			return fmt.Sprintf("Input error: %s", msg)
		case ErrorTypeLex:
			return fmt.Sprintf("JSON syntax error: %s", msg)
		case ErrorTypeParsing:
			return fmt.Sprintf("JSON parsing error: %s", msg)
		case ErrorTypeSerialize:
			return fmt.Sprintf("Serialization error: %s", msg)
		case ErrorTypeConversion:
			return fmt.Sprintf("Conversion error: %s", msg)
		case ErrorTypeCompile:
			return fmt.Sprintf("Compile error: %s", msg)
		case ErrorTypeValidation:
			return fmt.Sprintf("Validation failed: %s", msg)
		case ErrorTypePatch:
			return fmt.Sprintf("Patch error: %s", msg)
		case ErrorTypeStorage:
			return fmt.Sprintf("Storage error: %s", msg)
		case ErrorTypeOutput:
			return fmt.Sprintf("Output error: %s", msg)
		default:
			return fmt.Sprintf("Error: %s", msg)
		}
	}

	// Handle standard errors
	if errors.Is(err, ErrEmptyInput) {
		return "Error: The input is empty. Please provide valid JSON data."
	}
	if errors.Is(err, ErrFileNotFound) {
		return "Error: The specified file could not be found. Please check the file path."
	}
	if errors.Is(err, ErrFileEmpty) {
		return "Error: The specified file is empty. Please provide a file with valid JSON content."
	}
	if errors.Is(err, ErrNoInput) {
		return "Error: No input provided. Please specify a file or pipe JSON data to stdin."
	}
	if errors.Is(err, ErrInvalidFilePath) {
		return "Error: Invalid file path. Please provide a valid file path."
	}
	if errors.Is(err, ErrDocumentsDiffer) {
		return "Error: The documents differ."
	}

	// Generic error message for unknown errors
	return fmt.Sprintf("Error: %v", err)
}
