package skills

import (
	"errors"
	"fmt"
)

// Code is a skills error code as written to error cards.
type Code string

const (
	CodeFileProcessing    Code = "skills_file_processing_error"
	CodeInvalidFileSize   Code = "skills_invalid_file_size_error"
	CodeInvalidFileFormat Code = "skills_invalid_file_format_error"
	CodeInvalidEvent      Code = "skills_invalid_event_error"
	CodeNoInfoFound       Code = "skills_no_info_found"
	CodeInvocations       Code = "skills_invocations_error"
	CodeExternalAuth      Code = "skills_external_auth_error"
	CodeBilling           Code = "skills_billing_error"
	CodeUnknown           Code = "skills_unknown_error"
)

const (
	msgFileProcessing = "We're sorry, something went wrong with processing the file."
	msgInvalidSize    = "Something went wrong with processing the file. This file size is currently not supported."
	msgInvalidInfo    = "Something went wrong with processing the file. Invalid information received."
	msgNoInfoFound    = "We're sorry, no skills information was found."
	msgSkillFailure   = "Something went wrong with running this skill or fetching its data."
)

var messages = map[Code]string{
	CodeFileProcessing:    msgFileProcessing,
	CodeInvalidFileSize:   msgInvalidSize,
	CodeInvalidFileFormat: msgInvalidInfo,
	CodeInvalidEvent:      msgInvalidInfo,
	CodeNoInfoFound:       msgNoInfoFound,
	CodeInvocations:       msgSkillFailure,
	CodeExternalAuth:      msgSkillFailure,
	CodeBilling:           msgSkillFailure,
	CodeUnknown:           msgSkillFailure,
}

// Valid reports whether c is a known code.
func (c Code) Valid() bool {
	_, ok := messages[c]
	return ok
}

// Message returns the user-facing message for c. Unknown codes get the
// message of CodeUnknown.
func Message(c Code) string {
	if m, ok := messages[c]; ok {
		return m
	}
	return messages[CodeUnknown]
}

// ErrUnauthorizedReadClient is returned when the read token cannot download
// the basic format representation.
var ErrUnauthorizedReadClient = errors.New("the client provided is unauthorized, it should have read access to the file")

// Error is a skills failure tagged with a code. Transient marks failures
// that may succeed when the platform retries the invocation.
type Error struct {
	Code      Code
	Err       error
	Transient bool
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError tags err with code.
func NewError(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// NewTransientError tags err with code and marks it transient.
func NewTransientError(code Code, err error) *Error {
	return &Error{Code: code, Err: err, Transient: true}
}

// IsTransient reports whether err is a transient skills error.
func IsTransient(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Transient
}

// Errorf tags a formatted error with code.
func Errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// CodeOf extracts the code from err, or CodeUnknown when err carries none.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) && se.Code.Valid() {
		return se.Code
	}
	return CodeUnknown
}
