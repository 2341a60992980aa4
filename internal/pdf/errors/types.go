package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind identifies one of the error categories reported back to the calling agent
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindFile
	KindDependencyMissing
	KindFormat
	KindTimeout
	KindExtraction
)

// String returns the name the agent branches on
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindFile:
		return "FileError"
	case KindDependencyMissing:
		return "DependencyMissingError"
	case KindFormat:
		return "FormatError"
	case KindTimeout:
		return "TimeoutError"
	case KindExtraction:
		return "ExtractionError"
	default:
		return "InternalError"
	}
}

// Error is a classified failure. Detail carries raw diagnostic text (utility
// stderr) and is appended to the message for extraction failures.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Path    string `json:"file_path,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a classified error
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error, keeping it reachable through errors.Is/As
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, cause: err}
}

// WithDetail attaches diagnostic text
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithPath attaches the file path the error refers to
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// KindOf returns the kind of a classified error, or KindInternal for anything else
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is a classified error of the given kind
func Is(err error, kind Kind) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Kind == kind
}
