package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrDecode   = errors.New("malformed content")
	ErrSchema   = errors.New("schema violation")
	ErrIO       = errors.New("write failed")
)

// NotFoundError reports a missing input file.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, ErrNotFound)
}

func (e *NotFoundError) Unwrap() error        { return e.Err }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DecodeError reports input that is not well-formed JSON of the expected shape.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%v: %v", ErrDecode, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Path, ErrDecode, e.Err)
}

func (e *DecodeError) Unwrap() error        { return e.Err }
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// SchemaError reports a results document, or one of its questions, that is
// missing required fields or carries values outside their domain.
// Question is the zero-based question index, -1 for document-level problems.
type SchemaError struct {
	Question int
	Title    string
	Field    string
	Reason   string
}

func (e *SchemaError) Error() string {
	where := "document"
	if e.Question >= 0 {
		where = fmt.Sprintf("question %d", e.Question)
		if e.Title != "" {
			where += fmt.Sprintf(" (%q)", e.Title)
		}
	}
	return fmt.Sprintf("%v: %s: field %s: %s", ErrSchema, where, e.Field, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// IOError reports a failed write of an output file.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Path, ErrIO, e.Err)
}

func (e *IOError) Unwrap() error        { return e.Err }
func (e *IOError) Is(target error) bool { return target == ErrIO }
