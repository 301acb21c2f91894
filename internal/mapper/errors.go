// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mapper

import (
	"fmt"
)

var (
	_ error = &ParsingError{}
	_ error = &FieldError{}
)

const errTemplateParsing = "mapper template parsing error"

// ParsingError collects the field templates that cannot be parsed.
type ParsingError struct {
	msg string
	err error
}

// NewParsingError wraps err, usually the join of every template failure.
func NewParsingError(err error) *ParsingError {
	msg := errTemplateParsing
	if err != nil {
		msg += "\n" + err.Error()
	}

	return &ParsingError{msg: msg, err: err}
}

func (e *ParsingError) Error() string {
	return e.msg
}

func (e *ParsingError) Unwrap() error {
	return e.err
}

// Is reports two parsing errors as equal when they carry the same message.
func (e *ParsingError) Is(target error) bool {
	if e == nil || target == nil {
		return e == target
	}

	t, ok := target.(*ParsingError)
	return ok && e.Error() == t.Error()
}

// FieldError reports the output field whose template failed while mapping a record.
type FieldError struct {
	Field string
	err   error
}

func newFieldError(field string, err error) *FieldError {
	return &FieldError{Field: field, err: err}
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.err)
}

func (e *FieldError) Unwrap() error {
	return e.err
}
