// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package relational

import (
	"context"
	"errors"

	"github.com/caarlos0/env/v11"
)

var (
	errUnsupportedKind   = errors.New("destination kind is not relational")
	errMissingConnection = errors.New("missing connection string")
	errMissingTable      = errors.New("missing table name")
)

// Error wraps every failure of the relational sinks.
type Error struct {
	Table string
	err   error
}

func (e *Error) Error() string {
	if len(e.Table) == 0 {
		return "relational: " + e.err.Error()
	}
	return "relational: " + e.Table + ": " + e.err.Error()
}

func (e *Error) Unwrap() error {
	return e.err
}

func handleError(table string, err error) error {
	var parseErr env.AggregateError
	if errors.As(err, &parseErr) {
		err = parseErr.Errors[0]
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	return &Error{
		Table: table,
		err:   err,
	}
}
