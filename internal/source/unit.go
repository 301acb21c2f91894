// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package source

import (
	"context"
	"errors"

	"github.com/mia-platform/sluice/internal/record"
)

// ErrSkippable marks a read failure after which the source can still be read.
var ErrSkippable = errors.New("skippable source error")

//go:generate ${TOOLS_BIN}/stringer -type=UnitKind -trimprefix Unit
type UnitKind int

const (
	// UnitData is a generic record emitted by the source.
	UnitData UnitKind = iota
	// UnitRow is a row oriented record, like a line of a csv file.
	UnitRow
	// UnitHeader is an out of band value describing the following units.
	UnitHeader
)

// Unit is a single value produced by a Reader.
type Unit struct {
	Kind   UnitKind
	Record record.Record
	// Header is set only for UnitHeader units.
	Header any
}

// DataUnit returns a UnitData wrapping r.
func DataUnit(r record.Record) Unit {
	return Unit{Kind: UnitData, Record: r}
}

// RowUnit returns a UnitRow wrapping r.
func RowUnit(r record.Record) Unit {
	return Unit{Kind: UnitRow, Record: r}
}

// HeaderUnit returns a UnitHeader carrying header.
func HeaderUnit(header any) Unit {
	return Unit{Kind: UnitHeader, Header: header}
}

// Reader is a pull based producer of units.
type Reader interface {
	// Read blocks until the next unit is available. It returns io.EOF when the input is exhausted,
	// an error wrapping ErrSkippable for recoverable failures, or any other error for fatal ones.
	Read(ctx context.Context) (Unit, error)
	// Close releases the resources held by the reader.
	Close() error
}

// Committer is implemented by readers that acknowledge a unit to their upstream only once
// it has been received by a subscription.
type Committer interface {
	// Commit acknowledges the last unit returned by Read.
	Commit(ctx context.Context) error
}
