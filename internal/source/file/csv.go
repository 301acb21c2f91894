// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/mia-platform/sluice/internal/record"
	"github.com/mia-platform/sluice/internal/source"
)

var _ source.Reader = &CSVReader{}

// CSVReader emits the first row of the input as a header unit holding the column names,
// and every following row as a row unit keyed by column.
type CSVReader struct {
	input   io.Reader
	reader  *csv.Reader
	columns []string
}

// NewCSVReader returns a CSVReader decoding r.
func NewCSVReader(r io.Reader) *CSVReader {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	return &CSVReader{
		input:  r,
		reader: reader,
	}
}

// Read implements source.Reader.
func (r *CSVReader) Read(ctx context.Context) (source.Unit, error) {
	if err := ctx.Err(); err != nil {
		return source.Unit{}, err
	}

	row, err := r.reader.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return source.Unit{}, fmt.Errorf("%w: %w", source.ErrSkippable, parseErr)
		}
		return source.Unit{}, err
	}

	if r.columns == nil {
		r.columns = row
		return source.HeaderUnit(append([]string(nil), row...)), nil
	}

	values := make(record.Record, len(r.columns))
	for i, column := range r.columns {
		values[column] = row[i]
	}
	return source.RowUnit(values), nil
}

// Close implements source.Reader.
func (r *CSVReader) Close() error {
	return closeReader(r.input)
}
