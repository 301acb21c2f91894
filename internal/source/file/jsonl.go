// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mia-platform/sluice/internal/record"
	"github.com/mia-platform/sluice/internal/source"
)

var _ source.Reader = &JSONLReader{}

// JSONLReader emits one data unit for every JSON object found on its own line. Blank lines
// are ignored and lines that are not a JSON object are reported as skippable errors.
type JSONLReader struct {
	input  io.Reader
	reader *bufio.Reader
	line   int
}

// NewJSONLReader returns a JSONLReader decoding r.
func NewJSONLReader(r io.Reader) *JSONLReader {
	return &JSONLReader{
		input:  r,
		reader: bufio.NewReader(r),
	}
}

// Read implements source.Reader.
func (r *JSONLReader) Read(ctx context.Context) (source.Unit, error) {
	for {
		if err := ctx.Err(); err != nil {
			return source.Unit{}, err
		}

		line, err := r.reader.ReadBytes('\n')
		if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
			return source.Unit{}, err
		}
		r.line++

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var values record.Record
		if err := json.Unmarshal(line, &values); err != nil {
			return source.Unit{}, fmt.Errorf("%w: line %d: %w", source.ErrSkippable, r.line, err)
		}
		if values == nil {
			return source.Unit{}, fmt.Errorf("%w: line %d: null is not a record", source.ErrSkippable, r.line)
		}
		return source.DataUnit(values), nil
	}
}

// Close implements source.Reader.
func (r *JSONLReader) Close() error {
	return closeReader(r.input)
}
