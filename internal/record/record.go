// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package record

import (
	"errors"
	"fmt"
	"iter"
	"maps"
)

// ErrGenerator wraps every failure raised while expanding a record.
var ErrGenerator = errors.New("record generator")

// Record is one keyed unit of data. The pipeline never inspects its fields.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// Generator expands one input record into a lazy, finite sequence of output records.
// Every call must return a fresh sequence. A non nil error stops the expansion.
type Generator func(Record) iter.Seq2[Record, error]

// Expand adapts a function returning a slice into a Generator.
func Expand(fn func(Record) ([]Record, error)) Generator {
	return func(input Record) iter.Seq2[Record, error] {
		return func(yield func(Record, error) bool) {
			output, err := fn(input)
			if err != nil {
				yield(nil, err)
				return
			}

			for _, r := range output {
				if !yield(r, nil) {
					return
				}
			}
		}
	}
}

// Map adapts a one-to-one transform into a Generator.
func Map(fn func(Record) (Record, error)) Generator {
	return Expand(func(input Record) ([]Record, error) {
		output, err := fn(input)
		if err != nil {
			return nil, err
		}
		return []Record{output}, nil
	})
}

// Collect drains the sequence produced by generator for input.
// All the produced records are discarded when the sequence yields an error or panics.
func Collect(generator Generator, input Record) (output []Record, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			output = nil
			err = fmt.Errorf("%w: panic: %v", ErrGenerator, recovered)
		}
	}()

	for r, genErr := range generator(input) {
		if genErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrGenerator, genErr)
		}
		output = append(output, r)
	}

	return output, nil
}
