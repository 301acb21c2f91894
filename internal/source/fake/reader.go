// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mia-platform/sluice/internal/record"
	"github.com/mia-platform/sluice/internal/source"
)

// Step is a single scripted result returned by a Reader.
type Step struct {
	Unit source.Unit
	Err  error
}

// Data returns a Step producing a data unit.
func Data(r record.Record) Step {
	return Step{Unit: source.DataUnit(r)}
}

// Row returns a Step producing a row unit.
func Row(r record.Record) Step {
	return Step{Unit: source.RowUnit(r)}
}

// Header returns a Step producing a header unit.
func Header(header any) Step {
	return Step{Unit: source.HeaderUnit(header)}
}

// Failure returns a Step producing err.
func Failure(err error) Step {
	return Step{Err: err}
}

var _ source.Reader = &Reader{}

// Reader replays a fixed list of steps and then returns io.EOF.
type Reader struct {
	tb testing.TB

	lock   sync.Mutex
	steps  []Step
	reads  atomic.Int64
	closed atomic.Bool
	block  bool
}

// NewReader returns a Reader replaying steps.
func NewReader(tb testing.TB, steps ...Step) *Reader {
	tb.Helper()
	return &Reader{tb: tb, steps: steps}
}

// NewBlockingReader returns a Reader that, once the steps are exhausted, blocks until the
// context is cancelled instead of returning io.EOF.
func NewBlockingReader(tb testing.TB, steps ...Step) *Reader {
	tb.Helper()
	return &Reader{tb: tb, steps: steps, block: true}
}

// Records returns count data steps, each carrying an "id" field with its position.
func Records(count int) []Step {
	steps := make([]Step, 0, count)
	for i := range count {
		steps = append(steps, Data(record.Record{"id": i}))
	}
	return steps
}

// Read implements source.Reader.
func (r *Reader) Read(ctx context.Context) (source.Unit, error) {
	r.lock.Lock()
	if len(r.steps) == 0 {
		r.lock.Unlock()
		if r.block {
			<-ctx.Done()
			return source.Unit{}, ctx.Err()
		}
		return source.Unit{}, io.EOF
	}

	step := r.steps[0]
	r.steps = r.steps[1:]
	r.lock.Unlock()

	r.reads.Add(1)
	return step.Unit, step.Err
}

// Close implements source.Reader.
func (r *Reader) Close() error {
	r.closed.Store(true)
	return nil
}

// Reads returns how many steps have been consumed so far.
func (r *Reader) Reads() int {
	return int(r.reads.Load())
}

// Closed reports whether Close has been called.
func (r *Reader) Closed() bool {
	return r.closed.Load()
}

// NewStream returns a source.Emitter replaying steps. The emitter is closed at the end of the test.
func NewStream(tb testing.TB, steps ...Step) *source.Emitter {
	tb.Helper()
	emitter := source.NewEmitter(NewReader(tb, steps...))
	tb.Cleanup(func() { _ = emitter.Close() })
	return emitter
}
