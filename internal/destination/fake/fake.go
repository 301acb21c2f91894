// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"context"
	"sync"
	"testing"

	"github.com/mia-platform/sluice/internal/pipeline"
	"github.com/mia-platform/sluice/internal/record"
)

var (
	_ pipeline.BulkInserter  = &FakeSink{}
	_ pipeline.RequestSender = &FakeSink{}
	_ pipeline.Printer       = &FakeSink{}
)

// Batch is a delivery received by a FakeSink.
type Batch struct {
	// Target is the table, the url or "stdout", depending on the adapter called.
	Target  string
	Records []record.Record
}

// FakeSink records every batch it receives and returns Err from every fallible call.
type FakeSink struct {
	tb testing.TB

	Err error

	lock    sync.Mutex
	batches []Batch
}

// NewFakeSink returns an empty FakeSink.
func NewFakeSink(tb testing.TB) *FakeSink {
	tb.Helper()
	return &FakeSink{tb: tb}
}

// Sinks returns a pipeline.Sinks using f for every kind.
func (f *FakeSink) Sinks() pipeline.Sinks {
	return pipeline.Sinks{
		Relational: map[pipeline.Kind]pipeline.BulkInserter{
			pipeline.KindPostgres: f,
			pipeline.KindMSSQL:    f,
			pipeline.KindSQLite:   f,
		},
		HTTP:    f,
		Console: f,
	}
}

// Insert implements pipeline.BulkInserter.
func (f *FakeSink) Insert(_ context.Context, batch []record.Record, _, table string) error {
	f.tb.Helper()
	f.append(table, batch)
	return f.Err
}

// Send implements pipeline.RequestSender.
func (f *FakeSink) Send(_ context.Context, batch []record.Record, setup pipeline.HTTPSetup) error {
	f.tb.Helper()
	f.append(setup.URL, batch)
	return f.Err
}

// Print implements pipeline.Printer.
func (f *FakeSink) Print(_ context.Context, batch []record.Record) {
	f.tb.Helper()
	f.append(pipeline.KindStdout.String(), batch)
}

// Batches returns a copy of the received batches in delivery order.
func (f *FakeSink) Batches() []Batch {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]Batch(nil), f.batches...)
}

func (f *FakeSink) append(target string, batch []record.Record) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.batches = append(f.batches, Batch{Target: target, Records: batch})
}
