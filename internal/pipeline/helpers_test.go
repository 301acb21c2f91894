// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package pipeline

import (
	"context"

	"github.com/mia-platform/sluice/internal/record"
)

type delivery struct {
	target string
	batch  []record.Record
}

// recordingSink implements every sink interface and keeps the received batches in order.
type recordingSink struct {
	err        error
	journal    *[]string
	deliveries []delivery
}

func (s *recordingSink) Insert(_ context.Context, batch []record.Record, _, table string) error {
	s.record(table, batch)
	return s.err
}

func (s *recordingSink) Send(_ context.Context, batch []record.Record, setup HTTPSetup) error {
	s.record(setup.URL, batch)
	return s.err
}

func (s *recordingSink) Print(_ context.Context, batch []record.Record) {
	s.record(KindStdout.String(), batch)
}

func (s *recordingSink) record(target string, batch []record.Record) {
	if s.journal != nil {
		*s.journal = append(*s.journal, "deliver:"+target)
	}
	s.deliveries = append(s.deliveries, delivery{target: target, batch: batch})
}

func (s *recordingSink) sizes(target string) []int {
	sizes := make([]int, 0)
	for _, d := range s.deliveries {
		if d.target == target {
			sizes = append(sizes, len(d.batch))
		}
	}
	return sizes
}

func (s *recordingSink) records(target string) []record.Record {
	records := make([]record.Record, 0)
	for _, d := range s.deliveries {
		if d.target == target {
			records = append(records, d.batch...)
		}
	}
	return records
}

func (s *recordingSink) sinks() Sinks {
	return Sinks{
		Relational: map[Kind]BulkInserter{
			KindPostgres: s,
			KindMSSQL:    s,
			KindSQLite:   s,
		},
		HTTP:    s,
		Console: s,
	}
}

func ids(records []record.Record) []any {
	values := make([]any, 0, len(records))
	for _, r := range records {
		values = append(values, r["id"])
	}
	return values
}
