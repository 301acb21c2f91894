// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package pipeline

import (
	"context"

	"github.com/mia-platform/sluice/internal/record"
)

// BulkInserter writes a batch of records into a relational table.
type BulkInserter interface {
	Insert(ctx context.Context, batch []record.Record, connection, table string) error
}

// RequestSender delivers a batch of records to an HTTP endpoint.
type RequestSender interface {
	Send(ctx context.Context, batch []record.Record, setup HTTPSetup) error
}

// Printer dumps a batch of records for diagnostic purposes. It never fails.
type Printer interface {
	Print(ctx context.Context, batch []record.Record)
}

// Sinks groups the adapters used by the dispatcher.
type Sinks struct {
	// Relational maps every relational Kind to its inserter.
	Relational map[Kind]BulkInserter
	HTTP       RequestSender
	Console    Printer
}
