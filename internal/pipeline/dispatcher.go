// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package pipeline

import (
	"context"
	"fmt"

	"github.com/mia-platform/sluice/internal/event"
	"github.com/mia-platform/sluice/internal/logger"
	"github.com/mia-platform/sluice/internal/record"
)

// deliver hands batch to the sink of destination, surrounded by the loading and loaded events.
// Delivery failures are logged and never retried.
func (p *Pipeline) deliver(ctx context.Context, destination *Destination, batch []record.Record) {
	if len(batch) == 0 {
		return
	}

	log := logger.Named(ctx, loggerName).With("destination", destination.Label(), "type", destination.Type.String())

	p.events.Emit(ctx, event.LoadingData, destination)
	log.Debug("delivering batch", "size", len(batch))
	if err := p.send(ctx, destination, batch); err != nil {
		log.Error("batch delivery failed", "size", len(batch), "error", err)
	} else {
		log.Debug("batch delivered", "size", len(batch))
	}
	p.events.Emit(ctx, event.LoadedData, destination)
}

func (p *Pipeline) send(ctx context.Context, destination *Destination, batch []record.Record) error {
	switch destination.Type {
	case KindPostgres, KindMSSQL, KindSQLite:
		inserter := p.sinks.Relational[destination.Type]
		if inserter == nil {
			return fmt.Errorf("%w: %s", ErrMissingSink, destination.Type)
		}
		setup, ok := destination.Setup.(RelationalSetup)
		if !ok {
			return &setupMismatchError{Kind: destination.Type, Setup: destination.Setup}
		}
		return inserter.Insert(ctx, batch, setup.Connection, setup.Table)
	case KindHTTP:
		if p.sinks.HTTP == nil {
			return fmt.Errorf("%w: %s", ErrMissingSink, destination.Type)
		}
		setup, ok := destination.Setup.(HTTPSetup)
		if !ok {
			return &setupMismatchError{Kind: destination.Type, Setup: destination.Setup}
		}
		return p.sinks.HTTP.Send(ctx, batch, setup)
	default:
		if p.sinks.Console == nil {
			return fmt.Errorf("%w: %s", ErrMissingSink, KindStdout)
		}
		p.sinks.Console.Print(ctx, batch)
		return nil
	}
}
