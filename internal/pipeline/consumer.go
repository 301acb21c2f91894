// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package pipeline

import (
	"context"

	"github.com/mia-platform/sluice/internal/logger"
	"github.com/mia-platform/sluice/internal/record"
	"github.com/mia-platform/sluice/internal/source"
)

// unitOutcome is the result of a single readUnit call.
type unitOutcome struct {
	// Data holds the records produced for every destination, by position.
	Data [][]record.Record
	// Header is the last header signal seen while waiting for the unit.
	Header any
	// Received reports that a data or row unit arrived.
	Received bool
}

// readUnit subscribes to stream and waits for the next unit. The stream is paused as soon
// as the unit arrives, and the subscription is always closed before returning.
// The end of the stream resolves with empty buffers.
func (p *Pipeline) readUnit(ctx context.Context, stream source.Stream) (unitOutcome, error) {
	sub := stream.Subscribe()
	defer sub.Close()

	outcome := unitOutcome{}
	for {
		select {
		case <-ctx.Done():
			return outcome, ctx.Err()
		case header := <-sub.Header():
			outcome.Header = header
		case data := <-sub.Data():
			stream.Pause()
			outcome.Data = p.fanOut(ctx, data)
			outcome.Received = true
			return outcome, nil
		case row := <-sub.Rows():
			stream.Pause()
			outcome.Data = p.fanOut(ctx, row)
			outcome.Received = true
			return outcome, nil
		case <-sub.End():
			outcome.Data = make([][]record.Record, len(p.config.Destinations))
			return outcome, nil
		case err := <-sub.Err():
			return outcome, err
		}
	}
}

// fanOut expands input for every destination. A generator failure only drops the records
// of its own destination.
func (p *Pipeline) fanOut(ctx context.Context, input record.Record) [][]record.Record {
	destinations := p.config.Destinations
	if len(destinations) == 0 {
		return [][]record.Record{{input}}
	}

	log := logger.Named(ctx, loggerName)
	output := make([][]record.Record, len(destinations))
	for index, destination := range destinations {
		if destination.Generator == nil {
			output[index] = []record.Record{input}
			continue
		}

		records, err := record.Collect(destination.Generator, input.Clone())
		if err != nil {
			log.Error("unit dropped for destination", "destination", destination.Label(), "error", err)
			continue
		}
		output[index] = records
	}

	return output
}
