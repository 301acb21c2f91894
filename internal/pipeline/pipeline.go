// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/mia-platform/sluice/internal/event"
	"github.com/mia-platform/sluice/internal/logger"
	"github.com/mia-platform/sluice/internal/record"
	"github.com/mia-platform/sluice/internal/source"
)

const (
	loggerName = "sluice:pipeline"
)

// Pipeline drives one source stream into a set of batched destinations.
type Pipeline struct {
	config *Configuration
	sinks  Sinks
	events *event.Hub[*Destination]
}

// New normalizes config and returns a Pipeline delivering through sinks.
// A nil config is treated as an empty one.
func New(config *Configuration, sinks Sinks) *Pipeline {
	if config == nil {
		config = &Configuration{}
	}
	config.Normalize()

	return &Pipeline{
		config: config,
		sinks:  sinks,
		events: event.New[*Destination](config.Verbose),
	}
}

// On registers handler for the events of kind.
func (p *Pipeline) On(kind event.Kind, handler event.Handler[*Destination]) {
	p.events.Register(kind, handler)
}

// Destinations returns the normalized destinations of the pipeline.
func (p *Pipeline) Destinations() []*Destination {
	return p.config.Destinations
}

// Run consumes stream until it stops being readable and returns the last header it emitted.
// Every full batch is delivered as soon as it is ready, and the partial batches left at the end
// are delivered once.
// Skippable read failures are logged and the run goes on. Any other failure ends the
// consumption: before the first unit it is returned wrapped in ErrSource, after it is logged
// and the partial batches are still delivered. The cancellation of ctx stops the run without
// the final delivery.
func (p *Pipeline) Run(ctx context.Context, stream source.Stream) (any, error) {
	log := logger.Named(ctx, loggerName)
	destinations := p.config.Destinations
	buffers := make([][]record.Record, len(destinations))

	var header any
	received := false
	log.Trace("consuming source", "destinations", len(destinations))
consume:
	for stream.Readable() {
		outcome, err := p.readUnit(ctx, stream)
		if outcome.Header != nil {
			header = outcome.Header
		}

		switch {
		case err == nil:
		case ctx.Err() != nil:
			log.Error("run cancelled, pending batches discarded", "error", err)
			return header, fmt.Errorf("%w: %w", ErrSource, err)
		case errors.Is(err, source.ErrSkippable):
			log.Warn("source unit skipped", "error", err)
			continue
		case !received:
			log.Error("source failed before the first unit", "error", err)
			return header, fmt.Errorf("%w: %w", ErrSource, err)
		default:
			log.Error("source failed, delivering pending batches", "error", err)
			break consume
		}

		received = received || outcome.Received

		for index, destination := range destinations {
			if index >= len(outcome.Data) {
				break
			}
			buffers[index] = append(buffers[index], outcome.Data[index]...)

			size := destination.BatchSize
			for len(buffers[index]) >= size {
				batch := buffers[index][:size:size]
				buffers[index] = buffers[index][size:]
				p.deliver(ctx, destination, batch)
			}
		}
	}

	log.Trace("source exhausted, flushing remaining batches")
	for index, destination := range destinations {
		p.deliver(ctx, destination, buffers[index])
	}

	log.Debug("pipeline completed")
	return header, nil
}
