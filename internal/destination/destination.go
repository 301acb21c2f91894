// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package destination

import (
	"context"
	"errors"
	"io"

	"github.com/mia-platform/sluice/internal/destination/httpsink"
	"github.com/mia-platform/sluice/internal/destination/relational"
	"github.com/mia-platform/sluice/internal/destination/writer"
	"github.com/mia-platform/sluice/internal/pipeline"
)

// Adapters owns the sink adapters of a run.
type Adapters struct {
	sinks   pipeline.Sinks
	closers []io.Closer
}

// New returns the adapters needed by destinations. The console sink always writes on stdout.
func New(ctx context.Context, destinations []*pipeline.Destination, stdout io.Writer) (*Adapters, error) {
	adapters := &Adapters{
		sinks: pipeline.Sinks{
			Relational: make(map[pipeline.Kind]pipeline.BulkInserter),
			Console:    writer.NewPrinter(stdout),
		},
	}

	for _, destination := range destinations {
		switch {
		case destination.Type.IsRelational():
			if _, ok := adapters.sinks.Relational[destination.Type]; ok {
				continue
			}

			inserter, err := relational.NewInserter(destination.Type)
			if err != nil {
				return nil, errors.Join(err, adapters.Close())
			}
			adapters.sinks.Relational[destination.Type] = inserter
			adapters.closers = append(adapters.closers, inserter)
		case destination.Type == pipeline.KindHTTP:
			if adapters.sinks.HTTP != nil {
				continue
			}

			sender, err := httpsink.NewSender(ctx)
			if err != nil {
				return nil, errors.Join(err, adapters.Close())
			}
			adapters.sinks.HTTP = sender
		}
	}

	return adapters, nil
}

// Sinks returns the adapters in the shape expected by pipeline.New.
func (a *Adapters) Sinks() pipeline.Sinks {
	return a.sinks
}

// Close releases the connections held by the adapters.
func (a *Adapters) Close() error {
	var errs []error
	for _, closer := range a.closers {
		errs = append(errs, closer.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
