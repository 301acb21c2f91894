// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mia-platform/sluice/internal/event"
	"github.com/mia-platform/sluice/internal/info"
	"github.com/mia-platform/sluice/internal/pipeline"
)

const (
	loadingCounterName   = "sluice.batches.loading"
	deliveredCounterName = "sluice.batches.delivered"
	durationName         = "sluice.batches.duration"
)

// Recorder turns the pipeline events into metric measurements.
type Recorder struct {
	loading   metric.Int64Counter
	delivered metric.Int64Counter
	duration  metric.Float64Histogram

	lock    sync.Mutex
	started map[*pipeline.Destination]time.Time
}

// NewRecorder creates the instruments on a meter obtained from provider.
func NewRecorder(provider metric.MeterProvider) (*Recorder, error) {
	meter := provider.Meter(info.AppName, metric.WithInstrumentationVersion(info.Version))

	loading, err := meter.Int64Counter(loadingCounterName,
		metric.WithDescription("Number of batches handed to a sink"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", loadingCounterName, err)
	}

	delivered, err := meter.Int64Counter(deliveredCounterName,
		metric.WithDescription("Number of completed delivery attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", deliveredCounterName, err)
	}

	duration, err := meter.Float64Histogram(durationName,
		metric.WithDescription("Duration of the delivery attempts in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", durationName, err)
	}

	return &Recorder{
		loading:   loading,
		delivered: delivered,
		duration:  duration,
		started:   make(map[*pipeline.Destination]time.Time),
	}, nil
}

// Register subscribes the recorder to the lifecycle events of p.
func (r *Recorder) Register(p *pipeline.Pipeline) {
	p.On(event.LoadingData, r.onLoading)
	p.On(event.LoadedData, r.onLoaded)
}

func (r *Recorder) onLoading(ctx context.Context, destination *pipeline.Destination) error {
	r.lock.Lock()
	r.started[destination] = time.Now()
	r.lock.Unlock()

	r.loading.Add(ctx, 1, metric.WithAttributes(attributes(destination)...))
	return nil
}

func (r *Recorder) onLoaded(ctx context.Context, destination *pipeline.Destination) error {
	r.lock.Lock()
	start, ok := r.started[destination]
	delete(r.started, destination)
	r.lock.Unlock()

	attrs := metric.WithAttributes(attributes(destination)...)
	r.delivered.Add(ctx, 1, attrs)
	if ok {
		r.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
	return nil
}

func attributes(destination *pipeline.Destination) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("destination", destination.Label()),
		attribute.String("kind", destination.Type.String()),
	}
}
