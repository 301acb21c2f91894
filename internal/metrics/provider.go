// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type providerConfig struct {
	Endpoint string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Interval time.Duration `env:"SLUICE_METRICS_INTERVAL" envDefault:"15s"`
}

// Provider is a metric.MeterProvider that must be shut down at the end of the run.
type Provider struct {
	metric.MeterProvider
	shutdown func(context.Context) error
}

// Shutdown flushes the pending measurements and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.shutdown == nil {
		return nil
	}
	return p.shutdown(ctx)
}

// NewProvider returns a provider exporting through OTLP over HTTP when OTEL_EXPORTER_OTLP_ENDPOINT
// is set, and a no-op provider otherwise. The exporter reads the other standard OTEL_* variables.
func NewProvider(ctx context.Context) (*Provider, error) {
	config, err := env.ParseAs[providerConfig]()
	if err != nil {
		return nil, fmt.Errorf("reading metrics configuration: %w", err)
	}

	if len(config.Endpoint) == 0 {
		return &Provider{MeterProvider: noop.NewMeterProvider()}, nil
	}

	exporter, err := otlpmetrichttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(config.Interval))),
	)
	return &Provider{MeterProvider: provider, shutdown: provider.Shutdown}, nil
}
