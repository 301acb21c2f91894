// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mia-platform/sluice/internal/config"
	"github.com/mia-platform/sluice/internal/destination"
	"github.com/mia-platform/sluice/internal/logger"
	"github.com/mia-platform/sluice/internal/metrics"
	"github.com/mia-platform/sluice/internal/pipeline"
	"github.com/mia-platform/sluice/internal/source"
	"github.com/mia-platform/sluice/internal/source/file"
)

const (
	loggerName = "sluice:run"
)

// options configures a single pipeline run.
type options struct {
	sourceName string
	configPath string
	inputPath  string
	formatName string
	format     file.Format
	verbose    bool
	stdout     io.Writer

	sourceGetter func(context.Context, *options) (source.Reader, error)

	lock sync.Mutex
}

// validate checks the configured values and reports invalid setups.
func (o *options) validate() error {
	if o.sourceName == "" {
		return errNoArguments
	}

	if _, ok := availableSources[o.sourceName]; !ok {
		return fmt.Errorf("%w: %s", errInvalidSource, o.sourceName)
	}

	if o.formatName != "" {
		format, err := file.ParseFormat(o.formatName)
		if err != nil {
			return err
		}
		o.format = format
	} else if o.sourceName == "file" {
		o.format = file.FormatFromPath(o.inputPath)
	}

	return nil
}

// configuration loads the configuration file, when one is set.
func (o *options) configuration() (*pipeline.Configuration, error) {
	cfg := &pipeline.Configuration{}
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.Verbose = cfg.Verbose || o.verbose
	cfg.Normalize()
	return cfg, nil
}

// execute runs the pipeline until the source ends. An interrupt signal ends the source,
// so the partial batches are still delivered.
func (o *options) execute(ctx context.Context) error {
	if !o.lock.TryLock() {
		return nil
	}
	defer o.lock.Unlock()

	log := logger.Named(ctx, loggerName)

	cfg, err := o.configuration()
	if err != nil {
		return err
	}

	adapters, err := destination.New(ctx, cfg.Destinations, o.stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := adapters.Close(); err != nil {
			log.Error("closing destinations", "error", err)
		}
	}()

	p := pipeline.New(cfg, adapters.Sinks())

	provider, err := metrics.NewProvider(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Error("flushing metrics", "error", err)
		}
	}()

	recorder, err := metrics.NewRecorder(provider)
	if err != nil {
		return err
	}
	recorder.Register(p)

	reader, err := o.sourceGetter(ctx, o)
	if err != nil {
		return err
	}
	stream := source.NewEmitter(reader)
	defer func() {
		if err := stream.Close(); err != nil {
			log.Error("closing source", "error", err)
		}
	}()

	stopSource := closeOnSignal(ctx, stream)
	defer stopSource()

	log.Info("pipeline started", "source", o.sourceName, "destinations", len(cfg.Destinations))
	header, err := p.Run(ctx, stream)
	if err != nil {
		return err
	}

	if header != nil {
		fmt.Fprintf(o.stdout, "Header: %v\n", header)
	}
	log.Info("pipeline completed", "source", o.sourceName)
	return nil
}

// closeOnSignal closes stream when the process receives an interrupt or termination signal.
// The returned function releases the signal handler.
func closeOnSignal(ctx context.Context, stream io.Closer) func() {
	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case <-signalCtx.Done():
			if ctx.Err() == nil {
				logger.Named(ctx, loggerName).Info("signal received, ending the source")
				if err := stream.Close(); err != nil && !errors.Is(err, io.EOF) {
					logger.Named(ctx, loggerName).Warn("closing source", "error", err)
				}
			}
		case <-done:
		}
	}()

	return func() {
		close(done)
		stop()
	}
}
