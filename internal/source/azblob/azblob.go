// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package azblob implements a source reading the records stored in an Azure Storage blob.
package azblob

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/caarlos0/env/v11"

	"github.com/mia-platform/sluice/internal/logger"
	"github.com/mia-platform/sluice/internal/source"
	"github.com/mia-platform/sluice/internal/source/file"
)

const (
	loggerName = "sluice:source:azblob"
)

var (
	// ErrAzureBlobSource is the sentinel error for all Azure blob source errors.
	ErrAzureBlobSource = errors.New("azure blob source")
)

var _ source.Reader = &Reader{}

// Reader downloads a single blob on the first Read and decodes it as CSV or JSON Lines.
type Reader struct {
	client    *azblob.Client
	container string
	blob      string
	format    file.Format

	lock    sync.Mutex
	decoder source.Reader
	closed  bool
}

// NewReader returns a Reader configured from the environment. An empty format is guessed
// from the blob name.
func NewReader(format file.Format) (*Reader, error) {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		return nil, handleError(err)
	}
	if err := cfg.validate(); err != nil {
		return nil, handleError(err)
	}

	client, err := cfg.newClient()
	if err != nil {
		return nil, handleError(err)
	}
	return newReader(client, cfg.Container, cfg.Blob, format), nil
}

func newReader(client *azblob.Client, container, blob string, format file.Format) *Reader {
	if format == "" {
		format = file.FormatFromPath(blob)
	}

	return &Reader{
		client:    client,
		container: container,
		blob:      blob,
		format:    format,
	}
}

func (r *Reader) Read(ctx context.Context) (source.Unit, error) {
	decoder, err := r.open(ctx)
	if err != nil {
		return source.Unit{}, err
	}
	return decoder.Read(ctx)
}

func (r *Reader) open(ctx context.Context) (source.Reader, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.decoder != nil {
		return r.decoder, nil
	}
	if r.closed {
		return nil, handleError(errors.New("reader closed"))
	}

	log := logger.Named(ctx, loggerName)
	log.Debug("downloading blob", "container", r.container, "blob", r.blob, "format", r.format)

	resp, err := r.client.DownloadStream(ctx, r.container, r.blob, nil)
	if err != nil {
		return nil, handleError(err)
	}

	decoder, err := file.NewReader(resp.Body, r.format)
	if err != nil {
		resp.Body.Close()
		return nil, handleError(err)
	}

	r.decoder = decoder
	return decoder, nil
}

// Close releases the blob download, if one was started.
func (r *Reader) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.closed = true
	if r.decoder == nil {
		return nil
	}
	return r.decoder.Close()
}

// handleError always wraps the given error with ErrAzureBlobSource.
// Storage response errors are reduced to their status and error code.
func handleError(err error) error {
	if err == nil {
		return nil
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		err = fmt.Errorf("%s (%d)", respErr.ErrorCode, respErr.StatusCode)
	}

	return fmt.Errorf("%w: %w", ErrAzureBlobSource, err)
}
