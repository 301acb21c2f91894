// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mia-platform/sluice/internal/server"
	"github.com/mia-platform/sluice/internal/source"
	"github.com/mia-platform/sluice/internal/source/azblob"
	"github.com/mia-platform/sluice/internal/source/file"
	"github.com/mia-platform/sluice/internal/source/kafka"
	"github.com/mia-platform/sluice/internal/source/pubsub"
	"github.com/mia-platform/sluice/internal/source/webhook"
)

var (
	errNoArguments   = errors.New("no source name provided")
	errInvalidSource = errors.New("invalid source name provided")

	// availableSources holds the list of available sources and their description
	// for command completion and help messages.
	availableSources = map[string]string{
		"file":    "CSV or JSON Lines file, or the standard input",
		"webhook": "records pushed over HTTP",
		"pubsub":  "Google Cloud Pub/Sub subscription",
		"kafka":   "Kafka topic",
		"azblob":  "Azure Storage blob",
	}
)

// handleError will do custom print error handling based on the type of error received.
// it will return nil if the command must return 0 exit code, otherwise it will return
// the original error.
func handleError(cmd *cobra.Command, err error) error {
	switch {
	case errors.Is(err, errNoArguments):
		_ = cmd.Usage() // do not check error as we cannot do much about it
		return nil
	case errors.Is(err, errInvalidSource):
		cmd.PrintErrln(err)
		_ = cmd.Usage() // do not check error as we cannot do much about it
		return err
	default:
		cmd.PrintErrln(err)
		return err
	}
}

func validArgsFunc(sources map[string]string) cobra.CompletionFunc {
	return func(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var comps []string
		if len(args) == 0 {
			for name, description := range sources {
				if strings.HasPrefix(name, toComplete) {
					comps = append(comps, cobra.CompletionWithDesc(name, description))
				}
			}
		}

		return comps, cobra.ShellCompDirectiveNoFileComp
	}
}

// sourceFromName returns the reader of the source selected by the options.
func sourceFromName(ctx context.Context, o *options) (source.Reader, error) {
	switch o.sourceName {
	case "file":
		return file.Open(o.inputPath, o.format)
	case "webhook":
		srv, err := server.NewServer(ctx)
		if err != nil {
			return nil, err
		}
		reader := &serverReader{Reader: webhook.New(srv), server: srv}
		srv.StartAsync(ctx)
		return reader, nil
	case "pubsub":
		return pubsub.NewReader(ctx)
	case "kafka":
		return kafka.NewReader(ctx)
	case "azblob":
		return azblob.NewReader(o.format)
	}

	return nil, errInvalidSource
}

// serverReader stops the HTTP server together with the webhook reader.
type serverReader struct {
	*webhook.Reader
	server server.Server
}

func (r *serverReader) Close() error {
	return errors.Join(r.Reader.Close(), r.server.Stop())
}
