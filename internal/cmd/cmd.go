// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

const (
	runCmdUsageTemplate = "run [%s]"
	runCmdShort         = "stream the records of a source into the configured destinations"
	runCmdLong          = `Stream the records of a source into the configured destinations.
	Every destination receives its own copy of each record, optionally transformed by
	its mappings, and accumulates them in batches that are delivered as soon as they are
	full. The remaining records are delivered when the source ends.

	The available sources are:
	- file: CSV or JSON Lines file, or the standard input
	- webhook: records pushed over HTTP to /records, POST /-/end ends the stream
	- pubsub: Google Cloud Pub/Sub subscription
	- kafka: Kafka topic
	- azblob: Azure Storage blob`

	runCmdExample = `# Print the records of a csv file in batches
	sluice run file --input records.csv

	# Load a JSON Lines stream into the destinations described in config.yaml
	cat records.jsonl | sluice run file --config config.yaml --format jsonl`
)

// RunCmd returns the Cobra command that streams a source into the destinations.
func RunCmd() *cobra.Command {
	flags := &flags{}
	allSources := slices.Sorted(maps.Keys(availableSources))
	cmd := &cobra.Command{
		Use:     fmt.Sprintf(runCmdUsageTemplate, strings.Join(allSources, "|")),
		Short:   heredoc.Doc(runCmdShort),
		Long:    heredoc.Doc(runCmdLong),
		Example: heredoc.Doc(runCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: validArgsFunc(availableSources),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.toOptions(cmd, args)
			if err := opts.validate(); err != nil {
				return handleError(cmd, err)
			}

			if err := opts.execute(cmd.Context()); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	return cmd
}
