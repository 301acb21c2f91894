// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

const (
	configPathFlagName  = "config"
	configPathFlagShort = "c"
	configPathFlagUsage = "Path to the YAML file describing the destinations. Without it every record is printed on stdout"

	inputFlagName  = "input"
	inputFlagShort = "i"
	inputFlagUsage = "Path of the file read by the file source, use - for the standard input"
	defaultInput   = "-"

	formatFlagName  = "format"
	formatFlagUsage = "Format of the file and azblob sources (csv, jsonl), guessed from the file name when empty"

	verboseFlagName  = "verbose"
	verboseFlagUsage = "Log every batch delivery"
)

// flags collects the CLI options of the run command.
type flags struct {
	configPath string
	inputPath  string
	format     string
	verbose    bool
}

// addFlags registers the CLI flags on cmd.
func (f *flags) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, configPathFlagName, configPathFlagShort, "", configPathFlagUsage)
	cmd.Flags().StringVarP(&f.inputPath, inputFlagName, inputFlagShort, defaultInput, inputFlagUsage)
	cmd.Flags().StringVar(&f.format, formatFlagName, "", formatFlagUsage)
	cmd.Flags().BoolVar(&f.verbose, verboseFlagName, false, verboseFlagUsage)
}

// toOptions builds an options instance from the parsed flags and CLI arguments.
func (f *flags) toOptions(cmd *cobra.Command, args []string) *options {
	sourceName := ""
	if len(args) > 0 {
		sourceName = args[0]
	}

	return &options{
		sourceName:   strings.ToLower(sourceName),
		configPath:   f.configPath,
		inputPath:    f.inputPath,
		formatName:   f.format,
		verbose:      f.verbose,
		stdout:       cmd.OutOrStdout(),
		sourceGetter: sourceFromName,
	}
}
