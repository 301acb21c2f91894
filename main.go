// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	internalcmd "github.com/mia-platform/sluice/internal/cmd"
	"github.com/mia-platform/sluice/internal/info"
	"github.com/mia-platform/sluice/internal/logger"
)

var (
	// Version is injected at build time via the Makefile.
	Version = info.Version
	// BuildDate is injected at build time via the Makefile.
	BuildDate = info.BuildDate

	appName      = info.AppName
	versionShort = "Display the " + appName + " version"
)

const (
	appShort = "sluice streams records from a source into batched destinations"
	appLong  = `sluice reads records from a single source and fans them out to every destination
	listed in its configuration file. Each destination keeps its own buffer, optionally
	remaps the records through field templates, and receives them in fixed size batches
	written to a relational table, an http endpoint or the console.

	The default logging level can be set with the SLUICE_LOG_LEVEL environment variable.`

	logLevelFlagName      = "log-level"
	logLevelShortFlagName = "v"

	versionCmdName = "version"
)

var (
	allLoggerLevels = []string{
		logger.TRACE.String(),
		logger.DEBUG.String(),
		logger.INFO.String(),
		logger.WARN.String(),
		logger.ERROR.String(),
	}
	logLevelFlagUsage = "set the logging level (possible values: " + strings.Join(allLoggerLevels, ", ") + ")"
)

// rootEnv holds the environment defaults of the persistent flags.
type rootEnv struct {
	LogLevel string `env:"SLUICE_LOG_LEVEL" envDefault:"INFO"`
}

// rootFlags holds the persistent flags shared across the command tree.
type rootFlags struct {
	logLevel string
}

// addFlags registers the persistent CLI flags on cmd, using defaults as initial values.
func (f *rootFlags) addFlags(cmd *cobra.Command, defaults rootEnv) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&f.logLevel, logLevelFlagName, logLevelShortFlagName, defaults.LogLevel, heredoc.Doc(logLevelFlagUsage))
}

// loadRootEnv reads the flag defaults from the environment, falling back to the built-in
// values when the environment cannot be parsed.
func loadRootEnv() rootEnv {
	defaults, err := env.ParseAs[rootEnv]()
	if err != nil {
		return rootEnv{LogLevel: logger.INFO.String()}
	}

	defaults.LogLevel = strings.ToUpper(defaults.LogLevel)
	return defaults
}

func main() {
	cmd := rootCmd()
	log := logger.NewLogger(cmd.OutOrStderr())
	ctx := logger.WithContext(context.Background(), log)

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// rootCmd constructs the root Cobra command with shared configuration.
func rootCmd() *cobra.Command {
	flag := &rootFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: heredoc.Doc(appShort),
		Long:  heredoc.Doc(appLong),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: cobra.NoFileCompletions,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			log := logger.FromContext(cmd.Context())
			log.SetLevel(logger.LevelFromString(flag.logLevel))
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		c.PrintErrln(err)
		_ = c.Usage()
		return err
	})

	flag.addFlags(cmd, loadRootEnv())
	cmd.AddCommand(
		internalcmd.RunCmd(),
		versionCmd(),
	)

	return cmd
}

// versionCmd constructs the Cobra command that prints version information.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   versionCmdName,
		Short: heredoc.Doc(versionShort),

		Args: func(cmd *cobra.Command, args []string) error {
			err := cobra.NoArgs(cmd, args)
			if err != nil {
				cmd.PrintErrln(err)
				_ = cmd.Usage()
			}

			return err
		},
		ValidArgsFunction: cobra.NoFileCompletions,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString(Version, BuildDate, runtime.Version()))
		},
	}
}

// versionString formats the version metadata for display.
func versionString(version, buildDate, runtimeVersion string) string {
	var builder strings.Builder
	builder.WriteString(appName + " " + version)
	if buildDate != "" {
		builder.WriteString(" (" + buildDate + ")")
	}

	builder.WriteString(", Go Version: " + runtimeVersion)
	return builder.String()
}
