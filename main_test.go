// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package main

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/sluice/internal/logger"
)

func TestRootCommand(t *testing.T) {
	t.Parallel()

	Version = "test"
	BuildDate = "2024-06-01"

	cmd := rootCmd()
	buffer := new(bytes.Buffer)
	cmd.SetOut(buffer)

	log := logger.NewLogger(cmd.OutOrStderr())
	ctx := logger.WithContext(t.Context(), log)

	cmd.SetArgs([]string{"--log-level", "WARN", "version"})
	err := cmd.ExecuteContext(ctx)
	require.NoError(t, err)

	log.Info("ignored line for set log level")
	lines := strings.Split(buffer.String(), "\n")
	assert.Len(t, lines, 2) // version output + empty line
	assert.Equal(t, versionString(Version, BuildDate, runtime.Version())+"\n", buffer.String())
	assert.True(t, strings.HasPrefix(buffer.String(), "sluice test (2024-06-01)"))

	buffer.Reset()
	BuildDate = ""
	cmd.SetArgs([]string{"--log-level", "WARN", "version"})
	err = cmd.ExecuteContext(ctx)
	require.NoError(t, err)
	assert.Len(t, lines, 2) // version output + empty line
	assert.Equal(t, versionString(Version, "", runtime.Version())+"\n", buffer.String())
}

func TestRootCommandListsRun(t *testing.T) {
	t.Parallel()

	cmd := rootCmd()
	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	assert.Contains(t, names, "run")
	assert.Contains(t, names, versionCmdName)
}

func TestLogLevelFromEnvironment(t *testing.T) {
	testCases := map[string]struct {
		value    string
		expected string
	}{
		"default level": {
			expected: logger.INFO.String(),
		},
		"level is upper cased": {
			value:    "debug",
			expected: logger.DEBUG.String(),
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			if len(test.value) > 0 {
				t.Setenv("SLUICE_LOG_LEVEL", test.value)
			}

			cmd := rootCmd()
			flag := cmd.PersistentFlags().Lookup(logLevelFlagName)
			require.NotNil(t, flag)
			assert.Equal(t, test.expected, flag.DefValue)
		})
	}
}
