// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mia-platform/sluice/internal/config"
	"github.com/mia-platform/sluice/internal/source/file"
)

func TestCmds(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		args                 []string
		expectedError        error
		expectedErrorMessage string
		expectedUsage        bool
	}{
		"no arguments returns no error and print usage": {
			args:          []string{},
			expectedUsage: true,
		},
		"unknown source returns error and usage": {
			args:                 []string{"invalid"},
			expectedError:        errInvalidSource,
			expectedErrorMessage: errInvalidSource.Error() + ": invalid\n",
			expectedUsage:        true,
		},
		"unsupported format returns error no usage": {
			args:                 []string{"file", "--" + formatFlagName, "xml"},
			expectedError:        file.ErrUnsupportedFormat,
			expectedErrorMessage: file.ErrUnsupportedFormat.Error() + ": \"xml\"\n",
		},
		"missing config file returns error no usage": {
			args:                 []string{"file", "--" + configPathFlagName, filepath.Join("testdata", "missing.yaml")},
			expectedError:        syscall.ENOENT,
			expectedErrorMessage: fmt.Sprintf("open %s: %s\n", filepath.Join("testdata", "missing.yaml"), syscall.ENOENT),
		},
		"invalid config file returns error no usage": {
			args:          []string{"file", "--" + configPathFlagName, filepath.Join("testdata", "invalid.yaml")},
			expectedError: config.ErrParsing,
		},
		"missing input file returns error no usage": {
			args:                 []string{"file", "--" + inputFlagName, filepath.Join("testdata", "missing.csv")},
			expectedError:        syscall.ENOENT,
			expectedErrorMessage: fmt.Sprintf("open %s: %s\n", filepath.Join("testdata", "missing.csv"), syscall.ENOENT),
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			cmd := RunCmd()
			errBuffer := new(bytes.Buffer)
			outBuffer := new(bytes.Buffer)
			cmd.SetOut(outBuffer)
			cmd.SetErr(errBuffer)
			cmd.SetUsageTemplate("usage string")
			cmd.SetArgs(test.args)

			err := cmd.ExecuteContext(t.Context())
			if test.expectedError != nil {
				require.ErrorIs(t, err, test.expectedError)
				if test.expectedErrorMessage != "" {
					assert.Equal(t, test.expectedErrorMessage, errBuffer.String())
				}
			} else {
				require.NoError(t, err)
			}

			if test.expectedUsage {
				assert.Equal(t, "usage string", outBuffer.String())
			}
		})
	}
}

func TestCompletion(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		args               []string
		toComplete         string
		expectedCompletion []string
	}{
		"partial name": {
			args:               []string{},
			toComplete:         "we",
			expectedCompletion: []string{"webhook\trecords pushed over HTTP"},
		},
		"some args, no completions": {
			args: []string{"file"},
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			cmd := RunCmd()
			args, directive := validArgsFunc(availableSources)(cmd, test.args, test.toComplete)
			assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
			assert.Equal(t, test.expectedCompletion, args)
		})
	}
}

type person struct {
	ID    int
	Label string
}

func TestRunFileSourceIntoDestinations(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "people.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE people (id INTEGER, label TEXT)").Error)
	t.Setenv("SLUICE_CMD_TEST_DB", dsn)

	cmd := RunCmd()
	outBuffer := new(bytes.Buffer)
	cmd.SetOut(outBuffer)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{
		"file",
		"--" + configPathFlagName, filepath.Join("testdata", "config.yaml"),
		"--" + inputFlagName, filepath.Join("testdata", "people.csv"),
	})

	require.NoError(t, cmd.ExecuteContext(t.Context()))

	expected := "Batch of 2 records:\n" +
		"\t0: {\"id\":\"1\",\"name\":\"alpha\"}\n" +
		"\t1: {\"id\":\"2\",\"name\":\"beta\"}\n" +
		"\n" +
		"Batch of 1 records:\n" +
		"\t0: {\"id\":\"3\",\"name\":\"gamma\"}\n" +
		"\n" +
		"Header: [id name]\n"
	assert.Equal(t, expected, outBuffer.String())

	var people []person
	require.NoError(t, db.Table("people").Order("id").Find(&people).Error)
	assert.Equal(t, []person{
		{ID: 1, Label: "ALPHA"},
		{ID: 2, Label: "BETA"},
		{ID: 3, Label: "GAMMA"},
	}, people)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}
