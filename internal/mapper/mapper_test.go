// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mapper

import (
	"testing"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/sluice/internal/record"
)

func TestNewMapper(t *testing.T) {
	t.Parallel()

	t.Run("new mapper from valid templates", func(t *testing.T) {
		t.Parallel()
		mapper, err := New(map[string]string{
			"key":      "name",
			"otherKey": "{{ .otherKey | trim }}",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"key", "otherKey"}, mapper.fields)
	})

	t.Run("return error when one template is broken", func(t *testing.T) {
		t.Parallel()
		mapper, err := New(map[string]string{
			"key":      "name",
			"otherKey": "{{ .otherKey | unknwonFunc }}",
		})
		assert.Nil(t, mapper)
		assert.ErrorContains(t, err, errTemplateParsing)

		var targetError *ParsingError
		require.ErrorAs(t, err, &targetError)
		joinedErrors, ok := targetError.Unwrap().(interface{ Unwrap() []error })
		require.True(t, ok)
		require.Len(t, joinedErrors.Unwrap(), 1)
	})

	t.Run("return error when more templates are broken", func(t *testing.T) {
		t.Parallel()
		mapper, err := New(map[string]string{
			"key":      "{{ .name | unknwonFunc }}",
			"otherKey": "{{ .otherKey | unknwonFunc }}",
		})
		assert.Nil(t, mapper)

		var targetError *ParsingError
		require.ErrorAs(t, err, &targetError)
		joinedErrors, ok := targetError.Unwrap().(interface{ Unwrap() []error })
		require.True(t, ok)
		require.Len(t, joinedErrors.Unwrap(), 2)
	})
}

func TestMapper(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		templates     map[string]string
		input         record.Record
		expected      record.Record
		expectedError bool
	}{
		"simple mapping": {
			templates: map[string]string{
				"key":           "name",
				"string":        "{{ .name }}",
				"otherKey":      "{{ .otherKey.value }}",
				"nested":        "{{ .otherKey | toJSON }}",
				"array":         "{{ .array | toJSON }}",
				"combinedField": "{{ .name }}-{{ .otherKey.value }}",
				"flag":          "{{ .enabled }}",
				"empty":         "",
			},
			input: record.Record{
				"name": "example",
				"otherKey": map[string]any{
					"string": "example",
					"value":  42,
				},
				"array":   []int{1, 2, 3},
				"enabled": true,
			},
			expected: record.Record{
				"key":      "name",
				"string":   "example",
				"otherKey": 42,
				"nested": map[string]any{
					"string": "example",
					"value":  42,
				},
				"array":         []any{1, 2, 3},
				"combinedField": "example-42",
				"flag":          true,
				"empty":         "",
			},
		},
		"yaml looking text stays a string": {
			templates: map[string]string{
				"pair": "{{ .key }}: {{ .value }}",
				"item": "- {{ .key }}",
			},
			input: record.Record{"key": "a", "value": "b"},
			expected: record.Record{
				"pair": "a: b",
				"item": "- a",
			},
		},
		"mapping with missing fields": {
			templates: map[string]string{
				"key":      "name",
				"otherKey": "{{ .otherKey.value }}",
			},
			input:         record.Record{"name": "example"},
			expectedError: true,
		},
		"create array from object array": {
			templates: map[string]string{
				"key": `{{ pluck "key" .objects | toJSON }}`,
			},
			input: record.Record{
				"objects": []map[string]any{
					{"key": "value1"},
					{"key": "value2"},
					{"other": "value3"},
				},
			},
			expected: record.Record{
				"key": []any{"value1", "value2"},
			},
		},
		"use get value from missing key": {
			templates: map[string]string{
				"key":       `{{ get "missingKey" . "defaultValue" }}`,
				"nestedKey": `{{ get "nestedKey" .otherKey "defaultValue" }}`,
			},
			input: record.Record{
				"otherKey": map[string]any{
					"nestedKey": "nestedValue",
				},
			},
			expected: record.Record{
				"key":       "defaultValue",
				"nestedKey": "nestedValue",
			},
		},
		"string helpers": {
			templates: map[string]string{
				"upper":    "{{ .name | upper }}",
				"replaced": `{{ .name | replace "-" "_" | lower }}`,
				"prefix":   `{{ .name | trimPrefix "My" }}`,
				"short":    "{{ .name | truncate 2 }}",
				"tail":     "{{ .name | truncate -4 }}",
				"first":    `{{ split "-" .name | first }}`,
				"quoted":   "{{ quote .name }}",
				"encoded":  "{{ .name | b64enc }}",
				"decoded":  "{{ .name | b64enc | b64dec }}",
				"hash":     "{{ sha256 .name }}",
				"picked":   `{{ pick .object "a" | toJSON }}`,
			},
			input: record.Record{
				"name":   "My-Name",
				"object": map[string]any{"a": 1, "b": 2},
			},
			expected: record.Record{
				"upper":    "MY-NAME",
				"replaced": "my_name",
				"prefix":   "-Name",
				"short":    "My",
				"tail":     "Name",
				"first":    "My",
				"quoted":   `"My-Name"`,
				"encoded":  "TXktTmFtZQ==",
				"decoded":  "My-Name",
				"hash":     "4e938a8ea1300b83edd953fd686f2c7fdc6578f83207cec38dd82fc0c35053d0",
				"picked":   map[string]any{"a": 1},
			},
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			mapper, err := New(test.templates)
			require.NoError(t, err)

			output, err := mapper.Apply(test.input)
			if test.expectedError {
				var expectedError template.ExecError
				assert.Nil(t, output)
				assert.ErrorAs(t, err, &expectedError)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expected, output)
		})
	}
}

func TestGenerator(t *testing.T) {
	t.Parallel()

	mapper, err := New(map[string]string{
		"id":  "{{ uuid }}",
		"raw": "{{ .value }}",
	})
	require.NoError(t, err)

	output, err := record.Collect(mapper.Generator(), record.Record{"value": "12"})
	require.NoError(t, err)
	require.Len(t, output, 1)
	assert.Equal(t, 12, output[0]["raw"])

	id, ok := output[0]["id"].(string)
	require.True(t, ok)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	_, err = record.Collect(mapper.Generator(), record.Record{})
	require.ErrorIs(t, err, record.ErrGenerator)
}

func TestNowFunction(t *testing.T) {
	loc := time.FixedZone("Fixed+01", int((1 * time.Hour).Seconds()))
	nowFn = func() time.Time {
		return time.Date(2024, 6, 10, 15, 4, 5, 0, loc)
	}
	defer func() { nowFn = time.Now }()

	mapper, err := New(map[string]string{"at": "{{ now }}"})
	require.NoError(t, err)

	output, err := mapper.Apply(record.Record{})
	require.NoError(t, err)
	assert.Equal(t, record.Record{"at": "2024-06-10T14:04:05Z"}, output)
}
