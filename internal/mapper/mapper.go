// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mapper

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/mia-platform/sluice/internal/record"
)

// Mapper builds a new record from an input one, rendering a go template for every output field.
// The rendered text is converted back to a typed value when it is a number, a boolean, a null
// or a JSON object or array; every other output is kept as a string.
type Mapper struct {
	fields    []string
	templates map[string]*template.Template
}

// New parses the fieldTemplates, keyed by output field name. A template referencing a key
// missing from the input fails the mapping of that record.
func New(fieldTemplates map[string]string) (*Mapper, error) {
	var parsingErrs error
	root := template.New("main").Funcs(templateFuncs()).Option("missingkey=error")

	templates := make(map[string]*template.Template, len(fieldTemplates))
	for key, value := range fieldTemplates {
		tmpl, err := root.New(key).Parse(value)
		if err != nil {
			parsingErrs = errors.Join(parsingErrs, err)
			continue
		}
		templates[key] = tmpl
	}

	if parsingErrs != nil {
		return nil, NewParsingError(parsingErrs)
	}

	return &Mapper{
		fields:    slices.Sorted(maps.Keys(templates)),
		templates: templates,
	}, nil
}

// Apply renders every field template against input.
func (m *Mapper) Apply(input record.Record) (record.Record, error) {
	output := make(record.Record, len(m.fields))
	builder := new(strings.Builder)
	for _, field := range m.fields {
		builder.Reset()
		if err := m.templates[field].Execute(builder, map[string]any(input)); err != nil {
			return nil, newFieldError(field, err)
		}
		output[field] = typedValue(builder.String())
	}

	return output, nil
}

// Generator returns a record.Generator producing exactly one mapped record for every input.
func (m *Mapper) Generator() record.Generator {
	return record.Map(m.Apply)
}

func typedValue(rendered string) any {
	trimmed := strings.TrimSpace(rendered)
	if len(trimmed) == 0 {
		return rendered
	}

	var value any
	if err := yaml.Unmarshal([]byte(trimmed), &value); err != nil {
		return rendered
	}

	switch value.(type) {
	case nil:
		return nil
	case int, int64, uint64, float64, bool:
		return value
	case map[string]any, []any:
		if trimmed[0] == '{' || trimmed[0] == '[' {
			return value
		}
	}
	return rendered
}
