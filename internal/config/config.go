// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mia-platform/sluice/internal/mapper"
	"github.com/mia-platform/sluice/internal/pipeline"
)

var (
	// ErrParsing reports failures that occur while decoding a configuration file.
	ErrParsing = errors.New("error parsing")

	errMissingTable = errors.New("missing required field 'setup.table'")
	errMissingURL   = errors.New("missing required field 'setup.url'")
)

// File is the document stored in a configuration file.
type File struct {
	Verbose      bool          `yaml:"verbose"`
	Destinations []Destination `yaml:"destinations"`
}

// Destination is the file representation of a pipeline.Destination.
type Destination struct {
	Name      string            `yaml:"name"`
	Type      string            `yaml:"type"`
	BatchSize int               `yaml:"batchSize"`
	Setup     yaml.Node         `yaml:"setup"`
	Mappings  map[string]string `yaml:"mappings"`
}

// Load reads the configuration file at path.
func Load(path string) (*pipeline.Configuration, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrParsing, path, err)
	}
	return config, nil
}

// Parse decodes a configuration document from reader. An empty document is a valid
// configuration without destinations.
func Parse(reader io.Reader) (*pipeline.Configuration, error) {
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	file := new(File)
	if err := decoder.Decode(file); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	config := &pipeline.Configuration{
		Verbose:      file.Verbose,
		Destinations: make([]*pipeline.Destination, 0, len(file.Destinations)),
	}

	var errs []error
	for index, raw := range file.Destinations {
		destination, err := raw.build()
		if err != nil {
			errs = append(errs, fmt.Errorf("destination %d: %w", index, err))
			continue
		}
		config.Destinations = append(config.Destinations, destination)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return config, nil
}

func (d Destination) build() (*pipeline.Destination, error) {
	kind := pipeline.ParseKind(d.Type)
	setup, err := d.decodeSetup(kind)
	if err != nil {
		return nil, err
	}

	destination := &pipeline.Destination{
		Name:      d.Name,
		Type:      kind,
		Setup:     setup,
		BatchSize: d.BatchSize,
	}

	if len(d.Mappings) > 0 {
		fieldMapper, err := mapper.New(d.Mappings)
		if err != nil {
			return nil, err
		}
		destination.Generator = fieldMapper.Generator()
	}

	return destination, nil
}

// decodeSetup decodes the setup node in the struct matching kind. Unknown fields are rejected
// and environment variables referenced as ${NAME} in strings are expanded.
func (d Destination) decodeSetup(kind pipeline.Kind) (pipeline.Setup, error) {
	switch kind {
	case pipeline.KindPostgres, pipeline.KindMSSQL, pipeline.KindSQLite:
		setup := pipeline.RelationalSetup{}
		if err := decodeStrict(&d.Setup, &setup); err != nil {
			return nil, err
		}
		setup.Connection = os.ExpandEnv(setup.Connection)
		if len(setup.Table) == 0 {
			return nil, errMissingTable
		}
		return setup, nil
	case pipeline.KindHTTP:
		setup := pipeline.HTTPSetup{}
		if err := decodeStrict(&d.Setup, &setup); err != nil {
			return nil, err
		}
		setup.URL = os.ExpandEnv(setup.URL)
		for key, value := range setup.Headers {
			setup.Headers[key] = os.ExpandEnv(value)
		}
		if len(setup.URL) == 0 {
			return nil, errMissingURL
		}
		return setup, nil
	default:
		return pipeline.ConsoleSetup{}, nil
	}
}

// decodeStrict decodes node into out rejecting the fields out does not declare.
func decodeStrict(node *yaml.Node, out any) error {
	if node.IsZero() {
		return nil
	}

	encoded, err := yaml.Marshal(node)
	if err != nil {
		return err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(encoded))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	return nil
}
