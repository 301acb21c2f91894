// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package pipeline

import (
	"slices"
	"strings"
	"time"

	"github.com/mia-platform/sluice/internal/record"
)

// DefaultBatchSize is the flush threshold used when a destination does not set one.
const DefaultBatchSize = 10000

//go:generate ${TOOLS_BIN}/stringer -type=Kind -linecomment
type Kind int

const (
	// KindStdout prints a summary of every batch. It is the fallback for unknown kinds.
	KindStdout Kind = iota // stdout
	// KindPostgres bulk inserts into a PostgreSQL table.
	KindPostgres // postgres
	// KindMSSQL bulk inserts into a SQL Server table.
	KindMSSQL // mssql
	// KindSQLite bulk inserts into a SQLite table.
	KindSQLite // sqlite
	// KindHTTP sends every batch as a JSON array to an HTTP endpoint.
	KindHTTP // http
)

// ParseKind returns the Kind named by value. Unknown names fall back to KindStdout.
func ParseKind(value string) Kind {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "postgres", "postgresql":
		return KindPostgres
	case "mssql", "sqlserver":
		return KindMSSQL
	case "sqlite":
		return KindSQLite
	case "http":
		return KindHTTP
	default:
		return KindStdout
	}
}

// IsRelational reports whether k is delivered through a BulkInserter.
func (k Kind) IsRelational() bool {
	return k == KindPostgres || k == KindMSSQL || k == KindSQLite
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Setup holds the typed connection parameters of a destination.
type Setup interface {
	setup()
}

// RelationalSetup is the setup of postgres, mssql and sqlite destinations.
type RelationalSetup struct {
	// Connection is the driver DSN. It is never logged.
	Connection string `json:"-" yaml:"connection"`
	Table      string `json:"table" yaml:"table"`
}

// HTTPSetup is the setup of http destinations.
type HTTPSetup struct {
	URL     string            `json:"url" yaml:"url"`
	Method  string            `json:"method,omitempty" yaml:"method"`
	Headers map[string]string `json:"-" yaml:"headers"`
	Timeout time.Duration     `json:"timeout,omitempty" yaml:"timeout"`
}

// ConsoleSetup is the setup of stdout destinations.
type ConsoleSetup struct{}

func (RelationalSetup) setup() {}
func (HTTPSetup) setup() {}
func (ConsoleSetup) setup() {}

// Destination is a sink together with its batching and transform policy.
type Destination struct {
	Name      string `json:"name,omitempty"`
	Type      Kind   `json:"type"`
	Setup     Setup  `json:"setup"`
	BatchSize int    `json:"batchSize"`
	// Generator, when set, replaces every input record with the records it produces.
	Generator record.Generator `json:"-" yaml:"-"`
}

// Label returns the name of the destination, or its kind when the name is empty.
func (d *Destination) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Type.String()
}

// Configuration lists the destinations fed by a Pipeline.
type Configuration struct {
	Destinations []*Destination
	Verbose      bool
}

// Normalize fills the defaults of the configuration in place.
// Nil entries are dropped. With no destinations a single stdout destination is installed, every non positive
// BatchSize becomes DefaultBatchSize and stdout destinations always get a ConsoleSetup.
// Calling it more than once has no further effect.
func (c *Configuration) Normalize() {
	c.Destinations = slices.DeleteFunc(c.Destinations, func(d *Destination) bool { return d == nil })
	if len(c.Destinations) == 0 {
		c.Destinations = []*Destination{
			{Type: KindStdout, Setup: ConsoleSetup{}, BatchSize: DefaultBatchSize},
		}
	}

	for _, destination := range c.Destinations {
		if destination.BatchSize <= 0 {
			destination.BatchSize = DefaultBatchSize
		}
		if destination.Type == KindStdout && destination.Setup == nil {
			destination.Setup = ConsoleSetup{}
		}
	}
}
