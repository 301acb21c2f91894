// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package relational

import (
	"context"
	"encoding/json"
	"reflect"
	"slices"
	"sync"

	"github.com/caarlos0/env/v11"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"

	"github.com/mia-platform/sluice/internal/logger"
	"github.com/mia-platform/sluice/internal/pipeline"
	"github.com/mia-platform/sluice/internal/record"
)

const (
	// maxRowsPerStatement caps the rows of a single INSERT statement.
	maxRowsPerStatement = 1000
)

type config struct {
	PostgresDSN string `env:"SLUICE_POSTGRES_DSN"`
	MSSQLDSN    string `env:"SLUICE_MSSQL_DSN"`
	SQLiteDSN   string `env:"SLUICE_SQLITE_DSN"`
}

// dialect describes how to reach one kind of database.
type dialect struct {
	open func(dsn string) gorm.Dialector
	// maxParams is the number of bound parameters accepted by a single statement.
	maxParams int
}

var dialects = map[pipeline.Kind]dialect{
	pipeline.KindPostgres: {open: postgres.Open, maxParams: 65535},
	pipeline.KindMSSQL:    {open: sqlserver.Open, maxParams: 2100},
	pipeline.KindSQLite:   {open: sqlite.Open, maxParams: 999},
}

var _ pipeline.BulkInserter = &Inserter{}

// Inserter bulk inserts batches into the tables of one kind of database.
type Inserter struct {
	kind        pipeline.Kind
	dialect     dialect
	fallbackDSN string

	lock        sync.Mutex
	connections map[string]*gorm.DB
}

// NewInserter returns the Inserter for kind. The data source name used when a destination
// does not set one is read from the environment.
func NewInserter(kind pipeline.Kind) (*Inserter, error) {
	dialect, ok := dialects[kind]
	if !ok {
		return nil, handleError("", errUnsupportedKind)
	}

	config, err := env.ParseAs[config]()
	if err != nil {
		return nil, handleError("", err)
	}

	fallback := map[pipeline.Kind]string{
		pipeline.KindPostgres: config.PostgresDSN,
		pipeline.KindMSSQL:    config.MSSQLDSN,
		pipeline.KindSQLite:   config.SQLiteDSN,
	}

	return &Inserter{
		kind:        kind,
		dialect:     dialect,
		fallbackDSN: fallback[kind],
		connections: make(map[string]*gorm.DB),
	}, nil
}

// Insert implements pipeline.BulkInserter.
func (i *Inserter) Insert(ctx context.Context, batch []record.Record, connection, table string) error {
	if len(table) == 0 {
		return handleError(table, errMissingTable)
	}

	db, err := i.connect(ctx, connection)
	if err != nil {
		return handleError(table, err)
	}

	rows, columns := toRows(batch)
	size := rowsPerStatement(i.dialect.maxParams, columns)
	logger.Named(ctx, loggerName).Trace("inserting batch", "kind", i.kind.String(), "table", table, "rows", len(rows), "rowsPerStatement", size)

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for chunk := range slices.Chunk(rows, size) {
			if err := tx.Table(table).Create(chunk).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return handleError(table, err)
	}

	return nil
}

// Close releases every connection pool opened by the Inserter.
func (i *Inserter) Close() error {
	i.lock.Lock()
	defer i.lock.Unlock()

	var closeErr error
	for dsn, db := range i.connections {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil && closeErr == nil {
			closeErr = handleError("", err)
		}
		delete(i.connections, dsn)
	}
	return closeErr
}

// connect returns the pool for connection, opening it on first use.
func (i *Inserter) connect(ctx context.Context, connection string) (*gorm.DB, error) {
	dsn := connection
	if len(dsn) == 0 {
		dsn = i.fallbackDSN
	}
	if len(dsn) == 0 {
		return nil, errMissingConnection
	}

	i.lock.Lock()
	defer i.lock.Unlock()

	if db, ok := i.connections[dsn]; ok {
		return db, nil
	}

	db, err := gorm.Open(i.dialect.open(dsn), &gorm.Config{
		Logger:                 newGormLogger(),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logger.Named(ctx, loggerName).Debug("connection established", "kind", i.kind.String())
	i.connections[dsn] = db
	return db, nil
}

// toRows converts the batch in the representation accepted by gorm. Nested objects and
// arrays are stored as JSON text. It also returns the number of distinct columns.
func toRows(batch []record.Record) ([]map[string]any, int) {
	columns := make(map[string]struct{})
	rows := make([]map[string]any, 0, len(batch))
	for _, r := range batch {
		row := make(map[string]any, len(r))
		for key, value := range r {
			columns[key] = struct{}{}
			row[key] = columnValue(value)
		}
		rows = append(rows, row)
	}
	return rows, len(columns)
}

func columnValue(value any) any {
	if value == nil {
		return nil
	}

	switch reflect.TypeOf(value).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		if _, isBytes := value.([]byte); isBytes {
			return value
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return value
		}
		return string(encoded)
	default:
		return value
	}
}

// rowsPerStatement returns how many rows with columns fields fit in a statement.
func rowsPerStatement(maxParams, columns int) int {
	if columns == 0 {
		return maxRowsPerStatement
	}
	return max(1, min(maxRowsPerStatement, maxParams/columns))
}
