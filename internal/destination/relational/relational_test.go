// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package relational

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mia-platform/sluice/internal/pipeline"
	"github.com/mia-platform/sluice/internal/record"
)

type eventRow struct {
	ID      int
	Name    string
	Payload string
}

func testDatabase(t *testing.T) string {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "sluice.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: newGormLogger()})
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE events (id INTEGER, name TEXT, payload TEXT)").Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	return dsn
}

func readEvents(t *testing.T, dsn string) []eventRow {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: newGormLogger()})
	require.NoError(t, err)
	defer func() {
		sqlDB, err := db.DB()
		require.NoError(t, err)
		sqlDB.Close()
	}()

	var rows []eventRow
	require.NoError(t, db.Table("events").Order("id").Find(&rows).Error)
	return rows
}

func TestNewInserter(t *testing.T) {
	t.Run("relational kinds", func(t *testing.T) {
		t.Setenv("SLUICE_POSTGRES_DSN", "host=localhost")
		t.Setenv("SLUICE_SQLITE_DSN", "file.db")

		postgresInserter, err := NewInserter(pipeline.KindPostgres)
		require.NoError(t, err)
		assert.Equal(t, "host=localhost", postgresInserter.fallbackDSN)
		assert.Equal(t, 65535, postgresInserter.dialect.maxParams)

		mssqlInserter, err := NewInserter(pipeline.KindMSSQL)
		require.NoError(t, err)
		assert.Empty(t, mssqlInserter.fallbackDSN)
		assert.Equal(t, 2100, mssqlInserter.dialect.maxParams)

		sqliteInserter, err := NewInserter(pipeline.KindSQLite)
		require.NoError(t, err)
		assert.Equal(t, "file.db", sqliteInserter.fallbackDSN)
	})

	t.Run("non relational kind", func(t *testing.T) {
		inserter, err := NewInserter(pipeline.KindHTTP)
		require.ErrorIs(t, err, errUnsupportedKind)
		assert.Nil(t, inserter)
	})
}

func TestInsert(t *testing.T) {
	t.Parallel()

	dsn := testDatabase(t)
	inserter, err := NewInserter(pipeline.KindSQLite)
	require.NoError(t, err)
	defer inserter.Close()

	batch := []record.Record{
		{"id": 1, "name": "first", "payload": map[string]any{"nested": true}},
		{"id": 2, "name": "second"},
		{"id": 3, "payload": []string{"a", "b"}},
	}

	require.NoError(t, inserter.Insert(t.Context(), batch, dsn, "events"))
	require.NoError(t, inserter.Insert(t.Context(), []record.Record{{"id": 4, "name": "fourth"}}, dsn, "events"))
	assert.Len(t, inserter.connections, 1)

	assert.Equal(t, []eventRow{
		{ID: 1, Name: "first", Payload: `{"nested":true}`},
		{ID: 2, Name: "second"},
		{ID: 3, Payload: `["a","b"]`},
		{ID: 4, Name: "fourth"},
	}, readEvents(t, dsn))
}

func TestInsertSplitsStatements(t *testing.T) {
	t.Parallel()

	dsn := testDatabase(t)
	inserter, err := NewInserter(pipeline.KindSQLite)
	require.NoError(t, err)
	defer inserter.Close()
	inserter.dialect.maxParams = 4

	batch := make([]record.Record, 0, 7)
	for i := range 7 {
		batch = append(batch, record.Record{"id": i, "name": "row"})
	}

	require.NoError(t, inserter.Insert(t.Context(), batch, dsn, "events"))
	assert.Len(t, readEvents(t, dsn), 7)
}

func TestInsertIsAtomic(t *testing.T) {
	t.Parallel()

	dsn := testDatabase(t)
	inserter, err := NewInserter(pipeline.KindSQLite)
	require.NoError(t, err)
	defer inserter.Close()
	inserter.dialect.maxParams = 2

	batch := []record.Record{
		{"id": 1},
		{"id": 2},
		{"unknown_column": 3},
	}

	err = inserter.Insert(t.Context(), batch, dsn, "events")
	var sinkErr *Error
	require.ErrorAs(t, err, &sinkErr)
	assert.Equal(t, "events", sinkErr.Table)
	assert.Empty(t, readEvents(t, dsn))
}

func TestInsertErrors(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		connection  string
		table       string
		expectedErr error
	}{
		"missing table": {
			connection:  "unused.db",
			expectedErr: errMissingTable,
		},
		"missing connection": {
			table:       "events",
			expectedErr: errMissingConnection,
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			inserter := &Inserter{
				kind:        pipeline.KindSQLite,
				dialect:     dialects[pipeline.KindSQLite],
				connections: make(map[string]*gorm.DB),
			}
			err := inserter.Insert(t.Context(), []record.Record{{"id": 1}}, test.connection, test.table)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}

	t.Run("unknown table", func(t *testing.T) {
		t.Parallel()

		dsn := testDatabase(t)
		inserter := &Inserter{
			kind:        pipeline.KindSQLite,
			dialect:     dialects[pipeline.KindSQLite],
			fallbackDSN: dsn,
			connections: make(map[string]*gorm.DB),
		}
		defer inserter.Close()

		err := inserter.Insert(t.Context(), []record.Record{{"id": 1}}, "", "missing")
		var sinkErr *Error
		require.ErrorAs(t, err, &sinkErr)
		assert.Contains(t, err.Error(), "relational: missing: ")
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		dsn := testDatabase(t)
		inserter, err := NewInserter(pipeline.KindSQLite)
		require.NoError(t, err)
		defer inserter.Close()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		err = inserter.Insert(ctx, []record.Record{{"id": 1}}, dsn, "events")
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestRowsPerStatement(t *testing.T) {
	t.Parallel()

	assert.Equal(t, maxRowsPerStatement, rowsPerStatement(65535, 0))
	assert.Equal(t, maxRowsPerStatement, rowsPerStatement(65535, 10))
	assert.Equal(t, 210, rowsPerStatement(2100, 10))
	assert.Equal(t, 1, rowsPerStatement(2100, 5000))
}
