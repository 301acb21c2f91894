// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package relational implements the postgres, mssql and sqlite destination kinds on top of gorm.
// Every batch is inserted in a single transaction, split in as many INSERT statements as needed to
// respect the bound parameters limit of the database. Connections are opened lazily and kept open
// for the whole run, one pool per data source name.
package relational
