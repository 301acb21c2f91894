// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package config reads the pipeline configuration file.
// The file lists the destinations fed by a run: every destination declares its type, a setup
// block whose shape depends on the type, an optional batch size and optional field mappings
// turned into a record generator.
package config
