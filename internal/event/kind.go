// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package event

import "strconv"

// Kind enumerates the lifecycle events a Hub can emit.
type Kind int

const (
	// LoadingData fires immediately before a batch is handed to a sink.
	LoadingData Kind = iota
	// LoadedData fires immediately after a batch delivery attempt, whatever its outcome.
	LoadedData
)

func (k Kind) String() string {
	switch k {
	case LoadingData:
		return "loadingData"
	case LoadedData:
		return "loadedData"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}
