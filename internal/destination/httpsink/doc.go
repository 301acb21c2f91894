// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package httpsink implements the http destination kind.
// Every batch is sent as a JSON array to the url of the destination setup. Requests are
// authenticated with a static bearer token or with an OAuth2 client credentials flow,
// both configured through environment variables.
package httpsink
