// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package httpsink

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// newTransport wraps base with the authentication described by cfg. A nil base means
// http.DefaultTransport.
func newTransport(ctx context.Context, cfg config, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	source := tokenSource(ctx, cfg)
	if source == nil {
		return base
	}

	return &oauth2.Transport{
		Source: source,
		Base:   base,
	}
}

// tokenSource returns a fixed bearer token when one is configured, a client credentials
// flow when both client id and secret are set, and nil otherwise.
func tokenSource(ctx context.Context, cfg config) oauth2.TokenSource {
	switch {
	case len(cfg.Token) > 0:
		return oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.Token,
			TokenType:   "Bearer",
		})
	case len(cfg.ClientID) > 0 && len(cfg.ClientSecret) > 0:
		credentials := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.AuthEndpoint,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		return credentials.TokenSource(ctx)
	default:
		return nil
	}
}
