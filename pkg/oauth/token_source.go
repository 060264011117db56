// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/stacklok/mcpbridge/pkg/logger"
)

// DefaultRefreshSkew is how long before expiry a token is refreshed.
const DefaultRefreshSkew = 5 * time.Minute

// TokenPersister stores a refreshed token.
type TokenPersister func(ctx context.Context, token *oauth2.Token) error

// PersistingTokenSource wraps an oauth2.TokenSource and persists tokens
// whenever the access token changes, so a restarted process does not need a
// new browser flow.
type PersistingTokenSource struct {
	ctx       context.Context
	source    oauth2.TokenSource
	persister TokenPersister

	mu        sync.Mutex
	lastToken *oauth2.Token
}

// NewPersistingTokenSource creates a PersistingTokenSource. initial is the
// token the source starts from; it is not persisted again.
func NewPersistingTokenSource(
	ctx context.Context,
	source oauth2.TokenSource,
	initial *oauth2.Token,
	persister TokenPersister,
) *PersistingTokenSource {
	return &PersistingTokenSource{
		ctx:       context.WithoutCancel(ctx),
		source:    source,
		persister: persister,
		lastToken: initial,
	}
}

// Token returns a valid token, refreshing it if necessary. Persistence
// failures are logged, not returned.
func (p *PersistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.source.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastToken != nil && token.AccessToken == p.lastToken.AccessToken {
		return token, nil
	}

	if p.persister != nil {
		if err := p.persister(p.ctx, token); err != nil {
			logger.Warnf("Failed to persist refreshed OAuth token: %v", err)
		} else {
			logger.Debugf("Persisted refreshed OAuth token")
		}
	}
	p.lastToken = token
	return token, nil
}

// NewRefreshingTokenSource returns a token source that refreshes tok through
// config skew before it expires and hands every new token to persist.
func NewRefreshingTokenSource(
	ctx context.Context,
	config *oauth2.Config,
	tok *oauth2.Token,
	skew time.Duration,
	persist TokenPersister,
) oauth2.TokenSource {
	if skew <= 0 {
		skew = DefaultRefreshSkew
	}
	base := oauth2.ReuseTokenSourceWithExpiry(tok, config.TokenSource(ctx, tok), skew)
	return NewPersistingTokenSource(ctx, base, tok, persist)
}
