package google

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

// TokenProvider supplies OAuth tokens for Google APIs.
type TokenProvider interface {
	// GetTokenForAccount returns a currently valid token for account, or an
	// *AuthError when none can be produced.
	GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error)

	// HasTokenForAccount reports whether a token is stored for account.
	HasTokenForAccount(account string) bool
}

// FileTokenProvider serves tokens from the per-account token files and
// writes refreshed tokens back to disk.
type FileTokenProvider struct {
	conf      *oauth2.Config
	mu        sync.Mutex
	onRefresh func(ctx context.Context, account string, err error)
}

// NewFileTokenProvider creates a file-based token provider. conf is used to
// refresh expired tokens.
func NewFileTokenProvider(conf *oauth2.Config) *FileTokenProvider {
	return &FileTokenProvider{conf: conf}
}

// OnRefresh registers fn to be called after every refresh attempt with its
// outcome.
func (p *FileTokenProvider) OnRefresh(fn func(ctx context.Context, account string, err error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRefresh = fn
}

// GetTokenForAccount loads the stored token and refreshes it if expired.
func (p *FileTokenProvider) GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stored, err := LoadTokenForAccount(account)
	if err != nil {
		return nil, err
	}
	if stored.Valid() {
		return stored, nil
	}
	if stored.RefreshToken == "" || p.conf == nil {
		return nil, &AuthError{Account: account, Err: fmt.Errorf("token expired and cannot be refreshed")}
	}

	fresh, err := p.refresh(ctx, account, stored)
	if p.onRefresh != nil {
		p.onRefresh(ctx, account, err)
	}
	return fresh, err
}

func (p *FileTokenProvider) refresh(ctx context.Context, account string, stored *oauth2.Token) (*oauth2.Token, error) {
	fresh, err := p.conf.TokenSource(ctx, stored).Token()
	if err != nil {
		return nil, &AuthError{Account: account, Err: fmt.Errorf("token refresh failed: %w", err)}
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = stored.RefreshToken
	}
	if err := SaveTokenForAccount(account, fresh); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
	}
	return fresh, nil
}

// HasTokenForAccount checks if a token file exists for account.
func (p *FileTokenProvider) HasTokenForAccount(account string) bool {
	return HasTokenForAccount(account)
}

// TokenSource adapts a TokenProvider to oauth2.TokenSource for one account.
// Wrap it in oauth2.ReuseTokenSource to avoid a provider call per request.
func TokenSource(ctx context.Context, provider TokenProvider, account string) oauth2.TokenSource {
	return &providerTokenSource{ctx: ctx, provider: provider, account: account}
}

type providerTokenSource struct {
	ctx      context.Context
	provider TokenProvider
	account  string
}

func (s *providerTokenSource) Token() (*oauth2.Token, error) {
	return s.provider.GetTokenForAccount(s.ctx, s.account)
}
