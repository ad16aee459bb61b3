package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/calendar-assistant/internal/calendar"
	"github.com/teemow/calendar-assistant/internal/google"
)

type staticTokenProvider struct {
	tokens map[string]*oauth2.Token
}

func (p *staticTokenProvider) GetTokenForAccount(_ context.Context, account string) (*oauth2.Token, error) {
	if tok, ok := p.tokens[account]; ok {
		return tok, nil
	}
	return nil, &google.AuthError{Account: account, Err: google.ErrNoToken}
}

func (p *staticTokenProvider) HasTokenForAccount(account string) bool {
	_, ok := p.tokens[account]
	return ok
}

func TestServerContext_CalendarClientForAccount(t *testing.T) {
	provider := &staticTokenProvider{tokens: map[string]*oauth2.Token{
		"work": {AccessToken: "abc"},
	}}
	sc := NewServerContext(context.Background(), WithTokenProvider(provider))
	defer func() { _ = sc.Shutdown() }()

	client, err := sc.CalendarClientForAccount("work")
	require.NoError(t, err)
	assert.Equal(t, "work", client.Account())

	again, err := sc.CalendarClientForAccount("work")
	require.NoError(t, err)
	assert.Same(t, client, again)
	assert.Equal(t, 1, sc.cachedAccounts())

	_, err = sc.CalendarClientForAccount("personal")
	var authErr *google.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.ErrorIs(t, err, google.ErrNoToken)
	assert.Equal(t, 1, sc.cachedAccounts())
}

func TestServerContext_NoTokenProvider(t *testing.T) {
	sc := NewServerContext(context.Background())

	_, err := sc.CalendarClientForAccount("default")
	assert.ErrorIs(t, err, google.ErrNoToken)
}

func TestServerContext_SetCalendarClient(t *testing.T) {
	sc := NewServerContext(context.Background(), WithReadOnly(true))
	client := calendar.NewClient(nil, "default")

	sc.SetCalendarClientForAccount("default", client)

	got, err := sc.CalendarClientForAccount("default")
	require.NoError(t, err)
	assert.Same(t, client, got)
	assert.True(t, sc.ReadOnly())
	assert.NotNil(t, sc.Logger())
}

func TestServerContext_Shutdown(t *testing.T) {
	sc := NewServerContext(context.Background())
	assert.False(t, sc.IsShutdown())

	require.NoError(t, sc.Shutdown())
	require.NoError(t, sc.Shutdown())

	assert.True(t, sc.IsShutdown())
	assert.ErrorIs(t, sc.Context().Err(), context.Canceled)
}
