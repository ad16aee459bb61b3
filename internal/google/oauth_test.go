package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func useTempTokenDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig := tokenDir
	tokenDir = func() string { return dir }
	t.Cleanup(func() { tokenDir = orig })
	return dir
}

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		name    string
		account string
		wantErr bool
	}{
		{"valid default", "default", false},
		{"valid with hyphen", "work-email", false},
		{"valid with underscore", "personal_email", false},
		{"valid alphanumeric", "account123", false},
		{"empty", "", true},
		{"with spaces", "my account", true},
		{"with special chars", "account@work", true},
		{"with slash", "work/personal", true},
		{"with dot", "work.email", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAccountName(tt.account)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAccountName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenPath(t *testing.T) {
	dir := useTempTokenDir(t)

	got, err := TokenPath("work")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "google-work.token"), got)

	_, err = TokenPath("../etc")
	assert.Error(t, err)
}

func TestSaveAndLoadToken(t *testing.T) {
	dir := useTempTokenDir(t)
	assert.False(t, HasTokenForAccount("work"))

	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, SaveTokenForAccount("work", tok))
	assert.True(t, HasTokenForAccount("work"))

	info, err := os.Stat(filepath.Join(dir, "google-work.token"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadTokenForAccount("work")
	require.NoError(t, err)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)
	assert.True(t, tok.Expiry.Equal(loaded.Expiry))
}

func TestLoadTokenForAccount_Missing(t *testing.T) {
	useTempTokenDir(t)

	_, err := LoadTokenForAccount("nobody")
	require.Error(t, err)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "nobody", authErr.Account)
	assert.True(t, errors.Is(err, ErrNoToken))
	assert.Contains(t, err.Error(), "re-run the OAuth flow")
	assert.Contains(t, err.Error(), "--account nobody")
}

func TestLoadTokenForAccount_Corrupt(t *testing.T) {
	dir := useTempTokenDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "google-work.token"), []byte("not json"), 0600))

	_, err := LoadTokenForAccount("work")
	var authErr *AuthError
	assert.True(t, errors.As(err, &authErr))
}

func TestHasTokenForAccount_InvalidName(t *testing.T) {
	useTempTokenDir(t)
	assert.False(t, HasTokenForAccount(""))
	assert.False(t, HasTokenForAccount("invalid account"))
}

func TestNewOAuthConfig(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "env-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "env-secret")

	conf := NewOAuthConfig("", "", "", nil)
	assert.Equal(t, "env-id", conf.ClientID)
	assert.Equal(t, "env-secret", conf.ClientSecret)
	assert.Equal(t, DefaultRedirectURL, conf.RedirectURL)
	assert.Equal(t, DefaultOAuthScopes, conf.Scopes)

	conf = NewOAuthConfig("flag-id", "flag-secret", "http://localhost:9999/cb", ReadOnlyOAuthScopes)
	assert.Equal(t, "flag-id", conf.ClientID)
	assert.Equal(t, "flag-secret", conf.ClientSecret)
	assert.Equal(t, ReadOnlyOAuthScopes, conf.Scopes)

	url := GetAuthURL(conf, "xyz")
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "state=xyz")
}

func TestFileTokenProvider_ValidToken(t *testing.T) {
	useTempTokenDir(t)
	require.NoError(t, SaveTokenForAccount("default", &oauth2.Token{
		AccessToken: "still-good",
		Expiry:      time.Now().Add(time.Hour),
	}))

	p := NewFileTokenProvider(nil)
	assert.True(t, p.HasTokenForAccount("default"))

	tok, err := p.GetTokenForAccount(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, "still-good", tok.AccessToken)
}

func TestFileTokenProvider_ExpiredWithoutRefresh(t *testing.T) {
	useTempTokenDir(t)
	require.NoError(t, SaveTokenForAccount("default", &oauth2.Token{
		AccessToken: "old",
		Expiry:      time.Now().Add(-time.Hour),
	}))

	_, err := NewFileTokenProvider(NewOAuthConfig("id", "secret", "", nil)).GetTokenForAccount(context.Background(), "default")
	var authErr *AuthError
	assert.True(t, errors.As(err, &authErr))
}

func TestFileTokenProvider_RefreshPersists(t *testing.T) {
	useTempTokenDir(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	require.NoError(t, SaveTokenForAccount("work", &oauth2.Token{
		AccessToken:  "old",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	conf := NewOAuthConfig("id", "secret", "", nil)
	conf.Endpoint = oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams}

	tok, err := NewFileTokenProvider(conf).GetTokenForAccount(context.Background(), "work")
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)

	stored, err := LoadTokenForAccount("work")
	require.NoError(t, err)
	assert.Equal(t, "fresh", stored.AccessToken)
	assert.Equal(t, "refresh", stored.RefreshToken, "refresh token must survive a refresh response without one")
}

func TestFileTokenProvider_RefreshFailure(t *testing.T) {
	useTempTokenDir(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	require.NoError(t, SaveTokenForAccount("work", &oauth2.Token{
		AccessToken:  "old",
		RefreshToken: "revoked",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	conf := NewOAuthConfig("id", "secret", "", nil)
	conf.Endpoint = oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams}

	p := NewFileTokenProvider(conf)
	var observed []error
	p.OnRefresh(func(_ context.Context, account string, err error) {
		assert.Equal(t, "work", account)
		observed = append(observed, err)
	})

	_, err := p.GetTokenForAccount(context.Background(), "work")
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.True(t, strings.Contains(err.Error(), "token refresh failed"))
	require.Len(t, observed, 1)
	assert.Error(t, observed[0])
}

func TestTokenSource(t *testing.T) {
	useTempTokenDir(t)
	require.NoError(t, SaveTokenForAccount("default", &oauth2.Token{
		AccessToken: "abc",
		Expiry:      time.Now().Add(time.Hour),
	}))

	ts := TokenSource(context.Background(), NewFileTokenProvider(nil), "default")
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
}
