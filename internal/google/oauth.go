package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/adrg/xdg"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// AppName names the per-user data directory holding token files.
const AppName = "calendar-assistant"

// DefaultAccount is used when a caller does not name an account.
const DefaultAccount = "default"

// DefaultRedirectURL is the loopback address the auth command listens on.
const DefaultRedirectURL = "http://localhost:8085/oauth/callback"

// tokenDir is overridden in tests.
var tokenDir = func() string {
	return filepath.Join(xdg.DataHome, AppName)
}

var accountNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ErrNoToken is wrapped by AuthError when no token file exists.
var ErrNoToken = errors.New("no OAuth token stored")

// AuthError reports that no usable credential exists for an account.
type AuthError struct {
	Account string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("Google OAuth token for account %q is missing or expired: %v; re-run the OAuth flow with `%s auth --account %s`",
		e.Account, e.Err, AppName, e.Account)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewOAuthConfig returns the OAuth2 configuration for Google Calendar.
// Empty client credentials fall back to GOOGLE_CLIENT_ID and
// GOOGLE_CLIENT_SECRET.
func NewOAuthConfig(clientID, clientSecret, redirectURL string, scopes []string) *oauth2.Config {
	if clientID == "" {
		clientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if redirectURL == "" {
		redirectURL = DefaultRedirectURL
	}
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
	}
}

// GetAuthURL returns the consent URL for conf. Offline access is requested
// so that a refresh token is issued.
func GetAuthURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeAndSave exchanges an authorization code and stores the resulting
// token for account.
func ExchangeAndSave(ctx context.Context, conf *oauth2.Config, account, code string) (*oauth2.Token, error) {
	if err := ValidateAccountName(account); err != nil {
		return nil, err
	}
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if err := SaveTokenForAccount(account, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// TokenPath returns the token file location for account.
func TokenPath(account string) (string, error) {
	if err := ValidateAccountName(account); err != nil {
		return "", err
	}
	return getTokenFilePath(account), nil
}

// SaveTokenForAccount writes tok as JSON with owner-only permissions.
func SaveTokenForAccount(account string, tok *oauth2.Token) error {
	if err := ValidateAccountName(account); err != nil {
		return err
	}
	path := getTokenFilePath(account)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}

// LoadTokenForAccount reads the stored token for account. A missing file is
// reported as an AuthError wrapping ErrNoToken.
func LoadTokenForAccount(account string) (*oauth2.Token, error) {
	if err := ValidateAccountName(account); err != nil {
		return nil, err
	}

	f, err := os.Open(getTokenFilePath(account))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &AuthError{Account: account, Err: ErrNoToken}
		}
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, &AuthError{Account: account, Err: fmt.Errorf("failed to decode token: %w", err)}
	}
	return &tok, nil
}

// HasTokenForAccount checks if a token file exists for account.
func HasTokenForAccount(account string) bool {
	if ValidateAccountName(account) != nil {
		return false
	}
	_, err := os.Stat(getTokenFilePath(account))
	return err == nil
}

func getTokenFilePath(account string) string {
	return filepath.Join(tokenDir(), fmt.Sprintf("google-%s.token", account))
}

// ValidateAccountName rejects names that cannot be used in a token file name.
func ValidateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if !accountNameRe.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, hyphens and underscores are allowed", account)
	}
	return nil
}
