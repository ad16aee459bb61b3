package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/teemow/calendar-assistant/internal/google"
)

const (
	callbackPath = "/oauth/callback"
	authTimeout  = 5 * time.Minute
)

type authOptions struct {
	Account      string
	ReadOnly     bool
	ClientID     string
	ClientSecret string
	ListenAddr   string
	Code         string
}

func newAuthCmd() *cobra.Command {
	opts := authOptions{}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize a Google account for calendar access",
		Long: `Run the Google OAuth flow for one account and store its token.

A local HTTP listener receives the OAuth callback. Open the printed URL in a
browser, grant access, and the token is written to the calendar-assistant
data directory. With --code, an authorization code obtained elsewhere is
exchanged directly instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Account, "account", google.DefaultAccount, "Account name the token is stored under")
	cmd.Flags().BoolVar(&opts.ReadOnly, "read-only", false, "Request read-only calendar access")
	cmd.Flags().StringVar(&opts.ClientID, "client-id", "", "Google OAuth Client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&opts.ClientSecret, "client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&opts.ListenAddr, "listen-addr", "localhost:8085", "Address of the local OAuth callback listener")
	cmd.Flags().StringVar(&opts.Code, "code", "", "Exchange this authorization code instead of starting a listener")

	return cmd
}

func runAuth(cmd *cobra.Command, opts authOptions) error {
	if err := google.ValidateAccountName(opts.Account); err != nil {
		return err
	}

	scopes := google.DefaultOAuthScopes
	if opts.ReadOnly {
		scopes = google.ReadOnlyOAuthScopes
	}
	redirectURL := (&url.URL{Scheme: "http", Host: opts.ListenAddr, Path: callbackPath}).String()
	conf := google.NewOAuthConfig(opts.ClientID, opts.ClientSecret, redirectURL, scopes)
	if conf.ClientID == "" || conf.ClientSecret == "" {
		return errors.New("google OAuth client credentials are required: set --client-id/--client-secret or GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), authTimeout)
	defer cancel()

	code := opts.Code
	if code == "" {
		var err error
		code, err = awaitAuthCode(ctx, conf, opts.ListenAddr, cmd)
		if err != nil {
			return err
		}
	}

	if _, err := google.ExchangeAndSave(ctx, conf, opts.Account, code); err != nil {
		return err
	}

	path, err := google.TokenPath(opts.Account)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Token for account %q saved to %s\n", opts.Account, path)
	return nil
}

// awaitAuthCode prints the consent URL and blocks until the browser is
// redirected back to the local listener.
func awaitAuthCode(ctx context.Context, conf *oauth2.Config, addr string, cmd *cobra.Command) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to start OAuth callback listener on %s: %w", addr, err)
	}

	state := uuid.NewString()
	codes := make(chan string, 1)
	errs := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, callbackHandler(state, codes, errs))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errs <- err:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in your browser to authorize calendar access:\n\n%s\n\n", google.GetAuthURL(conf, state))
	fmt.Fprintln(cmd.OutOrStdout(), "Waiting for authorization...")

	select {
	case code := <-codes:
		return code, nil
	case err := <-errs:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("timed out waiting for OAuth callback: %w", ctx.Err())
	}
}

// callbackHandler accepts exactly one callback carrying the expected state.
func callbackHandler(state string, codes chan<- string, errs chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if q.Get("state") != state {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}
		if e := q.Get("error"); e != "" {
			http.Error(w, "Authorization failed: "+e, http.StatusBadRequest)
			select {
			case errs <- fmt.Errorf("authorization denied: %s", e):
			default:
			}
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			return
		}

		select {
		case codes <- code:
			fmt.Fprintln(w, "Authorization complete. You can close this window.")
		default:
			http.Error(w, "Authorization already completed", http.StatusConflict)
		}
	}
}
