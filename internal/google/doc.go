// Package google provides OAuth2 authentication and token management for
// the Google Calendar API.
//
// Tokens are stored per account as JSON files under the XDG data directory
// (for example ~/.local/share/calendar-assistant/google-work.token). The
// TokenProvider interface lets the calendar client obtain credentials
// without knowing where they live; FileTokenProvider refreshes expired
// tokens and writes them back.
package google
