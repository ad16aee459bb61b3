package google

import (
	calendar "google.golang.org/api/calendar/v3"
)

// DefaultOAuthScopes grants read and write access to events and settings.
var DefaultOAuthScopes = []string{
	calendar.CalendarScope,
}

// ReadOnlyOAuthScopes is requested by `auth --read-only`. It is enough for
// free/busy queries, event listing and reading the account timezone.
var ReadOnlyOAuthScopes = []string{
	calendar.CalendarReadonlyScope,
}
