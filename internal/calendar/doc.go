// Package calendar is the Google Calendar provider behind the calendar tools.
//
// Client exposes the handful of operations the tools need: insert, get and
// patch an event, list events, query free/busy and read the account
// timezone. Each call waits on a per-client rate limiter, runs in its own
// client span, and is retried with exponential backoff while it fails with
// a network error. Failures come back as *google.AuthError or as a
// *ProviderError carrying one of four kinds:
//
//	NotFound        404 or 410
//	QuotaExceeded   429, or 403 citing quota or rate limits
//	NetworkFailure  5xx or transport errors
//	Other           everything else
//
// The low-level API interface keeps the Google client library out of tests:
//
//	client := calendar.NewClient(fakeAPI, "default", calendar.WithRateLimit(rate.Inf, 1))
package calendar
