package calendar

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/teemow/calendar-assistant/internal/google"
)

// ErrorKind is the closed set of provider failure categories.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindNotFound
	KindQuotaExceeded
	KindNetworkFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindNetworkFailure:
		return "network_failure"
	default:
		return "other"
	}
}

// ProviderError is returned by every Client method when the Calendar API
// call fails for a reason other than authentication.
type ProviderError struct {
	Kind ErrorKind
	// Op is the Calendar API operation, e.g. "get_event".
	Op string
	// Code is the HTTP status, zero for transport failures.
	Code int
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("calendar %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a NotFound ProviderError.
func IsNotFound(err error) bool {
	return hasKind(err, KindNotFound)
}

// IsQuotaExceeded reports whether err is a QuotaExceeded ProviderError.
func IsQuotaExceeded(err error) bool {
	return hasKind(err, KindQuotaExceeded)
}

// IsNetworkFailure reports whether err is a NetworkFailure ProviderError.
func IsNetworkFailure(err error) bool {
	return hasKind(err, KindNetworkFailure)
}

func hasKind(err error, kind ErrorKind) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == kind
}

var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"dailyLimitExceeded":    true,
}

// classify maps an error from the API layer to *google.AuthError,
// *ProviderError, or leaves context errors untouched.
func classify(op, account string, err error) error {
	if err == nil {
		return nil
	}

	var authErr *google.AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		pe := &ProviderError{Op: op, Code: apiErr.Code, Err: err}
		switch {
		case apiErr.Code == http.StatusUnauthorized:
			return &google.AuthError{Account: account, Err: err}
		case apiErr.Code == http.StatusNotFound, apiErr.Code == http.StatusGone:
			pe.Kind = KindNotFound
		case apiErr.Code == http.StatusTooManyRequests:
			pe.Kind = KindQuotaExceeded
		case apiErr.Code == http.StatusForbidden && isQuotaError(apiErr):
			pe.Kind = KindQuotaExceeded
		case apiErr.Code >= http.StatusInternalServerError:
			pe.Kind = KindNetworkFailure
		default:
			pe.Kind = KindOther
		}
		return pe
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return &ProviderError{Kind: KindNetworkFailure, Op: op, Err: err}
	}

	return &ProviderError{Kind: KindOther, Op: op, Err: err}
}

func isQuotaError(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		if quotaReasons[item.Reason] {
			return true
		}
	}
	text := strings.ToLower(apiErr.Message + " " + apiErr.Body)
	return strings.Contains(text, "quota") || strings.Contains(text, "rate limit")
}
