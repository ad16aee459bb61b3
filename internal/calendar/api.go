package calendar

import (
	"context"
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// API is the subset of the Google Calendar v3 service used by Client.
// Tests substitute an in-memory implementation.
type API interface {
	InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error)
	GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error)
	PatchEvent(ctx context.Context, calendarID, eventID string, patch *calendar.Event) (*calendar.Event, error)
	ListEvents(ctx context.Context, calendarID string, query ListQuery) ([]*calendar.Event, error)
	QueryFreeBusy(ctx context.Context, req *calendar.FreeBusyRequest) (*calendar.FreeBusyResponse, error)
	GetSetting(ctx context.Context, setting string) (string, error)
}

// ListQuery selects expanded single events ordered by start time.
type ListQuery struct {
	TimeMin time.Time
	// TimeMax is optional.
	TimeMax time.Time
	// MaxResults caps the result to one page. Zero reads every page.
	MaxResults int64
}

// serviceAPI implements API on top of *calendar.Service.
type serviceAPI struct {
	svc *calendar.Service
}

// NewServiceAPI wraps a Calendar service.
func NewServiceAPI(svc *calendar.Service) API {
	return &serviceAPI{svc: svc}
}

func (a *serviceAPI) InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	return a.svc.Events.Insert(calendarID, event).Context(ctx).Do()
}

func (a *serviceAPI) GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error) {
	return a.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
}

func (a *serviceAPI) PatchEvent(ctx context.Context, calendarID, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	return a.svc.Events.Patch(calendarID, eventID, patch).Context(ctx).Do()
}

func (a *serviceAPI) ListEvents(ctx context.Context, calendarID string, query ListQuery) ([]*calendar.Event, error) {
	call := a.svc.Events.List(calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(query.TimeMin.Format(time.RFC3339))
	if !query.TimeMax.IsZero() {
		call = call.TimeMax(query.TimeMax.Format(time.RFC3339))
	}

	if query.MaxResults > 0 {
		resp, err := call.MaxResults(query.MaxResults).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return resp.Items, nil
	}

	var items []*calendar.Event
	err := call.Pages(ctx, func(page *calendar.Events) error {
		items = append(items, page.Items...)
		return nil
	})
	return items, err
}

func (a *serviceAPI) QueryFreeBusy(ctx context.Context, req *calendar.FreeBusyRequest) (*calendar.FreeBusyResponse, error) {
	return a.svc.Freebusy.Query(req).Context(ctx).Do()
}

func (a *serviceAPI) GetSetting(ctx context.Context, setting string) (string, error) {
	s, err := a.svc.Settings.Get(setting).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return s.Value, nil
}
