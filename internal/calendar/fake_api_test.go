package calendar

import (
	"context"
	"fmt"
	"sync"

	calendar "google.golang.org/api/calendar/v3"
)

// fakeAPI is an in-memory API. Queued errors are returned, one per call,
// before the call is served.
type fakeAPI struct {
	mu       sync.Mutex
	events   map[string]*calendar.Event
	busy     map[string][]*calendar.TimePeriod
	fbErrors map[string][]*calendar.Error
	timezone string
	errs     []error
	calls    []string
	lastList ListQuery
	lastBody *calendar.Event
	nextID   int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		events:   map[string]*calendar.Event{},
		busy:     map[string][]*calendar.TimePeriod{},
		fbErrors: map[string][]*calendar.Error{},
		timezone: "UTC",
	}
}

func (f *fakeAPI) failNext(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, errs...)
}

func (f *fakeAPI) record(call string) error {
	f.calls = append(f.calls, call)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeAPI) InsertEvent(_ context.Context, _ string, event *calendar.Event) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("insert"); err != nil {
		return nil, err
	}
	f.nextID++
	created := *event
	created.Id = fmt.Sprintf("evt%d", f.nextID)
	f.events[created.Id] = &created
	f.lastBody = event
	return &created, nil
}

func (f *fakeAPI) GetEvent(_ context.Context, _ string, eventID string) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("get"); err != nil {
		return nil, err
	}
	ev, ok := f.events[eventID]
	if !ok {
		return nil, notFoundErr()
	}
	cp := *ev
	return &cp, nil
}

func (f *fakeAPI) PatchEvent(_ context.Context, _ string, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("patch"); err != nil {
		return nil, err
	}
	ev, ok := f.events[eventID]
	if !ok {
		return nil, notFoundErr()
	}
	f.lastBody = patch
	if patch.Summary != "" || contains(patch.ForceSendFields, "Summary") {
		ev.Summary = patch.Summary
	}
	if patch.Description != "" || contains(patch.ForceSendFields, "Description") {
		ev.Description = patch.Description
	}
	if patch.Location != "" || contains(patch.ForceSendFields, "Location") {
		ev.Location = patch.Location
	}
	if patch.Start != nil {
		ev.Start = patch.Start
	}
	if patch.End != nil {
		ev.End = patch.End
	}
	cp := *ev
	return &cp, nil
}

func (f *fakeAPI) ListEvents(_ context.Context, _ string, query ListQuery) ([]*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list"); err != nil {
		return nil, err
	}
	f.lastList = query
	var out []*calendar.Event
	for _, ev := range f.events {
		out = append(out, ev)
	}
	if query.MaxResults > 0 && int64(len(out)) > query.MaxResults {
		out = out[:query.MaxResults]
	}
	return out, nil
}

func (f *fakeAPI) QueryFreeBusy(_ context.Context, req *calendar.FreeBusyRequest) (*calendar.FreeBusyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("freebusy"); err != nil {
		return nil, err
	}
	resp := &calendar.FreeBusyResponse{Calendars: map[string]calendar.FreeBusyCalendar{}}
	for _, item := range req.Items {
		resp.Calendars[item.Id] = calendar.FreeBusyCalendar{
			Busy:   f.busy[item.Id],
			Errors: f.fbErrors[item.Id],
		}
	}
	return resp, nil
}

func (f *fakeAPI) GetSetting(_ context.Context, setting string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("setting:" + setting); err != nil {
		return "", err
	}
	return f.timezone, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
