package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNewHandler(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		debug   bool
		wantErr bool
		want    string
	}{
		{name: "default text", format: "", want: "level=INFO"},
		{name: "text", format: "text", want: "level=INFO"},
		{name: "json", format: "JSON", want: `"level":"INFO"`},
		{name: "unknown", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h, err := NewHandler(&buf, tt.format, tt.debug)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			slog.New(h).Info("hello")
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestNewHandler_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(&buf, FormatText, false)
	if err != nil {
		t.Fatal(err)
	}
	slog.New(h).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug record written at info level: %q", buf.String())
	}

	buf.Reset()
	h, _ = NewHandler(&buf, FormatText, true)
	slog.New(h).Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug record missing: %q", buf.String())
	}
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	WithAccount(WithTool(WithOperation(logger, "calendar.list"), "list_upcoming_events"), "work").Info("x")

	out := buf.String()
	for _, want := range []string{"operation=calendar.list", "tool=list_upcoming_events", "account=work"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		attr      slog.Attr
		wantKey   string
		wantValue string
	}{
		{Operation("op"), KeyOperation, "op"},
		{Account("work"), KeyAccount, "work"},
		{EventID("evt1"), KeyEventID, "evt1"},
		{Tool("get_free_slots"), KeyTool, "get_free_slots"},
		{Status(StatusSuccess), KeyStatus, "success"},
		{Duration(2 * time.Second), KeyDuration, "2s"},
		{Calendar("primary"), KeyCalendar, "primary"},
	}

	for _, tt := range tests {
		t.Run(tt.wantKey, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if tt.attr.Value.String() != tt.wantValue {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantValue)
			}
		})
	}
}

func TestCalendar_HashesAddresses(t *testing.T) {
	attr := Calendar("team@example.com")
	if attr.Value.String() == "team@example.com" {
		t.Error("calendar address should not be logged verbatim")
	}
	if !strings.HasPrefix(attr.Value.String(), "user:") {
		t.Errorf("unexpected calendar value %q", attr.Value.String())
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("test error"))
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "test error" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "test error")
	}

	// Empty group, omitted by slog
	if attr := Err(nil); attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string", attr.Key)
	}
}

func TestAnonymizeEmail(t *testing.T) {
	if got := AnonymizeEmail(""); got != "" {
		t.Errorf("AnonymizeEmail(\"\") = %q, want empty", got)
	}

	h1 := AnonymizeEmail("test@example.com")
	if len(h1) != 21 || h1[:5] != "user:" {
		t.Errorf("unexpected hash format %q", h1)
	}
	if h1 != AnonymizeEmail("test@example.com") {
		t.Error("AnonymizeEmail should be deterministic")
	}
	if h1 == AnonymizeEmail("other@example.com") {
		t.Error("different emails should produce different hashes")
	}
	if UserHash("test@example.com").Value.String() != h1 {
		t.Error("UserHash should use AnonymizeEmail")
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[token:6 chars]"},
		{"a_very_long_token_string", "[token:24 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.expected {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.expected)
			}
		})
	}
}
