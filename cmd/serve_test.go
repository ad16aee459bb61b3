package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommaSeparatedList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "work",
			expected: []string{"work"},
		},
		{
			name:     "multiple values",
			input:    "work,personal",
			expected: []string{"work", "personal"},
		},
		{
			name:     "values with spaces around comma",
			input:    "work, personal",
			expected: []string{"work", "personal"},
		},
		{
			name:     "values with leading/trailing spaces",
			input:    "  work  ,  personal  ",
			expected: []string{"work", "personal"},
		},
		{
			name:     "trailing comma",
			input:    "work,personal,",
			expected: []string{"work", "personal"},
		},
		{
			name:     "leading comma",
			input:    ",work,personal",
			expected: []string{"work", "personal"},
		},
		{
			name:     "multiple consecutive commas",
			input:    "work,,personal",
			expected: []string{"work", "personal"},
		},
		{
			name:     "only commas and spaces",
			input:    ",  , , ",
			expected: []string{},
		},
		{
			name:     "single value with surrounding whitespace",
			input:    "  work  ",
			expected: []string{"work"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseCommaSeparatedList(tt.input)

			// Handle nil vs empty slice comparison
			if tt.expected == nil {
				if result != nil {
					t.Errorf("parseCommaSeparatedList(%q) = %v, want nil", tt.input, result)
				}
				return
			}

			if len(result) != len(tt.expected) {
				t.Errorf("parseCommaSeparatedList(%q) = %v (len %d), want %v (len %d)",
					tt.input, result, len(result), tt.expected, len(tt.expected))
				return
			}

			for i, v := range result {
				if v != tt.expected[i] {
					t.Errorf("parseCommaSeparatedList(%q)[%d] = %q, want %q",
						tt.input, i, v, tt.expected[i])
				}
			}
		})
	}
}

func TestLoadServeEnv(t *testing.T) {
	t.Run("environment fills unset flags", func(t *testing.T) {
		t.Setenv("GOOGLE_CLIENT_ID", "env-id")
		t.Setenv("GOOGLE_CLIENT_SECRET", "env-secret")
		t.Setenv("METRICS_ENABLED", "false")
		t.Setenv("METRICS_ADDR", ":9191")
		t.Setenv("CALENDAR_RATE_LIMIT", "2.5")

		cmd := newServeCmd()
		require.NoError(t, cmd.ParseFlags(nil))

		cfg := serveConfig{MetricsEnabled: true, CalendarRateLimit: 5}
		require.NoError(t, loadServeEnv(cmd, &cfg))

		assert.Equal(t, "env-id", cfg.GoogleClientID)
		assert.Equal(t, "env-secret", cfg.GoogleClientSecret)
		assert.False(t, cfg.MetricsEnabled)
		assert.Equal(t, ":9191", cfg.MetricsAddr)
		assert.Equal(t, 2.5, cfg.CalendarRateLimit)
	})

	t.Run("explicit flags win", func(t *testing.T) {
		t.Setenv("GOOGLE_CLIENT_ID", "env-id")
		t.Setenv("METRICS_ADDR", ":9191")

		cmd := newServeCmd()
		require.NoError(t, cmd.ParseFlags([]string{"--google-client-id", "flag-id", "--metrics-addr", ":7070"}))

		cfg := serveConfig{GoogleClientID: "flag-id", MetricsAddr: ":7070"}
		require.NoError(t, loadServeEnv(cmd, &cfg))

		assert.Equal(t, "flag-id", cfg.GoogleClientID)
		assert.Equal(t, ":7070", cfg.MetricsAddr)
	})

	t.Run("invalid values", func(t *testing.T) {
		t.Setenv("CALENDAR_RATE_LIMIT", "fast")

		cmd := newServeCmd()
		require.NoError(t, cmd.ParseFlags(nil))

		err := loadServeEnv(cmd, &serveConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CALENDAR_RATE_LIMIT")
	})
}

func TestServeConfig_Validate(t *testing.T) {
	valid := serveConfig{Transport: transportStdio, CalendarRateLimit: 5, CalendarRateBurst: 10}

	tests := []struct {
		name    string
		mutate  func(*serveConfig)
		wantErr string
	}{
		{name: "valid stdio", mutate: func(*serveConfig) {}},
		{name: "valid http", mutate: func(c *serveConfig) { c.Transport = transportStreamableHTTP }},
		{name: "unknown transport", mutate: func(c *serveConfig) { c.Transport = "sse" }, wantErr: "unsupported transport"},
		{name: "zero rate limit", mutate: func(c *serveConfig) { c.CalendarRateLimit = 0 }, wantErr: "rate limit"},
		{name: "zero burst", mutate: func(c *serveConfig) { c.CalendarRateBurst = 0 }, wantErr: "burst"},
		{name: "valid accounts", mutate: func(c *serveConfig) { c.Accounts = "work, personal" }},
		{name: "bad account", mutate: func(c *serveConfig) { c.Accounts = "work,../etc" }, wantErr: "account"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
