package cmd

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
		wantErr    bool
	}{
		{name: "valid callback", query: "?state=s1&code=abc", wantStatus: http.StatusOK, wantCode: "abc"},
		{name: "wrong state", query: "?state=other&code=abc", wantStatus: http.StatusBadRequest},
		{name: "missing code", query: "?state=s1", wantStatus: http.StatusBadRequest},
		{name: "denied", query: "?state=s1&error=access_denied", wantStatus: http.StatusBadRequest, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes := make(chan string, 1)
			errs := make(chan error, 1)
			h := callbackHandler("s1", codes, errs)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, callbackPath+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				require.Len(t, codes, 1)
				assert.Equal(t, tt.wantCode, <-codes)
			} else {
				assert.Empty(t, codes)
			}
			if tt.wantErr {
				require.Len(t, errs, 1)
				assert.Contains(t, (<-errs).Error(), "access_denied")
			}
		})
	}
}

func TestCallbackHandler_SecondCallbackRejected(t *testing.T) {
	codes := make(chan string, 1)
	h := callbackHandler("s1", codes, make(chan error, 1))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, callbackPath+"?state=s1&code=a", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, callbackPath+"?state=s1&code=b", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, "a", <-codes)
}

func TestRunAuth_RequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")

	cmd := newAuthCmd()
	cmd.SetArgs([]string{"--account", "work", "--code", "x"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client credentials")
}

func TestRunAuth_InvalidAccount(t *testing.T) {
	cmd := newAuthCmd()
	cmd.SetArgs([]string{"--account", "a/b", "--code", "x"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid account name")
}
