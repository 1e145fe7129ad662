package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, status int, body string, inspect func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSuggestSendsExpectedRequest(t *testing.T) {
	var got map[string]any
	var key, contentType string
	srv := newServer(t, http.StatusOK,
		`{"candidates":[{"content":{"parts":[{"text":"Walk 30 minutes a day."}]}}]}`,
		func(r *http.Request) {
			key = r.URL.Query().Get("key")
			contentType = r.Header.Get("Content-Type")
			_ = json.NewDecoder(r.Body).Decode(&got)
		})

	c := NewClient(srv.URL+"/v1beta/models/test:generateContent", "secret", time.Second)
	text, err := c.Suggest(context.Background(), "The patient has low stroke risk.")
	require.NoError(t, err)
	assert.Equal(t, "Walk 30 minutes a day.", text)

	assert.Equal(t, "secret", key)
	assert.Equal(t, "application/json", contentType)

	contents := got["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	assert.Equal(t, "The patient has low stroke risk.", parts[0].(map[string]any)["text"])

	tools := got["tools"].([]any)
	assert.Contains(t, tools[0].(map[string]any), "google_search")

	sys := got["systemInstruction"].(map[string]any)["parts"].([]any)
	assert.Equal(t, SystemInstruction, sys[0].(map[string]any)["text"])
}

func TestSuggestMissingText(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"inlineData":{}}]}}]}`, nil)
	text, err := NewClient(srv.URL, "k", time.Second).Suggest(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, NoSuggestion, text)
}

func TestSuggestFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`},
		{"forbidden", http.StatusForbidden, `{}`},
		{"malformed json", http.StatusOK, `{"candidates":[`},
		{"no candidates", http.StatusOK, `{}`},
		{"empty candidates", http.StatusOK, `{"candidates":[]}`},
		{"no content", http.StatusOK, `{"candidates":[{}]}`},
		{"no parts", http.StatusOK, `{"candidates":[{"content":{"parts":[]}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.status, tt.body, nil)
			_, err := NewClient(srv.URL, "k", time.Second).Suggest(context.Background(), "p")
			assert.Error(t, err)
		})
	}
}

func TestSuggestWithoutKey(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:0", "", time.Second).Suggest(context.Background(), "p")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestSuggestTransportErrorHidesKey(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{}`, nil)
	endpoint := srv.URL
	srv.Close()

	_, err := NewClient(endpoint, "top-secret", time.Second).Suggest(context.Background(), "p")
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "top-secret"))
}
