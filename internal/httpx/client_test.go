package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Ratio1/graph_sdk_go/pkg/apierr"
)

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)

	_, err = NewClient("://not-a-url")
	assert.Error(t, err)

	_, err = NewClient("localhost")
	assert.Error(t, err)

	c, err := NewClient("http://example.com/api")
	require.NoError(t, err)
	got, err := c.buildURL("/threads/abc/state", url.Values{"limit": {"5"}})
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/api/threads/abc/state?limit=5", got)
}

func TestDoSendsHeadersAndBody(t *testing.T) {
	var seen *http.Request
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL,
		WithAPIKey("secret"),
		WithHeaders(http.Header{"X-Tenant": {"acme"}}),
	)
	require.NoError(t, err)

	req, err := NewJSONRequest(http.MethodPost, "/threads", map[string]any{"if_exists": "raise"})
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))

	require.NotNil(t, seen)
	assert.Equal(t, http.MethodPost, seen.Method)
	assert.Equal(t, "/threads", seen.URL.Path)
	assert.Equal(t, "secret", seen.Header.Get(APIKeyHeader))
	assert.Equal(t, "acme", seen.Header.Get("X-Tenant"))
	assert.Equal(t, "application/json", seen.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", seen.Header.Get("Accept"))
	assert.JSONEq(t, `{"if_exists":"raise"}`, string(body))
}

func TestCallMapsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"detail":"Thread already exists"}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Call(context.Background(), &Request{Method: http.MethodPost, Path: "threads"}, "Failed to create thread")
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "Failed to create thread: Thread already exists", apiErr.Message)
}

func TestCallTreatsOnlyOKAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Call(context.Background(), &Request{Method: http.MethodDelete, Path: "store/items"}, "Failed to delete store item")
	code, ok := apierr.StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNoContent, code)
}

func TestDoDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "store/namespaces"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDoHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Do(ctx, &Request{Method: http.MethodGet, Path: "threads/x/state"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDoLogsAtDebug(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	core, logs := observer.New(zap.DebugLevel)
	c, err := NewClient(srv.URL, WithLogger(zap.New(core)))
	require.NoError(t, err)

	_, err = c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "store/namespaces"})
	require.NoError(t, err)

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/store/namespaces", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestDoRejectsInvalidRequests(t *testing.T) {
	c, err := NewClient("http://localhost")
	require.NoError(t, err)

	_, err = c.Do(context.Background(), nil)
	assert.Error(t, err)
	_, err = c.Do(context.Background(), &Request{Path: "threads"})
	assert.Error(t, err)

	var nilClient *Client
	_, err = nilClient.Do(context.Background(), &Request{Method: http.MethodGet})
	assert.Error(t, err)
}
