package threads_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/graph_sdk_go/pkg/threads"
)

func TestNewFromEnv(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/threads/t-9", r.URL.Path)
		io.WriteString(w, `{"thread_id":"t-9","status":"idle"}`)
	}))
	defer srv.Close()

	t.Setenv("GRAPH_API_URL", srv.URL)
	t.Setenv("GRAPH_API_KEY", "")

	client, err := threads.NewFromEnv()
	require.NoError(t, err)
	thread, err := client.Get(context.Background(), "t-9")
	require.NoError(t, err)
	assert.Equal(t, "idle", thread.Status)
}

func TestNewFromEnvMissingURL(t *testing.T) {
	t.Setenv("GRAPH_API_URL", "  ")
	_, err := threads.NewFromEnv()
	assert.Error(t, err)
}
