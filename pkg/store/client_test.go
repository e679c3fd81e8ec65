package store_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Ratio1/graph_sdk_go/internal/httpx"
	"github.com/Ratio1/graph_sdk_go/internal/sandbox"
	"github.com/Ratio1/graph_sdk_go/pkg/apierr"
	"github.com/Ratio1/graph_sdk_go/pkg/store"
	storemock "github.com/Ratio1/graph_sdk_go/pkg/store/mock"
	threadsmock "github.com/Ratio1/graph_sdk_go/pkg/threads/mock"
)

func newSandboxClient(t *testing.T, opts sandbox.Options) *store.Client {
	t.Helper()
	srv := httptest.NewServer(sandbox.New(storemock.New(), threadsmock.New(), opts))
	t.Cleanup(srv.Close)
	client, err := store.New(srv.URL)
	require.NoError(t, err)
	return client
}

func newStubClient(t *testing.T, handler http.HandlerFunc) *store.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := store.New(srv.URL)
	require.NoError(t, err)
	return client
}

func TestCreateGetRoundTrip(t *testing.T) {
	client := newSandboxClient(t, sandbox.Options{})
	ctx := context.Background()

	created, err := client.CreateItem(ctx, store.ItemCreate{
		Namespace: []string{"users", "alice"},
		ID:        "profile",
		Data:      map[string]any{"name": "Alice", "age": 31},
		Metadata:  map[string]any{"source": "test"},
	})
	require.NoError(t, err)
	assert.Equal(t, "profile", created.ID)

	got, err := client.GetItem(ctx, []string{"users", "alice"}, "profile")
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "alice"}, got.Namespace)
	assert.Equal(t, "profile", got.ID)
	assert.JSONEq(t, `{"name":"Alice","age":31}`, string(got.Data))
	assert.Equal(t, "test", got.Metadata["source"])

	var decoded struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	require.NoError(t, got.Decode(&decoded))
	assert.Equal(t, 31, decoded.Age)
}

func TestDeleteThenGetFails(t *testing.T) {
	client := newSandboxClient(t, sandbox.Options{})
	ctx := context.Background()

	_, err := client.CreateItem(ctx, store.ItemCreate{Namespace: []string{"tmp"}, ID: "x", Data: 1})
	require.NoError(t, err)
	require.NoError(t, client.DeleteItem(ctx, []string{"tmp"}, "x"))

	_, err = client.GetItem(ctx, []string{"tmp"}, "x")
	require.Error(t, err)
	assert.True(t, apierr.IsNotFound(err))
	assert.True(t, strings.HasPrefix(err.Error(), "Failed to get store item"), err.Error())
}

func TestSearchEmptyAndFiltered(t *testing.T) {
	client := newSandboxClient(t, sandbox.Options{})
	ctx := context.Background()

	items, err := client.SearchItems(ctx, store.ItemSearch{Namespace: []string{"nothing", "here"}})
	require.NoError(t, err)
	require.NotNil(t, items)
	assert.Empty(t, items)

	for i, kind := range []string{"a", "b", "a"} {
		_, err := client.CreateItem(ctx, store.ItemCreate{
			Namespace: []string{"docs"},
			ID:        fmt.Sprintf("doc-%d", i),
			Data:      i,
			Metadata:  map[string]any{"kind": kind},
		})
		require.NoError(t, err)
	}

	items, err = client.SearchItems(ctx, store.ItemSearch{
		Namespace: []string{"docs"},
		Metadata:  map[string]any{"kind": "a"},
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "doc-0", items[0].ID)
	assert.Equal(t, "doc-2", items[1].ID)

	namespaces, err := client.ListNamespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs"}, namespaces)
}

func TestListNamespacesResponseShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want []string
	}{
		{name: "bare array", body: `["a","b"]`, want: []string{"a", "b"}},
		{name: "object", body: `{"namespaces":["a"]}`, want: []string{"a"}},
		{name: "other object", body: `{"other":1}`, want: []string{}},
		{name: "scalar", body: `42`, want: []string{}},
		{name: "null list", body: `{"namespaces":null}`, want: []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/store/namespaces", r.URL.Path)
				io.WriteString(w, tc.body)
			})
			got, err := client.ListNamespaces(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	client := newSandboxClient(t, sandbox.Options{NamespaceShape: sandbox.NamespacesArray})
	got, err := client.ListNamespaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{}, got)
}

func TestNon200StatusIsReported(t *testing.T) {
	for _, status := range []int{
		http.StatusCreated,
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusNotFound,
		http.StatusConflict,
		http.StatusUnprocessableEntity,
		http.StatusInternalServerError,
		http.StatusServiceUnavailable,
	} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				io.WriteString(w, `{"detail":"boom"}`)
			})
			ctx := context.Background()

			calls := map[string]error{}
			_, calls["create"] = client.CreateItem(ctx, store.ItemCreate{ID: "x"})
			_, calls["get"] = client.GetItem(ctx, nil, "x")
			_, calls["search"] = client.SearchItems(ctx, store.ItemSearch{})
			calls["delete"] = client.DeleteItem(ctx, nil, "x")
			_, calls["namespaces"] = client.ListNamespaces(ctx)

			for name, err := range calls {
				var apiErr *apierr.Error
				require.ErrorAs(t, err, &apiErr, name)
				assert.Equal(t, status, apiErr.StatusCode, name)
				assert.True(t, strings.HasSuffix(apiErr.Message, ": boom"), apiErr.Message)
			}
		})
	}
}

func TestMalformedSuccessBody(t *testing.T) {
	client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id": "x",`)
	})

	_, err := client.GetItem(context.Background(), []string{"a"}, "x")
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.HasStatus())
	assert.True(t, strings.HasPrefix(apiErr.Message, "Failed to get store item: "), apiErr.Message)
	assert.NotNil(t, errors.Unwrap(err))

	_, err = client.ListNamespaces(context.Background())
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, strings.HasPrefix(apiErr.Message, "Failed to list store namespaces: "), apiErr.Message)
}

func TestNullEntityBodyIsRejected(t *testing.T) {
	client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "null")
	})
	ctx := context.Background()

	item, err := client.CreateItem(ctx, store.ItemCreate{Namespace: []string{"a"}, ID: "x"})
	assert.Nil(t, item)
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.HasStatus())
	assert.Equal(t, "Failed to create store item: null response body", apiErr.Message)

	item, err = client.GetItem(ctx, []string{"a"}, "x")
	assert.Nil(t, item)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Failed to get store item: null response body", apiErr.Message)
}

func TestTransportFailureIsWrappedOnce(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client, err := store.New(baseURL)
	require.NoError(t, err)

	_, err = client.SearchItems(context.Background(), store.ItemSearch{})
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1, strings.Count(apiErr.Message, "Failed to search store items"))
	var urlErr *url.Error
	assert.ErrorAs(t, err, &urlErr)
}

func TestRequestEncoding(t *testing.T) {
	var (
		gotQuery  url.Values
		gotMethod string
		gotKey    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotMethod = r.Method
		gotKey = r.Header.Get(httpx.APIKeyHeader)
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	client, err := store.New(srv.URL)
	require.NoError(t, err)
	require.NoError(t, client.DeleteItem(context.Background(), []string{"a b", "c&d"}, "id/1"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, []string{"a b", "c&d"}, gotQuery["namespace"])
	assert.Equal(t, "id/1", gotQuery.Get("id"))
	assert.Empty(t, gotKey)

	keyed, err := store.New(srv.URL, httpx.WithAPIKey("k-1"))
	require.NoError(t, err)
	require.NoError(t, keyed.DeleteItem(context.Background(), nil, "x"))
	assert.Equal(t, "k-1", gotKey)
}

func TestNilClient(t *testing.T) {
	var client *store.Client
	_, err := client.GetItem(context.Background(), nil, "x")
	assert.ErrorIs(t, err, store.ErrClientNil)
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.HasStatus())
}

func TestConcurrentCalls(t *testing.T) {
	client := newSandboxClient(t, sandbox.Options{})
	ctx := context.Background()

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			id := fmt.Sprintf("item-%02d", i)
			if _, err := client.CreateItem(ctx, store.ItemCreate{Namespace: []string{"load"}, ID: id, Data: i}); err != nil {
				return err
			}
			_, err := client.GetItem(ctx, []string{"load"}, id)
			return err
		})
	}
	require.NoError(t, g.Wait())

	items, err := client.SearchItems(context.Background(), store.ItemSearch{Namespace: []string{"load"}})
	require.NoError(t, err)
	assert.Len(t, items, 16)
}

func TestClientWithMockBackend(t *testing.T) {
	client := store.NewWithBackend(storemock.New())
	ctx := context.Background()

	_, err := client.GetItem(ctx, []string{"a"}, "missing")
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Item not found", apiErr.Message)
}
