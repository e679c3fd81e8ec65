package sandbox

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/graph_sdk_go/internal/devseed"
	"github.com/Ratio1/graph_sdk_go/pkg/apierr"
	"github.com/Ratio1/graph_sdk_go/pkg/store"
	threadsmock "github.com/Ratio1/graph_sdk_go/pkg/threads/mock"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sandbox", "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreUpsertAndGet(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	first, err := s.CreateItem(ctx, store.ItemCreate{
		Namespace: []string{"users", "42"},
		ID:        "prefs",
		Data:      map[string]any{"theme": "dark"},
		Metadata:  map[string]any{"version": 1},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, string(first.Data))
	assert.Equal(t, float64(1), first.Metadata["version"])

	_, err = s.CreateItem(ctx, store.ItemCreate{
		Namespace: []string{"users", "42"},
		ID:        "prefs",
		Data:      "light",
	})
	require.NoError(t, err)

	got, err := s.GetItem(ctx, []string{"users", "42"}, "prefs")
	require.NoError(t, err)
	assert.JSONEq(t, `"light"`, string(got.Data))
	assert.Nil(t, got.Metadata)
	require.NotNil(t, got.CreatedAt)
	assert.True(t, got.CreatedAt.Equal(*first.CreatedAt))

	_, err = s.CreateItem(ctx, store.ItemCreate{Namespace: []string{"x"}})
	code, ok := apierr.StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestSQLiteStoreSearchDeleteAndNamespaces(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	seed := []store.ItemCreate{
		{Namespace: []string{"docs", "a"}, ID: "2", Data: 2, Metadata: map[string]any{"kind": "note"}},
		{Namespace: []string{"docs", "a"}, ID: "1", Data: 1, Metadata: map[string]any{"kind": "note"}},
		{Namespace: []string{"docs", "b"}, ID: "3", Data: 3, Metadata: map[string]any{"kind": "todo"}},
		{Namespace: []string{"docsx"}, ID: "4", Data: 4},
	}
	for _, req := range seed {
		_, err := s.CreateItem(ctx, req)
		require.NoError(t, err)
	}

	items, err := s.SearchItems(ctx, store.ItemSearch{Namespace: []string{"docs"}})
	require.NoError(t, err)
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)

	items, err = s.SearchItems(ctx, store.ItemSearch{Metadata: map[string]any{"kind": "note"}, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2", items[0].ID)

	items, err = s.SearchItems(ctx, store.ItemSearch{Namespace: []string{"nothing"}})
	require.NoError(t, err)
	assert.Empty(t, items)

	namespaces, err := s.ListNamespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs.a", "docs.b", "docsx"}, namespaces)

	require.NoError(t, s.DeleteItem(ctx, []string{"docs", "b"}, "3"))
	require.NoError(t, s.DeleteItem(ctx, []string{"docs", "b"}, "3"))
	_, err = s.GetItem(ctx, []string{"docs", "b"}, "3")
	assert.True(t, apierr.IsNotFound(err))
}

func TestSQLiteStoreSeed(t *testing.T) {
	s := newSQLiteStore(t)
	require.NoError(t, s.Seed([]devseed.StoreSeedEntry{
		{Namespace: []string{"cfg"}, ID: "flags", Data: map[string]any{"beta": true}},
	}))

	got, err := s.GetItem(context.Background(), []string{"cfg"}, "flags")
	require.NoError(t, err)
	assert.JSONEq(t, `{"beta":true}`, string(got.Data))

	assert.Error(t, s.Seed([]devseed.StoreSeedEntry{{Namespace: []string{"cfg"}}}))
}

func TestHandlerServesSQLiteStore(t *testing.T) {
	srv := httptest.NewServer(New(newSQLiteStore(t), threadsmock.New(), Options{NamespaceShape: NamespacesArray}))
	defer srv.Close()

	code, body := doJSON(t, http.MethodPost, srv.URL+"/store/items", `{"namespace":["a","b"],"id":"x","data":[1,2]}`)
	require.Equal(t, http.StatusOK, code, string(body))

	code, body = doJSON(t, http.MethodGet, srv.URL+"/store/namespaces", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `["a.b"]`, string(body))

	code, _ = doJSON(t, http.MethodGet, srv.URL+"/store/items?namespace=a&id=x", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSQLiteStoreNamespacesDoNotCollide(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	cases := [][]string{{}, {""}, {"a\x1fb"}, {"a", "b"}, {"a"}}
	for i, ns := range cases {
		_, err := s.CreateItem(ctx, store.ItemCreate{Namespace: ns, ID: "x", Data: i})
		require.NoError(t, err)
	}
	for i, ns := range cases {
		got, err := s.GetItem(ctx, ns, "x")
		require.NoError(t, err)
		assert.JSONEq(t, fmt.Sprint(i), string(got.Data), "namespace %q", ns)
		assert.Equal(t, ns, got.Namespace)
	}

	items, err := s.SearchItems(ctx, store.ItemSearch{Namespace: []string{"a"}})
	require.NoError(t, err)
	namespaces := make([][]string, 0, len(items))
	for _, it := range items {
		namespaces = append(namespaces, it.Namespace)
	}
	assert.ElementsMatch(t, [][]string{{"a", "b"}, {"a"}}, namespaces)

	items, err = s.SearchItems(ctx, store.ItemSearch{Namespace: []string{""}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{""}, items[0].Namespace)

	items, err = s.SearchItems(ctx, store.ItemSearch{})
	require.NoError(t, err)
	assert.Len(t, items, len(cases))
}
