package store

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Ratio1/graph_sdk_go/internal/httpx"
	"github.com/Ratio1/graph_sdk_go/internal/wire"
	"github.com/Ratio1/graph_sdk_go/pkg/apierr"
)

const (
	msgCreate         = "Failed to create store item"
	msgGet            = "Failed to get store item"
	msgSearch         = "Failed to search store items"
	msgDelete         = "Failed to delete store item"
	msgListNamespaces = "Failed to list store namespaces"
)

// Backend performs the store operations. The HTTP backend talks to the remote
// service; mocks implement the same contract in memory.
type Backend interface {
	CreateItem(ctx context.Context, req ItemCreate) (*Item, error)
	GetItem(ctx context.Context, namespace []string, id string) (*Item, error)
	SearchItems(ctx context.Context, req ItemSearch) ([]Item, error)
	DeleteItem(ctx context.Context, namespace []string, id string) error
	ListNamespaces(ctx context.Context) ([]string, error)
}

// Client provides access to the store REST API. It holds no mutable state and
// is safe for concurrent use.
type Client struct {
	backend Backend
}

// New constructs a Client bound to the provided base URL.
func New(baseURL string, opts ...httpx.Option) (*Client, error) {
	cl, err := httpx.NewClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithHTTPClient(cl), nil
}

// NewWithHTTPClient wraps an existing httpx.Client.
func NewWithHTTPClient(httpClient *httpx.Client) *Client {
	return &Client{backend: &httpBackend{client: httpClient}}
}

// NewWithBackend allows callers to supply a custom backend (e.g., mocks).
func NewWithBackend(b Backend) *Client {
	return &Client{backend: b}
}

// CreateItem stores an item and returns the service's view of it.
func (c *Client) CreateItem(ctx context.Context, req ItemCreate) (*Item, error) {
	if c == nil || c.backend == nil {
		return nil, apierr.Wrap(msgCreate, ErrClientNil)
	}
	item, err := c.backend.CreateItem(ctx, req)
	if err != nil {
		return nil, apierr.Wrap(msgCreate, err)
	}
	return item, nil
}

// GetItem looks up the item stored under the exact (namespace, id) pair. A
// missing item surfaces as an error carrying the service's status code.
func (c *Client) GetItem(ctx context.Context, namespace []string, id string) (*Item, error) {
	if c == nil || c.backend == nil {
		return nil, apierr.Wrap(msgGet, ErrClientNil)
	}
	item, err := c.backend.GetItem(ctx, namespace, id)
	if err != nil {
		return nil, apierr.Wrap(msgGet, err)
	}
	return item, nil
}

// SearchItems returns the items matching the request, in service order. No
// match yields an empty slice.
func (c *Client) SearchItems(ctx context.Context, req ItemSearch) ([]Item, error) {
	if c == nil || c.backend == nil {
		return nil, apierr.Wrap(msgSearch, ErrClientNil)
	}
	items, err := c.backend.SearchItems(ctx, req)
	if err != nil {
		return nil, apierr.Wrap(msgSearch, err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// DeleteItem removes the item stored under (namespace, id).
func (c *Client) DeleteItem(ctx context.Context, namespace []string, id string) error {
	if c == nil || c.backend == nil {
		return apierr.Wrap(msgDelete, ErrClientNil)
	}
	if err := c.backend.DeleteItem(ctx, namespace, id); err != nil {
		return apierr.Wrap(msgDelete, err)
	}
	return nil
}

// ListNamespaces returns the namespaces known to the store. Both the bare
// array and the {"namespaces": [...]} response shapes are accepted; any other
// shape yields an empty list.
func (c *Client) ListNamespaces(ctx context.Context) ([]string, error) {
	if c == nil || c.backend == nil {
		return nil, apierr.Wrap(msgListNamespaces, ErrClientNil)
	}
	namespaces, err := c.backend.ListNamespaces(ctx)
	if err != nil {
		return nil, apierr.Wrap(msgListNamespaces, err)
	}
	if namespaces == nil {
		namespaces = []string{}
	}
	return namespaces, nil
}

// ItemQuery encodes the (namespace, id) pair used by GET and DELETE. Each
// namespace segment becomes one repeated "namespace" parameter.
func ItemQuery(namespace []string, id string) url.Values {
	q := url.Values{}
	for _, segment := range namespace {
		q.Add("namespace", segment)
	}
	q.Set("id", id)
	return q
}

type httpBackend struct {
	client *httpx.Client
}

func (b *httpBackend) CreateItem(ctx context.Context, req ItemCreate) (*Item, error) {
	if req.Namespace == nil {
		req.Namespace = []string{}
	}
	httpReq, err := httpx.NewJSONRequest(http.MethodPost, "store/items", req)
	if err != nil {
		return nil, err
	}
	data, err := b.client.Call(ctx, httpReq, msgCreate)
	if err != nil {
		return nil, err
	}
	var item Item
	if err := wire.DecodeObject(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (b *httpBackend) GetItem(ctx context.Context, namespace []string, id string) (*Item, error) {
	data, err := b.client.Call(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "store/items",
		Query:  ItemQuery(namespace, id),
	}, msgGet)
	if err != nil {
		return nil, err
	}
	var item Item
	if err := wire.DecodeObject(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (b *httpBackend) SearchItems(ctx context.Context, req ItemSearch) ([]Item, error) {
	if req.Namespace == nil {
		req.Namespace = []string{}
	}
	httpReq, err := httpx.NewJSONRequest(http.MethodPost, "store/items/search", req)
	if err != nil {
		return nil, err
	}
	data, err := b.client.Call(ctx, httpReq, msgSearch)
	if err != nil {
		return nil, err
	}
	var items []Item
	if err := wire.Decode(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (b *httpBackend) DeleteItem(ctx context.Context, namespace []string, id string) error {
	_, err := b.client.Call(ctx, &httpx.Request{
		Method: http.MethodDelete,
		Path:   "store/items",
		Query:  ItemQuery(namespace, id),
	}, msgDelete)
	return err
}

func (b *httpBackend) ListNamespaces(ctx context.Context) ([]string, error) {
	data, err := b.client.Call(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "store/namespaces",
	}, msgListNamespaces)
	if err != nil {
		return nil, err
	}
	return wire.DecodeStringList(data, "namespaces")
}
