package threads

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Ratio1/graph_sdk_go/internal/httpx"
	"github.com/Ratio1/graph_sdk_go/internal/wire"
	"github.com/Ratio1/graph_sdk_go/pkg/apierr"
)

const (
	msgCreate      = "Failed to create thread"
	msgGet         = "Failed to get thread"
	msgDelete      = "Failed to delete thread"
	msgSearch      = "Failed to search threads"
	msgGetState    = "Failed to get thread state"
	msgUpdateState = "Failed to update thread state"
	msgHistory     = "Failed to get thread history"
	msgCopy        = "Failed to copy thread"
)

// Backend performs the thread operations. The HTTP backend talks to the
// remote service; mocks implement the same contract in memory.
type Backend interface {
	Create(ctx context.Context, req CreateRequest) (*Thread, error)
	Get(ctx context.Context, threadID string) (*Thread, error)
	Delete(ctx context.Context, threadID string) error
	Search(ctx context.Context, req SearchRequest) ([]Thread, error)
	GetState(ctx context.Context, threadID string) (*ThreadState, error)
	UpdateState(ctx context.Context, threadID string, req UpdateStateRequest) (map[string]any, error)
	GetHistory(ctx context.Context, threadID string, opts HistoryOptions) ([]ThreadState, error)
	Copy(ctx context.Context, threadID string) (*Thread, error)
}

// Client provides access to the thread REST API. It holds no mutable state
// and is safe for concurrent use.
type Client struct {
	backend Backend
}

// New constructs an HTTP-backed client.
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

// NewWithBackend allows callers to provide a custom backend (e.g., mocks).
func NewWithBackend(b Backend) *Client {
	return &Client{backend: b}
}

// Create creates a thread. An empty IfExists sends IfExistsRaise.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Thread, error) {
	if c == nil || c.backend == nil {
		return nil, apierr.Wrap(msgCreate, ErrClientNil)
	}
	if req.IfExists == "" {
		req.IfExists = IfExistsRaise
	}
	thread, err := c.backend.Create(ctx, req)
	if err != nil {
		return nil, apierr.Wrap(msgCreate, err)
	}
	return thread, nil
}

// Get fetches a thread by id.
func (c *Client) Get(ctx context.Context, threadID string) (*Thread, error) {
	if c == nil || c.backend == nil {
		return nil, apierr.Wrap(msgGet, ErrClientNil)
	}
	thread, err := c.backend.Get(ctx, threadID)
	if err != nil {
		return nil, apierr.Wrap(msgGet, err)
	}
	return thread, nil
}

// Delete removes a thread and its history.
func (c *Client) Delete(ctx context.Context, threadID string) error {
	if c == nil || c.backend == nil {
		return apierr.Wrap(msgDelete, ErrClientNil)
	}
	if err := c.backend.Delete(ctx, threadID); err != nil {
		return apierr.Wrap(msgDelete, err)
	}
	return nil
}

// Search lists threads matching the request. A zero Limit becomes DefaultLimit.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Thread, error) {
	if c == nil || c.backend == nil {
		return nil, apierr.Wrap(msgSearch, ErrClientNil)
	}
	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}
	list, err := c.backend.Search(ctx, req)
	if err != nil {
		return nil, apierr.Wrap(msgSearch, err)
	}
	if list == nil {
		list = []Thread{}
	}
	return list, nil
}

// GetState fetches the current state snapshot of a thread.
func (c *Client) GetState(ctx context.Context, threadID string) (*ThreadState, error) {
	if c == nil || c.backend == nil {
		return nil, apierr.Wrap(msgGetState, ErrClientNil)
	}
	state, err := c.backend.GetState(ctx, threadID)
	if err != nil {
		return nil, apierr.Wrap(msgGetState, err)
	}
	return state, nil
}

// UpdateState writes values to a thread. The decoded response is returned
// as-is since its shape depends on the graph.
func (c *Client) UpdateState(ctx context.Context, threadID string, req UpdateStateRequest) (map[string]any, error) {
	if c == nil || c.backend == nil {
		return nil, apierr.Wrap(msgUpdateState, ErrClientNil)
	}
	result, err := c.backend.UpdateState(ctx, threadID, req)
	if err != nil {
		return nil, apierr.Wrap(msgUpdateState, err)
	}
	return result, nil
}

// GetHistory lists past states of a thread, most recent first. A zero Limit
// becomes DefaultLimit.
func (c *Client) GetHistory(ctx context.Context, threadID string, opts HistoryOptions) ([]ThreadState, error) {
	if c == nil || c.backend == nil {
		return nil, apierr.Wrap(msgHistory, ErrClientNil)
	}
	if opts.Limit == 0 {
		opts.Limit = DefaultLimit
	}
	states, err := c.backend.GetHistory(ctx, threadID, opts)
	if err != nil {
		return nil, apierr.Wrap(msgHistory, err)
	}
	if states == nil {
		states = []ThreadState{}
	}
	return states, nil
}

// Copy duplicates a thread's current state into a new thread with a
// server-assigned id.
func (c *Client) Copy(ctx context.Context, threadID string) (*Thread, error) {
	if c == nil || c.backend == nil {
		return nil, apierr.Wrap(msgCopy, ErrClientNil)
	}
	thread, err := c.backend.Copy(ctx, threadID)
	if err != nil {
		return nil, apierr.Wrap(msgCopy, err)
	}
	return thread, nil
}

func threadPath(threadID string, suffix ...string) string {
	path := "threads/" + url.PathEscape(threadID)
	for _, s := range suffix {
		path += "/" + s
	}
	return path
}

type httpBackend struct {
	client *httpx.Client
}

func (b *httpBackend) Create(ctx context.Context, req CreateRequest) (*Thread, error) {
	httpReq, err := httpx.NewJSONRequest(http.MethodPost, "threads", req)
	if err != nil {
		return nil, err
	}
	return b.thread(ctx, httpReq, msgCreate)
}

func (b *httpBackend) Get(ctx context.Context, threadID string) (*Thread, error) {
	return b.thread(ctx, &httpx.Request{Method: http.MethodGet, Path: threadPath(threadID)}, msgGet)
}

func (b *httpBackend) Delete(ctx context.Context, threadID string) error {
	_, err := b.client.Call(ctx, &httpx.Request{Method: http.MethodDelete, Path: threadPath(threadID)}, msgDelete)
	return err
}

func (b *httpBackend) Search(ctx context.Context, req SearchRequest) ([]Thread, error) {
	httpReq, err := httpx.NewJSONRequest(http.MethodPost, "threads/search", req)
	if err != nil {
		return nil, err
	}
	data, err := b.client.Call(ctx, httpReq, msgSearch)
	if err != nil {
		return nil, err
	}
	var list []Thread
	if err := wire.Decode(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (b *httpBackend) GetState(ctx context.Context, threadID string) (*ThreadState, error) {
	data, err := b.client.Call(ctx, &httpx.Request{Method: http.MethodGet, Path: threadPath(threadID, "state")}, msgGetState)
	if err != nil {
		return nil, err
	}
	var state ThreadState
	if err := wire.DecodeObject(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (b *httpBackend) UpdateState(ctx context.Context, threadID string, req UpdateStateRequest) (map[string]any, error) {
	httpReq, err := httpx.NewJSONRequest(http.MethodPost, threadPath(threadID, "state"), req)
	if err != nil {
		return nil, err
	}
	data, err := b.client.Call(ctx, httpReq, msgUpdateState)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := wire.Decode(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (b *httpBackend) GetHistory(ctx context.Context, threadID string, opts HistoryOptions) ([]ThreadState, error) {
	q := url.Values{"limit": {strconv.Itoa(opts.Limit)}}
	if opts.Before != "" {
		q.Set("before", opts.Before)
	}
	data, err := b.client.Call(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   threadPath(threadID, "history"),
		Query:  q,
	}, msgHistory)
	if err != nil {
		return nil, err
	}
	var states []ThreadState
	if err := wire.Decode(data, &states); err != nil {
		return nil, err
	}
	return states, nil
}

func (b *httpBackend) Copy(ctx context.Context, threadID string) (*Thread, error) {
	return b.thread(ctx, &httpx.Request{Method: http.MethodPost, Path: threadPath(threadID, "copy")}, msgCopy)
}

func (b *httpBackend) thread(ctx context.Context, req *httpx.Request, failure string) (*Thread, error) {
	data, err := b.client.Call(ctx, req, failure)
	if err != nil {
		return nil, err
	}
	var thread Thread
	if err := wire.DecodeObject(data, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}
