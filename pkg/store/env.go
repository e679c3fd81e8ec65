package store

import (
	"fmt"
	"os"
	"strings"

	"github.com/Ratio1/graph_sdk_go/internal/httpx"
)

const (
	envAPIURL = "GRAPH_API_URL"
	envAPIKey = "GRAPH_API_KEY"
)

// NewFromEnv initialises an HTTP-backed Client from GRAPH_API_URL and the
// optional GRAPH_API_KEY.
func NewFromEnv(opts ...httpx.Option) (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv(envAPIURL))
	if baseURL == "" {
		return nil, fmt.Errorf("store: HTTP mode requires %s", envAPIURL)
	}
	opts = append([]httpx.Option{httpx.WithAPIKey(os.Getenv(envAPIKey))}, opts...)
	client, err := New(baseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("store: init HTTP client: %w", err)
	}
	return client, nil
}
