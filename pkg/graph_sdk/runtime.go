package graph_sdk

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/Ratio1/graph_sdk_go/internal/devseed"
	"github.com/Ratio1/graph_sdk_go/internal/httpx"
	"github.com/Ratio1/graph_sdk_go/pkg/store"
	storemock "github.com/Ratio1/graph_sdk_go/pkg/store/mock"
	"github.com/Ratio1/graph_sdk_go/pkg/threads"
	threadsmock "github.com/Ratio1/graph_sdk_go/pkg/threads/mock"
)

const (
	envMode            = "GRAPH_RUNTIME_MODE"
	envAPIURL          = "GRAPH_API_URL"
	envAPIKey          = "GRAPH_API_KEY"
	envConfig          = "GRAPH_SDK_CONFIG"
	envMockStoreSeed   = "GRAPH_MOCK_STORE_SEED"
	envMockThreadsSeed = "GRAPH_MOCK_THREADS_SEED"
)

// Runtime modes.
const (
	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"
)

// Option customises the HTTP transport shared by both clients.
type Option = httpx.Option

// WithAPIKey sends key in the X-Api-Key header of every request.
func WithAPIKey(key string) Option { return httpx.WithAPIKey(key) }

// WithHeaders adds static headers to every request.
func WithHeaders(h http.Header) Option { return httpx.WithHeaders(h) }

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option { return httpx.WithHTTPClient(c) }

// WithLogger logs each round trip at debug level.
func WithLogger(l *zap.Logger) Option { return httpx.WithLogger(l) }

// Clients bundles the facades produced by the bootstrap helpers.
type Clients struct {
	Store   *store.Client
	Threads *threads.Client
	// Mode is the resolved runtime mode, either ModeHTTP or ModeMock.
	Mode string
}

// NewFromEnv builds clients from GRAPH_* environment variables. See
// ConfigFromEnv for how they combine with a config file.
func NewFromEnv(opts ...Option) (*Clients, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

// ConfigFromEnv resolves the settings NewFromEnv would use. When
// GRAPH_SDK_CONFIG names a config file it is loaded first and the remaining
// variables override its values.
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	if path := strings.TrimSpace(os.Getenv(envConfig)); path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("graph_sdk: %w", err)
	}
	return cfg, nil
}

// NewFromConfig builds clients from cfg. Options are applied after the ones
// derived from cfg.
func NewFromConfig(cfg *Config, opts ...Option) (*Clients, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	apiURL := strings.TrimSpace(cfg.API.URL)

	switch normalizeMode(cfg.Runtime.Mode) {
	case ModeAuto:
		if apiURL != "" {
			return newHTTPClients(cfg, opts)
		}
		return newMockClients(cfg.Runtime)
	case ModeHTTP:
		if apiURL == "" {
			return nil, fmt.Errorf("graph_sdk: HTTP mode requires %s", envAPIURL)
		}
		return newHTTPClients(cfg, opts)
	case ModeMock:
		return newMockClients(cfg.Runtime)
	default:
		return nil, fmt.Errorf("graph_sdk: unsupported %s value %q", envMode, cfg.Runtime.Mode)
	}
}

func normalizeMode(mode string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return ModeAuto
	}
	return mode
}

func newHTTPClients(cfg *Config, extra []Option) (*Clients, error) {
	opts := []Option{httpx.WithAPIKey(cfg.API.Key)}
	if len(cfg.API.Headers) > 0 {
		headers := make(http.Header, len(cfg.API.Headers))
		for k, v := range cfg.API.Headers {
			headers.Set(k, v)
		}
		opts = append(opts, httpx.WithHeaders(headers))
	}
	if cfg.API.Timeout > 0 {
		opts = append(opts, httpx.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}))
	}
	opts = append(opts, extra...)

	transport, err := httpx.NewClient(strings.TrimSpace(cfg.API.URL), opts...)
	if err != nil {
		return nil, fmt.Errorf("graph_sdk: init HTTP client: %w", err)
	}
	return &Clients{
		Store:   store.NewWithHTTPClient(transport),
		Threads: threads.NewWithHTTPClient(transport),
		Mode:    ModeHTTP,
	}, nil
}

func newMockClients(rt RuntimeConfig) (*Clients, error) {
	storeMock := storemock.New()
	if path := strings.TrimSpace(rt.StoreSeed); path != "" {
		entries, err := devseed.LoadStoreSeed(path)
		if err != nil {
			return nil, fmt.Errorf("graph_sdk: load store seed: %w", err)
		}
		if err := storeMock.Seed(entries); err != nil {
			return nil, fmt.Errorf("graph_sdk: apply store seed: %w", err)
		}
	}

	threadsMock := threadsmock.New()
	if path := strings.TrimSpace(rt.ThreadsSeed); path != "" {
		entries, err := devseed.LoadThreadSeed(path)
		if err != nil {
			return nil, fmt.Errorf("graph_sdk: load threads seed: %w", err)
		}
		if err := threadsMock.Seed(entries); err != nil {
			return nil, fmt.Errorf("graph_sdk: apply threads seed: %w", err)
		}
	}

	return &Clients{
		Store:   store.NewWithBackend(storeMock),
		Threads: threads.NewWithBackend(threadsMock),
		Mode:    ModeMock,
	}, nil
}
