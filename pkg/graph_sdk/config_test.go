package graph_sdk

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigYAML(t *testing.T) {
	t.Setenv("TEST_GRAPH_KEY", "from-env")
	path := writeFile(t, "sdk.yaml", `
api:
  url: http://localhost:8787
  key: ${TEST_GRAPH_KEY}
  timeout: 15s
  headers:
    X-Tenant: acme
runtime:
  mode: http
logging:
  level: debug
  format: console
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8787", cfg.API.URL)
	assert.Equal(t, "from-env", cfg.API.Key)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, map[string]string{"X-Tenant": "acme"}, cfg.API.Headers)
	assert.Equal(t, ModeHTTP, cfg.Runtime.Mode)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeFile(t, "sdk.toml", `
[api]
url = "http://graph.internal"
timeout = "2m"

[runtime]
mode = "auto"
store_seed = "store.yaml"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://graph.internal", cfg.API.URL)
	assert.Equal(t, 2*time.Minute, cfg.API.Timeout)
	assert.Equal(t, "store.yaml", cfg.Runtime.StoreSeed)
}

func TestLoadConfigErrors(t *testing.T) {
	cases := map[string]struct {
		name    string
		content string
	}{
		"missing url":    {"a.yaml", "runtime:\n  mode: http\n"},
		"bad mode":       {"b.yaml", "runtime:\n  mode: remote\n"},
		"bad timeout":    {"c.yaml", "api:\n  timeout: soon\n"},
		"bad format":     {"d.yaml", "logging:\n  format: xml\n"},
		"bad toml":       {"e.toml", "[api\n"},
		"bad extension":  {"f.ini", "x=1"},
		"negative value": {"g.yaml", "api:\n  timeout: -1s\n"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, tc.name, tc.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(envMode, "mock")
	t.Setenv(envAPIURL, "")
	t.Setenv(envMockThreadsSeed, "threads.json")

	cfg := &Config{API: APIConfig{URL: "http://keep"}, Runtime: RuntimeConfig{Mode: "http"}}
	cfg.applyEnv()
	assert.Equal(t, "mock", cfg.Runtime.Mode)
	assert.Equal(t, "http://keep", cfg.API.URL)
	assert.Equal(t, "threads.json", cfg.Runtime.ThreadsSeed)
}
