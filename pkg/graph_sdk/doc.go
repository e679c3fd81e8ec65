// Package graph_sdk bootstraps the store and thread clients from the
// environment or a config file. GRAPH_RUNTIME_MODE selects between the remote
// service ("http"), in-memory mocks ("mock") and "auto", which uses the
// service when GRAPH_API_URL is set and falls back to mocks otherwise. Mocks
// can be pre-populated from the files named by GRAPH_MOCK_STORE_SEED and
// GRAPH_MOCK_THREADS_SEED.
package graph_sdk
