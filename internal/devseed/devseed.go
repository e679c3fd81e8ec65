// Package devseed loads seed files used to pre-populate the in-memory mocks.
// Seeds may be written as JSON or YAML; both decode through yaml.v3.
package devseed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StoreSeedEntry describes one store item to create at start-up.
type StoreSeedEntry struct {
	Namespace []string       `yaml:"namespace"`
	ID        string         `yaml:"id"`
	Data      any            `yaml:"data"`
	Metadata  map[string]any `yaml:"metadata"`
}

// ThreadSeedEntry describes a thread and the state updates applied to it, in order.
type ThreadSeedEntry struct {
	ThreadID string            `yaml:"thread_id"`
	Metadata map[string]any    `yaml:"metadata"`
	States   []ThreadSeedState `yaml:"states"`
}

// ThreadSeedState is a single state update recorded in a seeded thread's history.
type ThreadSeedState struct {
	Values any    `yaml:"values"`
	AsNode string `yaml:"as_node"`
}

// LoadStoreSeed reads store seed entries from path.
func LoadStoreSeed(path string) ([]StoreSeedEntry, error) {
	var entries []StoreSeedEntry
	if err := load(path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// LoadThreadSeed reads thread seed entries from path.
func LoadThreadSeed(path string) ([]ThreadSeedEntry, error) {
	var entries []ThreadSeedEntry
	if err := load(path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func load(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("devseed: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("devseed: parse %s: %w", path, err)
	}
	return nil
}
