package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Item is a stored value as returned by the service.
type Item struct {
	Namespace []string        `json:"namespace"`
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

// Decode unmarshals the item payload into v.
func (i *Item) Decode(v any) error {
	if i == nil || len(i.Data) == 0 {
		return errors.New("store: item has no data")
	}
	if err := json.Unmarshal(i.Data, v); err != nil {
		return fmt.Errorf("store: decode item data: %w", err)
	}
	return nil
}

// ItemCreate is the payload for CreateItem. Data may be any JSON-encodable value.
type ItemCreate struct {
	Namespace []string       `json:"namespace"`
	ID        string         `json:"id"`
	Data      any            `json:"data"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ItemSearch is the payload for SearchItems. Namespace acts as a prefix and
// Metadata as an equality filter; both are evaluated by the service.
type ItemSearch struct {
	Namespace []string       `json:"namespace"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Limit     int            `json:"limit,omitempty"`
	Offset    int            `json:"offset,omitempty"`
}

// NamespacesResponse is the object form of the /store/namespaces payload.
type NamespacesResponse struct {
	Namespaces []string `json:"namespaces"`
}

var (
	// ErrClientNil is wrapped into the error returned by methods on a nil Client.
	ErrClientNil = errors.New("store: client is nil")
)
