// Package mock implements an in-memory store backend with the same semantics
// as the remote service. It backs the mock runtime mode, the sandbox server
// and tests.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Ratio1/graph_sdk_go/internal/devseed"
	"github.com/Ratio1/graph_sdk_go/pkg/apierr"
	"github.com/Ratio1/graph_sdk_go/pkg/store"
)

// NamespaceSeparator joins namespace segments in ListNamespaces output.
const NamespaceSeparator = "."

type entry struct {
	namespace []string
	id        string
	data      json.RawMessage
	metadata  map[string]any
	createdAt time.Time
	updatedAt time.Time
}

// Mock is an in-memory store.Backend.
type Mock struct {
	mu    sync.RWMutex
	items map[string]*entry
	now   func() time.Time
}

var _ store.Backend = (*Mock)(nil)

// Option configures the mock instance.
type Option func(*Mock)

// WithClock overrides the clock used for timestamps (useful in tests).
func WithClock(fn func() time.Time) Option {
	return func(m *Mock) {
		if fn != nil {
			m.now = fn
		}
	}
}

// New creates an empty mock store.
func New(opts ...Option) *Mock {
	m := &Mock{
		items: make(map[string]*entry),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Seed loads initial items from seed entries (typically decoded via devseed.LoadStoreSeed).
func (m *Mock) Seed(entries []devseed.StoreSeedEntry) error {
	ctx := context.Background()
	for _, e := range entries {
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("mock store: seed entry missing id")
		}
		if _, err := m.CreateItem(ctx, store.ItemCreate{
			Namespace: e.Namespace,
			ID:        e.ID,
			Data:      e.Data,
			Metadata:  e.Metadata,
		}); err != nil {
			return fmt.Errorf("mock store: seed %q: %w", e.ID, err)
		}
	}
	return nil
}

// CreateItem inserts or replaces the item stored under (namespace, id).
func (m *Mock) CreateItem(ctx context.Context, req store.ItemCreate) (*store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ID) == "" {
		return nil, apierr.New("Item id is required", http.StatusUnprocessableEntity, "")
	}
	data, err := json.Marshal(req.Data)
	if err != nil {
		return nil, apierr.New("Invalid item data", http.StatusUnprocessableEntity, err.Error())
	}
	metadata, err := NormalizeMap(req.Metadata)
	if err != nil {
		return nil, apierr.New("Invalid item metadata", http.StatusUnprocessableEntity, err.Error())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	key := itemKey(req.Namespace, req.ID)
	ent, exists := m.items[key]
	if !exists {
		ent = &entry{
			namespace: append([]string{}, req.Namespace...),
			id:        req.ID,
			createdAt: now,
		}
		m.items[key] = ent
	}
	ent.data = data
	ent.metadata = metadata
	ent.updatedAt = now
	return ent.toItem(), nil
}

// GetItem returns the item stored under (namespace, id) or a 404 error.
func (m *Mock) GetItem(ctx context.Context, namespace []string, id string) (*store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ent, ok := m.items[itemKey(namespace, id)]
	if !ok {
		return nil, apierr.New("Item not found", http.StatusNotFound, "")
	}
	return ent.toItem(), nil
}

// SearchItems returns items under the namespace prefix whose metadata contains
// every filter pair, ordered by namespace then id, with limit/offset applied.
func (m *Mock) SearchItems(ctx context.Context, req store.ItemSearch) ([]store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Limit < 0 || req.Offset < 0 {
		return nil, apierr.New("limit and offset must be non-negative", http.StatusUnprocessableEntity, "")
	}
	filter, err := NormalizeMap(req.Metadata)
	if err != nil {
		return nil, apierr.New("Invalid metadata filter", http.StatusUnprocessableEntity, err.Error())
	}

	m.mu.RLock()
	matches := make([]*entry, 0)
	for _, ent := range m.items {
		if HasPrefix(ent.namespace, req.Namespace) && MatchesFilter(filter, ent.metadata) {
			matches = append(matches, ent)
		}
	}
	items := make([]store.Item, 0, len(matches))
	SortItems(matches, func(e *entry) ([]string, string) { return e.namespace, e.id })
	for _, ent := range Page(matches, req.Limit, req.Offset) {
		items = append(items, *ent.toItem())
	}
	m.mu.RUnlock()
	return items, nil
}

// DeleteItem removes the item if present. Deleting a missing item succeeds.
func (m *Mock) DeleteItem(ctx context.Context, namespace []string, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, itemKey(namespace, id))
	return nil
}

// ListNamespaces returns the distinct namespaces holding at least one item,
// joined with NamespaceSeparator and sorted.
func (m *Mock) ListNamespaces(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{}, len(m.items))
	for _, ent := range m.items {
		seen[strings.Join(ent.namespace, NamespaceSeparator)] = struct{}{}
	}
	namespaces := make([]string, 0, len(seen))
	for ns := range seen {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	return namespaces, nil
}

func (e *entry) toItem() *store.Item {
	created := e.createdAt
	updated := e.updatedAt
	return &store.Item{
		Namespace: append([]string{}, e.namespace...),
		ID:        e.id,
		Data:      append(json.RawMessage(nil), e.data...),
		Metadata:  CloneMap(e.metadata),
		CreatedAt: &created,
		UpdatedAt: &updated,
	}
}

func itemKey(namespace []string, id string) string {
	return NamespaceKey(namespace) + "\x1e" + id
}

// NamespaceKey encodes namespace as a JSON array so that distinct namespaces,
// including [] and [""], never share a key. Nil and empty are the same
// namespace.
func NamespaceKey(namespace []string) string {
	if namespace == nil {
		namespace = []string{}
	}
	b, err := json.Marshal(namespace)
	if err != nil {
		return fmt.Sprintf("%q", namespace)
	}
	return string(b)
}

// HasPrefix reports whether namespace starts with every segment of prefix.
func HasPrefix(namespace, prefix []string) bool {
	if len(prefix) > len(namespace) {
		return false
	}
	for i, segment := range prefix {
		if namespace[i] != segment {
			return false
		}
	}
	return true
}

// MatchesFilter reports whether every key in filter is present in metadata
// with an equal value. Both maps must already be JSON-normalised.
func MatchesFilter(filter, metadata map[string]any) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// NormalizeMap round-trips m through JSON so values compare the way they
// would after crossing the wire (numbers become float64 and so on).
func NormalizeMap(m map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SortItems orders entries by namespace segments, then id.
func SortItems[T any](entries []T, key func(T) ([]string, string)) {
	sort.SliceStable(entries, func(i, j int) bool {
		nsI, idI := key(entries[i])
		nsJ, idJ := key(entries[j])
		for k := 0; k < len(nsI) && k < len(nsJ); k++ {
			if nsI[k] != nsJ[k] {
				return nsI[k] < nsJ[k]
			}
		}
		if len(nsI) != len(nsJ) {
			return len(nsI) < len(nsJ)
		}
		return idI < idJ
	})
}

// Page applies offset then limit. A zero limit means no limit.
func Page[T any](entries []T, limit, offset int) []T {
	if offset >= len(entries) {
		return entries[:0]
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

// CloneMap returns a deep copy of a JSON-normalised map.
func CloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = CloneValue(v)
	}
	return dst
}

// CloneValue deep-copies the maps and slices of a JSON-normalised value.
// Scalars are returned as-is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return v
	}
}
