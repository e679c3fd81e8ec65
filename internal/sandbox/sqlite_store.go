package sandbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Ratio1/graph_sdk_go/internal/devseed"
	"github.com/Ratio1/graph_sdk_go/pkg/apierr"
	"github.com/Ratio1/graph_sdk_go/pkg/store"
	storemock "github.com/Ratio1/graph_sdk_go/pkg/store/mock"
)

// SQLiteStore is a store.Backend persisted in a SQLite database. It follows
// the same semantics as the in-memory mock.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Backend = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db: db,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS store_items (
		ns_key     TEXT NOT NULL,
		id         TEXT NOT NULL,
		namespace  TEXT NOT NULL,
		data       TEXT NOT NULL,
		metadata   TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (ns_key, id)
	);
	CREATE INDEX IF NOT EXISTS idx_store_items_ns ON store_items(ns_key);
	`)
	return err
}

// Seed upserts the given entries. Existing rows with the same key are replaced.
func (s *SQLiteStore) Seed(entries []devseed.StoreSeedEntry) error {
	ctx := context.Background()
	for _, e := range entries {
		if _, err := s.CreateItem(ctx, store.ItemCreate{
			Namespace: e.Namespace,
			ID:        e.ID,
			Data:      e.Data,
			Metadata:  e.Metadata,
		}); err != nil {
			return fmt.Errorf("sqlite store: seed %q: %w", e.ID, err)
		}
	}
	return nil
}

// CreateItem upserts the item stored under (namespace, id).
func (s *SQLiteStore) CreateItem(ctx context.Context, req store.ItemCreate) (*store.Item, error) {
	if strings.TrimSpace(req.ID) == "" {
		return nil, apierr.New("Item id is required", http.StatusUnprocessableEntity, "")
	}
	if req.Namespace == nil {
		req.Namespace = []string{}
	}
	data, err := json.Marshal(req.Data)
	if err != nil {
		return nil, apierr.New("Invalid item data", http.StatusUnprocessableEntity, err.Error())
	}
	metadata, err := encodeMetadata(req.Metadata)
	if err != nil {
		return nil, apierr.New("Invalid item metadata", http.StatusUnprocessableEntity, err.Error())
	}
	namespace := storemock.NamespaceKey(req.Namespace)

	now := s.now().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO store_items (ns_key, id, namespace, data, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ns_key, id) DO UPDATE SET
			data = excluded.data,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		namespace, req.ID, namespace, string(data), metadata, now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert item: %w", err)
	}
	return s.GetItem(ctx, req.Namespace, req.ID)
}

// GetItem returns the item or a 404 error.
func (s *SQLiteStore) GetItem(ctx context.Context, namespace []string, id string) (*store.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT namespace, id, data, metadata, created_at, updated_at
		FROM store_items WHERE ns_key = ? AND id = ?`, storemock.NamespaceKey(namespace), id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.New("Item not found", http.StatusNotFound, "")
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// SearchItems narrows rows by namespace prefix in SQL and applies the
// metadata filter, ordering and paging in Go.
func (s *SQLiteStore) SearchItems(ctx context.Context, req store.ItemSearch) ([]store.Item, error) {
	if req.Limit < 0 || req.Offset < 0 {
		return nil, apierr.New("limit and offset must be non-negative", http.StatusUnprocessableEntity, "")
	}
	filter, err := storemock.NormalizeMap(req.Metadata)
	if err != nil {
		return nil, apierr.New("Invalid metadata filter", http.StatusUnprocessableEntity, err.Error())
	}

	// ns_key holds the JSON array of segments, so a prefix of k segments is
	// the prefix's own array text with the closing bracket replaced by a comma.
	prefix := storemock.NamespaceKey(req.Namespace)
	rows, err := s.db.QueryContext(ctx, `
		SELECT namespace, id, data, metadata, created_at, updated_at
		FROM store_items
		WHERE ? = '[]' OR ns_key = ? OR instr(ns_key, ?) = 1`,
		prefix, prefix, strings.TrimSuffix(prefix, "]")+",")
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	matches := make([]store.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		if storemock.HasPrefix(item.Namespace, req.Namespace) && storemock.MatchesFilter(filter, item.Metadata) {
			matches = append(matches, *item)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	storemock.SortItems(matches, func(it store.Item) ([]string, string) { return it.Namespace, it.ID })
	return storemock.Page(matches, req.Limit, req.Offset), nil
}

// DeleteItem removes the item if present.
func (s *SQLiteStore) DeleteItem(ctx context.Context, namespace []string, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM store_items WHERE ns_key = ? AND id = ?`, storemock.NamespaceKey(namespace), id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// ListNamespaces returns the distinct namespaces joined with
// storemock.NamespaceSeparator, sorted.
func (s *SQLiteStore) ListNamespaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT namespace FROM store_items`)
	if err != nil {
		return nil, fmt.Errorf("query namespaces: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan namespace: %w", err)
		}
		var namespace []string
		if err := json.Unmarshal([]byte(raw), &namespace); err != nil {
			return nil, fmt.Errorf("decode namespace: %w", err)
		}
		seen[strings.Join(namespace, storemock.NamespaceSeparator)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate namespaces: %w", err)
	}
	namespaces := make([]string, 0, len(seen))
	for ns := range seen {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	return namespaces, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*store.Item, error) {
	var (
		namespace, id, data    string
		metadata               sql.NullString
		createdRaw, updatedRaw string
	)
	if err := row.Scan(&namespace, &id, &data, &metadata, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}

	item := &store.Item{ID: id, Data: json.RawMessage(data)}
	if err := json.Unmarshal([]byte(namespace), &item.Namespace); err != nil {
		return nil, fmt.Errorf("decode namespace: %w", err)
	}
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &item.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		item.CreatedAt = &t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		item.UpdatedAt = &t
	}
	return item, nil
}

func encodeMetadata(m map[string]any) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
