// Package mock implements an in-memory thread backend that mirrors the
// service's behaviour: server-assigned ids, if_exists enforcement, ULID
// checkpoints and newest-first history.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/Ratio1/graph_sdk_go/internal/devseed"
	"github.com/Ratio1/graph_sdk_go/pkg/apierr"
	storemock "github.com/Ratio1/graph_sdk_go/pkg/store/mock"
	"github.com/Ratio1/graph_sdk_go/pkg/threads"
)

// StatusIdle is the status reported for every thread; runs are not modelled.
const StatusIdle = "idle"

type stateRecord struct {
	values       any
	checkpointID string
	parentID     string
	metadata     map[string]any
	createdAt    time.Time
}

type threadRecord struct {
	id        string
	seq       int64
	createdAt time.Time
	updatedAt time.Time
	metadata  map[string]any
	status    string
	// history is ordered oldest first.
	history []*stateRecord
}

func (t *threadRecord) latest() *stateRecord {
	if len(t.history) == 0 {
		return nil
	}
	return t.history[len(t.history)-1]
}

func (t *threadRecord) find(checkpointID string) (int, *stateRecord) {
	for i, st := range t.history {
		if st.checkpointID == checkpointID {
			return i, st
		}
	}
	return -1, nil
}

// Mock is an in-memory threads.Backend.
type Mock struct {
	mu      sync.RWMutex
	threads map[string]*threadRecord
	seq     int64
	now     func() time.Time
	newID   func() string
}

var _ threads.Backend = (*Mock)(nil)

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

// WithIDGenerator overrides how thread ids are assigned.
func WithIDGenerator(fn func() string) Option {
	return func(m *Mock) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// New creates an empty mock thread service.
func New(opts ...Option) *Mock {
	m := &Mock{
		threads: make(map[string]*threadRecord),
		now: func() time.Time {
			return time.Now().UTC()
		},
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Seed creates threads and replays their recorded state updates.
func (m *Mock) Seed(entries []devseed.ThreadSeedEntry) error {
	ctx := context.Background()
	for _, e := range entries {
		thread, err := m.Create(ctx, threads.CreateRequest{
			ThreadID: e.ThreadID,
			Metadata: e.Metadata,
			IfExists: threads.IfExistsRaise,
		})
		if err != nil {
			return fmt.Errorf("mock threads: seed %q: %w", e.ThreadID, err)
		}
		for _, st := range e.States {
			if _, err := m.UpdateState(ctx, thread.ThreadID, threads.UpdateStateRequest{Values: st.Values, AsNode: st.AsNode}); err != nil {
				return fmt.Errorf("mock threads: seed %q state: %w", thread.ThreadID, err)
			}
		}
	}
	return nil
}

// Create registers a new thread, applying the if_exists policy on id clashes.
func (m *Mock) Create(ctx context.Context, req threads.CreateRequest) (*threads.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	policy := req.IfExists
	switch policy {
	case "":
		policy = threads.IfExistsRaise
	case threads.IfExistsRaise, threads.IfExistsError, threads.IfExistsReturnExisting:
	default:
		return nil, apierr.New("Invalid if_exists policy", http.StatusUnprocessableEntity, string(policy))
	}
	metadata, err := storemock.NormalizeMap(req.Metadata)
	if err != nil {
		return nil, apierr.New("Invalid thread metadata", http.StatusUnprocessableEntity, err.Error())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := strings.TrimSpace(req.ThreadID)
	if id == "" {
		id = m.newID()
	}
	if existing, ok := m.threads[id]; ok {
		if policy == threads.IfExistsReturnExisting {
			return existing.toThread(), nil
		}
		return nil, apierr.New("Thread already exists", http.StatusConflict, id)
	}

	now := m.now()
	m.seq++
	rec := &threadRecord{
		id:        id,
		seq:       m.seq,
		createdAt: now,
		updatedAt: now,
		metadata:  metadata,
		status:    StatusIdle,
	}
	m.threads[id] = rec
	return rec.toThread(), nil
}

// Get returns a thread or a 404 error.
func (m *Mock) Get(ctx context.Context, threadID string) (*threads.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, err := m.lookup(threadID)
	if err != nil {
		return nil, err
	}
	return rec.toThread(), nil
}

// Delete removes a thread or returns a 404 error.
func (m *Mock) Delete(ctx context.Context, threadID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.lookup(threadID); err != nil {
		return err
	}
	delete(m.threads, threadID)
	return nil
}

// Search returns threads matching every supplied filter, newest first.
func (m *Mock) Search(ctx context.Context, req threads.SearchRequest) ([]threads.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Limit < 0 || req.Offset < 0 {
		return nil, apierr.New("limit and offset must be non-negative", http.StatusUnprocessableEntity, "")
	}
	metaFilter, err := storemock.NormalizeMap(req.Metadata)
	if err != nil {
		return nil, apierr.New("Invalid metadata filter", http.StatusUnprocessableEntity, err.Error())
	}
	valuesFilter, err := storemock.NormalizeMap(req.Values)
	if err != nil {
		return nil, apierr.New("Invalid values filter", http.StatusUnprocessableEntity, err.Error())
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]*threadRecord, 0, len(m.threads))
	for _, rec := range m.threads {
		if req.Status != "" && rec.status != req.Status {
			continue
		}
		if !storemock.MatchesFilter(metaFilter, rec.metadata) {
			continue
		}
		if len(valuesFilter) > 0 {
			current, _ := rec.currentValues().(map[string]any)
			if !storemock.MatchesFilter(valuesFilter, current) {
				continue
			}
		}
		matches = append(matches, rec)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].seq > matches[j].seq })

	limit := req.Limit
	if limit == 0 {
		limit = threads.DefaultLimit
	}
	page := storemock.Page(matches, limit, req.Offset)
	out := make([]threads.Thread, 0, len(page))
	for _, rec := range page {
		out = append(out, *rec.toThread())
	}
	return out, nil
}

// GetState returns the latest snapshot. A thread without updates reports an
// empty values object and no checkpoint.
func (m *Mock) GetState(ctx context.Context, threadID string) (*threads.ThreadState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, err := m.lookup(threadID)
	if err != nil {
		return nil, err
	}
	latest := rec.latest()
	if latest == nil {
		return &threads.ThreadState{Values: map[string]any{}, Next: []string{}}, nil
	}
	return rec.toState(latest), nil
}

// UpdateState records a new checkpoint. Map values are merged shallowly onto
// the values of the parent checkpoint; other values replace them.
func (m *Mock) UpdateState(ctx context.Context, threadID string, req threads.UpdateStateRequest) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values, err := normalize(req.Values)
	if err != nil {
		return nil, apierr.New("Invalid state values", http.StatusUnprocessableEntity, err.Error())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.lookup(threadID)
	if err != nil {
		return nil, err
	}

	parent := rec.latest()
	if cid, _ := req.Checkpoint["checkpoint_id"].(string); cid != "" {
		if _, parent = rec.find(cid); parent == nil {
			return nil, apierr.New("Checkpoint not found", http.StatusNotFound, cid)
		}
	}

	var base any
	parentID := ""
	if parent != nil {
		base = parent.values
		parentID = parent.checkpointID
	}

	metadata := map[string]any{
		"source": "update",
		"step":   float64(len(rec.history)),
	}
	if req.AsNode != "" {
		metadata["writes"] = map[string]any{req.AsNode: values}
	}

	now := m.now()
	st := &stateRecord{
		values:       merge(base, values),
		checkpointID: ulid.Make().String(),
		parentID:     parentID,
		metadata:     metadata,
		createdAt:    now,
	}
	rec.history = append(rec.history, st)
	rec.updatedAt = now

	return map[string]any{"checkpoint": map[string]any(rec.checkpoint(st.checkpointID))}, nil
}

// GetHistory lists snapshots newest first. Before restricts the result to
// snapshots older than that checkpoint; an unknown cursor yields nothing.
func (m *Mock) GetHistory(ctx context.Context, threadID string, opts threads.HistoryOptions) ([]threads.ThreadState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Limit < 0 {
		return nil, apierr.New("limit must be non-negative", http.StatusUnprocessableEntity, "")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, err := m.lookup(threadID)
	if err != nil {
		return nil, err
	}

	end := len(rec.history)
	if opts.Before != "" {
		idx, _ := rec.find(opts.Before)
		if idx < 0 {
			return []threads.ThreadState{}, nil
		}
		end = idx
	}

	limit := opts.Limit
	if limit == 0 {
		limit = threads.DefaultLimit
	}
	out := make([]threads.ThreadState, 0, limit)
	for i := end - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *rec.toState(rec.history[i]))
	}
	return out, nil
}

// Copy duplicates a thread, including its history, under a new id.
func (m *Mock) Copy(ctx context.Context, threadID string) (*threads.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	src, err := m.lookup(threadID)
	if err != nil {
		return nil, err
	}

	id := m.newID()
	for _, taken := m.threads[id]; taken; _, taken = m.threads[id] {
		id = m.newID()
	}

	now := m.now()
	m.seq++
	dst := &threadRecord{
		id:        id,
		seq:       m.seq,
		createdAt: now,
		updatedAt: now,
		metadata:  storemock.CloneMap(src.metadata),
		status:    src.status,
		history:   make([]*stateRecord, 0, len(src.history)),
	}
	for _, st := range src.history {
		clone := *st
		clone.values = storemock.CloneValue(st.values)
		clone.metadata = storemock.CloneMap(st.metadata)
		dst.history = append(dst.history, &clone)
	}
	m.threads[id] = dst
	return dst.toThread(), nil
}

func (m *Mock) lookup(threadID string) (*threadRecord, error) {
	rec, ok := m.threads[threadID]
	if !ok {
		return nil, apierr.New("Thread not found", http.StatusNotFound, threadID)
	}
	return rec, nil
}

func (t *threadRecord) currentValues() any {
	if latest := t.latest(); latest != nil {
		return latest.values
	}
	return nil
}

func (t *threadRecord) checkpoint(checkpointID string) threads.CheckpointConfig {
	return threads.CheckpointConfig{
		"thread_id":     t.id,
		"checkpoint_ns": "",
		"checkpoint_id": checkpointID,
	}
}

func (t *threadRecord) toThread() *threads.Thread {
	created := t.createdAt
	updated := t.updatedAt
	return &threads.Thread{
		ThreadID:  t.id,
		CreatedAt: &created,
		UpdatedAt: &updated,
		Metadata:  storemock.CloneMap(t.metadata),
		Status:    t.status,
		Values:    storemock.CloneValue(t.currentValues()),
	}
}

func (t *threadRecord) toState(st *stateRecord) *threads.ThreadState {
	created := st.createdAt
	state := &threads.ThreadState{
		Values:     storemock.CloneValue(st.values),
		Next:       []string{},
		Checkpoint: t.checkpoint(st.checkpointID),
		Metadata:   storemock.CloneMap(st.metadata),
		CreatedAt:  &created,
	}
	if st.parentID != "" {
		state.ParentCheckpoint = t.checkpoint(st.parentID)
	}
	return state
}

func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func merge(base, update any) any {
	if update == nil {
		return base
	}
	baseMap, okBase := base.(map[string]any)
	updateMap, okUpdate := update.(map[string]any)
	if !okBase || !okUpdate {
		return update
	}
	merged := make(map[string]any, len(baseMap)+len(updateMap))
	for k, v := range baseMap {
		merged[k] = v
	}
	for k, v := range updateMap {
		merged[k] = v
	}
	return merged
}
