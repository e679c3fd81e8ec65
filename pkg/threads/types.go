package threads

import (
	"errors"
	"time"
)

// IfExists selects how the service handles CreateRequest for an id that is
// already taken. Enforcement happens server-side only.
type IfExists string

const (
	// IfExistsRaise fails the create when the thread already exists. It is the default.
	IfExistsRaise IfExists = "raise"
	// IfExistsError behaves like IfExistsRaise.
	IfExistsError IfExists = "error"
	// IfExistsReturnExisting returns the existing thread instead of failing.
	IfExistsReturnExisting IfExists = "return_existing"
)

// DefaultLimit is used by Search and GetHistory when no limit is given.
const DefaultLimit = 10

// CheckpointConfig identifies a point in a thread's history. Its contents are
// opaque to the client.
type CheckpointConfig map[string]any

// Thread is a thread as returned by the service.
type Thread struct {
	ThreadID  string         `json:"thread_id"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Status    string         `json:"status,omitempty"`
	Values    any            `json:"values,omitempty"`
}

// ThreadState is a snapshot of a thread's values at one checkpoint.
type ThreadState struct {
	Values           any              `json:"values"`
	Next             []string         `json:"next"`
	Checkpoint       CheckpointConfig `json:"checkpoint,omitempty"`
	ParentCheckpoint CheckpointConfig `json:"parent_checkpoint,omitempty"`
	Metadata         map[string]any   `json:"metadata,omitempty"`
	CreatedAt        *time.Time       `json:"created_at,omitempty"`
}

// CheckpointID returns the checkpoint_id of the state's checkpoint, if any.
func (s *ThreadState) CheckpointID() string {
	if s == nil {
		return ""
	}
	id, _ := s.Checkpoint["checkpoint_id"].(string)
	return id
}

// CreateRequest is the payload for Create. Empty fields are not transmitted.
type CreateRequest struct {
	ThreadID string         `json:"thread_id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	IfExists IfExists       `json:"if_exists"`
}

// SearchRequest is the payload for Search. Filters are combined by the service.
type SearchRequest struct {
	Metadata map[string]any `json:"metadata,omitempty"`
	Values   map[string]any `json:"values,omitempty"`
	Status   string         `json:"status,omitempty"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
}

// UpdateStateRequest is the payload for UpdateState. Values is shaped by the
// graph application, not by this client.
type UpdateStateRequest struct {
	Values     any              `json:"values,omitempty"`
	Checkpoint CheckpointConfig `json:"checkpoint,omitempty"`
	AsNode     string           `json:"as_node,omitempty"`
}

// HistoryOptions controls GetHistory. Before is a checkpoint id cursor.
type HistoryOptions struct {
	Limit  int
	Before string
}

var (
	// ErrClientNil is wrapped into the error returned by methods on a nil Client.
	ErrClientNil = errors.New("threads: client is nil")
)
