// Package sandbox serves the graph service REST surface from local backends so
// the SDK can be exercised without a real deployment.
package sandbox

import (
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Ratio1/graph_sdk_go/pkg/apierr"
	"github.com/Ratio1/graph_sdk_go/pkg/store"
	"github.com/Ratio1/graph_sdk_go/pkg/threads"
)

// NamespaceShape selects how GET /store/namespaces encodes its payload.
type NamespaceShape string

const (
	// NamespacesObject responds with {"namespaces": [...]}.
	NamespacesObject NamespaceShape = "object"
	// NamespacesArray responds with a bare JSON array.
	NamespacesArray NamespaceShape = "array"
)

// FailConfig injects failures into a share of requests.
type FailConfig struct {
	Rate float64
	Code int
}

// Options tunes the sandbox behaviour.
type Options struct {
	Latency        time.Duration
	Fail           FailConfig
	NamespaceShape NamespaceShape
	Logger         *zap.Logger
}

// Server routes REST calls to a store and a thread backend.
type Server struct {
	store   store.Backend
	threads threads.Backend
	opts    Options
	logger  *zap.Logger
	mux     *http.ServeMux
}

// New builds a Server. Nil options fields fall back to defaults.
func New(storeBackend store.Backend, threadBackend threads.Backend, opts Options) *Server {
	if opts.NamespaceShape == "" {
		opts.NamespaceShape = NamespacesObject
	}
	if opts.Fail.Code == 0 {
		opts.Fail.Code = http.StatusInternalServerError
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		store:   storeBackend,
		threads: threadBackend,
		opts:    opts,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /store/items", s.handleCreateItem)
	s.mux.HandleFunc("GET /store/items", s.handleGetItem)
	s.mux.HandleFunc("DELETE /store/items", s.handleDeleteItem)
	s.mux.HandleFunc("POST /store/items/search", s.handleSearchItems)
	s.mux.HandleFunc("GET /store/namespaces", s.handleListNamespaces)

	s.mux.HandleFunc("POST /threads", s.handleCreateThread)
	s.mux.HandleFunc("POST /threads/search", s.handleSearchThreads)
	s.mux.HandleFunc("GET /threads/{thread_id}", s.handleGetThread)
	s.mux.HandleFunc("DELETE /threads/{thread_id}", s.handleDeleteThread)
	s.mux.HandleFunc("GET /threads/{thread_id}/state", s.handleGetState)
	s.mux.HandleFunc("POST /threads/{thread_id}/state", s.handleUpdateState)
	s.mux.HandleFunc("GET /threads/{thread_id}/history", s.handleHistory)
	s.mux.HandleFunc("POST /threads/{thread_id}/copy", s.handleCopyThread)
}

// ServeHTTP applies latency and failure injection before routing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if s.opts.Latency > 0 {
		time.Sleep(s.opts.Latency)
	}
	if s.opts.Fail.Rate > 0 && rand.Float64() < s.opts.Fail.Rate {
		s.logger.Debug("failure injected", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		writeError(w, s.opts.Fail.Code, "failure injected")
		return
	}
	s.mux.ServeHTTP(w, r)
	s.logger.Debug("served request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Duration("elapsed", time.Since(start)))
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req store.ItemCreate
	if !decodeBody(w, r, &req) {
		return
	}
	item, err := s.store.CreateItem(r.Context(), req)
	s.respond(w, item, err)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	namespace, id, ok := itemKey(w, r)
	if !ok {
		return
	}
	item, err := s.store.GetItem(r.Context(), namespace, id)
	s.respond(w, item, err)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	namespace, id, ok := itemKey(w, r)
	if !ok {
		return
	}
	err := s.store.DeleteItem(r.Context(), namespace, id)
	s.respond(w, map[string]any{"ok": true}, err)
}

func (s *Server) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	var req store.ItemSearch
	if !decodeBody(w, r, &req) {
		return
	}
	items, err := s.store.SearchItems(r.Context(), req)
	if items == nil {
		items = []store.Item{}
	}
	s.respond(w, items, err)
}

func (s *Server) handleListNamespaces(w http.ResponseWriter, r *http.Request) {
	namespaces, err := s.store.ListNamespaces(r.Context())
	if namespaces == nil {
		namespaces = []string{}
	}
	if s.opts.NamespaceShape == NamespacesArray {
		s.respond(w, namespaces, err)
		return
	}
	s.respond(w, store.NamespacesResponse{Namespaces: namespaces}, err)
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var req threads.CreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	thread, err := s.threads.Create(r.Context(), req)
	s.respond(w, thread, err)
}

func (s *Server) handleSearchThreads(w http.ResponseWriter, r *http.Request) {
	var req threads.SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	list, err := s.threads.Search(r.Context(), req)
	if list == nil {
		list = []threads.Thread{}
	}
	s.respond(w, list, err)
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	thread, err := s.threads.Get(r.Context(), r.PathValue("thread_id"))
	s.respond(w, thread, err)
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	err := s.threads.Delete(r.Context(), r.PathValue("thread_id"))
	s.respond(w, map[string]any{"ok": true}, err)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.threads.GetState(r.Context(), r.PathValue("thread_id"))
	s.respond(w, state, err)
}

func (s *Server) handleUpdateState(w http.ResponseWriter, r *http.Request) {
	var req threads.UpdateStateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.threads.UpdateState(r.Context(), r.PathValue("thread_id"), req)
	s.respond(w, result, err)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	opts := threads.HistoryOptions{Before: r.URL.Query().Get("before")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "limit must be an integer")
			return
		}
		opts.Limit = limit
	}
	states, err := s.threads.GetHistory(r.Context(), r.PathValue("thread_id"), opts)
	if states == nil {
		states = []threads.ThreadState{}
	}
	s.respond(w, states, err)
}

func (s *Server) handleCopyThread(w http.ResponseWriter, r *http.Request) {
	thread, err := s.threads.Copy(r.Context(), r.PathValue("thread_id"))
	s.respond(w, thread, err)
}

func (s *Server) respond(w http.ResponseWriter, payload any, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		message := err.Error()
		var apiErr *apierr.Error
		if errors.As(err, &apiErr) {
			message = apiErr.Message
			if apiErr.HasStatus() {
				status = apiErr.StatusCode
			}
		}
		if status >= http.StatusInternalServerError {
			s.logger.Warn("backend failure", zap.Error(err))
		}
		writeError(w, status, message)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func itemKey(w http.ResponseWriter, r *http.Request) ([]string, string, bool) {
	q := r.URL.Query()
	id := q.Get("id")
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusUnprocessableEntity, "missing id parameter")
		return nil, "", false
	}
	namespace := q["namespace"]
	if namespace == nil {
		namespace = []string{}
	}
	return namespace, id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
