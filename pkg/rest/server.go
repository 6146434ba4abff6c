package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/tablerest/tablerest/pkg/httputil/middleware"
	"github.com/tablerest/tablerest/pkg/metrics"
	"github.com/tablerest/tablerest/pkg/schema"
	"go.uber.org/zap"
)

// InsertHook enriches a decoded insert row before the statement is built,
// eg stamping the authenticated subject into an owner column.
type InsertHook func(r *http.Request, row map[string]any)

// Option configures a Server.
type Option func(*Server)

// WithBaseURL mounts the generated endpoints under a path prefix.
func WithBaseURL(baseURL string) Option {
	return func(s *Server) { s.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithExcludedTables forbids CRUD exposure of the named tables. Requests
// against them fail with 403 on every verb.
func WithExcludedTables(names ...string) Option {
	return func(s *Server) {
		for _, name := range names {
			s.excluded[name] = struct{}{}
		}
	}
}

// WithInsertHook registers a per-table insert enrichment hook.
func WithInsertHook(table string, hook InsertHook) Option {
	return func(s *Server) { s.insertHooks[table] = hook }
}

// WithLogger sets the server logger. Defaults to zap.NewNop.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// Server dispatches HTTP requests to the generated CRUD operations. It
// holds no mutable state across requests: the registry, exclusion list and
// hooks are fixed at construction, so concurrent requests need no
// synchronization.
type Server struct {
	exec        Executor
	registry    *schema.Registry
	baseURL     string
	excluded    map[string]struct{}
	insertHooks map[string]InsertHook
	middleware  []middleware.Middleware
	mux         *http.ServeMux
	server      *http.Server
	logger      *zap.Logger
}

// NewServer builds a Server over an immutable schema registry and a
// storage executor.
func NewServer(registry *schema.Registry, exec Executor, opts ...Option) *Server {
	s := &Server{
		exec:        exec,
		registry:    registry,
		excluded:    make(map[string]struct{}),
		insertHooks: make(map[string]InsertHook),
		mux:         http.NewServeMux(),
		server:      &http.Server{ReadHeaderTimeout: 3 * time.Second},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	pattern := "/"
	if s.baseURL != "" {
		pattern = s.baseURL + "/"
	}
	s.mux.HandleFunc(pattern, s.handleRequest)

	return s
}

// AddMiddleware appends middleware applied, in order, around the whole mux.
func (s *Server) AddMiddleware(mw ...middleware.Middleware) {
	s.middleware = append(s.middleware, mw...)
}

// Handle registers an extra handler (documentation, schema introspection)
// on the server mux. More specific patterns take precedence over the
// table dispatcher.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// Handler returns the full handler with middleware applied.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	for i := len(s.middleware) - 1; i >= 0; i-- {
		handler = s.middleware[i](handler)
	}
	return handler
}

// handleRequest resolves the table name and optional id from the path and
// routes to the matching assembler operation.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	table, id, apiErr := s.resolvePath(r.URL.Path)

	rec := middleware.NewResponseRecorder(w)
	if apiErr != nil {
		writeFailure(rec, apiErr)
	} else {
		s.dispatch(rec, r, table, id)
	}

	metrics.ObserveRequest(r.Method, table.Name, rec.StatusCode, time.Since(start))
}

// resolvePath strips the base prefix and extracts table plus optional id.
// Exclusion is checked before existence: excluded tables answer 403 even
// when absent from the registry, unknown tables answer 404.
func (s *Server) resolvePath(path string) (schema.Table, string, *apiError) {
	path = strings.TrimPrefix(path, s.baseURL)
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if len(parts) == 0 || parts[0] == "" {
		return schema.Table{}, "", validationError("table name required")
	}
	if len(parts) > 2 {
		return schema.Table{}, "", validationError("invalid path: expected /{table} or /{table}/{id}")
	}

	name := parts[0]
	if _, forbidden := s.excluded[name]; forbidden {
		return schema.Table{}, "", &apiError{Status: http.StatusForbidden, Message: "table " + name + " is not exposed"}
	}

	table, exists := s.registry.Lookup(name)
	if !exists {
		return schema.Table{}, "", notFoundError("unknown table " + name)
	}

	var id string
	if len(parts) == 2 {
		id = parts[1]
	}
	return table, id, nil
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, table schema.Table, id string) {
	switch r.Method {
	case http.MethodGet:
		if id != "" {
			s.handleGetByID(w, r, table, id)
		} else {
			s.handleList(w, r, table)
		}
	case http.MethodPost:
		if id != "" {
			writeFailure(w, validationError("create does not accept an id path segment"))
			return
		}
		s.handleInsert(w, r, table)
	case http.MethodPut, http.MethodPatch:
		// PATCH is an alias of PUT: same validation, same execution path.
		s.handleUpdate(w, r, table)
	case http.MethodDelete:
		s.handleDelete(w, r, table)
	default:
		writeFailure(w, &apiError{Status: http.StatusMethodNotAllowed, Message: "method not allowed"})
	}
}

// Start serves HTTP on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.server.Addr = addr
	s.server.Handler = s.Handler()
	s.logger.Info("server starting", zap.String("addr", addr), zap.Int("tables", s.registry.Len()))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}
