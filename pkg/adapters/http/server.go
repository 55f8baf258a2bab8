package http

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/rowflow"
	"github.com/aretw0/rowflow/internal/presentation/graph"
	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/aretw0/rowflow/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

//go:embed openapi.yaml
var openAPISpec []byte

// maxBodySize bounds request bodies; schemas with thousands of variables fit comfortably.
const maxBodySize = 4 << 20

// Validator is the part of rowflow.Validator the server depends on.
type Validator interface {
	ParseSchema(data []byte) (*domain.Schema, error)
	Validate(ctx context.Context, schema *domain.Schema, row domain.Row, opts domain.Options) (*domain.Result, error)
}

// Server exposes a Validator over HTTP.
type Server struct {
	Validator Validator
	Sessions  *session.Manager
	Streams   *StreamManager

	logger  *slog.Logger
	metrics http.Handler
	doc     *openapi3.T

	validateBody *openapi3.Schema
	mermaidBody  *openapi3.Schema
}

// Option configures the Server.
type Option func(*Server)

// WithSessions enables row tracking: requests carrying a row_id are stored
// and answered with a diff against the previous result.
func WithSessions(m *session.Manager) Option {
	return func(s *Server) {
		s.Sessions = m
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewServer loads the embedded OpenAPI document and prepares the server.
func NewServer(v Validator, opts ...Option) (*Server, error) {
	s := &Server{
		Validator: v,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)

	doc, err := openapi3.NewLoader().LoadFromData(openAPISpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}
	s.doc = doc

	if s.validateBody, err = requestSchema(doc, "/validate"); err != nil {
		return nil, err
	}
	if s.mermaidBody, err = requestSchema(doc, "/mermaid"); err != nil {
		return nil, err
	}
	return s, nil
}

// NewHandler creates a new HTTP handler for the validator.
func NewHandler(v Validator, opts ...Option) (http.Handler, error) {
	s, err := NewServer(v, opts...)
	if err != nil {
		return nil, err
	}
	return s.Routes(), nil
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openAPISpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Post("/validate", s.Validate)
	r.Post("/mermaid", s.Mermaid)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	if s.Sessions != nil {
		r.Route("/rows", func(r chi.Router) {
			r.Get("/", s.ListRows)
			r.Get("/{rowID}", s.GetRow)
			r.Delete("/{rowID}", s.DeleteRow)
			r.Get("/{rowID}/events", s.SubscribeEvents)
		})
	}

	return enableCORS(r)
}

func requestSchema(doc *openapi3.T, path string) (*openapi3.Schema, error) {
	item := doc.Paths.Value(path)
	if item == nil || item.Post == nil || item.Post.RequestBody == nil || item.Post.RequestBody.Value == nil {
		return nil, fmt.Errorf("OpenAPI document has no request body for POST %s", path)
	}
	media := item.Post.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil, fmt.Errorf("OpenAPI document has no JSON schema for POST %s", path)
	}
	return media.Schema.Value, nil
}

type ctxKey struct{}

// requestID tags every request with an id, reusing the caller's X-Request-Id when present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RequestIDFrom returns the id assigned to the request carrying ctx.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-Id")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>rowflow API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// ValidateRequest is the body of POST /validate.
type ValidateRequest struct {
	// Schema is either a JSON object or a string holding a YAML/JSON document.
	Schema  json.RawMessage `json:"schema"`
	Row     domain.Row      `json:"row"`
	Options domain.Options  `json:"options"`
	RowID   string          `json:"row_id,omitempty"`
}

// ValidateResponse is the body answered by POST /validate.
type ValidateResponse struct {
	RequestID string             `json:"request_id"`
	Result    *domain.Result     `json:"result"`
	Diff      *domain.ResultDiff `json:"diff,omitempty"`
}

// MermaidRequest is the body of POST /mermaid.
type MermaidRequest struct {
	Schema json.RawMessage `json:"schema"`
	Row    domain.Row      `json:"row,omitempty"`
}

// Validate handles the POST /validate request.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !s.decode(w, r, s.validateBody, &req) {
		return
	}

	schema, err := s.parseSchema(req.Schema)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	validate := func(ctx context.Context) (*domain.Result, error) {
		return s.Validator.Validate(ctx, schema, req.Row, req.Options)
	}

	resp := ValidateResponse{RequestID: RequestIDFrom(r.Context())}
	if req.RowID == "" {
		resp.Result, err = validate(r.Context())
	} else {
		if s.Sessions == nil {
			writeError(w, http.StatusBadRequest, "row tracking is not enabled on this server")
			return
		}
		resp.Result, resp.Diff, err = s.Sessions.Track(r.Context(), req.RowID, validate)
		if err == nil && resp.Diff != nil {
			if payload, mErr := json.Marshal(resp.Diff); mErr == nil {
				s.Streams.Broadcast(req.RowID, string(payload))
			}
		}
	}
	if err != nil {
		status := statusOf(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("validate failed", "request_id", resp.RequestID, "row_id", req.RowID, "err", err)
		}
		writeError(w, status, err.Error())
		return
	}

	s.logger.Debug("row validated",
		"request_id", resp.RequestID,
		"schema", schema.Name,
		"row_id", req.RowID,
		"summary", resp.Result.Summary)
	writeJSON(w, http.StatusOK, resp)
}

// Mermaid handles the POST /mermaid request. When a row is supplied the
// chart is coloured with its classification.
func (s *Server) Mermaid(w http.ResponseWriter, r *http.Request) {
	var req MermaidRequest
	if !s.decode(w, r, s.mermaidBody, &req) {
		return
	}

	schema, err := s.parseSchema(req.Schema)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var overlay *graph.GraphOverlay
	if req.Row != nil {
		res, err := s.Validator.Validate(r.Context(), schema, req.Row, domain.Options{})
		if err != nil {
			writeError(w, statusOf(err), err.Error())
			return
		}
		overlay = graph.OverlayFromResult(res)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(schema, overlay))
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.doc.Info != nil {
		apiVersion = s.doc.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"app":          "rowflow-http",
		"version":      strings.TrimSpace(rowflow.Version),
		"api_version":  apiVersion,
		"row_tracking": s.Sessions != nil,
		"metrics":      s.metrics != nil,
	})
}

// ListRows handles the GET /rows request.
func (s *Server) ListRows(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.logger.Error("list rows failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"rows": ids})
}

// GetRow handles the GET /rows/{rowID} request.
func (s *Server) GetRow(w http.ResponseWriter, r *http.Request) {
	rowID := chi.URLParam(r, "rowID")
	res, err := s.Sessions.Load(r.Context(), rowID)
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteRow handles the DELETE /rows/{rowID} request.
func (s *Server) DeleteRow(w http.ResponseWriter, r *http.Request) {
	rowID := chi.URLParam(r, "rowID")
	if err := s.Sessions.Delete(r.Context(), rowID); err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles the GET /rows/{rowID}/events request (SSE).
// Each tracked validation of the row pushes its diff as one event.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	rowID := chi.URLParam(r, "rowID")
	watch := parseWatch(r.URL.Query().Get("watch"))

	ch, cancel := s.Streams.Subscribe(rowID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE client subscribed", "row_id", rowID)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "row_id", rowID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !matchesWatch(msg, watch) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// decode reads the body, checks it against the OpenAPI request schema and
// unmarshals it into dst. It writes the error response itself and reports
// whether the handler may continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, schema *openapi3.Schema, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}

	var generic any
	if err := json.Unmarshal(body, &generic); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := schema.VisitJSON(generic); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("request does not match the API contract: %v", err))
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// parseSchema accepts the schema either inline as an object or as a string
// holding a YAML document. Inline objects are handed to the parser verbatim
// so the declaration order of variables survives.
func (s *Server) parseSchema(raw json.RawMessage) (*domain.Schema, error) {
	doc := bytes.TrimSpace(raw)
	if len(doc) > 0 && doc[0] == '"' {
		var text string
		if err := json.Unmarshal(doc, &text); err != nil {
			return nil, fmt.Errorf("invalid schema document: %w", err)
		}
		doc = []byte(text)
	}
	schema, err := s.Validator.ParseSchema(doc)
	if err != nil {
		return nil, fmt.Errorf("invalid schema document: %w", err)
	}
	return schema, nil
}

// statusOf maps engine and store errors onto HTTP status codes.
func statusOf(err error) int {
	var varErr *domain.VariableError
	switch {
	case errors.Is(err, domain.ErrResultNotFound):
		return http.StatusNotFound
	case errors.As(err, &varErr),
		errors.Is(err, domain.ErrUnknownFunction),
		errors.Is(err, domain.ErrMissingOptions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
