package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/rowflow"
	"github.com/aretw0/rowflow/internal/presentation/graph"
	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Validator is the part of rowflow.Validator the MCP server depends on.
type Validator interface {
	ParseSchema(data []byte) (*domain.Schema, error)
	Validate(ctx context.Context, schema *domain.Schema, row domain.Row, opts domain.Options) (*domain.Result, error)
}

// ValidateArgs are the arguments of the validate_row tool.
type ValidateArgs struct {
	Row      map[string]any `json:"row"`
	Schema   string         `json:"schema,omitempty"`
	AutoFill bool           `json:"auto_fill,omitempty"`
}

// MermaidArgs are the arguments of the mermaid_flow tool.
type MermaidArgs struct {
	Row    map[string]any `json:"row,omitempty"`
	Schema string         `json:"schema,omitempty"`
}

// ValidateResponse is a flat projection of a Result that agents can read without
// knowing the detailed feedback shape.
type ValidateResponse struct {
	Summary      string            `json:"summary" jsonschema_description:"Overall status: ok, incomplete, empty or has_problems"`
	Current      string            `json:"current,omitempty" jsonschema_description:"Variable the questionnaire is asking for now"`
	FirstEmpty   string            `json:"first_empty,omitempty" jsonschema_description:"Earliest variable reached by the flow with no value"`
	FirstFailure string            `json:"first_failure,omitempty" jsonschema_description:"Earliest variable with a problem"`
	Problems     []string          `json:"problems" jsonschema_description:"Variables whose state must be corrected, in flow order"`
	States       map[string]string `json:"states" jsonschema_description:"State of every variable"`
	Next         map[string]string `json:"next" jsonschema_description:"Next variable in the effective flow"`
	AutoFilled   map[string]any    `json:"auto_filled,omitempty" jsonschema_description:"Suggested values for empty variables"`
}

// Server wraps a Validator and exposes it as an MCP Server.
type Server struct {
	validator Validator
	schema    *domain.Schema
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance. schema is the default used
// when a tool call carries no schema document; it may be nil.
func NewServer(v Validator, schema *domain.Schema, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		validator: v,
		schema:    schema,
		logger:    logger,
		mcpServer: server.NewMCPServer("rowflow-mcp", strings.TrimSpace(rowflow.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: validate_row
	validateTool := mcp.NewTool("validate_row",
		mcp.WithDescription("Classify every variable of a questionnaire row against the flow rules of its schema."),
		mcp.WithObject("row", mcp.Required(), mcp.Description("Answers keyed by variable name")),
		mcp.WithString("schema", mcp.Description("YAML or JSON schema document (optional when the server was started with one)")),
		mcp.WithBoolean("auto_fill", mcp.Description("Suggest values for empty variables that declare an auto-fill function")),
		mcp.WithOutputSchema[ValidateResponse](),
	)
	s.mcpServer.AddTool(validateTool, mcp.NewStructuredToolHandler(s.handleValidate))

	// TOOL: mermaid_flow
	s.mcpServer.AddTool(mcp.NewTool("mermaid_flow",
		mcp.WithDescription("Render the schema flow as a Mermaid flowchart, coloured by a row when one is given."),
		mcp.WithObject("row", mcp.Description("Answers keyed by variable name (optional)")),
		mcp.WithString("schema", mcp.Description("YAML or JSON schema document (optional when the server was started with one)")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args MermaidArgs
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		chart, err := s.handleMermaid(ctx, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(chart), nil
	})
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args ValidateArgs) (ValidateResponse, error) {
	schema, err := s.resolveSchema(args.Schema)
	if err != nil {
		return ValidateResponse{}, err
	}

	res, err := s.validator.Validate(ctx, schema, domain.Row(args.Row), domain.Options{AutoFill: args.AutoFill})
	if err != nil {
		s.logger.Warn("MCP validate_row: validation aborted", "schema", schema.Name, "error", err)
		return ValidateResponse{}, fmt.Errorf("validation failed: %w", err)
	}
	return project(res), nil
}

func (s *Server) handleMermaid(ctx context.Context, args MermaidArgs) (string, error) {
	schema, err := s.resolveSchema(args.Schema)
	if err != nil {
		return "", err
	}

	var overlay *graph.GraphOverlay
	if args.Row != nil {
		res, err := s.validator.Validate(ctx, schema, domain.Row(args.Row), domain.Options{})
		if err != nil {
			return "", fmt.Errorf("validation failed: %w", err)
		}
		overlay = graph.OverlayFromResult(res)
	}
	return graph.GenerateMermaid(schema, overlay), nil
}

var errNoSchema = errors.New("no schema document given and the server has no default schema")

func (s *Server) resolveSchema(doc string) (*domain.Schema, error) {
	if strings.TrimSpace(doc) == "" {
		if s.schema == nil {
			return nil, errNoSchema
		}
		return s.schema, nil
	}
	schema, err := s.validator.ParseSchema([]byte(doc))
	if err != nil {
		return nil, fmt.Errorf("invalid schema document: %w", err)
	}
	return schema, nil
}

func project(res *domain.Result) ValidateResponse {
	out := ValidateResponse{
		Summary:      string(res.Summary),
		Current:      res.Current,
		FirstEmpty:   res.FirstEmpty,
		FirstFailure: res.FirstFailure,
		Problems:     []string{},
		States:       make(map[string]string, len(res.Order)),
		Next:         make(map[string]string, len(res.Order)),
		AutoFilled:   res.AutoFilled,
	}
	for _, name := range res.Order {
		state, _ := res.StateOf(name)
		out.States[name] = string(state)
		out.Next[name] = res.NextOf(name)
		if state.IsProblem() {
			out.Problems = append(out.Problems, name)
		}
	}
	return out
}

// schemaVariable describes one variable in the rowflow://schema resource.
type schemaVariable struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
	Computed bool   `json:"computed,omitempty"`
	Skip     string `json:"skip,omitempty"`
}

func (s *Server) registerResources() {
	// EXPOSE: rowflow://schema
	s.mcpServer.AddResource(mcp.NewResource("rowflow://schema", "Default Schema",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := s.describeSchema()
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "rowflow://schema",
				MIMEType: "application/json",
				Text:     text,
			},
		}, nil
	})
}

func (s *Server) describeSchema() (string, error) {
	if s.schema == nil {
		return "", errNoSchema
	}
	vars := make([]schemaVariable, 0, s.schema.Len())
	for name, v := range s.schema.All() {
		vars = append(vars, schemaVariable{
			Name:     name,
			Type:     string(v.Type),
			Optional: v.Optional,
			Computed: v.Computed,
			Skip:     v.UnconditionalSkip,
		})
	}
	data, err := json.Marshal(map[string]any{
		"name":       s.schema.Name,
		"end_marker": s.schema.EndMarker,
		"variables":  vars,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode schema: %w", err)
	}
	return string(data), nil
}
