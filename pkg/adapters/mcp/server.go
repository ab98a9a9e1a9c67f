package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/messagemind/automaton"
	"github.com/messagemind/automaton/internal/logging"
	"github.com/messagemind/automaton/internal/presentation/graph"
	"github.com/messagemind/automaton/internal/validator"
	"github.com/messagemind/automaton/pkg/domain"
)

const automationsURI = "automaton://automations"

// Automations is the read side of the automation catalogue.
type Automations interface {
	List(ctx context.Context) ([]*domain.Graph, error)
	Get(ctx context.Context, id string) (*domain.Graph, error)
}

// Runner starts automation runs in the background.
type Runner interface {
	Start(ctx context.Context, graphID, email string) (string, error)
}

// Summary is the listing entry of one automation.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Server exposes automations as MCP tools so agents can inspect and trigger them.
type Server struct {
	automations Automations
	runner      Runner
	logger      *slog.Logger
	mcpServer   *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger of the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(automations Automations, runner Runner, opts ...Option) *Server {
	s := &Server{
		automations: automations,
		runner:      runner,
		logger:      logging.NewNop(),
		mcpServer:   server.NewMCPServer("automaton-mcp", automaton.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_automations",
		mcp.WithDescription("List stored automations, newest first."),
	), s.handleList)

	s.mcpServer.AddTool(mcp.NewTool("get_automation",
		mcp.WithDescription("Get the full definition (nodes and edges) of an automation."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Automation ID")),
	), s.handleGet)

	s.mcpServer.AddTool(mcp.NewTool("validate_automation",
		mcp.WithDescription("Check an automation for broken edges, unreachable nodes and malformed node data."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Automation ID")),
	), s.handleValidate)

	s.mcpServer.AddTool(mcp.NewTool("render_automation",
		mcp.WithDescription("Render an automation as a Mermaid flowchart."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Automation ID")),
	), s.handleRender)

	s.mcpServer.AddTool(mcp.NewTool("run_automation",
		mcp.WithDescription("Start a background run of an automation for one email address. Messages are really sent."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Automation ID")),
		mcp.WithString("email", mcp.Required(), mcp.Description("Recipient address the run targets")),
	), s.handleRun)
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	all, err := s.automations.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	out := make([]Summary, 0, len(all))
	for _, g := range all {
		out = append(out, Summary{ID: g.ID, Name: g.Name, Nodes: len(g.Nodes), Edges: len(g.Edges), UpdatedAt: g.UpdatedAt})
	}
	return jsonResult(out)
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, res := s.load(ctx, request)
	if res != nil {
		return res, nil
	}
	return jsonResult(g)
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, res := s.load(ctx, request)
	if res != nil {
		return res, nil
	}
	return jsonResult(validator.ValidateGraph(g))
}

func (s *Server) handleRender(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, res := s.load(ctx, request)
	if res != nil {
		return res, nil
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(g, nil)), nil
}

func (s *Server) handleRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	email, err := request.RequireString("email")
	if err != nil || email == "" {
		return mcp.NewToolResultError("Email is required"), nil
	}

	runID, err := s.runner.Start(ctx, id, email)
	if err != nil {
		if errors.Is(err, domain.ErrGraphNotFound) {
			return mcp.NewToolResultError("Automation not found"), nil
		}
		s.logger.Error("MCP run failed", "graph_id", id, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", err)), nil
	}
	return jsonResult(map[string]string{"runId": runID, "message": "Test run started in background"})
}

// load resolves the "id" argument, returning a tool error result on failure.
func (s *Server) load(ctx context.Context, request mcp.CallToolRequest) (*domain.Graph, *mcp.CallToolResult) {
	id, err := request.RequireString("id")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	g, err := s.automations.Get(ctx, id)
	if errors.Is(err, domain.ErrGraphNotFound) {
		return nil, mcp.NewToolResultError("Automation not found")
	}
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("get failed: %v", err))
	}
	return g, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(automationsURI, "Automations",
		mcp.WithResourceDescription("Every stored automation definition"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		all, err := s.automations.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list automations: %w", err)
		}
		jsonBytes, err := json.Marshal(all)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      automationsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
