// Package server exposes the bridge and engine over MCP.
//
// The served surface is three tools: execute_program runs a program against
// the bridged callable table, list_callable_tools enumerates the qualified
// tool names, and inspect_tool returns one tool's description and schemas.
// Every response is a single text content; program-level failures come back
// inside the execute_program result text, never as protocol errors.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolbridge/bridge"
	"github.com/jonwraymond/toolbridge/engine"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// Server is the MCP service front. It owns no state of its own; every
// operation delegates to the bridge or the engine.
type Server struct {
	bridge *bridge.Bridge
	engine *engine.Engine
	logger *slog.Logger
	mcp    *mcp.Server
}

type executeProgramArgs struct {
	Code string `json:"code" jsonschema:"JavaScript program to execute; bridged tools are callable under their qualified names and print produces output"`
}

type inspectToolArgs struct {
	ToolName string `json:"tool_name" jsonschema:"qualified tool name such as mcp__financial_data__query_financials"`
}

type listToolsArgs struct{}

// New creates the service front for an initialized bridge and an engine.
func New(b *bridge.Bridge, e *engine.Engine, opts ...Option) *Server {
	s := &Server{
		bridge: b,
		engine: e,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "toolbridge",
		Version: "0.1.0",
	}, nil)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "execute_program",
		Description: "Execute a JavaScript program with access to bridged tools as " +
			"functions. Tool calls within the program are dispatched to their " +
			"respective servers. Only printed output is returned; intermediate " +
			"tool results do not enter the conversation context. Use this when a " +
			"task involves 3+ tool calls, loops, filtering, aggregation, or " +
			"conditional logic based on intermediate results. For single tool " +
			"calls, call the tool directly.",
	}, s.executeProgram)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "inspect_tool",
		Description: "Returns the schema and description of a tool available in " +
			"execute_program. Includes outputSchema if the upstream server " +
			"defines one. Call this before writing a program if you need to " +
			"understand a tool's return format.",
	}, s.inspectTool)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "list_callable_tools",
		Description: "Returns a JSON list of all tool names available for use " +
			"inside execute_program programs. Use this to discover which tools " +
			"are callable before writing a program.",
	}, s.listCallableTools)

	return s
}

// Run serves MCP on the given transport until the context is cancelled.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.mcp.Run(ctx, t)
}

// Connect serves a single session on the given transport. Used by tests and
// embedders that manage sessions themselves.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}

func (s *Server) executeProgram(ctx context.Context, _ *mcp.CallToolRequest, args executeProgramArgs) (*mcp.CallToolResult, any, error) {
	result := s.engine.Run(ctx, args.Code, s.bridge.Callables())
	return textResult(result), nil, nil
}

func (s *Server) inspectTool(_ context.Context, _ *mcp.CallToolRequest, args inspectToolArgs) (*mcp.CallToolResult, any, error) {
	info, ok := s.bridge.Inspect(args.ToolName)
	if !ok {
		msg := fmt.Sprintf("[Tool not found] '%s' is not available in execute_program", args.ToolName)
		return textResult(msg), nil, nil
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshal tool info: %w", err)
	}
	return textResult(string(data)), nil, nil
}

func (s *Server) listCallableTools(_ context.Context, _ *mcp.CallToolRequest, _ listToolsArgs) (*mcp.CallToolResult, any, error) {
	names := s.bridge.Names()
	if names == nil {
		names = []string{}
	}
	data, err := json.Marshal(names)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal tool names: %w", err)
	}
	return textResult(string(data)), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
