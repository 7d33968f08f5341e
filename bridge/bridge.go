package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/toolbridge/config"
)

// noOutputSchemaNote is attached to inspected tools whose server declares no
// output schema.
const noOutputSchemaNote = "No output schema defined by the upstream server. " +
	"Inspect the return value in your program (e.g., print(result)) to " +
	"determine the structure."

// Dialer produces the client transport used to reach one configured server.
// The default dialer spawns a subprocess for process transport and opens a
// streamable HTTP connection for stream transport; tests substitute in-memory
// transports.
type Dialer func(ctx context.Context, spec config.ServerSpec) (mcp.Transport, error)

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// WithDialer overrides how server specs are turned into transports.
func WithDialer(dial Dialer) Option {
	return func(b *Bridge) { b.dial = dial }
}

// Bridge owns the connections to the configured downstream servers and the
// table of tools discovered from them.
//
// Lifecycle: New, Initialize, steady-state queries and callable invocations,
// Shutdown. The tool table and connection set are mutated only during
// Initialize and Shutdown; in between, everything is read-only and safe for
// concurrent use by any number of executions.
type Bridge struct {
	cfg    *config.Config
	logger *slog.Logger
	dial   Dialer
	client *mcp.Client

	mu       sync.RWMutex
	tools    map[string]*RegisteredTool
	sessions []*mcp.ClientSession
}

// New creates a Bridge for the given validated configuration. No connections
// are opened until Initialize.
func New(cfg *config.Config, opts ...Option) *Bridge {
	b := &Bridge{
		cfg:    cfg,
		logger: slog.Default(),
		dial:   defaultDialer,
		tools:  make(map[string]*RegisteredTool),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.client = mcp.NewClient(&mcp.Implementation{
		Name:    "toolbridge",
		Version: "0.1.0",
	}, nil)
	return b
}

// Initialize connects to every configured server, performs the protocol
// handshake, and registers the discovered tools that pass the filter.
// Servers are initialized concurrently and fail independently: a server that
// cannot be reached or listed is logged and skipped.
func (b *Bridge) Initialize(ctx context.Context) error {
	var g errgroup.Group
	for _, spec := range b.cfg.Servers {
		g.Go(func() error {
			if err := b.initServer(ctx, spec); err != nil {
				b.logger.Warn("failed to initialize server, skipping",
					"server", spec.Name, "error", err)
			}
			return nil
		})
	}
	// Workers report failures via the log only.
	_ = g.Wait()

	b.logger.Info("bridge initialized", "tools", b.Len())
	return nil
}

// initServer connects to one server and registers its tools.
func (b *Bridge) initServer(ctx context.Context, spec config.ServerSpec) error {
	transport, err := b.dial(ctx, spec)
	if err != nil {
		return err
	}
	session, err := b.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	// The session is tracked from this point on; if discovery fails below
	// it is still released exactly once, at Shutdown.
	b.mu.Lock()
	b.sessions = append(b.sessions, session)
	b.mu.Unlock()

	registered := 0
	for cursor := ""; ; {
		res, err := session.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return fmt.Errorf("list tools: %w", err)
		}
		for _, tool := range res.Tools {
			qualified := QualifiedName(spec.Name, tool.Name)
			if !b.cfg.Tools.Allows(qualified) {
				b.logger.Debug("skipping filtered tool", "tool", qualified)
				continue
			}
			b.register(&RegisteredTool{
				Name:         qualified,
				Description:  tool.Description,
				InputSchema:  tool.InputSchema,
				OutputSchema: tool.OutputSchema,
				call:         b.bridgeCallable(session, tool.Name, qualified),
			})
			registered++
		}
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	b.logger.Info("connected to server", "server", spec.Name, "tools", registered)
	return nil
}

// register inserts a tool into the table. A duplicate qualified name
// overwrites the earlier entry.
func (b *Bridge) register(t *RegisteredTool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tools[t.Name] = t
}

// bridgeCallable wraps one remote tool as a Callable bound to its owning
// session. Failures surface as *ToolError; a cause that is already a
// ToolError propagates unchanged.
func (b *Bridge) bridgeCallable(session *mcp.ClientSession, toolName, qualified string) Callable {
	return func(ctx context.Context, args map[string]any) (any, error) {
		if args == nil {
			args = map[string]any{}
		}
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		})
		if err != nil {
			var te *ToolError
			if errors.As(err, &te) {
				return nil, err
			}
			return nil, &ToolError{Name: qualified, Err: err}
		}
		if res.IsError {
			msg := resultText(res)
			if msg == "" {
				msg = "remote tool reported an error"
			}
			return nil, &ToolError{Name: qualified, Err: errors.New(msg)}
		}
		return normalizeResult(res), nil
	}
}

// Names returns the qualified names of all registered tools in lexicographic
// order.
func (b *Bridge) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.tools))
	for name := range b.tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered tools.
func (b *Bridge) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tools)
}

// Inspect returns the description and schemas for a registered tool. The
// second return value reports whether the name is known. When the server
// declares no output schema, OutputSchema is nil and Note carries probing
// guidance.
func (b *Bridge) Inspect(name string) (ToolInfo, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tools[name]
	if !ok {
		return ToolInfo{}, false
	}
	info := ToolInfo{
		Name:         t.Name,
		Description:  t.Description,
		InputSchema:  t.InputSchema,
		OutputSchema: t.OutputSchema,
	}
	if t.OutputSchema == nil {
		info.Note = noOutputSchemaNote
	}
	return info, true
}

// Callables returns a read-only snapshot mapping qualified tool names to
// their callables, for injection into an execution.
func (b *Bridge) Callables() Table {
	b.mu.RLock()
	defer b.mu.RUnlock()
	table := make(Table, len(b.tools))
	for name, t := range b.tools {
		table[name] = t.call
	}
	return table
}

// Shutdown closes every connection opened during Initialize, in reverse
// order of acquisition. Outstanding calls on those connections may fail as a
// side effect.
func (b *Bridge) Shutdown() error {
	b.mu.Lock()
	sessions := b.sessions
	b.sessions = nil
	b.mu.Unlock()

	var errs []error
	for i := len(sessions) - 1; i >= 0; i-- {
		if err := sessions[i].Close(); err != nil {
			b.logger.Warn("failed to close session", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// defaultDialer maps a server spec to its transport.
func defaultDialer(_ context.Context, spec config.ServerSpec) (mcp.Transport, error) {
	switch spec.Transport {
	case config.TransportProcess:
		cmd := exec.Command(spec.Command, spec.Args...)
		if len(spec.Env) > 0 {
			cmd.Env = os.Environ()
			for k, v := range spec.Env {
				cmd.Env = append(cmd.Env, k+"="+v)
			}
		}
		return &mcp.CommandTransport{Command: cmd}, nil
	case config.TransportStream:
		return &mcp.StreamableClientTransport{Endpoint: spec.URL}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", spec.Transport)
	}
}
