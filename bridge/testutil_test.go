package bridge

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolbridge/config"
)

// fakeServer is an in-process downstream MCP server for bridge tests.
type fakeServer struct {
	name string
	srv  *mcp.Server
}

func newFakeServer(name string) *fakeServer {
	return &fakeServer{
		name: name,
		srv: mcp.NewServer(&mcp.Implementation{
			Name:    name,
			Version: "0.0.1",
		}, nil),
	}
}

type addArgs struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

type greetArgs struct {
	Name string `json:"name"`
}

type emptyArgs struct{}

// withAdd registers an "add" tool whose text result is the JSON document
// {"result": a+b} and which declares an output schema.
func (f *fakeServer) withAdd() *fakeServer {
	mcp.AddTool(f.srv, &mcp.Tool{
		Name:        "add",
		Description: "Adds two numbers",
	}, func(_ context.Context, _ *mcp.CallToolRequest, args addArgs) (*mcp.CallToolResult, map[string]any, error) {
		return nil, map[string]any{"result": args.A + args.B}, nil
	})
	return f
}

// withGreet registers a "greet" tool returning a plain text greeting.
func (f *fakeServer) withGreet() *fakeServer {
	mcp.AddTool(f.srv, &mcp.Tool{
		Name:        "greet",
		Description: "Greets someone by name",
	}, func(_ context.Context, _ *mcp.CallToolRequest, args greetArgs) (*mcp.CallToolResult, any, error) {
		return textOnly("Hello, " + args.Name + "!"), nil, nil
	})
	return f
}

// withFail registers a "fail" tool that always reports a remote-side error.
func (f *fakeServer) withFail() *fakeServer {
	mcp.AddTool(f.srv, &mcp.Tool{
		Name:        "fail",
		Description: "Always fails",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ emptyArgs) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: "boom"}},
		}, nil, nil
	})
	return f
}

// withEmpty registers an "empty" tool returning zero content parts.
func (f *fakeServer) withEmpty() *fakeServer {
	mcp.AddTool(f.srv, &mcp.Tool{
		Name:        "empty",
		Description: "Returns nothing",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ emptyArgs) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{Content: []mcp.Content{}}, nil, nil
	})
	return f
}

func textOnly(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// newTestBridge wires a Bridge to the given fake servers over in-memory
// transports. Each fake server gets one ServerSpec named after it; extra
// specs (for servers that should fail to connect) can be appended by the
// caller before Initialize.
func newTestBridge(t *testing.T, filter config.ToolFilter, fakes ...*fakeServer) *Bridge {
	t.Helper()
	ctx := context.Background()

	transports := make(map[string]mcp.Transport, len(fakes))
	cfg := config.Default()
	cfg.Tools = filter
	for _, f := range fakes {
		clientTransport, serverTransport := mcp.NewInMemoryTransports()
		if _, err := f.srv.Connect(ctx, serverTransport, nil); err != nil {
			t.Fatalf("connect fake server %q: %v", f.name, err)
		}
		transports[f.name] = clientTransport
		cfg.Servers = append(cfg.Servers, config.ServerSpec{
			Name:      f.name,
			Transport: config.TransportProcess,
			Command:   "unused",
		})
	}

	b := New(cfg, WithDialer(func(_ context.Context, spec config.ServerSpec) (mcp.Transport, error) {
		tr, ok := transports[spec.Name]
		if !ok {
			return nil, fmt.Errorf("no transport for %q", spec.Name)
		}
		return tr, nil
	}))
	if err := b.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(func() { _ = b.Shutdown() })
	return b
}

// errDial is a Dialer that always fails.
func errDial(_ context.Context, spec config.ServerSpec) (mcp.Transport, error) {
	return nil, errors.New("dial refused: " + spec.Name)
}
