package bridge

import (
	"context"
	"strings"
)

// NamePrefix tags every qualified tool name exposed by a Bridge.
const NamePrefix = "mcp"

// Callable is the function signature for bridged tool invocations. Arguments
// are the tool's named parameters; the result is the normalized value
// returned by the remote server.
//
// Callables are safe for concurrent use and hold only a reference to the
// owning connection, never ownership: once the Bridge shuts down, in-flight
// and subsequent calls fail.
type Callable func(ctx context.Context, args map[string]any) (any, error)

// Table maps qualified tool names to their callables. It is a read-only
// snapshot; the Bridge never mutates it after initialization completes.
type Table map[string]Callable

// RegisteredTool is one discovered remote tool after namespacing and
// filtering. Immutable once registered.
type RegisteredTool struct {
	// Name is the qualified tool name.
	Name string

	// Description is the human description from the remote server.
	Description string

	// InputSchema is the tool's input schema, forwarded as-is.
	InputSchema any

	// OutputSchema is the tool's output schema, or nil if the remote
	// server does not declare one.
	OutputSchema any

	call Callable
}

// ToolInfo is the inspectable view of a registered tool.
type ToolInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	InputSchema  any    `json:"inputSchema"`
	OutputSchema any    `json:"outputSchema"`

	// Note carries probing guidance when the server declares no output
	// schema.
	Note string `json:"note,omitempty"`
}

// QualifiedName returns the namespaced name for a server/tool pair:
// mcp__<server>__<tool>, with hyphens replaced by underscores. It is
// idempotent once both names are sanitized.
func QualifiedName(server, tool string) string {
	return NamePrefix + "__" + sanitizeName(server) + "__" + sanitizeName(tool)
}

// sanitizeName replaces hyphens with underscores. Other characters pass
// through unchanged.
func sanitizeName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
