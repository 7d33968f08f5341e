// Package bridge connects to downstream MCP tool servers and exposes their
// tools as local callables.
//
// A Bridge is built from a validated config, then driven through an explicit
// lifecycle: Initialize connects to every configured server, discovers its
// tools, and registers one bridging callable per tool under a qualified name;
// Shutdown closes every connection. Between the two, the registered table is
// immutable and may be snapshotted by any number of concurrent executions.
//
// # Naming
//
// Every discovered tool is registered under
//
//	mcp__<server>__<tool>
//
// with hyphens in the server and tool names replaced by underscores. The
// server name embedded in the qualified name makes cross-server collisions
// impossible by construction.
//
// # Failure isolation
//
// A server that fails to connect or to list its tools is logged and skipped;
// it never aborts initialization or affects other servers. A failing bridged
// call surfaces to the caller as a *ToolError carrying the qualified name and
// the underlying cause.
package bridge
