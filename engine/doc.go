// Package engine runs caller-supplied programs against an injected table of
// bridged tool callables.
//
// Programs are JavaScript, executed on a fresh interpreter per run so no
// state leaks between executions. The namespace visible to a program is
// exactly the supplied callable table plus two builtins: print, which writes
// to a captured, size-bounded output buffer, and sleep, a cancellation-aware
// delay. Tool callables block the single-threaded program while their network
// I/O is in flight, so printed output order always matches program order.
//
// Every run produces one result string whose first line is a success or
// failure banner; syntax errors, runtime faults, and timeouts all surface
// through that same string and never as an error at the API boundary.
package engine
