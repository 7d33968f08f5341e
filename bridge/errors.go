package bridge

import (
	"errors"
	"fmt"
)

// ErrToolFailure indicates that a bridged tool call failed, either in
// transport or on the remote side. Use errors.Is to classify.
var ErrToolFailure = errors.New("tool call failure")

// ToolError reports the failure of one bridged tool call. It carries the
// qualified tool name so the failure can be attributed when it surfaces
// inside a running program.
type ToolError struct {
	// Name is the qualified name of the tool whose call failed.
	Name string

	// Err is the underlying cause.
	Err error
}

// Error returns the failure message with the qualified tool name.
func (e *ToolError) Error() string {
	return fmt.Sprintf("'%s' failed: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *ToolError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the target.
// ToolError matches ErrToolFailure to allow sentinel-style error checking.
func (e *ToolError) Is(target error) bool {
	return target == ErrToolFailure
}
