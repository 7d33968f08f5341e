package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"

	"github.com/jonwraymond/toolbridge/bridge"
	"github.com/jonwraymond/toolbridge/config"
)

// Result framing literals. The first line of every result is one of the two
// banners, so callers can distinguish success from failure without parsing
// the body.
const (
	successBanner       = "[Script executed successfully]"
	failureBanner       = "[Script execution failed]"
	noOutputPlaceholder = "(no output)"
	truncationMarker    = "\n... (truncated)"
)

// programName is the file name goja reports in diagnostics.
const programName = "program.js"

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// Engine executes programs under the configured limits. It holds no state
// between runs and is safe for concurrent use.
type Engine struct {
	limits config.ExecutionLimits
	logger *slog.Logger
}

// New creates an Engine with the given execution limits.
func New(limits config.ExecutionLimits, opts ...Option) *Engine {
	e := &Engine{
		limits: limits,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes a program against the supplied callable table and returns the
// formatted result. The program sees exactly the table entries plus the
// print and sleep builtins; its printed output is captured, bounded, and
// returned under a success banner. Compile errors, runtime faults, and
// timeouts are returned under a failure banner instead of as an error.
func (e *Engine) Run(ctx context.Context, program string, table bridge.Table) string {
	id := uuid.NewString()
	start := time.Now()

	prog, err := goja.Compile(programName, program, false)
	if err != nil {
		e.logger.Info("execution failed to compile", "execution", id, "error", err)
		return failure(err.Error())
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout := e.limits.TimeoutDuration(); timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	vm := goja.New()
	out := newBoundedBuffer(e.limits.MaxOutputBytes)
	if err := e.bind(runCtx, vm, out, table); err != nil {
		return failure(err.Error())
	}

	runErr := e.runInterruptible(runCtx, vm, prog)

	e.logger.Info("execution finished",
		"execution", id,
		"duration", time.Since(start),
		"ok", runErr == nil)

	if runErr != nil {
		// The deadline wins over whatever error the aborted program
		// produced on its way down.
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return failure(fmt.Sprintf("TimeoutError: execution exceeded %v limit",
				e.limits.TimeoutDuration()))
		}
		return failure(diagnostic(runErr))
	}

	text := out.String()
	if out.Truncated() {
		text += truncationMarker
	}
	if strings.TrimSpace(text) == "" {
		text = noOutputPlaceholder
	}
	return successBanner + "\n" + text
}

// bind populates a fresh interpreter namespace: the callable table plus the
// print and sleep builtins. Nothing else is visible to the program.
func (e *Engine) bind(ctx context.Context, vm *goja.Runtime, out *boundedBuffer, table bridge.Table) error {
	if err := vm.Set("print", printBuiltin(out)); err != nil {
		return fmt.Errorf("bind print: %w", err)
	}
	if err := vm.Set("sleep", sleepBuiltin(ctx)); err != nil {
		return fmt.Errorf("bind sleep: %w", err)
	}
	for name, call := range table {
		if err := vm.Set(name, callableBuiltin(ctx, vm, name, call)); err != nil {
			return fmt.Errorf("bind %s: %w", name, err)
		}
	}
	return nil
}

// runInterruptible runs the compiled program on its own goroutine and
// interrupts the interpreter when the context expires. In-flight callable
// invocations observe the same context and unwind on their own.
func (e *Engine) runInterruptible(ctx context.Context, vm *goja.Runtime, prog *goja.Program) error {
	done := make(chan struct{})
	var runErr error
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok {
					runErr = err
				} else {
					runErr = fmt.Errorf("panic: %v", r)
				}
			}
		}()
		_, runErr = vm.RunProgram(prog)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		vm.Interrupt("deadline reached")
		<-done
	}
	return runErr
}

// printBuiltin writes its arguments to the bounded output buffer, separated
// by spaces with a trailing newline. Strings print verbatim; other values
// print as JSON so structured results stay readable.
func printBuiltin(out *boundedBuffer) func(goja.FunctionCall) goja.Value {
	return func(fc goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(fc.Arguments))
		for _, arg := range fc.Arguments {
			parts = append(parts, formatValue(arg.Export()))
		}
		out.WriteString(strings.Join(parts, " ") + "\n")
		return goja.Undefined()
	}
}

// sleepBuiltin delays the program for the given number of milliseconds,
// returning early when the execution is cancelled.
func sleepBuiltin(ctx context.Context) func(goja.FunctionCall) goja.Value {
	return func(fc goja.FunctionCall) goja.Value {
		ms := fc.Argument(0).ToFloat()
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms * float64(time.Millisecond))):
			case <-ctx.Done():
			}
		}
		return goja.Undefined()
	}
}

// callableBuiltin exposes one bridged callable to the program. The single
// argument is an object of named tool arguments; a failing call throws, so
// programs may catch tool failures or let them surface as a runtime error.
func callableBuiltin(ctx context.Context, vm *goja.Runtime, name string, call bridge.Callable) func(goja.FunctionCall) goja.Value {
	return func(fc goja.FunctionCall) goja.Value {
		args := map[string]any{}
		if len(fc.Arguments) > 0 && !goja.IsUndefined(fc.Arguments[0]) && !goja.IsNull(fc.Arguments[0]) {
			exported := fc.Arguments[0].Export()
			m, ok := exported.(map[string]any)
			if !ok {
				panic(vm.NewTypeError("%s: arguments must be a single object of named parameters", name))
			}
			args = m
		}
		result, err := call(ctx, args)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return vm.ToValue(result)
	}
}

// formatValue renders one printed value: strings verbatim, everything else
// as JSON with a %v fallback.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	default:
		if b, err := json.Marshal(val); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", val)
	}
}

// diagnostic extracts the fullest available trace from a run error.
// Thrown exceptions carry a stack; other errors report their message.
func diagnostic(err error) string {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return ex.String()
	}
	return err.Error()
}

// failure frames a diagnostic under the failure banner.
func failure(msg string) string {
	return failureBanner + "\n" + msg
}
