package scripting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/snipbox/internal/inspect"
	"github.com/joeycumines/snipbox/internal/storage"
)

// DefaultSafetyTimeout is how long a run may hold the console hooks before
// they are restored regardless of outcome.
const DefaultSafetyTimeout = 30 * time.Second

// State is the lifecycle state of one Execution.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateAwaitingAsync
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateAwaitingAsync:
		return "awaiting-async"
	case StateSettled:
		return "settled"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Execution tracks one RunCode call.
type Execution struct {
	state atomic.Int32
	done  chan struct{}
	once  sync.Once
	err   error
}

func newExecution() *Execution {
	return &Execution{done: make(chan struct{})}
}

// Done is closed once the run's session is torn down: on synchronous
// completion, when an async result settles, on safety timeout, or when the
// run is canceled or superseded.
func (e *Execution) Done() <-chan struct{} {
	return e.done
}

// State reports the current state.
func (e *Execution) State() State {
	return State(e.state.Load())
}

// Err describes how the snippet failed, nil if it completed. Only valid once
// Done is closed. The same failure was already reported as a console line.
func (e *Execution) Err() error {
	select {
	case <-e.done:
		return e.err
	default:
		return nil
	}
}

// Wait blocks until the execution is done or ctx ends.
func (e *Execution) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		return e.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Execution) finish(err error) {
	e.once.Do(func() {
		e.err = err
		e.state.Store(int32(StateSettled))
		close(e.done)
	})
}

// session is the live hold on the console hooks.
type session struct {
	exec      *Execution
	stopTimer func()
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithEvaluator replaces the FunctionEvaluator.
func WithEvaluator(e Evaluator) ControllerOption {
	return func(c *Controller) { c.evaluator = e }
}

// WithSafetyTimeout overrides DefaultSafetyTimeout.
func WithSafetyTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithControllerClock sets the clock used to stamp inspector entries.
func WithControllerClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

// Controller runs snippets on a Runtime and collects their output. A Runtime
// must have at most one Controller, since both share the global console.
type Controller struct {
	rt          *Runtime
	output      *Output
	interceptor *Interceptor
	evaluator   Evaluator
	timeout     time.Duration
	now         func() time.Time
	logger      *slog.Logger

	// session is only accessed on the loop.
	session *session
}

// NewController creates a Controller bound to rt.
func NewController(rt *Runtime, opts ...ControllerOption) *Controller {
	c := &Controller{
		rt:        rt,
		output:    NewOutput(),
		evaluator: FunctionEvaluator{},
		timeout:   DefaultSafetyTimeout,
		now:       time.Now,
		logger:    rt.Logger().Slog().With(slog.String("component", "controller")),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.interceptor = NewInterceptor(c.output, c.logger, c.now)
	return c
}

// RunCode starts a run of snippet and returns once its synchronous part has
// finished. Snippet failures are reported through the output, never as the
// returned error, which is reserved for host failures such as a stopped
// runtime. Canceling ctx interrupts the snippet and ends the run.
func (c *Controller) RunCode(ctx context.Context, snippet storage.Snippet) (*Execution, error) {
	exec := newExecution()
	evaluated := make(chan struct{})
	if !c.rt.RunOnLoop(func(vm *goja.Runtime) {
		defer close(evaluated)
		c.start(vm, exec, snippet)
	}) {
		return nil, fmt.Errorf("run snippet: %w", ErrRuntimeStopped)
	}

	stop := context.AfterFunc(ctx, func() {
		select {
		case <-exec.Done():
			return
		default:
		}
		cause := context.Cause(ctx)
		c.rt.Interrupt(cause)
		c.rt.RunOnLoop(func(vm *goja.Runtime) {
			c.end(exec, &ExecutionError{Kind: ErrCanceled, Message: cause.Error(), Err: cause})
			// An interrupt that landed after the run settled must not hit the
			// next loop job.
			vm.ClearInterrupt()
		})
	})
	go func() {
		defer stop()
		select {
		case <-exec.Done():
		case <-c.rt.Done():
			exec.finish(fmt.Errorf("run snippet: %w", ErrRuntimeStopped))
		}
	}()

	select {
	case <-evaluated:
		return exec, nil
	case <-c.rt.Done():
		return nil, fmt.Errorf("run snippet: %w", ErrRuntimeStopped)
	}
}

// start runs on the loop.
func (c *Controller) start(vm *goja.Runtime, exec *Execution, snippet storage.Snippet) {
	if c.session != nil {
		c.end(c.session.exec, &ExecutionError{Kind: ErrCanceled, Message: "superseded by a new run"})
	}
	vm.ClearInterrupt()
	c.output.Clear()
	exec.state.Store(int32(StateRunning))

	if _, ok := vm.Get("console").(*goja.Object); !ok {
		if err := installConsole(vm); err != nil {
			c.logger.Warn("reinstall console failed", slog.Any("error", err))
		}
	}
	if err := c.interceptor.Install(vm); err != nil {
		failure := &ExecutionError{Kind: ErrExecution, Message: "cannot capture console: " + err.Error(), Err: err}
		c.report(failure)
		exec.finish(failure)
		return
	}
	c.session = &session{
		exec: exec,
		stopTimer: c.rt.AfterFunc(c.timeout, func(*goja.Runtime) {
			if c.current(exec) {
				c.logger.Warn("run exceeded safety timeout, console restored", slog.Duration("timeout", c.timeout))
			}
			c.end(exec, &ExecutionError{Kind: ErrTimeout, Message: "no result after " + c.timeout.String()})
		}),
	}

	source, err := Downgrade(snippet.Language, snippet.Content)
	if err != nil {
		c.fail(exec, err)
		return
	}
	result, err := c.evaluator.Evaluate(vm, source)
	if err != nil {
		c.fail(exec, err)
		return
	}

	then, ok, err := thenable(result)
	switch {
	case err != nil:
		c.fail(exec, err)
	case ok:
		exec.state.Store(int32(StateAwaitingAsync))
		c.await(vm, exec, result, then)
	default:
		c.logResult(result)
		c.end(exec, nil)
	}
}

// thenable reports whether v has a callable then, which is how both native
// promises and promise-like objects are recognised.
func thenable(v goja.Value) (then goja.Callable, ok bool, err error) {
	o, isObject := v.(*goja.Object)
	if !isObject {
		return nil, false, nil
	}
	defer func() {
		if r := recover(); r != nil {
			then, ok, err = nil, false, recoveredError(r)
		}
	}()
	then, ok = goja.AssertFunction(o.Get("then"))
	return then, ok, nil
}

func (c *Controller) await(vm *goja.Runtime, exec *Execution, result goja.Value, then goja.Callable) {
	onFulfilled := func(call goja.FunctionCall) goja.Value {
		if !c.current(exec) {
			c.logger.Debug("ignoring late fulfillment")
			return goja.Undefined()
		}
		c.logResult(call.Argument(0))
		c.end(exec, nil)
		return goja.Undefined()
	}
	onRejected := func(call goja.FunctionCall) goja.Value {
		if !c.current(exec) {
			c.logger.Debug("ignoring late rejection")
			return goja.Undefined()
		}
		c.fail(exec, &ExecutionError{Kind: ErrAsyncRejection, Message: thrownMessage(call.Argument(0))})
		return goja.Undefined()
	}
	if _, err := then(result, vm.ToValue(onFulfilled), vm.ToValue(onRejected)); err != nil {
		c.fail(exec, executionError(err))
	}
}

// logResult appends the result line, and an inspector entry for objects.
func (c *Controller) logResult(v goja.Value) {
	if v == nil || goja.IsUndefined(v) {
		return
	}
	var entries []InspectorEntry
	if inspect.IsObject(v) {
		entries = append(entries, newEntry(c.now(), v, LabelResult))
	}
	c.output.Append(ResultMarker+inspect.Serialize(v), entries...)
}

// fail reports err and ends the run.
func (c *Controller) fail(exec *Execution, err error) {
	if !c.current(exec) {
		return
	}
	c.report(err)
	c.end(exec, err)
}

func (c *Controller) report(err error) {
	msg := err.Error()
	var execErr *ExecutionError
	if errors.As(err, &execErr) && execErr.Message != "" {
		msg = execErr.Message
	}
	c.output.Append(ErrorMarker + msg)
	c.output.FocusConsole()
}

func (c *Controller) current(exec *Execution) bool {
	return c.session != nil && c.session.exec == exec
}

// end tears down exec's session, if it is still the live one, and marks exec
// done. Runs on the loop.
func (c *Controller) end(exec *Execution, err error) {
	if c.current(exec) {
		c.session.stopTimer()
		c.interceptor.Restore()
		c.session = nil
	}
	exec.finish(err)
}

// Close interrupts a running snippet and ends its session.
func (c *Controller) Close() error {
	c.rt.Interrupt(ErrCanceled)
	err := c.rt.TryRunOnLoopSync(func(vm *goja.Runtime) error {
		if c.session != nil {
			c.end(c.session.exec, &ExecutionError{Kind: ErrCanceled, Message: "controller closed"})
		}
		vm.ClearInterrupt()
		return nil
	})
	if errors.Is(err, ErrRuntimeStopped) {
		return nil
	}
	return err
}

// Output returns the output store.
func (c *Controller) Output() *Output {
	return c.output
}

// ConsoleOutput returns the console lines of the latest run.
func (c *Controller) ConsoleOutput() []string {
	return c.output.Lines()
}

// InspectorObjects returns the inspector entries of the latest run.
func (c *Controller) InspectorObjects() []InspectorEntry {
	return c.output.Entries()
}

// ClearConsole empties both output sequences.
func (c *Controller) ClearConsole() {
	c.output.Clear()
}

// SetConsoleTab registers the callback invoked with TabConsole when an error
// is reported. The last registration wins; nil removes it.
func (c *Controller) SetConsoleTab(fn func(Tab)) {
	c.output.SetConsoleTab(fn)
}

// Subscribe registers fn for output change notifications.
func (c *Controller) Subscribe(fn func(Event)) (unsubscribe func()) {
	return c.output.Subscribe(fn)
}

// Inspect builds the one-level preview of an inspector entry.
func (c *Controller) Inspect(id string) (inspect.ObjectPreviewData, error) {
	entry, ok := c.output.Entry(id)
	if !ok {
		return inspect.ObjectPreviewData{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	var preview inspect.ObjectPreviewData
	err := c.rt.TryRunOnLoopSync(func(*goja.Runtime) error {
		preview = inspect.Preview(entry.Data)
		return nil
	})
	return preview, err
}

// InspectTree renders an inspector entry expanded to depth levels.
func (c *Controller) InspectTree(id string, depth int) (string, error) {
	entry, ok := c.output.Entry(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	var tree string
	err := c.rt.TryRunOnLoopSync(func(*goja.Runtime) error {
		tree = inspect.Render(entry.Label, entry.Data, depth)
		return nil
	})
	return tree, err
}

func recoveredError(r any) error {
	if err, ok := r.(error); ok {
		return executionError(err)
	}
	return &ExecutionError{Kind: ErrExecution, Message: fmt.Sprint(r)}
}
