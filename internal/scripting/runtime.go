package scripting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/snipbox/internal/goroutineid"
)

// Runtime owns the goja VM and the event loop that serializes every access
// to it. Snippet evaluation, promise continuations, timers and inspection all
// run as loop jobs.
//
//   - goja.Runtime is NOT goroutine-safe; all access MUST happen via RunOnLoop
//   - Promise resolve/reject MUST happen on the event loop goroutine
//   - The global console is the host console, writing to the HostLogger
//
// Usage:
//
//	rt, err := NewRuntime(ctx)
//	if err != nil { ... }
//	defer rt.Close()
//
//	err = rt.RunOnLoopSync(func(vm *goja.Runtime) error {
//	    _, err := vm.RunString("console.log('hello')")
//	    return err
//	})
type Runtime struct {
	loop     *eventloop.EventLoop
	registry *require.Registry
	logger   *HostLogger

	// timeout is the maximum duration to wait for RunOnLoopSync operations.
	timeout time.Duration

	// vm is captured on the loop at startup. Only Interrupt and direct
	// execution in TryRunOnLoopSync touch it outside a loop job.
	vm atomic.Pointer[goja.Runtime]

	// eventLoopGoroutineID is captured at initialization for deadlock prevention.
	eventLoopGoroutineID atomic.Int64

	mu      sync.RWMutex
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
}

// DefaultSyncTimeout is the maximum duration to wait for RunOnLoopSync operations.
const DefaultSyncTimeout = 5 * time.Second

// consoleModule is the require name of the host console.
const consoleModule = "snipbox:console"

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithHostLogger sets the logger that receives host console output and
// runtime diagnostics. By default a private logger is created.
func WithHostLogger(l *HostLogger) RuntimeOption {
	return func(rt *Runtime) { rt.logger = l }
}

// WithSyncTimeout overrides DefaultSyncTimeout. Zero disables the timeout.
func WithSyncTimeout(d time.Duration) RuntimeOption {
	return func(rt *Runtime) { rt.timeout = d }
}

// NewRuntime creates a new Runtime with a started event loop. The runtime
// closes itself when ctx is canceled.
func NewRuntime(ctx context.Context, opts ...RuntimeOption) (*Runtime, error) {
	return NewRuntimeWithRegistry(ctx, nil, opts...)
}

// NewRuntimeWithRegistry creates a new Runtime with an existing
// require.Registry. If registry is nil, a new one is created.
func NewRuntimeWithRegistry(ctx context.Context, registry *require.Registry, opts ...RuntimeOption) (*Runtime, error) {
	if registry == nil {
		registry = require.NewRegistry()
	}

	childCtx, cancel := context.WithCancel(context.Background())
	rt := &Runtime{
		registry: registry,
		ctx:      childCtx,
		cancel:   cancel,
		timeout:  DefaultSyncTimeout,
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.logger == nil {
		rt.logger = NewHostLogger(nil, slog.LevelInfo, 0)
	}

	registry.RegisterNativeModule(consoleModule, console.RequireWithPrinter(newConsolePrinter(rt.logger)))

	rt.loop = eventloop.NewEventLoop(
		eventloop.WithRegistry(registry),
		eventloop.EnableConsole(false),
	)
	rt.loop.Start()
	rt.mu.Lock()
	rt.started = true
	rt.mu.Unlock()

	errCh := make(chan error, 1)
	ok := rt.loop.RunOnLoop(func(vm *goja.Runtime) {
		rt.eventLoopGoroutineID.Store(goroutineid.Get())
		rt.vm.Store(vm)
		errCh <- installConsole(vm)
	})
	if !ok {
		cancel()
		return nil, errors.New("failed to initialize: event loop not running")
	}
	if err := <-errCh; err != nil {
		cancel()
		rt.loop.Stop()
		return nil, fmt.Errorf("failed to initialize runtime: %w", err)
	}

	if ctx.Done() != nil {
		context.AfterFunc(ctx, func() {
			_ = rt.Close()
		})
	}

	return rt, nil
}

func installConsole(vm *goja.Runtime) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("console: %v", r)
		}
	}()
	return vm.Set("console", require.Require(vm, consoleModule))
}

// Registry returns the require.Registry for module registration.
func (rt *Runtime) Registry() *require.Registry {
	return rt.registry
}

// Logger returns the host logger.
func (rt *Runtime) Logger() *HostLogger {
	return rt.logger
}

// Close interrupts any running script, stops the event loop and releases
// resources. It's safe to call multiple times, but not from the loop.
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	if rt.stopped {
		rt.mu.Unlock()
		return nil
	}
	rt.stopped = true
	rt.mu.Unlock()

	rt.Interrupt(ErrRuntimeStopped)
	rt.cancel()
	rt.loop.Stop()
	return nil
}

// Done returns a channel that is closed when the runtime is stopped.
func (rt *Runtime) Done() <-chan struct{} {
	return rt.ctx.Done()
}

// IsRunning returns true if the runtime is running (started and not stopped).
func (rt *Runtime) IsRunning() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.started && !rt.stopped
}

// SetTimeout sets the timeout for RunOnLoopSync operations.
// Pass 0 to disable timeout.
func (rt *Runtime) SetTimeout(timeout time.Duration) {
	rt.mu.Lock()
	rt.timeout = timeout
	rt.mu.Unlock()
}

// GetTimeout returns the current timeout duration.
func (rt *Runtime) GetTimeout() time.Duration {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.timeout
}

// Interrupt aborts the script currently executing on the loop, if any. The
// flag stays set until the next ClearInterrupt, which the controller issues
// at the start of each run. Safe to call from any goroutine.
func (rt *Runtime) Interrupt(reason any) {
	if vm := rt.vm.Load(); vm != nil {
		vm.Interrupt(reason)
	}
}

// AfterFunc schedules fn on the loop after d. The returned stop function
// cancels it if it has not run yet.
func (rt *Runtime) AfterFunc(d time.Duration, fn func(*goja.Runtime)) (stop func()) {
	timer := rt.loop.SetTimeout(fn, d)
	return func() {
		rt.loop.ClearTimeout(timer)
	}
}

// RunOnLoop schedules a function to run on the event loop goroutine.
// Returns false if the event loop is not running.
//
// The goja.Runtime passed to the callback must not be used outside the callback.
func (rt *Runtime) RunOnLoop(fn func(*goja.Runtime)) bool {
	rt.mu.RLock()
	if !rt.started || rt.stopped {
		rt.mu.RUnlock()
		return false
	}
	rt.mu.RUnlock()

	return rt.loop.RunOnLoop(fn)
}

// RunOnLoopSync schedules a function on the event loop and waits for completion.
// Returns an error wrapping ErrRuntimeStopped if the event loop is not
// running or stops while waiting.
func (rt *Runtime) RunOnLoopSync(fn func(*goja.Runtime) error) error {
	rt.mu.RLock()
	if !rt.started || rt.stopped {
		rt.mu.RUnlock()
		return fmt.Errorf("event loop not running: %w", ErrRuntimeStopped)
	}
	timeout := rt.timeout
	rt.mu.RUnlock()

	errCh := make(chan error, 1)
	ok := rt.loop.RunOnLoop(func(vm *goja.Runtime) {
		errCh <- fn(vm)
	})
	if !ok {
		return fmt.Errorf("event loop not running: %w", ErrRuntimeStopped)
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case err := <-errCh:
		return err
	case <-rt.Done():
		return fmt.Errorf("runtime stopped before completion: %w", ErrRuntimeStopped)
	case <-expired:
		return fmt.Errorf("operation timed out after %v", timeout)
	}
}

// TryRunOnLoopSync runs fn directly when called on the event loop goroutine
// (for example from an Output subscriber notified during a run), and
// otherwise behaves like RunOnLoopSync.
func (rt *Runtime) TryRunOnLoopSync(fn func(*goja.Runtime) error) error {
	rt.mu.RLock()
	if !rt.started || rt.stopped {
		rt.mu.RUnlock()
		return fmt.Errorf("event loop not running: %w", ErrRuntimeStopped)
	}
	rt.mu.RUnlock()

	if id := rt.eventLoopGoroutineID.Load(); id > 0 && goroutineid.Get() == id {
		return fn(rt.vm.Load())
	}
	return rt.RunOnLoopSync(fn)
}
