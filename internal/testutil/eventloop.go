package testutil

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
)

// TestLoop is a bare running event loop for testing builtins without a full
// scripting runtime.
type TestLoop struct {
	loop     *eventloop.EventLoop
	registry *require.Registry
}

// NewTestLoop starts an event loop that is stopped when the test ends.
func NewTestLoop(t testing.TB) *TestLoop {
	t.Helper()
	registry := require.NewRegistry()
	loop := eventloop.NewEventLoop(eventloop.WithRegistry(registry))
	loop.Start()
	t.Cleanup(func() { loop.Stop() })
	return &TestLoop{loop: loop, registry: registry}
}

// Registry returns the loop's module registry.
func (l *TestLoop) Registry() *require.Registry { return l.registry }

// RunOnLoop schedules fn on the loop.
func (l *TestLoop) RunOnLoop(fn func(*goja.Runtime)) bool {
	return l.loop.RunOnLoop(fn)
}

// Do runs fn on the loop and waits for it to return.
func (l *TestLoop) Do(t testing.TB, fn func(*goja.Runtime)) {
	t.Helper()
	done := make(chan struct{})
	if !l.loop.RunOnLoop(func(vm *goja.Runtime) {
		defer close(done)
		fn(vm)
	}) {
		t.Fatal("event loop is not running")
	}
	<-done
}
