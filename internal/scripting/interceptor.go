package scripting

import (
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/snipbox/internal/inspect"
)

// Interceptor hooks console.log and console.error for the duration of one
// run. Captured calls become Output lines and inspector entries, then reach
// the original handlers unchanged.
//
// Install and Restore must run on the event loop.
type Interceptor struct {
	output *Output
	logger *slog.Logger
	now    func() time.Time

	installed  atomic.Bool
	generation uint64
	target     *goja.Object
	origLog    goja.Value
	origError  goja.Value
}

// NewInterceptor returns an Interceptor that records into output.
func NewInterceptor(output *Output, logger *slog.Logger, now func() time.Time) *Interceptor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if now == nil {
		now = time.Now
	}
	return &Interceptor{output: output, logger: logger, now: now}
}

// Installed reports whether the hooks are in place. Safe from any goroutine.
func (ic *Interceptor) Installed() bool {
	return ic.installed.Load()
}

// Install snapshots the current console.log and console.error and replaces
// them with capturing hooks. If hooks are already installed they are
// restored first, so hooks never wrap hooks.
func (ic *Interceptor) Install(vm *goja.Runtime) error {
	if ic.installed.Load() {
		ic.Restore()
	}
	target, ok := vm.Get("console").(*goja.Object)
	if !ok {
		return errors.New("console is not an object")
	}

	ic.generation++
	gen := ic.generation
	ic.target = target
	ic.origLog = target.Get("log")
	ic.origError = target.Get("error")

	if err := target.Set("log", ic.hook(gen, false, ic.origLog)); err != nil {
		return err
	}
	if err := target.Set("error", ic.hook(gen, true, ic.origError)); err != nil {
		_ = target.Set("log", ic.origLog)
		return err
	}
	ic.installed.Store(true)
	return nil
}

// Restore reinstates the snapshotted handlers. It is idempotent.
func (ic *Interceptor) Restore() {
	if !ic.installed.Swap(false) {
		return
	}
	if err := ic.target.Set("log", ic.origLog); err != nil {
		ic.logger.Warn("restore console.log failed", slog.Any("error", err))
	}
	if err := ic.target.Set("error", ic.origError); err != nil {
		ic.logger.Warn("restore console.error failed", slog.Any("error", err))
	}
	ic.target, ic.origLog, ic.origError = nil, nil, nil
}

// hook returns the replacement for one console method. A hook outliving its
// session (a snippet may keep a reference to console.log) only forwards.
func (ic *Interceptor) hook(gen uint64, isError bool, original goja.Value) func(goja.FunctionCall) goja.Value {
	forward, _ := goja.AssertFunction(original)
	return func(call goja.FunctionCall) goja.Value {
		if ic.installed.Load() && ic.generation == gen {
			ic.capture(isError, call.Arguments)
		}
		if forward != nil {
			if _, err := forward(call.This, call.Arguments...); err != nil {
				ic.logger.Debug("original console handler failed", slog.Any("error", err))
			}
		}
		return goja.Undefined()
	}
}

func (ic *Interceptor) capture(isError bool, args []goja.Value) {
	label := ""
	if isError {
		label = LabelError
	}
	parts := make([]string, len(args))
	var entries []InspectorEntry
	for i, arg := range args {
		parts[i] = inspect.Serialize(arg)
		if inspect.IsObject(arg) {
			entries = append(entries, newEntry(ic.now(), arg, label))
		}
	}
	line := strings.Join(parts, " ")
	if isError {
		line = ErrorMarker + line
	}
	ic.output.Append(line, entries...)
	if isError {
		ic.output.FocusConsole()
	}
}

func newEntry(now time.Time, v goja.Value, label string) InspectorEntry {
	return InspectorEntry{
		ID:        newEntryID(now),
		Timestamp: now.UnixMilli(),
		Data:      v,
		Label:     label,
	}
}
