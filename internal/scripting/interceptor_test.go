package scripting

import (
	"strings"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConsole installs a console whose log and error record their calls.
type fakeConsole struct {
	logs   [][]goja.Value
	errors [][]goja.Value
}

func newFakeConsole(t *testing.T, vm *goja.Runtime) *fakeConsole {
	t.Helper()
	fc := &fakeConsole{}
	c := vm.NewObject()
	require.NoError(t, c.Set("log", func(call goja.FunctionCall) goja.Value {
		fc.logs = append(fc.logs, call.Arguments)
		return goja.Undefined()
	}))
	require.NoError(t, c.Set("error", func(call goja.FunctionCall) goja.Value {
		fc.errors = append(fc.errors, call.Arguments)
		return goja.Undefined()
	}))
	require.NoError(t, vm.Set("console", c))
	_, err := vm.RunString(`globalThis.origLog = console.log; globalThis.origError = console.error`)
	require.NoError(t, err)
	return fc
}

func fixedClock() time.Time { return time.UnixMilli(1000) }

func TestInterceptor_CapturesAndForwards(t *testing.T) {
	t.Parallel()
	vm := goja.New()
	fc := newFakeConsole(t, vm)
	out := NewOutput()
	ic := NewInterceptor(out, nil, fixedClock)

	var tabs []Tab
	out.SetConsoleTab(func(tab Tab) { tabs = append(tabs, tab) })

	require.NoError(t, ic.Install(vm))
	assert.True(t, ic.Installed())

	_, err := vm.RunString(`
		console.log("a", 1, {b: 2}, null, [3]);
		console.error("bad", new Error("e"));
	`)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"a 1 {\n  \"b\": 2\n} null [\n  3\n]",
		ErrorMarker + "bad Error: e",
	}, trimStacks(out.Lines()))
	assert.Equal(t, []Tab{TabConsole}, tabs)

	entries := out.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "", entries[0].Label)
	assert.Equal(t, "", entries[1].Label)
	assert.Equal(t, LabelError, entries[2].Label)
	assert.Equal(t, int64(1000), entries[0].Timestamp)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
	assert.Equal(t, int64(2), entries[0].Data.(*goja.Object).Get("b").ToInteger(), "data is the logged reference")

	require.Len(t, fc.logs, 1)
	assert.Len(t, fc.logs[0], 5)
	require.Len(t, fc.errors, 1)
	assert.Len(t, fc.errors[0], 2)
}

// trimStacks drops the stack trace an Error serializes with from error lines.
func trimStacks(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		if strings.HasPrefix(l, ErrorMarker) {
			l, _, _ = strings.Cut(l, "\n")
		}
		out[i] = l
	}
	return out
}

func TestInterceptor_RestoreIsIdempotent(t *testing.T) {
	t.Parallel()
	vm := goja.New()
	newFakeConsole(t, vm)
	ic := NewInterceptor(NewOutput(), nil, nil)

	ic.Restore()
	require.NoError(t, ic.Install(vm))
	same, err := vm.RunString(`console.log === origLog`)
	require.NoError(t, err)
	assert.False(t, same.ToBoolean())

	ic.Restore()
	ic.Restore()
	assert.False(t, ic.Installed())
	same, err = vm.RunString(`console.log === origLog && console.error === origError`)
	require.NoError(t, err)
	assert.True(t, same.ToBoolean())
}

func TestInterceptor_ReinstallDoesNotNest(t *testing.T) {
	t.Parallel()
	vm := goja.New()
	fc := newFakeConsole(t, vm)
	out := NewOutput()
	ic := NewInterceptor(out, nil, nil)

	for range 3 {
		require.NoError(t, ic.Install(vm))
	}
	_, err := vm.RunString(`console.error("x")`)
	require.NoError(t, err)

	assert.Equal(t, []string{ErrorMarker + "x"}, out.Lines())
	assert.Len(t, fc.errors, 1)

	ic.Restore()
	same, err := vm.RunString(`console.error === origError`)
	require.NoError(t, err)
	assert.True(t, same.ToBoolean(), "one restore returns to the real handler")
}

func TestInterceptor_StaleHookOnlyForwards(t *testing.T) {
	t.Parallel()
	vm := goja.New()
	fc := newFakeConsole(t, vm)
	out := NewOutput()
	ic := NewInterceptor(out, nil, nil)

	require.NoError(t, ic.Install(vm))
	_, err := vm.RunString(`globalThis.kept = console.log; console.log("captured")`)
	require.NoError(t, err)
	ic.Restore()

	_, err = vm.RunString(`kept("late")`)
	require.NoError(t, err)
	assert.Equal(t, []string{"captured"}, out.Lines())
	assert.Len(t, fc.logs, 2)

	// a hook from an earlier session stays inert after a new install
	require.NoError(t, ic.Install(vm))
	_, err = vm.RunString(`kept("older")`)
	require.NoError(t, err)
	assert.Equal(t, []string{"captured"}, out.Lines())
	assert.Len(t, fc.logs, 3)
}

func TestInterceptor_MissingConsole(t *testing.T) {
	t.Parallel()
	vm := goja.New()
	ic := NewInterceptor(NewOutput(), nil, nil)
	assert.Error(t, ic.Install(vm))
	assert.False(t, ic.Installed())
}

func TestInterceptor_ThrowingOriginal(t *testing.T) {
	t.Parallel()
	vm := goja.New()
	_, err := vm.RunString(`globalThis.console = {log() { throw new Error("broken") }, error() {}}`)
	require.NoError(t, err)
	out := NewOutput()
	ic := NewInterceptor(out, nil, nil)
	require.NoError(t, ic.Install(vm))

	_, err = vm.RunString(`console.log("still captured")`)
	require.NoError(t, err)
	assert.Equal(t, []string{"still captured"}, out.Lines())
}
