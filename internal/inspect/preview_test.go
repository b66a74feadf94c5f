package inspect

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview_ArrayProperty(t *testing.T) {
	vm := goja.New()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("array preview shows min(n,3) items", prop.ForAll(
		func(n int) bool {
			v, err := vm.RunString(fmt.Sprintf(`Array.from({length: %d}, (_, i) => i * 2)`, n))
			if err != nil {
				return false
			}
			p := Preview(v)
			if p.Kind != PreviewArray || p.Size == nil || *p.Size != n {
				return false
			}
			if len(p.Items) != min(n, MaxArrayItems) || p.HasMore != (n > MaxArrayItems) {
				return false
			}
			for i, item := range p.Items {
				if item.Key != fmt.Sprint(i) || item.Value.DisplayValue != fmt.Sprint(i*2) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}

func TestPreview_ObjectProperty(t *testing.T) {
	vm := goja.New()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("object preview shows min(k,5) keys in order", prop.ForAll(
		func(k int) bool {
			var sb strings.Builder
			sb.WriteString("({")
			for i := range k {
				fmt.Fprintf(&sb, "key%d: %d,", i, i)
			}
			sb.WriteString("})")
			v, err := vm.RunString(sb.String())
			if err != nil {
				return false
			}
			p := Preview(v)
			if p.Kind != PreviewObject || p.Size == nil || *p.Size != k {
				return false
			}
			if len(p.Items) != min(k, MaxObjectKeys) || p.HasMore != (k > MaxObjectKeys) {
				return false
			}
			for i, item := range p.Items {
				if !item.HasKey || item.Key != fmt.Sprintf("key%d", i) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 30),
	))

	properties.TestingRun(t)
}

func TestPreview_Primitive(t *testing.T) {
	t.Parallel()
	vm := goja.New()

	for _, src := range []string{`5`, `"x"`, `null`, `undefined`, `(function named() {})`} {
		p := Preview(eval(t, vm, src))
		assert.Equal(t, PreviewPrimitive, p.Kind, src)
		assert.Nil(t, p.Size, src)
		require.Len(t, p.Items, 1, src)
		assert.False(t, p.Items[0].HasKey, src)
		assert.False(t, p.HasMore, src)
	}

	p := Preview(nil)
	assert.Equal(t, PreviewPrimitive, p.Kind)
	assert.Equal(t, "undefined", p.Items[0].Value.DisplayValue)
}

func TestPreview_ThrowingGetter(t *testing.T) {
	t.Parallel()
	vm := goja.New()
	v := eval(t, vm, `({a: 1, get b() { throw new Error("nope") }})`)

	var p ObjectPreviewData
	require.NotPanics(t, func() { p = Preview(v) })
	require.Len(t, p.Items, 2)
	assert.Equal(t, "1", p.Items[0].Value.DisplayValue)
	assert.Equal(t, "undefined", p.Items[1].Value.DisplayValue)
}

func TestSummary(t *testing.T) {
	t.Parallel()
	vm := goja.New()

	for src, want := range map[string]string{
		`[1, 2, 3, 4]`:                           `Array(4) [1, 2, 3, …]`,
		`["a", "b"]`:                             `Array(2) ["a", "b"]`,
		`[]`:                                     `[]`,
		`({})`:                                   `{}`,
		`({a: 1, b: "x"})`:                       `Object { a: 1, b: "x" }`,
		`({a: 1, b: 2, c: 3, d: 4, e: 5, f: 6})`: `Object { a: 1, b: 2, c: 3, d: 4, e: 5, … }`,
		`({list: [1, 2], fn() {}})`:              `Object { list: Array(2), fn: ƒ fn() }`,
		`42`:                                     `42`,
	} {
		assert.Equal(t, want, Summary(Preview(eval(t, vm, src))), src)
	}
}

func TestEntries(t *testing.T) {
	t.Parallel()
	vm := goja.New()

	entries, total := Entries(eval(t, vm, `[10, 20, 30, 40]`), 2)
	assert.Equal(t, 4, total)
	require.Len(t, entries, 2)
	assert.Equal(t, "0", entries[0].Key)
	assert.Equal(t, int64(20), entries[1].Value.ToInteger())

	entries, total = Entries(eval(t, vm, `({x: 1, y: 2})`), 0)
	assert.Equal(t, 2, total)
	require.Len(t, entries, 2)
	assert.Equal(t, "y", entries[1].Key)

	entries, total = Entries(eval(t, vm, `"primitive"`), 0)
	assert.Empty(t, entries)
	assert.Zero(t, total)
}

func TestRender(t *testing.T) {
	t.Parallel()
	vm := goja.New()

	got := Render("Result", eval(t, vm, `({a: 1, b: [1, 2]})`), 2)
	assert.Equal(t, strings.Join([]string{
		"▾ Result: Object { a: 1, b: Array(2) }",
		"    a: 1",
		"  ▾ b: Array(2) [1, 2]",
		"      0: 1",
		"      1: 2",
	}, "\n"), got)

	got = Render("", eval(t, vm, `({a: {b: 1}})`), 0)
	assert.Equal(t, "▸ Object { a: Object { ... } }", got)
}

func TestRender_Circular(t *testing.T) {
	t.Parallel()
	vm := goja.New()
	v := eval(t, vm, `const o = {name: "loop"}; o.self = o; o`)

	got := Render("o", v, 5)
	assert.Equal(t, strings.Join([]string{
		`▾ o: Object { name: "loop", self: Object { ... } }`,
		`    name: "loop"`,
		`  ▸ self: [Circular Reference]`,
	}, "\n"), got)
}
