// Package text provides the "snip:text" native module: display-width aware
// string helpers and Go text/template rendering for snippets.
package text

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/dop251/goja"
	"github.com/rivo/uniseg"
)

// Require is the module loader for the text module.
//
// API (JS):
//
//	const text = require('snip:text');
//	text.width("你好");                          // 4
//	text.truncate("Long string", 5);             // "Lo..."
//	text.pad("ab", 4);                           // "ab  "
//	text.render("Hi {{.name | up}}", {name: "x"}, {up: s => s.toUpperCase()});
func Require(vm *goja.Runtime, module *goja.Object) {
	exports := vm.NewObject()
	_ = module.Set("exports", exports)

	_ = exports.Set("width", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(uniseg.StringWidth(stringArg(call, 0)))
	})

	_ = exports.Set("truncate", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			panic(vm.NewTypeError("truncate requires a string and a width"))
		}
		tail := "..."
		if len(call.Arguments) > 2 {
			tail = call.Argument(2).String()
		}
		return vm.ToValue(Truncate(call.Argument(0).String(), int(call.Argument(1).ToInteger()), tail))
	})

	_ = exports.Set("pad", func(call goja.FunctionCall) goja.Value {
		s := stringArg(call, 0)
		if n := int(call.Argument(1).ToInteger()) - uniseg.StringWidth(s); n > 0 {
			s += strings.Repeat(" ", n)
		}
		return vm.ToValue(s)
	})

	_ = exports.Set("render", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(vm.NewTypeError("render requires template text"))
		}
		tmpl := template.New("snippet")
		if fns := call.Argument(2); !goja.IsUndefined(fns) && !goja.IsNull(fns) {
			tmpl = tmpl.Funcs(funcMap(vm, fns.ToObject(vm)))
		}
		if _, err := tmpl.Parse(call.Argument(0).String()); err != nil {
			panic(vm.NewGoError(err))
		}
		var data any
		if len(call.Arguments) > 1 {
			data = call.Argument(1).Export()
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			panic(vm.NewGoError(err))
		}
		return vm.ToValue(buf.String())
	})
}

// Truncate shortens s so its display width fits within maxWidth, appending
// tail when anything was cut. A tail wider than maxWidth is returned alone.
func Truncate(s string, maxWidth int, tail string) string {
	if uniseg.StringWidth(s) <= maxWidth {
		return s
	}
	tailWidth := uniseg.StringWidth(tail)
	if tailWidth > maxWidth {
		return tail
	}
	limit := maxWidth - tailWidth

	var sb strings.Builder
	used, state := 0, -1
	for rest := s; rest != ""; {
		var cluster string
		var w int
		cluster, rest, w, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if used+w > limit {
			break
		}
		used += w
		sb.WriteString(cluster)
	}
	sb.WriteString(tail)
	return sb.String()
}

func stringArg(call goja.FunctionCall, i int) string {
	v := call.Argument(i)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

// funcMap exposes JS functions to the template. Non-function values are
// exported as constants.
func funcMap(vm *goja.Runtime, obj *goja.Object) template.FuncMap {
	m := make(template.FuncMap)
	for _, key := range obj.Keys() {
		val := obj.Get(key)
		fn, ok := goja.AssertFunction(val)
		if !ok {
			exported := val.Export()
			m[key] = func() any { return exported }
			continue
		}
		m[key] = func(args ...any) (result any, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%s: %v", key, r)
				}
			}()
			in := make([]goja.Value, len(args))
			for i, a := range args {
				in[i] = vm.ToValue(a)
			}
			out, err := fn(goja.Undefined(), in...)
			if err != nil {
				return nil, err
			}
			return out.Export(), nil
		}
	}
	return m
}
