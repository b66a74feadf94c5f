// Package inspect turns arbitrary goja values into bounded, display-safe text.
//
// Every entry point is total: values reached through throwing getters, Proxy
// traps or exotic host objects degrade to a simpler rendering instead of
// panicking. None of the functions here are safe to call off the goroutine
// that owns the goja.Runtime the values belong to.
package inspect

import (
	"math/big"
	"reflect"

	"github.com/dop251/goja"
)

// Kind is the closed set of value shapes the formatter, preview builder and
// serializer dispatch on.
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindBigInt
	KindString
	KindSymbol
	KindFunction
	KindArray
	KindDate
	KindError
	KindRegExp
	KindPromise
	KindResponse
	KindHeaders
	KindObject
)

var kindNames = [...]string{
	KindUndefined: "undefined",
	KindNull:      "null",
	KindBool:      "boolean",
	KindNumber:    "number",
	KindBigInt:    "bigint",
	KindString:    "string",
	KindSymbol:    "symbol",
	KindFunction:  "function",
	KindArray:     "array",
	KindDate:      "date",
	KindError:     "error",
	KindRegExp:    "regexp",
	KindPromise:   "promise",
	KindResponse:  "response",
	KindHeaders:   "headers",
	KindObject:    "object",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "object"
}

// Tag is the type tag exposed in ValuePreviewData. Host object kinds that have
// no dedicated preview collapse to "object".
func (k Kind) Tag() string {
	switch k {
	case KindPromise, KindResponse, KindHeaders:
		return "object"
	}
	return k.String()
}

// IsContainer reports whether values of this kind are objects with
// enumerable structure (typeof "object", excluding null).
func (k Kind) IsContainer() bool {
	switch k {
	case KindArray, KindDate, KindError, KindRegExp, KindPromise, KindResponse, KindHeaders, KindObject:
		return true
	}
	return false
}

var promiseType = reflect.TypeOf((*goja.Promise)(nil))

// Classify maps v onto a Kind. A nil Value is treated as undefined.
func Classify(v goja.Value) (kind Kind) {
	defer func() {
		if recover() != nil {
			kind = KindObject
		}
	}()
	if v == nil || goja.IsUndefined(v) {
		return KindUndefined
	}
	if goja.IsNull(v) {
		return KindNull
	}
	switch v := v.(type) {
	case *goja.Symbol:
		return KindSymbol
	case *goja.Object:
		return classifyObject(v)
	}
	switch v.Export().(type) {
	case bool:
		return KindBool
	case int64, float64:
		return KindNumber
	case *big.Int:
		return KindBigInt
	}
	return KindString
}

func classifyObject(o *goja.Object) Kind {
	if _, ok := goja.AssertFunction(o); ok {
		return KindFunction
	}
	switch o.ClassName() {
	case "Array":
		return KindArray
	case "Date":
		return KindDate
	case "Error":
		return KindError
	case "RegExp":
		return KindRegExp
	case "Promise":
		return KindPromise
	}
	if o.ExportType() == promiseType {
		return KindPromise
	}
	if tag, ok := toStringTag(o); ok {
		switch tag {
		case "Response":
			return KindResponse
		case "Headers":
			return KindHeaders
		case "Promise":
			return KindPromise
		}
	}
	return KindObject
}

// IsObject reports whether v is a non-null object that is not callable, i.e.
// what a script would see as typeof "object".
func IsObject(v goja.Value) bool {
	k := Classify(v)
	return k.IsContainer()
}

func toStringTag(o *goja.Object) (tag string, ok bool) {
	defer func() {
		if recover() != nil {
			tag, ok = "", false
		}
	}()
	v := o.GetSymbol(goja.SymToStringTag)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "", false
	}
	return v.String(), true
}

// get reads a property, reporting false when the read threw.
func get(o *goja.Object, key string) (v goja.Value, ok bool) {
	defer func() {
		if recover() != nil {
			v, ok = nil, false
		}
	}()
	v = o.Get(key)
	if v == nil {
		v = goja.Undefined()
	}
	return v, true
}

// keys lists own enumerable string keys, reporting false when enumeration
// threw (e.g. a Proxy ownKeys trap).
func keys(o *goja.Object) (ks []string, ok bool) {
	defer func() {
		if recover() != nil {
			ks, ok = nil, false
		}
	}()
	return o.Keys(), true
}

// str string-coerces v the way String(v) would, reporting false when the
// conversion threw.
func str(v goja.Value) (s string, ok bool) {
	defer func() {
		if recover() != nil {
			s, ok = "", false
		}
	}()
	if v == nil {
		return "undefined", true
	}
	if sym, ok := v.(*goja.Symbol); ok {
		return "Symbol(" + sym.String() + ")", true
	}
	return v.String(), true
}

// call invokes o[name](args...) with o as the receiver.
func call(o *goja.Object, name string, args ...goja.Value) (goja.Value, bool) {
	fv, ok := get(o, name)
	if !ok {
		return nil, false
	}
	fn, ok := goja.AssertFunction(fv)
	if !ok {
		return nil, false
	}
	var (
		res goja.Value
		err error
	)
	if !try(func() { res, err = fn(o, args...) }) || err != nil {
		return nil, false
	}
	if res == nil {
		res = goja.Undefined()
	}
	return res, true
}

func try(fn func()) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	fn()
	return true
}

// arrayLength returns the length property of an array-like object.
func arrayLength(o *goja.Object) (int64, bool) {
	v, ok := get(o, "length")
	if !ok {
		return 0, false
	}
	var n int64
	if !try(func() { n = v.ToInteger() }) || n < 0 {
		return 0, false
	}
	return n, true
}

// stringProp reads key and coerces it to a string; missing values yield "".
func stringProp(o *goja.Object, key string) string {
	v, ok := get(o, key)
	if !ok || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	s, _ := str(v)
	return s
}

// functionName returns the function's name property, or "anonymous".
func functionName(o *goja.Object) string {
	if name := stringProp(o, "name"); name != "" {
		return name
	}
	return "anonymous"
}

// isoDate renders a Date object via toISOString, which throws for invalid
// dates.
func isoDate(o *goja.Object) string {
	v, ok := call(o, "toISOString")
	if !ok {
		return "Invalid Date"
	}
	s, ok := str(v)
	if !ok {
		return "Invalid Date"
	}
	return s
}
