package inspect

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-utilpkg/jsonenc"
)

const (
	// CircularMarker replaces any reference to an object that was already
	// serialized earlier in the same call.
	CircularMarker = "[Circular Reference]"

	// MaxSerializedBytes bounds the structured rendering. Larger graphs fall
	// back to [Array(n)] or the shallow Object { ... } listing.
	MaxSerializedBytes = 1 << 20

	// MaxFallbackKeys bounds the properties listed by the shallow fallback
	// rendering.
	MaxFallbackKeys = 10

	indentUnit = "  "
)

var errUnserializable = errors.New("inspect: value cannot be serialized")

// Serialize renders v as human-readable text. It terminates on cyclic graphs,
// never panics, and always returns something displayable:
//
//   - null and undefined render as their literals;
//   - other primitives and functions are string-coerced;
//   - Response, Headers, Error, Promise, Date and RegExp objects use fixed
//     templates;
//   - arrays and objects render as indented JSON, with nested special
//     objects embedded as their template text and every repeated reference
//     replaced by CircularMarker;
//   - arrays that cannot be rendered, or whose rendering would exceed
//     MaxSerializedBytes, fall back to [Array(n)], other objects to a
//     shallow Object { ... } listing.
func Serialize(v goja.Value) (out string) {
	kind := Classify(v)
	defer func() {
		if recover() != nil {
			out = fallback(kind, v)
		}
	}()
	switch kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool, KindNumber, KindBigInt, KindString, KindSymbol, KindFunction:
		if s, ok := str(v); ok {
			return s
		}
		if kind == KindFunction {
			return "[Function]"
		}
		return kind.String()
	}
	o := v.(*goja.Object)
	if s, ok := special(kind, o); ok {
		return s
	}
	w := walker{seen: make(map[*goja.Object]struct{})}
	s, omit, err := w.value("", v, "")
	if err != nil {
		return fallback(kind, v)
	}
	if omit {
		return "undefined"
	}
	return s
}

func fallback(kind Kind, v goja.Value) (out string) {
	defer func() {
		if recover() != nil {
			out = "Object { ... }"
		}
	}()
	o, ok := v.(*goja.Object)
	if !ok {
		return kind.String()
	}
	if kind == KindArray {
		n, _ := arrayLength(o)
		return "[Array(" + strconv.FormatInt(n, 10) + ")]"
	}
	return shallowDump(o)
}

// shallowDump lists up to MaxFallbackKeys own keys without recursing.
func shallowDump(o *goja.Object) string {
	ks, ok := keys(o)
	if !ok {
		return "Object { ... }"
	}
	if len(ks) == 0 {
		return "Object {}"
	}
	var sb strings.Builder
	sb.WriteString("Object { ")
	for i, k := range ks {
		if i == MaxFallbackKeys {
			sb.WriteString(", ... ")
			sb.WriteString(strconv.Itoa(len(ks) - MaxFallbackKeys))
			sb.WriteString(" more")
			break
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(shallowValue(o, k))
	}
	sb.WriteString(" }")
	return sb.String()
}

func shallowValue(o *goja.Object, key string) string {
	v, ok := get(o, key)
	if !ok {
		return "[Unavailable]"
	}
	switch kind := Classify(v); {
	case kind == KindFunction:
		return "[Function]"
	case kind.IsContainer():
		return "[Object]"
	}
	if s, ok := str(v); ok {
		return s
	}
	return "[Unavailable]"
}

// special renders the fixed templates for recognised host and built-in
// object kinds.
func special(kind Kind, o *goja.Object) (string, bool) {
	switch kind {
	case KindResponse:
		return responseTemplate(o), true
	case KindHeaders:
		return headersTemplate(o), true
	case KindError:
		return errorTemplate(o), true
	case KindPromise:
		return promiseTemplate(o), true
	case KindDate:
		return isoDate(o), true
	case KindRegExp:
		if s, ok := str(o); ok {
			return s, true
		}
		return "/(?:)/", true
	}
	return "", false
}

func responseTemplate(o *goja.Object) string {
	var sb strings.Builder
	sb.WriteString("Response {")
	for i, field := range [...]string{"status", "statusText", "ok", "redirected", "type", "url"} {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("\n" + indentUnit + field + ": ")
		sb.WriteString(scalar(o, field))
	}
	sb.WriteString("\n}")
	return sb.String()
}

// scalar renders a template field: strings quoted, everything else coerced.
func scalar(o *goja.Object, key string) string {
	v, ok := get(o, key)
	if !ok {
		return "[Unavailable]"
	}
	if Classify(v) == KindString {
		s, _ := str(v)
		return string(appendQuoted(nil, s))
	}
	s, ok := str(v)
	if !ok {
		return "[Unavailable]"
	}
	return s
}

func headersTemplate(o *goja.Object) string {
	pairs, ok := headerPairs(o)
	if !ok {
		ks, _ := keys(o)
		pairs = make([][2]string, 0, len(ks))
		for _, k := range ks {
			pairs = append(pairs, [2]string{k, stringProp(o, k)})
		}
	}
	if len(pairs) == 0 {
		return "Headers {}"
	}
	var sb strings.Builder
	sb.WriteString("Headers {")
	for i, kv := range pairs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("\n" + indentUnit)
		sb.Write(appendQuoted(nil, kv[0]))
		sb.WriteString(": ")
		sb.Write(appendQuoted(nil, kv[1]))
	}
	sb.WriteString("\n}")
	return sb.String()
}

// headerPairs drains headers.entries(), which yields [name, value] arrays.
func headerPairs(o *goja.Object) ([][2]string, bool) {
	itv, ok := call(o, "entries")
	if !ok {
		return nil, false
	}
	it, ok := itv.(*goja.Object)
	if !ok {
		return nil, false
	}
	var pairs [][2]string
	for range 1 << 16 {
		res, ok := call(it, "next")
		if !ok {
			return nil, false
		}
		ro, ok := res.(*goja.Object)
		if !ok {
			return nil, false
		}
		if done, ok := get(ro, "done"); !ok || done.ToBoolean() {
			return pairs, ok
		}
		pv, ok := get(ro, "value")
		if !ok {
			return nil, false
		}
		po, ok := pv.(*goja.Object)
		if !ok {
			return nil, false
		}
		pairs = append(pairs, [2]string{stringProp(po, "0"), stringProp(po, "1")})
	}
	return pairs, true
}

func errorTemplate(o *goja.Object) string {
	name := stringProp(o, "name")
	if name == "" {
		name = "Error"
	}
	header := name
	if msg := stringProp(o, "message"); msg != "" {
		header += ": " + msg
	}
	stack := strings.TrimRight(stringProp(o, "stack"), "\n")
	switch {
	case stack == "":
		return header
	case strings.HasPrefix(stack, header):
		return stack
	}
	return header + "\n" + stack
}

func promiseTemplate(o *goja.Object) string {
	p, ok := o.Export().(*goja.Promise)
	if !ok {
		return "Promise { <unknown> }"
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return "Promise { <fulfilled> }"
	case goja.PromiseStateRejected:
		return "Promise { <rejected> }"
	}
	return "Promise { <pending> }"
}

// walker renders JSON.stringify(v, null, 2)-style text. Every object is
// expanded at most once per call, so cycles terminate and shared subgraphs
// are not walked again.
type walker struct {
	seen  map[*goja.Object]struct{}
	spent int
}

// charge accounts n output bytes against MaxSerializedBytes.
func (w *walker) charge(n int) error {
	w.spent += n
	if w.spent > MaxSerializedBytes {
		return errUnserializable
	}
	return nil
}

// value renders v as found under key. omit reports values JSON drops:
// undefined, functions and symbols.
func (w *walker) value(key string, v goja.Value, indent string) (s string, omit bool, err error) {
	s, omit, err = w.render(key, v, indent)
	if err == nil && !omit && !strings.HasPrefix(s, "{\n") && !strings.HasPrefix(s, "[\n") {
		err = w.charge(len(s))
	}
	return s, omit, err
}

func (w *walker) render(key string, v goja.Value, indent string) (s string, omit bool, err error) {
	if o, ok := v.(*goja.Object); ok {
		if _, ok := goja.AssertFunction(o); !ok {
			if toJSON, ok := get(o, "toJSON"); ok {
				if _, callable := goja.AssertFunction(toJSON); callable {
					res, ok := call(o, "toJSON", stringValue(key))
					if !ok {
						return "", false, errUnserializable
					}
					v = res
				}
			} else {
				return "", false, errUnserializable
			}
		}
	}

	kind := Classify(v)
	switch kind {
	case KindUndefined, KindFunction, KindSymbol:
		return "", true, nil
	case KindNull:
		return "null", false, nil
	case KindBool:
		if v.ToBoolean() {
			return "true", false, nil
		}
		return "false", false, nil
	case KindNumber:
		return number(v.ToFloat()), false, nil
	case KindBigInt:
		return "", false, errUnserializable
	case KindString:
		return string(appendQuoted(nil, v.String())), false, nil
	}

	o := v.(*goja.Object)
	if s, ok := special(kind, o); ok {
		return string(appendQuoted(nil, s)), false, nil
	}
	if s, ok := boxed(o); ok {
		return s, false, nil
	}
	if _, ok := w.seen[o]; ok {
		return string(appendQuoted(nil, CircularMarker)), false, nil
	}
	w.seen[o] = struct{}{}

	if kind == KindArray {
		s, err = w.array(o, indent)
	} else {
		s, err = w.object(o, indent)
	}
	return s, false, err
}

func (w *walker) array(o *goja.Object, indent string) (string, error) {
	n, ok := arrayLength(o)
	if !ok {
		return "", errUnserializable
	}
	if n == 0 {
		return "[]", nil
	}
	inner := indent + indentUnit
	var sb strings.Builder
	sb.WriteString("[")
	for i := range n {
		key := strconv.FormatInt(i, 10)
		elem, ok := get(o, key)
		if !ok {
			return "", errUnserializable
		}
		s, omit, err := w.value(key, elem, inner)
		if err != nil {
			return "", err
		}
		if omit {
			s = "null"
			if err := w.charge(len(s)); err != nil {
				return "", err
			}
		}
		if err := w.charge(len(inner) + 2); err != nil {
			return "", err
		}
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("\n" + inner)
		sb.WriteString(s)
	}
	sb.WriteString("\n" + indent + "]")
	return sb.String(), nil
}

func (w *walker) object(o *goja.Object, indent string) (string, error) {
	ks, ok := keys(o)
	if !ok {
		return "", errUnserializable
	}
	inner := indent + indentUnit
	var (
		sb      strings.Builder
		written int
	)
	sb.WriteString("{")
	for _, k := range ks {
		elem, ok := get(o, k)
		if !ok {
			return "", errUnserializable
		}
		s, omit, err := w.value(k, elem, inner)
		if err != nil {
			return "", err
		}
		if omit {
			continue
		}
		quoted := appendQuoted(nil, k)
		if err := w.charge(len(inner) + len(quoted) + 4); err != nil {
			return "", err
		}
		if written > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("\n" + inner)
		sb.Write(quoted)
		sb.WriteString(": ")
		sb.WriteString(s)
		written++
	}
	if written == 0 {
		return "{}", nil
	}
	sb.WriteString("\n" + indent + "}")
	return sb.String(), nil
}

// boxed unwraps Number, String and Boolean wrapper objects the way JSON does.
func boxed(o *goja.Object) (string, bool) {
	switch o.ClassName() {
	case "Number", "String", "Boolean":
	default:
		return "", false
	}
	v, ok := call(o, "valueOf")
	if !ok {
		return "", false
	}
	switch Classify(v) {
	case KindString:
		return string(appendQuoted(nil, v.String())), true
	case KindBool:
		return strconv.FormatBool(v.ToBoolean()), true
	case KindNumber:
		return number(v.ToFloat()), true
	}
	return "", false
}

// number formats f as JSON.stringify does: non-finite values become null
// and negative zero loses its sign.
func number(f float64) string {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return "null"
	case f == 0:
		return "0"
	}
	return string(jsonenc.AppendFloat64(nil, f))
}

// stringValue boxes a property key for toJSON without a runtime.
func stringValue(s string) goja.Value {
	return goja.StringFromUTF16(utf16.Encode([]rune(s)))
}
