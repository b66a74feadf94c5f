package inspect

import (
	"strconv"
	"strings"

	"github.com/dop251/goja"
	"github.com/rivo/uniseg"
)

const (
	// MaxDisplayLength is the number of grapheme clusters kept before a
	// display string is truncated.
	MaxDisplayLength = 50

	// Ellipsis is appended to truncated display strings.
	Ellipsis = "…"
)

// ValuePreviewData describes a single value for compact display.
type ValuePreviewData struct {
	// Type is one of string, number, boolean, undefined, null, function,
	// array, date, error, regexp, bigint, symbol or object.
	Type string
	// Value is the original value, retained for full-text access.
	Value goja.Value
	// DisplayValue is the truncated, display-safe text.
	DisplayValue string
}

// Truncated reports whether DisplayValue was cut short.
func (d ValuePreviewData) Truncated() bool {
	return strings.Contains(d.DisplayValue, Ellipsis)
}

// Format describes v for display. It never panics.
func Format(v goja.Value) ValuePreviewData {
	kind := Classify(v)
	data := ValuePreviewData{Type: kind.Tag(), Value: v}
	if v == nil {
		data.Value = goja.Undefined()
	}
	switch kind {
	case KindUndefined:
		data.DisplayValue = "undefined"
	case KindNull:
		data.DisplayValue = "null"
	case KindString:
		s, _ := str(v)
		data.DisplayValue = `"` + Truncate(s) + `"`
	case KindBool, KindNumber, KindBigInt, KindSymbol:
		data.DisplayValue, _ = str(v)
	case KindFunction:
		data.DisplayValue = "ƒ " + Truncate(functionName(v.(*goja.Object))) + "()"
	case KindArray:
		n, _ := arrayLength(v.(*goja.Object))
		data.DisplayValue = "Array(" + strconv.FormatInt(n, 10) + ")"
	case KindDate:
		data.DisplayValue = isoDate(v.(*goja.Object))
	case KindError:
		data.DisplayValue = "Error: " + Truncate(stringProp(v.(*goja.Object), "message"))
	case KindRegExp:
		s, _ := str(v)
		data.DisplayValue = Truncate(s)
	default:
		data.DisplayValue = "Object { ... }"
	}
	return data
}

// Truncate cuts s to MaxDisplayLength grapheme clusters, appending Ellipsis
// when anything was removed.
func Truncate(s string) string {
	if len(s) <= MaxDisplayLength {
		return s
	}
	var (
		sb    strings.Builder
		count int
	)
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		if count == MaxDisplayLength {
			sb.WriteString(Ellipsis)
			return sb.String()
		}
		sb.WriteString(g.Str())
		count++
	}
	return s
}
