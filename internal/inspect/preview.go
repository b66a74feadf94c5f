package inspect

import (
	"strconv"

	"github.com/dop251/goja"
)

const (
	// MaxArrayItems bounds the items shown in an array preview.
	MaxArrayItems = 3
	// MaxObjectKeys bounds the keys shown in an object preview.
	MaxObjectKeys = 5
)

// PreviewKind is the shape of an ObjectPreviewData.
type PreviewKind string

const (
	PreviewArray     PreviewKind = "array"
	PreviewObject    PreviewKind = "object"
	PreviewPrimitive PreviewKind = "primitive"
)

// PreviewItem is one shown element of a preview. Array items carry their
// index as Key.
type PreviewItem struct {
	Key    string
	HasKey bool
	Value  ValuePreviewData
}

// ObjectPreviewData is a shallow, bounded view of a container.
type ObjectPreviewData struct {
	Kind PreviewKind
	// Size is the true element or key count; nil for primitives.
	Size    *int
	Items   []PreviewItem
	HasMore bool
}

// Preview builds a one-level preview of v. Arrays show their first
// MaxArrayItems elements, other objects their first MaxObjectKeys own
// enumerable keys. Anything else, including functions, yields a primitive
// preview wrapping Format(v).
func Preview(v goja.Value) ObjectPreviewData {
	kind := Classify(v)
	if kind.IsContainer() {
		o := v.(*goja.Object)
		if kind == KindArray {
			if p, ok := previewArray(o); ok {
				return p
			}
		} else if p, ok := previewObject(o); ok {
			return p
		}
	}
	return primitivePreview(v)
}

func primitivePreview(v goja.Value) ObjectPreviewData {
	return ObjectPreviewData{
		Kind:  PreviewPrimitive,
		Items: []PreviewItem{{Value: Format(v)}},
	}
}

func previewArray(o *goja.Object) (ObjectPreviewData, bool) {
	n, ok := arrayLength(o)
	if !ok {
		return ObjectPreviewData{}, false
	}
	size := int(n)
	shown := min(size, MaxArrayItems)
	items := make([]PreviewItem, 0, shown)
	for i := range shown {
		key := strconv.Itoa(i)
		elem, ok := get(o, key)
		if !ok {
			elem = goja.Undefined()
		}
		items = append(items, PreviewItem{Key: key, HasKey: true, Value: Format(elem)})
	}
	return ObjectPreviewData{
		Kind:    PreviewArray,
		Size:    &size,
		Items:   items,
		HasMore: size > MaxArrayItems,
	}, true
}

func previewObject(o *goja.Object) (ObjectPreviewData, bool) {
	ks, ok := keys(o)
	if !ok {
		return ObjectPreviewData{}, false
	}
	size := len(ks)
	shown := min(size, MaxObjectKeys)
	items := make([]PreviewItem, 0, shown)
	for _, k := range ks[:shown] {
		elem, ok := get(o, k)
		if !ok {
			elem = goja.Undefined()
		}
		items = append(items, PreviewItem{Key: k, HasKey: true, Value: Format(elem)})
	}
	return ObjectPreviewData{
		Kind:    PreviewObject,
		Size:    &size,
		Items:   items,
		HasMore: size > MaxObjectKeys,
	}, true
}

// Entry is one child of an expanded inspector node.
type Entry struct {
	Key   string
	Value goja.Value
}

// Entries lists the children of a container: array elements by index, or own
// enumerable keys in enumeration order. At most limit entries are returned
// when limit is positive; total is the full count. Non-containers have no
// entries.
func Entries(v goja.Value, limit int) (entries []Entry, total int) {
	kind := Classify(v)
	if !kind.IsContainer() {
		return nil, 0
	}
	o := v.(*goja.Object)
	var names []string
	if kind == KindArray {
		n, ok := arrayLength(o)
		if !ok {
			return nil, 0
		}
		total = int(n)
		shown := total
		if limit > 0 {
			shown = min(shown, limit)
		}
		names = make([]string, shown)
		for i := range names {
			names[i] = strconv.Itoa(i)
		}
	} else {
		var ok bool
		if names, ok = keys(o); !ok {
			return nil, 0
		}
		total = len(names)
		if limit > 0 && len(names) > limit {
			names = names[:limit]
		}
	}
	entries = make([]Entry, 0, len(names))
	for _, k := range names {
		elem, ok := get(o, k)
		if !ok {
			elem = goja.Undefined()
		}
		entries = append(entries, Entry{Key: k, Value: elem})
	}
	return entries, total
}

// Summary renders a preview the way a collapsed inspector node shows it:
// Array(n) [a, b, c, …] or Object { k: v, … }, with empty containers as []
// and {}.
func Summary(p ObjectPreviewData) string {
	switch p.Kind {
	case PreviewArray:
		if p.Size == nil || *p.Size == 0 {
			return "[]"
		}
		s := "Array(" + strconv.Itoa(*p.Size) + ") ["
		for i, item := range p.Items {
			if i > 0 {
				s += ", "
			}
			s += item.Value.DisplayValue
		}
		if p.HasMore {
			s += ", " + Ellipsis
		}
		return s + "]"
	case PreviewObject:
		if p.Size == nil || *p.Size == 0 {
			return "{}"
		}
		s := "Object { "
		for i, item := range p.Items {
			if i > 0 {
				s += ", "
			}
			s += item.Key + ": " + item.Value.DisplayValue
		}
		if p.HasMore {
			s += ", " + Ellipsis
		}
		return s + " }"
	}
	if len(p.Items) > 0 {
		return p.Items[0].Value.DisplayValue
	}
	return ""
}
