package inspect

import (
	"strconv"
	"strings"

	"github.com/dop251/goja"
)

// MaxTreeEntries bounds the children listed under one expanded tree node.
const MaxTreeEntries = 100

// Render prints v as an inspector tree expanded to depth levels, one node per
// line. Containers show their preview summary; leaves show Format output.
// A node that refers back to one of its ancestors is not expanded.
func Render(label string, v goja.Value, depth int) string {
	var sb strings.Builder
	t := tree{sb: &sb, path: make(map[*goja.Object]struct{})}
	t.node(label, v, 0, depth)
	return strings.TrimSuffix(sb.String(), "\n")
}

type tree struct {
	sb   *strings.Builder
	path map[*goja.Object]struct{}
}

func (t *tree) node(label string, v goja.Value, level, depth int) {
	indent := strings.Repeat(indentUnit, level)
	kind := Classify(v)
	expandable := kind == KindArray || kind == KindObject
	var circular bool
	if expandable {
		_, circular = t.path[v.(*goja.Object)]
	}
	prefix := "  "
	switch {
	case expandable && depth > 0 && !circular:
		prefix = "▾ "
	case expandable:
		prefix = "▸ "
	}
	t.sb.WriteString(indent)
	t.sb.WriteString(prefix)
	if label != "" {
		t.sb.WriteString(label)
		t.sb.WriteString(": ")
	}
	if !expandable {
		t.sb.WriteString(Format(v).DisplayValue)
		t.sb.WriteByte('\n')
		return
	}
	o := v.(*goja.Object)
	if circular {
		t.sb.WriteString(CircularMarker)
		t.sb.WriteByte('\n')
		return
	}
	t.sb.WriteString(Summary(Preview(v)))
	t.sb.WriteByte('\n')
	if depth <= 0 {
		return
	}
	t.path[o] = struct{}{}
	defer delete(t.path, o)
	entries, total := Entries(v, MaxTreeEntries)
	for _, e := range entries {
		t.node(e.Key, e.Value, level+1, depth-1)
	}
	if total > len(entries) {
		t.sb.WriteString(strings.Repeat(indentUnit, level+1))
		t.sb.WriteString("  " + Ellipsis + " " + strconv.Itoa(total-len(entries)) + " more\n")
	}
}
