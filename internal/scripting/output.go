package scripting

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/dop251/goja"
)

const (
	// ErrorMarker prefixes console lines produced by console.error, thrown
	// errors and rejected results.
	ErrorMarker = "🔴 Error: "

	// ResultMarker prefixes the console line for a snippet's returned value.
	ResultMarker = "→ "
)

// Labels attached to inspector entries.
const (
	LabelError  = "Error"
	LabelResult = "Result"
)

// Tab identifies an output view.
type Tab int

const (
	TabConsole Tab = iota
	TabInspector
)

func (t Tab) String() string {
	switch t {
	case TabConsole:
		return "console"
	case TabInspector:
		return "inspector"
	default:
		return "Tab(" + strconv.Itoa(int(t)) + ")"
	}
}

// InspectorEntry is a captured object. Data is the live value, not a copy,
// and must only be read on the event loop.
type InspectorEntry struct {
	ID        string
	Timestamp int64
	Data      goja.Value
	Label     string
}

// EventKind describes a change to Output.
type EventKind int

const (
	EventAppend EventKind = iota
	EventClear
)

// Event is delivered to Output subscribers after each change. For
// EventAppend, Line is the appended console line (if any) and Entries the
// inspector entries appended with it.
type Event struct {
	Kind    EventKind
	Line    string
	HasLine bool
	Entries []InspectorEntry
}

// Output holds one run's console lines and inspector entries. It is safe for
// concurrent use; observers are notified synchronously, outside the lock.
type Output struct {
	mu          sync.Mutex
	lines       []string
	entries     []InspectorEntry
	tab         func(Tab)
	subscribers map[uint64]func(Event)
	nextSub     uint64
}

// NewOutput returns an empty Output.
func NewOutput() *Output {
	return &Output{subscribers: make(map[uint64]func(Event))}
}

// Lines returns a copy of the console lines.
func (o *Output) Lines() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.lines)
}

// Entries returns a copy of the inspector entries.
func (o *Output) Entries() []InspectorEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.entries)
}

// Entry finds an inspector entry by ID.
func (o *Output) Entry(id string) (InspectorEntry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.ID == id {
			return e, true
		}
	}
	return InspectorEntry{}, false
}

// Append records one console line together with the inspector entries it
// produced, as a single change.
func (o *Output) Append(line string, entries ...InspectorEntry) {
	o.append(Event{Kind: EventAppend, Line: line, HasLine: true, Entries: entries})
}

// AppendEntries records inspector entries without a console line.
func (o *Output) AppendEntries(entries ...InspectorEntry) {
	if len(entries) == 0 {
		return
	}
	o.append(Event{Kind: EventAppend, Entries: entries})
}

func (o *Output) append(ev Event) {
	o.mu.Lock()
	if ev.HasLine {
		o.lines = append(o.lines, ev.Line)
	}
	o.entries = append(o.entries, ev.Entries...)
	subs := o.snapshotSubscribers()
	o.mu.Unlock()
	notify(subs, ev)
}

// Clear empties both sequences.
func (o *Output) Clear() {
	o.mu.Lock()
	o.lines = nil
	o.entries = nil
	subs := o.snapshotSubscribers()
	o.mu.Unlock()
	notify(subs, Event{Kind: EventClear})
}

// SetConsoleTab registers the callback used to bring a tab to the
// foreground. The last registration wins; nil removes it.
func (o *Output) SetConsoleTab(fn func(Tab)) {
	o.mu.Lock()
	o.tab = fn
	o.mu.Unlock()
}

// FocusConsole invokes the registered tab callback, if any, with TabConsole.
func (o *Output) FocusConsole() {
	o.mu.Lock()
	fn := o.tab
	o.mu.Unlock()
	if fn != nil {
		fn(TabConsole)
	}
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (o *Output) Subscribe(fn func(Event)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subscribers[id] = fn
	o.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subscribers, id)
			o.mu.Unlock()
		})
	}
}

func (o *Output) snapshotSubscribers() []func(Event) {
	if len(o.subscribers) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(o.subscribers))
	for id := range o.subscribers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	subs := make([]func(Event), len(ids))
	for i, id := range ids {
		subs[i] = o.subscribers[id]
	}
	return subs
}

func notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}

// newEntryID returns a millisecond timestamp followed by a random base-36
// suffix, unique enough to key entries captured within one run.
func newEntryID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + strconv.FormatUint(rand.Uint64()&0x7fffffffffff, 36)
}
