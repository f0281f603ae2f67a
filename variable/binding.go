package variable

import "github.com/ocpq-go/ocpq/ocel"

// Binding is a partial map from event/object variables to log handles. It is
// extended, never mutated in place: With* methods copy-on-write, so a parent
// binding can be fanned out to many children concurrently without races
// (spec.md §3, "Bindings are extended only; an assigned slot is never
// reassigned").
type Binding struct {
	EventVars  map[int]ocel.EventIndex
	ObjectVars map[int]ocel.ObjectIndex
}

// Empty returns a Binding with no assignments, the starting point for
// evaluating the root binding box against the log.
func Empty() Binding {
	return Binding{}
}

// WithEvent returns a copy of b with slot bound to idx. The receiver is not
// mutated.
func (b Binding) WithEvent(slot int, idx ocel.EventIndex) Binding {
	out := Binding{
		EventVars:  cloneEv(b.EventVars, len(b.EventVars)+1),
		ObjectVars: b.ObjectVars,
	}
	out.EventVars[slot] = idx
	return out
}

// WithObject returns a copy of b with slot bound to idx. The receiver is not
// mutated.
func (b Binding) WithObject(slot int, idx ocel.ObjectIndex) Binding {
	out := Binding{
		EventVars:  b.EventVars,
		ObjectVars: cloneOb(b.ObjectVars, len(b.ObjectVars)+1),
	}
	out.ObjectVars[slot] = idx
	return out
}

// Event looks up an already-bound event variable.
func (b Binding) Event(slot int) (ocel.EventIndex, bool) {
	idx, ok := b.EventVars[slot]
	return idx, ok
}

// Object looks up an already-bound object variable.
func (b Binding) Object(slot int) (ocel.ObjectIndex, bool) {
	idx, ok := b.ObjectVars[slot]
	return idx, ok
}

// HasEvent reports whether an event variable is already bound.
func (b Binding) HasEvent(slot int) bool {
	_, ok := b.EventVars[slot]
	return ok
}

// HasObject reports whether an object variable is already bound.
func (b Binding) HasObject(slot int) bool {
	_, ok := b.ObjectVars[slot]
	return ok
}

func cloneEv(m map[int]ocel.EventIndex, cap int) map[int]ocel.EventIndex {
	out := make(map[int]ocel.EventIndex, cap)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneOb(m map[int]ocel.ObjectIndex, cap int) map[int]ocel.ObjectIndex {
	out := make(map[int]ocel.ObjectIndex, cap)
	for k, v := range m {
		out[k] = v
	}
	return out
}
