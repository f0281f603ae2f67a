package bbox

import "github.com/ocpq-go/ocpq/variable"

// BindingBox declares the variables it introduces, the filters that must
// hold over them (and over variables inherited from the parent binding),
// and is evaluated as a Box Node inside a Tree. See spec.md §3.
type BindingBox struct {
	// NewEventVars maps a newly introduced event variable's slot to its
	// allowed type set.
	NewEventVars map[int]map[string]struct{}
	// NewObjectVars maps a newly introduced object variable's slot to its
	// allowed type set.
	NewObjectVars map[int]map[string]struct{}
	// Filters is the list of predicates over already-bound variables
	// (either introduced by this box or inherited from the parent).
	Filters []Filter
}

// NewBindingBox constructs an empty BindingBox ready to have variables and
// filters added.
func NewBindingBox() *BindingBox {
	return &BindingBox{
		NewEventVars:  make(map[int]map[string]struct{}),
		NewObjectVars: make(map[int]map[string]struct{}),
	}
}

// DeclareEvent introduces an event variable with the given allowed types.
func (b *BindingBox) DeclareEvent(slot int, types ...string) *BindingBox {
	b.NewEventVars[slot] = toSet(types)
	return b
}

// DeclareObject introduces an object variable with the given allowed types.
func (b *BindingBox) DeclareObject(slot int, types ...string) *BindingBox {
	b.NewObjectVars[slot] = toSet(types)
	return b
}

// AddFilter appends a filter constraint to the box.
func (b *BindingBox) AddFilter(f Filter) *BindingBox {
	b.Filters = append(b.Filters, f)
	return b
}

// Declares reports whether this box introduces the given variable.
func (b *BindingBox) Declares(v variable.Variable) bool {
	if v.Kind == variable.Event {
		_, ok := b.NewEventVars[v.Slot]
		return ok
	}
	_, ok := b.NewObjectVars[v.Slot]
	return ok
}

// EventTypes returns the allowed type set for an event variable this box
// declares. The returned set must not be mutated.
func (b *BindingBox) EventTypes(slot int) map[string]struct{} {
	return b.NewEventVars[slot]
}

// ObjectTypes returns the allowed type set for an object variable this box
// declares. The returned set must not be mutated.
func (b *BindingBox) ObjectTypes(slot int) map[string]struct{} {
	return b.NewObjectVars[slot]
}

func toSet(vals []string) map[string]struct{} {
	out := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		out[v] = struct{}{}
	}
	return out
}
