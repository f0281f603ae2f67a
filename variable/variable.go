// Package variable provides the Event/Object variable and binding types
// shared between the planner, executor and evaluator.
package variable

import "fmt"

// Kind distinguishes an event variable from an object variable.
type Kind int

const (
	// Event marks a variable bound to an EventIndex.
	Event Kind = iota
	// Object marks a variable bound to an ObjectIndex.
	Object
)

func (k Kind) String() string {
	if k == Event {
		return "event"
	}
	return "object"
}

// Variable is a tagged slot number local to one binding box: Event(u) or
// Object(u), per spec.md §3.
type Variable struct {
	Kind Kind
	Slot int
}

// Ev constructs an event variable with the given slot number.
func Ev(slot int) Variable { return Variable{Kind: Event, Slot: slot} }

// Ob constructs an object variable with the given slot number.
func Ob(slot int) Variable { return Variable{Kind: Object, Slot: slot} }

func (v Variable) String() string {
	if v.Kind == Event {
		return fmt.Sprintf("ev_%d", v.Slot)
	}
	return fmt.Sprintf("ob_%d", v.Slot)
}
