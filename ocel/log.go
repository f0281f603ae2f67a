package ocel

import "github.com/hashicorp/go-multierror"

// Log is the immutable, index-addressed view of an OCEL that the planner,
// executor and discovery engine query. It is built once by Build and never
// mutated afterward: every field below is safe to read concurrently without
// synchronization, matching the "no shared mutability" model of spec.md §5.
type Log struct {
	events  []Event
	objects []Object

	eventIndex map[string]EventIndex
	objectIndex map[string]ObjectIndex

	eventsOfType  map[string][]EventIndex
	objectsOfType map[string][]ObjectIndex

	objectEvents map[ObjectIndex][]EventIndex

	// objectNeighbors and eventNeighbors hold the symmetric adjacency
	// lists of every object and event; each Neighbor's Kind tells whether
	// its Index is an object or an event index, so the two index spaces
	// never collide.
	objectNeighbors map[ObjectIndex][]Neighbor
	eventNeighbors  map[EventIndex][]Neighbor

	warnings *multierror.Error
}

// EventByIndex returns the Event a handle refers to. The handle must have
// come from this Log; out-of-range handles are a programmer error and
// panic, per spec.md §4.3's "a reference to an unknown ... index signals a
// program bug".
func (l *Log) EventByIndex(i EventIndex) *Event {
	return &l.events[i]
}

// ObjectByIndex returns the Object a handle refers to.
func (l *Log) ObjectByIndex(i ObjectIndex) *Object {
	return &l.objects[i]
}

// EventIndexByID resolves an event id to its handle.
func (l *Log) EventIndexByID(id string) (EventIndex, bool) {
	i, ok := l.eventIndex[id]
	return i, ok
}

// ObjectIndexByID resolves an object id to its handle.
func (l *Log) ObjectIndexByID(id string) (ObjectIndex, bool) {
	i, ok := l.objectIndex[id]
	return i, ok
}

// EventsOfType returns the arrival-order list of events of the given type.
// The returned slice must not be mutated by the caller.
func (l *Log) EventsOfType(t string) []EventIndex {
	return l.eventsOfType[t]
}

// ObjectsOfType returns the arrival-order list of objects of the given
// type. The returned slice must not be mutated by the caller.
func (l *Log) ObjectsOfType(t string) []ObjectIndex {
	return l.objectsOfType[t]
}

// EventsOfObject returns the events in which an object participates via any
// qualifier, in arrival order.
func (l *Log) EventsOfObject(o ObjectIndex) []EventIndex {
	return l.objectEvents[o]
}

// ObjectNeighbors returns the symmetric O2O/O2E neighborhood of an object.
func (l *Log) ObjectNeighbors(o ObjectIndex) []Neighbor {
	return l.objectNeighbors[o]
}

// EventNeighbors returns the symmetric O2E neighborhood of an event (events
// never neighbor events).
func (l *Log) EventNeighbors(e EventIndex) []Neighbor {
	return l.eventNeighbors[e]
}

// NumEvents is the number of events in the log.
func (l *Log) NumEvents() int { return len(l.events) }

// NumObjects is the number of objects in the log.
func (l *Log) NumObjects() int { return len(l.objects) }

// EventTypes lists every distinct event type present, in no particular
// order.
func (l *Log) EventTypes() []string {
	out := make([]string, 0, len(l.eventsOfType))
	for t := range l.eventsOfType {
		out = append(out, t)
	}
	return out
}

// ObjectTypes lists every distinct object type present.
func (l *Log) ObjectTypes() []string {
	out := make([]string, 0, len(l.objectsOfType))
	for t := range l.objectsOfType {
		out = append(out, t)
	}
	return out
}

// Warnings returns the schema warnings accumulated while building the log
// (dangling object/event references), or nil if none were encountered. A
// non-nil result does not mean the log is unusable — per spec.md §4.1,
// construction "may log and skip dangling references; it never aborts on
// schema imperfection."
func (l *Log) Warnings() error {
	return l.warnings.ErrorOrNil()
}

// WarningCount reports how many schema warnings were accumulated while
// building the log (dangling object/event references).
func (l *Log) WarningCount() int {
	if l.warnings == nil {
		return 0
	}
	return len(l.warnings.Errors)
}
