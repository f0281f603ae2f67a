package ocel

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Build walks events and objects in arrival order and produces an immutable
// Log, per spec.md §4.1. It never fails on schema imperfection: dangling
// relation targets are recorded in the returned Log's Warnings() and
// otherwise skipped.
func Build(events []Event, objects []Object) *Log {
	l := &Log{
		events:          events,
		objects:         objects,
		eventIndex:      make(map[string]EventIndex, len(events)),
		objectIndex:     make(map[string]ObjectIndex, len(objects)),
		eventsOfType:    make(map[string][]EventIndex),
		objectsOfType:   make(map[string][]ObjectIndex),
		objectEvents:    make(map[ObjectIndex][]EventIndex, len(objects)),
		objectNeighbors: make(map[ObjectIndex][]Neighbor, len(objects)),
		eventNeighbors:  make(map[EventIndex][]Neighbor, len(events)),
	}

	for i, e := range events {
		idx := EventIndex(i)
		l.eventIndex[e.ID] = idx
		l.eventsOfType[e.Type] = append(l.eventsOfType[e.Type], idx)
	}
	for i, o := range objects {
		idx := ObjectIndex(i)
		l.objectIndex[o.ID] = idx
		l.objectsOfType[o.Type] = append(l.objectsOfType[o.Type], idx)
		// Ensure every object has an (initially empty) adjacency entry so
		// lookups never need a presence check on the hot path.
		l.objectEvents[idx] = nil
		l.objectNeighbors[idx] = nil
	}

	// object <- events (O2E, both directions of adjacency)
	for i, e := range events {
		evIdx := EventIndex(i)
		for _, rel := range e.Relations {
			obIdx, ok := l.objectIndex[rel.ObjectID]
			if !ok {
				l.warnings = multierror.Append(l.warnings, fmt.Errorf(
					"event %s (type %s) relates to unknown object id %q via qualifier %q",
					e.ID, e.Type, rel.ObjectID, rel.Qualifier))
				continue
			}
			l.objectEvents[obIdx] = append(l.objectEvents[obIdx], evIdx)
			l.objectNeighbors[obIdx] = append(l.objectNeighbors[obIdx], Neighbor{
				Kind:      NeighborEvent,
				Index:     int(evIdx),
				Reversed:  true,
				Qualifier: rel.Qualifier,
			})
			l.eventNeighbors[evIdx] = append(l.eventNeighbors[evIdx], Neighbor{
				Kind:      NeighborObject,
				Index:     int(obIdx),
				Reversed:  false,
				Qualifier: rel.Qualifier,
			})
		}
	}

	// object <-> object (O2O)
	for i, o := range objects {
		fromIdx := ObjectIndex(i)
		for _, rel := range o.Relations {
			toIdx, ok := l.objectIndex[rel.ObjectID]
			if !ok {
				l.warnings = multierror.Append(l.warnings, fmt.Errorf(
					"object %s (type %s) relates to unknown object id %q via qualifier %q",
					o.ID, o.Type, rel.ObjectID, rel.Qualifier))
				continue
			}
			l.objectNeighbors[fromIdx] = append(l.objectNeighbors[fromIdx], Neighbor{
				Kind:      NeighborObject,
				Index:     int(toIdx),
				Reversed:  false,
				Qualifier: rel.Qualifier,
			})
			l.objectNeighbors[toIdx] = append(l.objectNeighbors[toIdx], Neighbor{
				Kind:      NeighborObject,
				Index:     int(fromIdx),
				Reversed:  true,
				Qualifier: rel.Qualifier,
			})
		}
	}

	return l
}
