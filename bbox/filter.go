package bbox

import "github.com/ocpq-go/ocpq/variable"

// FilterKind tags which of the three filter primitives a Filter carries,
// per spec.md §3.
type FilterKind int

const (
	// O2E filters on an object's association with an event.
	O2E FilterKind = iota
	// O2O filters on an object's association with another object.
	O2O
	// TBE filters on the time distance between two events.
	TBE
)

// SecondsRange is a (possibly half-open) bound on a duration in seconds.
// A nil endpoint means unbounded on that side.
type SecondsRange struct {
	Min *float64
	Max *float64
}

// Contains reports whether d seconds falls within r (inclusive on both
// bounds when present), per spec.md §4.3.
func (r SecondsRange) Contains(d float64) bool {
	if r.Min != nil && d < *r.Min {
		return false
	}
	if r.Max != nil && d > *r.Max {
		return false
	}
	return true
}

// Filter is one filter constraint over already-bound (or soon-to-be-bound)
// variables. Exactly one of the typed fields is meaningful, selected by Kind.
type Filter struct {
	Kind FilterKind

	// O2E / O2O
	Object      variable.Variable
	OtherObject variable.Variable // O2O only
	Event       variable.Variable // O2E only
	Qualifier   *string           // nil means "any qualifier"

	// TBE
	FromEvent variable.Variable
	ToEvent   variable.Variable
	Range     SecondsRange
}

// NewO2E builds an ObjectAssociatedWithEvent filter.
func NewO2E(obj, ev variable.Variable, qualifier *string) Filter {
	return Filter{Kind: O2E, Object: obj, Event: ev, Qualifier: qualifier}
}

// NewO2O builds an ObjectAssociatedWithObject filter.
func NewO2O(obj, other variable.Variable, qualifier *string) Filter {
	return Filter{Kind: O2O, Object: obj, OtherObject: other, Qualifier: qualifier}
}

// NewTBE builds a TimeBetweenEvents filter.
func NewTBE(from, to variable.Variable, r SecondsRange) Filter {
	return Filter{Kind: TBE, FromEvent: from, ToEvent: to, Range: r}
}

// InvolvedVariables returns the set of variables a filter reads, used by the
// planner to decide when a filter becomes emittable.
func (f Filter) InvolvedVariables() []variable.Variable {
	switch f.Kind {
	case O2E:
		return []variable.Variable{f.Object, f.Event}
	case O2O:
		return []variable.Variable{f.Object, f.OtherObject}
	case TBE:
		return []variable.Variable{f.FromEvent, f.ToEvent}
	default:
		return nil
	}
}
