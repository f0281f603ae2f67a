package planner

import (
	"sort"

	"github.com/ocpq-go/ocpq/bbox"
	"github.com/ocpq-go/ocpq/variable"
)

// BugError marks a planner inconsistency that can only arise from a
// malformed BindingBox (e.g. a filter referencing a variable neither this
// box declares nor inherits from its parent). Per spec.md §7 this is a
// programmer/authoring error, not a runtime condition to recover from; the
// driver is expected to abort with context when it sees one.
type BugError struct {
	Msg string
}

func (e *BugError) Error() string { return "planner: " + e.Msg }

// qualFromTo is one emittable qualified-join edge discovered from the box's
// O2E/O2O filters: binding `To` can be satisfied by following `Qualifier`
// from an already-bound `From`, incorporating filter index `FilterIdx`.
type qualFromTo struct {
	From      variable.Variable
	To        variable.Variable
	Qualifier *string
	FilterIdx int
	Reversed  bool
}

// Plan reduces bbox to an ordered Step list per the cost heuristic of
// spec.md §4.2. free is the set of variables already bound by the parent
// binding (declared by an ancestor box, not this one); they participate in
// filters but never get a Bind* step of their own.
func Plan(b *bbox.BindingBox, free map[variable.Variable]struct{}) ([]Step, error) {
	var steps []Step

	newVars := declaredVars(b)
	// boundVars starts as free, i.e. the variables inherited from the
	// parent binding.
	boundVars := map[variable.Variable]struct{}{}
	for v := range free {
		boundVars[v] = struct{}{}
	}
	needsBinding := map[variable.Variable]struct{}{}
	for v := range newVars {
		needsBinding[v] = struct{}{}
	}

	// canBind[v] = set of variables reachable from v via some filter.
	canBind := map[variable.Variable]map[variable.Variable]struct{}{}
	// canBindQualified[v] = the qualified edges departing v.
	canBindQualified := map[variable.Variable][]qualFromTo{}
	for v := range boundVars {
		canBind[v] = map[variable.Variable]struct{}{}
	}
	for v := range newVars {
		canBind[v] = map[variable.Variable]struct{}{}
	}

	for i, f := range b.Filters {
		switch f.Kind {
		case bbox.O2E:
			addEdge(canBind, canBindQualified, f.Object, f.Event, f.Qualifier, i, false)
			addEdge(canBind, canBindQualified, f.Event, f.Object, f.Qualifier, i, true)
		case bbox.O2O:
			addEdge(canBind, canBindQualified, f.Object, f.OtherObject, f.Qualifier, i, false)
			addEdge(canBind, canBindQualified, f.OtherObject, f.Object, f.Qualifier, i, true)
		default:
			// TBE is never a qualified bind edge; it is emitted as a Filter
			// step once both of its events are bound.
		}
	}

	incorporated := map[int]struct{}{}

	emitSupportedFilters := func() {
		for {
			emittedAny := false
			for i, f := range b.Filters {
				if _, done := incorporated[i]; done {
					continue
				}
				if allBound(f.InvolvedVariables(), boundVars) {
					steps = append(steps, Step{Kind: Filter, FilterConstraint: f})
					incorporated[i] = struct{}{}
					emittedAny = true
				}
			}
			if !emittedAny {
				return
			}
		}
	}

	frontier := sortedFrontier(newVars, boundVars, canBind)

	for len(frontier) > 0 {
		v := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		if _, already := boundVars[v]; already {
			delete(needsBinding, v)
			continue
		}

		if edge, ok := findQualifiedSource(boundVars, canBindQualified, v); ok {
			incorporated[edge.FilterIdx] = struct{}{}
			step, err := bindFromStep(edge)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		} else {
			step, err := bareBindStep(b, v)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		}

		delete(needsBinding, v)
		boundVars[v] = struct{}{}
		emitSupportedFilters()

		frontier = resortFrontier(frontier, boundVars, canBind)
	}

	// Anything left over (filters with no qualified bind-time join, e.g.
	// TBE, or O2E/O2O filters whose variables were all already bound by
	// the parent) gets emitted as a trailing Filter step — but only once
	// every variable it touches is actually bound; a filter that still
	// references an unbound variable here means the box is malformed.
	for i, f := range b.Filters {
		if _, done := incorporated[i]; done {
			continue
		}
		if !allBound(f.InvolvedVariables(), boundVars) {
			return nil, &BugError{Msg: "filter references a variable that is neither declared by this box nor bound by its parent"}
		}
		steps = append(steps, Step{Kind: Filter, FilterConstraint: f})
		incorporated[i] = struct{}{}
	}

	if len(needsBinding) != 0 {
		return nil, &BugError{Msg: "not every declared variable received a Bind step"}
	}

	return steps, nil
}

func declaredVars(b *bbox.BindingBox) map[variable.Variable]struct{} {
	out := map[variable.Variable]struct{}{}
	for slot := range b.NewEventVars {
		out[variable.Ev(slot)] = struct{}{}
	}
	for slot := range b.NewObjectVars {
		out[variable.Ob(slot)] = struct{}{}
	}
	return out
}

func addEdge(
	canBind map[variable.Variable]map[variable.Variable]struct{},
	canBindQualified map[variable.Variable][]qualFromTo,
	from, to variable.Variable,
	qualifier *string,
	filterIdx int,
	reversed bool,
) {
	if canBind[from] == nil {
		canBind[from] = map[variable.Variable]struct{}{}
	}
	canBind[from][to] = struct{}{}
	canBindQualified[from] = append(canBindQualified[from], qualFromTo{
		From: from, To: to, Qualifier: qualifier, FilterIdx: filterIdx, Reversed: reversed,
	})
}

func allBound(vars []variable.Variable, boundVars map[variable.Variable]struct{}) bool {
	for _, v := range vars {
		if _, bound := boundVars[v]; !bound {
			return false
		}
	}
	return true
}

// sortKey implements the frontier priority of spec.md §4.2 step 2:
// ascending by (reachable-count*10) + (100 if directly reachable from an
// already-bound var) + (0 for objects, 1 for events); the list is then
// popped from the back, i.e. highest key first.
func sortKey(v variable.Variable, boundVars map[variable.Variable]struct{}, canBind map[variable.Variable]map[variable.Variable]struct{}) int {
	reachable := len(canBind[v])
	canBeBound := false
	for bv := range boundVars {
		if _, ok := canBind[bv][v]; ok {
			canBeBound = true
			break
		}
	}
	key := reachable*10
	if canBeBound {
		key += 100
	}
	if v.Kind == variable.Event {
		key++
	}
	return key
}

func sortedFrontier(newVars, boundVars map[variable.Variable]struct{}, canBind map[variable.Variable]map[variable.Variable]struct{}) []variable.Variable {
	vars := make([]variable.Variable, 0, len(newVars))
	for v := range newVars {
		vars = append(vars, v)
	}
	sortVarsStable(vars)
	sort.SliceStable(vars, func(i, j int) bool {
		return sortKey(vars[i], boundVars, canBind) < sortKey(vars[j], boundVars, canBind)
	})
	return vars
}

func resortFrontier(frontier []variable.Variable, boundVars map[variable.Variable]struct{}, canBind map[variable.Variable]map[variable.Variable]struct{}) []variable.Variable {
	sortVarsStable(frontier)
	sort.SliceStable(frontier, func(i, j int) bool {
		return frontierKey(frontier[i], boundVars, canBind) < frontierKey(frontier[j], boundVars, canBind)
	})
	return frontier
}

// frontierKey implements the re-sort of spec.md §4.2 step 5: entries newly
// reachable from a bound variable jump to the front of the pop order.
func frontierKey(v variable.Variable, boundVars map[variable.Variable]struct{}, canBind map[variable.Variable]map[variable.Variable]struct{}) int {
	for bv := range boundVars {
		if _, ok := canBind[bv][v]; ok {
			return 100
		}
	}
	return 0
}

// sortVarsStable gives deterministic tie-break ordering (by kind, then
// slot) before a key-based sort is applied, since Go map iteration order
// is randomized and spec.md requires a deterministic tie-break.
func sortVarsStable(vars []variable.Variable) {
	sort.Slice(vars, func(i, j int) bool {
		if vars[i].Kind != vars[j].Kind {
			return vars[i].Kind < vars[j].Kind
		}
		return vars[i].Slot < vars[j].Slot
	})
}

func findQualifiedSource(boundVars map[variable.Variable]struct{}, canBindQualified map[variable.Variable][]qualFromTo, target variable.Variable) (qualFromTo, bool) {
	var froms []variable.Variable
	for bv := range boundVars {
		froms = append(froms, bv)
	}
	sortVarsStable(froms)
	for _, from := range froms {
		for _, edge := range canBindQualified[from] {
			if edge.To == target {
				return edge, true
			}
		}
	}
	return qualFromTo{}, false
}

func bindFromStep(edge qualFromTo) (Step, error) {
	switch {
	case edge.From.Kind == variable.Event && edge.To.Kind == variable.Object:
		return Step{Kind: BindObFromEv, ObjectVar: edge.To.Slot, FromVar: edge.From, Qualifier: edge.Qualifier}, nil
	case edge.From.Kind == variable.Object && edge.To.Kind == variable.Event:
		return Step{Kind: BindEvFromOb, EventVar: edge.To.Slot, FromVar: edge.From, Qualifier: edge.Qualifier}, nil
	case edge.From.Kind == variable.Object && edge.To.Kind == variable.Object:
		return Step{Kind: BindObFromOb, ObjectVar: edge.To.Slot, FromVar: edge.From, Qualifier: edge.Qualifier, Reversed: edge.Reversed}, nil
	default:
		return Step{}, &BugError{Msg: "cannot bind an event from another event"}
	}
}

func bareBindStep(b *bbox.BindingBox, v variable.Variable) (Step, error) {
	if v.Kind == variable.Event {
		if _, declared := b.NewEventVars[v.Slot]; !declared {
			return Step{}, &BugError{Msg: "event variable used by a filter is neither declared nor bound by the parent"}
		}
		// TBE filters that could pre-restrict this BindEv are left as
		// separate Filter steps rather than folded in here.
		return Step{Kind: BindEv, EventVar: v.Slot}, nil
	}
	if _, declared := b.NewObjectVars[v.Slot]; !declared {
		return Step{}, &BugError{Msg: "object variable used by a filter is neither declared nor bound by the parent"}
	}
	return Step{Kind: BindOb, ObjectVar: v.Slot}, nil
}
