// Package planner reduces a bbox.BindingBox to an ordered list of primitive
// Steps that the rowexec package can run against an ocel.Log, per spec.md
// §4.2.
package planner

import (
	"github.com/ocpq-go/ocpq/bbox"
	"github.com/ocpq-go/ocpq/variable"
)

// StepKind tags which primitive operation a Step performs.
type StepKind int

const (
	// BindEv binds an event variable by type scan, optionally restricted
	// by time distance to already-bound events.
	BindEv StepKind = iota
	// BindOb binds an object variable by type scan.
	BindOb
	// BindObFromEv binds an object variable by following an event's O2E
	// relations.
	BindObFromEv
	// BindObFromOb binds an object variable by following an object's O2O
	// relations.
	BindObFromOb
	// BindEvFromOb binds an event variable by following an object's O2E
	// relations (reverse direction).
	BindEvFromOb
	// Filter applies a standalone filter constraint.
	Filter
)

// TimeConstraint pre-filters a BindEv step by the time distance to an
// already-bound reference event.
type TimeConstraint struct {
	RefEvent variable.Variable
	Range    bbox.SecondsRange
}

// Step is one primitive operation in a plan, a tagged union over StepKind.
type Step struct {
	Kind StepKind

	// BindEv
	EventVar   int
	TimeConstr []TimeConstraint

	// BindOb
	ObjectVar int

	// BindObFromEv / BindObFromOb / BindEvFromOb
	FromVar   variable.Variable
	Qualifier *string
	Reversed  bool

	// Filter
	FilterConstraint bbox.Filter
}
