// Package resultdoc shapes evaluation output into the result document
// JSON format of spec.md §6, stamped with a run id.
package resultdoc

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/ocpq-go/ocpq/bbox"
	"github.com/ocpq-go/ocpq/eval"
	"github.com/ocpq-go/ocpq/ocel"
	"github.com/ocpq-go/ocpq/variable"
)

// Binding is the wire shape of a variable.Binding.
type Binding struct {
	EventMap  map[int]int `json:"eventMap"`
	ObjectMap map[int]int `json:"objectMap"`
}

func toBinding(b variable.Binding) Binding {
	ev := make(map[int]int, len(b.EventVars))
	for slot, idx := range b.EventVars {
		ev[slot] = int(idx)
	}
	ob := make(map[int]int, len(b.ObjectVars))
	for slot, idx := range b.ObjectVars {
		ob[slot] = int(idx)
	}
	return Binding{EventMap: ev, ObjectMap: ob}
}

// Situation is the wire shape of a (binding, violationReason?) pair.
type Situation struct {
	Binding         Binding `json:"binding"`
	ViolationReason *string `json:"violationReason,omitempty"`
}

// NodeResult is the per-node evaluation summary of spec.md §6.
type NodeResult struct {
	Situations             []Situation `json:"situations"`
	SituationCount         int         `json:"situationCount"`
	SituationViolatedCount int         `json:"situationViolatedCount"`
}

// Document is the full result document written by the driver.
type Document struct {
	RunID             string                       `json:"runId"`
	EvaluationResults map[string]NodeResult        `json:"evaluationResults"`
	ObjectIDs         []string                     `json:"objectIds"`
	EventIDs          []string                     `json:"eventIds"`
}

// Build assembles a Document from the flat situations an eval.Evaluate
// call produced, plus the root's own outcome (folded in under root's node
// index when no situation carries it) and the log's id tables.
func Build(log *ocel.Log, root bbox.NodeIndex, rootResult eval.Result) Document {
	byNode := eval.ByNode(rootResult.Situations)

	doc := Document{
		RunID:             uuid.NewString(),
		EvaluationResults: make(map[string]NodeResult, len(byNode)+1),
		ObjectIDs:         idsOf(log.NumObjects(), func(i int) string { return log.ObjectByIndex(ocel.ObjectIndex(i)).ID }),
		EventIDs:          idsOf(log.NumEvents(), func(i int) string { return log.EventByIndex(ocel.EventIndex(i)).ID }),
	}

	for node, situations := range byNode {
		doc.EvaluationResults[nodeKey(node)] = toNodeResult(situations)
	}

	// A Box root self-reports under its own node index whenever it
	// expanded to at least one binding (see eval.evalBox), so this fires
	// for an AND/OR/NOT root, which has no binding of its own to report,
	// and for a Box root whose expansion was empty.
	rootKey := nodeKey(root)
	if _, exists := doc.EvaluationResults[rootKey]; !exists {
		var v *string
		if rootResult.OwnViolation != nil {
			s := rootResult.OwnViolation.String()
			v = &s
		}
		violated := 0
		if v != nil {
			violated = 1
		}
		doc.EvaluationResults[rootKey] = NodeResult{
			Situations:             []Situation{{Binding: toBinding(variable.Empty()), ViolationReason: v}},
			SituationCount:         1,
			SituationViolatedCount: violated,
		}
	}

	return doc
}

func toNodeResult(situations []eval.Situation) NodeResult {
	out := NodeResult{Situations: make([]Situation, len(situations))}
	for i, s := range situations {
		var v *string
		if s.Violation != nil {
			str := s.Violation.String()
			v = &str
		}
		out.Situations[i] = Situation{Binding: toBinding(s.Binding), ViolationReason: v}
		if v != nil {
			out.SituationViolatedCount++
		}
	}
	out.SituationCount = len(situations)
	return out
}

func nodeKey(n bbox.NodeIndex) string {
	return strconv.Itoa(int(n))
}

func idsOf(n int, id func(int) string) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = id(i)
	}
	return out
}
