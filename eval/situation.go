// Package eval recursively evaluates a bbox.Tree against an ocel.Log,
// producing per-node Situations and ViolationKinds, per spec.md §4.4.
package eval

import (
	"github.com/ocpq-go/ocpq/bbox"
	"github.com/ocpq-go/ocpq/variable"
)

// Situation is one (node, binding, violation?) entry produced while
// evaluating a tree. Violation is nil when the binding satisfied the node.
type Situation struct {
	Node      bbox.NodeIndex
	Binding   variable.Binding
	Violation *bbox.ViolationKind
}

// Result is the flat output of evaluating a tree against a single root
// binding: every situation produced across the whole subtree, plus the
// root node's own violation (nil if the root was satisfied).
type Result struct {
	Situations  []Situation
	OwnViolation *bbox.ViolationKind
}

func violation(v bbox.ViolationKind) *bbox.ViolationKind {
	return &v
}

// ByNode buckets a flat situation list by node index, matching the
// per-node {situations, situationCount, situationViolatedCount} shape of
// spec.md §6.
func ByNode(situations []Situation) map[bbox.NodeIndex][]Situation {
	out := make(map[bbox.NodeIndex][]Situation)
	for _, s := range situations {
		out[s.Node] = append(out[s.Node], s)
	}
	return out
}
