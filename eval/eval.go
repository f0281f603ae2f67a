package eval

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ocpq-go/ocpq/bbox"
	"github.com/ocpq-go/ocpq/ocel"
	"github.com/ocpq-go/ocpq/planner"
	"github.com/ocpq-go/ocpq/rowexec"
	"github.com/ocpq-go/ocpq/variable"
)

// Root is the sentinel "parent" passed to Evaluate for the tree's entry
// node, which by definition sits on no incoming edge and so never carries
// a size constraint.
const Root bbox.NodeIndex = -1

// Evaluate recursively evaluates node and its subtree against log, with
// parent as the already-bound incoming binding and parentNode as the
// index node was reached from (Root for the tree's entry point), per
// spec.md §4.4. node must be a valid index into tree.Nodes.
func Evaluate(ctx context.Context, log *ocel.Log, tree *bbox.Tree, parentNode, node bbox.NodeIndex, parent variable.Binding) (Result, error) {
	n := tree.Nodes[node]
	switch n.Kind {
	case bbox.KindBox:
		return evalBox(ctx, log, tree, parentNode, node, n, parent)
	case bbox.KindOR:
		return evalOR(ctx, log, tree, node, n, parent)
	case bbox.KindAND:
		return evalAND(ctx, log, tree, node, n, parent)
	case bbox.KindNOT:
		return evalNOT(ctx, log, tree, node, n, parent)
	default:
		return Result{}, errors.Errorf("eval: node %d has unrecognized kind %d", node, n.Kind)
	}
}

func freeVarsOf(parent variable.Binding) map[variable.Variable]struct{} {
	out := make(map[variable.Variable]struct{}, len(parent.EventVars)+len(parent.ObjectVars))
	for slot := range parent.EventVars {
		out[variable.Ev(slot)] = struct{}{}
	}
	for slot := range parent.ObjectVars {
		out[variable.Ob(slot)] = struct{}{}
	}
	return out
}

// evalBox expands n.Box from parent, checks the incoming edge's size
// constraint, then recurses into every child for every expanded binding.
//
// A Box reports its own outcome as Situations tagged with its own node
// index (index): a single entry keyed to the parent binding when the
// edge's size constraint rejects the expansion outright (situations is
// otherwise empty, per spec.md §4.4 step 2's "return ([], violation)"), or
// one entry per expanded binding — tagged ChildUnsat iff any of that
// binding's children violated — when the expansion is accepted (none when
// the accepted expansion is empty). Child subtrees contribute their own situations (including
// their own self-entries) via the recursive call; evalBox never pushes a
// second entry at a child's node index on top of what the child already
// produced, so nesting Boxes does not double-count.
func evalBox(ctx context.Context, log *ocel.Log, tree *bbox.Tree, parentNode, index bbox.NodeIndex, n bbox.Node, parent variable.Binding) (Result, error) {
	steps, err := planner.Plan(n.Box, freeVarsOf(parent))
	if err != nil {
		return Result{}, errors.Wrapf(err, "planning node %d", index)
	}

	expanded, err := rowexec.Execute(ctx, log, n.Box, steps, []variable.Binding{parent})
	if err != nil {
		return Result{}, errors.Wrapf(err, "executing node %d", index)
	}

	if parentNode != Root {
		size := tree.Size(parentNode, index)
		if size.Min != nil && len(expanded) < *size.Min {
			v := violation(bbox.TooFewMatching)
			return Result{Situations: []Situation{{Node: index, Binding: parent, Violation: v}}, OwnViolation: v}, nil
		}
		if size.Max != nil && len(expanded) > *size.Max {
			v := violation(bbox.TooManyMatching)
			return Result{Situations: []Situation{{Node: index, Binding: parent, Violation: v}}, OwnViolation: v}, nil
		}
	}

	// Every (binding, child) pair is an independent unit of work; fan out
	// across them per spec.md §4.4 step 3 / §5's fork-join model.
	type unit struct {
		bindingIdx int
		binding    variable.Binding
		child      bbox.NodeIndex
	}
	var units []unit
	for bi, b := range expanded {
		for _, c := range n.Children {
			units = append(units, unit{bindingIdx: bi, binding: b, child: c})
		}
	}

	childResults := make([]Result, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			r, err := Evaluate(gctx, log, tree, index, u.child, u.binding)
			if err != nil {
				return err
			}
			childResults[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	bindingViolated := make([]bool, len(expanded))
	var situations []Situation
	for i, u := range units {
		r := childResults[i]
		situations = append(situations, r.Situations...)
		if r.OwnViolation != nil {
			bindingViolated[u.bindingIdx] = true
		}
	}

	boxViolated := false
	for bi, b := range expanded {
		var bv *bbox.ViolationKind
		if bindingViolated[bi] {
			bv = violation(bbox.ChildUnsat)
			boxViolated = true
		}
		situations = append(situations, Situation{Node: index, Binding: b, Violation: bv})
	}

	var own *bbox.ViolationKind
	if boxViolated {
		own = violation(bbox.ChildUnsat)
	}
	return Result{Situations: situations, OwnViolation: own}, nil
}

func evalOR(ctx context.Context, log *ocel.Log, tree *bbox.Tree, index bbox.NodeIndex, n bbox.Node, parent variable.Binding) (Result, error) {
	left, right, err := evalPair(ctx, log, tree, index, n.Left, n.Right, parent)
	if err != nil {
		return Result{}, err
	}

	situations := append(left.Situations, right.Situations...)
	var own *bbox.ViolationKind
	if left.OwnViolation != nil && right.OwnViolation != nil {
		own = violation(bbox.NoChildOfORSat)
	}
	return Result{Situations: situations, OwnViolation: own}, nil
}

func evalAND(ctx context.Context, log *ocel.Log, tree *bbox.Tree, index bbox.NodeIndex, n bbox.Node, parent variable.Binding) (Result, error) {
	left, right, err := evalPair(ctx, log, tree, index, n.Left, n.Right, parent)
	if err != nil {
		return Result{}, err
	}

	situations := append(left.Situations, right.Situations...)
	var own *bbox.ViolationKind
	switch {
	case left.OwnViolation != nil && right.OwnViolation != nil:
		own = violation(bbox.BothOfANDUnsat)
	case left.OwnViolation != nil:
		own = violation(bbox.LeftOfANDUnsat)
	case right.OwnViolation != nil:
		own = violation(bbox.RightOfANDUnsat)
	}
	return Result{Situations: situations, OwnViolation: own}, nil
}

func evalPair(ctx context.Context, log *ocel.Log, tree *bbox.Tree, parentNode, left, right bbox.NodeIndex, parent variable.Binding) (Result, Result, error) {
	var lr, rr Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := Evaluate(gctx, log, tree, parentNode, left, parent)
		lr = r
		return err
	})
	g.Go(func() error {
		r, err := Evaluate(gctx, log, tree, parentNode, right, parent)
		rr = r
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, Result{}, err
	}
	return lr, rr, nil
}

func evalNOT(ctx context.Context, log *ocel.Log, tree *bbox.Tree, index bbox.NodeIndex, n bbox.Node, parent variable.Binding) (Result, error) {
	child, err := Evaluate(ctx, log, tree, index, n.Child, parent)
	if err != nil {
		return Result{}, err
	}
	var own *bbox.ViolationKind
	if child.OwnViolation == nil {
		own = violation(bbox.ChildOfNOTSat)
	}
	return Result{Situations: child.Situations, OwnViolation: own}, nil
}
