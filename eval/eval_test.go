package eval_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocpq-go/ocpq/bbox"
	"github.com/ocpq-go/ocpq/eval"
	"github.com/ocpq-go/ocpq/ocel"
	"github.com/ocpq-go/ocpq/variable"
)

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// twoOrdersLog has one order with both a place and a pay event 2h apart,
// and a second order with only a place event.
func twoOrdersLog() *ocel.Log {
	events := []ocel.Event{
		{ID: "e1", Type: "place order", Time: mustTime("2024-01-01T00:00:00Z"),
			Relations: []ocel.Relation{{Qualifier: "order", ObjectID: "o1"}}},
		{ID: "e2", Type: "pay order", Time: mustTime("2024-01-01T02:00:00Z"),
			Relations: []ocel.Relation{{Qualifier: "order", ObjectID: "o1"}}},
		{ID: "e3", Type: "place order", Time: mustTime("2024-01-02T00:00:00Z"),
			Relations: []ocel.Relation{{Qualifier: "order", ObjectID: "o2"}}},
	}
	objects := []ocel.Object{{ID: "o1", Type: "orders"}, {ID: "o2", Type: "orders"}}
	return ocel.Build(events, objects)
}

func rootBoxTree(box *bbox.BindingBox) *bbox.Tree {
	t := bbox.NewTree()
	t.AddNode(bbox.NewBox(box))
	return t
}

func TestEvaluateUnfilteredTypeBind(t *testing.T) {
	log := twoOrdersLog()
	box := bbox.NewBindingBox().DeclareObject(0, "orders")
	tree := rootBoxTree(box)

	res, err := eval.Evaluate(context.Background(), log, tree, eval.Root, 0, variable.Empty())
	require.NoError(t, err)
	assert.Nil(t, res.OwnViolation)

	byNode := eval.ByNode(res.Situations)
	rootSituations := byNode[0]
	assert.Len(t, rootSituations, 2, "situationCount must equal the number of orders objects")
	for _, s := range rootSituations {
		assert.Nil(t, s.Violation)
	}
}

func TestEvaluateSizeConstraintTooFew(t *testing.T) {
	log := twoOrdersLog()
	// A root box introducing no variables, whose single child box binds
	// "orders" objects but is required to expand to at least 10 of them —
	// a bound the 2-object fixture log can never satisfy.
	innerBox := bbox.NewBindingBox().DeclareObject(0, "orders")
	rootBox := bbox.NewBindingBox()

	tree := bbox.NewTree()
	childIdx := tree.AddNode(bbox.NewBox(innerBox))
	rootIdx := tree.AddNode(bbox.NewBox(rootBox, childIdx))
	min := 10
	tree.SetSize(rootIdx, childIdx, &min, nil)

	res, err := eval.Evaluate(context.Background(), log, tree, eval.Root, rootIdx, variable.Empty())
	require.NoError(t, err)
	require.NotNil(t, res.OwnViolation)
	assert.Equal(t, bbox.ChildUnsat, *res.OwnViolation)

	byNode := eval.ByNode(res.Situations)
	childSituations := byNode[childIdx]
	require.Len(t, childSituations, 1)
	require.NotNil(t, childSituations[0].Violation)
	assert.Equal(t, bbox.TooFewMatching, *childSituations[0].Violation)
}

func TestEvaluateAndCombinator(t *testing.T) {
	log := twoOrdersLog()
	placeBox := bbox.NewBindingBox().DeclareEvent(0, "place order")
	payBox := bbox.NewBindingBox().DeclareEvent(0, "pay order")

	tree := bbox.NewTree()
	left := tree.AddNode(bbox.NewBox(placeBox))
	right := tree.AddNode(bbox.NewBox(payBox))
	root := tree.AddNode(bbox.NewAND(left, right))

	res, err := eval.Evaluate(context.Background(), log, tree, eval.Root, root, variable.Empty())
	require.NoError(t, err)
	assert.Nil(t, res.OwnViolation, "both branches have at least one satisfying binding")
}

func TestEvaluateNotCombinator(t *testing.T) {
	log := twoOrdersLog()
	// No event of this type exists, so the inner box always has zero
	// expansions but with no size constraint that isn't itself a violation;
	// use a size constraint requiring at least one match so the child
	// violates, and NOT flips that into a satisfaction.
	missingBox := bbox.NewBindingBox().DeclareEvent(0, "ship order")

	tree := bbox.NewTree()
	child := tree.AddNode(bbox.NewBox(missingBox))
	root := tree.AddNode(bbox.NewNOT(child))
	min := 1
	tree.SetSize(root, child, &min, nil)

	res, err := eval.Evaluate(context.Background(), log, tree, eval.Root, root, variable.Empty())
	require.NoError(t, err)
	assert.Nil(t, res.OwnViolation, "child violated (TooFewMatching), so NOT is satisfied")

	byNode := eval.ByNode(res.Situations)
	childSituations := byNode[child]
	require.Len(t, childSituations, 1, "the child's TooFew outcome must still surface in situations")
	require.NotNil(t, childSituations[0].Violation)
	assert.Equal(t, bbox.TooFewMatching, *childSituations[0].Violation)
}
