package resultdoc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocpq-go/ocpq/bbox"
	"github.com/ocpq-go/ocpq/eval"
	"github.com/ocpq-go/ocpq/ocel"
	"github.com/ocpq-go/ocpq/resultdoc"
	"github.com/ocpq-go/ocpq/variable"
)

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBuildProducesNonEmptyRunID(t *testing.T) {
	events := []ocel.Event{{ID: "e1", Type: "place order", Time: mustTime("2024-01-01T00:00:00Z")}}
	objects := []ocel.Object{{ID: "o1", Type: "orders"}}
	log := ocel.Build(events, objects)

	box := bbox.NewBindingBox().DeclareObject(0, "orders")
	tree := bbox.NewTree()
	root := tree.AddNode(bbox.NewBox(box))

	res, err := eval.Evaluate(context.Background(), log, tree, eval.Root, root, variable.Empty())
	require.NoError(t, err)

	doc := resultdoc.Build(log, root, res)
	assert.NotEmpty(t, doc.RunID)
	assert.Equal(t, []string{"e1"}, doc.EventIDs)
	assert.Equal(t, []string{"o1"}, doc.ObjectIDs)
	assert.Contains(t, doc.EvaluationResults, "0")
}
