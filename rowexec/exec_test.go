package rowexec_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocpq-go/ocpq/bbox"
	"github.com/ocpq-go/ocpq/ocel"
	"github.com/ocpq-go/ocpq/planner"
	"github.com/ocpq-go/ocpq/rowexec"
	"github.com/ocpq-go/ocpq/variable"
)

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// fixtureLog builds a tiny order/payment log: one order object, a "place
// order" event and a "pay order" event each related to it via the "order"
// qualifier, 2 hours apart.
func fixtureLog() *ocel.Log {
	events := []ocel.Event{
		{
			ID: "e1", Type: "place order", Time: mustTime("2024-01-01T00:00:00Z"),
			Relations: []ocel.Relation{{Qualifier: "order", ObjectID: "o1"}},
		},
		{
			ID: "e2", Type: "pay order", Time: mustTime("2024-01-01T02:00:00Z"),
			Relations: []ocel.Relation{{Qualifier: "order", ObjectID: "o1"}},
		},
	}
	objects := []ocel.Object{
		{ID: "o1", Type: "orders"},
	}
	return ocel.Build(events, objects)
}

func TestExecuteBindObByType(t *testing.T) {
	log := fixtureLog()
	b := bbox.NewBindingBox().DeclareObject(0, "orders")
	steps, err := planner.Plan(b, nil)
	require.NoError(t, err)

	out, err := rowexec.Execute(context.Background(), log, b, steps, []variable.Binding{variable.Empty()})
	require.NoError(t, err)
	require.Len(t, out, 1)
	idx, ok := out[0].Object(0)
	require.True(t, ok)
	assert.Equal(t, "o1", log.ObjectByIndex(idx).ID)
}

func TestExecuteO2EQualifiedJoin(t *testing.T) {
	log := fixtureLog()
	b := bbox.NewBindingBox().
		DeclareObject(0, "orders").
		DeclareEvent(0, "place order").
		AddFilter(bbox.NewO2E(variable.Ob(0), variable.Ev(0), nil))
	steps, err := planner.Plan(b, nil)
	require.NoError(t, err)

	out, err := rowexec.Execute(context.Background(), log, b, steps, []variable.Binding{variable.Empty()})
	require.NoError(t, err)
	require.Len(t, out, 1)
	evIdx, ok := out[0].Event(0)
	require.True(t, ok)
	assert.Equal(t, "e1", log.EventByIndex(evIdx).ID)
}

func TestExecuteTBEInclusiveBoundary(t *testing.T) {
	log := fixtureLog()
	min := 2.0 * 60 * 60
	b := bbox.NewBindingBox().
		DeclareEvent(0, "place order").
		DeclareEvent(1, "pay order").
		AddFilter(bbox.NewTBE(variable.Ev(0), variable.Ev(1), bbox.SecondsRange{Min: &min}))
	steps, err := planner.Plan(b, nil)
	require.NoError(t, err)

	out, err := rowexec.Execute(context.Background(), log, b, steps, []variable.Binding{variable.Empty()})
	require.NoError(t, err)
	require.Len(t, out, 1, "exactly 2h apart should satisfy an inclusive >= 2h bound")
}

func TestExecuteTBEExcludesOutOfRange(t *testing.T) {
	log := fixtureLog()
	min := 3.0 * 60 * 60
	b := bbox.NewBindingBox().
		DeclareEvent(0, "place order").
		DeclareEvent(1, "pay order").
		AddFilter(bbox.NewTBE(variable.Ev(0), variable.Ev(1), bbox.SecondsRange{Min: &min}))
	steps, err := planner.Plan(b, nil)
	require.NoError(t, err)

	out, err := rowexec.Execute(context.Background(), log, b, steps, []variable.Binding{variable.Empty()})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestExecuteBindEvFromObIntersectsType(t *testing.T) {
	log := fixtureLog()
	b := bbox.NewBindingBox().
		DeclareEvent(0, "pay order").
		AddFilter(bbox.NewO2E(variable.Ob(0), variable.Ev(0), nil))
	free := map[variable.Variable]struct{}{variable.Ob(0): {}}
	steps, err := planner.Plan(b, free)
	require.NoError(t, err)

	oIdx, _ := log.ObjectIndexByID("o1")
	parent := variable.Empty().WithObject(0, oIdx)
	out, err := rowexec.Execute(context.Background(), log, b, steps, []variable.Binding{parent})
	require.NoError(t, err)
	require.Len(t, out, 1)
	evIdx, ok := out[0].Event(0)
	require.True(t, ok)
	assert.Equal(t, "e2", log.EventByIndex(evIdx).ID)
}
