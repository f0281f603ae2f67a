package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocpq-go/ocpq/bbox"
	"github.com/ocpq-go/ocpq/planner"
	"github.com/ocpq-go/ocpq/variable"
)

func TestPlanUnfilteredTypeBind(t *testing.T) {
	b := bbox.NewBindingBox().DeclareObject(0, "orders")
	steps, err := planner.Plan(b, nil)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, planner.BindOb, steps[0].Kind)
	assert.Equal(t, 0, steps[0].ObjectVar)
}

func TestPlanO2EFilterBindsEventFirst(t *testing.T) {
	b := bbox.NewBindingBox().
		DeclareObject(0, "orders").
		DeclareEvent(0, "place order").
		AddFilter(bbox.NewO2E(variable.Ob(0), variable.Ev(0), nil))

	steps, err := planner.Plan(b, nil)
	require.NoError(t, err)

	// Every variable must receive exactly one Bind step, and the object
	// must be joined from the event rather than scanned by type, since the
	// O2E filter offers a cheaper qualified join (spec.md scenario 2).
	var sawBindEv, sawBindObFromEv bool
	for _, s := range steps {
		switch s.Kind {
		case planner.BindEv:
			sawBindEv = true
		case planner.BindObFromEv:
			sawBindObFromEv = true
			assert.Equal(t, variable.Ev(0), s.FromVar)
		case planner.BindOb:
			t.Fatalf("did not expect a bare BindOb when a qualified join is available")
		}
	}
	assert.True(t, sawBindEv)
	assert.True(t, sawBindObFromEv)

	// The event bind step must precede the object-from-event step.
	evPos, obPos := -1, -1
	for i, s := range steps {
		if s.Kind == planner.BindEv {
			evPos = i
		}
		if s.Kind == planner.BindObFromEv {
			obPos = i
		}
	}
	assert.Less(t, evPos, obPos)
}

func TestPlanNeverDropsAFilter(t *testing.T) {
	min := 0.0
	max := 60.0 * 60 * 24 * 21
	b := bbox.NewBindingBox().
		DeclareEvent(0, "place order").
		DeclareEvent(1, "pay order").
		AddFilter(bbox.NewTBE(variable.Ev(0), variable.Ev(1), bbox.SecondsRange{Min: &min, Max: &max}))

	steps, err := planner.Plan(b, nil)
	require.NoError(t, err)

	var filterCount int
	for _, s := range steps {
		if s.Kind == planner.Filter {
			filterCount++
		}
	}
	assert.Equal(t, 1, filterCount)
}

func TestPlanFreeVariablesAreTreatedAsBound(t *testing.T) {
	b := bbox.NewBindingBox().
		DeclareEvent(0, "pay order").
		AddFilter(bbox.NewTBE(variable.Ev(1), variable.Ev(0), bbox.SecondsRange{}))

	free := map[variable.Variable]struct{}{variable.Ev(1): {}}
	steps, err := planner.Plan(b, free)
	require.NoError(t, err)

	for _, s := range steps {
		if s.Kind == planner.BindEv {
			assert.Equal(t, 0, s.EventVar, "only the box's own declared variable should get a Bind step")
		}
	}
}

func TestPlanRejectsUnboundFilterVariable(t *testing.T) {
	b := bbox.NewBindingBox().
		DeclareEvent(0, "pay order").
		AddFilter(bbox.NewTBE(variable.Ev(1), variable.Ev(0), bbox.SecondsRange{}))

	_, err := planner.Plan(b, nil)
	require.Error(t, err)
	var bug *planner.BugError
	assert.ErrorAs(t, err, &bug)
}
