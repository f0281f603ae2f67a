package ocel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocpq-go/ocpq/ocel"
)

func fixtureLog(t *testing.T) *ocel.Log {
	t.Helper()
	now := time.Now()
	objects := []ocel.Object{
		{ID: "c1", Type: "customers"},
		{ID: "o1", Type: "orders", Relations: []ocel.Relation{{Qualifier: "places", ObjectID: "c1"}}},
		{ID: "o2", Type: "orders"},
	}
	events := []ocel.Event{
		{ID: "e1", Type: "place order", Time: now, Relations: []ocel.Relation{{Qualifier: "order", ObjectID: "o1"}}},
		{ID: "e2", Type: "pay order", Time: now.Add(21 * 24 * time.Hour), Relations: []ocel.Relation{{Qualifier: "order", ObjectID: "o1"}}},
		{ID: "e3", Type: "place order", Time: now, Relations: []ocel.Relation{{Qualifier: "order", ObjectID: "missing-object"}}},
	}
	return ocel.Build(events, objects)
}

func TestBuildIndexesByType(t *testing.T) {
	log := fixtureLog(t)
	require.Equal(t, 3, log.NumObjects())
	require.Equal(t, 3, log.NumEvents())

	orders := log.ObjectsOfType("orders")
	assert.Len(t, orders, 2)

	placeOrders := log.EventsOfType("place order")
	assert.Len(t, placeOrders, 2)
}

func TestBuildObjectEvents(t *testing.T) {
	log := fixtureLog(t)
	o1, ok := log.ObjectIndexByID("o1")
	require.True(t, ok)

	evs := log.EventsOfObject(o1)
	require.Len(t, evs, 2)
	assert.Equal(t, "e1", log.EventByIndex(evs[0]).ID)
	assert.Equal(t, "e2", log.EventByIndex(evs[1]).ID)
}

func TestBuildSymmetricNeighbors(t *testing.T) {
	log := fixtureLog(t)
	o1, _ := log.ObjectIndexByID("o1")
	c1, _ := log.ObjectIndexByID("c1")
	e1, _ := log.EventIndexByID("e1")

	objNeighbors := log.ObjectNeighbors(o1)
	var foundCustomer, foundEvent bool
	for _, n := range objNeighbors {
		if n.Kind == ocel.NeighborObject && ocel.ObjectIndex(n.Index) == c1 {
			foundCustomer = true
			assert.Equal(t, "places", n.Qualifier)
			assert.False(t, n.Reversed)
		}
		if n.Kind == ocel.NeighborEvent && ocel.EventIndex(n.Index) == e1 {
			foundEvent = true
			assert.True(t, n.Reversed)
		}
	}
	assert.True(t, foundCustomer)
	assert.True(t, foundEvent)

	evNeighbors := log.EventNeighbors(e1)
	require.Len(t, evNeighbors, 1)
	assert.Equal(t, ocel.NeighborObject, evNeighbors[0].Kind)
	assert.False(t, evNeighbors[0].Reversed)
}

func TestBuildReportsDanglingReferencesWithoutFailing(t *testing.T) {
	log := fixtureLog(t)
	require.NotNil(t, log)
	err := log.Warnings()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing-object")
	assert.Equal(t, 1, log.WarningCount())
}
