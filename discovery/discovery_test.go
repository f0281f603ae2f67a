package discovery_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocpq-go/ocpq/discovery"
	"github.com/ocpq-go/ocpq/ocel"
)

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// ordersWithTwoItemsLog builds 5 orders, each related via an "order"
// qualifier to exactly 2 "place order" events, each of which also relates
// to its own "items" object via an "item" qualifier, so a count constraint
// of [2,2] over the "place order" event neighbor should be discoverable at
// 100% coverage.
func ordersWithTwoItemsLog() *ocel.Log {
	var events []ocel.Event
	var objects []ocel.Object
	for i := 0; i < 5; i++ {
		orderID := orderObjID(i)
		objects = append(objects, ocel.Object{ID: orderID, Type: "orders"})
		for j := 0; j < 2; j++ {
			itemID := itemObjID(i, j)
			objects = append(objects, ocel.Object{ID: itemID, Type: "items"})
			events = append(events, ocel.Event{
				ID:   placeItemEvID(i, j),
				Type: "place order",
				Time: mustTime("2024-01-01T00:00:00Z"),
				Relations: []ocel.Relation{
					{Qualifier: "order", ObjectID: orderID},
					{Qualifier: "item", ObjectID: itemID},
				},
			})
		}
	}
	return ocel.Build(events, objects)
}

func orderObjID(i int) string     { return "order-" + itoa(i) }
func itemObjID(i, j int) string   { return "item-" + itoa(i) + "-" + itoa(j) }
func placeItemEvID(i, j int) string { return "e-" + itoa(i) + "-" + itoa(j) }

func itoa(i int) string {
	digits := "0123456789"
	if i == 0 {
		return "0"
	}
	out := ""
	for i > 0 {
		out = string(digits[i%10]) + out
		i /= 10
	}
	return out
}

func TestDiscoverCountConstraintFixedFanout(t *testing.T) {
	log := ordersWithTwoItemsLog()
	constraints := discovery.DiscoverCount(log, discovery.CountOptions{
		ObjectTypes:   []string{"orders"},
		CoverFraction: 0.9,
	})
	require.NotEmpty(t, constraints)

	// Orders have no direct O2O relation to items in this fixture: both are
	// only related through the shared "place order" event, so the
	// discoverable neighbor is that event type, not the item object type.
	var found *discovery.CountConstraint
	for i := range constraints {
		c := constraints[i]
		if c.Neighbor.Direction == discovery.DirEvent && c.Neighbor.Type == "place order" {
			found = &constraints[i]
		}
	}
	require.NotNil(t, found, "expected a discovered constraint over the place order event neighbor")
	assert.LessOrEqual(t, found.Min, 2)
	assert.GreaterOrEqual(t, found.Max, 2)
	assert.GreaterOrEqual(t, found.CoverFraction, 0.9)
}

func TestDiscoverCountConstraintIsDeterministic(t *testing.T) {
	log := ordersWithTwoItemsLog()
	opts := discovery.CountOptions{ObjectTypes: []string{"orders"}, CoverFraction: 0.9}
	first := discovery.DiscoverCount(log, opts)
	second := discovery.DiscoverCount(log, opts)
	assert.Equal(t, first, second)
}

func TestDiscoverCountConstraintTreeShape(t *testing.T) {
	log := ordersWithTwoItemsLog()
	constraints := discovery.DiscoverCount(log, discovery.CountOptions{
		ObjectTypes:   []string{"orders"},
		CoverFraction: 0.9,
	})
	require.NotEmpty(t, constraints)
	tree := constraints[0].Tree()
	require.Len(t, tree.Nodes, 2)
	assert.NotNil(t, tree.Nodes[0].Box)
	assert.Len(t, tree.Nodes[0].Children, 1)
}

func TestLabelInstancesAllSatisfyFittedConstraint(t *testing.T) {
	log := ordersWithTwoItemsLog()
	constraints := discovery.DiscoverCount(log, discovery.CountOptions{
		ObjectTypes:   []string{"orders"},
		CoverFraction: 1.0,
	})
	require.NotEmpty(t, constraints)

	labels, err := discovery.LabelInstances(context.Background(), log, "orders", constraints[0].Tree(), 0, discovery.Options{})
	require.NoError(t, err)
	assert.Len(t, labels, 5)
	assert.Equal(t, 1.0, discovery.CoverageOf(labels))
}
