package ocelio_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocpq-go/ocpq/ocelio"
)

const sampleDoc = `{
	"events": [
		{
			"id": "e1",
			"type": "place order",
			"time": "2024-01-01T00:00:00Z",
			"relations": [{"qualifier": "order", "objectId": "o1"}]
		}
	],
	"objects": [
		{
			"id": "o1",
			"type": "orders",
			"attributes": {"status": [{"name": "status", "value": "open"}]},
			"relations": []
		}
	]
}`

func TestLoadDecodesEventsAndObjects(t *testing.T) {
	events, objects, err := ocelio.Load(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, objects, 1)

	assert.Equal(t, "e1", events[0].ID)
	assert.Equal(t, "place order", events[0].Type)
	require.Len(t, events[0].Relations, 1)
	assert.Equal(t, "o1", events[0].Relations[0].ObjectID)

	assert.Equal(t, "orders", objects[0].Type)
	require.Contains(t, objects[0].Attributes, "status")
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	_, _, err := ocelio.Load(strings.NewReader("not json"))
	require.Error(t, err)
}
