// Package ocelio loads the abstract Event/Object model an ocel.Log is
// built from out of a minimal JSON document. It is deliberately not a
// full OCEL 2.0 importer (bit-exact schema compliance, XML and SQLite
// backends are out of scope); it exists so the driver has something to
// read in place of the external import library the full system would use.
package ocelio

import (
	"encoding/json"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/ocpq-go/ocpq/ocel"
)

type wireRelation struct {
	Qualifier string `json:"qualifier"`
	ObjectID  string `json:"objectId"`
}

type wireAttrValue struct {
	Name      string      `json:"name"`
	Value     interface{} `json:"value"`
	ValidFrom *time.Time  `json:"validFrom,omitempty"`
}

type wireEvent struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Time       time.Time       `json:"time"`
	Attributes []wireAttrValue `json:"attributes"`
	Relations  []wireRelation  `json:"relations"`
}

type wireObject struct {
	ID         string                     `json:"id"`
	Type       string                     `json:"type"`
	Attributes map[string][]wireAttrValue `json:"attributes"`
	Relations  []wireRelation             `json:"relations"`
}

type wireLog struct {
	Events  []wireEvent  `json:"events"`
	Objects []wireObject `json:"objects"`
}

// Load decodes a minimal OCEL JSON document from r into the abstract
// Event/Object model ocel.Build consumes.
func Load(r io.Reader) ([]ocel.Event, []ocel.Object, error) {
	var doc wireLog
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, errors.Wrap(err, "decoding ocel document")
	}

	events := make([]ocel.Event, len(doc.Events))
	for i, we := range doc.Events {
		events[i] = ocel.Event{
			ID:         we.ID,
			Type:       we.Type,
			Time:       we.Time,
			Attributes: toAttrValues(we.Attributes),
			Relations:  toRelations(we.Relations),
		}
	}

	objects := make([]ocel.Object, len(doc.Objects))
	for i, wo := range doc.Objects {
		attrs := make(map[string][]ocel.AttrValue, len(wo.Attributes))
		for name, vals := range wo.Attributes {
			attrs[name] = toAttrValues(vals)
		}
		objects[i] = ocel.Object{
			ID:         wo.ID,
			Type:       wo.Type,
			Attributes: attrs,
			Relations:  toRelations(wo.Relations),
		}
	}

	return events, objects, nil
}

func toAttrValues(vals []wireAttrValue) []ocel.AttrValue {
	out := make([]ocel.AttrValue, len(vals))
	for i, v := range vals {
		out[i] = ocel.AttrValue{Name: v.Name, Value: v.Value, ValidFrom: v.ValidFrom}
	}
	return out
}

func toRelations(rels []wireRelation) []ocel.Relation {
	out := make([]ocel.Relation, len(rels))
	for i, r := range rels {
		out[i] = ocel.Relation{Qualifier: r.Qualifier, ObjectID: r.ObjectID}
	}
	return out
}
