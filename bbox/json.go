package bbox

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ocpq-go/ocpq/variable"
)

// The wire shapes below mirror the tree document described in spec.md §6:
// nodes are tagged unions keyed by variant name, filters are tagged unions
// keyed by variant name, and size constraints are a flat list of
// ([parent,child],[min?,max?]) pairs rather than a JSON map (whose keys
// must be strings).

type wireBindingBox struct {
	NewEventVars     map[string][]string `json:"newEventVars"`
	NewObjectVars    map[string][]string `json:"newObjectVars"`
	FilterConstraint []wireFilter        `json:"filterConstraint"`
}

type wireFilter struct {
	ObjectAssociatedWithEvent  *[3]json.RawMessage `json:"ObjectAssociatedWithEvent,omitempty"`
	ObjectAssociatedWithObject *[3]json.RawMessage `json:"ObjectAssociatedWithObject,omitempty"`
	TimeBetweenEvents          *[3]json.RawMessage `json:"TimeBetweenEvents,omitempty"`
}

type wireNode struct {
	Box *wireBoxNode `json:"Box,omitempty"`
	OR  *[2]int      `json:"OR,omitempty"`
	AND *[2]int      `json:"AND,omitempty"`
	NOT *int         `json:"NOT,omitempty"`
}

type wireBoxNode struct {
	box      wireBindingBox
	children []int
}

func (w *wireBoxNode) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrap(err, "decoding Box node as [bindingBox, children]")
	}
	if err := json.Unmarshal(pair[0], &w.box); err != nil {
		return errors.Wrap(err, "decoding bindingBox")
	}
	if err := json.Unmarshal(pair[1], &w.children); err != nil {
		return errors.Wrap(err, "decoding Box node children")
	}
	return nil
}

func (w wireBoxNode) MarshalJSON() ([]byte, error) {
	children := w.children
	if children == nil {
		children = []int{}
	}
	return json.Marshal([2]interface{}{w.box, children})
}

type wireSizeEntry struct {
	Edge  [2]int          `json:"-"`
	Bound [2]*int         `json:"-"`
}

func (e *wireSizeEntry) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrap(err, "decoding size constraint entry")
	}
	if err := json.Unmarshal(pair[0], &e.Edge); err != nil {
		return errors.Wrap(err, "decoding size constraint edge")
	}
	if err := json.Unmarshal(pair[1], &e.Bound); err != nil {
		return errors.Wrap(err, "decoding size constraint bound")
	}
	return nil
}

func (e wireSizeEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{e.Edge, e.Bound})
}

type wireDocument struct {
	Nodes           []wireNode      `json:"nodes"`
	SizeConstraints []wireSizeEntry `json:"sizeConstraints"`
}

// UnmarshalJSON decodes a tree document per spec.md §6.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var doc wireDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, "decoding bbox tree document")
	}

	nodes := make([]Node, len(doc.Nodes))
	for i, wn := range doc.Nodes {
		n, err := wn.toNode()
		if err != nil {
			return errors.Wrapf(err, "decoding node %d", i)
		}
		nodes[i] = n
	}

	sizes := make(map[Edge]SizeConstraint, len(doc.SizeConstraints))
	for _, e := range doc.SizeConstraints {
		sizes[Edge{Parent: NodeIndex(e.Edge[0]), Child: NodeIndex(e.Edge[1])}] = SizeConstraint{
			Min: e.Bound[0],
			Max: e.Bound[1],
		}
	}

	t.Nodes = nodes
	t.SizeConstraints = sizes
	return nil
}

func (wn wireNode) toNode() (Node, error) {
	switch {
	case wn.Box != nil:
		bb, err := wn.Box.box.toBindingBox()
		if err != nil {
			return Node{}, err
		}
		children := make([]NodeIndex, len(wn.Box.children))
		for i, c := range wn.Box.children {
			children[i] = NodeIndex(c)
		}
		return Node{Kind: KindBox, Box: bb, Children: children}, nil
	case wn.OR != nil:
		return Node{Kind: KindOR, Left: NodeIndex(wn.OR[0]), Right: NodeIndex(wn.OR[1])}, nil
	case wn.AND != nil:
		return Node{Kind: KindAND, Left: NodeIndex(wn.AND[0]), Right: NodeIndex(wn.AND[1])}, nil
	case wn.NOT != nil:
		return Node{Kind: KindNOT, Child: NodeIndex(*wn.NOT)}, nil
	default:
		return Node{}, errors.New("tree node has no recognized variant (Box/OR/AND/NOT)")
	}
}

func (wb wireBindingBox) toBindingBox() (*BindingBox, error) {
	b := NewBindingBox()
	for k, types := range wb.NewEventVars {
		slot, err := strconv.Atoi(k)
		if err != nil {
			return nil, errors.Wrapf(err, "newEventVars key %q is not an integer slot", k)
		}
		b.DeclareEvent(slot, types...)
	}
	for k, types := range wb.NewObjectVars {
		slot, err := strconv.Atoi(k)
		if err != nil {
			return nil, errors.Wrapf(err, "newObjectVars key %q is not an integer slot", k)
		}
		b.DeclareObject(slot, types...)
	}
	for i, wf := range wb.FilterConstraint {
		f, err := wf.toFilter()
		if err != nil {
			return nil, errors.Wrapf(err, "filterConstraint[%d]", i)
		}
		b.AddFilter(f)
	}
	return b, nil
}

func (wf wireFilter) toFilter() (Filter, error) {
	switch {
	case wf.ObjectAssociatedWithEvent != nil:
		var obSlot, evSlot int
		var qualifier *string
		if err := decodeTriple((*wf.ObjectAssociatedWithEvent)[:], &obSlot, &evSlot, &qualifier); err != nil {
			return Filter{}, err
		}
		return NewO2E(variable.Ob(obSlot), variable.Ev(evSlot), qualifier), nil
	case wf.ObjectAssociatedWithObject != nil:
		var obSlot, otherSlot int
		var qualifier *string
		if err := decodeTriple((*wf.ObjectAssociatedWithObject)[:], &obSlot, &otherSlot, &qualifier); err != nil {
			return Filter{}, err
		}
		return NewO2O(variable.Ob(obSlot), variable.Ob(otherSlot), qualifier), nil
	case wf.TimeBetweenEvents != nil:
		var fromSlot, toSlot int
		var bound [2]*float64
		if err := decodeTriple((*wf.TimeBetweenEvents)[:2], &fromSlot, &toSlot); err != nil {
			return Filter{}, err
		}
		if err := json.Unmarshal((*wf.TimeBetweenEvents)[2], &bound); err != nil {
			return Filter{}, errors.Wrap(err, "decoding TimeBetweenEvents bound")
		}
		return NewTBE(variable.Ev(fromSlot), variable.Ev(toSlot), SecondsRange{Min: bound[0], Max: bound[1]}), nil
	default:
		return Filter{}, errors.New("filter constraint has no recognized variant")
	}
}

func decodeTriple(raw []json.RawMessage, targets ...interface{}) error {
	if len(raw) != len(targets) {
		return fmt.Errorf("expected %d elements, got %d", len(targets), len(raw))
	}
	for i, t := range targets {
		if err := json.Unmarshal(raw[i], t); err != nil {
			return errors.Wrapf(err, "decoding element %d", i)
		}
	}
	return nil
}
