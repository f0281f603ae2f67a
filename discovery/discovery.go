// Package discovery infers count and eventually-follows constraints from
// an ocel.Log by sampling instances and statistically fitting integer or
// duration ranges that achieve a target coverage fraction, per spec.md
// §4.5. Discovered constraints are materialized as small bbox.Tree
// fragments ready to feed the evaluator.
package discovery

import (
	"encoding/json"
	"math"
	"math/rand"
	"sort"

	"github.com/ocpq-go/ocpq/ocel"
)

// Seed is the fixed PRNG seed for the deterministic instance sampler.
// Two discovery runs against the same log must draw the same sample.
const Seed int64 = 0x00CA8A32

// maxIterations bounds the interval-widening loops so a coverage target
// that can never be reached cannot spin forever.
const maxIterations = 10000

// Direction classifies a neighbor relative to the instance being counted
// from, since an object's symmetric neighborhood mixes O2O-forward,
// O2O-reverse and O2E entries.
type Direction int

const (
	DirObjectForward Direction = iota
	DirObjectReverse
	DirEvent
)

func (d Direction) String() string {
	switch d {
	case DirObjectForward:
		return "objectForward"
	case DirObjectReverse:
		return "objectReverse"
	case DirEvent:
		return "event"
	default:
		return "unknown"
	}
}

// MarshalJSON renders a Direction as its name rather than its ordinal, so
// a written discovery result document is self-describing.
func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// NeighborKey buckets a count vector entry by the neighbor's direction and
// type, per spec.md §4.5 step 2.
type NeighborKey struct {
	Direction Direction `json:"direction"`
	Type      string    `json:"type"`
}

// sampleObjects draws the deterministic subset described in spec.md §4.5
// step 1: `fraction` of the population once it reaches `threshold`
// members, otherwise every member. Sampling uses a seeded PRNG so repeated
// runs against the same log draw the same subset.
func sampleObjects(all []ocel.ObjectIndex, fraction float64, threshold int) []ocel.ObjectIndex {
	if len(all) < threshold {
		out := make([]ocel.ObjectIndex, len(all))
		copy(out, all)
		return out
	}
	k := int(math.Round(float64(len(all)) * fraction))
	if k < 1 {
		k = 1
	}
	r := rand.New(rand.NewSource(Seed))
	perm := r.Perm(len(all))
	out := make([]ocel.ObjectIndex, k)
	for i := 0; i < k; i++ {
		out[i] = all[perm[i]]
	}
	return out
}

// neighborCountVectors computes, for every sampled object, a count per
// NeighborKey observed in its symmetric neighborhood. Keys absent from an
// object's neighborhood are recorded as zero so mean/std reflect the full
// sample.
func neighborCountVectors(log *ocel.Log, sample []ocel.ObjectIndex) map[NeighborKey][]float64 {
	perObject := make([]map[NeighborKey]int, len(sample))
	keySet := map[NeighborKey]struct{}{}
	for i, o := range sample {
		counts := map[NeighborKey]int{}
		for _, n := range log.ObjectNeighbors(o) {
			var key NeighborKey
			switch {
			case n.Kind == ocel.NeighborEvent:
				key = NeighborKey{Direction: DirEvent, Type: log.EventByIndex(ocel.EventIndex(n.Index)).Type}
			case n.Kind == ocel.NeighborObject && !n.Reversed:
				key = NeighborKey{Direction: DirObjectForward, Type: log.ObjectByIndex(ocel.ObjectIndex(n.Index)).Type}
			default:
				key = NeighborKey{Direction: DirObjectReverse, Type: log.ObjectByIndex(ocel.ObjectIndex(n.Index)).Type}
			}
			counts[key]++
			keySet[key] = struct{}{}
		}
		perObject[i] = counts
	}

	out := make(map[NeighborKey][]float64, len(keySet))
	for key := range keySet {
		vec := make([]float64, len(sample))
		for i, counts := range perObject {
			vec[i] = float64(counts[key])
		}
		out[key] = vec
	}
	return out
}

func meanStd(vals []float64) (mean, std float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean = sum / float64(len(vals))
	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	std = math.Sqrt(sq / float64(len(vals)))
	return mean, std
}

// coverage reports the fraction of vals that fall in [min, max].
func coverage(vals []float64, min, max float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	n := 0
	for _, v := range vals {
		if v >= min && v <= max {
			n++
		}
	}
	return float64(n) / float64(len(vals))
}

// sortedNeighborKeys returns m's keys in a deterministic order, since Go map
// iteration order is randomized and discovery output must be reproducible.
func sortedNeighborKeys(m map[NeighborKey][]float64) []NeighborKey {
	out := make([]NeighborKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Direction != out[j].Direction {
			return out[i].Direction < out[j].Direction
		}
		return out[i].Type < out[j].Type
	})
	return out
}
