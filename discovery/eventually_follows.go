package discovery

import (
	"sort"

	"github.com/ocpq-go/ocpq/bbox"
	"github.com/ocpq-go/ocpq/ocel"
	"github.com/ocpq-go/ocpq/variable"
)

// EventuallyFollowsOptions parameterizes eventually-follows discovery.
// SampleFraction, SamplePopulationThreshold and MaxIterations fall back to
// spec.md §4.5's fixed constants when zero (see resolveSampling);
// CoverFraction has no default and is used as given.
type EventuallyFollowsOptions struct {
	ObjectTypes   []string
	CoverFraction float64
	// SampleFraction overrides the fraction of a large population to
	// sample (default 0.1).
	SampleFraction float64
	// SamplePopulationThreshold overrides the population size at which
	// sampling kicks in instead of taking every instance (default 1000).
	SamplePopulationThreshold int
	// MaxIterations overrides the interval-widening iteration cap
	// (default 10000).
	MaxIterations int
}

// EventuallyFollows is one discovered "every FromType event on a
// ObjectType instance is eventually followed, within [MinSec, MaxSec], by
// a ToType event on the same instance" rule.
type EventuallyFollows struct {
	ObjectType      string  `json:"objectType"`
	FromType        string  `json:"fromType"`
	ToType          string  `json:"toType"`
	MinSec          float64 `json:"minSec"`
	MaxSec          float64 `json:"maxSec"`
	SupportingCount int     `json:"supportingCount"`
	CoverFraction   float64 `json:"coverFraction"`
}

type efBucketKey struct {
	objectType string
	from, to   string
}

// DiscoverEventuallyFollows runs the procedure of spec.md §4.5: for each
// sampled instance, scan consecutive (prev, next) event-type pairs with no
// intervening occurrence of next, bucket the delay by (objectType, from,
// to), and fit a symmetric [mean-w, mean+w] interval per bucket.
func DiscoverEventuallyFollows(log *ocel.Log, opts EventuallyFollowsOptions) []EventuallyFollows {
	types := opts.ObjectTypes
	if len(types) == 0 {
		types = log.ObjectTypes()
	}
	fraction, threshold, maxIter := resolveSampling(opts.SampleFraction, opts.SamplePopulationThreshold, opts.MaxIterations)

	buckets := map[efBucketKey][]float64{}
	occurrences := map[[2]string]int{} // (objectType, fromType) -> how many times fromType occurred

	for _, t := range types {
		sample := sampleObjects(log.ObjectsOfType(t), fraction, threshold)
		for _, o := range sample {
			evs := append([]ocel.EventIndex(nil), log.EventsOfObject(o)...)
			sort.Slice(evs, func(i, j int) bool {
				return log.EventByIndex(evs[i]).Time.Before(log.EventByIndex(evs[j]).Time)
			})
			for i, prevIdx := range evs {
				prev := log.EventByIndex(prevIdx)
				occurrences[[2]string{t, prev.Type}]++
				for j := i + 1; j < len(evs); j++ {
					next := log.EventByIndex(evs[j])
					if hasIntervening(log, evs[i:j+1], next.Type) {
						continue
					}
					if next.Type == prev.Type {
						break
					}
					key := efBucketKey{objectType: t, from: prev.Type, to: next.Type}
					delay := next.Time.Sub(prev.Time).Seconds()
					buckets[key] = append(buckets[key], delay)
				}
			}
		}
	}

	var out []EventuallyFollows
	for _, key := range sortedEFKeys(buckets) {
		delays := buckets[key]
		total := occurrences[[2]string{key.objectType, key.from}]
		if total == 0 {
			continue
		}
		fraction := float64(len(delays)) / float64(total)
		if fraction < opts.CoverFraction {
			continue
		}
		mean, std := meanStd(delays)
		minSec, maxSec, cov, ok := fitEFInterval(delays, mean, std, opts.CoverFraction, maxIter)
		if !ok {
			continue
		}
		out = append(out, EventuallyFollows{
			ObjectType:      key.objectType,
			FromType:        key.from,
			ToType:          key.to,
			MinSec:          minSec,
			MaxSec:          maxSec,
			SupportingCount: supportCountF(delays, minSec, maxSec),
			CoverFraction:   cov,
		})
	}
	return out
}

// hasIntervening reports whether any event of window except the last one
// already has the given type. window holds the prev event at index 0 and
// the candidate next event at the last index, so prev itself is checked
// too: a next of prev's own type always counts as intervening.
func hasIntervening(log *ocel.Log, window []ocel.EventIndex, t string) bool {
	for _, idx := range window[:len(window)-1] {
		if log.EventByIndex(idx).Type == t {
			return true
		}
	}
	return false
}

func sortedEFKeys(m map[efBucketKey][]float64) []efBucketKey {
	out := make([]efBucketKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].objectType != out[j].objectType {
			return out[i].objectType < out[j].objectType
		}
		if out[i].from != out[j].from {
			return out[i].from < out[j].from
		}
		return out[i].to < out[j].to
	})
	return out
}

// fitEFInterval widens [mean-w, mean+w] by steps of 0.01*std until
// coverage is met, clamping min_sec >= 0, per spec.md §4.5.
func fitEFInterval(delays []float64, mean, std, target float64, maxIter int) (min, max, cov float64, ok bool) {
	step := 0.01 * std
	if step <= 0 {
		step = 1
	}
	min, max = mean, mean
	for i := 0; i <= maxIter; i++ {
		c := coverage(delays, min, max)
		if c >= target {
			if min < 0 {
				min = 0
			}
			return min, max, c, true
		}
		min -= step
		max += step
	}
	return 0, 0, 0, false
}

func supportCountF(vals []float64, min, max float64) int {
	n := 0
	for _, v := range vals {
		if v >= min && v <= max {
			n++
		}
	}
	return n
}

// Tree materializes an EventuallyFollows rule as a two-node bbox.Tree: the
// root binds an anchor object of ObjectType and a FromType event related
// to it; the child box binds a ToType event related to the same object,
// restricted by a TBE filter to [MinSec, MaxSec].
func (e EventuallyFollows) Tree() *bbox.Tree {
	t := bbox.NewTree()
	t.AddNode(bbox.Node{})

	min, max := e.MinSec, e.MaxSec
	childBox := bbox.NewBindingBox().
		DeclareEvent(1, e.ToType).
		AddFilter(bbox.NewO2E(variable.Ob(0), variable.Ev(1), nil)).
		AddFilter(bbox.NewTBE(variable.Ev(0), variable.Ev(1), bbox.SecondsRange{Min: &min, Max: &max}))
	child := t.AddNode(bbox.NewBox(childBox))

	rootBox := bbox.NewBindingBox().
		DeclareObject(0, e.ObjectType).
		DeclareEvent(0, e.FromType).
		AddFilter(bbox.NewO2E(variable.Ob(0), variable.Ev(0), nil))
	t.Nodes[0] = bbox.NewBox(rootBox, child)

	minCount := 1
	t.SetSize(0, child, &minCount, nil)
	return t
}
