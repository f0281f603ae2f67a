package discovery

import (
	"math"
	"sort"

	"github.com/ocpq-go/ocpq/bbox"
	"github.com/ocpq-go/ocpq/ocel"
	"github.com/ocpq-go/ocpq/variable"
)

// CountOptions parameterizes count-constraint discovery. SampleFraction,
// SamplePopulationThreshold and MaxIterations fall back to spec.md §4.5's
// fixed constants when zero (see resolveSampling); CoverFraction has no
// default and is used as given. A caller that only cares about the
// coverage target, as every existing test does, need not set anything else.
type CountOptions struct {
	// ObjectTypes restricts discovery to these object types. Empty means
	// every object type in the log.
	ObjectTypes []string
	// CoverFraction is the minimum fraction of sampled instances an
	// interval must cover to be accepted.
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

// CountConstraint is one discovered "for every instance of ObjectType, the
// number of related NeighborKey instances lies in [Min, Max]" rule.
type CountConstraint struct {
	ObjectType string      `json:"objectType"`
	Neighbor   NeighborKey `json:"neighbor"`
	Min        int         `json:"min"`
	Max        int         `json:"max"`
	// SupportingCount is how many sampled instances fall within [Min,Max].
	SupportingCount int `json:"supportingCount"`
	// CoverFraction is SupportingCount / len(sample).
	CoverFraction float64 `json:"coverFraction"`
}

// DiscoverCount runs count-constraint discovery per spec.md §4.5. The
// result is empty, never an error, if no object type or neighbor key
// reaches the required coverage (spec.md §7, "Discovery: never raises").
func DiscoverCount(log *ocel.Log, opts CountOptions) []CountConstraint {
	types := opts.ObjectTypes
	if len(types) == 0 {
		// log.ObjectTypes() iterates a map, so its order is randomized per
		// run; sort it so that two runs with identical options (spec.md §8
		// scenario 6) emit constraints in the same order. A caller-supplied
		// ObjectTypes is taken as given, since that order is the caller's
		// to control.
		types = log.ObjectTypes()
		sort.Strings(types)
	}
	fraction, threshold, maxIter := resolveSampling(opts.SampleFraction, opts.SamplePopulationThreshold, opts.MaxIterations)

	var out []CountConstraint
	for _, t := range types {
		sample := sampleObjects(log.ObjectsOfType(t), fraction, threshold)
		if len(sample) == 0 {
			continue
		}
		vectors := neighborCountVectors(log, sample)
		for _, key := range sortedNeighborKeys(vectors) {
			counts := vectors[key]
			mean, std := meanStd(counts)
			if mean <= 0 || mean > 30 {
				continue
			}
			c, ok := fitCountInterval(counts, mean, std, opts.CoverFraction, maxIter)
			if !ok {
				continue
			}
			out = append(out, CountConstraint{
				ObjectType:      t,
				Neighbor:        key,
				Min:             c.min,
				Max:             c.max,
				SupportingCount: c.supporting,
				CoverFraction:   c.coverage,
			})
		}
	}
	return out
}

type candidateInterval struct {
	min, max   int
	coverage   float64
	supporting int
}

// fitCountInterval implements spec.md §4.5 step 4-5: grow three candidate
// intervals from different anchors until each reaches the coverage
// target (bounded by maxIterations), then keep the narrowest non-dominated
// result.
func fitCountInterval(counts []float64, mean, std, target float64, maxIter int) (candidateInterval, bool) {
	step := int(math.Round(0.01 * std))
	if step < 1 {
		step = 1
	}

	var candidates []candidateInterval

	if c, ok := growSymmetric(counts, mean, step, target, maxIter); ok {
		candidates = append(candidates, c)
	}
	if c, ok := growFromZero(counts, mean, step, target, maxIter); ok {
		candidates = append(candidates, c)
	}
	if c, ok := growFromDouble(counts, mean, step, target, maxIter); ok {
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return candidateInterval{}, false
	}
	return narrowestNonDominated(candidates), true
}

// growSymmetric expands [min,max] outward from round(mean) by step on
// both sides simultaneously.
func growSymmetric(counts []float64, mean float64, step int, target float64, maxIter int) (candidateInterval, bool) {
	center := int(math.Round(mean))
	min, max := center, center
	for i := 0; i <= maxIter; i++ {
		cov := coverage(counts, float64(min), float64(max))
		if cov >= target {
			return candidateInterval{min: min, max: max, coverage: cov, supporting: supportCount(counts, min, max)}, true
		}
		min -= step
		max += step
		if min < 0 {
			min = 0
		}
	}
	return candidateInterval{}, false
}

// growFromZero keeps min fixed at 0 and grows max upward.
func growFromZero(counts []float64, mean float64, step int, target float64, maxIter int) (candidateInterval, bool) {
	max := int(math.Round(mean))
	if max < 0 {
		max = 0
	}
	for i := 0; i <= maxIter; i++ {
		cov := coverage(counts, 0, float64(max))
		if cov >= target {
			return candidateInterval{min: 0, max: max, coverage: cov, supporting: supportCount(counts, 0, max)}, true
		}
		max += step
	}
	return candidateInterval{}, false
}

// growFromDouble keeps max fixed at round(2*mean) and shrinks min downward
// toward 0 (i.e. grows the interval from above).
func growFromDouble(counts []float64, mean float64, step int, target float64, maxIter int) (candidateInterval, bool) {
	max := int(math.Round(2 * mean))
	min := max
	for i := 0; i <= maxIter; i++ {
		cov := coverage(counts, float64(min), float64(max))
		if cov >= target {
			return candidateInterval{min: min, max: max, coverage: cov, supporting: supportCount(counts, min, max)}, true
		}
		min -= step
		if min < 0 {
			min = 0
			// min can go no lower; if coverage still unmet, this anchor
			// cannot reach target without growing max, which the "2μ
			// downward" anchor intentionally leaves fixed.
			cov = coverage(counts, float64(min), float64(max))
			if cov >= target {
				return candidateInterval{min: min, max: max, coverage: cov, supporting: supportCount(counts, min, max)}, true
			}
			return candidateInterval{}, false
		}
	}
	return candidateInterval{}, false
}

func supportCount(counts []float64, min, max int) int {
	n := 0
	for _, v := range counts {
		if v >= float64(min) && v <= float64(max) {
			n++
		}
	}
	return n
}

// narrowestNonDominated drops any candidate strictly wider than another
// (per spec.md §4.5 step 5) and returns the remaining narrowest interval.
func narrowestNonDominated(candidates []candidateInterval) candidateInterval {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if width(c) < width(best) {
			best = c
		}
	}
	return best
}

func width(c candidateInterval) int { return c.max - c.min }

// Tree materializes a CountConstraint as a two-node bbox.Tree: the root
// introduces the anchor object variable of ObjectType, and its child box
// binds the neighbor's type with a size constraint enforcing [Min, Max]
// (spec.md §4.5, "Outputs").
func (c CountConstraint) Tree() *bbox.Tree {
	t := bbox.NewTree()
	// Reserve index 0 for the root; Tree requires the root at node 0, but
	// the root node's Children must name the child's index, so the child
	// is appended first and the root is patched in afterward.
	t.AddNode(bbox.Node{})

	var childBox *bbox.BindingBox
	switch c.Neighbor.Direction {
	case DirEvent:
		childBox = bbox.NewBindingBox().
			DeclareEvent(0, c.Neighbor.Type).
			AddFilter(bbox.NewO2E(variable.Ob(0), variable.Ev(0), nil))
	case DirObjectReverse:
		// The anchor (ob0) sits on the reverse side of the relation, i.e.
		// the neighbor (ob1) is the one with a forward edge to it; since
		// bbox.Filter has no direction field of its own, that's expressed
		// by swapping which variable is Object vs. OtherObject (see
		// rowexec.filterHolds's O2O case, which only checks the forward
		// direction from Filter.Object).
		childBox = bbox.NewBindingBox().
			DeclareObject(1, c.Neighbor.Type).
			AddFilter(bbox.NewO2O(variable.Ob(1), variable.Ob(0), nil))
	default:
		childBox = bbox.NewBindingBox().
			DeclareObject(1, c.Neighbor.Type).
			AddFilter(bbox.NewO2O(variable.Ob(0), variable.Ob(1), nil))
	}
	child := t.AddNode(bbox.NewBox(childBox))

	rootBox := bbox.NewBindingBox().DeclareObject(0, c.ObjectType)
	t.Nodes[0] = bbox.NewBox(rootBox, child)

	min, max := c.Min, c.Max
	t.SetSize(0, child, &min, &max)
	return t
}
