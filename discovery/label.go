package discovery

import (
	"context"

	"github.com/ocpq-go/ocpq/bbox"
	"github.com/ocpq-go/ocpq/eval"
	"github.com/ocpq-go/ocpq/ocel"
	"github.com/ocpq-go/ocpq/variable"
)

// InstanceLabel records whether one sampled instance satisfied a candidate
// tree, for scoring that candidate before it is accepted as a discovered
// constraint.
type InstanceLabel struct {
	Object   ocel.ObjectIndex `json:"object"`
	Violated bool             `json:"violated"`
}

// LabelInstances draws the same deterministic sample DiscoverCount and
// DiscoverEventuallyFollows would for objectType, binds each sampled
// instance to candidate's root anchor slot, evaluates candidate against
// it, and records whether the root produced a violation. This mirrors
// original_source's advanced-discovery labeling step (SPEC_FULL.md
// "Supplemented Features"): it lets a caller score a candidate subtree
// combination (e.g. a count constraint AND'd with an eventually-follows
// constraint) against the sample before accepting it, without re-running
// the sampler.
func LabelInstances(ctx context.Context, log *ocel.Log, objectType string, candidate *bbox.Tree, anchorSlot int, opts Options) ([]InstanceLabel, error) {
	fraction, threshold, _ := resolveSampling(opts.SampleFraction, opts.SamplePopulationThreshold, opts.MaxIterations)
	sample := sampleObjects(log.ObjectsOfType(objectType), fraction, threshold)

	out := make([]InstanceLabel, 0, len(sample))
	for _, o := range sample {
		parent := variable.Empty().WithObject(anchorSlot, o)
		res, err := eval.Evaluate(ctx, log, candidate, eval.Root, 0, parent)
		if err != nil {
			return nil, err
		}
		out = append(out, InstanceLabel{Object: o, Violated: res.OwnViolation != nil})
	}
	return out, nil
}

// CoverageOf reports the fraction of labels that were NOT violated, the
// same coverage notion DiscoverCount/DiscoverEventuallyFollows optimize
// for, so a caller can compare a candidate combination's coverage against
// the CoverFraction of the constraints it was built from.
func CoverageOf(labels []InstanceLabel) float64 {
	if len(labels) == 0 {
		return 0
	}
	satisfied := 0
	for _, l := range labels {
		if !l.Violated {
			satisfied++
		}
	}
	return float64(satisfied) / float64(len(labels))
}
