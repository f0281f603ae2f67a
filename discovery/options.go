package discovery

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// defaultSampleFraction and defaultSamplePopulationThreshold implement
// spec.md §4.5 step 1 verbatim: sample 10% of a population once it reaches
// 1000 instances, otherwise take every instance.
const (
	defaultSampleFraction            = 0.1
	defaultSamplePopulationThreshold = 1000
	defaultCoverFraction             = 0.9
)

// Options tunes the knobs spec.md §4.5 leaves as constants (sample
// fraction, the population size at which sampling kicks in, the target
// coverage fraction, and the iteration cap on interval widening) without
// requiring a recompile. A zero Options behaves exactly like spec.md's
// fixed constants; LoadOptions lets an operator override a subset of them
// from a small YAML file, the same way the teacher's analyzer rule options
// are tuned via config rather than code (cue-lang-cue and
// gardener-gardener both decode their tunables with this library).
type Options struct {
	SampleFraction            float64 `yaml:"sampleFraction"`
	SamplePopulationThreshold int     `yaml:"samplePopulationThreshold"`
	CoverFraction             float64 `yaml:"coverFraction"`
	MaxIterations             int     `yaml:"maxIterations"`
}

// DefaultOptions returns the constants spec.md §4.5 hardcodes.
func DefaultOptions() Options {
	return Options{
		SampleFraction:            defaultSampleFraction,
		SamplePopulationThreshold: defaultSamplePopulationThreshold,
		CoverFraction:             defaultCoverFraction,
		MaxIterations:             maxIterations,
	}
}

// LoadOptions reads a YAML document at path and overlays it onto
// DefaultOptions; fields absent from the document keep their default
// value. An empty path is not an error — it simply returns the defaults,
// so callers can wire an optional "--discover-options" flag straight
// through without a presence check of their own.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	if path == "" {
		return opts, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Options{}, errors.Wrapf(err, "opening discovery options file %s", path)
	}
	defer f.Close()

	var overlay Options
	if err := yaml.NewDecoder(f).Decode(&overlay); err != nil {
		return Options{}, errors.Wrapf(err, "decoding discovery options file %s", path)
	}
	if overlay.SampleFraction != 0 {
		opts.SampleFraction = overlay.SampleFraction
	}
	if overlay.SamplePopulationThreshold != 0 {
		opts.SamplePopulationThreshold = overlay.SamplePopulationThreshold
	}
	if overlay.CoverFraction != 0 {
		opts.CoverFraction = overlay.CoverFraction
	}
	if overlay.MaxIterations != 0 {
		opts.MaxIterations = overlay.MaxIterations
	}
	return opts, nil
}

// resolveSampling fills in spec.md's defaults for any zero-valued field,
// so CountOptions/EventuallyFollowsOptions callers that only set
// CoverFraction (as every existing test does) still sample per spec.md
// §4.5 exactly.
func resolveSampling(fraction float64, threshold, maxIter int) (float64, int, int) {
	if fraction <= 0 {
		fraction = defaultSampleFraction
	}
	if threshold <= 0 {
		threshold = defaultSamplePopulationThreshold
	}
	if maxIter <= 0 {
		maxIter = maxIterations
	}
	return fraction, threshold, maxIter
}
