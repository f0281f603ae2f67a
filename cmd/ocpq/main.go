// Command ocpq is the driver (L7 of spec.md §2/§4.6): it loads an OCEL log
// and a binding-box tree document from disk, invokes the evaluator or the
// discovery engine, and writes a result document. See the teacher's
// driver/_example/main.go for the shape this mirrors (open inputs, build
// an engine, run it, write output, non-zero exit on failure).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ocpq-go/ocpq"
	"github.com/ocpq-go/ocpq/bbox"
	"github.com/ocpq-go/ocpq/discovery"
	"github.com/ocpq-go/ocpq/ocel"
	"github.com/ocpq-go/ocpq/ocelio"
	"github.com/ocpq-go/ocpq/resultdoc"
	"github.com/ocpq-go/ocpq/telemetry"
)

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Error("ocpq failed")
		os.Exit(1)
	}
}

// options holds the parsed CLI surface of spec.md §6: --ocel and
// --bbox-tree are the two required flags; --discover, --discover-options,
// --object-types and --log-level are the ambient/domain-stack additions
// SPEC_FULL.md §8 lists.
type options struct {
	ocelPath     string
	bboxTreePath string
	discoverMode string
	discoverOpts string
	objectTypes  []string
	logLevel     string
}

func parseFlags() options {
	var o options
	pflag.StringVar(&o.ocelPath, "ocel", "", "path to the OCEL 2.0 log (required)")
	pflag.StringVar(&o.bboxTreePath, "bbox-tree", "", "path to the binding-box tree document (required unless --discover is set)")
	pflag.StringVar(&o.discoverMode, "discover", "", `run discovery instead of evaluation: "count" or "eventually-follows"`)
	pflag.StringVar(&o.discoverOpts, "discover-options", "", "optional YAML file tuning discovery's sample fraction/coverage/iteration cap")
	pflag.StringSliceVar(&o.objectTypes, "object-types", nil, "restrict discovery to these object types (default: every type in the log)")
	pflag.StringVar(&o.logLevel, "log-level", "warn", "logrus level: trace, debug, info, warn, error")
	pflag.Parse()
	return o
}

func run() error {
	o := parseFlags()

	logger := logrus.New()
	level, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		return errors.Wrapf(err, "parsing --log-level %q", o.logLevel)
	}
	logger.SetLevel(level)

	if o.ocelPath == "" {
		return errors.New("--ocel is required")
	}
	if o.discoverMode == "" && o.bboxTreePath == "" {
		return errors.New("--bbox-tree is required unless --discover is set")
	}

	log, recorder, err := loadLog(o.ocelPath, logger)
	if err != nil {
		return err
	}

	var doc interface{}
	if o.discoverMode != "" {
		doc, err = runDiscovery(log, recorder, o)
	} else {
		doc, err = runEvaluate(context.Background(), log, logger, o.bboxTreePath)
	}
	if err != nil {
		return err
	}

	return writeResult(doc)
}

func loadLog(path string, logger *logrus.Logger) (*ocel.Log, *telemetry.Recorder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening ocel log %s", path)
	}
	defer f.Close()

	events, objects, err := ocelio.Load(f)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "parsing ocel log %s", path)
	}

	recorder := telemetry.NewRecorder(logger)
	log := ocpq.BuildLog(events, objects, recorder)
	if warn := log.Warnings(); warn != nil {
		recorder.Warning("log built with schema warnings", warn)
	}
	return log, recorder, nil
}

// runEvaluate decodes the bbox tree document and evaluates its root node
// against log, per spec.md §4.6 ("invokes the evaluator... writes a result
// document containing the per-node evaluation with situations").
func runEvaluate(ctx context.Context, log *ocel.Log, logger *logrus.Logger, bboxTreePath string) (resultdoc.Document, error) {
	tf, err := os.Open(bboxTreePath)
	if err != nil {
		return resultdoc.Document{}, errors.Wrapf(err, "opening bbox tree %s", bboxTreePath)
	}
	defer tf.Close()

	var tree bbox.Tree
	if err := json.NewDecoder(tf).Decode(&tree); err != nil {
		return resultdoc.Document{}, errors.Wrapf(err, "decoding bbox tree %s", bboxTreePath)
	}

	engine := ocpq.NewEngine(log, ocpq.Config{Logger: logger})
	root, err := engine.Evaluate(ctx, &tree)
	if err != nil {
		return resultdoc.Document{}, errors.Wrap(err, "evaluating tree")
	}
	return resultdoc.Build(log, 0, root), nil
}

// discoveryDocument is the driver's output shape for --discover runs: the
// discovery kind and a flat list of the discovered constraints. The
// bbox.Tree each constraint materializes (via its Tree method) is not
// included, so the output is not a tree document for --bbox-tree.
type discoveryDocument struct {
	Kind              string                        `json:"kind"`
	CountConstraints  []discovery.CountConstraint   `json:"countConstraints,omitempty"`
	EventuallyFollows []discovery.EventuallyFollows `json:"eventuallyFollows,omitempty"`
}

// runDiscovery exercises L6 directly: it loads (or defaults) discovery
// options, runs the requested discovery family over log, and records the
// outcome via recorder, per spec.md §4.5/§7 ("Discovery: never raises").
func runDiscovery(log *ocel.Log, recorder *telemetry.Recorder, o options) (discoveryDocument, error) {
	opts, err := discovery.LoadOptions(o.discoverOpts)
	if err != nil {
		return discoveryDocument{}, err
	}

	start := time.Now()
	switch o.discoverMode {
	case "count":
		constraints := discovery.DiscoverCount(log, discovery.CountOptions{
			ObjectTypes:               o.objectTypes,
			CoverFraction:             opts.CoverFraction,
			SampleFraction:            opts.SampleFraction,
			SamplePopulationThreshold: opts.SamplePopulationThreshold,
			MaxIterations:             opts.MaxIterations,
		})
		recorder.DiscoveryRun("count", len(constraints), time.Since(start))
		return discoveryDocument{Kind: "count", CountConstraints: constraints}, nil
	case "eventually-follows":
		constraints := discovery.DiscoverEventuallyFollows(log, discovery.EventuallyFollowsOptions{
			ObjectTypes:               o.objectTypes,
			CoverFraction:             opts.CoverFraction,
			SampleFraction:            opts.SampleFraction,
			SamplePopulationThreshold: opts.SamplePopulationThreshold,
			MaxIterations:             opts.MaxIterations,
		})
		recorder.DiscoveryRun("eventually-follows", len(constraints), time.Since(start))
		return discoveryDocument{Kind: "eventually-follows", EventuallyFollows: constraints}, nil
	default:
		return discoveryDocument{}, errors.Errorf(`unrecognized --discover mode %q (want "count" or "eventually-follows")`, o.discoverMode)
	}
}

// writeResult marshals doc and writes it to ocpq-res-export-<RFC3339>.json
// in the current directory, matching spec.md §6's CLI surface exactly.
func writeResult(doc interface{}) error {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling result document")
	}
	name := fmt.Sprintf("ocpq-res-export-%s.json", time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(name, out, 0o644); err != nil {
		return errors.Wrapf(err, "writing result document %s", name)
	}
	return nil
}
