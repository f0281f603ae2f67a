// Package ocpq wires the indexed log, binding-box tree and evaluator into
// a single entry point, the way the teacher's engine.go composes a SQL
// engine out of its catalog, analyzer and executor.
package ocpq

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ocpq-go/ocpq/bbox"
	"github.com/ocpq-go/ocpq/eval"
	"github.com/ocpq-go/ocpq/ocel"
	"github.com/ocpq-go/ocpq/telemetry"
	"github.com/ocpq-go/ocpq/variable"
)

// Config holds the ambient options a run can be tuned with.
type Config struct {
	// Logger receives structured telemetry for this run. When nil, a new
	// logrus logger (writing to stderr) at warn level is used.
	Logger *logrus.Logger
}

// Engine evaluates binding-box trees against one indexed log.
type Engine struct {
	log      *ocel.Log
	recorder *telemetry.Recorder
}

// NewEngine builds an Engine around an already-constructed log.
func NewEngine(log *ocel.Log, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &Engine{log: log, recorder: telemetry.NewRecorder(logger)}
}

// BuildLog indexes raw events/objects and records the construction event,
// returning the Log an Engine can then be built around.
func BuildLog(events []ocel.Event, objects []ocel.Object, recorder *telemetry.Recorder) *ocel.Log {
	start := time.Now()
	log := ocel.Build(events, objects)
	if recorder != nil {
		recorder.LogBuilt(log.NumEvents(), log.NumObjects(), log.WarningCount(), time.Since(start))
	}
	return log
}

// Evaluate runs tree's root node (node 0) against e's log and returns the
// root's aggregate result.
func (e *Engine) Evaluate(ctx context.Context, tree *bbox.Tree) (eval.Result, error) {
	res, err := eval.Evaluate(ctx, e.log, tree, eval.Root, 0, variable.Empty())
	if err != nil {
		return eval.Result{}, err
	}
	if e.recorder != nil {
		violated := 0
		if res.OwnViolation != nil {
			violated = 1
		}
		e.recorder.NodeEvaluated(0, len(res.Situations), violated, res.OwnViolation)
	}
	return res, nil
}

// Log returns the underlying indexed log.
func (e *Engine) Log() *ocel.Log { return e.log }
