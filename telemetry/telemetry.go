// Package telemetry records structured log events for log construction,
// tree evaluation and discovery runs, in the same logrus.Entry-wrapping
// style as the audit logger in _teacher_ref/auth/audit.go.
package telemetry

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ocpq-go/ocpq/bbox"
)

// Recorder emits structured events for one evaluation run.
type Recorder struct {
	log *logrus.Entry
}

// NewRecorder wraps l with the "ocpq" system field every event it emits
// carries.
func NewRecorder(l *logrus.Logger) *Recorder {
	return &Recorder{log: l.WithField("system", "ocpq")}
}

// LogBuilt records that an indexed log finished construction, and how
// many schema warnings (dangling references) it accumulated.
func (r *Recorder) LogBuilt(numEvents, numObjects, warnings int, d time.Duration) {
	r.log.WithFields(logrus.Fields{
		"action":     "log_built",
		"numEvents":  numEvents,
		"numObjects": numObjects,
		"warnings":   warnings,
		"durationMs": d.Milliseconds(),
	}).Info("indexed log built")
}

// NodeEvaluated records one tree node's evaluation outcome.
func (r *Recorder) NodeEvaluated(node bbox.NodeIndex, situations, violated int, ownViolation *bbox.ViolationKind) {
	fields := logrus.Fields{
		"action":        "node_evaluated",
		"node":          int(node),
		"situations":    situations,
		"violated":      violated,
	}
	if ownViolation != nil {
		fields["ownViolation"] = ownViolation.String()
	}
	r.log.WithFields(fields).Debug("node evaluated")
}

// DiscoveryRun records the outcome of one discovery pass.
func (r *Recorder) DiscoveryRun(kind string, discovered int, d time.Duration) {
	r.log.WithFields(logrus.Fields{
		"action":     "discovery_run",
		"kind":       kind,
		"discovered": discovered,
		"durationMs": d.Milliseconds(),
	}).Info("discovery run finished")
}

// Warning records a non-fatal schema or evaluation warning.
func (r *Recorder) Warning(msg string, err error) {
	r.log.WithFields(logrus.Fields{
		"action": "warning",
		"error":  err,
	}).Warn(msg)
}
