package monitoring

import (
	"time"
)

// Scoring outcomes
const (
	OutcomeScored       = "scored"
	OutcomePrecomputed  = "precomputed"
	OutcomeInsufficient = "insufficient_data"
	OutcomeUnavailable  = "unavailable"
)

// Recorder fans domain events out to the logger, the JSON metrics and the
// Prometheus registry. A nil Recorder, or nil members, are ignored
type Recorder struct {
	Logger  *Logger
	Metrics *Metrics
	Prom    *PromRegistry
}

// NewRecorder bundles the three sinks
func NewRecorder(logger *Logger, metrics *Metrics, prom *PromRegistry) *Recorder {
	return &Recorder{Logger: logger, Metrics: metrics, Prom: prom}
}

// DatasetLoaded records a dataset load attempt
func (r *Recorder) DatasetLoaded(kind, source, name string, rows int, duration time.Duration, err error) {
	if r == nil {
		return
	}
	if source == "" {
		source = "none"
	}
	if r.Logger != nil {
		r.Logger.DatasetLogger(kind, source, name, rows, duration, err)
	}
	if r.Metrics != nil {
		r.Metrics.RecordDatasetLoad(source, err == nil)
	}
	if r.Prom != nil {
		r.Prom.ObserveDatasetLoad(kind, source, err)
	}
}

// Scored records a scoring run
func (r *Recorder) Scored(outcome string, customers int, duration time.Duration) {
	if r == nil {
		return
	}
	if r.Logger != nil {
		r.Logger.ScoringLogger(customers, outcome, duration)
	}
	if r.Metrics != nil {
		r.Metrics.RecordScoring(outcome == OutcomeScored || outcome == OutcomePrecomputed)
	}
	if r.Prom != nil {
		r.Prom.ObserveScoring(outcome, customers, duration)
	}
}

// Exported records a download
func (r *Recorder) Exported(format, fileName string, rows int) {
	if r == nil {
		return
	}
	if r.Logger != nil {
		r.Logger.ExportLogger(format, fileName, rows)
	}
	if r.Metrics != nil {
		r.Metrics.RecordExport(format)
	}
	if r.Prom != nil {
		r.Prom.ObserveExport(format)
	}
}

// RateLimited records a rejected request
func (r *Recorder) RateLimited() {
	if r == nil {
		return
	}
	if r.Metrics != nil {
		r.Metrics.IncrementRateLimitBlock()
	}
	if r.Prom != nil {
		r.Prom.RateLimited.Inc()
	}
}
