package valknutcache

import (
	"time"
)

// CalibrationParams is the grid point chosen by auto-calibration: the
// similarity threshold and stop-motif percentile that maximized payoff
// on the labeled/sampled calibration set.
type CalibrationParams struct {
	SimilarityThreshold float64 `json:"similarity_threshold"`
	StopMotifPercentile float64 `json:"stop_motif_percentile"`
	Payoff              float64 `json:"payoff"`
}

// Calibration is the on-disk record at
// .valknut/cache/denoise/auto_calibration.v1.json.
type Calibration struct {
	Signature CodebaseSignature `json:"signature"`
	Params    CalibrationParams `json:"params"`
	BuiltAt   time.Time         `json:"built_at"`
}

// Stale reports whether a calibration record should be recomputed:
// either its codebase signature has drifted beyond tolerance or its
// age exceeds maxAge. maxAge has no built-in default; the caller
// supplies it.
func (c *Calibration) Stale(current CodebaseSignature, deltaPercent float64, maxAge time.Duration, now time.Time) bool {
	if c == nil {
		return true
	}
	if !c.Signature.Matches(current, deltaPercent) {
		return true
	}
	return now.Sub(c.BuiltAt) > maxAge
}

// DefaultCalibrationParams are the hard-floor defaults auto-calibration
// must never underperform.
func DefaultCalibrationParams() CalibrationParams {
	return CalibrationParams{
		SimilarityThreshold: 0.30,
		StopMotifPercentile: 0.80,
	}
}

// CalibrationStore persists Calibration records the same way Store
// persists StopMotifCache: atomic temp-file-then-rename, miss-on-error.
type CalibrationStore struct {
	path string
}

// NewCalibrationStore creates a store rooted at path.
func NewCalibrationStore(path string) *CalibrationStore { return &CalibrationStore{path: path} }

// Load returns the calibration record, or ok=false on any read/parse failure.
func (s *CalibrationStore) Load() (*Calibration, bool) {
	return loadJSON[Calibration](s.path)
}

// Save writes the calibration record atomically.
func (s *CalibrationStore) Save(c *Calibration) error {
	return atomicWriteJSON(s.path, c)
}
