// Package usecase wires the pipeline stages together: ingestion, training
// dispatch, in-process training, prediction and evaluation.
package usecase

import (
	"time"

	"StockCast/internal/domain/errs"
)

// errKind labels err for metrics.
func errKind(err error) string {
	if k, ok := errs.KindOf(err); ok {
		return string(k)
	}
	return "internal"
}

// versionLayout formats artifact versions; versions sort by training time.
const versionLayout = "20060102T150405Z"

func newVersion(t time.Time, runID string) string {
	v := t.UTC().Format(versionLayout)
	if len(runID) >= 8 {
		v += "-" + runID[:8]
	}
	return v
}
