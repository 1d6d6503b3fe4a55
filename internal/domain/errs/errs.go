// Package errs defines the failure kinds surfaced by the pipeline.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// UpstreamFetch: the market-data provider answered with a non-success status.
	UpstreamFetch Kind = "upstream_fetch"
	// MalformedInput: a request or payload is missing fields or fails to parse.
	MalformedInput Kind = "malformed_input"
	// DatasetInsufficient: too few rows remain for the requested operation.
	DatasetInsufficient Kind = "dataset_insufficient"
	// ArtifactLoad: a stored model artifact is missing or cannot be decoded.
	ArtifactLoad Kind = "artifact_load"
	// PredictionShape: feature columns do not match what the artifact expects.
	PredictionShape Kind = "prediction_shape"
	// AlignmentMismatch: predictions and actuals differ in length.
	AlignmentMismatch Kind = "alignment_mismatch"
)

// Error is a classified pipeline error.
type Error struct {
	Kind    Kind
	Message string
	// Status carries the upstream HTTP status for UpstreamFetch errors.
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, errs.New(k, ""))
// and the sentinel values below work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == ""
}

var (
	ErrUpstreamFetch       = &Error{Kind: UpstreamFetch}
	ErrMalformedInput      = &Error{Kind: MalformedInput}
	ErrDatasetInsufficient = &Error{Kind: DatasetInsufficient}
	ErrArtifactLoad        = &Error{Kind: ArtifactLoad}
	ErrPredictionShape     = &Error{Kind: PredictionShape}
	ErrAlignmentMismatch   = &Error{Kind: AlignmentMismatch}
)

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Upstream(status int, format string, args ...interface{}) *Error {
	return &Error{Kind: UpstreamFetch, Message: fmt.Sprintf(format, args...), Status: status}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// StatusOf returns the upstream status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
