package api

import (
	"errors"
	"net/http"

	"StockCast/internal/domain/errs"
	xhttp "StockCast/pkg/http"
)

// toAppError maps a pipeline error onto the API error envelope.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	kind, ok := errs.KindOf(err)
	if !ok {
		return xhttp.InternalError("internal error").WithError(err)
	}
	switch kind {
	case errs.MalformedInput:
		return xhttp.NewAppError("ERR_MALFORMED_INPUT", "", err.Error(), http.StatusBadRequest).WithError(err)
	case errs.DatasetInsufficient:
		return xhttp.UnprocessableError("ERR_DATASET_INSUFFICIENT", err.Error()).WithError(err)
	case errs.PredictionShape:
		return xhttp.UnprocessableError("ERR_PREDICTION_SHAPE", err.Error()).WithError(err)
	case errs.AlignmentMismatch:
		return xhttp.UnprocessableError("ERR_ALIGNMENT_MISMATCH", err.Error()).WithError(err)
	case errs.ArtifactLoad:
		return xhttp.NewAppError("ERR_ARTIFACT_LOAD", "", err.Error(), http.StatusNotFound).WithError(err)
	case errs.UpstreamFetch:
		return xhttp.BadGatewayError(err.Error()).WithParam("upstream_status", errs.StatusOf(err)).WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
