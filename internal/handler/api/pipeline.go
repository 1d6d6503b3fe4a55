package api

import (
	"context"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	xhttp "StockCast/pkg/http"
	xlogger "StockCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

type Ingester interface {
	Ingest(ctx context.Context, req *models.IngestRequest) (*models.IngestResult, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, dataset string, families []string) ([]models.Submission, error)
}

type Predictor interface {
	Predict(ctx context.Context, req *models.PredictRequest) (*models.PredictResult, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, req *models.EvaluateRequest) (*models.Metrics, error)
}

// PipelineHandler exposes ingestion, training dispatch, prediction,
// evaluation and the catalog under /api/v1.
type PipelineHandler struct {
	logger     *xlogger.Logger
	ingester   Ingester
	dispatcher Dispatcher
	predictor  Predictor
	evaluator  Evaluator
	catalog    domrepo.Catalog
	mw         []echo.MiddlewareFunc
}

func NewPipelineHandler(
	logger *xlogger.Logger,
	ingester Ingester,
	dispatcher Dispatcher,
	predictor Predictor,
	evaluator Evaluator,
	catalog domrepo.Catalog,
	mw ...echo.MiddlewareFunc,
) *PipelineHandler {
	return &PipelineHandler{
		logger:     logger,
		ingester:   ingester,
		dispatcher: dispatcher,
		predictor:  predictor,
		evaluator:  evaluator,
		catalog:    catalog,
		mw:         mw,
	}
}

func (h *PipelineHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1", h.mw...)
	g.POST("/ingest", h.Ingest)
	g.POST("/train", h.Train)
	g.POST("/predict", h.Predict)
	g.POST("/evaluate", h.Evaluate)
	g.GET("/snapshots", h.Snapshots)
	g.GET("/runs", h.Runs)

	e.GET("/api/v1/health", h.Health)
}

func (h *PipelineHandler) Ingest(c echo.Context) error {
	req := &models.IngestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.ingester.Ingest(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "ingest", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Train only submits; the runs feed and /runs report outcomes.
func (h *PipelineHandler) Train(c echo.Context) error {
	req := &models.DispatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	subs, err := h.dispatcher.Dispatch(c.Request().Context(), req.Dataset, req.Families)
	if err != nil {
		return h.fail(c, "train", err)
	}
	return xhttp.AcceptedResponse(c, subs)
}

func (h *PipelineHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.predictor.Predict(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "predict", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineHandler) Evaluate(c echo.Context) error {
	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	m, err := h.evaluator.Evaluate(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "evaluate", err)
	}
	return xhttp.SuccessResponse(c, m)
}

func (h *PipelineHandler) Snapshots(c echo.Context) error {
	req := &models.ListSnapshotsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.catalog.ListSnapshots(c.Request().Context(), req.Symbol, req.Kind, req.Limit)
	if err != nil {
		return h.fail(c, "snapshots", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *PipelineHandler) Runs(c echo.Context) error {
	req := &models.ListRunsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.catalog.ListRuns(c.Request().Context(), req.Family, req.Limit)
	if err != nil {
		return h.fail(c, "runs", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Health reports whether the catalog answers. It sits outside the rate limit.
func (h *PipelineHandler) Health(c echo.Context) error {
	if err := h.catalog.Health(c.Request().Context()); err != nil {
		h.logger.Warn("catalog unhealthy", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("catalog unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]string{"catalog": "ok"})
}

func (h *PipelineHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	} else {
		h.logger.Warn(op+" rejected", xlogger.String("code", appErr.Code), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
