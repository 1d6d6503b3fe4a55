package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"StockCast/internal/domain/errs"
	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	xlogger "StockCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubIngester struct{ got *models.IngestRequest }

func (s *stubIngester) Ingest(_ context.Context, req *models.IngestRequest) (*models.IngestResult, error) {
	s.got = req
	return &models.IngestResult{Symbol: req.Symbol, Rows: 8}, nil
}

type stubDispatcher struct{ err error }

func (s *stubDispatcher) Dispatch(_ context.Context, dataset string, families []string) ([]models.Submission, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.Submission{{Family: families[0], Mode: "inprocess", JobID: "local-1"}}, nil
}

type stubPredictor struct{ err error }

func (s *stubPredictor) Predict(_ context.Context, req *models.PredictRequest) (*models.PredictResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.PredictResult{Family: req.Family, Predictions: []float64{1, 2}}, nil
}

type stubEvaluator struct{}

func (stubEvaluator) Evaluate(_ context.Context, req *models.EvaluateRequest) (*models.Metrics, error) {
	if len(req.Predictions) != len(req.Actuals) {
		return nil, errs.New(errs.AlignmentMismatch, "lengths differ")
	}
	return &models.Metrics{N: len(req.Actuals)}, nil
}

type stubCatalog struct {
	domrepo.Catalog
	kind    string
	limit   int
	healthy error
}

func (s *stubCatalog) Health(context.Context) error { return s.healthy }

func (s *stubCatalog) ListSnapshots(_ context.Context, symbol, kind string, limit int) ([]*models.Snapshot, error) {
	s.kind, s.limit = kind, limit
	return []*models.Snapshot{{ID: "a", Symbol: symbol, Kind: kind}}, nil
}

func (s *stubCatalog) ListRuns(_ context.Context, family string, limit int) ([]*models.TrainingRun, error) {
	s.limit = limit
	return nil, nil
}

type fixture struct {
	e        *echo.Echo
	ingester *stubIngester
	disp     *stubDispatcher
	pred     *stubPredictor
	catalog  *stubCatalog
}

func newFixture() *fixture {
	f := &fixture{
		e:        echo.New(),
		ingester: &stubIngester{},
		disp:     &stubDispatcher{},
		pred:     &stubPredictor{},
		catalog:  &stubCatalog{},
	}
	NewPipelineHandler(xlogger.Nop(), f.ingester, f.disp, f.pred, stubEvaluator{}, f.catalog).RegisterRoutes(f.e)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestIngestAppliesDefaults(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/v1/ingest", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	got := f.ingester.got
	if got.Symbol != "AAPL" || got.From != "2024-08-01" || got.To != "2024-08-31" || got.Multiplier != 1 || got.Timespan != "day" {
		t.Fatalf("defaults = %+v", got)
	}
}

func TestIngestRejectsBadDate(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/v1/ingest", `{"symbol":"AAPL","from":"08/01/2024"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.ingester.got != nil {
		t.Fatalf("ingester should not run")
	}
}

func TestTrainAccepted(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/v1/train", `{"dataset":"s3://b/k.csv","families":["decision_tree"]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Data []models.Submission `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || len(body.Data) != 1 || body.Data[0].JobID != "local-1" {
		t.Fatalf("body = %s", rec.Body)
	}

	rec = f.do(http.MethodPost, "/api/v1/train", `{"families":["decision_tree"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing dataset: status = %d", rec.Code)
	}
}

func TestErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errs.New(errs.MalformedInput, "x"), http.StatusBadRequest},
		{errs.New(errs.DatasetInsufficient, "x"), http.StatusUnprocessableEntity},
		{errs.New(errs.PredictionShape, "x"), http.StatusUnprocessableEntity},
		{errs.New(errs.AlignmentMismatch, "x"), http.StatusUnprocessableEntity},
		{errs.New(errs.ArtifactLoad, "x"), http.StatusNotFound},
		{errs.Upstream(429, "x"), http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		f := newFixture()
		f.pred.err = tc.err
		rec := f.do(http.MethodPost, "/api/v1/predict", `{"family":"linear_regression","dataset":"file:///x.csv"}`)
		if rec.Code != tc.want {
			t.Fatalf("%v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestUpstreamStatusInParams(t *testing.T) {
	f := newFixture()
	f.disp.err = errs.Upstream(503, "aggregates")
	rec := f.do(http.MethodPost, "/api/v1/train", `{"dataset":"s3://b/k.csv"}`)
	if rec.Code != http.StatusBadGateway || !strings.Contains(rec.Body.String(), `"upstream_status":503`) {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
}

func TestPredictNeedsRowsOrDataset(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/v1/predict", `{"family":"linear_regression"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestEvaluateInline(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/v1/evaluate", `{"predictions":[1,2],"actuals":[1,2]}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"n":2`) {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	rec = f.do(http.MethodPost, "/api/v1/evaluate", `{"predictions":[1,2],"actuals":[1]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("mismatch: status = %d", rec.Code)
	}
}

func TestListSnapshotsQuery(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/api/v1/snapshots?symbol=AAPL&kind=processed", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	if f.catalog.kind != "processed" || f.catalog.limit != 50 {
		t.Fatalf("kind=%q limit=%d", f.catalog.kind, f.catalog.limit)
	}

	rec = f.do(http.MethodGet, "/api/v1/runs?limit=900", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("limit over 500: status = %d", rec.Code)
	}
}

func TestHealthReflectsCatalog(t *testing.T) {
	f := newFixture()
	if rec := f.do(http.MethodGet, "/api/v1/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthy: status = %d", rec.Code)
	}

	f.catalog.healthy = errors.New("database is locked")
	rec := f.do(http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "ERR_UNAVAILABLE") {
		t.Fatalf("unhealthy: status = %d body = %s", rec.Code, rec.Body)
	}
}
