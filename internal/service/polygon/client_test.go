package polygon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"StockCast/internal/domain/errs"
	drepo "StockCast/internal/domain/repository"
	"StockCast/pkg/logger"
)

const aggBody = `{"ticker":"AAPL","status":"OK","resultsCount":3,"results":[
{"o":217.1,"h":218.3,"l":216.0,"c":218.0,"v":6.2e7,"t":1722484800000},
{"o":218.0,"h":219.9,"l":217.5,"v":5.1e7,"t":1722571200000},
{"o":219.2,"h":221.0,"l":218.8,"c":220.5,"v":4.8e7,"t":1722830400000}
]}`

func query() drepo.AggregatesQuery {
	return drepo.AggregatesQuery{Symbol: "aapl", Multiplier: 1, Timespan: drepo.TimespanDay, From: "2024-08-01", To: "2024-08-31"}
}

func TestAggregatesParsesAndSkipsIncompleteResults(t *testing.T) {
	var gotPath, gotKey, gotAdjusted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("apiKey")
		gotAdjusted = r.URL.Query().Get("adjusted")
		_, _ = w.Write([]byte(aggBody))
	}))
	defer srv.Close()

	c := New(logger.Nop(), srv.URL, "secret")
	agg, err := c.Aggregates(context.Background(), query())
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/v2/aggs/ticker/AAPL/range/1/day/2024-08-01/2024-08-31" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotKey != "secret" || gotAdjusted != "true" {
		t.Fatalf("query params: apiKey=%q adjusted=%q", gotKey, gotAdjusted)
	}
	if string(agg.Raw) != aggBody {
		t.Fatal("raw body must be kept verbatim")
	}
	if len(agg.Bars) != 2 || agg.Skipped != 1 {
		t.Fatalf("bars=%d skipped=%d", len(agg.Bars), agg.Skipped)
	}
	if agg.Bars[0].Date != "2024-08-01" || agg.Bars[1].Date != "2024-08-05" {
		t.Fatalf("dates = %s, %s", agg.Bars[0].Date, agg.Bars[1].Date)
	}
	if agg.Bars[1].Close != 220.5 {
		t.Fatalf("close = %v", agg.Bars[1].Close)
	}
}

func TestAggregatesUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":"ERROR","error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(logger.Nop(), srv.URL, "k").Aggregates(context.Background(), query())
	if kind, _ := errs.KindOf(err); kind != errs.UpstreamFetch {
		t.Fatalf("err = %v, want upstream fetch", err)
	}
	if errs.StatusOf(err) != http.StatusTooManyRequests {
		t.Fatalf("status = %d", errs.StatusOf(err))
	}
}

func TestAggregatesGarbageBodyIsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway</html>"))
	}))
	defer srv.Close()

	_, err := New(logger.Nop(), srv.URL, "k").Aggregates(context.Background(), query())
	if !errors.Is(err, errs.ErrUpstreamFetch) {
		t.Fatalf("err = %v, want upstream fetch", err)
	}
	if errs.StatusOf(err) != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", errs.StatusOf(err))
	}
}

func TestAggregatesValidatesQuery(t *testing.T) {
	q := query()
	q.Timespan = "fortnight"
	_, err := New(logger.Nop(), "http://unused", "k").Aggregates(context.Background(), q)
	if kind, _ := errs.KindOf(err); kind != errs.MalformedInput {
		t.Fatalf("err = %v, want malformed input", err)
	}
}
