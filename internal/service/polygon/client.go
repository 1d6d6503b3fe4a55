package polygon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"StockCast/internal/domain/errs"
	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	xhttp "StockCast/pkg/http"
	"StockCast/pkg/logger"
	"StockCast/pkg/util"

	"golang.org/x/time/rate"
)

// Client implements MarketData against the Polygon aggregates endpoint.
// Requests are paced by a token bucket sized to the account quota; failures
// are returned as-is, never retried.
type Client struct {
	baseURL string
	apiKey  string
	http    *xhttp.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

type Option func(*Client)

// WithHTTPClient overrides the transport client.
func WithHTTPClient(c *xhttp.Client) Option {
	return func(p *Client) { p.http = c }
}

// WithRequestsPerMinute paces outgoing requests. Zero disables pacing.
func WithRequestsPerMinute(n int) Option {
	return func(p *Client) {
		if n <= 0 {
			p.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

func New(lgr *logger.Logger, baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Inf, 1),
		log:     lgr,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient(xhttp.WithTimeout(30 * time.Second))
	}
	return c
}

var _ drepo.MarketData = (*Client)(nil)

// aggResult mirrors one entry of the provider's results array. Pointers
// distinguish absent fields from zero values.
type aggResult struct {
	O *float64 `json:"o"`
	H *float64 `json:"h"`
	L *float64 `json:"l"`
	C *float64 `json:"c"`
	V *float64 `json:"v"`
	T *int64   `json:"t"`
}

type aggResponse struct {
	Ticker       string      `json:"ticker"`
	Status       string      `json:"status"`
	ResultsCount int         `json:"resultsCount"`
	Results      []aggResult `json:"results"`
}

// Aggregates fetches bars for q and keeps only results that carry every
// OHLCV field and a timestamp.
func (c *Client) Aggregates(ctx context.Context, q drepo.AggregatesQuery) (*drepo.Aggregates, error) {
	if q.Symbol == "" {
		return nil, errs.New(errs.MalformedInput, "symbol is required")
	}
	if q.Multiplier < 1 {
		return nil, errs.New(errs.MalformedInput, "multiplier must be positive")
	}
	if !drepo.IsValidTimespan(q.Timespan) {
		return nil, errs.New(errs.MalformedInput, "unsupported timespan %q", q.Timespan)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("polygon rate limiter: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/%d/%s/%s/%s",
		c.baseURL,
		url.PathEscape(strings.ToUpper(q.Symbol)),
		q.Multiplier,
		q.Timespan,
		url.PathEscape(q.From),
		url.PathEscape(q.To),
	)

	start := time.Now()
	var raw []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    endpoint,
		QueryParams: map[string][]string{
			"adjusted": {"true"},
			"apiKey":   {c.apiKey},
		},
	}, &raw)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			return nil, errs.Upstream(se.Code, "aggregates for %s: %s", q.Symbol, se.Body)
		}
		return nil, fmt.Errorf("aggregates for %s: %w", q.Symbol, err)
	}

	bars, skipped, err := parseAggregates(raw)
	if err != nil {
		return nil, err
	}

	c.log.Debug("polygon aggregates fetched",
		logger.String("symbol", q.Symbol),
		logger.Int("bars", len(bars)),
		logger.Int("skipped", skipped),
		logger.Duration("duration_ms", time.Since(start)),
	)

	return &drepo.Aggregates{Raw: raw, Bars: bars, Skipped: skipped}, nil
}

func parseAggregates(raw []byte) ([]models.Bar, int, error) {
	var resp aggResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		// An unreadable 200 body is reported as a bad gateway.
		return nil, 0, &errs.Error{Kind: errs.UpstreamFetch, Status: http.StatusBadGateway, Message: "decode aggregates", Err: err}
	}

	bars := make([]models.Bar, 0, len(resp.Results))
	skipped := 0
	for _, r := range resp.Results {
		if r.O == nil || r.H == nil || r.L == nil || r.C == nil || r.V == nil || r.T == nil {
			skipped++
			continue
		}
		bars = append(bars, models.Bar{
			Date:   util.DateFromMillis(*r.T),
			Open:   *r.O,
			High:   *r.H,
			Low:    *r.L,
			Close:  *r.C,
			Volume: *r.V,
		})
	}
	return bars, skipped, nil
}
