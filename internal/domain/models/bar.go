package models

import (
	"fmt"
	"math"
)

// Bar is one OHLCV period of a single symbol. Date is a UTC calendar date
// (YYYY-MM-DD).
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// IndicatorRow is a bar joined with its indicator values. Undefined
// indicator values are NaN until the row is trimmed away.
type IndicatorRow struct {
	Bar
	SMA        float64 `json:"sma"`
	EMA        float64 `json:"ema"`
	RSI        float64 `json:"rsi"`
	Volatility float64 `json:"volatility"`
}

// Defined reports whether every indicator of the row has a value.
func (r IndicatorRow) Defined() bool {
	return !math.IsNaN(r.SMA) && !math.IsNaN(r.EMA) && !math.IsNaN(r.RSI) && !math.IsNaN(r.Volatility)
}

// Features returns the row's feature vector in FeatureColumns order.
func (r IndicatorRow) Features() []float64 {
	return []float64{r.Open, r.High, r.Low, r.Volume, r.SMA, r.EMA, r.RSI, r.Volatility}
}

// FeatureTable is an ordered sequence of fully defined indicator rows.
type FeatureTable struct {
	Symbol string
	Window int
	Rows   []IndicatorRow
}

func (t *FeatureTable) Len() int { return len(t.Rows) }

// Dates returns the row dates in order.
func (t *FeatureTable) Dates() []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Date
	}
	return out
}

// Closes returns the close prices in order.
func (t *FeatureTable) Closes() []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Close
	}
	return out
}

// FeatureColumns lists the tabular feature columns for an indicator window.
func FeatureColumns(window int) []string {
	return []string{
		"open", "high", "low", "volume",
		fmt.Sprintf("sma_%d", window),
		fmt.Sprintf("ema_%d", window),
		"rsi", "volatility",
	}
}

// SnapshotColumns lists the processed snapshot header for an indicator window.
func SnapshotColumns(window int) []string {
	return []string{
		"date", "open", "high", "low", "close", "volume",
		fmt.Sprintf("sma_%d", window),
		fmt.Sprintf("ema_%d", window),
		"rsi", "volatility",
	}
}
