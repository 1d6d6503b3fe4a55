// Package dataset turns bars into indicator tables and model-ready datasets.
package dataset

import (
	"fmt"

	"StockCast/internal/domain/models"
	"StockCast/internal/services/indicators"
)

// DefaultWindowLength is the look-back of windowed datasets.
const DefaultWindowLength = 30

// Build joins bars with their indicators and drops rows whose indicators are
// undefined. A result with zero rows is valid; callers decide whether it is
// enough for what they do next.
func Build(symbol string, bars []models.Bar, window int) (*models.FeatureTable, error) {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	set, err := indicators.Compute(closes, window)
	if err != nil {
		return nil, fmt.Errorf("compute indicators: %w", err)
	}

	rows := make([]models.IndicatorRow, len(bars))
	for i, b := range bars {
		rows[i] = models.IndicatorRow{
			Bar:        b,
			SMA:        set.SMA[i],
			EMA:        set.EMA[i],
			RSI:        set.RSI[i],
			Volatility: set.Volatility[i],
		}
	}

	return &models.FeatureTable{
		Symbol: symbol,
		Window: window,
		Rows:   Trim(rows),
	}, nil
}

// Trim keeps only fully defined rows, preserving order. Trim(Trim(x)) == Trim(x).
func Trim(rows []models.IndicatorRow) []models.IndicatorRow {
	out := make([]models.IndicatorRow, 0, len(rows))
	for _, r := range rows {
		if r.Defined() {
			out = append(out, r)
		}
	}
	return out
}

// Tabular maps every row to its feature vector and same-row close.
func Tabular(t *models.FeatureTable) *models.TabularDataset {
	ds := &models.TabularDataset{
		Columns: models.FeatureColumns(t.Window),
		X:       make([][]float64, len(t.Rows)),
		Y:       make([]float64, len(t.Rows)),
		Dates:   make([]string, len(t.Rows)),
	}
	for i, r := range t.Rows {
		ds.X[i] = r.Features()
		ds.Y[i] = r.Close
		ds.Dates[i] = r.Date
	}
	return ds
}

// Windowed slides a window of length rows with stride 1 and produces
// max(0, N-length) windows. Window i covers rows [i, i+length) and targets
// the close of row i+length.
func Windowed(t *models.FeatureTable, length int) (*models.WindowedDataset, error) {
	if length < 1 {
		return nil, fmt.Errorf("window length must be positive, got %d", length)
	}

	n := len(t.Rows) - length
	if n < 0 {
		n = 0
	}

	ds := &models.WindowedDataset{
		Length:      length,
		Columns:     models.FeatureColumns(t.Window),
		X:           make([][][]float64, n),
		Y:           make([]float64, n),
		TargetDates: make([]string, n),
	}
	for i := 0; i < n; i++ {
		win := make([][]float64, length)
		for j := 0; j < length; j++ {
			win[j] = t.Rows[i+j].Features()
		}
		target := t.Rows[i+length]
		ds.X[i] = win
		ds.Y[i] = target.Close
		ds.TargetDates[i] = target.Date
	}
	return ds, nil
}
