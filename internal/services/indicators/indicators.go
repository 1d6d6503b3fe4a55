// Package indicators computes rolling technical indicators over a close
// series. Output series have the same length as the input; undefined
// entries are NaN.
package indicators

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultWindow is the look-back used for every indicator.
const DefaultWindow = 14

// Set holds the four indicator series for one close series.
type Set struct {
	Window     int
	SMA        []float64
	EMA        []float64
	RSI        []float64
	Volatility []float64
}

// Compute returns every indicator for closes with look-back w.
func Compute(closes []float64, w int) (Set, error) {
	if w < 2 {
		return Set{}, fmt.Errorf("indicator window must be at least 2, got %d", w)
	}
	return Set{
		Window:     w,
		SMA:        SMA(closes, w),
		EMA:        EMA(closes, w),
		RSI:        RSI(closes, w),
		Volatility: Volatility(closes, w),
	}, nil
}

// SMA is the mean of the trailing w closes, defined from index w-1.
func SMA(closes []float64, w int) []float64 {
	return rolling(closes, w, func(win []float64) float64 {
		return stat.Mean(win, nil)
	})
}

// Volatility is the sample standard deviation (w-1 denominator) of the
// trailing w closes, defined from index w-1.
func Volatility(closes []float64, w int) []float64 {
	return rolling(closes, w, func(win []float64) float64 {
		return stat.StdDev(win, nil)
	})
}

// EMA uses smoothing 2/(w+1) seeded with the first close, so it is defined
// from index 0.
func EMA(closes []float64, w int) []float64 {
	out := make([]float64, len(closes))
	if len(closes) == 0 {
		return out
	}
	alpha := 2.0 / float64(w+1)
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = alpha*closes[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI averages the trailing w gains and losses of close-to-close deltas
// (the first delta counts as zero) and maps them to [0, 100]. A zero loss
// average yields exactly 100.
func RSI(closes []float64, w int) []float64 {
	n := len(closes)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}

	out := undefined(n)
	for i := w - 1; i < n; i++ {
		avgGain := stat.Mean(gains[i-w+1:i+1], nil)
		avgLoss := stat.Mean(losses[i-w+1:i+1], nil)
		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

func rolling(xs []float64, w int, fn func([]float64) float64) []float64 {
	out := undefined(len(xs))
	for i := w - 1; i < len(xs); i++ {
		out[i] = fn(xs[i-w+1 : i+1])
	}
	return out
}

func undefined(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
