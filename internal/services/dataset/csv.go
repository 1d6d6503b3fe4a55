package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"StockCast/internal/domain/errs"
	"StockCast/internal/domain/models"
)

// EncodeSnapshot renders a feature table as the processed snapshot CSV.
func EncodeSnapshot(t *models.FeatureTable) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(models.SnapshotColumns(t.Window)); err != nil {
		return nil, err
	}
	for _, r := range t.Rows {
		rec := []string{
			r.Date,
			formatFloat(r.Open), formatFloat(r.High), formatFloat(r.Low),
			formatFloat(r.Close), formatFloat(r.Volume),
			formatFloat(r.SMA), formatFloat(r.EMA),
			formatFloat(r.RSI), formatFloat(r.Volatility),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot parses a processed snapshot. Columns are located by header
// name, so extra columns are ignored. Rows with undefined indicators are
// trimmed.
func DecodeSnapshot(data []byte, window int) (*models.FeatureTable, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, errs.New(errs.MalformedInput, "snapshot is empty")
	}
	if err != nil {
		return nil, errs.Wrap(errs.MalformedInput, err, "read snapshot header")
	}

	idx, err := columnIndex(header, models.SnapshotColumns(window))
	if err != nil {
		return nil, err
	}

	table := &models.FeatureTable{Window: window}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.MalformedInput, err, "read snapshot line %d", line)
		}

		vals := make([]float64, 9)
		for i, col := range models.SnapshotColumns(window)[1:] {
			v, err := parseFloat(rec[idx[col]])
			if err != nil {
				return nil, errs.Wrap(errs.MalformedInput, err, "line %d column %s", line, col)
			}
			vals[i] = v
		}
		table.Rows = append(table.Rows, models.IndicatorRow{
			Bar: models.Bar{
				Date:   rec[idx["date"]],
				Open:   vals[0],
				High:   vals[1],
				Low:    vals[2],
				Close:  vals[3],
				Volume: vals[4],
			},
			SMA:        vals[5],
			EMA:        vals[6],
			RSI:        vals[7],
			Volatility: vals[8],
		})
	}

	table.Rows = Trim(table.Rows)
	return table, nil
}

// EncodeSeries renders a date,close CSV. dates and values must be aligned.
func EncodeSeries(dates []string, values []float64) ([]byte, error) {
	if len(dates) != len(values) {
		return nil, errs.New(errs.AlignmentMismatch, "%d dates for %d values", len(dates), len(values))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"date", "close"}); err != nil {
		return nil, err
	}
	for i := range dates {
		if err := w.Write([]string{dates[i], formatFloat(values[i])}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// DecodeSeries parses a date,close CSV preserving row order.
func DecodeSeries(data []byte) ([]string, []float64, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, nil, errs.Wrap(errs.MalformedInput, err, "read series header")
	}
	idx, err := columnIndex(header, []string{"date", "close"})
	if err != nil {
		return nil, nil, err
	}

	var (
		dates  []string
		values []float64
	)
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errs.Wrap(errs.MalformedInput, err, "read series line %d", line)
		}
		v, err := parseFloat(rec[idx["close"]])
		if err != nil {
			return nil, nil, errs.Wrap(errs.MalformedInput, err, "series line %d", line)
		}
		dates = append(dates, rec[idx["date"]])
		values = append(values, v)
	}
	return dates, values, nil
}

func columnIndex(header, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	var missing []string
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errs.New(errs.MalformedInput, "missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseFloat accepts the empty cell as an undefined value.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return v, nil
}
