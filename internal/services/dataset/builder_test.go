package dataset

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"

	"StockCast/internal/domain/errs"
	"StockCast/internal/domain/models"
)

func makeBars(n int) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		c := 100 + 5*math.Sin(float64(i)/3) + float64(i)*0.1
		bars[i] = models.Bar{
			Date:   fmt.Sprintf("2024-%02d-%02d", 1+i/28, 1+i%28),
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1e6 + float64(i*1000),
		}
	}
	return bars
}

func TestBuildDropsUndefinedRows(t *testing.T) {
	bars := makeBars(40)
	table, err := Build("AAPL", bars, 14)
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() != 27 {
		t.Fatalf("rows = %d, want 27", table.Len())
	}
	if table.Rows[0].Date != bars[13].Date {
		t.Fatalf("first row date = %s, want %s", table.Rows[0].Date, bars[13].Date)
	}
	for i, r := range table.Rows {
		if !r.Defined() {
			t.Fatalf("row %d still has undefined indicators", i)
		}
	}
}

func TestTrimIsIdempotent(t *testing.T) {
	rows := []models.IndicatorRow{
		{Bar: models.Bar{Date: "a"}, SMA: math.NaN()},
		{Bar: models.Bar{Date: "b"}, SMA: 1, EMA: 1, RSI: 50, Volatility: 0.1},
		{Bar: models.Bar{Date: "c"}, SMA: 1, EMA: 1, RSI: math.NaN(), Volatility: 0.1},
		{Bar: models.Bar{Date: "d"}, SMA: 2, EMA: 2, RSI: 60, Volatility: 0.2},
	}
	once := Trim(rows)
	twice := Trim(once)
	if len(once) != 2 || once[0].Date != "b" || once[1].Date != "d" {
		t.Fatalf("unexpected trim result %+v", once)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("trim is not idempotent")
	}
}

func TestBuildFewerBarsThanWindow(t *testing.T) {
	table, err := Build("AAPL", makeBars(10), 14)
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() != 0 {
		t.Fatalf("rows = %d, want 0", table.Len())
	}
}

func TestTabularColumnsAndTargets(t *testing.T) {
	table, err := Build("AAPL", makeBars(20), 14)
	if err != nil {
		t.Fatal(err)
	}
	ds := Tabular(table)

	want := []string{"open", "high", "low", "volume", "sma_14", "ema_14", "rsi", "volatility"}
	if !reflect.DeepEqual(ds.Columns, want) {
		t.Fatalf("columns = %v", ds.Columns)
	}
	if ds.Len() != table.Len() {
		t.Fatalf("len = %d, want %d", ds.Len(), table.Len())
	}
	r := table.Rows[2]
	if ds.Y[2] != r.Close || ds.X[2][0] != r.Open || ds.X[2][3] != r.Volume || ds.X[2][6] != r.RSI {
		t.Fatalf("row 2 not mapped in order: %v -> %v", r, ds.X[2])
	}
}

func tableOf(n int) *models.FeatureTable {
	rows := make([]models.IndicatorRow, n)
	for i := range rows {
		rows[i] = models.IndicatorRow{
			Bar: models.Bar{Date: fmt.Sprintf("d%03d", i), Close: float64(i)},
			SMA: 1, EMA: 1, RSI: 50, Volatility: 1,
		}
	}
	return &models.FeatureTable{Window: 14, Rows: rows}
}

func TestWindowedCountsAndTargets(t *testing.T) {
	cases := []struct {
		rows, want int
	}{
		{0, 0}, {29, 0}, {30, 0}, {31, 1}, {45, 15},
	}
	for _, tc := range cases {
		ds, err := Windowed(tableOf(tc.rows), DefaultWindowLength)
		if err != nil {
			t.Fatal(err)
		}
		if ds.Len() != tc.want {
			t.Fatalf("rows=%d: windows = %d, want %d", tc.rows, ds.Len(), tc.want)
		}
		if (tc.want == 0) != ds.Insufficient() {
			t.Fatalf("rows=%d: Insufficient() = %v", tc.rows, ds.Insufficient())
		}
	}

	ds, _ := Windowed(tableOf(45), DefaultWindowLength)
	for i := 0; i < ds.Len(); i++ {
		if len(ds.X[i]) != 30 {
			t.Fatalf("window %d has %d rows", i, len(ds.X[i]))
		}
		if ds.Y[i] != float64(i+30) {
			t.Fatalf("window %d target = %v, want close of row %d", i, ds.Y[i], i+30)
		}
		if ds.TargetDates[i] != fmt.Sprintf("d%03d", i+30) {
			t.Fatalf("window %d target date = %s", i, ds.TargetDates[i])
		}
	}
}

func TestSnapshotHeaderAndDecode(t *testing.T) {
	table, err := Build("AAPL", makeBars(20), 14)
	if err != nil {
		t.Fatal(err)
	}
	data, err := EncodeSnapshot(table)
	if err != nil {
		t.Fatal(err)
	}
	firstLine := strings.SplitN(string(data), "\n", 2)[0]
	if firstLine != "date,open,high,low,close,volume,sma_14,ema_14,rsi,volatility" {
		t.Fatalf("header = %q", firstLine)
	}

	decoded, err := DecodeSnapshot(data, 14)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(decoded.Rows, table.Rows) {
		t.Fatalf("decoded rows differ from encoded rows")
	}
}

func TestDecodeSnapshotMissingColumn(t *testing.T) {
	_, err := DecodeSnapshot([]byte("date,open,close\n2024-08-01,1,2\n"), 14)
	if kind, _ := errs.KindOf(err); kind != errs.MalformedInput {
		t.Fatalf("err = %v, want malformed input", err)
	}
}

func TestSeriesKeepsOrder(t *testing.T) {
	dates := []string{"2024-08-03", "2024-08-01", "2024-08-02"}
	vals := []float64{3, 1, 2}
	data, err := EncodeSeries(dates, vals)
	if err != nil {
		t.Fatal(err)
	}
	gotDates, gotVals, err := DecodeSeries(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(gotDates, dates) || !reflect.DeepEqual(gotVals, vals) {
		t.Fatalf("series reordered: %v %v", gotDates, gotVals)
	}

	if _, err := EncodeSeries(dates, vals[:2]); !errorsIsKind(err, errs.AlignmentMismatch) {
		t.Fatalf("err = %v, want alignment mismatch", err)
	}
}

func errorsIsKind(err error, k errs.Kind) bool {
	got, ok := errs.KindOf(err)
	return ok && got == k
}
