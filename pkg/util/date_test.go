package util

import (
    "testing"
    "time"
)

func TestDateFromMillis(t *testing.T) {
    // 2024-08-01T04:00:00Z, the usual polygon daily bar stamp.
    if got := DateFromMillis(1722484800000); got != "2024-08-01" {
        t.Fatalf("DateFromMillis = %q", got)
    }
}

func TestLookback(t *testing.T) {
    from, to := Lookback(time.Date(2024, 8, 31, 22, 0, 0, 0, time.UTC), 30)
    if from != "2024-08-01" || to != "2024-08-31" {
        t.Fatalf("Lookback = %s..%s", from, to)
    }
}
