package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"StockCast/internal/domain/models"
)

// Both catalogs keep run metrics as a JSON column; an empty string means none.

func encodeMetrics(m *models.Metrics) (string, error) {
	if m == nil {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metrics: %w", err)
	}
	return string(b), nil
}

func decodeMetrics(s string) (*models.Metrics, error) {
	if s == "" {
		return nil, nil
	}
	var m models.Metrics
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	return &m, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}

func closeRows(rows *sql.Rows) {
	_ = rows.Close()
}
