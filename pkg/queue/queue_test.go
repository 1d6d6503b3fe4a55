package queue

import (
	"encoding/json"
	"testing"
)

type trainPayload struct {
	Family  string `json:"family"`
	Dataset string `json:"dataset"`
}

func TestDecode(t *testing.T) {
	raw := json.RawMessage(`{"family":"linear_regression","dataset":"s3://b/k.csv"}`)
	p, err := Decode[trainPayload](raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Family != "linear_regression" || p.Dataset != "s3://b/k.csv" {
		t.Fatalf("payload = %+v", p)
	}

	if _, err := Decode[trainPayload](nil); err == nil {
		t.Fatalf("expected error for empty payload")
	}
	if _, err := Decode[trainPayload](json.RawMessage(`{`)); err == nil {
		t.Fatalf("expected error for bad json")
	}
}

func TestKeys(t *testing.T) {
	q := NewRedisQueue(nil, nil, nil, WithKeyPrefix("test:q"))
	if q.queueKey() != "test:q:messages" || q.retryKey() != "test:q:retry" || q.deadLetterKey() != "test:q:dlq" {
		t.Fatalf("keys = %s %s %s", q.queueKey(), q.retryKey(), q.deadLetterKey())
	}
	if q.config.Workers != 1 || q.config.RetryDelay <= 0 {
		t.Fatalf("defaults not applied: %+v", q.config)
	}
}
