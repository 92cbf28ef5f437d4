package observability

import (
	"context"
	"errors"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" x-api-key = abc ,broken,=v,k=, tenant=fleet ")
	if len(got) != 2 || got["x-api-key"] != "abc" || got["tenant"] != "fleet" {
		t.Fatalf("headers: %v", got)
	}
	if ParseHeaders("") != nil {
		t.Fatalf("empty input should yield nil")
	}
}

func TestTracingRatioClamped(t *testing.T) {
	for in, want := range map[float64]float64{-1: 0, 0.25: 0.25, 3: 1} {
		if got := (TracingConfig{SampleRatio: in}).ratio(); got != want {
			t.Fatalf("ratio(%v): want=%v got=%v", in, want, got)
		}
	}
}

func TestInitTracingDisabledIsNoop(t *testing.T) {
	shutdown := InitTracing(context.Background(), nil, TracingConfig{})
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	_, span := StartSpan(context.Background(), "Scoring.ScoreLedger.ResetScore")
	EndSpan(span, "store_failure", errors.New("boom"))
	EndSpan(nil, "success", nil)
}
