package ctxutil

import (
	"context"
	"testing"
)

func TestManagerIDRoundTrip(t *testing.T) {
	ctx := WithRequestData(context.Background(), &RequestData{ManagerID: "mgr-1"})
	if got := ManagerID(ctx); got != "mgr-1" {
		t.Fatalf("ManagerID: want=mgr-1 got=%q", got)
	}
	if got := ManagerID(context.Background()); got != "" {
		t.Fatalf("ManagerID(empty): want empty got=%q", got)
	}
	if GetTraceData(context.Background()) != nil {
		t.Fatalf("expected nil trace data")
	}
}
