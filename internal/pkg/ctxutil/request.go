package ctxutil

import "context"

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

type traceDataKey struct{}
type requestDataKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
}

// RequestData carries caller identity passed through by the transport.
// ManagerID is opaque: the ledger records it but never interprets it.
type RequestData struct {
	ManagerID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if td, ok := Default(ctx).Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := Default(ctx).Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// ManagerID returns the caller's manager id, or "" when none was attached.
func ManagerID(ctx context.Context) string {
	if rd := GetRequestData(ctx); rd != nil {
		return rd.ManagerID
	}
	return ""
}
