package common

import "context"

type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyOperator  contextKey = "operator"
)

// WithRequestID tags ctx with the id echoed in the X-Request-ID header.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}

// WithOperator records the shop-floor operator that issued the request.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, ContextKeyOperator, operator)
}

// OperatorFromContext returns the operator, or "" for anonymous requests.
func OperatorFromContext(ctx context.Context) string {
	op, _ := ctx.Value(ContextKeyOperator).(string)
	return op
}
