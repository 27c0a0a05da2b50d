package authapi

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches a request identifier to ctx. The client sends it as
// X-Request-ID instead of generating a fresh one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
