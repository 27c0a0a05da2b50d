package sessiongate

import (
	"context"

	"github.com/deeptutor/sessiongate/authapi"
)

// WithRequestID pins the X-Request-ID sent by credential calls made with ctx.
// Without it every call gets a fresh random id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return authapi.WithRequestID(ctx, id)
}
