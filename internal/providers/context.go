package providers

import "context"

type requestIDKey struct{}

// WithRequestID returns a context carrying the inbound request ID so that
// outbound upstream calls can forward it.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID extracts the request ID from context, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
