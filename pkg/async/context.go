package async

import "context"

type performingKey struct{}

// Performing reports whether ctx belongs to a job performing a request.
// Requests made with such a context run inline whatever the client's mode.
func Performing(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(performingKey{}).(bool)
	return v
}

func withPerforming(ctx context.Context) context.Context {
	return context.WithValue(ctx, performingKey{}, true)
}
