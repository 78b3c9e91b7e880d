package booking

import "context"

type contextKey string

const idempotencyKey contextKey = "idempotencyKey"

// NewContextWithIdempotencyKey makes a Reserve call replay-safe: a second call
// carrying the same key returns the booking created by the first.
func NewContextWithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey, key)
}

func IdempotencyKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKey).(string)

	return key, ok && key != ""
}
