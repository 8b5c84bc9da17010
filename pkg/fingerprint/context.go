package fingerprint

import "context"

type contextKey string

const (
	// ContextKeyFingerprint is the context key for the snapshot fingerprint.
	ContextKeyFingerprint contextKey = "criteriaFingerprint"
)

// FromContext retrieves the fingerprint key from context.
func FromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(ContextKeyFingerprint).(string)

	return key, ok && key != ""
}

// WithKey returns a new context carrying the fingerprint key.
func WithKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ContextKeyFingerprint, key)
}
