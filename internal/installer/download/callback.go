package download

import "context"

type progressKey struct{}

// WithProgress returns a context carrying a progress callback for downloads.
func WithProgress(ctx context.Context, cb ProgressCallback) context.Context {
	return context.WithValue(ctx, progressKey{}, cb)
}

// ProgressFromContext extracts the progress callback from context, or nil.
func ProgressFromContext(ctx context.Context) ProgressCallback {
	if cb, ok := ctx.Value(progressKey{}).(ProgressCallback); ok {
		return cb
	}
	return nil
}
