package session

import "context"

type contextKey struct{}

// WithVisitor returns a context carrying v
func WithVisitor(ctx context.Context, v *Visitor) context.Context {
	return context.WithValue(ctx, contextKey{}, v)
}

// FromContext returns the visitor stored by WithVisitor
func FromContext(ctx context.Context) (*Visitor, bool) {
	v, ok := ctx.Value(contextKey{}).(*Visitor)
	return v, ok && v != nil
}
