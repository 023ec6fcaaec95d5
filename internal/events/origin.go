package events

import (
	"context"

	"github.com/google/uuid"
)

// Origin identifies the connection whose request caused an emission.
type Origin struct {
	Session    string
	Controller uuid.UUID
}

type originKey struct{}

// WithOrigin returns ctx carrying o. Listeners receive it through Emit.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// OriginFrom returns the origin stored in ctx.
func OriginFrom(ctx context.Context) (Origin, bool) {
	o, ok := ctx.Value(originKey{}).(Origin)
	return o, ok
}
