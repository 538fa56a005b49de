package auth

import (
	"context"

	"google.golang.org/grpc/metadata"
)

type actorKey struct{}

// WithActorID records who issued the current command.
func WithActorID(ctx context.Context, actorID string) context.Context {
	if actorID == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, actorID)
}

// GetActorID returns the actor set by the transport, falling back to gRPC metadata.
func GetActorID(ctx context.Context) string {
	if val, ok := ctx.Value(actorKey{}).(string); ok {
		return val
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get("x-actor-id"); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}
