package auth

import (
	"context"
	"testing"

	"google.golang.org/grpc/metadata"
)

func TestGetActorID(t *testing.T) {
	if got := GetActorID(context.Background()); got != "" {
		t.Errorf("expected empty actor, got %q", got)
	}

	ctx := WithActorID(context.Background(), "admin-1")
	if got := GetActorID(ctx); got != "admin-1" {
		t.Errorf("GetActorID = %q, want %q", got, "admin-1")
	}

	md := metadata.New(map[string]string{"x-actor-id": "seller-9"})
	ctx = metadata.NewIncomingContext(context.Background(), md)
	if got := GetActorID(ctx); got != "seller-9" {
		t.Errorf("GetActorID from metadata = %q, want %q", got, "seller-9")
	}
}
