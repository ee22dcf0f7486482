package testutil

import (
	"context"

	"github.com/omnidesk/omnidesk/internal/types"
)

func SetupContext() context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, types.CtxOwnerID, types.DefaultOwnerID)
	ctx = context.WithValue(ctx, types.CtxUserID, types.DefaultUserID)
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	return ctx
}

// SetupContextForOwner builds a request context acting as the given owner.
func SetupContextForOwner(ownerID string) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, types.CtxOwnerID, ownerID)
	ctx = context.WithValue(ctx, types.CtxUserID, ownerID)
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	return ctx
}
