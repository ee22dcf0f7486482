package types

import (
	"context"
	"fmt"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
	CtxOwnerID   ContextKey = "ctx_owner_id"
	CtxUserID    ContextKey = "ctx_user_id"

	// Default values
	DefaultOwnerID = "00000000-0000-0000-0000-000000000000"
	DefaultUserID  = "00000000-0000-0000-0000-000000000000"
)

// Header names surfaced by the HTTP layer
const (
	HeaderRequestID = "X-Request-ID"
	HeaderOwnerID   = "X-Owner-ID"
)

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

// GetOwnerID returns the authenticated workspace owner for the request.
// Authentication itself happens upstream; by the time a request reaches the
// services the owner id is assumed to be trustworthy.
func GetOwnerID(ctx context.Context) string {
	if ownerID, ok := ctx.Value(CtxOwnerID).(string); ok {
		return ownerID
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

// SetOwnerID sets the owner ID in the context
func SetOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, CtxOwnerID, ownerID)
}

// SetUserID sets the user ID in the context
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

// ValidateOwnerContext validates that the required owner context is present
func ValidateOwnerContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context is nil")
	}

	ownerID := GetOwnerID(ctx)
	if ownerID == "" {
		return fmt.Errorf("no owner context found in context")
	}

	return nil
}
