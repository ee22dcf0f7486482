package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/omnidesk/omnidesk/internal/types"
)

func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx = context.WithValue(ctx, types.CtxRequestID, requestID)
	c.Request = c.Request.WithContext(ctx)

	c.Header(types.HeaderRequestID, requestID)

	c.Next()
}

// OwnerContextMiddleware resolves the acting owner for the request. The
// dashboard gateway authenticates upstream and forwards the owner id in a
// header; local runs fall back to the development owner.
func OwnerContextMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	ownerID := c.GetHeader(types.HeaderOwnerID)
	if ownerID == "" {
		ownerID = types.DefaultOwnerID
	}

	ctx = context.WithValue(ctx, types.CtxOwnerID, ownerID)
	ctx = context.WithValue(ctx, types.CtxUserID, ownerID)
	c.Request = c.Request.WithContext(ctx)

	c.Next()
}
