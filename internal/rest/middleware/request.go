package middleware

import (
	"context"

	"github.com/focusdeck/creditcore/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
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

// TenantMiddleware resolves the tenant from the request. Identity is handled
// by the hosted identity provider upstream; by the time a request reaches
// this service the gateway has stamped the tenant header.
func TenantMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	tenantID := c.GetHeader(types.HeaderTenantID)
	if tenantID == "" {
		tenantID = types.DefaultTenantID
	}

	ctx = context.WithValue(ctx, types.CtxTenantID, tenantID)
	c.Request = c.Request.WithContext(ctx)

	c.Next()
}
