package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kewsys/registry/internal/types"
)

func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx = context.WithValue(ctx, types.CtxRequestID, requestID)
	// audit entries record where a change came from
	ctx = types.SetClientInfo(ctx, c.ClientIP(), c.Request.UserAgent())

	c.Request = c.Request.WithContext(ctx)
	c.Header(types.HeaderRequestID, requestID)

	c.Next()
}
