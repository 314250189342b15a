package middleware

import (
	"context"
	"fmt"
	"strings"

	"sregrade/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	TraceIDHeader   = "X-Trace-Id"
	RequestIDHeader = "X-Request-Id"
)

// IDConfig controls which ids are accepted from the caller.
type IDConfig struct {
	// TrustTraceHeader accepts an incoming X-Trace-Id so an agent run can be followed across submissions.
	TrustTraceHeader bool
}

// IDs tags every request with a trace id and a request id, trusting a caller-supplied trace id.
func IDs() gin.HandlerFunc {
	return IDsWithConfig(IDConfig{TrustTraceHeader: true})
}

// IDsWithConfig stores both ids in the gin context, the request context and the response headers.
// A request id sent by the caller is always kept.
func IDsWithConfig(cfg IDConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx = tagID(c, ctx, contextkey.TraceID, TraceIDHeader, cfg.TrustTraceHeader)
		ctx = tagID(c, ctx, contextkey.RequestID, RequestIDHeader, true)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func tagID(c *gin.Context, ctx context.Context, key fmt.Stringer, header string, trust bool) context.Context {
	id := ""
	if trust {
		id = strings.TrimSpace(c.GetHeader(header))
	}
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(key.String(), id)
	c.Writer.Header().Set(header, id)
	return context.WithValue(ctx, key, id)
}
