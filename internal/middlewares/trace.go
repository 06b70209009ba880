package middlewares

import (
	"github.com/gin-gonic/gin"

	log "github.com/Gopher0727/DomainHub/middleware/log"
)

const TraceIDHeader = "X-Trace-ID"

// TraceMiddleware 为每个请求分配 trace id 并注入 request context
// 客户端带了 X-Trace-ID 就沿用，方便跨服务串联
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = log.NewTraceID()
		}

		ctx := log.WithTraceID(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}
