package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avacatalog/internal/observability"
)

// Metrics records request count, latency, response size and in-flight
// requests, labelled by route pattern.
func Metrics(metrics *observability.Metrics) gin.HandlerFunc {
	if metrics == nil {
		return passThrough
	}

	return func(c *gin.Context) {
		method := c.Request.Method
		metrics.IncrementActiveRequests(method)
		defer metrics.DecrementActiveRequests(method)

		begin := time.Now()
		c.Next()

		size := int64(max(c.Writer.Size(), 0))
		metrics.RecordRequest(method, routeLabel(c), c.Writer.Status(), time.Since(begin), size)
	}
}
