package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avacatalog/internal/observability"
)

// routeLabel is the matched route pattern, or UnmatchedRoute for paths no
// route serves. Raw paths are never used as labels.
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return observability.UnmatchedRoute
}

func passThrough(c *gin.Context) { c.Next() }
