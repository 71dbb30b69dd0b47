package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avacatalog/internal/server/middleware"
)

// newEngine builds the gin engine with middleware and routes.
func (s *Server) newEngine() *gin.Engine {
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.RedirectTrailingSlash = false

	engine.Use(
		middleware.Recovery(s.logger),
		middleware.Logging(s.logger),
		middleware.Tracing(s.tracer),
		middleware.Metrics(s.metrics),
	)

	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Error: MsgMethodNotAllowed})
	})
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: MsgNotFound})
	})

	engine.GET(s.cfg.ProductsPath, middleware.RateLimit(s.rateLimiter), s.products.Handle)

	if s.health != nil {
		s.health.Register(engine)
	}

	return engine
}
