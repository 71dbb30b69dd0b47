package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/vyrodovalexey/avacatalog/internal/observability"
)

// RecoveryConfig configures RecoveryWithConfig.
type RecoveryConfig struct {
	Logger           observability.Logger
	EnableStackTrace bool
	// PanicHandler writes the response after a panic. The default answers
	// 500 with the generic error body.
	PanicHandler func(c *gin.Context, err interface{})
}

// Recovery converts handler panics into a logged 500 response.
func Recovery(logger observability.Logger) gin.HandlerFunc {
	return RecoveryWithConfig(RecoveryConfig{Logger: logger, EnableStackTrace: true})
}

// RecoveryWithConfig is Recovery with explicit settings.
func RecoveryWithConfig(cfg RecoveryConfig) gin.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	respond := cfg.PanicHandler
	if respond == nil {
		respond = internalError
	}

	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			logger.WithContext(c.Request.Context()).Error("panic recovered",
				panicFields(c, rec, cfg.EnableStackTrace)...)

			if span := GetSpan(c); span != nil {
				span.RecordError(fmt.Errorf("panic: %v", rec))
				span.SetStatus(codes.Error, "panic")
			}

			respond(c, rec)
		}()

		c.Next()
	}
}

func panicFields(c *gin.Context, rec interface{}, withStack bool) []observability.Field {
	fields := []observability.Field{
		observability.Any("panic", rec),
		observability.String("method", c.Request.Method),
		observability.String("path", c.Request.URL.Path),
	}
	if withStack {
		fields = append(fields, observability.String("stack", string(debug.Stack())))
	}
	return fields
}

func internalError(c *gin.Context, _ interface{}) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
