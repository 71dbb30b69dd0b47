package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vyrodovalexey/avacatalog/internal/catalog"
	"github.com/vyrodovalexey/avacatalog/internal/observability"
	"github.com/vyrodovalexey/avacatalog/internal/pipeline"
	"github.com/vyrodovalexey/avacatalog/internal/record"
	"github.com/vyrodovalexey/avacatalog/internal/server/middleware"
	"github.com/vyrodovalexey/avacatalog/internal/upstream"
)

// ProductsHandler serves the catalog read endpoint.
type ProductsHandler struct {
	fetcher  upstream.Fetcher
	pipeline *pipeline.Pipeline
	logger   observability.Logger
}

// NewProductsHandler creates a handler reading from fetcher.
func NewProductsHandler(
	fetcher upstream.Fetcher,
	p *pipeline.Pipeline,
	logger observability.Logger,
) *ProductsHandler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ProductsHandler{
		fetcher:  fetcher,
		pipeline: p,
		logger:   logger,
	}
}

// Handle validates the query, fetches the upstream document and writes the
// pipeline output as a JSON array. Invalid options are rejected before the
// upstream is contacted.
func (h *ProductsHandler) Handle(c *gin.Context) {
	ctx := c.Request.Context()
	logger := h.logger.WithContext(ctx)

	opts, err := catalog.ParseOptions(c.Request.URL.Query(), h.pipeline.Tables())
	if err != nil {
		logger.Debug("rejected request options",
			observability.String("query", c.Request.URL.RawQuery),
			observability.Error(err),
		)
		abortWithError(c, err)
		return
	}

	raws, err := h.fetcher.Fetch(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}

	result, err := h.pipeline.Run(raws, opts)
	if err != nil {
		logger.Error("pipeline failed", observability.Error(err))
		abortWithError(c, err)
		return
	}

	if span := middleware.GetSpan(c); span != nil {
		span.SetAttributes(
			attribute.Int("catalog.received", result.Stats.Received),
			attribute.Int("catalog.dropped", result.Stats.Dropped),
			attribute.Int("catalog.output", result.Stats.Output),
		)
	}

	logger.Debug("pipeline completed", statsFields(result.Stats)...)

	records := result.Records
	if records == nil {
		records = []*record.Record{}
	}
	c.JSON(http.StatusOK, records)
}

func statsFields(stats pipeline.Stats) []observability.Field {
	fields := []observability.Field{
		observability.Int("received", stats.Received),
		observability.Int("normalized", stats.Normalized),
		observability.Int("dropped", stats.Dropped),
		observability.Int("filtered", stats.Filtered),
		observability.Int("output", stats.Output),
	}

	var total time.Duration
	for _, stage := range pipeline.Stages {
		total += stats.Durations[stage]
	}
	return append(fields, observability.Duration("pipeline_duration", total))
}
