package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// setPropagator installs p as the global propagator and returns a func
// restoring the previous one.
func setPropagator(p propagation.TextMapPropagator) func() {
	previous := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(p)
	return func() { otel.SetTextMapPropagator(previous) }
}
