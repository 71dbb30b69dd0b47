// Package middleware provides the gin middleware chain of the catalog
// HTTP server: panic recovery, request IDs with access logging, tracing,
// request metrics and rate limiting.
package middleware
