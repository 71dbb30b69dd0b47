// Package health serves the liveness, health and readiness endpoints of the
// catalog service.
package health

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Status is the outcome of a check.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity orders statuses so the worst one can be picked.
func (s Status) severity() int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse is the body of GET /ready.
type ReadinessResponse struct {
	Status    Status           `json:"status"`
	Checks    map[string]Check `json:"checks,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Check is the result of one readiness check.
type Check struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// CheckFunc evaluates one readiness check.
type CheckFunc func() Check

// Checker holds the readiness checks of the service.
type Checker struct {
	version string
	started time.Time

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewChecker returns a Checker reporting version.
func NewChecker(version string) *Checker {
	return &Checker{
		version: version,
		started: time.Now(),
		checks:  map[string]CheckFunc{},
	}
}

// RegisterCheck adds fn under name, replacing any earlier check of the
// same name.
func (c *Checker) RegisterCheck(name string, fn CheckFunc) {
	c.mu.Lock()
	c.checks[name] = fn
	c.mu.Unlock()
}

// CheckNames lists the registered checks alphabetically.
func (c *Checker) CheckNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Health reports process health. It does not run the readiness checks.
func (c *Checker) Health() HealthResponse {
	return HealthResponse{
		Status:    StatusHealthy,
		Version:   c.version,
		Uptime:    time.Since(c.started).Round(time.Second).String(),
		Timestamp: time.Now(),
	}
}

// Readiness runs every check and reports the worst status seen.
func (c *Checker) Readiness() ReadinessResponse {
	c.mu.RLock()
	defer c.mu.RUnlock()

	resp := ReadinessResponse{
		Status:    StatusHealthy,
		Checks:    make(map[string]Check, len(c.checks)),
		Timestamp: time.Now(),
	}
	for name, fn := range c.checks {
		result := fn()
		resp.Checks[name] = result
		if result.Status.severity() > resp.Status.severity() {
			resp.Status = result.Status
		}
	}
	return resp
}

// Register mounts the health endpoints on r.
func (c *Checker) Register(r gin.IRoutes) {
	r.GET("/live", c.LivenessHandler)
	r.GET("/health", c.HealthHandler)
	r.GET("/ready", c.ReadinessHandler)
}

// LivenessHandler answers as long as the process can serve HTTP.
func (c *Checker) LivenessHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HealthHandler serves Health.
func (c *Checker) HealthHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.Health())
}

// ReadinessHandler serves Readiness, with 503 while any check is
// unhealthy. Degraded still counts as ready.
func (c *Checker) ReadinessHandler(ctx *gin.Context) {
	resp := c.Readiness()
	code := http.StatusOK
	if resp.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	ctx.JSON(code, resp)
}
