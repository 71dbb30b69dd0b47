package config

import (
	"fmt"
	"net/url"
	"strings"
)

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "console": true}
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates catalog configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a catalog configuration.
func ValidateConfig(config *CatalogConfig) error {
	return NewValidator().Validate(config)
}

// Validate validates the configuration and returns ValidationErrors when
// anything is wrong.
func (v *Validator) Validate(config *CatalogConfig) error {
	v.errors = make(ValidationErrors, 0)

	if config == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateServer(&config.Server)
	v.validateUpstream(&config.Upstream)
	v.validatePipeline(&config.Pipeline)
	if config.RateLimit != nil {
		v.validateRateLimit(config.RateLimit)
	}
	v.validateObservability(&config.Observability, config.Server.Port)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateServer(s *ServerConfig) {
	v.validatePort("server.port", s.Port)

	if !strings.HasPrefix(s.ProductsPath, "/") {
		v.addError("server.productsPath", "path must start with '/'")
	}

	timeouts := []struct {
		path  string
		value Duration
	}{
		{"server.readTimeout", s.ReadTimeout},
		{"server.readHeaderTimeout", s.ReadHeaderTimeout},
		{"server.writeTimeout", s.WriteTimeout},
		{"server.idleTimeout", s.IdleTimeout},
		{"server.shutdownTimeout", s.ShutdownTimeout},
	}
	for _, t := range timeouts {
		if t.value < 0 {
			v.addError(t.path, "duration must not be negative")
		}
	}
}

func (v *Validator) validateUpstream(u *UpstreamConfig) {
	if u.URL == "" {
		v.addError("upstream.url", "url is required")
	} else {
		parsed, err := url.Parse(u.URL)
		switch {
		case err != nil:
			v.addError("upstream.url", fmt.Sprintf("invalid url: %v", err))
		case parsed.Scheme != "http" && parsed.Scheme != "https":
			v.addError("upstream.url", "scheme must be http or https")
		case parsed.Host == "":
			v.addError("upstream.url", "host is required")
		}
	}

	if cb := u.CircuitBreaker; cb != nil && cb.Enabled {
		if cb.Threshold <= 0 {
			v.addError("upstream.circuitBreaker.threshold", "threshold must be positive")
		}
		if cb.Timeout <= 0 {
			v.addError("upstream.circuitBreaker.timeout", "timeout must be positive")
		}
		if cb.HalfOpenRequests <= 0 {
			v.addError("upstream.circuitBreaker.halfOpenRequests", "halfOpenRequests must be positive")
		}
	}
}

func (v *Validator) validatePipeline(p *PipelineConfig) {
	if p.USDToINRRate <= 0 {
		v.addError("pipeline.usdToInrRate", "rate must be positive")
	}
}

func (v *Validator) validateRateLimit(rl *RateLimitConfig) {
	if !rl.Enabled {
		return
	}
	if rl.RequestsPerSecond <= 0 {
		v.addError("rateLimit.requestsPerSecond", "requestsPerSecond must be positive")
	}
	if rl.Burst <= 0 {
		v.addError("rateLimit.burst", "burst must be positive")
	}
}

func (v *Validator) validateObservability(o *ObservabilityConfig, serverPort int) {
	if !validLogLevels[o.Logging.Level] {
		v.addError("observability.logging.level", "level must be debug, info, warn, or error")
	}
	if !validLogFormats[o.Logging.Format] {
		v.addError("observability.logging.format", "format must be json or console")
	}

	if o.Metrics.Enabled {
		v.validatePort("observability.metrics.port", o.Metrics.Port)
		if o.Metrics.Port == serverPort {
			v.addError("observability.metrics.port",
				fmt.Sprintf("port %d already used by server", serverPort))
		}
		if !strings.HasPrefix(o.Metrics.Path, "/") {
			v.addError("observability.metrics.path", "path must start with '/'")
		}
	}

	if o.Tracing.Enabled {
		if o.Tracing.SamplingRate < 0 || o.Tracing.SamplingRate > 1 {
			v.addError("observability.tracing.samplingRate", "samplingRate must be between 0 and 1")
		}
	}
}

func (v *Validator) validatePort(path string, port int) {
	if port < 1 || port > 65535 {
		v.addError(path, fmt.Sprintf("port must be between 1 and 65535, got %d", port))
	}
}

// addError adds a validation error.
func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{
		Path:    path,
		Message: message,
	})
}
