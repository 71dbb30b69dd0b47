package config

import (
	"time"

	"github.com/vyrodovalexey/avacatalog/internal/catalog"
)

// Default values.
const (
	DefaultAddress           = "0.0.0.0"
	DefaultPort              = 8080
	DefaultProductsPath      = "/products"
	DefaultUpstreamURL       = "https://example.com/api/electronics"
	DefaultReadTimeout       = 30 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultMetricsPort       = 9090
	DefaultMetricsPath       = "/metrics"
	DefaultMetricsNamespace  = "catalog"
	DefaultServiceName       = "avacatalog"
	DefaultBreakerThreshold  = 5
	DefaultBreakerTimeout    = 30 * time.Second
	DefaultBreakerHalfOpen   = 1
	DefaultRateLimitRPS      = 100
	DefaultRateLimitBurst    = 200
)

// CatalogConfig is the root configuration of the catalog service.
type CatalogConfig struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream" json:"upstream"`
	Pipeline      PipelineConfig      `yaml:"pipeline" json:"pipeline"`
	RateLimit     *RateLimitConfig    `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// ServerConfig configures the public HTTP listener.
type ServerConfig struct {
	Address           string   `yaml:"address,omitempty" json:"address,omitempty"`
	Port              int      `yaml:"port,omitempty" json:"port,omitempty"`
	ProductsPath      string   `yaml:"productsPath,omitempty" json:"productsPath,omitempty"`
	ReadTimeout       Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	ReadHeaderTimeout Duration `yaml:"readHeaderTimeout,omitempty" json:"readHeaderTimeout,omitempty"`
	WriteTimeout      Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	IdleTimeout       Duration `yaml:"idleTimeout,omitempty" json:"idleTimeout,omitempty"`
	ShutdownTimeout   Duration `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
}

// UpstreamConfig configures the product data source.
type UpstreamConfig struct {
	URL            string                `yaml:"url" json:"url"`
	CircuitBreaker *CircuitBreakerConfig `yaml:"circuitBreaker,omitempty" json:"circuitBreaker,omitempty"`
}

// CircuitBreakerConfig configures the optional upstream circuit breaker.
type CircuitBreakerConfig struct {
	Enabled          bool     `yaml:"enabled" json:"enabled"`
	Threshold        int      `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Timeout          Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	HalfOpenRequests int      `yaml:"halfOpenRequests,omitempty" json:"halfOpenRequests,omitempty"`
}

// PipelineConfig configures the catalog pipeline tables.
type PipelineConfig struct {
	USDToINRRate float64 `yaml:"usdToInrRate,omitempty" json:"usdToInrRate,omitempty"`
}

// RateLimitConfig configures request rate limiting on the products route.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" json:"enabled"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond,omitempty" json:"requestsPerSecond,omitempty"`
	Burst             int     `yaml:"burst,omitempty" json:"burst,omitempty"`
	PerClient         bool    `yaml:"perClient,omitempty" json:"perClient,omitempty"`
}

// ObservabilityConfig groups logging, metrics and tracing settings.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Port      int    `yaml:"port,omitempty" json:"port,omitempty"`
	Path      string `yaml:"path,omitempty" json:"path,omitempty"`
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *CatalogConfig {
	return &CatalogConfig{
		Server: ServerConfig{
			Address:           DefaultAddress,
			Port:              DefaultPort,
			ProductsPath:      DefaultProductsPath,
			ReadTimeout:       Duration(DefaultReadTimeout),
			ReadHeaderTimeout: Duration(DefaultReadHeaderTimeout),
			WriteTimeout:      Duration(DefaultWriteTimeout),
			IdleTimeout:       Duration(DefaultIdleTimeout),
			ShutdownTimeout:   Duration(DefaultShutdownTimeout),
		},
		Upstream: UpstreamConfig{
			URL: DefaultUpstreamURL,
		},
		Pipeline: PipelineConfig{
			USDToINRRate: catalog.DefaultUSDToINR,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
			Metrics: MetricsConfig{
				Enabled:   true,
				Port:      DefaultMetricsPort,
				Path:      DefaultMetricsPath,
				Namespace: DefaultMetricsNamespace,
			},
			Tracing: TracingConfig{
				ServiceName:  DefaultServiceName,
				SamplingRate: 1.0,
			},
		},
	}
}

// ApplyDefaults fills zero values in cfg from DefaultConfig. Booleans are
// left as written.
func ApplyDefaults(cfg *CatalogConfig) {
	def := DefaultConfig()

	applyServerDefaults(&cfg.Server, &def.Server)

	if cfg.Upstream.URL == "" {
		cfg.Upstream.URL = def.Upstream.URL
	}
	if cb := cfg.Upstream.CircuitBreaker; cb != nil {
		if cb.Threshold == 0 {
			cb.Threshold = DefaultBreakerThreshold
		}
		if cb.Timeout == 0 {
			cb.Timeout = Duration(DefaultBreakerTimeout)
		}
		if cb.HalfOpenRequests == 0 {
			cb.HalfOpenRequests = DefaultBreakerHalfOpen
		}
	}

	if cfg.Pipeline.USDToINRRate == 0 {
		cfg.Pipeline.USDToINRRate = def.Pipeline.USDToINRRate
	}

	if rl := cfg.RateLimit; rl != nil {
		if rl.RequestsPerSecond == 0 {
			rl.RequestsPerSecond = DefaultRateLimitRPS
		}
		if rl.Burst == 0 {
			rl.Burst = DefaultRateLimitBurst
		}
	}

	applyObservabilityDefaults(&cfg.Observability, &def.Observability)
}

func applyServerDefaults(s, def *ServerConfig) {
	if s.Address == "" {
		s.Address = def.Address
	}
	if s.Port == 0 {
		s.Port = def.Port
	}
	if s.ProductsPath == "" {
		s.ProductsPath = def.ProductsPath
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = def.ReadTimeout
	}
	if s.ReadHeaderTimeout == 0 {
		s.ReadHeaderTimeout = def.ReadHeaderTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = def.WriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = def.IdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = def.ShutdownTimeout
	}
}

func applyObservabilityDefaults(o, def *ObservabilityConfig) {
	if o.Logging.Level == "" {
		o.Logging.Level = def.Logging.Level
	}
	if o.Logging.Format == "" {
		o.Logging.Format = def.Logging.Format
	}
	if o.Logging.Output == "" {
		o.Logging.Output = def.Logging.Output
	}

	if o.Metrics.Port == 0 {
		o.Metrics.Port = def.Metrics.Port
	}
	if o.Metrics.Path == "" {
		o.Metrics.Path = def.Metrics.Path
	}
	if o.Metrics.Namespace == "" {
		o.Metrics.Namespace = def.Metrics.Namespace
	}

	if o.Tracing.ServiceName == "" {
		o.Tracing.ServiceName = def.Tracing.ServiceName
	}
}

// Tables builds the immutable pipeline tables described by cfg.
func (c *CatalogConfig) Tables() *catalog.Tables {
	return catalog.NewTables(c.Pipeline.USDToINRRate)
}
