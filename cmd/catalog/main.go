// Package main runs the product catalog service.
package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/avacatalog/internal/config"
	"github.com/vyrodovalexey/avacatalog/internal/observability"
)

// Set by -ldflags at build time.
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "avacatalog:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	flags, err := parseFlags(flag.NewFlagSet("avacatalog", flag.ContinueOnError), args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if flags.showVersion {
		printVersion(stdout)
		return nil
	}

	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cmp.Or(flags.logLevel, "info"),
		Format: cmp.Or(flags.logFormat, "json"),
	})
	if err != nil {
		return fmt.Errorf("bootstrap logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadAndValidateConfig(flags, logger)
	if err != nil {
		return err
	}

	app, err := buildApplication(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, app)
}

// parseFlags reads the command line. Unset flags fall back to the
// CATALOG_CONFIG_PATH, CATALOG_LOG_LEVEL and CATALOG_LOG_FORMAT
// environment variables.
func parseFlags(fs *flag.FlagSet, args []string) (cliFlags, error) {
	var f cliFlags
	fs.StringVar(&f.configPath, "config", os.Getenv("CATALOG_CONFIG_PATH"),
		"path to the YAML config file; built-in defaults when empty")
	fs.StringVar(&f.logLevel, "log-level", os.Getenv("CATALOG_LOG_LEVEL"),
		"debug, info, warn or error; overrides the config file")
	fs.StringVar(&f.logFormat, "log-format", os.Getenv("CATALOG_LOG_FORMAT"),
		"json or console; overrides the config file")
	fs.BoolVar(&f.showVersion, "version", false, "print version information and exit")

	err := fs.Parse(args)
	return f, err
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "avacatalog %s (commit %s, built %s)\n", version, gitCommit, buildTime)
}

func loadAndValidateConfig(flags cliFlags, logger observability.Logger) (*config.CatalogConfig, error) {
	logger.Info("starting avacatalog",
		observability.String("version", version),
		observability.String("config", flags.configPath),
	)

	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("configuration loaded",
		observability.String("upstream", cfg.Upstream.URL),
		observability.String("products_path", cfg.Server.ProductsPath),
		observability.Int("port", cfg.Server.Port),
		observability.Bool("rate_limit", cfg.RateLimit != nil && cfg.RateLimit.Enabled),
		observability.Bool("circuit_breaker",
			cfg.Upstream.CircuitBreaker != nil && cfg.Upstream.CircuitBreaker.Enabled),
	)
	return cfg, nil
}

// loadConfig reads the config file named by flags, or the defaults when
// none is given, and applies the logging flag overrides.
func loadConfig(flags cliFlags) (*config.CatalogConfig, error) {
	cfg := config.DefaultConfig()
	if flags.configPath != "" {
		path, err := config.ResolveConfigPath(flags.configPath)
		if err != nil {
			return nil, err
		}
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}

	cfg.Observability.Logging.Level = cmp.Or(flags.logLevel, cfg.Observability.Logging.Level)
	cfg.Observability.Logging.Format = cmp.Or(flags.logFormat, cfg.Observability.Logging.Format)
	return cfg, nil
}
