// Package config provides configuration types and loading for the
// catalog service.
//
// Configuration is read from a YAML file. Values may reference
// environment variables with ${VAR} or ${VAR:-default}; a literal
// dollar sign is written as $$. Missing values are filled from
// DefaultConfig before validation.
//
//	cfg, err := config.LoadConfig("catalog.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    log.Fatal(err)
//	}
package config
