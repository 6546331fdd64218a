// Package config provides application configuration management.
//
// The config package handles loading and validation of the application's
// configuration from YAML files and AGENTBOX_-prefixed environment
// variables. It covers server settings, logging, and the execution runner
// parameters (target container, dependency whitelist, resource limits).
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Target container: %s\n", cfg.Runner.ContainerName)
package config
