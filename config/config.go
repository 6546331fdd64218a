package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// WhitelistAll is the sentinel entry meaning every dependency is allowed.
const WhitelistAll = "*"

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Runner  RunnerConfig  `mapstructure:"runner"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport  string `mapstructure:"transport"`
	HTTPPort   int    `mapstructure:"http_port"`
	MaxWorkers int    `mapstructure:"max_workers"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// RunnerConfig holds the execution runner configuration. The referenced
// container must already exist and be running; the runner never creates it.
type RunnerConfig struct {
	ContainerName       string   `mapstructure:"container_name"`
	PythonBinary        string   `mapstructure:"python_binary"`
	CodeDir             string   `mapstructure:"code_dir"`
	DependencyWhitelist []string `mapstructure:"dependency_whitelist"`
	WhitelistFile       string   `mapstructure:"whitelist_file"`
	CachedDependencies  []string `mapstructure:"cached_dependencies"`
	CPUQuota            int64    `mapstructure:"cpu_quota"`
	MemoryLimit         string   `mapstructure:"memory_limit"`
	MemswapLimit        string   `mapstructure:"memswap_limit"`
	DefaultTimeoutSec   int      `mapstructure:"default_timeout_sec"`
}

// New loads and validates the application configuration
func New() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("agentbox")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("server.transport", "http")
	viper.SetDefault("server.http_port", 8000)
	viper.SetDefault("server.max_workers", 4)

	viper.SetDefault("logging.mode", "production")
	viper.SetDefault("logging.level", "info")

	viper.SetDefault("runner.container_name", "agentbox-python-runner")
	viper.SetDefault("runner.python_binary", "python")
	viper.SetDefault("runner.code_dir", "/code")
	viper.SetDefault("runner.dependency_whitelist", []string{WhitelistAll})
	viper.SetDefault("runner.cached_dependencies", []string{})
	viper.SetDefault("runner.cpu_quota", 50000)
	viper.SetDefault("runner.memory_limit", "100m")
	viper.SetDefault("runner.memswap_limit", "512m")
	viper.SetDefault("runner.default_timeout_sec", 20)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// An external whitelist file replaces the inline list entirely
	if config.Runner.WhitelistFile != "" {
		whitelist, err := loadWhitelistFile(config.Runner.WhitelistFile)
		if err != nil {
			return nil, fmt.Errorf("error loading whitelist file: %w", err)
		}
		config.Runner.DependencyWhitelist = whitelist
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// loadWhitelistFile reads a YAML list of allowed dependency names
func loadWhitelistFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var whitelist []string
	if err := yaml.Unmarshal(data, &whitelist); err != nil {
		return nil, fmt.Errorf("whitelist file %s is not a YAML list: %w", path, err)
	}
	return whitelist, nil
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	supportedTransports := map[string]bool{
		"http":      true,
		"mcp-stdio": true,
		"mcp-http":  true,
	}
	if !supportedTransports[c.Server.Transport] {
		return fmt.Errorf("invalid server.transport: %s, must be 'http', 'mcp-stdio' or 'mcp-http'", c.Server.Transport)
	}

	if c.Server.MaxWorkers <= 0 {
		return fmt.Errorf("server.max_workers must be positive, got: %d", c.Server.MaxWorkers)
	}

	return c.Runner.Validate()
}

// Validate ensures the runner configuration is internally consistent. The
// whitelist/cache invariant is checked here so a misconfigured runner fails
// at startup rather than on the first submission.
func (c *RunnerConfig) Validate() error {
	if c.ContainerName == "" {
		return fmt.Errorf("runner.container_name must not be empty")
	}

	if c.CPUQuota <= 0 {
		return fmt.Errorf("runner.cpu_quota must be positive, got: %d", c.CPUQuota)
	}

	if c.DefaultTimeoutSec <= 0 {
		return fmt.Errorf("runner.default_timeout_sec must be positive, got: %d", c.DefaultTimeoutSec)
	}

	if _, err := units.RAMInBytes(c.MemoryLimit); err != nil {
		return fmt.Errorf("invalid runner.memory_limit %q: %w", c.MemoryLimit, err)
	}
	if _, err := units.RAMInBytes(c.MemswapLimit); err != nil {
		return fmt.Errorf("invalid runner.memswap_limit %q: %w", c.MemswapLimit, err)
	}

	if !c.AllowsAll() {
		allowed := make(map[string]bool, len(c.DependencyWhitelist))
		for _, dep := range c.DependencyWhitelist {
			allowed[dep] = true
		}
		for _, dep := range c.CachedDependencies {
			if !allowed[dep] {
				return fmt.Errorf("cached dependency %q is not in the dependency whitelist", dep)
			}
		}
	}

	return nil
}

// AllowsAll reports whether the whitelist contains the "all allowed" sentinel
func (c *RunnerConfig) AllowsAll() bool {
	for _, dep := range c.DependencyWhitelist {
		if dep == WhitelistAll {
			return true
		}
	}
	return false
}

// MemoryLimitBytes returns the memory limit as bytes. Validate must have
// accepted the configuration first.
func (c *RunnerConfig) MemoryLimitBytes() int64 {
	n, _ := units.RAMInBytes(c.MemoryLimit)
	return n
}

// MemswapLimitBytes returns the memory+swap limit as bytes
func (c *RunnerConfig) MemswapLimitBytes() int64 {
	n, _ := units.RAMInBytes(c.MemswapLimit)
	return n
}

// DefaultTimeout returns the per-submission execution timeout as a duration
func (c *RunnerConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutSec) * time.Second
}
