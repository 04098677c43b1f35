package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ROPSIM_"

// LoadConfig loads configuration from a YAML file at path, decoding it over
// the defaults, and validates the result. Environment variables are not
// consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML over the defaults without validating.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// ROPSIM_SECTION_FIELD (e.g., ROPSIM_REMOTE_HOST) and always take precedence
// over the file.
//
// A .env file next to the working directory, when present, is loaded first.
// Variables already set in the environment win over the .env file.
//
// The loading sequence is:
// 1. Load YAML from file over the defaults
// 2. Load .env
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to cfg.
// Unparseable numeric, boolean and duration values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Remote overrides
	envString("REMOTE_BACKEND", &cfg.Remote.Backend)
	envString("REMOTE_HOST", &cfg.Remote.Host)
	envInt("REMOTE_PORT", &cfg.Remote.Port)
	envString("REMOTE_USER", &cfg.Remote.User)
	envString("REMOTE_PASSWORD", &cfg.Remote.Password)
	envString("REMOTE_PRIVATE_KEY_PATH", &cfg.Remote.PrivateKeyPath)
	envString("REMOTE_KNOWN_HOSTS_PATH", &cfg.Remote.KnownHostsPath)
	envString("REMOTE_BASE_DIRECTORY", &cfg.Remote.BaseDirectory)
	envString("REMOTE_PERMISSIONS", &cfg.Remote.Permissions)
	envDuration("REMOTE_CONNECTION_TIMEOUT", &cfg.Remote.Connection.Timeout)
	envInt("REMOTE_CONNECTION_RETRY_COUNT_STARTUP", &cfg.Remote.Connection.RetryCountStartup)
	envInt("REMOTE_CONNECTION_RETRY_COUNT_RUNNING", &cfg.Remote.Connection.RetryCountRunning)
	envDuration("REMOTE_CONNECTION_RETRY_BACKOFF", &cfg.Remote.Connection.RetryBackoff)
	envString("REMOTE_LOCAL_ROOT", &cfg.Remote.Local.Root)

	// Node overrides
	envInt("NODES_PM_COUNTER", &cfg.Nodes.PMCounter)
	envInt("NODES_PM_COUNTER_EBS", &cfg.Nodes.PMCounterEBS)
	envInt("NODES_PM_COUNTER_CORE", &cfg.Nodes.PMCounterCore)
	envInt("NODES_EVENT_4G", &cfg.Nodes.Event4G)
	envInt("NODES_EVENT_5G", &cfg.Nodes.Event5G)

	// ROP overrides
	envInt("ROP_PERIOD_MINUTES", &cfg.ROP.PeriodMinutes)
	envInt("ROP_RETENTION_MINUTES", &cfg.ROP.RetentionMinutes)
	envString("ROP_SCHEDULE", &cfg.ROP.Schedule)
	envString("ROP_TIMEZONE", &cfg.ROP.Timezone)

	// Template overrides
	envString("TEMPLATES_LOCAL_DIRECTORY", &cfg.Templates.LocalDirectory)
	envString("TEMPLATES_BIN_SUBDIRECTORY", &cfg.Templates.BinSubdirectory)

	// Generate overrides
	envInt("GENERATE_RETRY_COUNT_MAX", &cfg.Generate.RetryCountMax)
	envDuration("GENERATE_BACKOFF", &cfg.Generate.Backoff)

	// Notification overrides
	envString("NOTIFICATIONS_BACKEND", &cfg.Notifications.Backend)
	envString("NOTIFICATIONS_SQLITE_PATH", &cfg.Notifications.SQLite.Path)

	// History overrides
	envBool("HISTORY_ENABLED", &cfg.History.Enabled)
	envString("HISTORY_SQLITE_PATH", &cfg.History.SQLite.Path)
	envInt("HISTORY_MAX_CYCLES", &cfg.History.MaxCycles)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_REDACT_SECRETS", &cfg.Telemetry.Logging.RedactSecrets)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envBool("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envFloat(name string, dst *float64) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
