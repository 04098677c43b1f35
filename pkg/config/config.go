package config

import (
	"os"
	"strings"
	"time"

	"mercator-hq/ropsim/pkg/remote"
	"mercator-hq/ropsim/pkg/templates"
)

// Config is the root configuration structure for the ROP simulator.
type Config struct {
	// Server contains the HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Remote configures the remote file store the simulator publishes to.
	Remote RemoteConfig `yaml:"remote"`

	// Nodes is the number of synthetic nodes per file category.
	Nodes NodesConfig `yaml:"nodes"`

	// ROP configures the reporting period, retention and schedule.
	ROP ROPConfig `yaml:"rop"`

	// Templates configures where template files come from.
	Templates TemplatesConfig `yaml:"templates"`

	// Generate configures manual triggers.
	Generate GenerateConfig `yaml:"generate"`

	// Notifications configures the file notification store.
	Notifications NotificationsConfig `yaml:"notifications"`

	// History configures the generation cycle log.
	History HistoryConfig `yaml:"history"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the host:port to listen on.
	// Default: "0.0.0.0:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response. Manual
	// triggers may retry the template upload, so this must exceed
	// generate.retry_count_max times generate.backoff.
	// Default: 5m
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RemoteConfig configures the remote file store.
type RemoteConfig struct {
	// Backend selects the store implementation.
	// Options: "sftp", "local", "memory"
	// Default: "sftp"
	Backend string `yaml:"backend"`

	// Host is the SFTP server host.
	Host string `yaml:"host"`

	// Port is the SFTP server port.
	// Default: 22
	Port int `yaml:"port"`

	// User is the SFTP login.
	User string `yaml:"user"`

	// Password authenticates User when no private key is configured.
	Password string `yaml:"password"`

	// PrivateKeyPath is a PEM private key used for public key auth.
	PrivateKeyPath string `yaml:"private_key_path"`

	// KnownHostsPath verifies the server key. Empty accepts any host key.
	KnownHostsPath string `yaml:"known_hosts_path"`

	// BaseDirectory is the remote directory templates are uploaded under.
	// Default: "/"
	BaseDirectory string `yaml:"base_directory"`

	// Permissions is the octal mode applied to uploaded files and links.
	// Default: "755"
	Permissions string `yaml:"permissions"`

	// Connection configures connect timeouts and retries.
	Connection ConnectionConfig `yaml:"connection"`

	// Local configures the "local" backend.
	Local LocalStoreConfig `yaml:"local"`
}

// ConnectionConfig configures remote connection attempts.
type ConnectionConfig struct {
	// Timeout bounds one connection attempt.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// RetryCountStartup bounds connection attempts at startup.
	// Default: 30
	RetryCountStartup int `yaml:"retry_count_startup"`

	// RetryCountRunning bounds connection attempts per trigger.
	// Default: 3
	RetryCountRunning int `yaml:"retry_count_running"`

	// RetryBackoff is the pause between attempts.
	// Default: 5s
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// LocalStoreConfig configures the local filesystem backend.
type LocalStoreConfig struct {
	// Root is the directory remote paths are resolved under.
	Root string `yaml:"root"`
}

// NodesConfig is the number of synthetic nodes per category.
type NodesConfig struct {
	PMCounter     int `yaml:"pm_counter"`
	PMCounterEBS  int `yaml:"pm_counter_ebs"`
	PMCounterCore int `yaml:"pm_counter_core"`
	Event4G       int `yaml:"event_4g"`
	Event5G       int `yaml:"event_5g"`
}

// Targets converts n to per-category targets.
func (n NodesConfig) Targets() templates.Targets {
	return templates.Targets{
		templates.PMCounter:     n.PMCounter,
		templates.PMCounterEBS:  n.PMCounterEBS,
		templates.PMCounterCore: n.PMCounterCore,
		templates.Event4G:       n.Event4G,
		templates.Event5G:       n.Event5G,
	}
}

// ScheduleOff disables scheduled rotation.
const ScheduleOff = "off"

// ROPConfig configures the reporting output period.
type ROPConfig struct {
	// PeriodMinutes is the ROP length.
	// Default: 15
	PeriodMinutes int `yaml:"period_minutes"`

	// RetentionMinutes is how long rotated paths stay on the store.
	// Default: 60
	RetentionMinutes int `yaml:"retention_minutes"`

	// Schedule is the cron expression rotation runs on. Empty means once per
	// period aligned to the hour; "off" disables scheduled rotation.
	Schedule string `yaml:"schedule"`

	// Timezone is the IANA zone file names are rendered in.
	// Default: "UTC"
	Timezone string `yaml:"timezone"`
}

// Period returns the ROP length.
func (r ROPConfig) Period() time.Duration {
	return time.Duration(r.PeriodMinutes) * time.Minute
}

// Retention returns the retention period.
func (r ROPConfig) Retention() time.Duration {
	return time.Duration(r.RetentionMinutes) * time.Minute
}

// Location loads the configured time zone.
func (r ROPConfig) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(r.Timezone)
}

// TemplatesConfig configures template files.
type TemplatesConfig struct {
	// LocalDirectory is the tree of template files uploaded at startup.
	// Default: "templates"
	LocalDirectory string `yaml:"local_directory"`

	// BinSubdirectory is the remote directory templates are uploaded into
	// under the base directory.
	// Default: "bin"
	BinSubdirectory string `yaml:"bin_subdirectory"`
}

// GenerateConfig configures manual generation.
type GenerateConfig struct {
	// RetryCountMax bounds the template upload attempts a trigger makes
	// before its bootstrap gives up.
	// Default: 10
	RetryCountMax int `yaml:"retry_count_max"`

	// Backoff is the pause between upload attempts.
	// Default: 3s
	Backoff time.Duration `yaml:"backoff"`
}

// NotificationsConfig configures the file notification store.
type NotificationsConfig struct {
	// Backend selects the store.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite configures the "sqlite" backend.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// HistoryConfig configures the generation cycle log.
type HistoryConfig struct {
	// Enabled turns on cycle recording.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// SQLite configures the database.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// MaxCycles bounds the number of retained cycles.
	// Default: 1000
	MaxCycles int `yaml:"max_cycles"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks passwords and keys in log attributes.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`

	// RedactPatterns are extra value patterns to mask.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether /metrics is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "ropsim"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces sampled by the "ratio" sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds one export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is the service name in traces.
	// Default: "ropsim"
	ServiceName string `yaml:"service_name"`
}

// FileMode parses Permissions as an octal file mode.
func (r RemoteConfig) FileMode() (os.FileMode, error) {
	return remote.ParsePermissions(strings.TrimSpace(r.Permissions))
}
