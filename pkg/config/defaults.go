package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "0.0.0.0:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Remote defaults
	DefaultRemoteBackend       = "sftp"
	DefaultRemotePort          = 22
	DefaultRemoteBaseDirectory = "/"
	DefaultRemotePermissions   = "755"
	DefaultConnectTimeout      = 10 * time.Second
	DefaultRetryCountStartup   = 30
	DefaultRetryCountRunning   = 3
	DefaultRetryBackoff        = 5 * time.Second
	DefaultLocalRoot           = "data/remote"

	// Node defaults
	DefaultPMCounterNodes = 10

	// ROP defaults
	DefaultROPPeriodMinutes    = 15
	DefaultROPRetentionMinutes = 60
	DefaultROPTimezone         = "UTC"

	// Template defaults
	DefaultTemplatesDirectory = "templates"
	DefaultBinSubdirectory    = "bin"

	// Generate defaults
	DefaultGenerateRetryCountMax = 10
	DefaultGenerateBackoff       = 3 * time.Second

	// Notification defaults
	DefaultNotificationsBackend    = "memory"
	DefaultNotificationsSQLitePath = "data/notifications.db"

	// History defaults
	DefaultHistorySQLitePath = "data/history.db"
	DefaultHistoryMaxCycles  = 1000

	DefaultSQLiteBusyTimeout = 5 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "ropsim"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingTimeout     = 10 * time.Second
	DefaultTracingServiceName = "ropsim"
)

// Default returns a configuration with every default applied, including the
// boolean fields that default to true. Loading decodes YAML over it.
func Default() *Config {
	cfg := &Config{
		Nodes: NodesConfig{PMCounter: DefaultPMCounterNodes},
	}
	cfg.Telemetry.Logging.RedactSecrets = true
	cfg.Telemetry.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values.
// It is idempotent.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Remote defaults
	if cfg.Remote.Backend == "" {
		cfg.Remote.Backend = DefaultRemoteBackend
	}
	if cfg.Remote.Port == 0 {
		cfg.Remote.Port = DefaultRemotePort
	}
	if cfg.Remote.BaseDirectory == "" {
		cfg.Remote.BaseDirectory = DefaultRemoteBaseDirectory
	}
	if cfg.Remote.Permissions == "" {
		cfg.Remote.Permissions = DefaultRemotePermissions
	}
	if cfg.Remote.Connection.Timeout == 0 {
		cfg.Remote.Connection.Timeout = DefaultConnectTimeout
	}
	if cfg.Remote.Connection.RetryCountStartup == 0 {
		cfg.Remote.Connection.RetryCountStartup = DefaultRetryCountStartup
	}
	if cfg.Remote.Connection.RetryCountRunning == 0 {
		cfg.Remote.Connection.RetryCountRunning = DefaultRetryCountRunning
	}
	if cfg.Remote.Connection.RetryBackoff == 0 {
		cfg.Remote.Connection.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.Remote.Local.Root == "" {
		cfg.Remote.Local.Root = DefaultLocalRoot
	}

	// ROP defaults
	if cfg.ROP.PeriodMinutes == 0 {
		cfg.ROP.PeriodMinutes = DefaultROPPeriodMinutes
	}
	if cfg.ROP.RetentionMinutes == 0 {
		cfg.ROP.RetentionMinutes = DefaultROPRetentionMinutes
	}
	if cfg.ROP.Timezone == "" {
		cfg.ROP.Timezone = DefaultROPTimezone
	}

	// Template defaults
	if cfg.Templates.LocalDirectory == "" {
		cfg.Templates.LocalDirectory = DefaultTemplatesDirectory
	}
	if cfg.Templates.BinSubdirectory == "" {
		cfg.Templates.BinSubdirectory = DefaultBinSubdirectory
	}

	// Generate defaults
	if cfg.Generate.RetryCountMax == 0 {
		cfg.Generate.RetryCountMax = DefaultGenerateRetryCountMax
	}
	if cfg.Generate.Backoff == 0 {
		cfg.Generate.Backoff = DefaultGenerateBackoff
	}

	// Notification defaults
	if cfg.Notifications.Backend == "" {
		cfg.Notifications.Backend = DefaultNotificationsBackend
	}
	if cfg.Notifications.SQLite.Path == "" {
		cfg.Notifications.SQLite.Path = DefaultNotificationsSQLitePath
	}
	if cfg.Notifications.SQLite.BusyTimeout == 0 {
		cfg.Notifications.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}

	// History defaults
	if cfg.History.SQLite.Path == "" {
		cfg.History.SQLite.Path = DefaultHistorySQLitePath
	}
	if cfg.History.SQLite.BusyTimeout == 0 {
		cfg.History.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.History.MaxCycles == 0 {
		cfg.History.MaxCycles = DefaultHistoryMaxCycles
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
}
