package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "remote.host").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any rule fails. All field errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateRemote(&cfg.Remote)...)
	errs = append(errs, validateNodes(&cfg.Nodes)...)
	errs = append(errs, validateROP(&cfg.ROP)...)
	errs = append(errs, validateTemplates(&cfg.Templates)...)
	errs = append(errs, validateGenerate(&cfg.Generate)...)
	errs = append(errs, validateNotifications(&cfg.Notifications)...)
	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	}
	for field, d := range map[string]time.Duration{
		"server.read_timeout":     cfg.ReadTimeout,
		"server.write_timeout":    cfg.WriteTimeout,
		"server.idle_timeout":     cfg.IdleTimeout,
		"server.shutdown_timeout": cfg.ShutdownTimeout,
	} {
		if d < 0 {
			errs = append(errs, FieldError{Field: field, Message: "timeout must be positive"})
		}
	}

	return errs
}

func validateRemote(cfg *RemoteConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "sftp":
		if cfg.Host == "" {
			errs = append(errs, FieldError{Field: "remote.host", Message: "host is required for the sftp backend"})
		}
		if cfg.User == "" {
			errs = append(errs, FieldError{Field: "remote.user", Message: "user is required for the sftp backend"})
		}
		if cfg.Password == "" && cfg.PrivateKeyPath == "" {
			errs = append(errs, FieldError{Field: "remote.password", Message: "password or private_key_path is required for the sftp backend"})
		}
		if cfg.Port < 1 || cfg.Port > 65535 {
			errs = append(errs, FieldError{Field: "remote.port", Message: fmt.Sprintf("port %d out of range", cfg.Port)})
		}
	case "local":
		if cfg.Local.Root == "" {
			errs = append(errs, FieldError{Field: "remote.local.root", Message: "root is required for the local backend"})
		}
	case "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "remote.backend",
			Message: fmt.Sprintf("invalid backend %q (valid: sftp, local, memory)", cfg.Backend),
		})
	}

	if !strings.HasPrefix(cfg.BaseDirectory, "/") {
		errs = append(errs, FieldError{Field: "remote.base_directory", Message: "base directory must be absolute"})
	}
	if _, err := cfg.FileMode(); err != nil {
		errs = append(errs, FieldError{Field: "remote.permissions", Message: err.Error()})
	}

	conn := cfg.Connection
	if conn.Timeout < 0 {
		errs = append(errs, FieldError{Field: "remote.connection.timeout", Message: "timeout must be positive"})
	}
	if conn.RetryCountStartup < 1 {
		errs = append(errs, FieldError{Field: "remote.connection.retry_count_startup", Message: "retry count must be at least 1"})
	}
	if conn.RetryCountRunning < 1 {
		errs = append(errs, FieldError{Field: "remote.connection.retry_count_running", Message: "retry count must be at least 1"})
	}
	if conn.RetryBackoff < 0 {
		errs = append(errs, FieldError{Field: "remote.connection.retry_backoff", Message: "backoff must be non-negative"})
	}

	return errs
}

func validateNodes(cfg *NodesConfig) []FieldError {
	var errs []FieldError

	for field, n := range map[string]int{
		"nodes.pm_counter":      cfg.PMCounter,
		"nodes.pm_counter_ebs":  cfg.PMCounterEBS,
		"nodes.pm_counter_core": cfg.PMCounterCore,
		"nodes.event_4g":        cfg.Event4G,
		"nodes.event_5g":        cfg.Event5G,
	} {
		if n < 0 {
			errs = append(errs, FieldError{Field: field, Message: "node count must be non-negative"})
		}
		if n > 9999 {
			errs = append(errs, FieldError{Field: field, Message: "node count exceeds the four-digit node index"})
		}
	}
	if len(errs) == 0 && cfg.Targets().Total() == 0 {
		errs = append(errs, FieldError{Field: "nodes", Message: "at least one node must be configured"})
	}

	return errs
}

func validateROP(cfg *ROPConfig) []FieldError {
	var errs []FieldError

	// A retention shorter than one period, or a non-positive period, falls
	// back to the default snapshot count. Only a derived schedule needs the
	// period.
	if cfg.PeriodMinutes <= 0 && cfg.Schedule == "" {
		errs = append(errs, FieldError{Field: "rop.period_minutes", Message: "period must be positive when the schedule is derived from it"})
	}
	if cfg.Schedule != "" && cfg.Schedule != ScheduleOff {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			errs = append(errs, FieldError{Field: "rop.schedule", Message: fmt.Sprintf("invalid cron schedule: %v", err)})
		}
	}
	if _, err := cfg.Location(); err != nil {
		errs = append(errs, FieldError{Field: "rop.timezone", Message: fmt.Sprintf("unknown time zone: %v", err)})
	}

	return errs
}

func validateTemplates(cfg *TemplatesConfig) []FieldError {
	var errs []FieldError

	if cfg.LocalDirectory == "" {
		errs = append(errs, FieldError{Field: "templates.local_directory", Message: "local directory is required"})
	}
	bin := strings.Trim(cfg.BinSubdirectory, "/")
	if bin == "" || strings.Contains(bin, "..") {
		errs = append(errs, FieldError{Field: "templates.bin_subdirectory", Message: "bin subdirectory must be a relative directory name"})
	}

	return errs
}

func validateGenerate(cfg *GenerateConfig) []FieldError {
	var errs []FieldError

	if cfg.RetryCountMax < 1 {
		errs = append(errs, FieldError{Field: "generate.retry_count_max", Message: "retry count must be at least 1"})
	}
	if cfg.Backoff < 0 {
		errs = append(errs, FieldError{Field: "generate.backoff", Message: "backoff must be non-negative"})
	}

	return errs
}

func validateNotifications(cfg *NotificationsConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "notifications.sqlite.path", Message: "path is required for the sqlite backend"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "notifications.backend",
			Message: fmt.Sprintf("invalid backend %q (valid: memory, sqlite)", cfg.Backend),
		})
	}

	return errs
}

func validateHistory(cfg *HistoryConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled && cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{Field: "history.sqlite.path", Message: "path is required when history is enabled"})
	}
	if cfg.MaxCycles < 0 {
		errs = append(errs, FieldError{Field: "history.max_cycles", Message: "max cycles must be non-negative"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", cfg.Logging.Level),
		})
	}
	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (valid: json, text, console)", cfg.Logging.Format),
		})
	}
	for i, p := range cfg.Logging.RedactPatterns {
		if p.Pattern == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: "pattern is required",
			})
		}
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "metrics path must start with /"})
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
		}
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q (valid: always, never, ratio)", cfg.Tracing.Sampler),
			})
		}
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0.0 and 1.0"})
	}

	return errs
}
