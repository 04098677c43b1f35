// Package config loads, validates and shares the simulator configuration.
//
// Configuration is read from a YAML file decoded over the built-in defaults.
// Environment variables named ROPSIM_SECTION_FIELD override file values, for
// example:
//
//   - ROPSIM_REMOTE_HOST overrides remote.host
//   - ROPSIM_NODES_EVENT_5G overrides nodes.event_5g
//   - ROPSIM_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// A .env file in the working directory is loaded before overrides are
// applied; variables already present in the environment take precedence.
//
// # Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation, which reports every invalid field at once
//
// # Singleton
//
//	if err := config.Initialize("config.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// ReloadConfig replaces the global configuration and runs hooks registered
// with OnReload. Watcher calls it whenever the file changes.
package config
