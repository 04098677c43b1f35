package config

import (
	"fmt"
	"sync"
)

var (
	// globalConfig holds the process-wide configuration.
	globalConfig *Config

	// configMutex protects globalConfig and reloadHooks.
	configMutex sync.RWMutex

	// initOnce guards Initialize.
	initOnce sync.Once

	reloadHooks  []reloadHook
	nextReloadID int
)

type reloadHook struct {
	id int
	fn func(old, updated *Config)
}

// Initialize loads configuration from path with environment overrides and
// stores it as the global configuration. Only the first call has effect.
func Initialize(path string) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		SetConfig(cfg)
	})

	return initErr
}

// GetConfig returns the global configuration, or nil before Initialize.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig replaces the global configuration. Reload hooks are not run.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// OnReload registers fn to run after every successful ReloadConfig with the
// previous and the new configuration. The returned func unregisters fn; it is
// safe to call more than once.
func OnReload(fn func(old, updated *Config)) (unregister func()) {
	configMutex.Lock()
	defer configMutex.Unlock()

	nextReloadID++
	id := nextReloadID
	reloadHooks = append(reloadHooks, reloadHook{id: id, fn: fn})

	return func() {
		configMutex.Lock()
		defer configMutex.Unlock()
		for i, h := range reloadHooks {
			if h.id == id {
				reloadHooks = append(reloadHooks[:i:i], reloadHooks[i+1:]...)
				return
			}
		}
	}
}

// ReloadConfig reloads the configuration from path. On failure the current
// configuration stays in place.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	configMutex.Lock()
	old := globalConfig
	globalConfig = cfg
	hooks := append([]reloadHook(nil), reloadHooks...)
	configMutex.Unlock()

	for _, h := range hooks {
		h.fn(old, cfg)
	}
	return nil
}

// MustGetConfig returns the global configuration and panics if it has not
// been initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}

// resetForTest clears global state.
func resetForTest() {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = nil
	reloadHooks = nil
	nextReloadID = 0
	initOnce = sync.Once{}
}
