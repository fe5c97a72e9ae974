// Package cli provides configuration and engine helper functions.
package cli

import (
	"fmt"

	"github.com/qbfetch/qbfetch/internal/config"
	"github.com/qbfetch/qbfetch/internal/core"
	"github.com/qbfetch/qbfetch/internal/http"
)

// resolveConfigPath returns --config or the default config location.
func resolveConfigPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultConfigPath()
}

// loadConfig merges the config file, QB_* environment variables and global flags,
// in increasing order of priority.
func loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to determine config path: %w", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	applyGlobalFlags(cfg)
	return cfg, nil
}

func applyGlobalFlags(cfg *config.Config) {
	if realm != "" {
		cfg.Realm = realm
	}
	if userToken != "" {
		cfg.UserToken = userToken
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
}

// getEngine loads configuration and creates an export engine.
// A proxy password needed by the configured proxy mode is prompted for.
func getEngine(cfg *config.Config) (*core.Engine, error) {
	if http.NeedsProxyPassword(cfg.Network) {
		password, err := promptSecret(fmt.Sprintf("Proxy password for %s@%s: ", cfg.Network.ProxyUser, cfg.Network.ProxyHost))
		if err != nil {
			return nil, fmt.Errorf("failed to read proxy password: %w", err)
		}
		cfg.Network.ProxyPassword = password
	}

	engine, err := core.NewEngine(cfg, GetLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to create export engine: %w", err)
	}
	return engine, nil
}
