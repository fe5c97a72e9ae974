// Package config provides configuration management for qbfetch.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/qbfetch/qbfetch/internal/constants"
)

// Config is the effective configuration of one export run.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\qbfetch\config.ini
//   - Unix: ~/.config/qbfetch/config.ini
//
// INI format:
//
//	[quickbase]
//	realm = example.quickbase.com
//	user_token = <user-token>
//	api_url = https://api.quickbase.com
//
//	[export]
//	table_id = bqxxxxxxx
//	file_field_id = 123
//	workers = 5
//	page_size = 1000
//	download_folder = downloads
//	output_file = Quickbase_Table_Report.xlsx
//	link_style = windows
//
//	[network]
//	proxy_mode = no-proxy
//	api_retries = 0
//	rate_limit_per_sec = 10
type Config struct {
	// Quickbase connection settings
	Realm     string
	UserToken string
	APIURL    string

	// Export settings
	TableID        string
	FileFieldID    int
	Workers        int
	PageSize       int
	DownloadFolder string
	OutputFile     string
	LinkStyle      string // "windows" or "native"

	// Network settings
	Network NetworkConfig
}

// NetworkConfig contains proxy, retry and throttling settings.
type NetworkConfig struct {
	ProxyMode     string // "no-proxy", "system", "basic", "ntlm"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string // Comma-separated list of hosts to bypass proxy

	// APIRetries is the number of retries for the field and query calls. Attachments are never retried.
	APIRetries int

	// RateLimitPerSec caps API requests across all workers.
	RateLimitPerSec float64
}

// Validation errors
var (
	ErrMissingRealm       = errors.New("realm is required")
	ErrMissingUserToken   = errors.New("user_token is required")
	ErrMissingTableID     = errors.New("table_id is required")
	ErrInvalidFileFieldID = errors.New("file_field_id must be a positive field id")
	ErrInvalidWorkers     = fmt.Errorf("workers must be between %d and %d", constants.MinWorkers, constants.MaxWorkers)
	ErrInvalidPageSize    = fmt.Errorf("page_size must be between 1 and %d", constants.MaxPageSize)
	ErrMissingDownloadDir = errors.New("download_folder is required")
	ErrMissingOutputFile  = errors.New("output_file is required")
	ErrInvalidLinkStyle   = errors.New("link_style must be \"windows\" or \"native\"")
	ErrInvalidProxyMode   = errors.New("proxy_mode must be one of no-proxy, system, basic, ntlm")
	ErrInvalidAPIRetries  = fmt.Errorf("api_retries must be between 0 and %d", constants.MaxAPIRetries)
	ErrInvalidRateLimit   = errors.New("rate_limit_per_sec must be positive")
	ErrMissingProxyHost   = errors.New("proxy_host is required for basic and ntlm proxy modes")
)

// Environment variables read by ApplyEnv
const (
	EnvRealm       = "QB_REALM"
	EnvUserToken   = "QB_USER_TOKEN"
	EnvTableID     = "QB_TABLE_ID"
	EnvFileFieldID = "QB_FILE_FIELD_ID"
	EnvAPIURL      = "QB_API_URL"
)

// DefaultConfigPath returns the default path for the config file.
// - Windows: %USERPROFILE%\.config\qbfetch\config.ini
// - Unix: ~/.config/qbfetch/config.ini
func DefaultConfigPath() (string, error) {
	var configDir string

	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		configDir = filepath.Join(userProfile, ".config", "qbfetch")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "qbfetch")
	}

	return filepath.Join(configDir, "config.ini"), nil
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		APIURL:         constants.DefaultAPIBaseURL,
		Workers:        constants.DefaultWorkers,
		PageSize:       constants.DefaultPageSize,
		DownloadFolder: constants.DefaultDownloadFolder,
		OutputFile:     constants.DefaultOutputFile,
		LinkStyle:      constants.LinkStyleWindows,
		Network: NetworkConfig{
			ProxyMode:       "no-proxy",
			APIRetries:      constants.DefaultAPIRetries,
			RateLimitPerSec: constants.DefaultRateLimitPerSec,
		},
	}
}

// Load loads configuration from an INI file.
// If the file doesn't exist, returns a config with default values and no error.
// If the file exists but is invalid, returns an error.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	qb := iniFile.Section("quickbase")
	cfg.Realm = qb.Key("realm").String()
	cfg.UserToken = qb.Key("user_token").String()
	cfg.APIURL = qb.Key("api_url").MustString(cfg.APIURL)

	export := iniFile.Section("export")
	cfg.TableID = export.Key("table_id").String()
	cfg.FileFieldID = export.Key("file_field_id").MustInt(0)
	cfg.Workers = export.Key("workers").MustInt(cfg.Workers)
	cfg.PageSize = export.Key("page_size").MustInt(cfg.PageSize)
	cfg.DownloadFolder = export.Key("download_folder").MustString(cfg.DownloadFolder)
	cfg.OutputFile = export.Key("output_file").MustString(cfg.OutputFile)
	cfg.LinkStyle = strings.ToLower(export.Key("link_style").MustString(cfg.LinkStyle))

	network := iniFile.Section("network")
	cfg.Network.ProxyMode = strings.ToLower(network.Key("proxy_mode").MustString(cfg.Network.ProxyMode))
	cfg.Network.ProxyHost = network.Key("proxy_host").String()
	cfg.Network.ProxyPort = network.Key("proxy_port").MustInt(0)
	cfg.Network.ProxyUser = network.Key("proxy_user").String()
	cfg.Network.ProxyPassword = network.Key("proxy_password").String()
	cfg.Network.NoProxy = network.Key("no_proxy").String()
	cfg.Network.APIRetries = network.Key("api_retries").MustInt(cfg.Network.APIRetries)
	cfg.Network.RateLimitPerSec = network.Key("rate_limit_per_sec").MustFloat64(cfg.Network.RateLimitPerSec)

	return cfg, nil
}

// ApplyEnv overrides connection and table settings from QB_* environment variables.
func (cfg *Config) ApplyEnv() error {
	if v := os.Getenv(EnvRealm); v != "" {
		cfg.Realm = v
	}
	if v := os.Getenv(EnvUserToken); v != "" {
		cfg.UserToken = v
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv(EnvTableID); v != "" {
		cfg.TableID = v
	}
	if v := os.Getenv(EnvFileFieldID); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvFileFieldID, v, err)
		}
		cfg.FileFieldID = id
	}
	return nil
}

// Save writes configuration to an INI file.
// Creates parent directories if they don't exist.
// The user token is stored in the file - ensure appropriate file permissions.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	qb, err := iniFile.NewSection("quickbase")
	if err != nil {
		return fmt.Errorf("failed to create quickbase section: %w", err)
	}
	qb.Key("realm").SetValue(cfg.Realm)
	qb.Key("user_token").SetValue(cfg.UserToken)
	qb.Key("api_url").SetValue(cfg.APIURL)

	export, err := iniFile.NewSection("export")
	if err != nil {
		return fmt.Errorf("failed to create export section: %w", err)
	}
	export.Key("table_id").SetValue(cfg.TableID)
	export.Key("file_field_id").SetValue(strconv.Itoa(cfg.FileFieldID))
	export.Key("workers").SetValue(strconv.Itoa(cfg.Workers))
	export.Key("page_size").SetValue(strconv.Itoa(cfg.PageSize))
	export.Key("download_folder").SetValue(cfg.DownloadFolder)
	export.Key("output_file").SetValue(cfg.OutputFile)
	export.Key("link_style").SetValue(cfg.LinkStyle)

	network, err := iniFile.NewSection("network")
	if err != nil {
		return fmt.Errorf("failed to create network section: %w", err)
	}
	network.Key("proxy_mode").SetValue(cfg.Network.ProxyMode)
	network.Key("proxy_host").SetValue(cfg.Network.ProxyHost)
	network.Key("proxy_port").SetValue(strconv.Itoa(cfg.Network.ProxyPort))
	network.Key("proxy_user").SetValue(cfg.Network.ProxyUser)
	network.Key("no_proxy").SetValue(cfg.Network.NoProxy)
	network.Key("api_retries").SetValue(strconv.Itoa(cfg.Network.APIRetries))
	network.Key("rate_limit_per_sec").SetValue(strconv.FormatFloat(cfg.Network.RateLimitPerSec, 'f', -1, 64))
	// proxy_password is never persisted

	// Temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// ValidateForConnection checks only the connection settings (realm and user_token).
func (cfg *Config) ValidateForConnection() error {
	if strings.TrimSpace(cfg.Realm) == "" {
		return ErrMissingRealm
	}
	if strings.TrimSpace(cfg.UserToken) == "" {
		return ErrMissingUserToken
	}
	return nil
}

// Validate checks that the configuration is complete for an export run.
func (cfg *Config) Validate() error {
	if err := cfg.ValidateForConnection(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.TableID) == "" {
		return ErrMissingTableID
	}
	if cfg.FileFieldID <= 0 {
		return ErrInvalidFileFieldID
	}
	if cfg.Workers < constants.MinWorkers || cfg.Workers > constants.MaxWorkers {
		return ErrInvalidWorkers
	}
	if cfg.PageSize < 1 || cfg.PageSize > constants.MaxPageSize {
		return ErrInvalidPageSize
	}
	if strings.TrimSpace(cfg.DownloadFolder) == "" {
		return ErrMissingDownloadDir
	}
	if strings.TrimSpace(cfg.OutputFile) == "" {
		return ErrMissingOutputFile
	}
	switch cfg.LinkStyle {
	case constants.LinkStyleWindows, constants.LinkStyleNative:
	default:
		return ErrInvalidLinkStyle
	}
	switch cfg.Network.ProxyMode {
	case "no-proxy", "", "system":
	case "basic", "ntlm":
		if strings.TrimSpace(cfg.Network.ProxyHost) == "" {
			return ErrMissingProxyHost
		}
	default:
		return ErrInvalidProxyMode
	}
	if cfg.Network.APIRetries < 0 || cfg.Network.APIRetries > constants.MaxAPIRetries {
		return ErrInvalidAPIRetries
	}
	if cfg.Network.RateLimitPerSec <= 0 {
		return ErrInvalidRateLimit
	}
	return nil
}

// MaskedToken returns the user token with all but the last four characters hidden.
func (cfg *Config) MaskedToken() string {
	token := strings.TrimSpace(cfg.UserToken)
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}
