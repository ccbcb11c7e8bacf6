// Package config handles application configuration and paths.
//
// Settings come from defaults, then config.json in the data directory, then
// PACKKEEPER_* environment variables (a .env file is read first). The launcher
// document in launcher.json is separate; see Document.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	configFileName   = "config.json"
	launcherFileName = "launcher.json"
	envFileName      = ".env"

	defaultUpdateCheckInterval = time.Hour
	minUpdateCheckInterval     = time.Minute
)

// Duration is a time.Duration that reads and writes as "1h30m" in JSON
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config holds the application configuration
type Config struct {
	// Paths
	DataDir string `json:"dataDir"`

	// Update checks
	ShowPrereleaseUpdates bool     `json:"showPrereleaseUpdates"` // Offer alpha/beta builds to instances on alpha/beta
	UpdateCheckInterval   Duration `json:"updateCheckInterval"`   // 0 checks once at startup only
	CurseForgeAPIKey      string   `json:"curseForgeApiKey"`

	// Accounts
	UseKeyring bool `json:"useKeyring"` // Keep tokens in the OS keyring instead of accounts.json

	Debug bool `json:"debug"`

	// LauncherOverrides is a JSON object merged over launcher.json. Env only.
	LauncherOverrides string `json:"-"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DataDir:             getDefaultDataDir(),
		UpdateCheckInterval: Duration(defaultUpdateCheckInterval),
		UseKeyring:          true,
	}
}

// Load builds the config. dataDir overrides the default location when set.
func Load(dataDir string) (*Config, error) {
	loadEnvFile(envFileName)

	cfg := DefaultConfig()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	setIfEnvExists(&cfg.DataDir, "PACKKEEPER_DATA_DIR")
	loadEnvFile(filepath.Join(cfg.DataDir, envFileName))

	data, err := os.ReadFile(cfg.ConfigPath())
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		resolved := cfg.DataDir
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decoding config: %w", err)
		}
		// The file lives in the data dir, so it cannot move it.
		cfg.DataDir = resolved
	}

	if err := applyEnvironmentVariables(cfg); err != nil {
		return nil, err
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadEnvFile reads KEY=value pairs into the environment without overriding
// variables that are already set. A missing file is fine.
func loadEnvFile(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "warning: ignoring %s: %v\n", path, err)
	}
}

func applyEnvironmentVariables(cfg *Config) error {
	setIfEnvExists(&cfg.CurseForgeAPIKey, "PACKKEEPER_CURSEFORGE_API_KEY")
	setIfEnvExists(&cfg.LauncherOverrides, "PACKKEEPER_LAUNCHER_OVERRIDES")

	for name, dst := range map[string]*bool{
		"PACKKEEPER_SHOW_PRERELEASE": &cfg.ShowPrereleaseUpdates,
		"PACKKEEPER_USE_KEYRING":     &cfg.UseKeyring,
		"PACKKEEPER_DEBUG":           &cfg.Debug,
	} {
		if val := os.Getenv(name); val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = b
		}
	}

	if val := os.Getenv("PACKKEEPER_UPDATE_INTERVAL"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("PACKKEEPER_UPDATE_INTERVAL: %w", err)
		}
		cfg.UpdateCheckInterval = Duration(d)
	}
	return nil
}

func setIfEnvExists(configValue *string, envName string) {
	if val := os.Getenv(envName); val != "" {
		*configValue = val
	}
}

func validateConfig(cfg *Config) error {
	if cfg.DataDir == "" {
		return errors.New("data directory cannot be empty")
	}
	interval := time.Duration(cfg.UpdateCheckInterval)
	if interval < 0 {
		return errors.New("update check interval must be non-negative")
	}
	if interval > 0 && interval < minUpdateCheckInterval {
		return fmt.Errorf("update check interval must be at least %s", minUpdateCheckInterval)
	}
	if cfg.LauncherOverrides != "" && !json.Valid([]byte(cfg.LauncherOverrides)) {
		return errors.New("launcher overrides must be valid JSON")
	}
	return nil
}

// ConfigPath is where Save writes
func (c *Config) ConfigPath() string {
	return filepath.Join(c.DataDir, configFileName)
}

// LauncherPath is the base launcher document
func (c *Config) LauncherPath() string {
	return filepath.Join(c.DataDir, launcherFileName)
}

// InstancesDir holds one directory per instance
func (c *Config) InstancesDir() string {
	return filepath.Join(c.DataDir, "instances")
}

// ServersDir holds one directory per server
func (c *Config) ServersDir() string {
	return filepath.Join(c.DataDir, "servers")
}

// CachePath is the response cache database
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// Save writes config to disk
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.ConfigPath(), data, 0644)
}

// EnsureDirs creates all required directories
func (c *Config) EnsureDirs() error {
	dirs := []string{c.DataDir, c.InstancesDir(), c.ServersDir()}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func getDefaultDataDir() string {
	// Check for portable mode first
	exe, _ := os.Executable()
	portablePath := filepath.Join(filepath.Dir(exe), "data")
	if _, err := os.Stat(portablePath); err == nil {
		return portablePath
	}

	// Use XDG/platform-specific directories
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "packkeeper")
	}

	home, _ := os.UserHomeDir()
	switch {
	case os.Getenv("APPDATA") != "": // Windows
		return filepath.Join(os.Getenv("APPDATA"), "packkeeper")
	default: // Linux/macOS
		return filepath.Join(home, ".local", "share", "packkeeper")
	}
}
