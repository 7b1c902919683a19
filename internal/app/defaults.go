package app

import (
	"fmt"
	"os"
	"path/filepath"

	"revsite/internal/config"
)

// Environment variables read by GetDefaults.
const (
	EnvConfigPath  = "REVSITE_CONFIG_PATH"
	EnvHome        = "REVSITE_HOME"
	EnvCacheDir    = "REVSITE_CACHE_DIR"
	EnvDatabaseURL = "REVSITE_DATABASE_URL"
)

// Defaults are the settings revsite starts from before the config file and
// the command line are applied.
type Defaults struct {
	// ConfigPath is $REVSITE_CONFIG_PATH or ~/.config/revsite.toml.
	ConfigPath string
	// BaseDir is $REVSITE_HOME or ~/.local/share/revsite.
	BaseDir string

	// CacheDir and DatabaseURL come from the environment only; empty when
	// unset.
	CacheDir    string
	DatabaseURL string
}

// Overrides are the common options of every command. Empty fields keep the
// value from the layer below.
type Overrides struct {
	CacheDir    string
	DatabaseURL string
}

// GetDefaults reads the REVSITE_* environment. The home directory is only
// consulted for paths the environment leaves unset.
func GetDefaults() (*Defaults, error) {
	configPath, err := envOrHome(EnvConfigPath, ".config", "revsite.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := envOrHome(EnvHome, ".local", "share", "revsite")
	if err != nil {
		return nil, err
	}

	return &Defaults{
		ConfigPath:  configPath,
		BaseDir:     baseDir,
		CacheDir:    os.Getenv(EnvCacheDir),
		DatabaseURL: os.Getenv(EnvDatabaseURL),
	}, nil
}

// LoadConfig reads the config file named by d, then applies the cache and
// database settings of the environment and finally those of o.
func LoadConfig(d *Defaults, o Overrides) (*config.Config, error) {
	cfg, err := config.Load(d.ConfigPath, d.BaseDir)
	if err != nil {
		return nil, err
	}

	for _, layer := range []Overrides{{CacheDir: d.CacheDir, DatabaseURL: d.DatabaseURL}, o} {
		if layer.CacheDir != "" {
			cfg.ApplyCacheDir(layer.CacheDir)
		}
		if layer.DatabaseURL != "" {
			cfg.ApplyDatabaseURL(layer.DatabaseURL)
		}
	}
	return cfg, nil
}

func envOrHome(key string, rel ...string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for %s: %w", key, err)
	}
	return filepath.Join(append([]string{homeDir}, rel...)...), nil
}
