package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Unknown file policies.
const (
	UnknownFilesError = "error"
	UnknownFilesSkip  = "skip"
)

// Config represents the main configuration for revsite.
type Config struct {
	BaseDir      string             `toml:"base_dir"`
	LogDir       string             `toml:"log_dir"`
	LogLevel     string             `toml:"log_level"`     // "debug", "info" (default), "warn" or "error"
	Workers      int                `toml:"workers"`       // 0 uses GOMAXPROCS
	UnknownFiles string             `toml:"unknown_files"` // "error" (default) or "skip"
	Database     DatabaseConfig     `toml:"database"`
	ContentStore ContentStoreConfig `toml:"content_store"`
	Publish      PublishConfig      `toml:"publish"`
	Metrics      MetricsConfig      `toml:"metrics"`
	Filesystem   FilesystemConfig   `toml:"filesystem"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	// Ignore holds gitignore-style patterns applied to every source subtree.
	Ignore []string `toml:"ignore"`
}

// DatabaseConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type string `toml:"type"`           // "sqlite" or "memory"
	Path string `toml:"path,omitempty"` // only used for type=sqlite
}

// ContentStoreConfig represents configuration for the Content Store backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ContentStoreConfig struct {
	Type string `toml:"type"` // "filesystem", "memory" or "s3"

	// Filesystem-specific fields (only used when Type == "filesystem")
	CacheDir string `toml:"cache_dir,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// PublishConfig holds the defaults for the publish command.
type PublishConfig struct {
	BaseURL  string `toml:"base_url"`
	BuildDir string `toml:"build_dir"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	// Textfile is written after every command when set.
	Textfile string `toml:"textfile,omitempty"`
}

// NewConfig creates a new Config with the provided base directory and defaults
// derived from it.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:      baseDir,
		LogDir:       filepath.Join(baseDir, "log"),
		LogLevel:     "info",
		UnknownFiles: UnknownFilesError,
		Database: DatabaseConfig{
			Type: "sqlite",
			Path: filepath.Join(baseDir, "revsite.db"),
		},
		ContentStore: ContentStoreConfig{
			Type:     "filesystem",
			CacheDir: filepath.Join(baseDir, "cache"),
		},
		Publish: PublishConfig{
			BaseURL:  "https://127.0.0.1",
			BuildDir: "build",
		},
	}
}

// Validate checks the settings that have a fixed set of values.
func (c *Config) Validate() error {
	switch c.UnknownFiles {
	case "", UnknownFilesError, UnknownFilesSkip:
	default:
		return fmt.Errorf("unknown_files must be %q or %q, got %q", UnknownFilesError, UnknownFilesSkip, c.UnknownFiles)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// ApplyDatabaseURL points the database config at url. Both plain paths and
// sqlite:// URLs are accepted; ":memory:" selects the in-memory database.
func (c *Config) ApplyDatabaseURL(url string) {
	path := strings.TrimPrefix(url, "sqlite://")
	path = strings.TrimPrefix(path, "sqlite:")
	if path == ":memory:" {
		c.Database = DatabaseConfig{Type: "memory"}
		return
	}
	c.Database = DatabaseConfig{Type: "sqlite", Path: path}
}

// ApplyCacheDir points the Content Store at a filesystem cache directory.
func (c *Config) ApplyCacheDir(dir string) {
	c.ContentStore = ContentStoreConfig{Type: "filesystem", CacheDir: dir}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Load reads the config at path, starting from NewConfig(baseDir) so keys the
// file omits keep their defaults. A missing file yields the defaults.
func Load(path, baseDir string) (*Config, error) {
	cfg := NewConfig(baseDir)

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
