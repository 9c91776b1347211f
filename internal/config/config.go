package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations.
type Paths struct {
	ContractPath  string `toml:"contract_path"`
	ManifestDir   string `toml:"manifest_dir"`
	StoryboardDir string `toml:"storyboard_dir"`
	StateDir      string `toml:"state_dir"`
	LogDir        string `toml:"log_dir"`
}

// Storage selects where accepted manifests are persisted.
type Storage struct {
	Backend string `toml:"backend"`
	S3      S3     `toml:"s3"`
}

// S3 contains settings for the object-store manifest backend.
type S3 struct {
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	Endpoint  string `toml:"endpoint"`
	Prefix    string `toml:"prefix"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

// OCR contains the fallback policy applied by the page normalizer.
type OCR struct {
	Enabled bool `toml:"enabled"`
	// MinTextDensity is the number of non-space characters below which a page
	// is considered to have no extractable text.
	MinTextDensity int `toml:"min_text_density"`
	Concurrency    int `toml:"concurrency"`
}

// Storyboard contains scene pacing policy.
type Storyboard struct {
	Resolution     string `toml:"resolution"`
	WordsPerMinute int    `toml:"words_per_minute"`
	IntroSeconds   int    `toml:"intro_seconds"`
	EndCardSeconds int    `toml:"end_card_seconds"`
	PauseSeconds   int    `toml:"pause_seconds"`
}

// API contains HTTP server settings for `rulecast serve`.
type API struct {
	Bind                string `toml:"bind"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
	MaxBodyMB           int    `toml:"max_body_mb"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for rulecast.
//
// Configuration sections by subsystem:
//   - Paths: contract file, output directories, catalog state, logs
//   - Storage: manifest persistence backend (filesystem or s3)
//   - OCR: density threshold and concurrency for OCR fallback
//   - Storyboard: resolution policy and pacing
//   - API: HTTP server bind address and limits
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Storage    Storage    `toml:"storage"`
	OCR        OCR        `toml:"ocr"`
	Storyboard Storyboard `toml:"storyboard"`
	API        API        `toml:"api"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/rulecast/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("rulecast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local directories the CLI writes into.
// The manifest directory is only required for the filesystem backend.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.StoryboardDir}
	if c.Storage.Backend == StorageFilesystem {
		dirs = append(dirs, c.Paths.ManifestDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CatalogPath returns the SQLite catalog database location.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.StateDir, "catalog.db")
}

// ReadTimeout returns the HTTP read timeout.
func (a API) ReadTimeout() time.Duration {
	return time.Duration(a.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the HTTP write timeout.
func (a API) WriteTimeout() time.Duration {
	return time.Duration(a.WriteTimeoutSeconds) * time.Second
}

// MaxBodyBytes returns the request body ceiling for document uploads.
func (a API) MaxBodyBytes() int64 {
	return int64(a.MaxBodyMB) << 20
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
