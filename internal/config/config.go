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

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StorageDir string `toml:"storage_dir"`
	ResultsDir string `toml:"results_dir"`
	DBPath     string `toml:"db_path"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
}

// Parser contains configuration for the external DotsOCR parser process.
type Parser struct {
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	IP             string   `toml:"ip"`
	Port           int      `toml:"port"`
	DPI            int      `toml:"dpi"`
	MinPixels      int      `toml:"min_pixels"`
	MaxPixels      int      `toml:"max_pixels"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Jobs contains configuration for the asynchronous task runner.
type Jobs struct {
	Workers           int `toml:"workers"`
	QueueSize         int `toml:"queue_size"`
	JobTimeoutSeconds int `toml:"job_timeout_seconds"`
}

// Index selects where file and task records are kept.
type Index struct {
	Backend string `toml:"backend"`
}

// Server contains HTTP request limits.
type Server struct {
	MaxUploadMB int `toml:"max_upload_mb"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the service.
//
// Configuration sections by subsystem:
//   - Paths: storage/results roots, catalog database, logs, and API bind address
//   - Parser: DotsOCR parser command and the vLLM endpoint it talks to
//   - Jobs: worker pool size, queue depth, and per-task deadline
//   - Index: record index backend (memory or sqlite)
//   - Server: HTTP request limits
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Parser  Parser  `toml:"parser"`
	Jobs    Jobs    `toml:"jobs"`
	Index   Index   `toml:"index"`
	Server  Server  `toml:"server"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dotsocr/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory, when present,
// is loaded into the process environment before environment overrides are applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if err := loadDotEnv(); err != nil {
		return nil, "", false, err
	}

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

func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
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

	projectPath, err := filepath.Abs("dotsocr.toml")
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

// EnsureDirectories creates the storage, results, log, and catalog directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StorageDir, c.Paths.ResultsDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.UsesCatalog() {
		dir := filepath.Dir(c.Paths.DBPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database directory %q: %w", dir, err)
		}
	}
	return nil
}

// UsesCatalog reports whether records are persisted in the SQLite catalog.
func (c *Config) UsesCatalog() bool {
	return c.Index.Backend == IndexSQLite
}

// JobTimeout returns the per-task deadline, or zero when tasks may run indefinitely.
func (c *Config) JobTimeout() time.Duration {
	if c.Jobs.JobTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Jobs.JobTimeoutSeconds) * time.Second
}

// ParserTimeout returns the deadline for a single synchronous parse request.
func (c *Config) ParserTimeout() time.Duration {
	return time.Duration(c.Parser.TimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the request body limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
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
