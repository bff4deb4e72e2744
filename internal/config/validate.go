package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateParser(); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	if err := c.validateIndex(); err != nil {
		return err
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StorageDir == "" {
		return errors.New("paths.storage_dir must be set")
	}
	if c.Paths.ResultsDir == "" {
		return errors.New("paths.results_dir must be set")
	}
	if c.Paths.StorageDir == c.Paths.ResultsDir {
		return errors.New("paths.storage_dir and paths.results_dir must differ")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateParser() error {
	if c.Parser.Port <= 0 || c.Parser.Port > 65535 {
		return fmt.Errorf("parser.port must be between 1 and 65535, got %d", c.Parser.Port)
	}
	if c.Parser.DPI <= 0 {
		return errors.New("parser.dpi must be positive")
	}
	if c.Parser.MinPixels <= 0 || c.Parser.MaxPixels <= 0 {
		return errors.New("parser.min_pixels and parser.max_pixels must be positive")
	}
	if c.Parser.MinPixels > c.Parser.MaxPixels {
		return errors.New("parser.min_pixels must not exceed parser.max_pixels")
	}
	if c.Parser.TimeoutSeconds <= 0 {
		return errors.New("parser.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateJobs() error {
	if c.Jobs.Workers <= 0 {
		return errors.New("jobs.workers must be positive")
	}
	if c.Jobs.QueueSize <= 0 {
		return errors.New("jobs.queue_size must be positive")
	}
	return nil
}

func (c *Config) validateIndex() error {
	switch c.Index.Backend {
	case IndexMemory:
		return nil
	case IndexSQLite:
		if c.Paths.DBPath == "" {
			return errors.New("paths.db_path must be set when index.backend is sqlite")
		}
		return nil
	default:
		return fmt.Errorf("index.backend must be %q or %q, got %q", IndexMemory, IndexSQLite, c.Index.Backend)
	}
}
