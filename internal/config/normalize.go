package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnvOverrides()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeParser(); err != nil {
		return err
	}
	c.normalizeJobs()
	c.normalizeIndex()
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = defaultMaxUploadMB
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"DOTSOCR_STORAGE_DIR", &c.Paths.StorageDir},
		{"DOTSOCR_RESULTS_DIR", &c.Paths.ResultsDir},
		{"DOTSOCR_DB_PATH", &c.Paths.DBPath},
		{"DOTSOCR_LOG_DIR", &c.Paths.LogDir},
		{"DOTSOCR_API_BIND", &c.Paths.APIBind},
		{"DOTSOCR_PARSER_IP", &c.Parser.IP},
	}
	for _, o := range overrides {
		if value, ok := os.LookupEnv(o.env); ok && strings.TrimSpace(value) != "" {
			*o.target = strings.TrimSpace(value)
		}
	}
	if value, ok := os.LookupEnv("DOTSOCR_PARSER_PORT"); ok {
		if port, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			c.Parser.Port = port
		}
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StorageDir) == "" {
		c.Paths.StorageDir = defaultStorageDir
	}
	if c.Paths.StorageDir, err = expandPath(c.Paths.StorageDir); err != nil {
		return fmt.Errorf("paths.storage_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ResultsDir) == "" {
		c.Paths.ResultsDir = defaultResultsDir
	}
	if c.Paths.ResultsDir, err = expandPath(c.Paths.ResultsDir); err != nil {
		return fmt.Errorf("paths.results_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DBPath) == "" {
		c.Paths.DBPath = defaultDBPath
	}
	if c.Paths.DBPath, err = expandPath(c.Paths.DBPath); err != nil {
		return fmt.Errorf("paths.db_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeParser() error {
	c.Parser.Command = strings.TrimSpace(c.Parser.Command)
	if c.Parser.Command == "" {
		c.Parser.Command = defaultParserCommand
		if len(c.Parser.Args) == 0 {
			c.Parser.Args = defaultParserArgs()
		}
	}
	args := make([]string, 0, len(c.Parser.Args))
	for _, arg := range c.Parser.Args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Parser.Args = args
	c.Parser.IP = strings.TrimSpace(c.Parser.IP)
	if c.Parser.IP == "" {
		c.Parser.IP = defaultParserIP
	}
	if c.Parser.Port == 0 {
		c.Parser.Port = defaultParserPort
	}
	if c.Parser.DPI == 0 {
		c.Parser.DPI = defaultParserDPI
	}
	if c.Parser.MinPixels == 0 {
		c.Parser.MinPixels = defaultParserMinPixels
	}
	if c.Parser.MaxPixels == 0 {
		c.Parser.MaxPixels = defaultParserMaxPixels
	}
	if c.Parser.TimeoutSeconds == 0 {
		c.Parser.TimeoutSeconds = defaultParserTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeJobs() {
	if c.Jobs.Workers == 0 {
		c.Jobs.Workers = defaultJobWorkers
	}
	if c.Jobs.QueueSize == 0 {
		c.Jobs.QueueSize = defaultJobQueueSize
	}
	if c.Jobs.JobTimeoutSeconds < 0 {
		c.Jobs.JobTimeoutSeconds = 0
	}
}

func (c *Config) normalizeIndex() {
	c.Index.Backend = strings.ToLower(strings.TrimSpace(c.Index.Backend))
	if c.Index.Backend == "" {
		c.Index.Backend = IndexMemory
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
