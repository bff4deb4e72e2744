package config

const (
	defaultStorageDir           = "~/.local/share/dotsocr/storage"
	defaultResultsDir           = "~/.local/share/dotsocr/results"
	defaultDBPath               = "~/.local/share/dotsocr/dotsocr.db"
	defaultLogDir               = "~/.local/share/dotsocr/logs"
	defaultAPIBind              = "0.0.0.0:8001"
	defaultParserCommand        = "python3"
	defaultParserIP             = "localhost"
	defaultParserPort           = 8000
	defaultParserDPI            = 200
	defaultParserMinPixels      = 3136
	defaultParserMaxPixels      = 11289600
	defaultParserTimeoutSeconds = 600
	defaultJobWorkers           = 2
	defaultJobQueueSize         = 64
	defaultJobTimeoutSeconds    = 1800
	defaultMaxUploadMB          = 200
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Index backends.
const (
	IndexMemory = "memory"
	IndexSQLite = "sqlite"
)

func defaultParserArgs() []string {
	return []string{"-m", "dots_ocr.parser"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageDir: defaultStorageDir,
			ResultsDir: defaultResultsDir,
			DBPath:     defaultDBPath,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Parser: Parser{
			Command:        defaultParserCommand,
			Args:           defaultParserArgs(),
			IP:             defaultParserIP,
			Port:           defaultParserPort,
			DPI:            defaultParserDPI,
			MinPixels:      defaultParserMinPixels,
			MaxPixels:      defaultParserMaxPixels,
			TimeoutSeconds: defaultParserTimeoutSeconds,
		},
		Jobs: Jobs{
			Workers:           defaultJobWorkers,
			QueueSize:         defaultJobQueueSize,
			JobTimeoutSeconds: defaultJobTimeoutSeconds,
		},
		Index: Index{
			Backend: IndexMemory,
		},
		Server: Server{
			MaxUploadMB: defaultMaxUploadMB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
