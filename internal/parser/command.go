package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"dotsocr/internal/config"
	"dotsocr/internal/logging"
)

// Settings configures the DotsOCR parser process and the vLLM endpoint it uses.
type Settings struct {
	Command   string
	Args      []string
	IP        string
	Port      int
	DPI       int
	MinPixels int
	MaxPixels int
	Timeout   time.Duration
}

// SettingsFromConfig extracts parser settings from the service configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Command:   cfg.Parser.Command,
		Args:      append([]string(nil), cfg.Parser.Args...),
		IP:        cfg.Parser.IP,
		Port:      cfg.Parser.Port,
		DPI:       cfg.Parser.DPI,
		MinPixels: cfg.Parser.MinPixels,
		MaxPixels: cfg.Parser.MaxPixels,
		Timeout:   cfg.ParserTimeout(),
	}
}

// Endpoint returns the vLLM address as host:port.
func (s Settings) Endpoint() string {
	return s.IP + ":" + strconv.Itoa(s.Port)
}

// CommandOption customizes a CommandEngine.
type CommandOption func(*CommandEngine)

// WithRunner injects a custom process runner (primarily for tests).
func WithRunner(r Runner) CommandOption {
	return func(e *CommandEngine) {
		if r != nil {
			e.runner = r
		}
	}
}

// CommandEngine runs the DotsOCR parser CLI and reads the manifest it writes.
type CommandEngine struct {
	settings Settings
	runner   Runner
	logger   *slog.Logger
}

// NewCommandEngine constructs an engine that shells out to settings.Command.
func NewCommandEngine(settings Settings, logger *slog.Logger, opts ...CommandOption) (*CommandEngine, error) {
	if strings.TrimSpace(settings.Command) == "" {
		return nil, errors.New("parser command required")
	}
	engine := &CommandEngine{
		settings: settings,
		runner:   execRunner{},
		logger:   logging.NewComponentLogger(logger, "parser"),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// Settings returns the engine configuration.
func (e *CommandEngine) Settings() Settings {
	return e.settings
}

// Parse runs the parser over req.InputPath, writing into req.OutputDir.
func (e *CommandEngine) Parse(ctx context.Context, req Request) ([]PageResult, error) {
	mode, err := NormalizePromptMode(req.PromptMode)
	if err != nil {
		return nil, err
	}
	req.PromptMode = mode
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare parser output: %w", err)
	}

	if e.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.settings.Timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, e.logger)
	args := e.buildArgs(req)
	_, stderr, err := e.runner.Run(ctx, e.settings.Command, logger, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("parser interrupted: %w", ctxErr)
		}
		detail := strings.TrimSpace(truncate(string(stderr), 512))
		if detail != "" {
			return nil, fmt.Errorf("parser failed: %w: %s", err, detail)
		}
		return nil, fmt.Errorf("parser failed: %w", err)
	}

	pages, err := ReadManifest(ManifestPath(req.OutputDir, req.Filename()))
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNoResults
	}
	logger.Info("parser finished",
		logging.String("prompt_mode", req.PromptMode),
		logging.String("kind", string(req.Kind)),
		logging.Int("pages", len(pages)),
	)
	return pages, nil
}

func (e *CommandEngine) buildArgs(req Request) []string {
	args := append([]string(nil), e.settings.Args...)
	args = append(args,
		req.InputPath,
		"--output", req.OutputDir,
		"--prompt", req.PromptMode,
		"--ip", e.settings.IP,
		"--port", strconv.Itoa(e.settings.Port),
		"--dpi", strconv.Itoa(e.settings.DPI),
		"--min_pixels", strconv.Itoa(e.settings.MinPixels),
		"--max_pixels", strconv.Itoa(e.settings.MaxPixels),
	)
	if req.Kind == KindImage && !req.FitzPreprocess {
		args = append(args, "--no_fitz_preprocess")
	}
	return args
}
