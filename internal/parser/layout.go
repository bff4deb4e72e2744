package parser

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"dotsocr/internal/logging"
)

//go:embed layout_schema.json
var layoutSchemaJSON []byte

var compileLayoutSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("layout.json", bytes.NewReader(layoutSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add layout schema: %w", err)
	}
	schema, err := compiler.Compile("layout.json")
	if err != nil {
		return nil, fmt.Errorf("compile layout schema: %w", err)
	}
	return schema, nil
})

// ValidateLayout checks that data is a layout cell array.
func ValidateLayout(data []byte) error {
	schema, err := compileLayoutSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode layout: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("layout does not match schema: %w", err)
	}
	return nil
}

// LoadLayout reads and validates a layout file. Missing, unreadable, or invalid
// files yield an empty layout; a warning is logged for everything except a
// missing path.
func LoadLayout(path string, logger *slog.Logger) []map[string]any {
	empty := []map[string]any{}
	if strings.TrimSpace(path) == "" {
		return empty
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			warnLayout(logger, path, err)
		}
		return empty
	}
	if err := ValidateLayout(data); err != nil {
		warnLayout(logger, path, err)
		return empty
	}
	var cells []map[string]any
	if err := json.Unmarshal(data, &cells); err != nil {
		warnLayout(logger, path, err)
		return empty
	}
	return cells
}

func warnLayout(logger *slog.Logger, path string, err error) {
	logging.WarnWithContext(logger, "layout file unreadable", "layout_invalid",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldImpact, "page returned without layout elements"),
		logging.String(logging.FieldErrorHint, "inspect the parser output for this page"),
	)
}
