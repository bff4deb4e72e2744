package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LayoutCell is a single detected layout element.
type LayoutCell struct {
	BBox     []int  `json:"bbox"`
	Category string `json:"category"`
	Text     string `json:"text,omitempty"`
}

var mockCells = []LayoutCell{
	{BBox: []int{10, 10, 200, 60}, Category: "Title", Text: "Mock Title"},
	{BBox: []int{10, 80, 300, 140}, Category: "Text", Text: "This is a mock paragraph for testing."},
}

const mockMarkdown = "# Mock Result\n\nThis is a mock markdown output."

// MockEngine writes a fixed single-page layout without invoking the model.
type MockEngine struct{}

// Parse writes <stem>.json, .md, .jpg and the .jsonl manifest into req.OutputDir.
func (MockEngine) Parse(ctx context.Context, req Request) ([]PageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare mock output: %w", err)
	}
	stem := req.Filename()
	layoutPath := filepath.Join(req.OutputDir, stem+".json")
	imagePath := filepath.Join(req.OutputDir, stem+".jpg")
	mdPath := filepath.Join(req.OutputDir, stem+".md")

	cells, err := json.Marshal(mockCells)
	if err != nil {
		return nil, fmt.Errorf("encode mock layout: %w", err)
	}
	files := []struct {
		path string
		data []byte
	}{
		{layoutPath, cells},
		{mdPath, []byte(mockMarkdown)},
		{imagePath, []byte("mock")},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, f.data, 0o644); err != nil {
			return nil, fmt.Errorf("write mock output: %w", err)
		}
	}

	pages := []PageResult{{
		PageNo:          0,
		LayoutInfoPath:  layoutPath,
		LayoutImagePath: imagePath,
		MDContentPath:   mdPath,
		FilePath:        req.InputPath,
	}}
	if err := WriteManifest(ManifestPath(req.OutputDir, stem), pages); err != nil {
		return nil, err
	}
	return pages, nil
}
