package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestPath returns the JSONL manifest location for a request.
func ManifestPath(outputDir, filename string) string {
	return filepath.Join(outputDir, filename+".jsonl")
}

// ReadManifest decodes a JSONL manifest, one PageResult per non-empty line.
func ReadManifest(path string) ([]PageResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var pages []PageResult
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var page PageResult
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("decode manifest line %d: %w", line, err)
		}
		pages = append(pages, page)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}
	return pages, nil
}

// WriteManifest writes pages as JSONL.
func WriteManifest(path string, pages []PageResult) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, page := range pages {
		if err := enc.Encode(page); err != nil {
			return fmt.Errorf("encode manifest: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
