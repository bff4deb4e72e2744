package parser

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"dotsocr/internal/fileutil"
	"dotsocr/internal/logging"
)

// PageLayout is a page of a synchronous parse response.
type PageLayout struct {
	PageNo         int              `json:"page_no"`
	FullLayoutInfo []map[string]any `json:"full_layout_info"`
	SessionID      string           `json:"session_id"`
	Filtered       bool             `json:"filtered"`
}

// SessionResult is the outcome of ParseUpload.
type SessionResult struct {
	SessionID string
	Pages     []PageLayout
}

// ElementCount returns the number of layout elements across all pages.
func (r *SessionResult) ElementCount() int {
	total := 0
	for _, page := range r.Pages {
		total += len(page.FullLayoutInfo)
	}
	return total
}

// UploadRequest describes a synchronous parse of uploaded bytes.
type UploadRequest struct {
	Filename       string
	Content        []byte
	Allowed        []string
	PromptMode     string
	FitzPreprocess bool
}

// ErrEmptyUpload reports an upload without content.
var ErrEmptyUpload = errors.New("uploaded file is empty")

// ParseUpload writes the upload into a fresh session directory under tempRoot,
// runs engine, and loads every page's layout. The session directory is always
// removed before returning.
func ParseUpload(ctx context.Context, engine Engine, tempRoot string, req UploadRequest, logger *slog.Logger) (*SessionResult, error) {
	logger = logging.NewComponentLogger(logger, "parse-session")
	kind, ext, err := KindForName(req.Filename, req.Allowed)
	if err != nil {
		return nil, err
	}
	mode, err := NormalizePromptMode(req.PromptMode)
	if err != nil {
		return nil, err
	}
	if len(req.Content) == 0 {
		return nil, ErrEmptyUpload
	}

	id := uuid.New()
	sessionID := hex.EncodeToString(id[:])[:8]
	sessionDir, err := os.MkdirTemp(tempRoot, "dots_ocr_api_"+sessionID+"_")
	if err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(sessionDir); err != nil {
			logger.Warn("failed to remove session directory", logging.String("path", sessionDir), logging.Error(err))
		}
	}()

	prefix := "api_image_"
	if kind == KindPDF {
		prefix = "api_pdf_"
	}
	inputPath := filepath.Join(sessionDir, prefix+sessionID+ext)
	if _, err := fileutil.WriteFileVerified(inputPath, req.Content, 0o644); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	logger.Debug("parse session started",
		logging.String("session_id", sessionID),
		logging.String("kind", string(kind)),
		logging.String("prompt_mode", mode),
	)
	pages, err := engine.Parse(ctx, Request{
		InputPath:      inputPath,
		Kind:           kind,
		PromptMode:     mode,
		FitzPreprocess: req.FitzPreprocess,
		OutputDir:      filepath.Join(sessionDir, "output"),
	})
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNoResults
	}
	if kind == KindImage {
		pages = pages[:1]
		pages[0].PageNo = 0
	}

	result := &SessionResult{SessionID: sessionID, Pages: make([]PageLayout, 0, len(pages))}
	for _, page := range pages {
		result.Pages = append(result.Pages, PageLayout{
			PageNo:         page.PageNo,
			FullLayoutInfo: LoadLayout(page.LayoutInfoPath, logger),
			SessionID:      sessionID,
			Filtered:       page.Filtered,
		})
	}
	logger.Info("parse session finished",
		logging.String("session_id", sessionID),
		logging.Int("pages", len(result.Pages)),
		logging.Int("elements", result.ElementCount()),
	)
	return result, nil
}
