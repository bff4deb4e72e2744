package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dotsocr/internal/textutil"
)

// Prompt modes understood by the DotsOCR parser.
const (
	PromptLayoutAllEn  = "prompt_layout_all_en"
	PromptLayoutOnlyEn = "prompt_layout_only_en"
	PromptOCR          = "prompt_ocr"
	PromptGroundingOCR = "prompt_grounding_ocr"
	DefaultPromptMode  = PromptLayoutAllEn
)

var (
	// ErrUnsupportedFormat reports a document whose extension the parser cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrInvalidPromptMode reports an unknown prompt mode.
	ErrInvalidPromptMode = errors.New("invalid prompt mode")
	// ErrNoResults reports a parser run that produced no pages.
	ErrNoResults = errors.New("parser returned no results")
)

var promptModes = []string{PromptLayoutAllEn, PromptLayoutOnlyEn, PromptOCR, PromptGroundingOCR}

// PromptModes lists the accepted prompt modes.
func PromptModes() []string {
	out := make([]string, len(promptModes))
	copy(out, promptModes)
	return out
}

// NormalizePromptMode returns the default for an empty value and rejects unknown modes.
func NormalizePromptMode(mode string) (string, error) {
	mode = strings.TrimSpace(mode)
	if mode == "" {
		return DefaultPromptMode, nil
	}
	for _, known := range promptModes {
		if mode == known {
			return mode, nil
		}
	}
	return "", fmt.Errorf("%w: %q (supported: %s)", ErrInvalidPromptMode, mode, strings.Join(promptModes, ", "))
}

// Kind distinguishes multi-page documents from single images.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
)

var (
	// ImageExtensions are the accepted image extensions.
	ImageExtensions = []string{".jpg", ".jpeg", ".png"}
	// PDFExtensions are the accepted document extensions.
	PDFExtensions = []string{".pdf"}
	// AllExtensions are accepted by uploads and the generic parse endpoint.
	AllExtensions = []string{".pdf", ".jpg", ".jpeg", ".png"}
)

// KindForName infers the document kind from a filename and checks it against allowed.
func KindForName(name string, allowed []string) (Kind, string, error) {
	ext := textutil.SanitizeExtension(name)
	permitted := false
	for _, candidate := range allowed {
		if ext == candidate {
			permitted = true
			break
		}
	}
	if ext == "" || !permitted {
		return "", ext, fmt.Errorf("%w %q; supported formats: %s", ErrUnsupportedFormat, ext, strings.Join(allowed, ", "))
	}
	if ext == ".pdf" {
		return KindPDF, ext, nil
	}
	return KindImage, ext, nil
}

// Request describes one parser invocation.
type Request struct {
	InputPath      string
	Kind           Kind
	PromptMode     string
	FitzPreprocess bool
	OutputDir      string
}

// Filename is the stem the parser uses for everything it writes.
func (r Request) Filename() string {
	return textutil.Stem(r.InputPath)
}

// PageResult is one line of the parser's JSONL manifest.
type PageResult struct {
	PageNo          int    `json:"page_no"`
	LayoutInfoPath  string `json:"layout_info_path,omitempty"`
	LayoutImagePath string `json:"layout_image_path,omitempty"`
	MDContentPath   string `json:"md_content_path,omitempty"`
	FilePath        string `json:"file_path,omitempty"`
	Filtered        bool   `json:"filtered,omitempty"`
}

// Engine runs the layout model over a document.
type Engine interface {
	Parse(ctx context.Context, req Request) ([]PageResult, error)
}
