package server

import (
	"errors"
	"fmt"
	"net/http"

	"dotsocr/internal/filestore"
	"dotsocr/internal/jobs"
	"dotsocr/internal/parser"
)

var (
	errMissingUpload  = errors.New(`multipart field "file" is required`)
	errUploadTooLarge = errors.New("upload exceeds size limit")
)

// requestError carries an explicit status for request validation failures.
type requestError struct {
	status int
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }

func (e *requestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, err: fmt.Errorf(format, args...)}
}

func notFound(message string) error {
	return &requestError{status: http.StatusNotFound, err: errors.New(message)}
}

func statusFor(err error) int {
	var reqErr *requestError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status
	case errors.As(err, &maxErr), errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errMissingUpload),
		errors.Is(err, filestore.ErrEmptyContent),
		errors.Is(err, parser.ErrEmptyUpload),
		errors.Is(err, parser.ErrUnsupportedFormat),
		errors.Is(err, parser.ErrInvalidPromptMode):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrManagerClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
