package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dotsocr/internal/api"
)

// ErrAPIUnavailable indicates the daemon could not be reached.
var ErrAPIUnavailable = errors.New("dotsocr API unavailable")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Status)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Status, e.Message)
}

// Client talks to a running dotsocr daemon over HTTP.
type Client struct {
	base *url.URL
	http *http.Client
}

// ParseOptions are the parser knobs shared by tasks and synchronous parses.
type ParseOptions struct {
	PromptMode     string
	FitzPreprocess bool
	Mock           bool
}

func (o ParseOptions) values() url.Values {
	values := url.Values{}
	if strings.TrimSpace(o.PromptMode) != "" {
		values.Set("prompt_mode", o.PromptMode)
	}
	if o.FitzPreprocess {
		values.Set("fitz_preprocess", "true")
	}
	if o.Mock {
		values.Set("mock", "true")
	}
	return values
}

// New returns a client for bind, which may be host:port or a full URL.
func New(bind string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, fmt.Errorf("api bind address is empty")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	if host, port, err := net.SplitHostPort(base.Host); err == nil && (host == "" || host == "0.0.0.0" || host == "::") {
		base.Host = net.JoinHostPort("127.0.0.1", port)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	// No timeout: synchronous parses and downloads run until the caller cancels.
	return &Client{base: base, http: &http.Client{}}, nil
}

// BaseURL returns the daemon root URL.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.base.String()
}

// Info fetches the service banner.
func (c *Client) Info(ctx context.Context) (api.ServiceInfo, error) {
	var info api.ServiceInfo
	err := c.getJSON(ctx, "/", nil, &info)
	return info, err
}

// Health fetches the daemon health report.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var health api.HealthResponse
	err := c.getJSON(ctx, "/health", nil, &health)
	return health, err
}

// Upload stores a local file on the daemon.
func (c *Client) Upload(ctx context.Context, path string) (api.UploadResponse, error) {
	var resp api.UploadResponse
	err := c.postFile(ctx, "/files/upload", path, nil, &resp)
	return resp, err
}

// ListFiles returns every stored file.
func (c *Client) ListFiles(ctx context.Context) ([]api.FileMeta, error) {
	var files []api.FileMeta
	err := c.getJSON(ctx, "/files", nil, &files)
	return files, err
}

// DownloadFile copies a stored file into w.
func (c *Client) DownloadFile(ctx context.Context, id string, w io.Writer) (int64, error) {
	return c.download(ctx, "/files/"+url.PathEscape(id), w)
}

// CreateParseTask submits a background parse of a stored file and returns the task id.
func (c *Client) CreateParseTask(ctx context.Context, fileID string, opts ParseOptions) (string, error) {
	var resp api.TaskCreateResponse
	path := "/tasks/parse/" + url.PathEscape(fileID)
	if err := c.doJSON(ctx, http.MethodPost, path, opts.values(), nil, "", &resp); err != nil {
		return "", err
	}
	return resp.TaskID, nil
}

// ListTasks returns every known task.
func (c *Client) ListTasks(ctx context.Context) ([]api.TaskInfo, error) {
	var tasks []api.TaskInfo
	err := c.getJSON(ctx, "/tasks", nil, &tasks)
	return tasks, err
}

// GetTask returns a single task.
func (c *Client) GetTask(ctx context.Context, id string) (api.TaskInfo, error) {
	var task api.TaskInfo
	err := c.getJSON(ctx, "/tasks/"+url.PathEscape(id), nil, &task)
	return task, err
}

// WaitTask polls a task until it succeeds or fails.
func (c *Client) WaitTask(ctx context.Context, id string, interval time.Duration) (api.TaskInfo, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		task, err := c.GetTask(ctx, id)
		if err != nil {
			return task, err
		}
		if IsTerminal(task.Status) {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return task, ctx.Err()
		case <-ticker.C:
		}
	}
}

// DownloadResult copies the zipped output of a finished task into w.
func (c *Client) DownloadResult(ctx context.Context, id string, w io.Writer) (int64, error) {
	return c.download(ctx, "/tasks/"+url.PathEscape(id)+"/download", w)
}

// Parse runs a synchronous parse against /parse/{kind} where kind is image, pdf, or file.
func (c *Client) Parse(ctx context.Context, kind, path string, opts ParseOptions) (api.ParseResult, error) {
	switch kind {
	case "image", "pdf", "file":
	default:
		return api.ParseResult{}, fmt.Errorf("unknown parse endpoint %q", kind)
	}
	var result api.ParseResult
	err := c.postFile(ctx, "/parse/"+kind, path, opts.values(), &result)
	return result, err
}

// IsTerminal reports whether status is a finished task state.
func IsTerminal(status string) bool {
	return status == "succeeded" || status == "failed"
}

// IsNotFound reports whether err is a 404 from the daemon.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound
}

// IsAPIUnavailable reports whether err means the daemon could not be reached.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, "", out)
}

func (c *Client) postFile(ctx context.Context, path, filePath string, fields url.Values, out any) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, vals := range fields {
		for _, v := range vals {
			if err := mw.WriteField(key, v); err != nil {
				return err
			}
		}
	}
	part, err := mw.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, path, nil, &body, mw.FormDataContentType(), out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	resp, err := c.do(ctx, method, path, query, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, path string, w io.Writer) (int64, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil, nil, "")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return io.Copy(w, resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	if c == nil {
		return nil, ErrAPIUnavailable
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	statusErr := &StatusError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload api.ErrorResponse
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		statusErr.Message = payload.Error
	} else if text := strings.TrimSpace(string(data)); text != "" {
		statusErr.Message = text
	} else {
		statusErr.Message = http.StatusText(resp.StatusCode)
	}
	return statusErr
}

