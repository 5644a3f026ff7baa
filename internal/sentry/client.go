package sentry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/takeshy/sentryrelease/internal/assets"
)

// maxErrorBody caps how much of an error response is kept in the message.
const maxErrorBody = 4 << 10

// RemoteRequestError reports a failed release creation or file upload.
type RemoteRequestError struct {
	Op         string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteRequestError) Error() string {
	msg := fmt.Sprintf("%s fail, %s", e.Op, e.Message)
	if e.Path != "" {
		msg += ", " + e.Path
	}
	return msg
}

func (e *RemoteRequestError) Unwrap() error {
	return e.Err
}

// Client is a Sentry API client
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new Sentry API client. baseURL is the API root,
// e.g. https://sentry.io/api/0.
func NewClient(baseURL, authToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createReleaseRequest struct {
	Version  string   `json:"version"`
	Projects []string `json:"projects"`
}

// CreateRelease creates a release for the given projects.
func (c *Client) CreateRelease(ctx context.Context, org, version string, projects []string) error {
	const op = "releases create"

	body, err := json.Marshal(createReleaseRequest{Version: version, Projects: projects})
	if err != nil {
		return &RemoteRequestError{Op: op, Message: err.Error(), Err: err}
	}

	endpoint := fmt.Sprintf("%s/organizations/%s/releases/", c.baseURL, url.PathEscape(org))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &RemoteRequestError{Op: op, Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, op, "")
}

// UploadFile attaches a local file to a release under the given name. The
// file content is streamed into the multipart body.
func (c *Client) UploadFile(ctx context.Context, org, release string, file assets.File, name string) error {
	const op = "sourcemap upload"

	f, err := os.Open(file.Path)
	if err != nil {
		return &RemoteRequestError{Op: op, Path: file.Path, Message: err.Error(), Err: err}
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		defer f.Close()
		pw.CloseWithError(writeUploadForm(writer, f, file, name))
	}()

	endpoint := fmt.Sprintf("%s/organizations/%s/releases/%s/files/",
		c.baseURL, url.PathEscape(org), url.PathEscape(release))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		pr.CloseWithError(err)
		return &RemoteRequestError{Op: op, Path: file.Path, Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	err = c.do(req, op, file.Path)
	// Unblock the writer goroutine if the transport stopped reading early.
	pr.CloseWithError(io.ErrClosedPipe)
	return err
}

func writeUploadForm(writer *multipart.Writer, src io.Reader, file assets.File, name string) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(file.Path)))
	h.Set("Content-Type", assets.ContentType(file.Name))

	part, err := writer.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create file field: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := writer.WriteField("name", name); err != nil {
		return fmt.Errorf("failed to write name field: %w", err)
	}
	return writer.Close()
}

func (c *Client) do(req *http.Request, op, path string) error {
	req.Header.Set("Authorization", "Bearer "+c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteRequestError{Op: op, Path: path, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RemoteRequestError{
			Op:         op,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
