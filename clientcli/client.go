package clientcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sagarc03/itemgate"
)

const (
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	uploadFieldName = "image"
)

// Client performs operations against an itemgate server.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	cfg = cfg.WithDefaults()

	c := &Client{
		config: &Config{
			Endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
			Token:    cfg.Token,
		},
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Endpoint returns the normalized server URL.
func (c *Client) Endpoint() string {
	return c.config.Endpoint
}

// Health checks that the server and its database are reachable.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/healthz", nil, &out, false); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	return nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, email, password string) (itemgate.Identity, error) {
	var identity itemgate.Identity
	body := credentials{Email: email, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/signup", body, &identity, false); err != nil {
		return itemgate.Identity{}, fmt.Errorf("signup: %w", err)
	}
	return identity, nil
}

// Login exchanges credentials for a bearer token. The token is also used
// for later requests made by this client.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := credentials{Email: email, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/login", body, &out, false); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	c.config.Token = out.Token
	return out.Token, nil
}

// CreateItem stores a new item and returns it with its assigned id.
func (c *Client) CreateItem(ctx context.Context, fields itemgate.Fields) (itemgate.Item, error) {
	var item itemgate.Item
	if err := c.doJSON(ctx, http.MethodPost, "/api/items", fieldsBody(fields), &item, true); err != nil {
		return itemgate.Item{}, fmt.Errorf("create item: %w", err)
	}
	return item, nil
}

// ListItems returns every stored item.
func (c *Client) ListItems(ctx context.Context) ([]itemgate.Item, error) {
	var items []itemgate.Item
	if err := c.doJSON(ctx, http.MethodGet, "/api/items", nil, &items, true); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	if items == nil {
		items = []itemgate.Item{}
	}
	return items, nil
}

// GetItem fetches a single item by id.
func (c *Client) GetItem(ctx context.Context, id string) (itemgate.Item, error) {
	if id == "" {
		return itemgate.Item{}, fmt.Errorf("get item: %w", ErrEmptyID)
	}
	var item itemgate.Item
	if err := c.doJSON(ctx, http.MethodGet, itemPath(id), nil, &item, true); err != nil {
		return itemgate.Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// UpdateItem merge-writes fields onto an item, creating it when absent.
// The returned item carries only the fields that were sent.
func (c *Client) UpdateItem(ctx context.Context, id string, fields itemgate.Fields) (itemgate.Item, error) {
	if id == "" {
		return itemgate.Item{}, fmt.Errorf("update item: %w", ErrEmptyID)
	}
	var item itemgate.Item
	if err := c.doJSON(ctx, http.MethodPut, itemPath(id), fieldsBody(fields), &item, true); err != nil {
		return itemgate.Item{}, fmt.Errorf("update item: %w", err)
	}
	return item, nil
}

// DeleteItems deletes one or more items.
// Continues on error, collecting results for all ids.
func (c *Client) DeleteItems(ctx context.Context, ids []string) ([]DeleteResult, error) {
	if len(ids) == 0 {
		return nil, ErrNoIDs
	}

	results := make([]DeleteResult, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, c.deleteSingle(ctx, id))
	}
	return results, nil
}

func (c *Client) deleteSingle(ctx context.Context, id string) DeleteResult {
	if id == "" {
		return DeleteResult{ID: id, Err: ErrEmptyID}
	}
	if err := c.doJSON(ctx, http.MethodDelete, itemPath(id), nil, nil, true); err != nil {
		return DeleteResult{ID: id, Err: err}
	}
	return DeleteResult{ID: id, Deleted: true}
}

// HasDeleteErrors returns true if any of the results failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for i := range results {
		if results[i].Err != nil {
			return true
		}
	}
	return false
}

// Upload sends image file(s) to the server.
// For recursive uploads, every regular file under the directory is sent.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("upload: %w", ErrEmptyPath)
	}
	if opts.Recursive {
		return c.uploadRecursive(ctx, opts)
	}
	result, err := c.uploadSingle(ctx, opts.LocalPath, opts.ContentType)
	if err != nil {
		return nil, err
	}
	return []UploadResult{result}, nil
}

func (c *Client) uploadRecursive(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	info, err := os.Stat(opts.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("stat local path: %w", err)
	}

	if !info.IsDir() {
		result, uploadErr := c.uploadSingle(ctx, opts.LocalPath, opts.ContentType)
		if uploadErr != nil {
			return nil, uploadErr
		}
		return []UploadResult{result}, nil
	}

	var results []UploadResult
	walkErr := filepath.WalkDir(opts.LocalPath, func(path string, d fs.DirEntry, fileErr error) error {
		if fileErr != nil {
			return fileErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}

		result, uploadErr := c.uploadSingle(ctx, path, opts.ContentType)
		if uploadErr != nil {
			results = append(results, UploadResult{LocalPath: path, Err: uploadErr})
			return nil
		}
		results = append(results, result)
		return nil
	})

	if walkErr != nil {
		return results, fmt.Errorf("walk directory: %w", walkErr)
	}

	return results, nil
}

// uploadSingle streams one file as a multipart form without buffering it.
func (c *Client) uploadSingle(ctx context.Context, localPath, contentType string) (UploadResult, error) {
	if c.config.Token == "" {
		return UploadResult{}, ErrTokenRequired
	}

	file, err := os.Open(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return UploadResult{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return UploadResult{}, fmt.Errorf("stat file: %w", err)
	}

	if contentType == "" {
		contentType = detectContentType(localPath)
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(form, file, filepath.Base(localPath), contentType))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+"/api/upload-image", pr)
	if err != nil {
		_ = pr.Close()
		return UploadResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	c.authorize(req)

	var out struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := c.do(req, &out); err != nil {
		_ = pr.Close()
		return UploadResult{}, err
	}

	return UploadResult{
		LocalPath:   localPath,
		ImageURL:    out.ImageURL,
		ContentType: contentType,
		Size:        info.Size(),
	}, nil
}

func writeUploadForm(form *multipart.Writer, content io.Reader, filename, contentType string) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     uploadFieldName,
		"filename": filename,
	}))
	header.Set("Content-Type", contentType)

	part, err := form.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("write form part: %w", err)
	}
	return form.Close()
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// fieldsBody keeps a nil payload encoding as {} instead of null.
func fieldsBody(fields itemgate.Fields) itemgate.Fields {
	if fields == nil {
		return itemgate.Fields{}
	}
	return fields
}

func itemPath(id string) string {
	return "/api/items/" + url.PathEscape(id)
}

// doJSON sends an optional JSON body and decodes a JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, auth bool) error {
	if auth && c.config.Token == "" {
		return ErrTokenRequired
	}

	reqBody := io.Reader(http.NoBody)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.Endpoint+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		c.authorize(req)
	}

	return c.do(req, out)
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseServerError(resp.StatusCode, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// detectContentType returns MIME type based on file extension.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "application/octet-stream"
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}

	return mimeType
}

// parseServerError extracts the error body the server sends with every
// non-2xx response. Bodies that are not JSON are kept verbatim.
func parseServerError(statusCode int, body []byte) error {
	apiErr := &APIError{
		StatusCode: statusCode,
		Body:       string(body),
	}
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Error
		apiErr.Code = payload.Code
	}
	return apiErr
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return "server error: " + strconv.Itoa(e.StatusCode) + " - " + e.Message
	}
	return "server error: " + strconv.Itoa(e.StatusCode) + " - " + strings.TrimSpace(e.Body)
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the requested item does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrUnauthorized is returned when credentials are wrong or the
	// Authorization header is missing (401).
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}

	// ErrForbidden is returned when the bearer token is invalid or expired (403).
	ErrForbidden = &APIError{StatusCode: http.StatusForbidden}

	// ErrConflict is returned when signing up with a registered email (409).
	ErrConflict = &APIError{StatusCode: http.StatusConflict}

	// ErrTooLarge is returned when an upload exceeds the server limit (413).
	ErrTooLarge = &APIError{StatusCode: http.StatusRequestEntityTooLarge}
)
