// Package api is the HTTP client for the publishing backend. Every call is
// a single request; retries are left to the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultLongTimeout = 5 * time.Minute

	apiKeyHeader = "X-API-Key"
	maxBodyBytes = 64 << 20
)

// Paths holds the backend endpoints that differ between deployments.
type Paths struct {
	Fetch  string
	Polish string
	Render string
	Upload string
}

func DefaultPaths() Paths {
	return Paths{
		Fetch:  "/tools/zhihu_get",
		Polish: "/tools/polish",
		Render: "/tools/long-text-content",
		Upload: "/upload/image",
	}
}

// DefaultUploadRoot is the backend's data directory relative to its working
// directory. Uploaded files are served from <root>/static/uploads.
const DefaultUploadRoot = "data"

type Options struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	LongTimeout time.Duration
	Paths       Paths
	// UploadRoot maps an upload URL to the path the backend reads it from.
	UploadRoot string
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

type Client struct {
	base       string
	apiKey     string
	paths      Paths
	uploadRoot string
	short      *http.Client
	long       *http.Client
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.LongTimeout <= 0 {
		opts.LongTimeout = DefaultLongTimeout
	}
	def := DefaultPaths()
	if opts.Paths.Fetch == "" {
		opts.Paths.Fetch = def.Fetch
	}
	if opts.Paths.Polish == "" {
		opts.Paths.Polish = def.Polish
	}
	if opts.Paths.Render == "" {
		opts.Paths.Render = def.Render
	}
	if opts.Paths.Upload == "" {
		opts.Paths.Upload = def.Upload
	}
	if opts.UploadRoot == "" {
		opts.UploadRoot = DefaultUploadRoot
	}
	return &Client{
		base:       strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		paths:      opts.Paths,
		uploadRoot: opts.UploadRoot,
		short:      &http.Client{Timeout: opts.Timeout, Transport: opts.Transport},
		long:       &http.Client{Timeout: opts.LongTimeout, Transport: opts.Transport},
	}
}

// Error is a completed request the backend answered with a non-2xx status.
type Error struct {
	StatusCode int
	Path       string
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.Path)
	}
	return fmt.Sprintf("HTTP %d for %s: %s", e.StatusCode, e.Path, e.Message)
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResponse is the envelope every tool endpoint answers with.
type ToolResponse struct {
	Content []ContentBlock `json:"content"`
	// Raw is the undecoded response body.
	Raw json.RawMessage `json:"-"`
}

// FirstText returns the first text block.
func (r *ToolResponse) FirstText() (string, bool) {
	if r == nil {
		return "", false
	}
	for _, b := range r.Content {
		if b.Type == "" || b.Type == "text" {
			return b.Text, true
		}
	}
	return "", false
}

func decodeToolResponse(body []byte) (*ToolResponse, error) {
	var resp ToolResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode tool response: %w", err)
	}
	resp.Raw = append(json.RawMessage(nil), body...)
	return &resp, nil
}

// AssetURL is where the backend serves a generated asset.
func (c *Client) AssetURL(assetPath string) string {
	return c.base + "/" + strings.TrimLeft(path.Clean("/"+assetPath), "/")
}

func (c *Client) endpoint(p string) string {
	return c.base + "/" + strings.TrimLeft(p, "/")
}

func (c *Client) do(hc *http.Client, req *http.Request) ([]byte, error) {
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{StatusCode: resp.StatusCode, Path: req.URL.Path, Message: errorMessage(body)}
	}
	return body, nil
}

func (c *Client) postJSON(ctx context.Context, hc *http.Client, p string, payload any) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", p, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(p), bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(hc, req)
}

// errorMessage pulls a human readable message out of an error body.
func errorMessage(body []byte) string {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			switch v := m[key].(type) {
			case string:
				if v != "" {
					return v
				}
			case []any:
				var parts []string
				for _, item := range v {
					if obj, ok := item.(map[string]any); ok {
						if msg, ok := obj["msg"].(string); ok {
							parts = append(parts, msg)
						}
					}
				}
				if len(parts) > 0 {
					return strings.Join(parts, "; ")
				}
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len([]rune(msg)) > 200 {
		msg = string([]rune(msg)[:200]) + "..."
	}
	return msg
}

// FetchContent retrieves the source article.
func (c *Client) FetchContent(ctx context.Context, sourceURL string) (*ToolResponse, error) {
	if _, err := url.ParseRequestURI(sourceURL); err != nil {
		return nil, fmt.Errorf("invalid source url %q: %w", sourceURL, err)
	}
	body, err := c.postJSON(ctx, c.short, c.paths.Fetch, map[string]string{"url": sourceURL})
	if err != nil {
		return nil, err
	}
	return decodeToolResponse(body)
}

// Polish rewrites text following the instruction. It uses the long timeout.
func (c *Client) Polish(ctx context.Context, text, instruction string) (*ToolResponse, error) {
	body, err := c.postJSON(ctx, c.long, c.paths.Polish, map[string]string{
		"original_text": text,
		"prompt":        instruction,
	})
	if err != nil {
		return nil, err
	}
	return decodeToolResponse(body)
}

// UploadResult is the backend's answer to an image upload. Path is filled in
// by the client and names the file as the backend sees it.
type UploadResult struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	Error    string `json:"error"`
	Path     string `json:"-"`
}

// UploadImage stores an image on the backend so later tool calls can refer
// to it by path.
func (c *Client) UploadImage(ctx context.Context, name string, data []byte) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("encode upload form: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("encode upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("encode upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.paths.Upload), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	body, err := c.do(c.short, req)
	if err != nil {
		return nil, err
	}
	var res UploadResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if !res.Success {
		return nil, fmt.Errorf("upload %s: %s", name, firstNonEmpty(res.Error, "rejected"))
	}
	res.Path = c.storedPath(res)
	if res.Path == "" {
		return nil, fmt.Errorf("upload %s: response names no file", name)
	}
	return &res, nil
}

// storedPath turns "/static/uploads/x.png" into "<root>/static/uploads/x.png".
func (c *Client) storedPath(res UploadResult) string {
	switch {
	case res.URL != "":
		return path.Join(c.uploadRoot, strings.TrimLeft(res.URL, "/"))
	case res.Filename != "":
		return path.Join(c.uploadRoot, "static", "uploads", res.Filename)
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// RenderRequest is sent as form fields. BackgroundPath must name a file the
// backend can open, usually one returned by UploadImage.
type RenderRequest struct {
	Content        string
	BackgroundPath string
	OutputDir      string
	FontColor      string
}

// RenderImages composites text onto the background image. The raw body is
// returned alongside the decoded envelope since generated paths are encoded
// in prose.
func (c *Client) RenderImages(ctx context.Context, r RenderRequest) (*ToolResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"content", r.Content},
		{"background_image_path", r.BackgroundPath},
		{"font_color", r.FontColor},
	}
	if r.OutputDir != "" {
		fields = append(fields, [2]string{"output_folder_path", r.OutputDir})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("encode render form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("encode render form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.paths.Render), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	body, err := c.do(c.long, req)
	if err != nil {
		return nil, err
	}
	resp, err := decodeToolResponse(body)
	if err != nil {
		// Plain-text bodies still carry the file list.
		return &ToolResponse{
			Content: []ContentBlock{{Type: "text", Text: string(body)}},
			Raw:     rawText(body),
		}, nil
	}
	return resp, nil
}

func rawText(body []byte) json.RawMessage {
	raw, _ := json.Marshal(string(body))
	return raw
}

// DownloadAsset fetches the bytes of a generated asset.
func (c *Client) DownloadAsset(ctx context.Context, assetPath string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AssetURL(assetPath), nil)
	if err != nil {
		return nil, err
	}
	return c.do(c.short, req)
}
