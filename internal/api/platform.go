package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CookieResult is the decoded answer of a credential endpoint. Get and load
// report Success; validate reports Valid.
type CookieResult struct {
	Success bool            `json:"success"`
	Valid   bool            `json:"valid"`
	Cookies json.RawMessage `json:"cookies,omitempty"`
	Saved   bool            `json:"saved,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`

	// Raw is the JSON the result was decoded from.
	Raw json.RawMessage `json:"-"`
}

// CookiesText returns the credential payload in the form publish endpoints
// expect: the JSON text of the cookie list.
func (r *CookieResult) CookiesText() string {
	raw := strings.TrimSpace(string(r.Cookies))
	if raw == "" || raw == "null" {
		return ""
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return s
		}
	}
	return raw
}

// Failure is the backend's explanation for an unsuccessful result.
func (r *CookieResult) Failure() string {
	if r.Error != "" {
		return r.Error
	}
	return r.Message
}

// DecodeCookieResult accepts either a bare result object or a tool response
// whose first text block holds one.
func DecodeCookieResult(body []byte) (*CookieResult, error) {
	inner, err := innerJSON(body)
	if err != nil {
		return nil, err
	}
	var res CookieResult
	if err := json.Unmarshal(inner, &res); err != nil {
		return nil, fmt.Errorf("decode credential result: %w", err)
	}
	res.Raw = append(json.RawMessage(nil), inner...)
	return &res, nil
}

// innerJSON unwraps {"content":[{"type":"text","text":"{...}"}]} to the
// embedded document. Bodies without the envelope are returned as is.
func innerJSON(body []byte) ([]byte, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if _, ok := top["content"]; !ok {
		return body, nil
	}
	resp, err := decodeToolResponse(body)
	if err != nil {
		return nil, err
	}
	text, ok := resp.FirstText()
	if !ok {
		return nil, fmt.Errorf("response has no text content")
	}
	text = strings.TrimSpace(text)
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("response text is not JSON: %.80s", text)
	}
	return []byte(text), nil
}

func cookiePath(platform, action string) string {
	return "/cookies/" + platform + "/" + action
}

// GetCookies starts an interactive credential acquisition. It can block for
// as long as the operator takes to log in, so it uses the long timeout.
func (c *Client) GetCookies(ctx context.Context, platform string) (*CookieResult, error) {
	body, err := c.postJSON(ctx, c.long, cookiePath(platform, "get"), nil)
	if err != nil {
		return nil, err
	}
	return DecodeCookieResult(body)
}

// LoadCookies returns previously saved credentials.
func (c *Client) LoadCookies(ctx context.Context, platform string) (*CookieResult, error) {
	body, err := c.postJSON(ctx, c.short, cookiePath(platform, "load"), nil)
	if err != nil {
		return nil, err
	}
	return DecodeCookieResult(body)
}

// ValidateCookies checks whether saved credentials are still accepted.
func (c *Client) ValidateCookies(ctx context.Context, platform string) (*CookieResult, error) {
	body, err := c.postJSON(ctx, c.long, cookiePath(platform, "validate"), nil)
	if err != nil {
		return nil, err
	}
	return DecodeCookieResult(body)
}

type PublishRequest struct {
	Cookies string   `json:"cookies"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Images  []string `json:"images"`
	Tags    []string `json:"tags"`
}

type PublishResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	URL     string `json:"url,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Publish submits a post. Images are base64 encoded file contents.
func (c *Client) Publish(ctx context.Context, platform string, req PublishRequest) (*PublishResult, error) {
	if req.Images == nil {
		req.Images = []string{}
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}
	body, err := c.postJSON(ctx, c.long, "/tools/"+platform, req)
	if err != nil {
		return nil, err
	}
	inner, err := innerJSON(body)
	if err != nil {
		// A plain text answer from a 2xx response is an acknowledgement.
		resp, derr := decodeToolResponse(body)
		if derr != nil {
			return nil, err
		}
		text, _ := resp.FirstText()
		return &PublishResult{Success: true, Message: text, Raw: resp.Raw}, nil
	}
	var res PublishResult
	if err := json.Unmarshal(inner, &res); err != nil {
		return nil, fmt.Errorf("decode publish result: %w", err)
	}
	res.Raw = append(json.RawMessage(nil), inner...)
	return &res, nil
}
