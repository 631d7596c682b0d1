package piisweep

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Options configures a Client created with NewWithOptions.
type Options struct {
	APIKey string
	// BaseURL overrides DefaultBaseURL. A single trailing slash is removed.
	BaseURL string
	// HTTPClient is used for all requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Client calls the PII Sweep API. Its configuration is fixed at
// construction, so one Client may be shared by many goroutines.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New creates a Client for the default service origin.
func New(apiKey string) *Client {
	return NewWithOptions(Options{APIKey: apiKey})
}

// NewWithOptions creates a Client from opts. It performs no I/O and does
// not validate the key; the service does that on the first request.
func NewWithOptions(opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimSuffix(base, "/"),
		http:    hc,
	}
}

// BaseURL returns the origin requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	Text  string     `json:"text"`
	Types *[]PIIType `json:"types,omitempty"`
}

func newRequest(text string, types []PIIType) request {
	r := request{Text: text}
	// nil means "all categories" and is left out of the body; an explicit
	// empty list is sent as [].
	if types != nil {
		r.Types = &types
	}
	return r
}

// Strip returns text with detected PII replaced by placeholders. types
// restricts the categories the service acts on; none means all of them.
func (c *Client) Strip(ctx context.Context, text string, types ...PIIType) (*StripResult, error) {
	var res StripResult
	if err := c.do(ctx, StripPath, newRequest(text, types), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Detect reports PII found in text without altering it.
func (c *Client) Detect(ctx context.Context, text string, types ...PIIType) (*DetectResult, error) {
	var res DetectResult
	if err := c.do(ctx, DetectPath, newRequest(text, types), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// do sends one POST to path and decodes a 2xx body into out. Any other
// status yields an *Error. There are no retries.
func (c *Client) do(ctx context.Context, path string, payload request, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("piisweep: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("piisweep: request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("piisweep: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// A body that can't be read is treated like one that can't be parsed.
		b, _ := io.ReadAll(resp.Body)
		return newError(resp.StatusCode, b)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("piisweep: %s: read body: %w", path, err)
	}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return fmt.Errorf("piisweep: %s: decode: %w", path, errNullBody)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("piisweep: %s: decode: %w", path, err)
	}
	return nil
}

// errNullBody rejects a literal null success body, which json.Unmarshal
// would otherwise accept as a zero-valued result.
var errNullBody = errors.New("response body is null")
