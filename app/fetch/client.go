package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// TransportError reports a failed outbound request: non-2xx status, timeout
// or network failure. Status is zero when no response was received.
type TransportError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("HTTP %d for %s", e.Status, e.URL)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client performs all outbound source requests with a fixed browser identity.
// Sources routinely reject obvious bot traffic, so requests carry a realistic
// user agent and Korean locale headers. No retries: a failed source is simply
// skipped for this run.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

func NewClient(httpClient *http.Client, userAgent string) *Client {
	return &Client{httpClient: httpClient, userAgent: userAgent}
}

// Document fetches a URL and parses the response body as HTML.
func (c *Client) Document(ctx context.Context, rawURL string, timeout time.Duration) (*goquery.Document, error) {
	body, err := c.get(ctx, rawURL, timeout, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", rawURL, err)
	}
	return doc, nil
}

// Bytes fetches a URL and returns the raw response body (feed XML).
func (c *Client) Bytes(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	body, err := c.get(ctx, rawURL, timeout, "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", rawURL, err)
	}
	return data, nil
}

// PostFormJSON sends a form-encoded POST and decodes the JSON response into v.
func (c *Client) PostFormJSON(ctx context.Context, rawURL string, form url.Values, v any, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.setIdentity(req, "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{URL: rawURL, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode JSON from %s: %w", rawURL, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string, timeout time.Duration, accept string) (io.ReadCloser, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setIdentity(req, accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, &TransportError{URL: rawURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		return nil, &TransportError{URL: rawURL, Status: resp.StatusCode}
	}

	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

func (c *Client) setIdentity(req *http.Request, accept string) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")
}

// cancelOnClose ties the per-request timeout context to body lifetime.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
