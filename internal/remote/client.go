package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nerrad567/midnam-core/internal/catalog"
)

const (
	defaultTimeout = 10 * time.Second

	// maxResponseBytes caps a decoded response body.
	maxResponseBytes = 32 << 20
)

// Device is a device document served by the remote API.
type Device struct {
	ID           string `json:"id"`
	Manufacturer string `json:"Manufacturer"`
	Model        string `json:"Model"`
	Author       string `json:"Author"`
	FilePath     string `json:"file_path"`

	// Document is the raw XML, from raw_xml or midnam_content.
	Document string `json:"-"`
}

type deviceResponse struct {
	Device
	RawXML        string `json:"raw_xml"`
	MidnamContent string `json:"midnam_content"`
}

// Client reads devices and the device catalog from the remote API.
//
// Concurrent identical requests share one HTTP round trip.
// All methods are safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	group      singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a Client for baseURL. An empty baseURL yields a client whose
// methods all return ErrDisabled.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a base URL is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Device fetches one device document by catalog key.
//
// Parameters:
//   - ctx: Bounds this caller's wait, not the shared request
//   - key: Catalog key "Manufacturer|Model"
//   - file: Optional file name when the device has several documents
//
// Returns:
//   - *Device: The document with its key and file
//   - error: ErrDisabled, ErrNotFound, ErrUnavailable or ErrBadResponse
func (c *Client) Device(ctx context.Context, key, file string) (*Device, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	endpoint := c.baseURL + "/api/device/" + url.PathEscape(key)
	if file != "" {
		endpoint += "?" + url.Values{"file": {file}}.Encode()
	}

	v, err := c.share(ctx, endpoint, func(ctx context.Context) (any, error) {
		var resp deviceResponse
		if err := c.getJSON(ctx, endpoint, &resp); err != nil {
			return nil, err
		}
		dev := resp.Device
		dev.Document = resp.RawXML
		if dev.Document == "" {
			dev.Document = resp.MidnamContent
		}
		if dev.Document == "" {
			return nil, fmt.Errorf("%w: device %q has no document", ErrBadResponse, key)
		}
		return &dev, nil
	})
	if err != nil {
		return nil, err
	}
	// Callers sharing a flight get their own copy.
	dev := *v.(*Device)
	return &dev, nil
}

// Catalog fetches the device catalog.
func (c *Client) Catalog(ctx context.Context) (catalog.Catalog, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	endpoint := c.baseURL + "/midnam_catalog"
	v, err := c.share(ctx, endpoint, func(ctx context.Context) (any, error) {
		var cat catalog.Catalog
		if err := c.getJSON(ctx, endpoint, &cat); err != nil {
			return nil, err
		}
		if cat == nil {
			cat = catalog.Catalog{}
		}
		return cat, nil
	})
	if err != nil {
		return nil, err
	}
	// Merge with no records copies the shared result.
	return catalog.Merge(v.(catalog.Catalog), nil), nil
}

// share runs fn once for all concurrent callers of key.
//
// The shared request is detached from the cancellation of whichever caller
// started it and is bounded by the client timeout instead. Each caller stops
// waiting when its own ctx is done; the others keep their result.
func (c *Client) share(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightTimeout())
		defer cancel()
		return fn(flightCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	}
}

func (c *Client) flightTimeout() time.Duration {
	if c.httpClient.Timeout > 0 {
		return c.httpClient.Timeout
	}
	return defaultTimeout
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: building request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: GET %s: HTTP %d", ErrUnavailable, endpoint, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: GET %s: HTTP %d", ErrNotFound, endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(dst); err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrBadResponse, endpoint, err)
	}
	return nil
}
