package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultResponseHeaderTimeout is the default timeout for receiving response headers.
const DefaultResponseHeaderTimeout = 30 * time.Second

// Fetcher opens remote archives over HTTP.
type Fetcher struct {
	client *http.Client
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithTimeout sets an overall timeout for each request, body included.
func WithTimeout(timeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.client = &http.Client{
			Timeout:   timeout,
			Transport: f.client.Transport,
		}
	}
}

// NewFetcher creates a Fetcher with a tuned transport and no overall
// timeout; callers bound requests with their context.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open starts a GET request and returns the streaming body and its
// declared length (-1 when unknown).
func (f *Fetcher) Open(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("fetching %s: unexpected status: %s", url, resp.Status)
	}
	return resp.Body, resp.ContentLength, nil
}
