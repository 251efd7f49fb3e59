// Package source implements read-only clients for the two upstream data
// sources: the country metadata feed and the exchange-rate feed.
package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/country-catalog/internal/errs"
)

// Options configures the upstream clients.
type Options struct {
	CountriesURL string
	RatesURL     string
	UserAgent    string
	Timeout      time.Duration
}

// Client performs single blocking fetches against the two fixed endpoints.
// No retry, no backoff: a failed fetch aborts the caller's refresh run.
type Client struct {
	http *http.Client
	opts Options
}

// New creates a Client with the given options.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "country-catalog/1.0"
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts: opts,
	}
}

// get fetches rawURL and returns the body, classifying any failure as a
// SourceError for the named upstream.
func (c *Client) get(ctx context.Context, source, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "source: create request")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.NewSourceError(source, 0, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, errs.NewSourceError(source, resp.StatusCode,
			eris.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL))
	}

	return resp.Body, nil
}

// decodeJSON decodes a single JSON value from a reader.
func decodeJSON[T any](r io.Reader) (*T, error) {
	var v T
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return nil, eris.Wrap(err, "source: decode json")
	}
	return &v, nil
}
