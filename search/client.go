package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/deepresearch/logging"
)

// ClientOptions holds the transport settings shared by all providers.
type ClientOptions struct {
	// BaseURL overrides the provider endpoint (used by tests).
	BaseURL string
	// HTTPClient performs the requests. Defaults to a client with Timeout.
	HTTPClient *http.Client
	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing requests (0 = unlimited).
	RequestsPerSecond float64
	// Burst is the token bucket size used with RequestsPerSecond.
	Burst int
	// Now returns the current time; used for year filters.
	Now func() time.Time
	// Logger receives provider diagnostics.
	Logger logging.Logger
}

func defaultClientOptions(baseURL string) ClientOptions {
	return ClientOptions{
		BaseURL: baseURL,
		Timeout: DefaultTimeout,
		Burst:   1,
		Now:     time.Now,
		Logger:  logging.NoOpLogger{},
	}
}

// client is the HTTP plumbing embedded by providers.
type client struct {
	name    string
	opts    ClientOptions
	http    *http.Client
	limiter *rate.Limiter
}

func newClient(name string, opts ClientOptions) client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return client{name: name, opts: opts, http: httpClient, limiter: limiter}
}

func (c client) endpoint(path string) string {
	return strings.TrimRight(c.opts.BaseURL, "/") + path
}

// doJSON waits for the rate limiter, executes req and decodes a JSON body
// into out. Non-2xx responses become *ProviderError.
func (c client) doJSON(ctx context.Context, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &ProviderError{Provider: c.name, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")

	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return &ProviderError{Provider: c.name, Err: err}
	}
	defer resp.Body.Close()

	c.opts.Logger.Debug("search.provider.response",
		"provider", c.name,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &ProviderError{Provider: c.name, StatusCode: resp.StatusCode, Err: errors.New(logging.RedactString(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Provider: c.name, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}

func (c client) year() int { return c.opts.Now().Year() }

func (c client) since(req Request) time.Time {
	if req.Since.IsZero() {
		return startOfYear(c.opts.Now())
	}
	return req.Since
}

func maxResults(req Request) int {
	if req.MaxResults <= 0 {
		return 5
	}
	return req.MaxResults
}
