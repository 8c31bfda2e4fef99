// Package chainclient provides a stateless HTTP client for the gonka node
// REST surface with multi-URL rotation and failover, plus the pure address
// and profile helpers the aggregation layer joins records with.
package chainclient

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/gonka-ai/dashboard-backend/io/logs"
)

const (
	defaultTimeout     = 10 * time.Second
	healthProbeTimeout = 5 * time.Second
	keybaseAPIHost     = "https://keybase.io"
	profileCacheSize   = 128
)

// Client is a wrapper object around the HTTP client. One call corresponds to
// one logical endpoint invocation; the client retries across the configured
// base URLs until all of them fail within a single rotation.
type Client struct {
	hc          *http.Client
	healthHC    *http.Client
	keybaseHost string

	mu   sync.RWMutex
	urls []*url.URL
	next int

	profiles *lru.Cache
}

// NewClient constructs a new client from an ordered list of base URLs with
// the provided options (ex WithTimeout). Each host can be a URL string, or
// NewClient will assume an http endpoint if just `host:port` is used.
func NewClient(hosts []string, opts ...ClientOpt) (*Client, error) {
	if len(hosts) == 0 {
		return nil, errors.New("at least one upstream base URL is required")
	}
	urls := make([]*url.URL, 0, len(hosts))
	for _, h := range hosts {
		u, err := urlForHost(h)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid upstream %q", h)
		}
		urls = append(urls, u)
	}
	profiles, err := lru.New(profileCacheSize)
	if err != nil {
		return nil, err
	}
	c := &Client{
		hc:          &http.Client{Timeout: defaultTimeout},
		healthHC:    &http.Client{Timeout: healthProbeTimeout},
		keybaseHost: keybaseAPIHost,
		urls:        urls,
		profiles:    profiles,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func urlForHost(h string) (*url.URL, error) {
	// try to parse as url (being permissive)
	u, err := url.Parse(h)
	if err == nil && u.Host != "" {
		return u, nil
	}
	// try to parse as host:port
	host, port, err := net.SplitHostPort(h)
	if err != nil {
		return nil, ErrMalformedHostname
	}
	return &url.URL{Host: net.JoinHostPort(host, port), Scheme: "http"}, nil
}

// BaseURLs returns the configured upstream base URLs in rotation order.
func (c *Client) BaseURLs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.urls))
	for i, u := range c.urls {
		out[i] = u.String()
	}
	return out
}

// AddBaseURLs appends additional base URLs to the rotation set, skipping any
// already present. Used by startup URL discovery.
func (c *Client) AddBaseURLs(hosts []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	known := make(map[string]bool, len(c.urls))
	for _, u := range c.urls {
		known[u.String()] = true
	}
	for _, h := range hosts {
		u, err := urlForHost(h)
		if err != nil {
			log.WithError(err).WithField("url", logs.MaskCredentialsLogging(h)).Warn("Skipping undialable discovered URL")
			continue
		}
		if known[u.String()] {
			continue
		}
		known[u.String()] = true
		c.urls = append(c.urls, u)
	}
}

// get performs a GET against the current base URL, rotating to the next URL
// on any transport error or non-2xx response. A successful call leaves the
// rotation index unchanged; if every URL fails within one cycle the call
// fails with ErrUpstreamUnavailable.
func (c *Client) get(ctx context.Context, path string, opts ...ReqOption) ([]byte, error) {
	c.mu.RLock()
	urls := c.urls
	start := c.next
	c.mu.RUnlock()

	var lastErr error
	for attempt := 0; attempt < len(urls); attempt++ {
		base := urls[(start+attempt)%len(urls)]
		b, err := c.getOnce(ctx, base, path, opts...)
		if err == nil {
			return b, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		upstreamFailovers.Inc()
		c.mu.Lock()
		c.next = (c.next + 1) % len(c.urls)
		rotated := c.urls[c.next]
		c.mu.Unlock()
		log.WithError(err).WithFields(map[string]interface{}{
			"failed": base.Host,
			"next":   rotated.Host,
		}).Warn("Upstream request failed, rotating")
	}
	return nil, errors.Wrapf(ErrUpstreamUnavailable, "last error: %v", lastErr)
}

func (c *Client) getOnce(ctx context.Context, base *url.URL, path string, opts ...ReqOption) ([]byte, error) {
	rel, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	u := base.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		o(req)
	}
	start := time.Now()
	r, err := c.hc.Do(req)
	if err != nil {
		upstreamRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.WithError(err).Debug("Could not close response body")
		}
	}()
	upstreamLatency.Observe(time.Since(start).Seconds())
	if r.StatusCode < 200 || r.StatusCode > 299 {
		upstreamRequests.WithLabelValues("non2xx").Inc()
		return nil, non200Err(r)
	}
	upstreamRequests.WithLabelValues("ok").Inc()
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.Wrap(err, "error reading http response body")
	}
	return b, nil
}

// getJSON performs a rotated GET and unmarshals the response body into dst.
func (c *Client) getJSON(ctx context.Context, path string, dst interface{}, opts ...ReqOption) error {
	b, err := c.get(ctx, path, opts...)
	if err != nil {
		return err
	}
	return unmarshalBody(b, dst, path)
}

func unmarshalBody(b []byte, dst interface{}, what string) error {
	if err := json.Unmarshal(b, dst); err != nil {
		return errors.Wrapf(err, "error unmarshaling %s response", what)
	}
	return nil
}
