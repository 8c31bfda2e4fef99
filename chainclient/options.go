package chainclient

import (
	"net/http"
	"strconv"
	"time"
)

// ReqOption is a per-request functional option.
type ReqOption func(*http.Request)

// WithHeightHeader forwards the observation height on endpoints that honor
// the cosmos block height header.
func WithHeightHeader(height uint64) ReqOption {
	return func(req *http.Request) {
		req.Header.Set("X-Cosmos-Block-Height", strconv.FormatUint(height, 10))
	}
}

// ClientOpt is a functional option for the Client type (http.Client wrapper).
type ClientOpt func(*Client)

// WithTimeout sets the .Timeout attribute of the wrapped http.Client.
func WithTimeout(timeout time.Duration) ClientOpt {
	return func(c *Client) {
		c.hc.Timeout = timeout
	}
}

// WithCustomTransport replaces the underlying http client's transport with a
// custom one.
func WithCustomTransport(t http.RoundTripper) ClientOpt {
	return func(c *Client) {
		c.hc.Transport = t
	}
}

// WithKeybaseHost overrides the Keybase API host, primarily for tests.
func WithKeybaseHost(host string) ClientOpt {
	return func(c *Client) {
		c.keybaseHost = host
	}
}
