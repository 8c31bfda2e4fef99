package chainclient

import (
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// ErrMalformedHostname is returned when a base URL cannot be parsed into a
// host or host:port pair.
var ErrMalformedHostname = errors.New("hostname must include port, separated by one colon, like example.com:443")

// ErrUpstreamUnavailable indicates that one full rotation over every
// configured base URL failed. Callers holding a cached value should serve it;
// everyone else surfaces this.
var ErrUpstreamUnavailable = errors.New("all upstream endpoints failed")

// ErrNotOK is returned when an upstream responds with a non-2xx code.
var ErrNotOK = errors.New("did not receive 2xx response from upstream")

// ErrNotFound specializes ErrNotOK for 404 responses.
var ErrNotFound = errors.Wrap(ErrNotOK, "recv 404 NotFound response from upstream")

func non200Err(response *http.Response) error {
	bodyText := readErrorBody(response)
	msg := fmt.Sprintf("code=%d, url=%s, body=%s", response.StatusCode, response.Request.URL, bodyText)
	switch response.StatusCode {
	case http.StatusNotFound:
		return errors.Wrap(ErrNotFound, msg)
	default:
		return errors.Wrap(ErrNotOK, msg)
	}
}

func readErrorBody(r *http.Response) string {
	b, err := io.ReadAll(io.LimitReader(r.Body, 1024))
	if err != nil {
		return "unable to read response body"
	}
	return string(b)
}
