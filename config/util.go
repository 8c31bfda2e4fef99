package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// UnmarshalFromURL fetches a JSON document over HTTP and decodes it into to.
// The dashboard uses this for upstream seed lists published at a well-known
// URL.
func UnmarshalFromURL(ctx context.Context, from string, to interface{}) error {
	u, err := url.ParseRequestURI(from)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid URL: %s", from)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, from, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create http request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send http request")
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.WithError(err).Error("Failed to close response body")
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("http request to %v failed with status code %d", from, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(to); err != nil {
		return errors.Wrap(err, "failed to decode http response")
	}
	return nil
}

// UnmarshalFromFile reads a YAML document from disk and decodes it into to.
func UnmarshalFromFile(ctx context.Context, from string, to interface{}) error {
	if ctx == nil {
		return errors.New("config: nil context passed to UnmarshalFromFile")
	}
	b, err := os.ReadFile(filepath.Clean(from))
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	if err := yaml.Unmarshal(b, to); err != nil {
		return errors.Wrap(err, "failed to unmarshal yaml file")
	}
	return nil
}
