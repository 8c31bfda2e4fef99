package chainclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CheckNodeHealth probes a participant's inference endpoint and measures
// wall-clock response time. It never returns an error: every failure mode
// is folded into the result.
func (c *Client) CheckNodeHealth(ctx context.Context, inferenceURL string) *HealthResult {
	if inferenceURL == "" {
		return &HealthResult{ErrorMessage: "No inference URL"}
	}
	healthURL := strings.TrimRight(inferenceURL, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return &HealthResult{ErrorMessage: err.Error()}
	}
	start := time.Now()
	r, err := c.healthHC.Do(req)
	if err != nil {
		return &HealthResult{ErrorMessage: err.Error()}
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.WithError(err).Debug("Could not close response body")
		}
	}()
	elapsed := time.Since(start).Milliseconds()
	if r.StatusCode >= 200 && r.StatusCode <= 299 {
		return &HealthResult{IsHealthy: true, ResponseTimeMS: &elapsed}
	}
	return &HealthResult{ErrorMessage: fmt.Sprintf("HTTP %d", r.StatusCode), ResponseTimeMS: &elapsed}
}
