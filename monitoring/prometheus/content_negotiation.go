package prometheus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/golang/gddo/httputil"
)

const (
	contentTypePlainText = "text/plain"
	contentTypeJSON      = "application/json"
)

// statusResponse is the envelope for /healthz output.
type statusResponse struct {
	// Err is a protocol error, if any.
	Err string `json:"error"`

	// Data holds the per-service statuses.
	Data interface{} `json:"data"`
}

// negotiateContentType picks plaintext or JSON from the Accept header, so
// probes get line-per-service output while dashboards can ask for JSON.
func negotiateContentType(r *http.Request) string {
	contentTypes := []string{
		contentTypePlainText,
		contentTypeJSON,
	}
	return httputil.NegotiateContentType(r, contentTypes, contentTypePlainText)
}

// writeResponse renders the response in the negotiated content type.
func writeResponse(w http.ResponseWriter, r *http.Request, response statusResponse) error {
	switch negotiateContentType(r) {
	case contentTypePlainText:
		buf, ok := response.Data.(*bytes.Buffer)
		if !ok {
			return fmt.Errorf("unexpected data: %v", response.Data)
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("could not write response body: %w", err)
		}
	case contentTypeJSON:
		w.Header().Set("Content-Type", contentTypeJSON)
		if err := json.NewEncoder(w).Encode(response); err != nil {
			return err
		}
	}
	return nil
}
