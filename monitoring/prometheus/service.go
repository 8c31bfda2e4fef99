// Package prometheus defines a service which is used for metrics collection
// and health of the dashboard backend process.
package prometheus

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/gonka-ai/dashboard-backend/runtime"
)

var log = logrus.WithField("prefix", "prometheus")

// Service provides Prometheus metrics via the /metrics route and the health
// of the registered services via /healthz.
type Service struct {
	server      *http.Server
	svcRegistry *runtime.ServiceRegistry
	failStatus  error
}

// Handler represents a path and handler func to serve on the same port.
type Handler struct {
	Path    string
	Handler func(http.ResponseWriter, *http.Request)
}

// NewService sets up a new instance for a given address host:port. An empty
// host will match with any IP so an address like ":8081" is perfectly
// acceptable.
func NewService(addr string, svcRegistry *runtime.ServiceRegistry, additionalHandlers ...Handler) *Service {
	s := &Service{svcRegistry: svcRegistry}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthzHandler)
	mux.HandleFunc("/goroutinez", s.goroutinezHandler)
	mux.Handle("/metrics", promhttp.Handler())
	for _, h := range additionalHandlers {
		mux.HandleFunc(h.Path, h.Handler)
	}

	s.server = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *Service) healthzHandler(w http.ResponseWriter, r *http.Request) {
	statuses := s.svcRegistry.Statuses()
	hasError := false
	statusJson := make(map[string]string, len(statuses))
	var buf bytes.Buffer
	for _, st := range statuses {
		status := "OK"
		if st.Err != nil {
			hasError = true
			status = "ERROR " + st.Err.Error()
		}
		statusJson[st.Type.String()] = status
		if _, err := fmt.Fprintf(&buf, "%s: %s\n", st.Type, status); err != nil {
			hasError = true
		}
	}

	if hasError {
		w.WriteHeader(http.StatusInternalServerError)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	var data interface{} = &buf
	if negotiateContentType(r) == contentTypeJSON {
		data = statusJson
	}
	if err := writeResponse(w, r, statusResponse{Data: data}); err != nil {
		log.Errorf("Could not write healthz body %v", err)
	}
}

func (s *Service) goroutinezHandler(w http.ResponseWriter, _ *http.Request) {
	stack := debug.Stack()
	// #nosec G104
	w.Write(stack)
	// #nosec G104
	pprof.Lookup("goroutine").WriteTo(w, 2)
}

// Start the prometheus service.
func (s *Service) Start() {
	go func() {
		// See if the port is already used.
		addrParts := strings.Split(s.server.Addr, ":")
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%s", addrParts[1]), time.Second)
		if err == nil {
			if err := conn.Close(); err != nil {
				log.WithError(err).Error("Failed to close connection")
			}
			log.WithField("address", s.server.Addr).Warn("Port already in use; cannot start prometheus service")
			s.failStatus = errors.New("port already in use")
			return
		}
		log.WithField("address", s.server.Addr).Debug("Starting prometheus service")
		err = s.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Errorf("Could not listen to host:port :%s: %v", s.server.Addr, err)
			s.failStatus = err
		}
	}()
}

// Stop the service gracefully.
func (s *Service) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Status checks for any service failure conditions.
func (s *Service) Status() error {
	if s.failStatus != nil {
		return s.failStatus
	}
	return nil
}
