package prometheus

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonka-ai/dashboard-backend/runtime"
)

type healthyService struct{}

func (*healthyService) Start()        {}
func (*healthyService) Stop() error   { return nil }
func (*healthyService) Status() error { return nil }

type failingService struct{}

func (*failingService) Start()        {}
func (*failingService) Stop() error   { return nil }
func (*failingService) Status() error { return errors.New("service unhealthy") }

func TestHealthz(t *testing.T) {
	registry := runtime.NewServiceRegistry()
	require.NoError(t, registry.RegisterService(&healthyService{}))
	s := NewService("127.0.0.1:0", registry)

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "OK")
}

func TestHealthz_FailingService(t *testing.T) {
	registry := runtime.NewServiceRegistry()
	require.NoError(t, registry.RegisterService(&healthyService{}))
	require.NoError(t, registry.RegisterService(&failingService{}))
	s := NewService("127.0.0.1:0", registry)

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERROR service unhealthy")
}

func TestHealthz_JSONContentType(t *testing.T) {
	registry := runtime.NewServiceRegistry()
	require.NoError(t, registry.RegisterService(&failingService{}))
	s := NewService("127.0.0.1:0", registry)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := &statusResponse{Data: map[string]string{}}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	statuses, ok := resp.Data.(map[string]interface{})
	require.Equal(t, true, ok)
	require.Len(t, statuses, 1)
	for _, v := range statuses {
		assert.Equal(t, "ERROR service unhealthy", v)
	}
}

func TestGoroutinez(t *testing.T) {
	registry := runtime.NewServiceRegistry()
	s := NewService("127.0.0.1:0", registry)

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/goroutinez", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutine")
}

func TestMetricsHandler(t *testing.T) {
	s := NewService("127.0.0.1:0", runtime.NewServiceRegistry())

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdditionalHandlers(t *testing.T) {
	s := NewService("127.0.0.1:0", runtime.NewServiceRegistry(), Handler{
		Path: "/custom",
		Handler: func(w http.ResponseWriter, _ *http.Request) {
			_, err := w.Write([]byte("custom body"))
			require.NoError(t, err)
		},
	})

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/custom", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "custom body", rec.Body.String())
}

func TestLifecycle(t *testing.T) {
	s := NewService("127.0.0.1:0", runtime.NewServiceRegistry())
	s.Start()
	time.Sleep(50 * time.Millisecond)
	assert.NoError(t, s.Status())
	require.NoError(t, s.Stop())
}
