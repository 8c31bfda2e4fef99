// Package gateway serves the dashboard's JSON API: epoch stats, participant
// details, models, the chain timeline and cached inference rows, with CORS
// for the dashboard frontend.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"

	"github.com/gonka-ai/dashboard-backend/aggregator"
	"github.com/gonka-ai/dashboard-backend/runtime"
)

var _ runtime.Service = (*Service)(nil)

// Aggregator is the read surface the HTTP handlers serve.
type Aggregator interface {
	CurrentEpochStats(ctx context.Context, reload bool) (*aggregator.EpochStatsResponse, error)
	HistoricalEpochStats(ctx context.Context, epochID, requestedHeight uint64, rewardsSync bool) (*aggregator.EpochStatsResponse, error)
	ParticipantDetails(ctx context.Context, participantID string, epochID, requestedHeight uint64) (*aggregator.ParticipantDetailsResponse, error)
	ParticipantInferences(ctx context.Context, epochID uint64, participantID string) (*aggregator.ParticipantInferencesResponse, error)
	Timeline(ctx context.Context) (*aggregator.TimelineResponse, error)
	CurrentModels(ctx context.Context) (*aggregator.ModelsResponse, error)
	HistoricalModels(ctx context.Context, epochID, requestedHeight uint64) (*aggregator.ModelsResponse, error)
}

// Config parameters for setting up the gateway service.
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string
	Aggregator     Aggregator
}

// Service serves the dashboard REST API.
type Service struct {
	ctx          context.Context
	cancel       context.CancelFunc
	cfg          *Config
	server       *http.Server
	startFailure error
}

// NewService creates the gateway for the service registry.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	s := &Service{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
	}
	router := mux.NewRouter()
	s.registerRoutes(router)
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: s.corsMiddleware(router),
	}
	return s
}

func (s *Service) registerRoutes(router *mux.Router) {
	router.HandleFunc("/v1/hello", s.helloHandler).Methods(http.MethodGet)
	router.HandleFunc("/v1/inference/current", s.currentStatsHandler).Methods(http.MethodGet)
	router.HandleFunc("/v1/inference/epochs/{epoch_id}", s.historicalStatsHandler).Methods(http.MethodGet)
	router.HandleFunc("/v1/participants/{participant_id}/inferences", s.participantInferencesHandler).Methods(http.MethodGet)
	router.HandleFunc("/v1/participants/{participant_id}", s.participantDetailsHandler).Methods(http.MethodGet)
	router.HandleFunc("/v1/timeline", s.timelineHandler).Methods(http.MethodGet)
	router.HandleFunc("/v1/models/current", s.currentModelsHandler).Methods(http.MethodGet)
	router.HandleFunc("/v1/models/epochs/{epoch_id}", s.historicalModelsHandler).Methods(http.MethodGet)
	router.HandleFunc("/v1/version", s.versionHandler).Methods(http.MethodGet)
}

// Start the gateway service.
func (s *Service) Start() {
	go func() {
		log.WithField("address", s.server.Addr).Info("Starting dashboard API")
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Error("Failed to start dashboard API")
			s.startFailure = err
		}
	}()
}

// Stop the gateway with a graceful shutdown.
func (s *Service) Stop() error {
	if s.server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(s.ctx, 2*time.Second)
		defer shutdownCancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("Existing connections terminated")
			} else {
				log.WithError(err).Error("Failed to gracefully shut down server")
			}
		}
	}
	s.cancel()
	return nil
}

// Status of the gateway. Returns an error if the listener failed to bind.
func (s *Service) Status() error {
	return s.startFailure
}

func (s *Service) corsMiddleware(h http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowCredentials: true,
		MaxAge:           600,
		AllowedHeaders:   []string{"*"},
	})
	return c.Handler(h)
}
