// Package aggregator fuses gonka chain state into the dashboard's read
// models: per-epoch participant stats with jail and health overlays,
// participant details, model listings, the chain timeline and cached
// inference rows. Responses are cached in bolt so the dashboard stays
// readable through upstream outages.
package aggregator

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/gonka-ai/dashboard-backend/chainclient"
	"github.com/gonka-ai/dashboard-backend/db"
)

const (
	// currentStatsKey holds the freshest current-epoch response and expires
	// after the configured TTL.
	currentStatsKey = "current-epoch-stats"
	// currentStatsStaleKey holds the last good response indefinitely so
	// upstream outages degrade to stale data instead of errors.
	currentStatsStaleKey = "current-epoch-stats-stale"

	defaultCurrentTTL = 5 * time.Minute
)

// Config options for the aggregation service.
type Config struct {
	Client     *chainclient.Client
	Database   db.Database
	CurrentTTL time.Duration
}

// Service fuses chain state into dashboard responses and maintains the
// caches shared by the request handlers and the background refresh loops.
type Service struct {
	ctx        context.Context
	cancel     context.CancelFunc
	client     *chainclient.Client
	db         db.Database
	memory     *gocache.Cache
	currentTTL time.Duration
}

// NewService creates the aggregation service for the service registry.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	ttl := cfg.CurrentTTL
	if ttl == 0 {
		ttl = defaultCurrentTTL
	}
	return &Service{
		ctx:        ctx,
		cancel:     cancel,
		client:     cfg.Client,
		db:         cfg.Database,
		memory:     gocache.New(ttl, 10*time.Minute),
		currentTTL: ttl,
	}
}

// Start the aggregation service.
func (s *Service) Start() {
	log.WithField("currentTTL", s.currentTTL).Info("Starting aggregation service")
}

// Stop the aggregation service, cancelling in-flight background cache fills.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status always reports healthy: upstream outages degrade responses to
// cached data rather than failing the process.
func (s *Service) Status() error {
	return nil
}

// cachedCurrent returns the in-memory current-epoch response if it is still
// within its TTL.
func (s *Service) cachedCurrent() (*EpochStatsResponse, bool) {
	v, ok := s.memory.Get(currentStatsKey)
	if !ok {
		return nil, false
	}
	return v.(*EpochStatsResponse), true
}

// staleCurrent returns the last successfully built current-epoch response
// regardless of age.
func (s *Service) staleCurrent() (*EpochStatsResponse, bool) {
	v, ok := s.memory.Get(currentStatsStaleKey)
	if !ok {
		return nil, false
	}
	return v.(*EpochStatsResponse), true
}

func (s *Service) storeCurrent(resp *EpochStatsResponse) {
	s.memory.Set(currentStatsKey, resp, gocache.DefaultExpiration)
	s.memory.Set(currentStatsStaleKey, resp, gocache.NoExpiration)
}
