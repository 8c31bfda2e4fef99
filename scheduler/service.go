// Package scheduler drives the background refresh loops that keep the
// dashboard caches warm: the current-epoch rebuild, the jail and health
// overlays, and the slower reward, warm-key and hardware sweeps. Each loop
// runs independently so one failing upstream call never stalls the others.
package scheduler

import (
	"context"
	"time"

	"github.com/gonka-ai/dashboard-backend/async"
	"github.com/gonka-ai/dashboard-backend/runtime"
)

var _ runtime.Service = (*Service)(nil)

const (
	// defaultStagger separates the first run of consecutive loops so a cold
	// start does not burst every upstream endpoint at once.
	defaultStagger = 5 * time.Second

	defaultCurrentInterval      = 30 * time.Second
	defaultHealthInterval       = time.Minute
	defaultJailInterval         = 2 * time.Minute
	defaultRewardsInterval      = time.Minute
	defaultWarmKeysInterval     = 5 * time.Minute
	defaultHardwareInterval     = 10 * time.Minute
	defaultTotalRewardsInterval = 10 * time.Minute
)

// Aggregator is the refresh surface the scheduler drives.
type Aggregator interface {
	RefreshCurrentStats(ctx context.Context) error
	RefreshNodeHealth(ctx context.Context) error
	RefreshJailStatuses(ctx context.Context) error
	PollRewards(ctx context.Context) error
	PollWarmKeys(ctx context.Context) error
	PollHardwareNodes(ctx context.Context) error
	PollTotalRewards(ctx context.Context) error
}

// Config options for the scheduler service. Zero intervals fall back to the
// defaults above.
type Config struct {
	Aggregator           Aggregator
	Stagger              time.Duration
	CurrentInterval      time.Duration
	HealthInterval       time.Duration
	JailInterval         time.Duration
	RewardsInterval      time.Duration
	WarmKeysInterval     time.Duration
	HardwareInterval     time.Duration
	TotalRewardsInterval time.Duration
}

// Service runs the staggered refresh loops until its context is cancelled.
type Service struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *Config
}

type task struct {
	name     string
	interval time.Duration
	run      func(context.Context) error
}

// NewService creates the scheduler for the service registry.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	setDefault(&cfg.Stagger, defaultStagger)
	setDefault(&cfg.CurrentInterval, defaultCurrentInterval)
	setDefault(&cfg.HealthInterval, defaultHealthInterval)
	setDefault(&cfg.JailInterval, defaultJailInterval)
	setDefault(&cfg.RewardsInterval, defaultRewardsInterval)
	setDefault(&cfg.WarmKeysInterval, defaultWarmKeysInterval)
	setDefault(&cfg.HardwareInterval, defaultHardwareInterval)
	setDefault(&cfg.TotalRewardsInterval, defaultTotalRewardsInterval)
	return &Service{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
	}
}

func setDefault(d *time.Duration, fallback time.Duration) {
	if *d == 0 {
		*d = fallback
	}
}

// tasks lists the loops in stagger order: the current-epoch rebuild first,
// then the overlays, then the slow sweeps.
func (s *Service) tasks() []task {
	agg := s.cfg.Aggregator
	return []task{
		{name: "current_epoch", interval: s.cfg.CurrentInterval, run: agg.RefreshCurrentStats},
		{name: "node_health", interval: s.cfg.HealthInterval, run: agg.RefreshNodeHealth},
		{name: "jail_status", interval: s.cfg.JailInterval, run: agg.RefreshJailStatuses},
		{name: "rewards", interval: s.cfg.RewardsInterval, run: agg.PollRewards},
		{name: "warm_keys", interval: s.cfg.WarmKeysInterval, run: agg.PollWarmKeys},
		{name: "hardware_nodes", interval: s.cfg.HardwareInterval, run: agg.PollHardwareNodes},
		{name: "epoch_total_rewards", interval: s.cfg.TotalRewardsInterval, run: agg.PollTotalRewards},
	}
}

// Start spawns one goroutine per refresh loop.
func (s *Service) Start() {
	for i, t := range s.tasks() {
		go s.runTask(t, time.Duration(i)*s.cfg.Stagger)
	}
}

// Stop cancels every refresh loop.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status always returns nil; individual loop failures are logged and
// surfaced through metrics rather than failing the service.
func (s *Service) Status() error {
	return nil
}

func (s *Service) runTask(t task, delay time.Duration) {
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-s.ctx.Done():
			return
		}
	}
	tick := func(ctx context.Context) {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		if err := t.run(ctx); err != nil {
			taskFailures.WithLabelValues(t.name).Inc()
			log.WithError(err).WithField("task", t.name).Error("Refresh task failed")
			return
		}
		taskDuration.WithLabelValues(t.name).Observe(time.Since(start).Seconds())
	}
	tick(s.ctx)
	async.RunEvery(s.ctx, t.interval, tick)
}
