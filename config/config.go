/*
Package config holds the process-wide settings of the dashboard backend.
The global config is populated exactly once at startup from CLI flags and
read by the services that need it.

Tests that depend on a particular setting should use the following to
override it for the duration of the test:

	cfg := &config.Config{
		DiscoverUpstreams: true,
	}
	resetCfg := config.InitWithReset(cfg)
	defer resetCfg()
*/
package config

import (
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/gonka-ai/dashboard-backend/cmd"
)

// Config represents the runtime settings of the dashboard backend.
type Config struct {
	UpstreamURLs      []string      // UpstreamURLs are the chain API nodes the aggregator fans out to.
	DiscoverUpstreams bool          // DiscoverUpstreams extends the upstream pool from the active participant set on boot.
	APITimeout        time.Duration // APITimeout bounds every request against the upstream chain API.
	AllowedOrigin     string        // AllowedOrigin may make cross-origin requests to the dashboard API.

	// Poll intervals of the background refresh loops.
	PollCurrentEpochInterval      time.Duration
	PollNodeHealthInterval        time.Duration
	PollJailStatusInterval        time.Duration
	PollRewardsInterval           time.Duration
	PollWarmKeysInterval          time.Duration
	PollHardwareNodesInterval     time.Duration
	PollEpochTotalRewardsInterval time.Duration
}

var dashboardConfig *Config

// Get retrieves the dashboard config.
func Get() *Config {
	if dashboardConfig == nil {
		return &Config{}
	}
	return dashboardConfig
}

// Init sets the global config equal to the config that is passed in.
func Init(c *Config) {
	dashboardConfig = c
}

// InitWithReset sets the global config and returns a function that is used to reset configuration.
func InitWithReset(c *Config) func() {
	resetFunc := func() {
		Init(&Config{})
	}
	Init(c)
	return resetFunc
}

// ConfigureDashboard sets the global config based on the flags passed to the dashboard process.
func ConfigureDashboard(ctx *cli.Context) {
	Init(&Config{
		UpstreamURLs:                  SplitURLs(ctx.String(cmd.UpstreamURLs.Name)),
		DiscoverUpstreams:             ctx.Bool(cmd.DiscoverUpstreams.Name),
		APITimeout:                    ctx.Duration(cmd.APITimeout.Name),
		AllowedOrigin:                 ctx.String(cmd.CORSOrigin.Name),
		PollCurrentEpochInterval:      ctx.Duration(cmd.PollCurrentEpochInterval.Name),
		PollNodeHealthInterval:        ctx.Duration(cmd.PollNodeHealthInterval.Name),
		PollJailStatusInterval:        ctx.Duration(cmd.PollJailStatusInterval.Name),
		PollRewardsInterval:           ctx.Duration(cmd.PollRewardsInterval.Name),
		PollWarmKeysInterval:          ctx.Duration(cmd.PollWarmKeysInterval.Name),
		PollHardwareNodesInterval:     ctx.Duration(cmd.PollHardwareNodesInterval.Name),
		PollEpochTotalRewardsInterval: ctx.Duration(cmd.PollEpochTotalRewardsInterval.Name),
	})
}

// SplitURLs parses a comma-separated URL list, dropping empty entries.
func SplitURLs(raw string) []string {
	urls := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	return urls
}
