package config

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/gonka-ai/dashboard-backend/cmd"
)

func TestInitWithReset(t *testing.T) {
	reset := InitWithReset(&Config{DiscoverUpstreams: true})
	assert.True(t, Get().DiscoverUpstreams)

	reset()
	assert.False(t, Get().DiscoverUpstreams)
}

func TestGet_NeverNil(t *testing.T) {
	reset := InitWithReset(&Config{})
	defer reset()

	Init(nil)
	require.NotNil(t, Get())
}

func TestConfigureDashboard(t *testing.T) {
	app := cli.App{}
	set := flag.NewFlagSet("test", 0)
	set.String(cmd.UpstreamURLs.Name, "", "")
	set.Bool(cmd.DiscoverUpstreams.Name, false, "")
	set.Duration(cmd.APITimeout.Name, 0, "")
	set.String(cmd.CORSOrigin.Name, "", "")
	set.Duration(cmd.PollCurrentEpochInterval.Name, 0, "")
	set.Duration(cmd.PollRewardsInterval.Name, 0, "")
	cliCtx := cli.NewContext(&app, set, nil)

	require.NoError(t, set.Set(cmd.UpstreamURLs.Name, "http://node1.gonka.ai:8000, http://node2.gonka.ai:8000"))
	require.NoError(t, set.Set(cmd.DiscoverUpstreams.Name, "true"))
	require.NoError(t, set.Set(cmd.APITimeout.Name, "15s"))
	require.NoError(t, set.Set(cmd.CORSOrigin.Name, "https://dashboard.gonka.ai"))
	require.NoError(t, set.Set(cmd.PollCurrentEpochInterval.Name, "45s"))

	ConfigureDashboard(cliCtx)
	defer Init(&Config{})

	cfg := Get()
	assert.Equal(t, []string{"http://node1.gonka.ai:8000", "http://node2.gonka.ai:8000"}, cfg.UpstreamURLs)
	assert.True(t, cfg.DiscoverUpstreams)
	assert.Equal(t, 15*time.Second, cfg.APITimeout)
	assert.Equal(t, "https://dashboard.gonka.ai", cfg.AllowedOrigin)
	assert.Equal(t, 45*time.Second, cfg.PollCurrentEpochInterval)
	assert.Equal(t, time.Duration(0), cfg.PollRewardsInterval)
}

func TestSplitURLs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "single", raw: "http://node2.gonka.ai:8000", want: []string{"http://node2.gonka.ai:8000"}},
		{name: "multiple with spaces", raw: "http://a:8000, http://b:8000 ,http://c:8000", want: []string{"http://a:8000", "http://b:8000", "http://c:8000"}},
		{name: "trailing comma", raw: "http://a:8000,", want: []string{"http://a:8000"}},
		{name: "empty", raw: "", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitURLs(tt.raw))
		})
	}
}
