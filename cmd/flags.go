// Package cmd defines the command line flags shared by the dashboard binaries.
package cmd

import (
	"time"

	"github.com/urfave/cli/v2"
)

var (
	// VerbosityFlag defines the logrus configuration.
	VerbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity (trace, debug, info=default, warn, error, fatal, panic)",
		Value: "info",
	}
	// DataDirFlag defines a path on disk.
	DataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the cache database",
		Value: DefaultDataDir(),
	}
	// ClearDB prompts user to see if they want to remove any previously cached data at the data directory.
	ClearDB = &cli.BoolFlag{
		Name:  "clear-db",
		Usage: "Prompt for clearing any previously cached data at the data directory",
	}
	// ForceClearDB removes any previously cached data at the data directory.
	ForceClearDB = &cli.BoolFlag{
		Name:  "force-clear-db",
		Usage: "Clear any previously cached data at the data directory",
	}
	// UpstreamURLs defines the chain API nodes the dashboard aggregates from.
	UpstreamURLs = &cli.StringFlag{
		Name:  "upstream-urls",
		Usage: "Base URLs of gonka chain API nodes. Multiple nodes can be separated with a comma",
		Value: "http://node2.gonka.ai:8000",
	}
	// DiscoverUpstreams extends the upstream pool with the inference URLs of the active participants.
	DiscoverUpstreams = &cli.BoolFlag{
		Name:  "discover-upstreams",
		Usage: "Discover additional upstream nodes from the active participant set on startup.",
	}
	// APITimeout defines a timeout for requests against the upstream chain API.
	APITimeout = &cli.DurationFlag{
		Name:  "api-timeout",
		Usage: "Timeout for requests against the upstream chain API.",
		Value: 10 * time.Second,
	}
	// HTTPHost defines the host on which the dashboard API server runs.
	HTTPHost = &cli.StringFlag{
		Name:  "http-host",
		Usage: "The host on which the dashboard API server runs.",
		Value: "0.0.0.0",
	}
	// HTTPPort defines the port on which the dashboard API server runs.
	HTTPPort = &cli.IntFlag{
		Name:  "http-port",
		Usage: "The port on which the dashboard API server runs.",
		Value: 8000,
	}
	// CORSOrigin defines the origin allowed to make cross-origin requests to the dashboard API.
	CORSOrigin = &cli.StringFlag{
		Name:  "cors-origin",
		Usage: "The origin allowed to make cross-origin requests to the dashboard API.",
		Value: "http://localhost:3000",
	}
	// MonitoringHostFlag defines the host used for the monitoring service.
	MonitoringHostFlag = &cli.StringFlag{
		Name:  "monitoring-host",
		Usage: "Host used for listening and responding metrics for prometheus.",
		Value: "127.0.0.1",
	}
	// MonitoringPortFlag defines the port used for the monitoring service.
	MonitoringPortFlag = &cli.IntFlag{
		Name:  "monitoring-port",
		Usage: "Port used to listening and respond metrics for prometheus.",
		Value: 8081,
	}
	// DisableMonitoringFlag defines a flag to disable the metrics collection.
	DisableMonitoringFlag = &cli.BoolFlag{
		Name:  "disable-monitoring",
		Usage: "Disable monitoring service.",
	}
	// PollCurrentEpochInterval defines how often the current epoch stats are rebuilt.
	PollCurrentEpochInterval = &cli.DurationFlag{
		Name:  "poll-current-epoch-interval",
		Usage: "How often the current epoch stats are rebuilt from the upstream nodes.",
		Value: 30 * time.Second,
	}
	// PollNodeHealthInterval defines how often the participant health overlay is refreshed.
	PollNodeHealthInterval = &cli.DurationFlag{
		Name:  "poll-node-health-interval",
		Usage: "How often the participant node health overlay is refreshed.",
		Value: 60 * time.Second,
	}
	// PollJailStatusInterval defines how often validator jail statuses are refreshed.
	PollJailStatusInterval = &cli.DurationFlag{
		Name:  "poll-jail-status-interval",
		Usage: "How often validator jail statuses are refreshed.",
		Value: 120 * time.Second,
	}
	// PollRewardsInterval defines how often per-participant reward settlements are polled.
	PollRewardsInterval = &cli.DurationFlag{
		Name:  "poll-rewards-interval",
		Usage: "How often per-participant reward settlements are polled.",
		Value: 60 * time.Second,
	}
	// PollWarmKeysInterval defines how often warm key associations are polled.
	PollWarmKeysInterval = &cli.DurationFlag{
		Name:  "poll-warm-keys-interval",
		Usage: "How often warm key associations are polled.",
		Value: 5 * time.Minute,
	}
	// PollHardwareNodesInterval defines how often per-participant hardware node groups are polled.
	PollHardwareNodesInterval = &cli.DurationFlag{
		Name:  "poll-hardware-nodes-interval",
		Usage: "How often per-participant hardware node groups are polled.",
		Value: 10 * time.Minute,
	}
	// PollEpochTotalRewardsInterval defines how often settled epoch reward totals are polled.
	PollEpochTotalRewardsInterval = &cli.DurationFlag{
		Name:  "poll-epoch-total-rewards-interval",
		Usage: "How often settled epoch reward totals are polled.",
		Value: 10 * time.Minute,
	}
	// EnableTracingFlag defines a flag to enable request tracing.
	EnableTracingFlag = &cli.BoolFlag{
		Name:  "enable-tracing",
		Usage: "Enable request tracing.",
	}
	// TracingProcessNameFlag defines a flag to specify a process name.
	TracingProcessNameFlag = &cli.StringFlag{
		Name:  "tracing-process-name",
		Usage: "The name to apply to tracing tag \"process_name\"",
	}
	// TracingEndpointFlag flag defines the http endpoint for serving traces to Jaeger.
	TracingEndpointFlag = &cli.StringFlag{
		Name:  "tracing-endpoint",
		Usage: "Tracing endpoint defines where dashboard traces are exposed to Jaeger.",
		Value: "http://127.0.0.1:14268/api/traces",
	}
	// TraceSampleFractionFlag defines a flag to indicate what fraction of requests
	// are sampled for tracing.
	TraceSampleFractionFlag = &cli.Float64Flag{
		Name:  "trace-sample-fraction",
		Usage: "Indicate what fraction of requests are sampled for tracing.",
		Value: 0.20,
	}
	// LogFormat specifies the log output format.
	LogFormat = &cli.StringFlag{
		Name:  "log-format",
		Usage: "Specify log formatting. Supports: text, json, fluentd.",
		Value: "text",
	}
	// LogFileName specifies the log output file name.
	LogFileName = &cli.StringFlag{
		Name:  "log-file",
		Usage: "Specify log file name, relative or absolute",
	}
	// ConfigFileFlag specifies the filepath to load flag values.
	ConfigFileFlag = &cli.StringFlag{
		Name:  "config-file",
		Usage: "The filepath to a yaml file with flag values",
	}
)
