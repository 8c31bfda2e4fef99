// Package main defines the gonka dashboard backend server. It aggregates
// chain state from the network's node APIs into a local cache and serves the
// read-optimized JSON endpoints the dashboard frontend renders.
package main

import (
	"fmt"
	"os"
	"runtime"

	joonix "github.com/joonix/log"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/gonka-ai/dashboard-backend/cmd"
	"github.com/gonka-ai/dashboard-backend/io/logs"
	"github.com/gonka-ai/dashboard-backend/node"
	"github.com/gonka-ai/dashboard-backend/runtime/version"
)

var log = logrus.WithField("prefix", "main")

func startNode(cliCtx *cli.Context) error {
	verbosity := cliCtx.String(cmd.VerbosityFlag.Name)
	level, err := logrus.ParseLevel(verbosity)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	dashboard, err := node.New(cliCtx)
	if err != nil {
		return err
	}
	dashboard.Start()
	return nil
}

var appFlags = []cli.Flag{
	cmd.VerbosityFlag,
	cmd.DataDirFlag,
	cmd.UpstreamURLs,
	cmd.DiscoverUpstreams,
	cmd.APITimeout,
	cmd.HTTPHost,
	cmd.HTTPPort,
	cmd.CORSOrigin,
	cmd.PollCurrentEpochInterval,
	cmd.PollNodeHealthInterval,
	cmd.PollJailStatusInterval,
	cmd.PollRewardsInterval,
	cmd.PollWarmKeysInterval,
	cmd.PollHardwareNodesInterval,
	cmd.PollEpochTotalRewardsInterval,
	cmd.EnableTracingFlag,
	cmd.TracingProcessNameFlag,
	cmd.TracingEndpointFlag,
	cmd.TraceSampleFractionFlag,
	cmd.MonitoringHostFlag,
	cmd.MonitoringPortFlag,
	cmd.DisableMonitoringFlag,
	cmd.LogFileName,
	cmd.LogFormat,
	cmd.ClearDB,
	cmd.ForceClearDB,
	cmd.ConfigFileFlag,
}

func init() {
	appFlags = cmd.WrapFlags(appFlags)
}

func main() {
	app := cli.App{}
	app.Name = "dashboard-backend"
	app.Usage = "launches the gonka dashboard backend, aggregating proof-of-compute chain state into a cached read API"
	app.Version = version.GetVersion()
	app.Flags = appFlags
	app.Action = startNode
	app.Before = func(ctx *cli.Context) error {
		// Load any flags from file, if specified.
		if ctx.IsSet(cmd.ConfigFileFlag.Name) {
			if err := altsrc.InitInputSourceWithContext(
				appFlags,
				altsrc.NewYamlSourceFromFlagFunc(
					cmd.ConfigFileFlag.Name))(ctx); err != nil {
				return err
			}
		}

		format := ctx.String(cmd.LogFormat.Name)
		switch format {
		case "text":
			formatter := new(prefixed.TextFormatter)
			formatter.TimestampFormat = "2006-01-02 15:04:05"
			formatter.FullTimestamp = true
			// If persistent log files are written - we disable the log messages coloring because
			// the colors are ANSI codes and seen as Gibberish in the log files.
			formatter.DisableColors = ctx.String(cmd.LogFileName.Name) != ""
			logrus.SetFormatter(formatter)
		case "fluentd":
			logrus.SetFormatter(joonix.NewFormatter())
		case "json":
			logrus.SetFormatter(&logrus.JSONFormatter{})
		default:
			return fmt.Errorf("unknown log format %s", format)
		}

		logFileName := ctx.String(cmd.LogFileName.Name)
		if logFileName != "" {
			if err := logs.ConfigurePersistentLogging(logFileName); err != nil {
				log.WithError(err).Error("Failed to configuring logging to disk.")
			}
		}

		runtime.GOMAXPROCS(runtime.NumCPU())
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
