// Package node is the main service which launches the dashboard backend and
// manages the lifecycle of all its associated services at runtime, such as the
// chain aggregator, the refresh scheduler and the API gateway, gracefully
// closing them if the process ends.
package node

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/gonka-ai/dashboard-backend/aggregator"
	"github.com/gonka-ai/dashboard-backend/chainclient"
	"github.com/gonka-ai/dashboard-backend/cmd"
	"github.com/gonka-ai/dashboard-backend/config"
	"github.com/gonka-ai/dashboard-backend/db"
	"github.com/gonka-ai/dashboard-backend/db/kv"
	"github.com/gonka-ai/dashboard-backend/gateway"
	"github.com/gonka-ai/dashboard-backend/monitoring/prometheus"
	"github.com/gonka-ai/dashboard-backend/monitoring/tracing"
	"github.com/gonka-ai/dashboard-backend/runtime"
	"github.com/gonka-ai/dashboard-backend/runtime/version"
	"github.com/gonka-ai/dashboard-backend/scheduler"
)

// DashboardNode defines a struct that handles the services running the gonka
// dashboard backend. It handles the lifecycle of the entire system and
// registers services to a service registry.
type DashboardNode struct {
	cliCtx   *cli.Context
	ctx      context.Context
	cancel   context.CancelFunc
	services *runtime.ServiceRegistry
	lock     sync.RWMutex
	stop     chan struct{} // Channel to wait for termination notifications.
	db       db.Database
	client   *chainclient.Client
}

// New creates a new node instance, sets up configuration options, and registers
// every required service to the node.
func New(cliCtx *cli.Context) (*DashboardNode, error) {
	if err := tracing.Setup(
		"dashboard-backend", // service name
		cliCtx.String(cmd.TracingProcessNameFlag.Name),
		cliCtx.String(cmd.TracingEndpointFlag.Name),
		cliCtx.Float64(cmd.TraceSampleFractionFlag.Name),
		cliCtx.Bool(cmd.EnableTracingFlag.Name),
	); err != nil {
		return nil, err
	}

	config.ConfigureDashboard(cliCtx)

	registry := runtime.NewServiceRegistry()

	ctx, cancel := context.WithCancel(cliCtx.Context)
	dashboard := &DashboardNode{
		cliCtx:   cliCtx,
		ctx:      ctx,
		cancel:   cancel,
		services: registry,
		stop:     make(chan struct{}),
	}

	if err := dashboard.startDB(cliCtx); err != nil {
		return nil, err
	}

	if err := dashboard.startChainClient(); err != nil {
		return nil, err
	}

	if err := dashboard.registerAggregatorService(); err != nil {
		return nil, err
	}

	if err := dashboard.registerSchedulerService(); err != nil {
		return nil, err
	}

	if err := dashboard.registerGatewayService(cliCtx); err != nil {
		return nil, err
	}

	if !cliCtx.Bool(cmd.DisableMonitoringFlag.Name) {
		if err := dashboard.registerPrometheusService(cliCtx); err != nil {
			return nil, err
		}
	}

	return dashboard, nil
}

// Start the DashboardNode and kicks off every registered service.
func (d *DashboardNode) Start() {
	d.lock.Lock()

	log.WithFields(logrus.Fields{
		"version": version.GetVersion(),
	}).Info("Starting dashboard node")

	d.services.StartAll()

	stop := d.stop
	d.lock.Unlock()

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down...")
		go d.Close()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.WithField("times", i-1).Info("Already shutting down, interrupt more to panic")
			}
		}
		panic("Panic closing the dashboard node")
	}()

	// Wait for stop channel to be closed.
	<-stop
}

// Close handles graceful shutdown of the system.
func (d *DashboardNode) Close() {
	d.lock.Lock()
	defer d.lock.Unlock()

	log.Info("Stopping dashboard node")
	d.services.StopAll()
	if err := d.db.Close(); err != nil {
		log.Errorf("Failed to close database: %v", err)
	}
	d.cancel()
	close(d.stop)
}

func (d *DashboardNode) startDB(cliCtx *cli.Context) error {
	baseDir := cliCtx.String(cmd.DataDirFlag.Name)
	dbPath := filepath.Join(baseDir, kv.DashboardDbDirName)
	clearDB := cliCtx.Bool(cmd.ClearDB.Name)
	forceClearDB := cliCtx.Bool(cmd.ForceClearDB.Name)

	log.WithField("database-path", dbPath).Info("Checking DB")

	store, err := db.NewDB(dbPath)
	if err != nil {
		return err
	}
	clearDBConfirmed := false
	if clearDB && !forceClearDB {
		actionText := "This will delete the dashboard cache stored in your data directory. " +
			"The cache will be rebuilt from the upstream nodes - do you want to proceed? (Y/N)"
		deniedText := "Cache will not be deleted. No changes have been made."
		clearDBConfirmed, err = cmd.ConfirmAction(actionText, deniedText)
		if err != nil {
			return err
		}
	}
	if clearDBConfirmed || forceClearDB {
		log.Warning("Removing database")
		if err := store.Close(); err != nil {
			return errors.Wrap(err, "could not close db prior to clearing")
		}
		if err := store.ClearDB(); err != nil {
			return errors.Wrap(err, "could not clear database")
		}
		store, err = db.NewDB(dbPath)
		if err != nil {
			return errors.Wrap(err, "could not create new database")
		}
	}

	d.db = store
	return nil
}

func (d *DashboardNode) startChainClient() error {
	cfg := config.Get()
	urls, err := d.resolveUpstreamURLs(cfg.UpstreamURLs)
	if err != nil {
		return errors.Wrap(err, "could not resolve upstream URLs")
	}
	client, err := chainclient.NewClient(urls, chainclient.WithTimeout(cfg.APITimeout))
	if err != nil {
		return errors.Wrap(err, "could not create chain client")
	}
	if cfg.DiscoverUpstreams {
		discovered, err := client.DiscoverURLs(d.ctx)
		if err != nil {
			log.WithError(err).Warn("Could not discover additional upstream URLs")
		} else {
			client.AddBaseURLs(discovered)
		}
	}
	d.client = client
	return nil
}

// resolveUpstreamURLs expands the configured upstream entries. An entry may
// be a path to a YAML file, or an HTTP URL ending in .json serving a JSON
// document, either one holding a list of base URLs. Any other entry is taken
// as a base URL itself.
func (d *DashboardNode) resolveUpstreamURLs(entries []string) ([]string, error) {
	urls := make([]string, 0, len(entries))
	for _, entry := range entries {
		switch {
		case strings.HasPrefix(entry, "http://") || strings.HasPrefix(entry, "https://"):
			if filepath.Ext(entry) != ".json" {
				urls = append(urls, entry)
				continue
			}
			remoteURLs := make([]string, 0)
			if err := config.UnmarshalFromURL(d.ctx, entry, &remoteURLs); err != nil {
				return nil, err
			}
			urls = append(urls, remoteURLs...)
		case filepath.Ext(entry) == ".yaml" || filepath.Ext(entry) == ".yml":
			fileURLs := make([]string, 0)
			if err := config.UnmarshalFromFile(d.ctx, entry, &fileURLs); err != nil {
				return nil, err
			}
			urls = append(urls, fileURLs...)
		default:
			urls = append(urls, entry)
		}
	}
	return urls, nil
}

func (d *DashboardNode) registerAggregatorService() error {
	svc := aggregator.NewService(d.ctx, &aggregator.Config{
		Client:   d.client,
		Database: d.db,
	})
	return d.services.RegisterService(svc)
}

func (d *DashboardNode) registerSchedulerService() error {
	var agg *aggregator.Service
	if err := d.services.FetchService(&agg); err != nil {
		return err
	}
	cfg := config.Get()
	svc := scheduler.NewService(d.ctx, &scheduler.Config{
		Aggregator:           agg,
		CurrentInterval:      cfg.PollCurrentEpochInterval,
		HealthInterval:       cfg.PollNodeHealthInterval,
		JailInterval:         cfg.PollJailStatusInterval,
		RewardsInterval:      cfg.PollRewardsInterval,
		WarmKeysInterval:     cfg.PollWarmKeysInterval,
		HardwareInterval:     cfg.PollHardwareNodesInterval,
		TotalRewardsInterval: cfg.PollEpochTotalRewardsInterval,
	})
	return d.services.RegisterService(svc)
}

func (d *DashboardNode) registerGatewayService(cliCtx *cli.Context) error {
	var agg *aggregator.Service
	if err := d.services.FetchService(&agg); err != nil {
		return err
	}
	svc := gateway.NewService(d.ctx, &gateway.Config{
		Host:           cliCtx.String(cmd.HTTPHost.Name),
		Port:           cliCtx.Int(cmd.HTTPPort.Name),
		AllowedOrigins: config.SplitURLs(config.Get().AllowedOrigin),
		Aggregator:     agg,
	})
	return d.services.RegisterService(svc)
}

func (d *DashboardNode) registerPrometheusService(cliCtx *cli.Context) error {
	service := prometheus.NewService(
		fmt.Sprintf("%s:%d", cliCtx.String(cmd.MonitoringHostFlag.Name), cliCtx.Int(cmd.MonitoringPortFlag.Name)),
		d.services,
	)
	hook := prometheus.NewLogrusCollector()
	logrus.AddHook(hook)
	return d.services.RegisterService(service)
}
