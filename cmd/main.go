// Command gavsync keeps a local view of the gavcoin token contract and the
// node's accounts synchronized block by block and serves it over HTTP.
//
// Usage:
//
//	gavsync --config config.yaml
//	gavsync --rpc ws://127.0.0.1:8546 (uses CLI arguments)
//	gavsync --setup (interactive wizard writing config.gen.yaml)
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/gavsync/config"
	"github.com/vadiminshakov/gavsync/internal/clients"
	"github.com/vadiminshakov/gavsync/internal/contracts"
	"github.com/vadiminshakov/gavsync/internal/domain"
	"github.com/vadiminshakov/gavsync/internal/logging"
	"github.com/vadiminshakov/gavsync/internal/metrics"
	"github.com/vadiminshakov/gavsync/internal/services/accounts"
	"github.com/vadiminshakov/gavsync/internal/services/actions"
	"github.com/vadiminshakov/gavsync/internal/services/lifecycle"
	"github.com/vadiminshakov/gavsync/internal/services/resolver"
	"github.com/vadiminshakov/gavsync/internal/services/syncer"
	"github.com/vadiminshakov/gavsync/internal/setup"
	"github.com/vadiminshakov/gavsync/internal/state"
	"github.com/vadiminshakov/gavsync/internal/storage/snapshots"
	"github.com/vadiminshakov/gavsync/internal/web"
)

const defaultRetryBackoff = 200 * time.Millisecond

func main() {
	conf, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	if conf.Setup {
		if err := setup.RunTUI(setup.DefaultPath); err != nil {
			log.Fatal(err)
		}
		return
	}

	logger, err := logging.New(conf.Log.Level, conf.Log.File)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("gavsync stopped", zap.Error(err))
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("gavsync stopped")
}

func run(ctx context.Context, conf config.Config, logger *zap.Logger) error {
	clientOpts := []clients.Option{clients.WithPollInterval(conf.Sync.PollInterval)}
	if conf.RegistryAddress != nil {
		clientOpts = append(clientOpts, clients.WithRegistryAddress(*conf.RegistryAddress))
	}
	client, err := clients.DialEthClient(ctx, conf.RPCURL, logger.With(zap.String("component", "client")), clientOpts...)
	if err != nil {
		return err
	}
	defer client.Close()

	var identities accounts.IdentityStore = client
	if conf.Accounts.Source == config.SourceKeystore {
		identities = accounts.NewKeystoreDir(conf.Accounts.KeystoreDir, conf.Accounts.Labels)
	}

	history, err := snapshots.NewWALStore(conf.WALDir)
	if err != nil {
		return err
	}
	defer history.Close()

	store := state.NewStore(logger.With(zap.String("component", "state")),
		state.WithOrdering(conf.Sync.Ordering),
		state.WithRecorder(history),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	syncMetrics := metrics.NewSync(reg)

	syncLogger := logger.With(zap.String("component", "syncer"))
	manager := lifecycle.NewManager(
		logger.With(zap.String("component", "lifecycle")),
		conf.ContractName,
		resolver.NewResolver(logger.With(zap.String("component", "resolver")), client, client, contracts.GavcoinABI),
		accounts.NewRegistry(logger.With(zap.String("component", "accounts")), identities),
		store,
		client,
		func(binding *contracts.Binding) lifecycle.BlockHandler {
			return syncer.NewEngine(syncLogger, binding, client, store,
				syncer.WithMetrics(syncMetrics),
				syncer.WithReadRetries(conf.Sync.ReadRetries, defaultRetryBackoff),
				syncer.WithReadTimeout(conf.Sync.ReadTimeout),
			)
		},
	)

	server := web.NewServer(logger.With(zap.String("component", "web")), conf.WebAddr,
		store, history, actions.NewMachine(logger.With(zap.String("component", "actions"))), reg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		err := manager.Run(gctx)
		var terr *domain.TransportError
		if err == nil || errors.Is(err, context.Canceled) || errors.As(err, &terr) {
			return err
		}
		// startup failed, keep serving the loading snapshot until shutdown
		<-gctx.Done()
		return nil
	})

	logger.Info("started",
		zap.String("rpc", conf.RPCURL),
		zap.String("contract", conf.ContractName),
		zap.String("accounts", conf.Accounts.Source),
		zap.Stringer("ordering", store.Ordering()),
		zap.String("web", conf.WebAddr))

	return g.Wait()
}
