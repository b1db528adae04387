// Package main runs the MEV decoder service: HTTP API, websocket feed,
// background monitor, price refresh and config hot reload.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-mev-decoder/internal/api"
	"solana-mev-decoder/internal/config"
	"solana-mev-decoder/internal/decoder"
	"solana-mev-decoder/internal/logging"
	"solana-mev-decoder/internal/metrics"
	"solana-mev-decoder/internal/monitor"
	"solana-mev-decoder/internal/notify"
	"solana-mev-decoder/internal/observability"
	"solana-mev-decoder/internal/pipeline"
	"solana-mev-decoder/internal/pricing"
	"solana-mev-decoder/internal/registry"
	"solana-mev-decoder/internal/solana"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ./config.yaml or ./config/config.yaml)")
	flag.Parse()

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if file := loader.ConfigFile(); file != "" {
		logger.WithField("file", file).Info("config loaded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go handleSignals(logger, cancel, done, cfg.Server.ShutdownTimeout)

	err = run(ctx, cfg, loader, logger)
	close(done)
	if err != nil {
		logger.WithError(err).Error("server exited with error")
		closeLog()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// handleSignals cancels ctx on the first signal and forces exit on the second
// or when graceful shutdown takes longer than grace.
func handleSignals(log logrus.FieldLogger, cancel context.CancelFunc, done <-chan struct{}, grace time.Duration) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("initiating graceful shutdown")
		cancel()
	case <-done:
		return
	}

	if grace <= 0 {
		grace = 10 * time.Second
	}
	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Warn("second signal, forcing immediate shutdown")
		os.Exit(1)
	case <-time.After(grace + 5*time.Second):
		log.Warn("graceful shutdown timed out, forcing exit")
		os.Exit(1)
	case <-done:
	}
}

func run(ctx context.Context, cfg *config.Config, loader *config.Loader, logger *logrus.Logger) error {
	tables, err := registry.FromConfig(cfg.Registry)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}

	stores, cleanup, err := createStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	rpc := newRPCClient(cfg.RPC)

	book := pricing.NewBook(tables, pricing.NewJupiterClient(cfg.Pricing.JupiterURL, cfg.RPC.Timeout), logger)
	book.SetOverrides(cfg.Pricing.PriceOverrides())

	var publisher notify.Publisher = notify.Nop{}
	if cfg.NATS.URL != "" {
		p, err := notify.NewNATSPublisher(cfg.NATS, logger)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		publisher = p
	}
	defer publisher.Close()

	processor := pipeline.NewProcessor(rpc, decoder.New(tables), book, logger,
		pipeline.WithVerdictStore(stores.verdicts),
		pipeline.WithPublisher(publisher),
	)

	var logs solana.WSClient
	if cfg.Monitor.Source == config.SourceLogs {
		lc := solana.NewLogsClient(cfg.RPC.WSURL, nil)
		defer lc.Close()
		logs = lc
	}

	mon := monitor.New(monitor.Options{
		RPC:            rpc,
		Logs:           logs,
		Processor:      processor,
		History:        stores.history,
		Cursors:        stores.cursors,
		Programs:       tables.MonitoredPrograms(),
		Source:         cfg.Monitor.Source,
		SignatureLimit: cfg.Monitor.SignatureLimit,
		MaxPerCycle:    cfg.Monitor.MaxPerCycle,
		Workers:        cfg.Pipeline.Workers,
		Interval:       cfg.Monitor.Interval,
		ErrorBackoff:   cfg.Monitor.ErrorBackoff,
		Logger:         logger,
	})
	defer mon.Stop()

	g, gctx := errgroup.WithContext(ctx)

	srv := api.NewServer(api.Options{
		History:        stores.history,
		Analyzer:       processor,
		Monitor:        mon,
		Patterns:       metrics.NewAggregator(stores.verdicts),
		BaseContext:    gctx,
		CORSOrigins:    cfg.Server.CORSOrigins,
		FeedInterval:   cfg.Server.FeedInterval,
		Logger:         logger,
		RecoveryWriter: logger.WriterLevel(logrus.ErrorLevel),
	})
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	loader.Watch(logger, func(next *config.Config) {
		book.SetOverrides(next.Pricing.PriceOverrides())
		if level, err := logrus.ParseLevel(next.Log.Level); err == nil {
			logger.SetLevel(level)
		}
	})

	g.Go(func() error {
		logger.WithField("addr", cfg.Server.Addr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		mon.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("server forced to shutdown")
		}
		return nil
	})

	if cfg.Pricing.RefreshInterval > 0 {
		g.Go(func() error {
			book.Run(gctx, cfg.Pricing.RefreshInterval)
			return nil
		})
	}

	if cfg.Monitor.Autostart {
		mon.Start(gctx)
	}
	observability.UpdateHistorySize(historySize(gctx, stores))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newRPCClient(cfg config.RPCConfig) *solana.HTTPClient {
	return solana.NewHTTPClient(cfg.URL,
		solana.WithTimeout(cfg.Timeout),
		solana.WithMaxRetries(cfg.MaxRetries),
		solana.WithRetryDelay(cfg.RetryDelay),
		solana.WithCommitment(cfg.Commitment),
		solana.WithObserver(func(method string, elapsed time.Duration, err error) {
			observability.RecordRPCCall(method, elapsed.Seconds(), err)
		}),
	)
}
