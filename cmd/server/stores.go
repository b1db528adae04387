package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-mev-decoder/internal/config"
	"solana-mev-decoder/internal/storage"
	chstore "solana-mev-decoder/internal/storage/clickhouse"
	"solana-mev-decoder/internal/storage/memory"
	"solana-mev-decoder/internal/storage/migrations"
	pgstore "solana-mev-decoder/internal/storage/postgres"
)

// stores holds the storage implementations the service runs on.
type stores struct {
	history  storage.TransactionStore
	cursors  storage.CursorStore
	verdicts storage.VerdictStore
}

// createStores opens the configured backends and applies their migrations.
// The returned cleanup closes them.
func createStores(ctx context.Context, cfg config.StorageConfig, log logrus.FieldLogger) (*stores, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	s := &stores{}
	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		s.history = pgstore.NewTransactionStore(pool)
		s.cursors = pgstore.NewCursorStore(pool)
		log.Info("using postgres transaction history")
	default:
		s.history = memory.NewTransactionStore(cfg.HistorySize)
		s.cursors = memory.NewCursorStore()
		log.WithField("capacity", cfg.HistorySize).Info("using in-memory transaction history")
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		closers = append(closers, func() {
			if err := conn.Close(); err != nil {
				log.WithError(err).Warn("close clickhouse")
			}
		})
		s.verdicts = chstore.NewVerdictStore(conn)
		log.Info("recording verdicts in clickhouse")
	} else {
		s.verdicts = memory.NewVerdictStore()
	}

	return s, cleanup, nil
}

// historySize returns the history size, or 0 when it cannot be read.
func historySize(ctx context.Context, s *stores) int {
	n, err := s.history.Count(ctx)
	if err != nil {
		return 0
	}
	return n
}
