// Package main applies the embedded schema migrations to postgres and ClickHouse.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"solana-mev-decoder/internal/config"
	"solana-mev-decoder/internal/logging"
	"solana-mev-decoder/internal/storage/migrations"
	pgstore "solana-mev-decoder/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall timeout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickhouseDSN = *clickhouseDSN
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if cfg.Storage.PostgresDSN == "" && cfg.Storage.ClickhouseDSN == "" {
		logger.Fatal("nothing to migrate: set storage.postgres_dsn and/or storage.clickhouse_dsn")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg.Storage, logger); err != nil {
		logger.WithError(err).Error("migration failed")
		closeLog()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.StorageConfig, log logrus.FieldLogger) error {
	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}
		log.Info("postgres migrations applied")
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return err
		}
		if err := conn.Close(); err != nil {
			log.WithError(err).Warn("close clickhouse")
		}
		log.Info("clickhouse migrations applied")
	}
	return nil
}
