// Package main decodes and classifies transactions from a file, stdin or the
// RPC node and prints the analyzed records as JSON.
//
// Usage:
//
//	decode -file tx.json
//	cat tx.json | decode -file -
//	decode -sig <signature>[,<signature>...] [-workers 4]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"solana-mev-decoder/internal/config"
	"solana-mev-decoder/internal/decoder"
	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/logging"
	"solana-mev-decoder/internal/pipeline"
	"solana-mev-decoder/internal/pricing"
	"solana-mev-decoder/internal/registry"
	"solana-mev-decoder/internal/solana"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	file := flag.String("file", "", "getTransaction result to decode (jsonParsed); - reads stdin")
	sigs := flag.String("sig", "", "Comma-separated signatures to fetch from the RPC node")
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint (overrides config)")
	workers := flag.Int("workers", 0, "Concurrent fetches for -sig (default: pipeline.workers)")
	live := flag.Bool("live-prices", false, "Refresh prices from Jupiter before analyzing")
	flag.Parse()

	if (*file == "") == (*sigs == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -file or -sig is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *rpcEndpoint != "" {
		cfg.RPC.URL = *rpcEndpoint
	}
	if *workers <= 0 {
		*workers = cfg.Pipeline.Workers
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetOutput(os.Stderr)
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger, *file, *sigs, *workers, *live); err != nil {
		logger.WithError(err).Error("decode failed")
		closeLog()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger, file, sigs string, workers int, live bool) error {
	tables, err := registry.FromConfig(cfg.Registry)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}

	book := pricing.NewBook(tables, pricing.NewJupiterClient(cfg.Pricing.JupiterURL, cfg.RPC.Timeout), logger)
	book.SetOverrides(cfg.Pricing.PriceOverrides())
	if live {
		if err := book.Refresh(ctx); err != nil {
			logger.WithError(err).Warn("price refresh failed, using default prices")
		}
	}

	var rpc solana.RPCClient
	if sigs != "" {
		rpc = solana.NewHTTPClient(cfg.RPC.URL,
			solana.WithTimeout(cfg.RPC.Timeout),
			solana.WithMaxRetries(cfg.RPC.MaxRetries),
			solana.WithRetryDelay(cfg.RPC.RetryDelay),
			solana.WithCommitment(cfg.RPC.Commitment),
		)
	}
	processor := pipeline.NewProcessor(rpc, decoder.New(tables), book, logger)

	var txs []*domain.MEVTransaction
	if file != "" {
		tx, err := decodeFile(ctx, processor, file)
		if err != nil {
			return err
		}
		txs = append(txs, tx)
	} else {
		list := splitSignatures(sigs)
		for _, s := range list {
			if err := solana.ValidateSignature(s); err != nil {
				return err
			}
		}
		if len(list) == 1 {
			tx, err := processor.Process(ctx, list[0])
			if err != nil {
				return err
			}
			txs = append(txs, tx)
		} else {
			txs, err = processor.ProcessBatch(ctx, list, workers)
			if err != nil {
				return err
			}
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if len(txs) == 1 {
		return enc.Encode(txs[0])
	}
	return enc.Encode(txs)
}

func decodeFile(ctx context.Context, processor *pipeline.Processor, path string) (*domain.MEVTransaction, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	raw, err := decoder.ParseRaw(data)
	if err != nil {
		return nil, err
	}
	tx, err := processor.ProcessRaw(ctx, "", raw)
	if errors.Is(err, pipeline.ErrNotDecodable) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tx, err
}

func splitSignatures(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
