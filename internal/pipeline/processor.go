// Package pipeline turns transaction signatures into stored MEV verdicts:
// fetch, decode, price, analyze, then fan out to the analytics sink and event bus.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-mev-decoder/internal/decoder"
	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/mev"
	"solana-mev-decoder/internal/notify"
	"solana-mev-decoder/internal/observability"
	"solana-mev-decoder/internal/solana"
	"solana-mev-decoder/internal/storage"
)

// Pipeline errors.
var (
	// ErrTransactionNotFound is returned when the node has no record of the signature.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrNotDecodable is returned when the record lacks a transaction body.
	ErrNotDecodable = errors.New("transaction not decodable")
)

// PriceSource supplies the price table for one analysis. *pricing.Book satisfies it.
type PriceSource interface {
	Snapshot() domain.PriceTable
}

// StaticPrices is a fixed PriceSource.
type StaticPrices domain.PriceTable

// Snapshot returns the fixed table.
func (s StaticPrices) Snapshot() domain.PriceTable { return domain.PriceTable(s) }

// Processor analyzes transactions. Safe for concurrent use.
type Processor struct {
	rpc       solana.RPCClient
	decoder   *decoder.Decoder
	analyzer  *mev.Analyzer
	prices    PriceSource
	verdicts  storage.VerdictStore // optional
	publisher notify.Publisher
	log       logrus.FieldLogger
	clock     func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithVerdictStore records every verdict in the analytics sink.
func WithVerdictStore(s storage.VerdictStore) Option {
	return func(p *Processor) { p.verdicts = s }
}

// WithPublisher publishes MEV verdicts.
func WithPublisher(pub notify.Publisher) Option {
	return func(p *Processor) { p.publisher = pub }
}

// WithClock sets the clock used when a block time is missing.
func WithClock(clock func() time.Time) Option {
	return func(p *Processor) { p.clock = clock }
}

// NewProcessor creates a processor. rpc may be nil for offline use through ProcessRaw.
func NewProcessor(rpc solana.RPCClient, dec *decoder.Decoder, prices PriceSource, log logrus.FieldLogger, opts ...Option) *Processor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	p := &Processor{
		rpc:       rpc,
		decoder:   dec,
		analyzer:  mev.NewAnalyzer(),
		prices:    prices,
		publisher: notify.Nop{},
		log:       log.WithField("component", "pipeline"),
		clock:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process fetches and analyzes one signature.
func (p *Processor) Process(ctx context.Context, signature string) (*domain.MEVTransaction, error) {
	if p.rpc == nil {
		return nil, errors.New("pipeline: no RPC client configured")
	}

	raw, err := p.rpc.GetTransaction(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", signature, err)
	}
	if raw == nil {
		return nil, ErrTransactionNotFound
	}
	return p.ProcessRaw(ctx, signature, raw)
}

// ProcessRaw analyzes an already fetched record. An empty signature is taken
// from the record itself.
func (p *Processor) ProcessRaw(ctx context.Context, signature string, raw *solana.ParsedTransaction) (*domain.MEVTransaction, error) {
	start := time.Now()

	decoded, ok := p.decoder.Decode(raw)
	if !ok {
		observability.RecordDecodeFailure("missing_transaction")
		return nil, ErrNotDecodable
	}
	if signature == "" && raw.Transaction != nil && len(raw.Transaction.Signatures) > 0 {
		signature = raw.Transaction.Signatures[0]
	}

	result := p.analyzer.Analyze(decoded, p.prices.Snapshot())
	tx := BuildRecord(signature, raw, decoded, result, p.clock)
	observability.RecordAnalysis(tx, time.Since(start).Seconds())

	p.emit(ctx, tx)
	return tx, nil
}

// ProcessBatch analyzes signatures with at most workers in flight. Failed
// signatures are logged and skipped; results keep input order. Only context
// cancellation is returned as an error.
func (p *Processor) ProcessBatch(ctx context.Context, signatures []string, workers int) ([]*domain.MEVTransaction, error) {
	if workers <= 0 {
		workers = 1
	}

	results := make([]*domain.MEVTransaction, len(signatures))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, sig := range signatures {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tx, err := p.Process(gctx, sig)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				p.log.WithError(err).WithField("signature", sig).Warn("skipping transaction")
				return nil
			}
			results[i] = tx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*domain.MEVTransaction, 0, len(results))
	for _, tx := range results {
		if tx != nil {
			out = append(out, tx)
		}
	}
	return out, nil
}

// emit forwards tx to the optional sinks. Sink failures never fail the analysis.
func (p *Processor) emit(ctx context.Context, tx *domain.MEVTransaction) {
	log := p.log.WithField("signature", tx.Signature)

	if p.verdicts != nil {
		if err := p.verdicts.Insert(ctx, tx); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			log.WithError(err).Warn("verdict sink insert failed")
		}
	}
	if err := p.publisher.Publish(ctx, tx); err != nil {
		log.WithError(err).Warn("event publish failed")
	}
}

// BuildRecord assembles the served record from the raw input, the decoded view and the verdict.
func BuildRecord(signature string, raw *solana.ParsedTransaction, decoded *domain.DecodedTransaction, result domain.AnalysisResult, clock func() time.Time) *domain.MEVTransaction {
	tx := &domain.MEVTransaction{
		Signature:    signature,
		Wallet:       decoded.Wallet,
		TradePath:    decoded.Path,
		Platforms:    decoded.Platforms,
		InputToken:   decoded.InputToken,
		OutputToken:  decoded.OutputToken,
		InputAmount:  decoded.InputAmount,
		OutputAmount: decoded.OutputAmount,
		ProfitUSDC:   result.ProfitUSDC,
		IsMEV:        result.IsMEV,
		Pattern:      result.Pattern,
		Confidence:   result.Confidence,
		Explanation:  result.Explanation,
		Slot:         raw.Slot,
	}
	if raw.BlockTime != nil {
		tx.Timestamp = time.Unix(*raw.BlockTime, 0).UTC()
	} else {
		tx.Timestamp = clock()
	}
	if raw.Meta != nil {
		tx.GasUsed = raw.Meta.Fee
	}
	return tx
}
