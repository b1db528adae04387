package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-mev-decoder/internal/decoder"
	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/observability"
	"solana-mev-decoder/internal/storage"
)

// VerdictStore implements storage.VerdictStore using ClickHouse.
// Rows land in mev_verdicts (ReplacingMergeTree keyed by signature).
type VerdictStore struct {
	conn *Conn
}

// NewVerdictStore creates a new VerdictStore.
func NewVerdictStore(conn *Conn) *VerdictStore {
	return &VerdictStore{conn: conn}
}

// Compile-time interface check.
var _ storage.VerdictStore = (*VerdictStore)(nil)

// Insert adds a verdict. Returns ErrDuplicateKey if the signature exists.
func (s *VerdictStore) Insert(ctx context.Context, tx *domain.MEVTransaction) error {
	if tx == nil || tx.Signature == "" {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	err := s.insert(ctx, tx)
	observability.RecordDBQuery("clickhouse", "insert_verdict", time.Since(start).Seconds(), err)
	return err
}

func (s *VerdictStore) insert(ctx context.Context, tx *domain.MEVTransaction) error {
	// ReplacingMergeTree would silently replace; keep append-only semantics.
	exists, err := s.exists(ctx, tx.Signature)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	platforms := []string(tx.Platforms)
	if platforms == nil {
		platforms = []string{}
	}

	err = s.conn.Exec(ctx, `
		INSERT INTO mev_verdicts (
			signature, slot, block_time, wallet, pattern, is_mev,
			confidence, profit_usdc, platforms, hops
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tx.Signature, uint64(max(tx.Slot, 0)), tx.Timestamp.UTC(), tx.Wallet, string(tx.Pattern), tx.IsMEV,
		tx.Confidence, tx.ProfitUSDC, platforms, uint16(decoder.CountHops(tx.TradePath)),
	)
	if err != nil {
		return fmt.Errorf("insert verdict: %w", err)
	}
	return nil
}

// PatternBreakdown aggregates MEV verdicts with block time >= since.
func (s *VerdictStore) PatternBreakdown(ctx context.Context, since time.Time) ([]storage.PatternSummary, error) {
	start := time.Now()
	rows, err := s.conn.Query(ctx, `
		SELECT pattern, count() AS cnt, sum(profit_usdc), avg(confidence)
		FROM mev_verdicts FINAL
		WHERE is_mev AND block_time >= ?
		GROUP BY pattern
		ORDER BY cnt DESC, pattern ASC
	`, since.UTC())
	if err != nil {
		observability.RecordDBQuery("clickhouse", "pattern_breakdown", time.Since(start).Seconds(), err)
		return nil, fmt.Errorf("query pattern breakdown: %w", err)
	}
	defer rows.Close()

	result, err := scanPatternSummaries(rows)
	observability.RecordDBQuery("clickhouse", "pattern_breakdown", time.Since(start).Seconds(), err)
	return result, err
}

// exists checks if a verdict with the given signature exists.
func (s *VerdictStore) exists(ctx context.Context, signature string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM mev_verdicts FINAL WHERE signature = ?
	`, signature).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanPatternSummaries(rows chRows) ([]storage.PatternSummary, error) {
	result := make([]storage.PatternSummary, 0)
	for rows.Next() {
		var (
			pattern    string
			count      uint64
			profit     float64
			confidence float64
		)
		if err := rows.Scan(&pattern, &count, &profit, &confidence); err != nil {
			return nil, fmt.Errorf("scan pattern row: %w", err)
		}
		result = append(result, storage.PatternSummary{
			Pattern:       domain.MEVPattern(pattern),
			Count:         int(count),
			TotalProfit:   profit,
			AvgConfidence: confidence,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pattern rows: %w", err)
	}
	return result, nil
}
