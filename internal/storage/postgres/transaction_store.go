package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/metrics"
	"solana-mev-decoder/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
// Recency follows the serial id, so List returns the most recently inserted rows first.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const transactionColumns = `
	signature, block_time, wallet, trade_path, platforms,
	input_token, output_token, input_amount, output_amount,
	profit_usdc, is_mev, pattern, confidence, explanation, gas_used, slot
`

// Insert adds a new record. Returns ErrDuplicateKey if the signature exists.
func (s *TransactionStore) Insert(ctx context.Context, tx *domain.MEVTransaction) (err error) {
	if tx == nil || tx.Signature == "" {
		return storage.ErrInvalidInput
	}
	done := track("insert_transaction")
	defer func() { done(err) }()

	platforms := []string(tx.Platforms)
	if platforms == nil {
		platforms = []string{}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO mev_transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		tx.Signature,
		tx.Timestamp,
		tx.Wallet,
		tx.TradePath,
		platforms,
		tx.InputToken,
		tx.OutputToken,
		tx.InputAmount,
		tx.OutputAmount,
		tx.ProfitUSDC,
		tx.IsMEV,
		string(tx.Pattern),
		tx.Confidence,
		tx.Explanation,
		tx.GasUsed,
		tx.Slot,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetBySignature retrieves one record. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetBySignature(ctx context.Context, signature string) (*domain.MEVTransaction, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM mev_transactions
		WHERE signature = $1
	`, signature)

	tx, err := scanTransaction(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// Exists reports whether a signature has already been analyzed.
func (s *TransactionStore) Exists(ctx context.Context, signature string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM mev_transactions WHERE signature = $1)
	`, signature).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}
	return exists, nil
}

// List returns matching records, most recently inserted first.
func (s *TransactionStore) List(ctx context.Context, filter storage.TransactionFilter) (result []*domain.MEVTransaction, err error) {
	done := track("list_transactions")
	defer func() { done(err) }()

	query, args := buildListQuery(filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	result = make([]*domain.MEVTransaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

// buildListQuery renders the filter as positional-parameter SQL.
func buildListQuery(filter storage.TransactionFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.IsMEV != nil {
		add("is_mev = $%d", *filter.IsMEV)
	}
	if filter.Pattern != domain.PatternNone {
		add("pattern = $%d", string(filter.Pattern))
	}
	if filter.MinProfit != nil {
		add("profit_usdc >= $%d", *filter.MinProfit)
	}
	if filter.Wallet != "" {
		add("wallet = $%d", filter.Wallet)
	}

	var b strings.Builder
	b.WriteString("SELECT " + transactionColumns + " FROM mev_transactions")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY id DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

// Count returns the number of stored records.
func (s *TransactionStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM mev_transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

// Stats summarizes every stored record.
// Profit is summed as NUMERIC so the total matches the in-memory decimal sum.
func (s *TransactionStore) Stats(ctx context.Context) (stats *domain.Stats, err error) {
	done := track("stats")
	defer func() { done(err) }()

	var (
		total  int
		mev    int
		profit string
	)
	err = s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_mev),
			COALESCE(SUM(profit_usdc::numeric) FILTER (WHERE is_mev), 0)::text
		FROM mev_transactions
	`).Scan(&total, &mev, &profit)
	if err != nil {
		return nil, fmt.Errorf("query stats totals: %w", err)
	}

	totalProfit, err := decimal.NewFromString(profit)
	if err != nil {
		return nil, fmt.Errorf("parse profit sum %q: %w", profit, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT pattern, COUNT(*)
		FROM mev_transactions
		WHERE is_mev AND pattern <> ''
		GROUP BY pattern
	`)
	if err != nil {
		return nil, fmt.Errorf("query stats patterns: %w", err)
	}
	defer rows.Close()

	patterns := make(map[domain.MEVPattern]int)
	for rows.Next() {
		var (
			pattern string
			count   int
		)
		if err := rows.Scan(&pattern, &count); err != nil {
			return nil, fmt.Errorf("scan pattern row: %w", err)
		}
		patterns[domain.MEVPattern(pattern)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return metrics.FinalizeStats(total, mev, totalProfit, patterns), nil
}

func scanTransaction(row pgx.Row) (*domain.MEVTransaction, error) {
	var (
		tx        domain.MEVTransaction
		platforms []string
		pattern   string
	)
	err := row.Scan(
		&tx.Signature,
		&tx.Timestamp,
		&tx.Wallet,
		&tx.TradePath,
		&platforms,
		&tx.InputToken,
		&tx.OutputToken,
		&tx.InputAmount,
		&tx.OutputAmount,
		&tx.ProfitUSDC,
		&tx.IsMEV,
		&pattern,
		&tx.Confidence,
		&tx.Explanation,
		&tx.GasUsed,
		&tx.Slot,
	)
	if err != nil {
		return nil, err
	}
	tx.Timestamp = tx.Timestamp.UTC()
	tx.Platforms = domain.PlatformSet(platforms)
	tx.Pattern = domain.MEVPattern(pattern)
	return &tx, nil
}
