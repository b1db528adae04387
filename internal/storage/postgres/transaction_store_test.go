package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/storage"
)

func makeTransaction(sig string, isMEV bool, pattern domain.MEVPattern, profit float64) *domain.MEVTransaction {
	return &domain.MEVTransaction{
		Signature:    sig,
		Timestamp:    time.Date(2024, 5, 29, 16, 26, 40, 0, time.UTC),
		Wallet:       "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
		TradePath:    "SOL → USDC",
		Platforms:    domain.PlatformSet{"Jupiter V6", "Raydium AMM"},
		InputToken:   "SOL",
		OutputToken:  "USDC",
		InputAmount:  1,
		OutputAmount: 100.5,
		ProfitUSDC:   profit,
		IsMEV:        isMEV,
		Pattern:      pattern,
		Confidence:   0.8,
		Explanation:  "test",
		GasUsed:      5000,
		Slot:         268123456,
	}
}

func TestTransactionStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransactionStore(pool)

	tx := makeTransaction("sig1", true, domain.PatternArbitrage, 0.5)
	require.NoError(t, store.Insert(ctx, tx))

	got, err := store.GetBySignature(ctx, "sig1")
	require.NoError(t, err)
	assert.Equal(t, tx, got)
}

func TestTransactionStore_NonMEVPatternRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransactionStore(pool)

	tx := makeTransaction("benign", false, domain.PatternNone, 0)
	tx.Platforms = nil
	require.NoError(t, store.Insert(ctx, tx))

	got, err := store.GetBySignature(ctx, "benign")
	require.NoError(t, err)
	assert.Equal(t, domain.PatternNone, got.Pattern)
	assert.Empty(t, got.Platforms)
}

func TestTransactionStore_DuplicateAndNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransactionStore(pool)

	tx := makeTransaction("sig1", false, domain.PatternNone, 0)
	require.NoError(t, store.Insert(ctx, tx))
	assert.ErrorIs(t, store.Insert(ctx, tx), storage.ErrDuplicateKey)

	_, err := store.GetBySignature(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	exists, err := store.Exists(ctx, "sig1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTransactionStore_ListFilters(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransactionStore(pool)

	txs := []*domain.MEVTransaction{
		makeTransaction("benign", false, domain.PatternNone, 0.001),
		makeTransaction("arb", true, domain.PatternArbitrage, 0.5),
		makeTransaction("sandwich", true, domain.PatternSandwich, 2.0),
	}
	txs[2].Wallet = "whale"
	for _, tx := range txs {
		require.NoError(t, store.Insert(ctx, tx))
	}

	signatures := func(list []*domain.MEVTransaction) []string {
		out := make([]string, len(list))
		for i, tx := range list {
			out[i] = tx.Signature
		}
		return out
	}

	all, err := store.List(ctx, storage.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"sandwich", "arb", "benign"}, signatures(all))

	limited, err := store.List(ctx, storage.TransactionFilter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"sandwich"}, signatures(limited))

	mev, err := store.List(ctx, storage.TransactionFilter{IsMEV: pointer.ToBool(true), MinProfit: pointer.ToFloat64(0.5)})
	require.NoError(t, err)
	assert.Equal(t, []string{"sandwich", "arb"}, signatures(mev))

	byPattern, err := store.List(ctx, storage.TransactionFilter{Pattern: domain.PatternArbitrage})
	require.NoError(t, err)
	assert.Equal(t, []string{"arb"}, signatures(byPattern))

	byWallet, err := store.List(ctx, storage.TransactionFilter{Wallet: "whale"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sandwich"}, signatures(byWallet))
}

func TestTransactionStore_Stats(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransactionStore(pool)

	empty, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalTransactions)
	assert.Empty(t, empty.Patterns)

	profits := []float64{0.5, 0.25, 0.11111}
	for i, p := range profits {
		require.NoError(t, store.Insert(ctx, makeTransaction(fmt.Sprintf("mev%d", i), true, domain.PatternArbitrage, p)))
	}
	require.NoError(t, store.Insert(ctx, makeTransaction("benign", false, domain.PatternNone, 3)))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalTransactions)
	assert.Equal(t, 3, stats.MEVTransactions)
	assert.Equal(t, 75.0, stats.MEVPercentage)
	assert.Equal(t, 0.8611, stats.TotalProfit)
	assert.Equal(t, 0.287, stats.AvgProfit)
	assert.Equal(t, map[domain.MEVPattern]int{domain.PatternArbitrage: 3}, stats.Patterns)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestBuildListQuery(t *testing.T) {
	query, args := buildListQuery(storage.TransactionFilter{
		Limit:     10,
		IsMEV:     pointer.ToBool(true),
		Pattern:   domain.PatternBackrun,
		MinProfit: pointer.ToFloat64(0.1),
		Wallet:    "w",
	})

	assert.Contains(t, query, "WHERE is_mev = $1 AND pattern = $2 AND profit_usdc >= $3 AND wallet = $4")
	assert.Contains(t, query, "ORDER BY id DESC LIMIT $5")
	assert.Equal(t, []any{true, "backrun", 0.1, "w", 10}, args)

	query, args = buildListQuery(storage.TransactionFilter{})
	assert.NotContains(t, query, "WHERE")
	assert.NotContains(t, query, "LIMIT")
	assert.Empty(t, args)
}
