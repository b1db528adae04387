package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/solana"
	"solana-mev-decoder/internal/solana/stub"
	"solana-mev-decoder/internal/storage"
	"solana-mev-decoder/internal/storage/memory"
)

const (
	programA = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	programB = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
)

// fakeProcessor returns a minimal record for every signature not listed in fail.
type fakeProcessor struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (p *fakeProcessor) Process(_ context.Context, sig string) (*domain.MEVTransaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, sig)
	if p.fail[sig] {
		return nil, errors.New("not found")
	}
	return &domain.MEVTransaction{Signature: sig, Timestamp: time.Unix(1717000000, 0).UTC()}, nil
}

func (p *fakeProcessor) ProcessBatch(ctx context.Context, sigs []string, _ int) ([]*domain.MEVTransaction, error) {
	var out []*domain.MEVTransaction
	for _, s := range sigs {
		tx, err := p.Process(ctx, s)
		if err != nil {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (p *fakeProcessor) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func signatures(t *testing.T, store storage.TransactionStore) []string {
	t.Helper()
	txs, err := store.List(context.Background(), storage.TransactionFilter{})
	require.NoError(t, err)
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.Signature
	}
	return out
}

func newTestMonitor(rpc solana.RPCClient, proc Processor, history storage.TransactionStore, cursors storage.CursorStore, limit, maxPerCycle int) *Monitor {
	log, _ := test.NewNullLogger()
	return New(Options{
		RPC:            rpc,
		Processor:      proc,
		History:        history,
		Cursors:        cursors,
		Programs:       []string{programA, programB},
		SignatureLimit: limit,
		MaxPerCycle:    maxPerCycle,
		Interval:       10 * time.Millisecond,
		ErrorBackoff:   10 * time.Millisecond,
		Logger:         log,
	})
}

func TestRunCycle_CollectsDedupsAndPrepends(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddSignatures(programA, "s1", "s2", "s3")
	rpc.AddSignatures(programB, "s2", "s4")

	proc := &fakeProcessor{}
	history := memory.NewTransactionStore(memory.DefaultCapacity)
	m := newTestMonitor(rpc, proc, history, nil, 4, 10)

	require.NoError(t, m.RunCycle(context.Background()))

	assert.Equal(t, []string{"s1", "s2", "s4"}, proc.Calls())
	assert.Equal(t, []string{"s4", "s2", "s1"}, signatures(t, history))
}

func TestRunCycle_SkipsSeenAndCapsPerCycle(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddSignatures(programA, "s1", "s2", "s3", "s5")
	rpc.AddSignatures(programB, "s4")

	history := memory.NewTransactionStore(memory.DefaultCapacity)
	require.NoError(t, history.Insert(context.Background(), &domain.MEVTransaction{Signature: "s1"}))

	proc := &fakeProcessor{}
	m := newTestMonitor(rpc, proc, history, nil, 50, 2)

	require.NoError(t, m.RunCycle(context.Background()))
	assert.Equal(t, []string{"s2", "s3"}, proc.Calls())

	require.NoError(t, m.RunCycle(context.Background()))
	assert.Equal(t, []string{"s2", "s3", "s5", "s4"}, proc.Calls())
}

func TestRunCycle_FailedAnalysisIsSkipped(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddSignatures(programA, "s1", "s2")

	history := memory.NewTransactionStore(memory.DefaultCapacity)
	proc := &fakeProcessor{fail: map[string]bool{"s1": true}}
	m := newTestMonitor(rpc, proc, history, nil, 50, 10)

	require.NoError(t, m.RunCycle(context.Background()))
	assert.Equal(t, []string{"s2"}, signatures(t, history))
}

func TestRunCycle_CursorAdvancesOnlyWithoutBacklog(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddSignatures(programA, "a2", "a1")
	rpc.AddSignatures(programB, "b2", "b1")

	ctx := context.Background()
	cursors := memory.NewCursorStore()
	history := memory.NewTransactionStore(memory.DefaultCapacity)
	proc := &fakeProcessor{}
	m := newTestMonitor(rpc, proc, history, cursors, 50, 3)

	require.NoError(t, m.RunCycle(ctx))

	c, err := cursors.Get(ctx, programA)
	require.NoError(t, err)
	assert.Equal(t, "a2", c.Signature)

	_, err = cursors.Get(ctx, programB)
	assert.ErrorIs(t, err, storage.ErrNotFound, "program B still has a backlog")

	require.NoError(t, m.RunCycle(ctx))
	assert.Equal(t, []string{"a2", "a1", "b2", "b1"}, proc.Calls())

	c, err = cursors.Get(ctx, programB)
	require.NoError(t, err)
	assert.Equal(t, "b2", c.Signature)
}

func TestRunCycle_CursorLimitsFetch(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddSignatures(programA, "a3", "a2", "a1")

	ctx := context.Background()
	cursors := memory.NewCursorStore()
	require.NoError(t, cursors.Set(ctx, &storage.MonitorCursor{Program: programA, Signature: "a2"}))

	proc := &fakeProcessor{}
	m := newTestMonitor(rpc, proc, memory.NewTransactionStore(memory.DefaultCapacity), cursors, 50, 10)

	require.NoError(t, m.RunCycle(ctx))
	assert.Equal(t, []string{"a3"}, proc.Calls())
}

func TestRunCycle_FetchErrors(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Err = errors.New("node unavailable")

	m := newTestMonitor(rpc, &fakeProcessor{}, memory.NewTransactionStore(memory.DefaultCapacity), nil, 50, 10)

	err := m.RunCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, rpc.Err)
}

func TestMonitor_StartStop(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddSignatures(programA, "s1")

	history := memory.NewTransactionStore(memory.DefaultCapacity)
	m := newTestMonitor(rpc, &fakeProcessor{}, history, nil, 50, 10)

	ctx := context.Background()
	require.True(t, m.Start(ctx))
	assert.False(t, m.Start(ctx), "second start reports already monitoring")

	require.Eventually(t, func() bool {
		n, _ := history.Count(ctx)
		return n == 1
	}, time.Second, 5*time.Millisecond)

	status, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, Status{IsMonitoring: true, RecentTransactionCount: 1}, status)

	m.Stop()
	assert.False(t, m.Running())
	m.Stop()

	require.True(t, m.Start(ctx), "restart after stop")
	m.Stop()
}

func TestMonitor_StopsWithParentContext(t *testing.T) {
	m := newTestMonitor(stub.NewRPCClient(), &fakeProcessor{}, memory.NewTransactionStore(memory.DefaultCapacity), nil, 50, 10)

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, m.Start(ctx))
	cancel()

	require.Eventually(t, func() bool { return !m.Running() }, time.Second, 5*time.Millisecond)
}

type fakeLogs struct {
	ch     chan solana.LogNotification
	filter solana.LogsFilter
}

func (f *fakeLogs) SubscribeLogs(_ context.Context, filter solana.LogsFilter) (<-chan solana.LogNotification, error) {
	f.filter = filter
	return f.ch, nil
}

func (f *fakeLogs) Close() error { return nil }

func TestMonitor_LogsSource(t *testing.T) {
	logs := &fakeLogs{ch: make(chan solana.LogNotification, 4)}
	logs.ch <- solana.LogNotification{Signature: "s1"}
	logs.ch <- solana.LogNotification{Signature: "s2", Err: map[string]interface{}{"InstructionError": 1}}
	logs.ch <- solana.LogNotification{Signature: "s1"}
	logs.ch <- solana.LogNotification{Signature: "s3"}

	history := memory.NewTransactionStore(memory.DefaultCapacity)
	proc := &fakeProcessor{}
	m := New(Options{
		Logs:      logs,
		Processor: proc,
		History:   history,
		Programs:  []string{programA},
		Source:    SourceLogs,
		Logger:    logrus.New(),
	})

	ctx := context.Background()
	require.True(t, m.Start(ctx))
	require.Eventually(t, func() bool {
		n, _ := history.Count(ctx)
		return n == 2
	}, time.Second, 5*time.Millisecond)
	m.Stop()

	assert.Equal(t, []string{programA}, logs.filter.Mentions)
	assert.Equal(t, []string{"s1", "s3"}, proc.Calls())
	assert.Equal(t, []string{"s3", "s1"}, signatures(t, history))
}
