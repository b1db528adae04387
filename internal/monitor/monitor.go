// Package monitor polls monitored programs for new signatures and feeds them
// through the analysis pipeline into the transaction history.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/observability"
	"solana-mev-decoder/internal/solana"
	"solana-mev-decoder/internal/storage"
)

// Signature sources.
const (
	SourcePoll = "poll"
	SourceLogs = "logs"
)

// Processor analyzes signatures. *pipeline.Processor satisfies it.
type Processor interface {
	Process(ctx context.Context, signature string) (*domain.MEVTransaction, error)
	ProcessBatch(ctx context.Context, signatures []string, workers int) ([]*domain.MEVTransaction, error)
}

// Status is the externally visible monitor state.
type Status struct {
	IsMonitoring           bool `json:"is_monitoring"`
	RecentTransactionCount int  `json:"recent_transaction_count"`
}

// Options contains configuration for creating a Monitor.
type Options struct {
	RPC       solana.RPCClient
	Logs      solana.WSClient // required when Source is SourceLogs
	Processor Processor
	History   storage.TransactionStore
	Cursors   storage.CursorStore // optional

	Programs       []string
	Source         string
	SignatureLimit int           // Default: 50, split evenly across programs
	MaxPerCycle    int           // Default: 10
	Workers        int           // Default: 1
	Interval       time.Duration // Default: 5s
	ErrorBackoff   time.Duration // Default: 10s
	Logger         logrus.FieldLogger
}

// Monitor runs the background loop. Start and Stop may be called from any goroutine.
type Monitor struct {
	rpc       solana.RPCClient
	logs      solana.WSClient
	processor Processor
	history   storage.TransactionStore
	cursors   storage.CursorStore

	programs       []string
	source         string
	signatureLimit int
	maxPerCycle    int
	workers        int
	interval       time.Duration
	errorBackoff   time.Duration
	log            logrus.FieldLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped monitor.
func New(opts Options) *Monitor {
	m := &Monitor{
		rpc:            opts.RPC,
		logs:           opts.Logs,
		processor:      opts.Processor,
		history:        opts.History,
		cursors:        opts.Cursors,
		programs:       append([]string(nil), opts.Programs...),
		source:         opts.Source,
		signatureLimit: opts.SignatureLimit,
		maxPerCycle:    opts.MaxPerCycle,
		workers:        opts.Workers,
		interval:       opts.Interval,
		errorBackoff:   opts.ErrorBackoff,
		log:            opts.Logger,
	}
	if m.source == "" {
		m.source = SourcePoll
	}
	if m.signatureLimit <= 0 {
		m.signatureLimit = 50
	}
	if m.maxPerCycle <= 0 {
		m.maxPerCycle = 10
	}
	if m.workers <= 0 {
		m.workers = 1
	}
	if m.interval <= 0 {
		m.interval = 5 * time.Second
	}
	if m.errorBackoff <= 0 {
		m.errorBackoff = 10 * time.Second
	}
	if m.log == nil {
		m.log = logrus.StandardLogger()
	}
	m.log = m.log.WithField("component", "monitor")
	return m
}

// Start launches the loop under ctx. Returns false if it is already running.
func (m *Monitor) Start(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return false
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done

	go func() {
		defer close(done)
		defer m.finished(done)
		m.run(runCtx)
	}()

	observability.SetMonitorActive(true)
	m.log.WithField("source", m.source).Info("Starting MEV transaction monitoring")
	return true
}

// Stop cancels the loop and waits for it to exit. Safe to call when stopped.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// Status returns the running flag and the history size.
func (m *Monitor) Status(ctx context.Context) (Status, error) {
	n, err := m.history.Count(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{IsMonitoring: m.Running(), RecentTransactionCount: n}, nil
}

// finished clears the running state unless a newer run replaced it.
func (m *Monitor) finished(done chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == done {
		m.cancel()
		m.cancel = nil
		m.done = nil
	}
	observability.SetMonitorActive(false)
	m.log.Info("MEV monitoring stopped")
}

func (m *Monitor) run(ctx context.Context) {
	if m.source == SourceLogs {
		if err := m.runLogs(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.log.WithError(err).Error("logs subscription ended")
		}
		return
	}
	m.runPoll(ctx)
}

func (m *Monitor) runPoll(ctx context.Context) {
	for {
		wait := m.interval
		if err := m.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			observability.RecordMonitorCycle("error")
			m.log.WithError(err).Error("Error in monitoring loop")
			wait = m.errorBackoff
		} else {
			observability.RecordMonitorCycle("ok")
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}
