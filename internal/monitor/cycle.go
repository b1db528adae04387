package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/observability"
	"solana-mev-decoder/internal/solana"
	"solana-mev-decoder/internal/storage"
)

// candidate is a fetched signature and the program it was first seen under.
type candidate struct {
	signature string
	program   string
	slot      int64
}

// RunCycle performs one poll: collect, pick unseen, analyze, record, advance cursors.
func (m *Monitor) RunCycle(ctx context.Context) error {
	candidates, heads, err := m.collect(ctx)
	if err != nil {
		return err
	}

	var picked []candidate
	backlog := make(map[string]bool) // programs with unseen signatures left for a later cycle
	for _, c := range candidates {
		seen, err := m.history.Exists(ctx, c.signature)
		if err != nil {
			return fmt.Errorf("check history: %w", err)
		}
		if seen {
			continue
		}
		if len(picked) >= m.maxPerCycle {
			backlog[c.program] = true
			continue
		}
		picked = append(picked, c)
	}

	if len(picked) > 0 {
		sigs := make([]string, len(picked))
		for i, c := range picked {
			sigs[i] = c.signature
		}
		txs, err := m.processor.ProcessBatch(ctx, sigs, m.workers)
		if err != nil {
			return err
		}
		for _, tx := range txs {
			m.record(ctx, tx)
		}
	}

	for program, head := range heads {
		if backlog[program] {
			continue
		}
		m.advanceCursor(ctx, program, head)
	}
	return nil
}

// collect fetches signatures from every program, newest first per program,
// keeping the first occurrence of each signature and cutting at the limit.
// A program that fails is skipped; the cycle fails only when all of them do.
func (m *Monitor) collect(ctx context.Context) ([]candidate, map[string]candidate, error) {
	if len(m.programs) == 0 {
		return nil, nil, nil
	}

	perProgram := m.signatureLimit / len(m.programs)
	if perProgram < 1 {
		perProgram = 1
	}

	var (
		out      []candidate
		heads    = make(map[string]candidate)
		seen     = make(map[string]bool)
		failures int
		lastErr  error
	)
	for _, program := range m.programs {
		opts := &solana.SignaturesOpts{Limit: perProgram, Until: m.cursor(ctx, program)}
		infos, err := m.rpc.GetSignaturesForAddress(ctx, program, opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			failures++
			lastErr = err
			m.log.WithError(err).WithField("program", program).Warn("fetch signatures failed")
			continue
		}
		for i, info := range infos {
			c := candidate{signature: info.Signature, program: program, slot: info.Slot}
			if i == 0 {
				heads[program] = c
			}
			if info.Signature == "" || seen[info.Signature] {
				continue
			}
			seen[info.Signature] = true
			out = append(out, c)
		}
	}

	if failures == len(m.programs) {
		return nil, nil, fmt.Errorf("fetch signatures: %w", lastErr)
	}
	if len(out) > m.signatureLimit {
		out = out[:m.signatureLimit]
	}
	return out, heads, nil
}

// record prepends tx to the history. A signature that is already present is ignored.
func (m *Monitor) record(ctx context.Context, tx *domain.MEVTransaction) {
	log := m.log.WithField("signature", tx.Signature)
	if err := m.history.Insert(ctx, tx); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			log.WithError(err).Error("store transaction failed")
		}
		return
	}
	log.WithFields(logrus.Fields{
		"is_mev": tx.IsMEV,
		"profit": fmt.Sprintf("%.4f", tx.ProfitUSDC),
	}).Info("Analyzed transaction")

	if n, err := m.history.Count(ctx); err == nil {
		observability.UpdateHistorySize(n)
	}
}

func (m *Monitor) cursor(ctx context.Context, program string) string {
	if m.cursors == nil {
		return ""
	}
	c, err := m.cursors.Get(ctx, program)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.log.WithError(err).WithField("program", program).Warn("load cursor failed")
		}
		return ""
	}
	return c.Signature
}

func (m *Monitor) advanceCursor(ctx context.Context, program string, head candidate) {
	if m.cursors == nil || head.signature == "" {
		return
	}
	err := m.cursors.Set(ctx, &storage.MonitorCursor{
		Program:   program,
		Signature: head.signature,
		Slot:      head.slot,
	})
	if err != nil {
		m.log.WithError(err).WithField("program", program).Warn("save cursor failed")
	}
}
