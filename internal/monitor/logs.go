package monitor

import (
	"context"
	"errors"

	"solana-mev-decoder/internal/observability"
	"solana-mev-decoder/internal/solana"
)

// runLogs analyzes signatures as logsSubscribe notifications arrive.
// Failed transactions are skipped.
func (m *Monitor) runLogs(ctx context.Context) error {
	if m.logs == nil {
		return errors.New("monitor: logs source without websocket client")
	}

	ch, err := m.logs.SubscribeLogs(ctx, solana.LogsFilter{Mentions: m.programs})
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-ch:
			if !ok {
				return ctx.Err()
			}
			observability.RecordWSNotification()
			if n.Err != nil || n.Signature == "" {
				continue
			}
			m.handleNotification(ctx, n)
		}
	}
}

func (m *Monitor) handleNotification(ctx context.Context, n solana.LogNotification) {
	log := m.log.WithField("signature", n.Signature)

	seen, err := m.history.Exists(ctx, n.Signature)
	if err != nil {
		log.WithError(err).Warn("check history failed")
		return
	}
	if seen {
		return
	}

	tx, err := m.processor.Process(ctx, n.Signature)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Error("Error analyzing transaction")
		}
		return
	}
	m.record(ctx, tx)
}
