package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/observability"
	"solana-mev-decoder/internal/storage"
)

const feedWriteTimeout = 10 * time.Second

// feedMessage is pushed to websocket clients when the history changes.
type feedMessage struct {
	Type string                   `json:"type"`
	Data []*domain.MEVTransaction `json:"data"`
}

// handleFeed polls the history size every feed interval and pushes the
// latest records whenever it differs from the last pushed size.
func (s *Server) handleFeed(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	observability.AddWSClients(1)
	defer observability.AddWSClients(-1)

	ctx, cancel := context.WithCancel(s.baseCtx)
	defer cancel()

	// Reading is only needed to notice the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.feedInterval)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case <-ticker.C:
		}

		count, err := s.history.Count(ctx)
		if err != nil {
			s.log.WithError(err).Warn("feed count failed")
			continue
		}
		if count == lastCount {
			continue
		}

		txs, err := s.history.List(ctx, storage.TransactionFilter{Limit: feedSize})
		if err != nil {
			s.log.WithError(err).Warn("feed list failed")
			continue
		}
		if txs == nil {
			txs = []*domain.MEVTransaction{}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		if err := conn.WriteJSON(feedMessage{Type: "transactions_update", Data: txs}); err != nil {
			s.log.WithError(err).Debug("feed client gone")
			return
		}
		lastCount = count
	}
}
