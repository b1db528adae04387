package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/pipeline"
	"solana-mev-decoder/internal/solana"
	"solana-mev-decoder/internal/storage"
)

// statsResponse adds last_updated to non-empty stats.
type statsResponse struct {
	*domain.Stats
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

func abortWithDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Solana MEV Trade Decoder API", "status": "running"})
}

func (s *Server) handleHealth(c *gin.Context) {
	if _, err := s.history.Count(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleListTransactions(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		abortWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.history.List(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		abortWithDetail(c, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if txs == nil {
		txs = []*domain.MEVTransaction{}
	}
	c.JSON(http.StatusOK, txs)
}

// parseFilter reads limit, is_mev, pattern, min_profit and wallet.
// An unknown pattern matches nothing rather than being rejected.
func parseFilter(c *gin.Context) (storage.TransactionFilter, error) {
	filter := storage.TransactionFilter{Limit: DefaultListLimit}

	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return filter, errors.New("limit must be a positive integer")
		}
		filter.Limit = n
	}
	if v := c.Query("is_mev"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, errors.New("is_mev must be a boolean")
		}
		filter.IsMEV = &b
	}
	if v := c.Query("pattern"); v != "" {
		p, err := domain.ParsePattern(v)
		if err != nil {
			// no stored record can carry an unknown name
			p = domain.MEVPattern(v)
		}
		filter.Pattern = p
	}
	if v := c.Query("min_profit"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, errors.New("min_profit must be a number")
		}
		filter.MinProfit = &f
	}
	if v := c.Query("wallet"); v != "" {
		if err := solana.ValidateAddress(v); err != nil {
			return filter, err
		}
		filter.Wallet = v
	}
	return filter, nil
}

func (s *Server) handleGetTransaction(c *gin.Context) {
	ctx := c.Request.Context()
	signature := c.Param("signature")
	if err := solana.ValidateSignature(signature); err != nil {
		abortWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.history.GetBySignature(ctx, signature)
	if err == nil {
		c.JSON(http.StatusOK, tx)
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		_ = c.Error(err)
		abortWithDetail(c, http.StatusInternalServerError, "failed to load transaction")
		return
	}

	tx, err = s.analyzer.Process(ctx, signature)
	switch {
	case errors.Is(err, pipeline.ErrTransactionNotFound):
		abortWithDetail(c, http.StatusNotFound, "Transaction not found")
		return
	case errors.Is(err, pipeline.ErrNotDecodable):
		abortWithDetail(c, http.StatusUnprocessableEntity, "Transaction could not be decoded")
		return
	case err != nil:
		_ = c.Error(err)
		abortWithDetail(c, http.StatusInternalServerError, "Error analyzing transaction: "+err.Error())
		return
	}

	if err := s.history.Insert(ctx, tx); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		s.log.WithError(err).WithField("signature", signature).Warn("store analyzed transaction failed")
	}
	c.JSON(http.StatusOK, tx)
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.history.Stats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		abortWithDetail(c, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	resp := statsResponse{Stats: stats}
	if stats.TotalTransactions > 0 {
		now := s.clock()
		resp.LastUpdated = &now
	}
	c.JSON(http.StatusOK, resp)
}

// handlePatternStats accepts since as RFC 3339 or as a duration back from now. Default: 24h.
func (s *Server) handlePatternStats(c *gin.Context) {
	since := s.clock().Add(-24 * time.Hour)
	if v := c.Query("since"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			since = s.clock().Add(-d)
		} else if t, err := time.Parse(time.RFC3339, v); err == nil {
			since = t
		} else {
			abortWithDetail(c, http.StatusBadRequest, "since must be RFC 3339 or a duration")
			return
		}
	}

	report, err := s.patterns.PatternReport(c.Request.Context(), since)
	if err != nil {
		_ = c.Error(err)
		abortWithDetail(c, http.StatusInternalServerError, "failed to build pattern report")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleMonitorStart(c *gin.Context) {
	if s.monitor.Start(s.baseCtx) {
		c.JSON(http.StatusOK, gin.H{"status": "Monitoring started"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Already monitoring"})
}

func (s *Server) handleMonitorStop(c *gin.Context) {
	s.monitor.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "Monitoring stopped"})
}

func (s *Server) handleMonitorStatus(c *gin.Context) {
	status, err := s.monitor.Status(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		abortWithDetail(c, http.StatusInternalServerError, "failed to read monitor status")
		return
	}
	c.JSON(http.StatusOK, status)
}
