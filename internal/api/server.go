// Package api serves the transaction history, statistics and monitor controls over HTTP.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/metrics"
	"solana-mev-decoder/internal/monitor"
	"solana-mev-decoder/internal/observability"
	"solana-mev-decoder/internal/storage"
)

// DefaultListLimit is the page size of /api/transactions when no limit is given.
const DefaultListLimit = 50

// feedSize is the number of records pushed per websocket update.
const feedSize = 10

// Analyzer analyzes a signature on demand. *pipeline.Processor satisfies it.
type Analyzer interface {
	Process(ctx context.Context, signature string) (*domain.MEVTransaction, error)
}

// MonitorController starts and stops the background monitor. *monitor.Monitor satisfies it.
type MonitorController interface {
	Start(ctx context.Context) bool
	Stop()
	Status(ctx context.Context) (monitor.Status, error)
}

// Options contains configuration for creating a Server.
type Options struct {
	History  storage.TransactionStore
	Analyzer Analyzer
	Monitor  MonitorController
	Patterns *metrics.Aggregator

	// BaseContext parents monitor runs started over HTTP. Default: context.Background().
	BaseContext  context.Context
	CORSOrigins  []string
	FeedInterval time.Duration // Default: 2s
	Logger       logrus.FieldLogger
	// RecoveryWriter receives panic traces. Default: the logger's writer.
	RecoveryWriter io.Writer
	Clock          func() time.Time
}

// Server holds the handlers' dependencies.
type Server struct {
	history  storage.TransactionStore
	analyzer Analyzer
	monitor  MonitorController
	patterns *metrics.Aggregator

	baseCtx      context.Context
	origins      map[string]struct{}
	anyOrigin    bool
	feedInterval time.Duration
	log          logrus.FieldLogger
	recovery     io.Writer
	clock        func() time.Time
	upgrader     websocket.Upgrader
}

// NewServer creates a new API server.
func NewServer(opts Options) *Server {
	s := &Server{
		history:      opts.History,
		analyzer:     opts.Analyzer,
		monitor:      opts.Monitor,
		patterns:     opts.Patterns,
		baseCtx:      opts.BaseContext,
		origins:      make(map[string]struct{}, len(opts.CORSOrigins)),
		feedInterval: opts.FeedInterval,
		log:          opts.Logger,
		recovery:     opts.RecoveryWriter,
		clock:        opts.Clock,
	}
	if s.baseCtx == nil {
		s.baseCtx = context.Background()
	}
	if s.feedInterval <= 0 {
		s.feedInterval = 2 * time.Second
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	s.log = s.log.WithField("component", "api")
	if s.recovery == nil {
		s.recovery = logrus.StandardLogger().WriterLevel(logrus.ErrorLevel)
	}
	if s.clock == nil {
		s.clock = func() time.Time { return time.Now().UTC() }
	}
	for _, o := range opts.CORSOrigins {
		if o == "*" {
			s.anyOrigin = true
		}
		s.origins[o] = struct{}{}
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return s.allowOrigin(r.Header.Get("Origin"))
		},
	}
	return s
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(AccessLog(s.log, "/health", "/metrics"), gin.RecoveryWithWriter(s.recovery), s.cors())

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(observability.Handler()))

	api := router.Group("/api")
	{
		api.GET("/transactions", s.handleListTransactions)
		api.GET("/transactions/:signature", s.handleGetTransaction)
		api.GET("/stats", s.handleStats)
		api.GET("/stats/patterns", s.handlePatternStats)

		api.POST("/monitor/start", s.handleMonitorStart)
		api.POST("/monitor/stop", s.handleMonitorStop)
		api.GET("/monitor/status", s.handleMonitorStatus)
	}

	router.GET("/ws/transactions", s.handleFeed)
	return router
}

func (s *Server) allowOrigin(origin string) bool {
	if origin == "" || s.anyOrigin {
		return true
	}
	_, ok := s.origins[origin]
	return ok
}
