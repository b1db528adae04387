package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/metrics"
	"solana-mev-decoder/internal/monitor"
	"solana-mev-decoder/internal/pipeline"
	"solana-mev-decoder/internal/storage"
	"solana-mev-decoder/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Date(2025, 1, 4, 12, 0, 0, 0, time.UTC)

func testSig(seed byte) string {
	var sig solanago.Signature
	for i := range sig {
		sig[i] = seed + byte(i)
	}
	return sig.String()
}

type fakeAnalyzer struct {
	mu    sync.Mutex
	txs   map[string]*domain.MEVTransaction
	err   error
	calls int
}

func (a *fakeAnalyzer) Process(_ context.Context, sig string) (*domain.MEVTransaction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	tx, ok := a.txs[sig]
	if !ok {
		return nil, pipeline.ErrTransactionNotFound
	}
	return tx, nil
}

type fakeMonitor struct {
	running bool
	count   int
}

func (m *fakeMonitor) Start(context.Context) bool {
	if m.running {
		return false
	}
	m.running = true
	return true
}

func (m *fakeMonitor) Stop() { m.running = false }

func (m *fakeMonitor) Status(context.Context) (monitor.Status, error) {
	return monitor.Status{IsMonitoring: m.running, RecentTransactionCount: m.count}, nil
}

type testEnv struct {
	server   *Server
	router   *gin.Engine
	history  *memory.TransactionStore
	verdicts *memory.VerdictStore
	analyzer *fakeAnalyzer
	monitor  *fakeMonitor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log, _ := test.NewNullLogger()
	env := &testEnv{
		history:  memory.NewTransactionStore(memory.DefaultCapacity),
		verdicts: memory.NewVerdictStore(),
		analyzer: &fakeAnalyzer{txs: map[string]*domain.MEVTransaction{}},
		monitor:  &fakeMonitor{},
	}
	env.server = NewServer(Options{
		History:      env.history,
		Analyzer:     env.analyzer,
		Monitor:      env.monitor,
		Patterns:     metrics.NewAggregator(env.verdicts),
		CORSOrigins:  []string{"http://localhost:5173"},
		FeedInterval: 10 * time.Millisecond,
		Logger:       log,
		Clock:        func() time.Time { return fixedNow },
	})
	env.router = env.server.Router()
	return env
}

func (e *testEnv) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func mevTx(sig string, pattern domain.MEVPattern, profit float64) *domain.MEVTransaction {
	return &domain.MEVTransaction{
		Signature:  sig,
		Timestamp:  fixedNow,
		Wallet:     "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
		TradePath:  "SOL → USDC",
		Platforms:  domain.PlatformSet{"Jupiter V6"},
		ProfitUSDC: profit,
		IsMEV:      pattern != domain.PatternNone,
		Pattern:    pattern,
		Confidence: 0.8,
	}
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Solana MEV Trade Decoder API","status":"running"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListTransactions_Filters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.history.Insert(ctx, mevTx(testSig(1), domain.PatternNone, 0)))
	require.NoError(t, env.history.Insert(ctx, mevTx(testSig(2), domain.PatternArbitrage, 0.5)))
	require.NoError(t, env.history.Insert(ctx, mevTx(testSig(3), domain.PatternSandwich, 12)))

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{testSig(3), testSig(2), testSig(1)}},
		{"?limit=2", []string{testSig(3), testSig(2)}},
		{"?is_mev=true", []string{testSig(3), testSig(2)}},
		{"?is_mev=false", []string{testSig(1)}},
		{"?pattern=arbitrage", []string{testSig(2)}},
		{"?pattern=nonsense", []string{}},
		{"?min_profit=1", []string{testSig(3)}},
		{"?is_mev=true&min_profit=0.5&limit=1", []string{testSig(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/transactions"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)

			var txs []domain.MEVTransaction
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txs))
			got := make([]string, len(txs))
			for i, tx := range txs {
				got[i] = tx.Signature
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListTransactions_BadQuery(t *testing.T) {
	env := newTestEnv(t)

	for _, q := range []string{"?limit=0", "?limit=x", "?is_mev=maybe", "?min_profit=lots", "?wallet=abc"} {
		rec := env.do(t, http.MethodGet, "/api/transactions"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestGetTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stored := testSig(1)
	require.NoError(t, env.history.Insert(ctx, mevTx(stored, domain.PatternArbitrage, 0.5)))

	rec := env.do(t, http.MethodGet, "/api/transactions/"+stored)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, stored, decodeBody(t, rec)["signature"])
	assert.Equal(t, 0, env.analyzer.calls)

	onDemand := testSig(2)
	env.analyzer.txs[onDemand] = mevTx(onDemand, domain.PatternNone, 0)

	rec = env.do(t, http.MethodGet, "/api/transactions/"+onDemand)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeBody(t, rec)["pattern"])

	exists, err := env.history.Exists(ctx, onDemand)
	require.NoError(t, err)
	assert.True(t, exists, "on-demand analysis is stored")

	list, err := env.history.List(ctx, storage.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, onDemand, list[0].Signature)
}

func TestGetTransaction_Errors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/transactions/not-a-signature")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/transactions/"+testSig(9))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Transaction not found", decodeBody(t, rec)["detail"])

	env.analyzer.err = pipeline.ErrNotDecodable
	rec = env.do(t, http.MethodGet, "/api/transactions/"+testSig(9))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	env.analyzer.err = errors.New("rpc timeout")
	rec = env.do(t, http.MethodGet, "/api/transactions/"+testSig(9))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(decodeBody(t, rec)["detail"].(string), "Error analyzing transaction"))
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_transactions":0,"mev_transactions":0,"mev_percentage":0,"total_profit":0,"avg_profit":0,"patterns":{}}`, rec.Body.String())

	ctx := context.Background()
	require.NoError(t, env.history.Insert(ctx, mevTx(testSig(1), domain.PatternNone, 0)))
	require.NoError(t, env.history.Insert(ctx, mevTx(testSig(2), domain.PatternArbitrage, 0.5)))
	require.NoError(t, env.history.Insert(ctx, mevTx(testSig(3), domain.PatternArbitrage, 1.25)))
	require.NoError(t, env.history.Insert(ctx, mevTx(testSig(4), domain.PatternSandwich, 0.25)))

	rec = env.do(t, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, 4.0, body["total_transactions"])
	assert.Equal(t, 3.0, body["mev_transactions"])
	assert.Equal(t, 75.0, body["mev_percentage"])
	assert.Equal(t, 2.0, body["total_profit"])
	assert.Equal(t, 0.6667, body["avg_profit"])
	assert.Equal(t, map[string]interface{}{"arbitrage": 2.0, "sandwich": 1.0}, body["patterns"])
	assert.Equal(t, fixedNow.Format(time.RFC3339), body["last_updated"])
}

func TestPatternStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	old := mevTx(testSig(1), domain.PatternSandwich, 3)
	old.Timestamp = fixedNow.Add(-48 * time.Hour)
	require.NoError(t, env.verdicts.Insert(ctx, old))
	require.NoError(t, env.verdicts.Insert(ctx, mevTx(testSig(2), domain.PatternArbitrage, 1)))

	rec := env.do(t, http.MethodGet, "/api/stats/patterns")
	require.Equal(t, http.StatusOK, rec.Code)
	var report metrics.PatternReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.MEVVerdicts)

	rec = env.do(t, http.MethodGet, "/api/stats/patterns?since=72h")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.MEVVerdicts)

	since := fixedNow.Add(-time.Hour).Format(time.RFC3339)
	rec = env.do(t, http.MethodGet, "/api/stats/patterns?since="+since)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/stats/patterns?since=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMonitorEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/monitor/start")
	assert.JSONEq(t, `{"status":"Monitoring started"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/monitor/start")
	assert.JSONEq(t, `{"status":"Already monitoring"}`, rec.Body.String())

	env.monitor.count = 3
	rec = env.do(t, http.MethodGet, "/api/monitor/status")
	assert.JSONEq(t, `{"is_monitoring":true,"recent_transaction_count":3}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/monitor/stop")
	assert.JSONEq(t, `{"status":"Monitoring stopped"}`, rec.Body.String())
	assert.False(t, env.monitor.running)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/stats", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestFeed(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx := context.Background()
	for i := 1; i <= 12; i++ {
		require.NoError(t, env.history.Insert(ctx, mevTx(testSig(byte(i)), domain.PatternNone, 0)))
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/transactions"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type string                  `json:"type"`
		Data []domain.MEVTransaction `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))

	assert.Equal(t, "transactions_update", msg.Type)
	require.Len(t, msg.Data, feedSize)
	assert.Equal(t, testSig(12), msg.Data[0].Signature, "newest first")
}

func TestFeed_RejectsUnknownOrigin(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	header := http.Header{"Origin": []string{"http://evil.example"}}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/transactions"
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
