package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var errClientClosed = errors.New("client closed")

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription id.
	SubscribeTimeout time.Duration
	// Buffer is the notification channel capacity.
	Buffer int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
		Buffer:            1024,
	}
}

// LogsClient implements WSClient with one gorilla/websocket connection per subscription.
// Each subscription reconnects and resubscribes on its own with exponential backoff.
type LogsClient struct {
	endpoint  string
	config    WSClientConfig
	dialer    *websocket.Dialer
	requestID atomic.Uint64
	closed    atomic.Bool
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewLogsClient creates a client for the given ws:// or wss:// endpoint.
func NewLogsClient(endpoint string, config *WSClientConfig) *LogsClient {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	def := DefaultWSConfig()
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		cfg.MaxReconnectDelay = cfg.ReconnectDelay
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.SubscribeTimeout <= 0 {
		cfg.SubscribeTimeout = def.SubscribeTimeout
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	return &LogsClient{
		endpoint: endpoint,
		config:   cfg,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		done:     make(chan struct{}),
	}
}

// SubscribeLogs dials, subscribes and streams notifications until ctx is done.
func (c *LogsClient) SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error) {
	if c.closed.Load() {
		return nil, errClientClosed
	}

	conn, err := c.open(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make(chan LogNotification, c.config.Buffer)
	c.wg.Add(1)
	go c.run(ctx, conn, filter, out)
	return out, nil
}

// Close stops all subscriptions and waits for their goroutines.
func (c *LogsClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)
	c.wg.Wait()
	return nil
}

// open dials the endpoint and blocks until the subscription is acknowledged.
func (c *LogsClient) open(ctx context.Context, filter LogsFilter) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	mentions := map[string]interface{}{"all": nil}
	if len(filter.Mentions) > 0 {
		mentions = map[string]interface{}{"mentions": filter.Mentions}
	}
	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			mentions,
			map[string]string{"commitment": DefaultCommitment},
		},
	}

	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write subscribe: %w", err)
	}

	deadline := time.Now().Add(c.config.SubscribeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	for {
		conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("await subscription: %w", err)
		}

		var resp wsSubscribeResponse
		if err := json.Unmarshal(msg, &resp); err != nil || resp.ID != reqID {
			continue
		}
		if resp.Error != nil {
			conn.Close()
			return nil, fmt.Errorf("logsSubscribe rejected: code=%d msg=%s", resp.Error.Code, resp.Error.Message)
		}
		return conn, nil
	}
}

// run pumps one connection and reconnects until the subscription ends.
func (c *LogsClient) run(ctx context.Context, conn *websocket.Conn, filter LogsFilter, out chan<- LogNotification) {
	defer c.wg.Done()
	defer close(out)

	delay := c.config.ReconnectDelay
	for {
		c.pump(ctx, conn, out)
		conn.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case <-time.After(delay):
			}

			var err error
			conn, err = c.open(ctx, filter)
			if err == nil {
				delay = c.config.ReconnectDelay
				break
			}

			delay *= 2
			if delay > c.config.MaxReconnectDelay {
				delay = c.config.MaxReconnectDelay
			}
		}
	}
}

// pump reads notifications until the connection fails or the subscription is cancelled.
func (c *LogsClient) pump(ctx context.Context, conn *websocket.Conn, out chan<- LogNotification) {
	stop := make(chan struct{})
	defer close(stop)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	})

	go func() {
		ticker := time.NewTicker(c.config.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-c.done:
				conn.Close()
				return
			case <-ticker.C:
				// A failed ping surfaces as a read error below.
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.WriteTimeout))
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		notif, ok := parseLogsNotification(msg)
		if !ok {
			continue
		}

		select {
		case out <- notif:
		case <-ctx.Done():
			return
		case <-c.done:
			return
		}
	}
}

func parseLogsNotification(msg []byte) (LogNotification, bool) {
	var n wsNotification
	if err := json.Unmarshal(msg, &n); err != nil || n.Method != "logsNotification" || n.Params == nil {
		return LogNotification{}, false
	}

	value := n.Params.Result.Value
	notif := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
	}
	if n.Params.Result.Context != nil {
		notif.Slot = n.Params.Result.Context.Slot
	}
	return notif, notif.Signature != ""
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      uint64    `json:"id"`
	Result  int64     `json:"result"`
	Error   *rpcError `json:"error"`
}

type wsNotification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  *wsNotifyParams `json:"params"`
}

type wsNotifyParams struct {
	Subscription int64 `json:"subscription"`
	Result       struct {
		Context *struct {
			Slot int64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Signature string      `json:"signature"`
			Err       interface{} `json:"err"`
			Logs      []string    `json:"logs"`
		} `json:"value"`
	} `json:"result"`
}

var _ WSClient = (*LogsClient)(nil)
