// Package notify fans MEV verdicts out to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"solana-mev-decoder/internal/config"
	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/observability"
)

// EventTypeMEVDetected tags every published payload.
const EventTypeMEVDetected = "mev_detected"

// Publisher delivers analyzed transactions. Implementations ignore non-MEV records.
type Publisher interface {
	Publish(ctx context.Context, tx *domain.MEVTransaction) error
	Close() error
}

// Event is the published JSON payload.
type Event struct {
	Type        string                 `json:"type"`
	Transaction *domain.MEVTransaction `json:"transaction"`
}

// Nop discards everything. Used when no broker is configured.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, *domain.MEVTransaction) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }

// natsConn is the subset of *nats.Conn used by the publisher.
type natsConn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// NATSPublisher publishes MEV verdicts on "<subject>.<pattern>".
type NATSPublisher struct {
	conn    natsConn
	subject string
	log     logrus.FieldLogger
}

// NewNATSPublisher connects to the broker in cfg.URL.
func NewNATSPublisher(cfg config.NATSConfig, log logrus.FieldLogger) (*NATSPublisher, error) {
	log = log.WithField("component", "nats-publisher")

	opts := []nats.Option{
		nats.Name("solana-mev-decoder"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	log.WithField("url", conn.ConnectedUrl()).Info("connected to NATS")

	return newNATSPublisher(conn, cfg.Subject, log), nil
}

func newNATSPublisher(conn natsConn, subject string, log logrus.FieldLogger) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject, log: log}
}

// Subject returns the subject a transaction is published on.
func (p *NATSPublisher) Subject(tx *domain.MEVTransaction) string {
	pattern := string(tx.Pattern)
	if pattern == "" {
		pattern = string(domain.PatternUnknown)
	}
	return p.subject + "." + pattern
}

// Publish sends tx when it is flagged as MEV.
func (p *NATSPublisher) Publish(_ context.Context, tx *domain.MEVTransaction) error {
	if tx == nil || !tx.IsMEV {
		return nil
	}

	payload, err := json.Marshal(Event{Type: EventTypeMEVDetected, Transaction: tx})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.conn.Publish(p.Subject(tx), payload)
	observability.RecordEventPublished(err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", tx.Signature, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	err := p.conn.FlushTimeout(2 * time.Second)
	p.conn.Close()
	return err
}

var (
	_ Publisher = Nop{}
	_ Publisher = (*NATSPublisher)(nil)
)
