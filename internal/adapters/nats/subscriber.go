package natsadapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trajprep/internal/core/domain"
	"github.com/samirrijal/trajprep/internal/pkg/metrics"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS and ensures the pipeline streams exist so
// that a durable consumer can bind before any publisher has started.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStreams(js); err != nil {
		conn.Close()
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeSampleBatches delivers decoded sample batches to handler. A batch
// that cannot be decoded is terminated rather than redelivered.
func (s *Subscriber) SubscribeSampleBatches(ctx context.Context, handler func(ctx context.Context, batch *domain.SampleBatch) error) error {
	sub, err := s.js.Subscribe(SamplesSubjects, func(msg *nats.Msg) {
		batch, err := DecodeSampleBatch(msg.Data)
		if err != nil {
			metrics.BatchDecodeErrors.Inc()
			slog.Warn("drop undecodable sample batch", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, batch); err != nil {
			if domain.IsInputError(err) {
				slog.Warn("reject sample batch", "subject", msg.Subject, "error", err)
				_ = msg.Term()
				return
			}
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("sample-processor"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SamplesSubjects, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
