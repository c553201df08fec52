package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trajprep/internal/core/domain"
)

// Subjects and stream names used by the pipeline.
const (
	SamplesStream = "TRAJECTORY_SAMPLES"
	SpeedsStream  = "TRAJECTORY_SPEEDS"

	SamplesSubjectPrefix = "trajectory.samples."
	SpeedsSubjectPrefix  = "trajectory.speeds."

	SamplesSubjects = SamplesSubjectPrefix + ">"
	SpeedsSubjects  = SpeedsSubjectPrefix + ">"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS, enables JetStream and ensures the
// pipeline streams exist.
func NewPublisher(url string) (*Publisher, error) {
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

	return &Publisher{conn: conn, js: js}, nil
}

func ensureStreams(js nats.JetStreamContext) error {
	streams := []nats.StreamConfig{
		{
			Name:      SamplesStream,
			Subjects:  []string{SamplesSubjects},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      SpeedsStream,
			Subjects:  []string{SpeedsSubjects},
			Retention: nats.InterestPolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

// PublishSampleBatch publishes a protobuf-encoded batch on
// trajectory.samples.<user>.
func (p *Publisher) PublishSampleBatch(ctx context.Context, batch *domain.SampleBatch) error {
	_, err := p.js.Publish(SamplesSubjectPrefix+subjectToken(batch.UserID), EncodeSampleBatch(batch), nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("publish sample batch: %w", err)
	}
	return nil
}

// PublishSpeedProfile publishes a JSON speed profile on
// trajectory.speeds.<trajectory id>.
func (p *Publisher) PublishSpeedProfile(ctx context.Context, profile *domain.SpeedProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SpeedsSubjectPrefix+subjectToken(profile.TrajectoryID), data, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("publish speed profile: %w", err)
	}
	return nil
}

// Conn exposes the underlying connection, e.g. for the WebSocket relay.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection with reconnects enabled.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

// subjectToken makes s safe to use as a single subject token.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	b := []byte(s)
	for i, c := range b {
		switch c {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			b[i] = '_'
		}
	}
	return string(b)
}
