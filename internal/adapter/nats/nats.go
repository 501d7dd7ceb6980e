// Package nats connects the storefront to NATS JetStream: the connection
// backs the L2 cache buckets and carries fan-out events between replicas
// serving the same host.
package nats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const streamName = "STOREFRONT"

// SubjectTenantReload asks every replica to re-resolve its tenant.
const SubjectTenantReload = "storefront.tenant.reload"

// Handler processes one message. A returned error naks the message.
type Handler func(ctx context.Context, subject string, data []byte) error

// Bus is a NATS JetStream connection with the storefront event stream.
type Bus struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the JetStream stream exists.
func Connect(ctx context.Context, url string) (*Bus, error) {
	nc, err := nats.Connect(url, nats.Name("storefront"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"storefront.>"},
		MaxMsgs:  1000,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Bus{nc: nc, js: js}, nil
}

// JetStream returns the JetStream context for KV buckets.
func (b *Bus) JetStream() jetstream.JetStream { return b.js }

// Publish sends a message to the given subject.
func (b *Bus) Publish(ctx context.Context, subject string, data []byte) error {
	if _, err := b.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for messages published on subject from now
// on. Each replica gets its own ephemeral consumer, so every replica sees
// every message.
func (b *Bus) Subscribe(ctx context.Context, subject string, handler Handler) (func(), error) {
	consumer, err := b.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg.Subject(), msg.Data()); err != nil {
			slog.Error("message handler failed", "subject", msg.Subject(), "error", err)
			if nakErr := msg.Nak(); nakErr != nil {
				slog.Error("nats nak failed", "error", nakErr)
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			slog.Error("nats ack failed", "error", ackErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

// IsConnected reports whether the underlying connection is up.
func (b *Bus) IsConnected() bool {
	return b.nc.IsConnected()
}

// Close drains and shuts down the NATS connection.
func (b *Bus) Close() error {
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
		return err
	}
	return nil
}
