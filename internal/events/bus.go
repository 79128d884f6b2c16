// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/civicpulse/internal/logging"
	"github.com/tomtom215/civicpulse/internal/metrics"
)

// Metadata keys set on every message.
const (
	MetadataEventType     = "event_type"
	MetadataCorrelationID = "correlation_id"
)

// Publisher publishes domain events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// Bus is an in-process pub/sub backed by a watermill GoChannel.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates a bus. logger may be nil.
func NewBus(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger),
	}
}

// Publish encodes payload as JSON and publishes it on topic. Messages
// published while nobody is subscribed are dropped.
func (b *Bus) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}

	msg := message.NewMessage(uuid.NewString(), data)
	msg.Metadata.Set(MetadataEventType, topic)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataCorrelationID, id)
	}

	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	metrics.RecordEventPublished(topic)
	return nil
}

// Subscriber exposes the bus for routers and tests.
func (b *Bus) Subscriber() message.Subscriber {
	return b.pubsub
}

// Close shuts the pub/sub down; subscriptions end.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
