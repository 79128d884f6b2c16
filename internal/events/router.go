// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"

	"github.com/tomtom215/civicpulse/internal/logging"
	"github.com/tomtom215/civicpulse/internal/metrics"
)

// Handler consumes one topic.
type Handler struct {
	Name  string
	Topic string
	Func  message.NoPublishHandlerFunc
}

// Router runs the event handlers. A fresh watermill router is built on every
// Serve so the supervisor can restart it after a failure.
type Router struct {
	bus      *Bus
	logger   watermill.LoggerAdapter
	handlers []Handler

	runningOnce sync.Once
	running     chan struct{}
}

// NewRouter returns a router over bus. logger may be nil.
func NewRouter(bus *Bus, logger watermill.LoggerAdapter, handlers ...Handler) *Router {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Router{
		bus:      bus,
		logger:   logger,
		handlers: handlers,
		running:  make(chan struct{}),
	}
}

// Running is closed once the first router instance has started its handlers.
func (r *Router) Running() <-chan struct{} {
	return r.running
}

// Serve runs until ctx is cancelled. It implements suture.Service.
func (r *Router) Serve(ctx context.Context) error {
	wm, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, r.logger)
	if err != nil {
		return fmt.Errorf("create event router: %w", err)
	}

	retry := middleware.Retry{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2,
		Logger:          r.logger,
	}
	wm.AddMiddleware(middleware.Recoverer, retry.Middleware)

	for _, h := range r.handlers {
		wm.AddConsumerHandler(h.Name, h.Topic, r.bus.Subscriber(), h.Func)
	}

	go func() {
		select {
		case <-wm.Running():
			r.runningOnce.Do(func() { close(r.running) })
		case <-ctx.Done():
		}
	}()

	logging.Info().Int("handlers", len(r.handlers)).Msg("Event router starting")
	if err := wm.Run(ctx); err != nil {
		return fmt.Errorf("event router: %w", err)
	}
	return ctx.Err()
}

func (r *Router) String() string {
	return "event-router"
}

// AuditHandlers returns handlers that log every domain event. sink, when not
// nil, receives each decoded event after it has been logged.
func AuditHandlers(sink func(topic string, event interface{})) []Handler {
	return []Handler{
		{Name: "audit-duplicates", Topic: TopicDuplicatesDetected, Func: auditFunc(TopicDuplicatesDetected, sink)},
		{Name: "audit-flags", Topic: TopicReportFlagged, Func: auditFunc(TopicReportFlagged, sink)},
	}
}

func auditFunc(topic string, sink func(string, interface{})) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		event, err := decode(topic, msg.Payload)
		metrics.RecordEventHandled(topic, err)
		if err != nil {
			// Undecodable payloads would fail on every retry.
			logging.Error().Err(err).Str("topic", topic).Str("message_id", msg.UUID).Msg("Dropping undecodable event")
			return nil
		}

		ctx := msg.Context()
		if id := msg.Metadata.Get(MetadataCorrelationID); id != "" {
			ctx = logging.ContextWithCorrelationID(ctx, id)
		}
		logAudit(ctx, msg.UUID, event)

		if sink != nil {
			sink(topic, event)
		}
		return nil
	}
}

func decode(topic string, payload []byte) (interface{}, error) {
	switch topic {
	case TopicDuplicatesDetected:
		var e DuplicatesDetected
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", topic, err)
		}
		return e, nil
	case TopicReportFlagged:
		var e ReportFlagged
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", topic, err)
		}
		return e, nil
	}
	return nil, fmt.Errorf("unknown topic %q", topic)
}

func logAudit(ctx context.Context, id string, event interface{}) {
	switch e := event.(type) {
	case DuplicatesDetected:
		logging.Ctx(ctx).Info().
			Str("event_id", id).
			Str("region", e.Region).
			Str("trigger", e.Trigger).
			Int("groups", e.Groups).
			Int("scanned", e.Scanned).
			Int("skipped", e.Skipped).
			Bool("partial", e.Partial).
			Msg("Duplicates detected")
	case ReportFlagged:
		logging.Ctx(ctx).Info().
			Str("event_id", id).
			Str("report_id", e.ReportID).
			Str("primary_id", e.PrimaryID).
			Str("flagged_by", e.FlaggedBy).
			Msg("Report flagged important")
	}
}
