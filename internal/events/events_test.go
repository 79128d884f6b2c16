// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/civicpulse/internal/logging"
)

func TestBus_PublishEncodesPayload(t *testing.T) {
	t.Parallel()

	bus := NewBus(nil)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := bus.Subscriber().Subscribe(ctx, TopicReportFlagged)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	pubCtx := logging.ContextWithCorrelationID(ctx, "corr-9")
	want := ReportFlagged{ReportID: "r1", FlaggedBy: "operator", FlaggedAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)}
	if err := bus.Publish(pubCtx, TopicReportFlagged, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-msgs:
		msg.Ack()
		var got ReportFlagged
		if err := json.Unmarshal(msg.Payload, &got); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if got.ReportID != "r1" || !got.FlaggedAt.Equal(want.FlaggedAt) {
			t.Errorf("got %+v", got)
		}
		if msg.Metadata.Get(MetadataEventType) != TopicReportFlagged {
			t.Errorf("event_type = %q", msg.Metadata.Get(MetadataEventType))
		}
		if msg.Metadata.Get(MetadataCorrelationID) != "corr-9" {
			t.Errorf("correlation_id = %q", msg.Metadata.Get(MetadataCorrelationID))
		}
		if msg.UUID == "" {
			t.Error("message has no ID")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestBus_PublishRejectsUnencodable(t *testing.T) {
	t.Parallel()

	bus := NewBus(nil)
	t.Cleanup(func() { _ = bus.Close() })

	if err := bus.Publish(context.Background(), TopicReportFlagged, make(chan int)); err == nil {
		t.Error("expected encode error")
	}
}

func TestAuditFunc(t *testing.T) {
	t.Parallel()

	var got []interface{}
	h := auditFunc(TopicDuplicatesDetected, func(_ string, e interface{}) { got = append(got, e) })

	payload, _ := json.Marshal(DuplicatesDetected{Region: "north", Groups: 2, PrimaryIDs: []string{"a", "b"}})
	if err := h(message.NewMessage("m1", payload)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if err := h(message.NewMessage("m2", []byte("{not json"))); err != nil {
		t.Fatalf("undecodable payloads should be dropped, got %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("sink received %d events, want 1", len(got))
	}
	e, ok := got[0].(DuplicatesDetected)
	if !ok || e.Region != "north" || e.Groups != 2 {
		t.Errorf("unexpected event %#v", got[0])
	}
}

func TestRouter_DeliversToAuditHandlers(t *testing.T) {
	t.Parallel()

	bus := NewBus(nil)
	t.Cleanup(func() { _ = bus.Close() })

	var mu sync.Mutex
	received := make(map[string]int)
	done := make(chan struct{}, 4)
	router := NewRouter(bus, nil, AuditHandlers(func(topic string, _ interface{}) {
		mu.Lock()
		received[topic]++
		mu.Unlock()
		done <- struct{}{}
	})...)

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() { serveErr <- router.Serve(ctx) }()

	select {
	case <-router.Running():
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("router did not start")
	}

	if err := bus.Publish(ctx, TopicDuplicatesDetected, DuplicatesDetected{Region: "north"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := bus.Publish(ctx, TopicReportFlagged, ReportFlagged{ReportID: "r1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			cancel()
			t.Fatal("timed out waiting for handlers")
		}
	}

	cancel()
	select {
	case <-serveErr:
	case <-time.After(15 * time.Second):
		t.Fatal("router did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if received[TopicDuplicatesDetected] != 1 || received[TopicReportFlagged] != 1 {
		t.Errorf("received = %v", received)
	}
}
