package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"
)

// collector records delivered events for assertions.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) subscribe(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) all() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func TestPublisherSyncDelivery(t *testing.T) {
	p := NewPublisher(EventsConfig{Enabled: true})
	var c collector
	p.Subscribe(c.subscribe)

	if err := p.Publish(Event{Type: EventTypeError, Message: "boom", Level: EventLevelError}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	events := c.all()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.ID == "" {
		t.Error("expected a generated event id")
	}
	if got.Timestamp.IsZero() {
		t.Error("expected a generated timestamp")
	}
	if got.Type != EventTypeError || got.Level != EventLevelError {
		t.Errorf("event not delivered intact: %+v", got)
	}
}

func TestPublisherDisabledIsNoOp(t *testing.T) {
	p := NewPublisher(EventsConfig{Enabled: false})
	var c collector
	p.Subscribe(c.subscribe)

	if err := p.Publish(Event{Type: EventTypeError}); err != nil {
		t.Fatalf("disabled publisher must not error: %v", err)
	}
	if len(c.all()) != 0 {
		t.Fatal("disabled publisher must not deliver")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("disabled publisher shutdown: %v", err)
	}
}

func TestPublisherTypedHelpers(t *testing.T) {
	p := NewPublisher(EventsConfig{Enabled: true})
	var c collector
	p.Subscribe(c.subscribe)

	if err := p.PublishIntelligenceGenerated("field-1", "req-1", true, []string{"weather"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := p.PublishEngineFallback("field-1", "weather", "timeout"); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := p.PublishCircuitStateChanged("weather", "closed", "open"); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := p.PublishScheduleBuilt("field-1", "2026-04-12", 3, 2); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	events := c.all()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	generated := events[0]
	if generated.Type != EventTypeIntelligenceGenerated || generated.FieldID != "field-1" {
		t.Errorf("unexpected generation event: %+v", generated)
	}
	if generated.Data["degraded"] != true {
		t.Errorf("degraded flag not carried: %+v", generated.Data)
	}

	fallback := events[1]
	if fallback.Type != EventTypeEngineFallback || fallback.Level != EventLevelWarning {
		t.Errorf("unexpected fallback event: %+v", fallback)
	}

	// Transitions to open are warnings, everything else is informational.
	circuit := events[2]
	if circuit.Level != EventLevelWarning {
		t.Errorf("open transition must warn: %+v", circuit)
	}

	schedule := events[3]
	if schedule.Type != EventTypeScheduleBuilt || schedule.Data["workers"] != 2 {
		t.Errorf("unexpected schedule event: %+v", schedule)
	}
}

func TestPublisherMultipleSubscribers(t *testing.T) {
	p := NewPublisher(EventsConfig{Enabled: true})
	var a, b collector
	p.Subscribe(a.subscribe)
	p.Subscribe(b.subscribe)

	if err := p.Publish(Event{Type: EventTypeError}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(a.all()) != 1 || len(b.all()) != 1 {
		t.Fatal("every subscriber must receive the event")
	}
}

func TestPublisherAsyncDrainsOnShutdown(t *testing.T) {
	p := NewPublisher(EventsConfig{Enabled: true, EnableAsync: true, BufferSize: 16})
	var c collector
	p.Subscribe(c.subscribe)

	for i := 0; i < 5; i++ {
		if err := p.Publish(Event{Type: EventTypeError}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if got := len(c.all()); got != 5 {
		t.Fatalf("expected all buffered events delivered, got %d", got)
	}
}

func TestPublisherAsyncFullBufferDrops(t *testing.T) {
	// A blocking subscriber pins the worker on the first event, so the
	// one-slot buffer fills and the third publish must drop.
	release := make(chan struct{})
	p := NewPublisher(EventsConfig{Enabled: true, EnableAsync: true, BufferSize: 1})
	p.Subscribe(func(Event) { <-release })

	var dropErr error
	for i := 0; i < 3; i++ {
		if err := p.Publish(Event{Type: EventTypeError}); err != nil {
			dropErr = err
		}
	}
	if dropErr == nil {
		t.Fatal("expected a drop on a full buffer")
	}

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
}
