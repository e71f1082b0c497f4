package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents an operational event emitted by the intelligence service.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// FieldID is the associated field ID, if applicable.
	FieldID string `json:"field_id,omitempty"`

	// RequestID is the associated request ID, if applicable.
	RequestID string `json:"request_id,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]any `json:"data,omitempty"`
}

// Event type constants.
const (
	EventTypeIntelligenceGenerated = "intelligence.generated"
	EventTypeEngineFallback        = "engine.fallback"
	EventTypeCircuitStateChanged   = "circuit.state_changed"
	EventTypeScheduleBuilt         = "schedule.built"
	EventTypeError                 = "error"
)

// Event level constants.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// Publisher delivers operational events to an explicit subscriber list.
// There is no global bus; every component that wants events holds its own
// Publisher reference.
type Publisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []EventSubscriber
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewPublisher creates a new event publisher with the given configuration.
func NewPublisher(cfg EventsConfig) *Publisher {
	if !cfg.Enabled {
		return &Publisher{config: cfg}
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Publisher{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.EnableAsync {
		p.buffer = make(chan Event, cfg.BufferSize)
		p.wg.Add(1)
		go p.processEvents()
	}

	return p
}

// Subscribe adds a new event subscriber.
func (p *Publisher) Subscribe(subscriber EventSubscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, subscriber)
}

// Publish delivers an event to all subscribers. In async mode the event is
// buffered; a full buffer drops the event rather than blocking the caller.
func (p *Publisher) Publish(event Event) error {
	if !p.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if p.config.EnableAsync {
		select {
		case p.buffer <- event:
			return nil
		case <-p.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	p.deliver(event)
	return nil
}

// PublishIntelligenceGenerated publishes the completion event for one
// intelligence generation.
func (p *Publisher) PublishIntelligenceGenerated(fieldID, requestID string, degraded bool, fallbacks []string) error {
	return p.Publish(Event{
		Type:      EventTypeIntelligenceGenerated,
		Source:    "orchestrator",
		FieldID:   fieldID,
		RequestID: requestID,
		Message:   fmt.Sprintf("intelligence generated for field %s", fieldID),
		Level:     EventLevelInfo,
		Data: map[string]any{
			"degraded":  degraded,
			"fallbacks": fallbacks,
		},
	})
}

// PublishEngineFallback publishes a warning that an engine's result was
// replaced by its fallback value.
func (p *Publisher) PublishEngineFallback(fieldID, engine, reason string) error {
	return p.Publish(Event{
		Type:    EventTypeEngineFallback,
		Source:  "orchestrator",
		FieldID: fieldID,
		Message: fmt.Sprintf("engine %s failed, fallback applied: %s", engine, reason),
		Level:   EventLevelWarning,
		Data: map[string]any{
			"engine": engine,
			"reason": reason,
		},
	})
}

// PublishCircuitStateChanged publishes a circuit breaker transition.
func (p *Publisher) PublishCircuitStateChanged(target, from, to string) error {
	level := EventLevelInfo
	if to == "open" {
		level = EventLevelWarning
	}
	return p.Publish(Event{
		Type:    EventTypeCircuitStateChanged,
		Source:  "breaker",
		Message: fmt.Sprintf("circuit for %s moved from %s to %s", target, from, to),
		Level:   level,
		Data: map[string]any{
			"target": target,
			"from":   from,
			"to":     to,
		},
	})
}

// PublishScheduleBuilt publishes the completion event for a daily schedule.
func (p *Publisher) PublishScheduleBuilt(fieldID string, date string, tasks, workers int) error {
	return p.Publish(Event{
		Type:    EventTypeScheduleBuilt,
		Source:  "schedule_builder",
		FieldID: fieldID,
		Message: fmt.Sprintf("daily schedule built for field %s on %s", fieldID, date),
		Level:   EventLevelInfo,
		Data: map[string]any{
			"date":    date,
			"tasks":   tasks,
			"workers": workers,
		},
	})
}

// processEvents delivers events from the buffer asynchronously.
func (p *Publisher) processEvents() {
	defer p.wg.Done()

	for {
		select {
		case event := <-p.buffer:
			p.deliver(event)
		case <-p.ctx.Done():
			// Drain whatever is left before shutting down.
			for {
				select {
				case event := <-p.buffer:
					p.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// deliver hands an event to every subscriber, in subscription order.
func (p *Publisher) deliver(event Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, subscriber := range p.subscribers {
		subscriber(event)
	}
}

// Shutdown stops async delivery, draining buffered events first.
func (p *Publisher) Shutdown(ctx context.Context) error {
	if !p.config.Enabled || !p.config.EnableAsync {
		return nil
	}

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}
