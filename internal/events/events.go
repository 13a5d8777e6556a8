// file: internal/events/events.go
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// ===============================
// EVENT INTERFACE
// ===============================

// Event represents a domain event
type Event interface {
	GetEventID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetUserID() *int64
}

// BaseEvent provides common event functionality
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	UserID    *int64    `json:"user_id,omitempty"`
}

// GetEventID returns the event ID
func (e *BaseEvent) GetEventID() string { return e.EventID }

// GetEventType returns the event type
func (e *BaseEvent) GetEventType() string { return e.EventType }

// GetTimestamp returns the event timestamp
func (e *BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// GetUserID returns the user ID associated with the event
func (e *BaseEvent) GetUserID() *int64 { return e.UserID }

// GenerateEventID returns a unique event identifier.
func GenerateEventID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Sprintf("evt_%d", time.Now().UnixNano())
	}
	return "evt_" + id.String()
}

// ===============================
// EVENT BUS
// ===============================

// EventHandler handles a delivered event.
type EventHandler interface {
	Handle(ctx context.Context, event Event) error
	GetHandlerID() string
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc struct {
	ID   string
	Func func(ctx context.Context, event Event) error
}

// Handle implements EventHandler
func (f EventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return f.Func(ctx, event)
}

// GetHandlerID implements EventHandler
func (f EventHandlerFunc) GetHandlerID() string { return f.ID }

// EventBusStats represents event bus statistics
type EventBusStats struct {
	EventsPublished int64 `json:"events_published"`
	EventsProcessed int64 `json:"events_processed"`
	EventsFailed    int64 `json:"events_failed"`
	HandlersCount   int   `json:"handlers_count"`
	QueueDepth      int   `json:"queue_depth"`
}

// EventBus defines the event publishing and subscription interface
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	PublishAsync(ctx context.Context, event Event) error
	Subscribe(eventType string, handler EventHandler) error
	Unsubscribe(eventType string, handlerID string) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Stats() *EventBusStats
}

// EventBusConfig holds configuration for the in-memory bus.
type EventBusConfig struct {
	BufferSize  int `json:"buffer_size"`
	WorkerCount int `json:"worker_count"`
}

// DefaultEventBusConfig returns default configuration
func DefaultEventBusConfig() *EventBusConfig {
	return &EventBusConfig{
		BufferSize:  1000,
		WorkerCount: 5,
	}
}

// ===============================
// IN-MEMORY EVENT BUS
// ===============================

// inMemoryEventBus delivers events to in-process subscribers. Anything that
// needs to leave the process (notifications, UI updates) subscribes here and
// forwards; the engine itself only publishes.
type inMemoryEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
	queue    chan queuedEvent
	logger   *zap.Logger
	stats    EventBusStats
	statsMu  sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	workers  int
}

type queuedEvent struct {
	ctx   context.Context
	event Event
}

// NewEventBus creates a new in-memory event bus.
func NewEventBus(config *EventBusConfig, logger *zap.Logger) EventBus {
	if config == nil {
		config = DefaultEventBusConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &inMemoryEventBus{
		handlers: make(map[string][]EventHandler),
		queue:    make(chan queuedEvent, config.BufferSize),
		logger:   logger,
		workers:  config.WorkerCount,
	}
}

// Start launches the async delivery workers.
func (b *inMemoryEventBus) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for {
				select {
				case <-runCtx.Done():
					return
				case msg := <-b.queue:
					if err := b.deliver(msg.ctx, msg.event); err != nil {
						b.logger.Error("Async event delivery failed",
							zap.String("event_type", msg.event.GetEventType()),
							zap.Error(err),
						)
					}
				}
			}
		}()
	}
	return nil
}

// Stop shuts down the delivery workers.
func (b *inMemoryEventBus) Stop(ctx context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish delivers an event synchronously to all subscribers.
func (b *inMemoryEventBus) Publish(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	b.recordPublished()
	return b.deliver(ctx, event)
}

// PublishAsync queues an event for background delivery. A full queue drops
// the event with a warning rather than blocking the caller.
func (b *inMemoryEventBus) PublishAsync(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	b.recordPublished()
	select {
	case b.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	default:
		b.logger.Warn("Event queue full, dropping event",
			zap.String("event_type", event.GetEventType()),
		)
		return fmt.Errorf("event queue full")
	}
}

// Subscribe registers a handler for an event type.
func (b *inMemoryEventBus) Subscribe(eventType string, handler EventHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Unsubscribe removes a handler by ID.
func (b *inMemoryEventBus) Unsubscribe(eventType string, handlerID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[eventType]
	for i, h := range handlers {
		if h.GetHandlerID() == handlerID {
			b.handlers[eventType] = append(handlers[:i], handlers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("handler %s not subscribed to %s", handlerID, eventType)
}

// Stats returns a snapshot of the bus statistics.
func (b *inMemoryEventBus) Stats() *EventBusStats {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()

	b.mu.RLock()
	handlerCount := 0
	for _, hs := range b.handlers {
		handlerCount += len(hs)
	}
	b.mu.RUnlock()

	snapshot := b.stats
	snapshot.HandlersCount = handlerCount
	snapshot.QueueDepth = len(b.queue)
	return &snapshot
}

func (b *inMemoryEventBus) deliver(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.handlers[event.GetEventType()]...)
	b.mu.RUnlock()

	var firstErr error
	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			b.logger.Error("Event handler failed",
				zap.String("event_type", event.GetEventType()),
				zap.String("handler_id", handler.GetHandlerID()),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
			b.recordFailed()
			continue
		}
		b.recordProcessed()
	}
	return firstErr
}

func (b *inMemoryEventBus) recordPublished() {
	b.statsMu.Lock()
	b.stats.EventsPublished++
	b.statsMu.Unlock()
}

func (b *inMemoryEventBus) recordProcessed() {
	b.statsMu.Lock()
	b.stats.EventsProcessed++
	b.statsMu.Unlock()
}

func (b *inMemoryEventBus) recordFailed() {
	b.statsMu.Lock()
	b.stats.EventsFailed++
	b.statsMu.Unlock()
}
