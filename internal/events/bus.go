package events

import (
	"sync"

	"github.com/dmateus/lexflash/internal/logger"
)

// Well-known event names.
const (
	CardReviewed     = "card.reviewed"
	SessionStarted   = "session.started"
	SessionEnded     = "session.ended"
	SyncStarted      = "sync.started"
	SyncCompleted    = "sync.completed"
	SyncConflict     = "sync.conflict"
	SyncItemRejected = "sync.item_rejected"
	AppVisible       = "app.visible"
)

// Event is a named notification with an arbitrary payload.
type Event struct {
	Name    string
	Payload any
}

// Handler receives emitted events.
type Handler func(Event)

// Bus is a multi-listener event dispatcher. A panicking handler never stops
// the remaining handlers from running.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]Handler
	log      *logger.Logger
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string]map[int]Handler),
		log:      logger.Default().WithPrefix("events"),
	}
}

// Subscribe registers a handler for the named event and returns an
// unsubscribe function.
func (b *Bus) Subscribe(name string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[name] == nil {
		b.handlers[name] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.handlers[name][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[name], id)
	}
}

// Emit delivers the event to every subscribed handler, synchronously and in
// isolation from each other's panics.
func (b *Bus) Emit(name string, payload any) {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers[name]))
	for _, h := range b.handlers[name] {
		hs = append(hs, h)
	}
	b.mu.RUnlock()

	evt := Event{Name: name, Payload: payload}
	for _, h := range hs {
		b.dispatch(h, evt)
	}
}

func (b *Bus) dispatch(h Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked: event=%s, panic=%v", evt.Name, r)
		}
	}()
	h(evt)
}
