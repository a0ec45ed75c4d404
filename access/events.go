package access

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/estatekit/estate-access-api/models"
)

// Listener receives access events. Implementations must not block; the
// dispatcher runs each delivery on its own goroutine, but a listener that
// hangs leaks the goroutine.
type Listener interface {
	HandleAccessEvent(event models.AccessEvent)
}

// Dispatcher fans access events out to subscribed listeners. Delivery is
// asynchronous and best-effort: the engine never waits on a notification, and
// a panicking listener is logged and dropped for that event only.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []Listener
}

// NewDispatcher creates an event dispatcher with no listeners.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers a listener for all subsequent events.
func (d *Dispatcher) Subscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// Publish stamps the event with an id and timestamp (when missing) and hands
// it to every listener.
func (d *Dispatcher) Publish(event models.AccessEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	d.mu.RLock()
	listeners := make([]Listener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.RUnlock()

	for _, l := range listeners {
		go func(l Listener) {
			defer func() {
				if r := recover(); r != nil {
					zap.S().Errorw("access event listener panicked", "eventType", event.Type, "panic", r)
				}
			}()
			l.HandleAccessEvent(event)
		}(l)
	}
}
