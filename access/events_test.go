package access

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/estatekit/estate-access-api/models"
)

type captureListener struct {
	mu     sync.Mutex
	events []models.AccessEvent
	done   chan struct{}
}

func newCaptureListener(expect int) *captureListener {
	return &captureListener{done: make(chan struct{}, expect)}
}

func (c *captureListener) HandleAccessEvent(event models.AccessEvent) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	c.done <- struct{}{}
}

func (c *captureListener) wait(t *testing.T, n int) []models.AccessEvent {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event delivery")
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.AccessEvent, len(c.events))
	copy(out, c.events)
	return out
}

type panicListener struct{}

func (panicListener) HandleAccessEvent(models.AccessEvent) { panic("boom") }

func TestDispatcher_PublishFansOut(t *testing.T) {
	d := NewDispatcher()
	a := newCaptureListener(1)
	b := newCaptureListener(1)
	d.Subscribe(a)
	d.Subscribe(b)

	d.Publish(models.AccessEvent{Type: models.EventCodeCreated, EstateID: "estate-1"})

	gotA := a.wait(t, 1)
	gotB := b.wait(t, 1)
	assert.Equal(t, models.EventCodeCreated, gotA[0].Type)
	assert.Equal(t, models.EventCodeCreated, gotB[0].Type)
	assert.NotEmpty(t, gotA[0].ID)
	assert.False(t, gotA[0].OccurredAt.IsZero())
}

func TestDispatcher_PanickingListenerDoesNotBlockOthers(t *testing.T) {
	d := NewDispatcher()
	d.Subscribe(panicListener{})
	c := newCaptureListener(1)
	d.Subscribe(c)

	d.Publish(models.AccessEvent{Type: models.EventCodeRevoked})

	got := c.wait(t, 1)
	assert.Len(t, got, 1)
}
