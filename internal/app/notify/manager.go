// Package notify fans player events out to UI subscribers.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dirplay/dirplay/internal/app/playback"
)

// sendTimeout bounds how long a slow subscriber may hold up a
// broadcast.
const sendTimeout = 500 * time.Millisecond

// Notification wraps a player event with a delivery sequence number.
type Notification struct {
	Seq   uint64
	Event playback.Event
}

// Stream receives notifications for one subscriber.
type Stream interface {
	Send(Notification) error
}

// subscription represents a subscriber's registration.
type subscription struct {
	id     string
	stream Stream
}

// Manager manages subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	seq           uint64
	seqMu         sync.Mutex
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe registers a stream and returns its subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{id: id, stream: stream}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, id)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Broadcast delivers an event to all subscribers. Each send runs in its
// own goroutine with a timeout so one stuck subscriber cannot stall the
// player.
func (m *Manager) Broadcast(ev playback.Event) {
	m.seqMu.Lock()
	m.seq++
	n := Notification{Seq: m.seq, Event: ev}
	m.seqMu.Unlock()

	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(n)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				// Subscriber too slow, skip it for this event.
			}
		}(sub)
	}
	wg.Wait()
}

// Dispatch pumps controller events into Broadcast until the channel
// closes. Intended to run as a goroutine from the composition root.
func (m *Manager) Dispatch(events <-chan playback.Event) {
	for ev := range events {
		m.Broadcast(ev)
	}
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
