package preloader

import (
	"github.com/olebedev/emitter"
)

const (
	EventQueued  = "item.queued"
	EventLoading = "item.loading"
	EventLoaded  = "item.loaded"
	EventFailed  = "item.failed"
	EventEvicted = "item.evicted"
)

// Subscribe returns a channel receiving every item event. Each event carries
// the item id and url as its two arguments. Events are dropped rather than
// blocking the manager when the subscriber falls behind.
func (m *Manager) Subscribe() <-chan emitter.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		ch := make(chan emitter.Event)
		close(ch)
		return ch
	}
	return m.events.On("item.*", emitter.Skip)
}

func (m *Manager) Unsubscribe(ch <-chan emitter.Event) {
	m.events.Off("item.*", ch)
}

func (m *Manager) emit(topic string, itemId string, url string) {
	m.events.Emit(topic, itemId, url)
}
