package progress

import (
	"sync"

	"github.com/ytget/mediadl/internal/model"
)

// Mailbox holds only the most recent event. Publish overwrites it and
// never blocks; readers poll Latest or wait on Notify.
type Mailbox struct {
	mu     sync.Mutex
	latest model.ProgressEvent
	has    bool
	notify chan struct{}
}

// NewMailbox creates an empty mailbox
func NewMailbox() *Mailbox {
	return &Mailbox{notify: make(chan struct{}, 1)}
}

// Publish stores ev as the latest event and signals waiting readers
func (m *Mailbox) Publish(ev model.ProgressEvent) {
	m.mu.Lock()
	m.latest = ev
	m.has = true
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Latest returns the most recent event and whether one was published
func (m *Mailbox) Latest() (model.ProgressEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest, m.has
}

// Notify returns a channel that receives after each Publish.
// Bursts coalesce into a single signal.
func (m *Mailbox) Notify() <-chan struct{} {
	return m.notify
}
