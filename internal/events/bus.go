package events

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Notification kinds published on the bus.
const (
	KindStateRefreshed = "state_refreshed"
	KindDeviceEvent    = "device_event"
)

// Notification tells subscribers that something changed for one device.
// Fields is only populated for push events; refresh notifications carry
// none, subscribers re-read the cache instead.
type Notification struct {
	Device string
	Kind   string
	Fields map[string]any
}

// Bus fans notifications out to per-device subscribers. Publish never
// blocks; a subscriber that falls behind loses notifications rather than
// stalling the poll loop.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]chan Notification
}

func NewBus() *Bus {
	return &Bus{subs: map[string][]chan Notification{}}
}

// Subscribe returns a channel receiving notifications for one device.
func (b *Bus) Subscribe(device string) <-chan Notification {
	ch := make(chan Notification, 16)
	b.mu.Lock()
	b.subs[device] = append(b.subs[device], ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers a notification to every subscriber of its device.
func (b *Bus) Publish(n Notification) {
	b.mu.RLock()
	subs := b.subs[n.Device]
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- n:
		default:
			log.Warn().
				Str("device", n.Device).
				Str("kind", n.Kind).
				Msg("Dropping notification for slow subscriber")
		}
	}
}
