package statecache

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/oebus/govee-bridge/internal/model"
)

// Cache is the in-memory last-known state for every registered device.
// Readers never block on vendor I/O; they see whatever the most recent
// refresh, control echo, or push event left behind.
type Cache struct {
	mu sync.RWMutex

	// caps holds full capability snapshots per device, written by poll
	// refreshes and patched by control echoes.
	caps map[string][]model.Capability

	// attrs holds loose event-delivered fields per device. Push events
	// carry flat fields rather than capability snapshots, so they overlay
	// here instead of rewriting caps.
	attrs map[string]map[string]any
}

func New() *Cache {
	return &Cache{
		caps:  map[string][]model.Capability{},
		attrs: map[string]map[string]any{},
	}
}

// Register makes a device known to the cache with no state yet.
func (c *Cache) Register(device string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.caps[device]; !ok {
		c.caps[device] = nil
	}
	if _, ok := c.attrs[device]; !ok {
		c.attrs[device] = map[string]any{}
	}
}

// Replace swaps in a full capability snapshot for a device, as produced by
// a successful state refresh.
func (c *Cache) Replace(device string, caps []model.Capability) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.caps[device] = caps
	if _, ok := c.attrs[device]; !ok {
		c.attrs[device] = map[string]any{}
	}
}

// Patch upserts a single capability snapshot by (type, instance). Existing
// entries are replaced in place; new ones are appended. Used to fold
// control echoes into state without waiting for the next poll.
func (c *Cache) Patch(device string, cap model.Capability) {
	c.mu.Lock()
	defer c.mu.Unlock()

	caps := c.caps[device]
	for i := range caps {
		if caps[i].Type == cap.Type && caps[i].Instance == cap.Instance {
			caps[i].State = cap.State
			return
		}
	}
	c.caps[device] = append(caps, cap)
}

// Get returns the current value of one capability instance, or false when
// the device has no cached value for it.
func (c *Cache) Get(device string, typ model.CapabilityType, instance string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, cap := range c.caps[device] {
		if cap.Type == typ && cap.Instance == instance {
			return cap.State.Value(instance)
		}
	}
	return nil, false
}

// Capabilities returns a copy of the device's current capability snapshot.
func (c *Cache) Capabilities(device string) []model.Capability {
	c.mu.RLock()
	defer c.mu.RUnlock()

	caps := c.caps[device]
	out := make([]model.Capability, len(caps))
	copy(out, caps)
	return out
}

// MergeEventFields overlays push-event fields onto a device's attributes.
// Returns false when the device is not registered; the event is then
// dropped by the caller.
func (c *Cache) MergeEventFields(device string, fields map[string]any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	attrs, ok := c.attrs[device]
	if !ok {
		log.Debug().Str("device", device).Msg("Dropping event for unregistered device")
		return false
	}
	for k, v := range fields {
		attrs[k] = v
	}
	return true
}

// Attr returns one event-delivered attribute for a device.
func (c *Cache) Attr(device, field string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.attrs[device][field]
	return v, ok
}
