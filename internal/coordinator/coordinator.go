package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/oebus/govee-bridge/internal/events"
	"github.com/oebus/govee-bridge/internal/goveeapi"
	"github.com/oebus/govee-bridge/internal/model"
	"github.com/oebus/govee-bridge/internal/statecache"
)

// API is the slice of the cloud client the coordinator needs.
type API interface {
	DeviceState(ctx context.Context, sku, device string) ([]model.Capability, error)
}

var _ API = (*goveeapi.Client)(nil)

// Coordinator owns one device's poll loop. Each cycle fetches the full
// capability snapshot with a per-call timeout; success replaces the cached
// snapshot and notifies subscribers, failure records the error and leaves
// the cache untouched until the next cycle.
type Coordinator struct {
	api     API
	cache   *statecache.Cache
	bus     *events.Bus
	dev     model.Device
	timeout time.Duration

	mu       sync.Mutex
	interval time.Duration
	lastErr  error
	lastOK   time.Time

	// onRefresh, if set, observes the outcome of every cycle.
	onRefresh func(dev model.Device, took time.Duration, err error)

	stop    chan struct{}
	stopped chan struct{}
}

func New(api API, cache *statecache.Cache, bus *events.Bus, dev model.Device, interval, timeout time.Duration) *Coordinator {
	return &Coordinator{
		api:      api,
		cache:    cache,
		bus:      bus,
		dev:      dev,
		timeout:  timeout,
		interval: interval,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// OnRefresh registers a hook called after each cycle. Must be set before
// Start.
func (c *Coordinator) OnRefresh(fn func(dev model.Device, took time.Duration, err error)) {
	c.onRefresh = fn
}

// Start launches the poll loop. The first cycle fires after one interval;
// callers wanting an immediate snapshot call Refresh first.
func (c *Coordinator) Start() {
	go c.run()
}

// Stop halts the poll loop and waits for the in-flight cycle, if any.
func (c *Coordinator) Stop() {
	close(c.stop)
	<-c.stopped
}

func (c *Coordinator) run() {
	defer close(c.stopped)
	log.Debug().
		Str("device", c.dev.ID).
		Dur("interval", c.Interval()).
		Msg("Poll loop started")

	timer := time.NewTimer(c.Interval())
	defer timer.Stop()

	for {
		select {
		case <-c.stop:
			log.Debug().Str("device", c.dev.ID).Msg("Poll loop stopped")
			return
		case <-timer.C:
			c.Refresh(context.Background())
			timer.Reset(c.Interval())
		}
	}
}

// Refresh runs one fetch cycle synchronously and reports its outcome. The
// cache only changes on success; unauthorized or rate-limited responses
// count as a failed cycle and resolve on a later attempt.
func (c *Coordinator) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	caps, err := c.api.DeviceState(ctx, c.dev.SKU, c.dev.ID)
	took := time.Since(start)

	c.mu.Lock()
	c.lastErr = err
	if err == nil {
		c.lastOK = start
	}
	c.mu.Unlock()

	if c.onRefresh != nil {
		c.onRefresh(c.dev, took, err)
	}

	if err != nil {
		log.Warn().
			Err(err).
			Str("device", c.dev.ID).
			Dur("took", took).
			Msg("State refresh failed, keeping last known state")
		return err
	}

	c.cache.Replace(c.dev.ID, caps)
	c.bus.Publish(events.Notification{Device: c.dev.ID, Kind: events.KindStateRefreshed})
	log.Debug().
		Str("device", c.dev.ID).
		Int("capabilities", len(caps)).
		Dur("took", took).
		Msg("State refreshed")
	return nil
}

// Interval returns the current poll interval.
func (c *Coordinator) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// SetInterval changes the poll interval. It takes effect after the cycle
// currently being waited on.
func (c *Coordinator) SetInterval(d time.Duration) {
	c.mu.Lock()
	c.interval = d
	c.mu.Unlock()
	log.Info().Str("device", c.dev.ID).Dur("interval", d).Msg("Poll interval changed")
}

// LastError returns the error from the most recent cycle, nil after a
// successful one.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// LastSuccess returns when the device last refreshed successfully.
func (c *Coordinator) LastSuccess() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOK
}
