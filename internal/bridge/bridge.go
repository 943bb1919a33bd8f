package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/oebus/govee-bridge/internal/command"
	"github.com/oebus/govee-bridge/internal/config"
	"github.com/oebus/govee-bridge/internal/controllers/fan"
	"github.com/oebus/govee-bridge/internal/controllers/humidifier"
	"github.com/oebus/govee-bridge/internal/controllers/light"
	"github.com/oebus/govee-bridge/internal/controllers/sensorview"
	"github.com/oebus/govee-bridge/internal/coordinator"
	"github.com/oebus/govee-bridge/internal/datadog"
	"github.com/oebus/govee-bridge/internal/events"
	"github.com/oebus/govee-bridge/internal/goveeapi"
	"github.com/oebus/govee-bridge/internal/model"
	"github.com/oebus/govee-bridge/internal/mqtt"
	"github.com/oebus/govee-bridge/internal/notifications"
	"github.com/oebus/govee-bridge/internal/schema"
	"github.com/oebus/govee-bridge/internal/statecache"
	"github.com/oebus/govee-bridge/internal/store"
)

// ErrNeedsReconfiguration wraps an unauthorized response hit during setup.
// The operator must fix the API key; restarting without that will not help.
var ErrNeedsReconfiguration = errors.New("bridge needs reconfiguration")

// Bridge is one integration instance. It owns the cloud client, state
// cache, event bus, journal, and the per-device coordinators and
// controllers; its lifecycle is Start then Stop.
type Bridge struct {
	cfg    *config.Config
	client *goveeapi.Client
	cache  *statecache.Cache
	bus    *events.Bus
	db     *store.Store
	mirror *mqtt.Publisher
	server *events.Server

	devices      []model.Device
	schemas      map[string]*schema.DeviceSchema
	coordinators map[string]*coordinator.Coordinator

	lights      map[string]*light.Controller
	fans        map[string]*fan.Controller
	humidifiers map[string]*humidifier.Controller
	sensors     map[string]*sensorview.View
}

func New(cfg *config.Config) *Bridge {
	return &Bridge{
		cfg:          cfg,
		client:       goveeapi.New(cfg.BaseURL, cfg.APIKey, time.Duration(cfg.TimeoutSeconds)*time.Second),
		cache:        statecache.New(),
		bus:          events.NewBus(),
		schemas:      map[string]*schema.DeviceSchema{},
		coordinators: map[string]*coordinator.Coordinator{},
		lights:       map[string]*light.Controller{},
		fans:         map[string]*fan.Controller{},
		humidifiers:  map[string]*humidifier.Controller{},
		sensors:      map[string]*sensorview.View{},
	}
}

// Start brings the instance up: opens the journal, lists devices, fetches
// every device's initial state synchronously, then starts poll loops, the
// webhook server, and the optional MQTT mirror. An unauthorized response
// anywhere in this path is fatal and wrapped as ErrNeedsReconfiguration.
func (b *Bridge) Start(ctx context.Context) error {
	db, err := store.Open(b.cfg.DatabaseFile)
	if err != nil {
		return err
	}
	b.db = db
	b.client.OnRequest(func(day string, total int) {
		datadog.Count("api.requests", 1)
		if err := b.db.BumpRequestCount(day, total); err != nil {
			log.Warn().Err(err).Msg("Failed to journal request count")
		}
	})

	devices, err := b.client.Devices(ctx)
	if err != nil {
		if errors.Is(err, goveeapi.ErrUnauthorized) {
			return fmt.Errorf("%w: %w", ErrNeedsReconfiguration, err)
		}
		return fmt.Errorf("device listing failed: %w", err)
	}
	if len(devices) == 0 {
		log.Warn().Msg("Account has no devices")
	}
	b.devices = devices

	mirror, err := mqtt.Connect(b.cfg)
	if err != nil {
		db.Close()
		return err
	}
	b.mirror = mirror

	for i := range b.devices {
		if err := b.registerDevice(ctx, &b.devices[i]); err != nil {
			b.teardown()
			return err
		}
	}

	ingestor := events.NewIngestor(b.cache, b.bus)
	ingestor.OnEvent(func(device string, fields map[string]any) {
		datadog.Count("events.ingested", 1, "device:"+device)
		if err := b.db.RecordEvent(device, fields); err != nil {
			log.Warn().Err(err).Str("device", device).Msg("Failed to journal event")
		}
		b.mirror.PublishEvent(device, fields)
		if full, ok := fields[model.InstanceWaterFull].(bool); ok && full {
			if err := notifications.Send("Govee bridge", b.deviceName(device)+" water tank is full"); err != nil {
				log.Warn().Err(err).Str("device", device).Msg("Failed to send water-full notification")
			}
		}
	})
	b.server = events.NewServer(b.cfg.WebhookAddr, ingestor)
	b.server.Start()

	for _, c := range b.coordinators {
		c.Start()
	}

	log.Info().
		Int("devices", len(b.devices)).
		Int("poll_interval_seconds", b.cfg.PollIntervalSeconds).
		Msg("Bridge started")
	return nil
}

// registerDevice enriches, parses, primes, and wires one device. The
// initial state fetch is synchronous so the device is never visible with
// an empty cache.
func (b *Bridge) registerDevice(ctx context.Context, dev *model.Device) error {
	log.Info().
		Str("device", dev.ID).
		Str("sku", dev.SKU).
		Str("name", dev.Name).
		Str("type", string(dev.Type)).
		Msg("Registering device")

	if dev.Type == model.DeviceTypeLight {
		b.enrichScenes(ctx, dev)
	}

	sch := schema.Parse(*dev)
	b.schemas[dev.ID] = sch
	b.cache.Register(dev.ID)

	caps, err := b.client.DeviceState(ctx, dev.SKU, dev.ID)
	if err != nil {
		if errors.Is(err, goveeapi.ErrUnauthorized) {
			return fmt.Errorf("%w: %w", ErrNeedsReconfiguration, err)
		}
		return fmt.Errorf("initial state fetch for %s failed: %w", dev.ID, err)
	}
	b.cache.Replace(dev.ID, caps)

	if len(sch.Events) > 0 {
		if err := b.client.SubscribeEvents(ctx, dev.SKU, dev.ID); err != nil {
			log.Warn().Err(err).Str("device", dev.ID).Msg("Event subscription failed, relying on polls")
		}
	}

	dispatch := command.New(b.client, b.cache)
	switch dev.Type {
	case model.DeviceTypeLight:
		b.lights[dev.ID] = light.New(*dev, sch, b.cache, dispatch)
	case model.DeviceTypeFan, model.DeviceTypeAirPurifier:
		b.fans[dev.ID] = fan.New(*dev, sch, b.cache, dispatch)
	case model.DeviceTypeHumidifier, model.DeviceTypeDehumidifier:
		b.humidifiers[dev.ID] = humidifier.New(*dev, sch, b.cache, dispatch)
	}
	b.sensors[dev.ID] = sensorview.New(*dev, sch, b.cache, dispatch)

	coord := coordinator.New(
		b.client, b.cache, b.bus, *dev,
		time.Duration(b.cfg.PollIntervalSeconds)*time.Second,
		time.Duration(b.cfg.TimeoutSeconds)*time.Second,
	)
	coord.OnRefresh(func(dev model.Device, took time.Duration, refreshErr error) {
		datadog.Gauge("poll.duration_ms", float64(took.Milliseconds()), "device:"+dev.ID)
		if refreshErr != nil {
			datadog.Count("poll.failures", 1, "device:"+dev.ID)
		} else {
			b.mirror.PublishState(dev.ID, b.cache.Capabilities(dev.ID))
		}
		if err := b.db.RecordRefresh(dev.ID, dev.SKU, took, refreshErr); err != nil {
			log.Warn().Err(err).Str("device", dev.ID).Msg("Failed to journal refresh")
		}
	})
	b.coordinators[dev.ID] = coord
	return nil
}

// enrichScenes folds the SKU's live scene listing into the device's
// capability list before parsing. Failure is non-fatal; the curated
// catalog still applies.
func (b *Bridge) enrichScenes(ctx context.Context, dev *model.Device) {
	caps, err := b.client.Scenes(ctx, dev.SKU, dev.ID)
	if err != nil {
		log.Warn().Err(err).Str("device", dev.ID).Msg("Scene fetch failed, using catalog only")
		return
	}

	for _, fetched := range caps {
		replaced := false
		for i := range dev.Capabilities {
			if dev.Capabilities[i].Type == fetched.Type && dev.Capabilities[i].Instance == fetched.Instance {
				dev.Capabilities[i].Parameters = fetched.Parameters
				replaced = true
				break
			}
		}
		if !replaced {
			dev.Capabilities = append(dev.Capabilities, fetched)
		}
	}
	log.Debug().Str("device", dev.ID).Int("capabilities", len(caps)).Msg("Scene listing merged")
}

func (b *Bridge) deviceName(device string) string {
	for _, dev := range b.devices {
		if dev.ID == device {
			return dev.Name
		}
	}
	return device
}

// Stop tears the instance down in reverse start order.
func (b *Bridge) Stop(ctx context.Context) {
	for _, c := range b.coordinators {
		c.Stop()
	}
	if b.server != nil {
		if err := b.server.Stop(ctx); err != nil {
			log.Warn().Err(err).Msg("Webhook server shutdown failed")
		}
	}
	b.teardown()
	log.Info().Msg("Bridge stopped")
}

func (b *Bridge) teardown() {
	if b.mirror != nil {
		b.mirror.Close()
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			log.Warn().Err(err).Msg("Journal close failed")
		}
	}
}

// SetPollInterval changes the poll interval for every device at runtime.
func (b *Bridge) SetPollInterval(d time.Duration) {
	for _, c := range b.coordinators {
		c.SetInterval(d)
	}
}

// Devices returns the registered device listing.
func (b *Bridge) Devices() []model.Device {
	return b.devices
}

// Schema returns the parsed capability schema for one device.
func (b *Bridge) Schema(device string) (*schema.DeviceSchema, bool) {
	s, ok := b.schemas[device]
	return s, ok
}

// Subscribe follows state and event notifications for one device.
func (b *Bridge) Subscribe(device string) <-chan events.Notification {
	return b.bus.Subscribe(device)
}

// Light returns the light controller for a device, if it is one.
func (b *Bridge) Light(device string) (*light.Controller, bool) {
	c, ok := b.lights[device]
	return c, ok
}

// Fan returns the fan controller for a device, if it is one.
func (b *Bridge) Fan(device string) (*fan.Controller, bool) {
	c, ok := b.fans[device]
	return c, ok
}

// Humidifier returns the humidifier controller for a device, if it is one.
func (b *Bridge) Humidifier(device string) (*humidifier.Controller, bool) {
	c, ok := b.humidifiers[device]
	return c, ok
}

// Sensors returns the read-only sensor view every device carries.
func (b *Bridge) Sensors(device string) (*sensorview.View, bool) {
	v, ok := b.sensors[device]
	return v, ok
}

// RequestsToday surfaces the client's daily request counter.
func (b *Bridge) RequestsToday() int {
	return b.client.RequestsToday()
}
