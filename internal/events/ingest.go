package events

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/oebus/govee-bridge/internal/statecache"
)

// Ingestor turns raw webhook payloads into cache merges and bus
// notifications. Payloads for unknown devices or with no fields are
// ignored without error.
type Ingestor struct {
	cache *statecache.Cache
	bus   *Bus

	// onEvent, if set, observes every accepted event (journal, metrics).
	onEvent func(device string, fields map[string]any)
}

func NewIngestor(cache *statecache.Cache, bus *Bus) *Ingestor {
	return &Ingestor{cache: cache, bus: bus}
}

// OnEvent registers a hook called for each accepted event. Must be set
// before the webhook server starts.
func (i *Ingestor) OnEvent(fn func(device string, fields map[string]any)) {
	i.onEvent = fn
}

// Ingest processes one webhook body. The vendor wraps the event fields in
// an "event" object keyed by device id; everything beside the id merges
// field-level into the device's attributes.
func (i *Ingestor) Ingest(body []byte) {
	var payload struct {
		Event map[string]any `json:"event"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn().Err(err).Msg("Ignoring malformed event payload")
		return
	}
	if len(payload.Event) == 0 {
		log.Debug().Msg("Ignoring empty event payload")
		return
	}

	device, _ := payload.Event["device"].(string)
	if device == "" {
		log.Debug().Msg("Ignoring event without device id")
		return
	}

	fields := make(map[string]any, len(payload.Event))
	for k, v := range payload.Event {
		if k == "device" {
			continue
		}
		fields[k] = v
	}
	if len(fields) == 0 {
		log.Debug().Str("device", device).Msg("Ignoring event with no fields")
		return
	}

	if !i.cache.MergeEventFields(device, fields) {
		return
	}

	log.Info().
		Str("device", device).
		Int("fields", len(fields)).
		Msg("Device event ingested")
	if i.onEvent != nil {
		i.onEvent(device, fields)
	}
	i.bus.Publish(Notification{Device: device, Kind: KindDeviceEvent, Fields: fields})
}
