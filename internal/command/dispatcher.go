package command

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/oebus/govee-bridge/internal/datadog"
	"github.com/oebus/govee-bridge/internal/goveeapi"
	"github.com/oebus/govee-bridge/internal/model"
	"github.com/oebus/govee-bridge/internal/statecache"
)

// API is the slice of the cloud client the dispatcher needs.
type API interface {
	Control(ctx context.Context, sku, device string, cmds []model.Command) ([]model.Capability, error)
}

var _ API = (*goveeapi.Client)(nil)

// Dispatcher sends capability commands and folds successful echoes back
// into the state cache. A failed send leaves the cache untouched, so reads
// keep reflecting the last state the device actually confirmed.
type Dispatcher struct {
	api   API
	cache *statecache.Cache
}

func New(api API, cache *statecache.Cache) *Dispatcher {
	return &Dispatcher{api: api, cache: cache}
}

// Send issues all commands for one device as a single control request.
// Command order is preserved on the wire; callers sequence dependent
// commands (power toggles last) themselves.
func (d *Dispatcher) Send(ctx context.Context, dev model.Device, cmds ...model.Command) error {
	echoes, err := d.api.Control(ctx, dev.SKU, dev.ID, cmds)
	if err != nil {
		datadog.Count("control.failures", 1, "device:"+dev.ID)
		log.Error().
			Err(err).
			Str("device", dev.ID).
			Int("commands", len(cmds)).
			Msg("Control request failed")
		return err
	}
	datadog.Count("control.successes", 1, "device:"+dev.ID)

	for _, echo := range echoes {
		d.cache.Patch(dev.ID, echo)
	}
	log.Debug().
		Str("device", dev.ID).
		Int("commands", len(cmds)).
		Int("echoes", len(echoes)).
		Msg("Control request applied")
	return nil
}
