package controllers

import (
	"github.com/oebus/govee-bridge/internal/command"
	"github.com/oebus/govee-bridge/internal/model"
	"github.com/oebus/govee-bridge/internal/schema"
	"github.com/oebus/govee-bridge/internal/statecache"
)

// Base is the per-device view shared by every category controller. It
// reads the state cache and writes through the dispatcher; it never talks
// to the cloud client directly.
type Base struct {
	Device   model.Device
	Schema   *schema.DeviceSchema
	Cache    *statecache.Cache
	Dispatch *command.Dispatcher
}

func NewBase(dev model.Device, sch *schema.DeviceSchema, cache *statecache.Cache, dispatch *command.Dispatcher) Base {
	return Base{Device: dev, Schema: sch, Cache: cache, Dispatch: dispatch}
}

// Online reports cloud-side availability. Devices without the online
// capability are assumed reachable.
func (b *Base) Online() bool {
	v, ok := b.Cache.Get(b.Device.ID, model.CapOnline, model.InstanceOnline)
	if !ok {
		return true
	}
	switch n := v.(type) {
	case bool:
		return n
	case float64:
		return n != 0
	case string:
		return n == "true"
	default:
		return true
	}
}

// IntValue reads one cached capability value as an int.
func (b *Base) IntValue(typ model.CapabilityType, instance string) (int, bool) {
	v, ok := b.Cache.Get(b.Device.ID, typ, instance)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// RawValue reads one cached capability value untyped.
func (b *Base) RawValue(typ model.CapabilityType, instance string) (any, bool) {
	return b.Cache.Get(b.Device.ID, typ, instance)
}
