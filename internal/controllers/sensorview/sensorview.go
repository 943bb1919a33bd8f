package sensorview

import (
	"github.com/oebus/govee-bridge/internal/command"
	"github.com/oebus/govee-bridge/internal/controllers"
	"github.com/oebus/govee-bridge/internal/model"
	"github.com/oebus/govee-bridge/internal/schema"
	"github.com/oebus/govee-bridge/internal/statecache"
)

// View is the read-only sensor surface every device carries alongside its
// category controller. Property readings come from poll snapshots; event
// readings come from the push-event attribute overlay.
type View struct {
	controllers.Base
}

func New(dev model.Device, sch *schema.DeviceSchema, cache *statecache.Cache, dispatch *command.Dispatcher) *View {
	return &View{Base: controllers.NewBase(dev, sch, cache, dispatch)}
}

// Properties lists the device's advertised read-only property instances.
func (v *View) Properties() []string {
	return v.Schema.Properties
}

// Property returns the cached value of one property instance.
func (v *View) Property(instance string) (any, bool) {
	if !v.Schema.HasProperty(instance) {
		return nil, false
	}
	return v.RawValue(model.CapProperty, instance)
}

// EventField returns the last value delivered for one event field.
func (v *View) EventField(field string) (any, bool) {
	return v.Cache.Attr(v.Device.ID, field)
}

// HasEvent reports whether the device advertises the named event.
func (v *View) HasEvent(instance string) bool {
	return v.Schema.HasEvent(instance)
}
