package fan

import (
	"context"
	"fmt"

	"github.com/oebus/govee-bridge/internal/command"
	"github.com/oebus/govee-bridge/internal/controllers"
	"github.com/oebus/govee-bridge/internal/model"
	"github.com/oebus/govee-bridge/internal/schema"
	"github.com/oebus/govee-bridge/internal/statecache"
)

// Controller is the fan and air-purifier device view. Speed and preset
// selection both ride the work-mode table; air quality and filter life are
// read-only properties surfaced from the cache.
type Controller struct {
	controllers.Base
}

func New(dev model.Device, sch *schema.DeviceSchema, cache *statecache.Cache, dispatch *command.Dispatcher) *Controller {
	return &Controller{Base: controllers.NewBase(dev, sch, cache, dispatch)}
}

// IsOn reports the cached power state.
func (c *Controller) IsOn() bool {
	if c.Schema.Power == nil {
		return false
	}
	v, ok := c.RawValue(model.CapOnOff, model.InstancePowerSwitch)
	return ok && c.Schema.Power.IsOn(v)
}

// TurnOn powers the fan on.
func (c *Controller) TurnOn(ctx context.Context) error {
	return c.setPower(ctx, true)
}

// TurnOff powers the fan off.
func (c *Controller) TurnOff(ctx context.Context) error {
	return c.setPower(ctx, false)
}

func (c *Controller) setPower(ctx context.Context, on bool) error {
	if c.Schema.Power == nil {
		return fmt.Errorf("%s has no power capability", c.Device.ID)
	}
	value := c.Schema.Power.OffValue
	if on {
		value = c.Schema.Power.OnValue
	}
	return c.Dispatch.Send(ctx, c.Device, model.Command{
		Type:     model.CapOnOff,
		Instance: model.InstancePowerSwitch,
		Value:    value,
	})
}

// PresetModes lists the selectable work modes.
func (c *Controller) PresetModes() []string {
	if c.Schema.WorkModes == nil {
		return nil
	}
	return c.Schema.WorkModes.Names()
}

// PresetMode returns the cached work mode's name.
func (c *Controller) PresetMode() string {
	if c.Schema.WorkModes == nil {
		return schema.ModeUnknown
	}
	v, ok := c.RawValue(model.CapWorkMode, model.InstanceWorkMode)
	if !ok {
		return schema.ModeUnknown
	}
	return c.Schema.WorkModes.NameFor(v)
}

// SetPresetMode selects a named work mode.
func (c *Controller) SetPresetMode(ctx context.Context, name string) error {
	if c.Schema.WorkModes == nil {
		return fmt.Errorf("%s has no work mode capability", c.Device.ID)
	}
	cmd, err := c.Schema.WorkModes.Command(name)
	if err != nil {
		return err
	}
	return c.Dispatch.Send(ctx, c.Device, cmd)
}

// SetCustomMode sends a raw work-mode pair for modes the advertised table
// does not name.
func (c *Controller) SetCustomMode(ctx context.Context, workMode, modeValue int) error {
	return c.Dispatch.Send(ctx, c.Device, model.Command{
		Type:     model.CapWorkMode,
		Instance: model.InstanceWorkMode,
		Value: map[string]any{
			"workMode":  workMode,
			"modeValue": modeValue,
		},
	})
}

// FilterLife returns the cached filter life percentage.
func (c *Controller) FilterLife() (int, bool) {
	if !c.Schema.HasProperty(model.InstanceFilterLife) {
		return 0, false
	}
	return c.IntValue(model.CapProperty, model.InstanceFilterLife)
}

// AirQuality returns the cached air quality reading.
func (c *Controller) AirQuality() (int, bool) {
	if !c.Schema.HasProperty(model.InstanceAirQuality) {
		return 0, false
	}
	return c.IntValue(model.CapProperty, model.InstanceAirQuality)
}
