package humidifier

import (
	"context"
	"fmt"

	"github.com/oebus/govee-bridge/internal/command"
	"github.com/oebus/govee-bridge/internal/controllers"
	"github.com/oebus/govee-bridge/internal/model"
	"github.com/oebus/govee-bridge/internal/schema"
	"github.com/oebus/govee-bridge/internal/statecache"
)

// Controller is the humidifier and dehumidifier device view. Target
// humidity is bounds-checked against the advertised range before anything
// is sent; the water-full condition arrives via push events as a flat
// attribute, not through the capability list.
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

// TurnOn powers the device on.
func (c *Controller) TurnOn(ctx context.Context) error {
	return c.setPower(ctx, true)
}

// TurnOff powers the device off.
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

// Modes lists the selectable work modes.
func (c *Controller) Modes() []string {
	if c.Schema.WorkModes == nil {
		return nil
	}
	return c.Schema.WorkModes.Names()
}

// Mode returns the cached work mode's name.
func (c *Controller) Mode() string {
	if c.Schema.WorkModes == nil {
		return schema.ModeUnknown
	}
	v, ok := c.RawValue(model.CapWorkMode, model.InstanceWorkMode)
	if !ok {
		return schema.ModeUnknown
	}
	return c.Schema.WorkModes.NameFor(v)
}

// SetMode selects a named work mode.
func (c *Controller) SetMode(ctx context.Context, name string) error {
	if c.Schema.WorkModes == nil {
		return fmt.Errorf("%s has no work mode capability", c.Device.ID)
	}
	cmd, err := c.Schema.WorkModes.Command(name)
	if err != nil {
		return err
	}
	return c.Dispatch.Send(ctx, c.Device, cmd)
}

// TargetHumidity returns the cached humidity setpoint.
func (c *Controller) TargetHumidity() (int, bool) {
	if c.Schema.Humidity == nil {
		return 0, false
	}
	return c.IntValue(model.CapRange, model.InstanceHumidity)
}

// HumidityBounds returns the advertised setpoint range.
func (c *Controller) HumidityBounds() (min, max int, ok bool) {
	if c.Schema.Humidity == nil {
		return 0, 0, false
	}
	return c.Schema.Humidity.Min, c.Schema.Humidity.Max, true
}

// SetHumidity sets the target humidity. Values outside the advertised
// range are rejected without sending a command.
func (c *Controller) SetHumidity(ctx context.Context, target int) error {
	if c.Schema.Humidity == nil {
		return fmt.Errorf("%s has no humidity capability", c.Device.ID)
	}
	if !c.Schema.Humidity.Contains(target) {
		return fmt.Errorf("humidity %d outside advertised range %d-%d",
			target, c.Schema.Humidity.Min, c.Schema.Humidity.Max)
	}
	return c.Dispatch.Send(ctx, c.Device, model.Command{
		Type:     model.CapRange,
		Instance: model.InstanceHumidity,
		Value:    target,
	})
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

// DismissWaterAlert clears the locally held tank-full flag. The device
// itself clears the condition physically; this only resets the overlay
// until the next event.
func (c *Controller) DismissWaterAlert() {
	c.Cache.MergeEventFields(c.Device.ID, map[string]any{model.InstanceWaterFull: false})
}

// WaterFull reports whether the tank-full condition is set. The flag only
// arrives via push events, as a flat attribute overlay.
func (c *Controller) WaterFull() bool {
	v, ok := c.Cache.Attr(c.Device.ID, model.InstanceWaterFull)
	if !ok {
		return false
	}
	switch n := v.(type) {
	case bool:
		return n
	case float64:
		return n != 0
	default:
		return false
	}
}
