package light

import (
	"context"
	"fmt"

	"github.com/oebus/govee-bridge/internal/command"
	"github.com/oebus/govee-bridge/internal/controllers"
	"github.com/oebus/govee-bridge/internal/model"
	"github.com/oebus/govee-bridge/internal/schema"
	"github.com/oebus/govee-bridge/internal/statecache"
)

// Controller is the light-category device view. Reads come from the state
// cache; writes go through the dispatcher as a single control request per
// logical action.
type Controller struct {
	controllers.Base
}

func New(dev model.Device, sch *schema.DeviceSchema, cache *statecache.Cache, dispatch *command.Dispatcher) *Controller {
	return &Controller{Base: controllers.NewBase(dev, sch, cache, dispatch)}
}

// TurnOnOptions are the optional attributes applied together with power-on.
type TurnOnOptions struct {
	Brightness *int // host scale 0-255
	RGB        *[3]uint8
	TempK      *int
	Scene      string
}

// IsOn reports the cached power state.
func (c *Controller) IsOn() bool {
	if c.Schema.Power == nil {
		return false
	}
	v, ok := c.RawValue(model.CapOnOff, model.InstancePowerSwitch)
	return ok && c.Schema.Power.IsOn(v)
}

// Brightness returns the cached brightness on the host 0-255 scale.
func (c *Controller) Brightness() (int, bool) {
	if c.Schema.Brightness == nil {
		return 0, false
	}
	v, ok := c.IntValue(model.CapRange, model.InstanceBrightness)
	if !ok {
		return 0, false
	}
	return schema.BrightnessFromDevice(c.Schema.Brightness, v), true
}

// RGB returns the cached color, unpacked from the combined 24-bit value.
func (c *Controller) RGB() (r, g, b uint8, ok bool) {
	if !c.Schema.Color.RGB {
		return 0, 0, 0, false
	}
	v, ok := c.IntValue(model.CapColorSetting, model.InstanceColorRGB)
	if !ok {
		return 0, 0, 0, false
	}
	r, g, b = schema.DecodeRGB(v)
	return r, g, b, true
}

// ColorTempK returns the cached color temperature in Kelvin.
func (c *Controller) ColorTempK() (int, bool) {
	if !c.Schema.Color.Temp {
		return 0, false
	}
	return c.IntValue(model.CapColorSetting, model.InstanceColorTempK)
}

// Effect returns the name of the cached dynamic scene, if it resolves
// against the scene table.
func (c *Controller) Effect() (string, bool) {
	if c.Schema.Scenes == nil {
		return "", false
	}
	id, ok := c.IntValue(model.CapDynamicScene, model.InstanceLightScene)
	if !ok {
		return "", false
	}
	return c.Schema.Scenes.NameByID(id)
}

// Effects lists the selectable scene names.
func (c *Controller) Effects() []string {
	if c.Schema.Scenes == nil {
		return nil
	}
	return c.Schema.Scenes.Names()
}

// TurnOn powers the light on, bundling any requested attribute changes
// into the same control request. Power is ordered first so attribute
// commands land on an awake device.
func (c *Controller) TurnOn(ctx context.Context, opts TurnOnOptions) error {
	if c.Schema.Power == nil {
		return fmt.Errorf("%s has no power capability", c.Device.ID)
	}

	cmds := []model.Command{{
		Type:     model.CapOnOff,
		Instance: model.InstancePowerSwitch,
		Value:    c.Schema.Power.OnValue,
	}}

	if opts.Brightness != nil {
		cmd, err := c.brightnessCommand(*opts.Brightness)
		if err != nil {
			return err
		}
		cmds = append(cmds, cmd)
	}
	if opts.RGB != nil {
		if !c.Schema.Color.RGB {
			return fmt.Errorf("%s has no rgb capability", c.Device.ID)
		}
		cmds = append(cmds, model.Command{
			Type:     model.CapColorSetting,
			Instance: model.InstanceColorRGB,
			Value:    schema.EncodeRGB(opts.RGB[0], opts.RGB[1], opts.RGB[2]),
		})
	}
	if opts.TempK != nil {
		cmd, err := c.tempCommand(*opts.TempK)
		if err != nil {
			return err
		}
		cmds = append(cmds, cmd)
	}
	if opts.Scene != "" {
		if c.Schema.Scenes == nil {
			return fmt.Errorf("%s has no scene capability", c.Device.ID)
		}
		cmd, err := c.Schema.Scenes.Command(opts.Scene)
		if err != nil {
			return err
		}
		cmds = append(cmds, cmd)
	}

	return c.Dispatch.Send(ctx, c.Device, cmds...)
}

// TurnOff powers the light off.
func (c *Controller) TurnOff(ctx context.Context) error {
	if c.Schema.Power == nil {
		return fmt.Errorf("%s has no power capability", c.Device.ID)
	}
	return c.Dispatch.Send(ctx, c.Device, model.Command{
		Type:     model.CapOnOff,
		Instance: model.InstancePowerSwitch,
		Value:    c.Schema.Power.OffValue,
	})
}

// SetBrightness sets brightness from the host 0-255 scale.
func (c *Controller) SetBrightness(ctx context.Context, brightness int) error {
	cmd, err := c.brightnessCommand(brightness)
	if err != nil {
		return err
	}
	return c.Dispatch.Send(ctx, c.Device, cmd)
}

func (c *Controller) brightnessCommand(brightness int) (model.Command, error) {
	if c.Schema.Brightness == nil {
		return model.Command{}, fmt.Errorf("%s has no brightness capability", c.Device.ID)
	}
	if brightness < 0 || brightness > 255 {
		return model.Command{}, fmt.Errorf("brightness %d out of host range 0-255", brightness)
	}
	return model.Command{
		Type:     model.CapRange,
		Instance: model.InstanceBrightness,
		Value:    schema.BrightnessToDevice(c.Schema.Brightness, brightness),
	}, nil
}

// SetRGB sets the light's color.
func (c *Controller) SetRGB(ctx context.Context, r, g, b uint8) error {
	if !c.Schema.Color.RGB {
		return fmt.Errorf("%s has no rgb capability", c.Device.ID)
	}
	return c.Dispatch.Send(ctx, c.Device, model.Command{
		Type:     model.CapColorSetting,
		Instance: model.InstanceColorRGB,
		Value:    schema.EncodeRGB(r, g, b),
	})
}

// SetColorTempK sets the color temperature, rejecting values outside the
// advertised range before anything goes on the wire.
func (c *Controller) SetColorTempK(ctx context.Context, kelvin int) error {
	cmd, err := c.tempCommand(kelvin)
	if err != nil {
		return err
	}
	return c.Dispatch.Send(ctx, c.Device, cmd)
}

func (c *Controller) tempCommand(kelvin int) (model.Command, error) {
	if !c.Schema.Color.Temp {
		return model.Command{}, fmt.Errorf("%s has no color temperature capability", c.Device.ID)
	}
	if kelvin < c.Schema.Color.TempMin || kelvin > c.Schema.Color.TempMax {
		return model.Command{}, fmt.Errorf("color temperature %dK outside advertised range %d-%d",
			kelvin, c.Schema.Color.TempMin, c.Schema.Color.TempMax)
	}
	return model.Command{
		Type:     model.CapColorSetting,
		Instance: model.InstanceColorTempK,
		Value:    kelvin,
	}, nil
}

// SetEffect activates a named dynamic scene.
func (c *Controller) SetEffect(ctx context.Context, name string) error {
	if c.Schema.Scenes == nil {
		return fmt.Errorf("%s has no scene capability", c.Device.ID)
	}
	cmd, err := c.Schema.Scenes.Command(name)
	if err != nil {
		return err
	}
	return c.Dispatch.Send(ctx, c.Device, cmd)
}

// SetMusicMode activates a named music-reactive mode.
func (c *Controller) SetMusicMode(ctx context.Context, name string) error {
	if c.Schema.Music == nil {
		return fmt.Errorf("%s has no music capability", c.Device.ID)
	}
	cmd, err := c.Schema.Music.Command(name)
	if err != nil {
		return err
	}
	return c.Dispatch.Send(ctx, c.Device, cmd)
}

// ApplySnapshot recalls a snapshot saved in the vendor app by its id.
func (c *Controller) ApplySnapshot(ctx context.Context, id int) error {
	return c.Dispatch.Send(ctx, c.Device, model.Command{
		Type:     model.CapDynamicScene,
		Instance: model.InstanceSnapshot,
		Value:    id,
	})
}

// SetSegmentRGB colors a set of strip segments.
func (c *Controller) SetSegmentRGB(ctx context.Context, segments []int, r, g, b uint8) error {
	if !c.Schema.SegmentControl {
		return fmt.Errorf("%s has no segment capability", c.Device.ID)
	}
	return c.Dispatch.Send(ctx, c.Device, model.Command{
		Type:     model.CapSegmentColor,
		Instance: model.InstanceSegmentRGB,
		Value: map[string]any{
			"segment": segments,
			"rgb":     schema.EncodeRGB(r, g, b),
		},
	})
}

// SetSegmentBrightness dims a set of strip segments.
func (c *Controller) SetSegmentBrightness(ctx context.Context, segments []int, brightness int) error {
	if !c.Schema.SegmentControl {
		return fmt.Errorf("%s has no segment capability", c.Device.ID)
	}
	return c.Dispatch.Send(ctx, c.Device, model.Command{
		Type:     model.CapSegmentColor,
		Instance: model.InstanceSegmentBright,
		Value: map[string]any{
			"segment":    segments,
			"brightness": brightness,
		},
	})
}
