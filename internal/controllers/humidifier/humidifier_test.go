package humidifier

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oebus/govee-bridge/internal/command"
	"github.com/oebus/govee-bridge/internal/model"
	"github.com/oebus/govee-bridge/internal/schema"
	"github.com/oebus/govee-bridge/internal/statecache"
)

type fakeAPI struct {
	calls   int
	gotCmds []model.Command
}

func (f *fakeAPI) Control(_ context.Context, _, _ string, cmds []model.Command) ([]model.Capability, error) {
	f.calls++
	f.gotCmds = cmds
	echoes := make([]model.Capability, 0, len(cmds))
	for _, cmd := range cmds {
		echoes = append(echoes, model.EchoCapability(cmd.Type, cmd.Instance, cmd.Value))
	}
	return echoes, nil
}

func testHumidifier(t *testing.T, api *fakeAPI) (*Controller, *statecache.Cache) {
	t.Helper()

	dev := model.Device{
		ID:   "h1",
		SKU:  "H7141",
		Type: model.DeviceTypeHumidifier,
		Capabilities: []model.Capability{
			{
				Type:       model.CapOnOff,
				Instance:   model.InstancePowerSwitch,
				Parameters: json.RawMessage(`{"options":[{"name":"on","value":1},{"name":"off","value":0}]}`),
			},
			{
				Type:       model.CapRange,
				Instance:   model.InstanceHumidity,
				Parameters: json.RawMessage(`{"range":{"min":40,"max":80}}`),
			},
			{
				Type:     model.CapWorkMode,
				Instance: model.InstanceWorkMode,
				Parameters: json.RawMessage(`{"fields":[
					{"fieldName":"workMode","options":[{"name":"Auto","value":3},{"name":"Custom","value":2}]},
					{"fieldName":"modeValue","options":[{"name":"Auto","value":0}]}
				]}`),
			},
			{Type: model.CapEvent, Instance: model.InstanceWaterFull},
		},
	}
	sch := schema.Parse(dev)

	cache := statecache.New()
	cache.Register("h1")
	return New(dev, sch, cache, command.New(api, cache)), cache
}

func TestSetHumidityRejectsOutOfBoundsWithoutSending(t *testing.T) {
	api := &fakeAPI{}
	c, _ := testHumidifier(t, api)

	assert.Error(t, c.SetHumidity(context.Background(), 39))
	assert.Error(t, c.SetHumidity(context.Background(), 81))
	assert.Equal(t, 0, api.calls, "out-of-range setpoint must not reach the wire")

	require.NoError(t, c.SetHumidity(context.Background(), 55))
	assert.Equal(t, 1, api.calls)

	target, ok := c.TargetHumidity()
	require.True(t, ok)
	assert.Equal(t, 55, target)
}

func TestHumidityBounds(t *testing.T) {
	c, _ := testHumidifier(t, &fakeAPI{})

	min, max, ok := c.HumidityBounds()
	require.True(t, ok)
	assert.Equal(t, 40, min)
	assert.Equal(t, 80, max)
}

func TestModes(t *testing.T) {
	api := &fakeAPI{}
	c, _ := testHumidifier(t, api)

	assert.Equal(t, []string{"Auto", "Custom"}, c.Modes())
	assert.Equal(t, schema.ModeUnknown, c.Mode())

	require.NoError(t, c.SetMode(context.Background(), "Auto"))
	assert.Equal(t, "Auto", c.Mode())
}

func TestWaterFullFromEventOverlay(t *testing.T) {
	c, cache := testHumidifier(t, &fakeAPI{})
	assert.False(t, c.WaterFull())

	require.True(t, cache.MergeEventFields("h1", map[string]any{model.InstanceWaterFull: true}))
	assert.True(t, c.WaterFull())

	require.True(t, cache.MergeEventFields("h1", map[string]any{model.InstanceWaterFull: false}))
	assert.False(t, c.WaterFull())
}

func TestDismissWaterAlert(t *testing.T) {
	c, cache := testHumidifier(t, &fakeAPI{})

	require.True(t, cache.MergeEventFields("h1", map[string]any{model.InstanceWaterFull: true}))
	require.True(t, c.WaterFull())

	c.DismissWaterAlert()
	assert.False(t, c.WaterFull())
}

func TestSetCustomMode(t *testing.T) {
	api := &fakeAPI{}
	c, _ := testHumidifier(t, api)

	require.NoError(t, c.SetCustomMode(context.Background(), 2, 45))
	require.Len(t, api.gotCmds, 1)
	assert.Equal(t, map[string]any{"workMode": 2, "modeValue": 45}, api.gotCmds[0].Value)
}

func TestPowerRoundTrip(t *testing.T) {
	api := &fakeAPI{}
	c, _ := testHumidifier(t, api)

	require.NoError(t, c.TurnOn(context.Background()))
	assert.True(t, c.IsOn())

	require.NoError(t, c.TurnOff(context.Background()))
	assert.False(t, c.IsOn())
}
