package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oebus/govee-bridge/internal/model"
)

func lightDevice() model.Device {
	return model.Device{
		ID:   "AA:BB:CC:DD:EE:FF:00:11",
		SKU:  "H6159",
		Type: model.DeviceTypeLight,
		Name: "Desk strip",
		Capabilities: []model.Capability{
			{
				Type:       model.CapOnOff,
				Instance:   model.InstancePowerSwitch,
				Parameters: json.RawMessage(`{"options":[{"name":"on","value":1},{"name":"off","value":0}]}`),
			},
			{
				Type:       model.CapRange,
				Instance:   model.InstanceBrightness,
				Parameters: json.RawMessage(`{"range":{"min":1,"max":100}}`),
			},
			{
				Type:     model.CapColorSetting,
				Instance: model.InstanceColorRGB,
			},
			{
				Type:       model.CapColorSetting,
				Instance:   model.InstanceColorTempK,
				Parameters: json.RawMessage(`{"range":{"min":2000,"max":9000}}`),
			},
		},
	}
}

func TestParseLightSchema(t *testing.T) {
	s := Parse(lightDevice())

	require.NotNil(t, s.Power)
	assert.Equal(t, 1, s.Power.OnValue)
	assert.Equal(t, 0, s.Power.OffValue)
	assert.True(t, s.Power.IsOn(float64(1)))
	assert.False(t, s.Power.IsOn(float64(0)))

	require.NotNil(t, s.Brightness)
	assert.Equal(t, 1, s.Brightness.Min)
	assert.Equal(t, 100, s.Brightness.Max)

	assert.True(t, s.Color.RGB)
	assert.True(t, s.Color.Temp)
	assert.Equal(t, 2000, s.Color.TempMin)
	assert.Equal(t, 9000, s.Color.TempMax)
}

func TestParseLightAlwaysHasSceneCatalog(t *testing.T) {
	// No dynamic_scene capability advertised, catalog still applies
	s := Parse(lightDevice())
	require.NotNil(t, s.Scenes)

	ref, ok := s.Scenes.Resolve("Sunrise")
	require.True(t, ok)
	assert.Equal(t, 196, ref.ID)
	assert.Equal(t, 177, ref.ParamID)
	assert.Len(t, s.Scenes.Names(), 43)
}

func TestParseSkipsMalformedCapability(t *testing.T) {
	dev := lightDevice()
	dev.Capabilities = append(dev.Capabilities, model.Capability{
		Type:       model.CapWorkMode,
		Instance:   model.InstanceWorkMode,
		Parameters: json.RawMessage(`{"fields":[]}`),
	})

	s := Parse(dev)
	assert.Nil(t, s.WorkModes)
	require.NotNil(t, s.Power)
}

func TestParseEventsAndProperties(t *testing.T) {
	dev := model.Device{
		ID:   "11:22",
		SKU:  "H7141",
		Type: model.DeviceTypeHumidifier,
		Capabilities: []model.Capability{
			{Type: model.CapEvent, Instance: model.InstanceWaterFull},
			{Type: model.CapProperty, Instance: model.InstanceFilterLife},
		},
	}

	s := Parse(dev)
	assert.True(t, s.HasEvent(model.InstanceWaterFull))
	assert.False(t, s.HasEvent("lackWaterEvent"))
	assert.True(t, s.HasProperty(model.InstanceFilterLife))
	assert.False(t, s.HasProperty(model.InstanceAirQuality))
}

func TestEncodeDecodeRGB(t *testing.T) {
	assert.Equal(t, 16711680, EncodeRGB(255, 0, 0))

	r, g, b := DecodeRGB(16711680)
	assert.Equal(t, uint8(255), r)
	assert.Equal(t, uint8(0), g)
	assert.Equal(t, uint8(0), b)

	r, g, b = DecodeRGB(EncodeRGB(18, 52, 86))
	assert.Equal(t, uint8(18), r)
	assert.Equal(t, uint8(52), g)
	assert.Equal(t, uint8(86), b)
}

func TestBrightnessConversion(t *testing.T) {
	rb := &RangeBounds{Min: 1, Max: 100}

	// 128 on the host 0-255 scale lands at 50 on a 1-100 device
	assert.Equal(t, 50, BrightnessToDevice(rb, 128))
	assert.Equal(t, 1, BrightnessToDevice(rb, 0))
	assert.Equal(t, 100, BrightnessToDevice(rb, 255))

	assert.Equal(t, 0, BrightnessFromDevice(rb, 1))
	assert.Equal(t, 255, BrightnessFromDevice(rb, 100))
	assert.Equal(t, 126, BrightnessFromDevice(rb, 50))
}

func TestSceneMergeReplacesCatalogEntry(t *testing.T) {
	s := DefaultScenes()
	before, ok := s.Resolve("Sunrise")
	require.True(t, ok)
	require.Equal(t, 196, before.ID)

	cap := model.Capability{
		Type:     model.CapDynamicScene,
		Instance: model.InstanceLightScene,
		Parameters: json.RawMessage(`{"options":[
			{"name":"Sunrise","value":{"id":3060,"paramId":4060}},
			{"name":"Candlelight","value":{"id":3061,"paramId":4061}}
		]}`),
	}
	require.NoError(t, s.Merge(cap))

	after, ok := s.Resolve("Sunrise")
	require.True(t, ok)
	assert.Equal(t, 3060, after.ID)
	assert.Equal(t, 4060, after.ParamID)

	added, ok := s.Resolve("Candlelight")
	require.True(t, ok)
	assert.Equal(t, 3061, added.ID)

	name, ok := s.NameByID(3061)
	require.True(t, ok)
	assert.Equal(t, "Candlelight", name)
}

func TestSceneCommand(t *testing.T) {
	s := DefaultScenes()

	cmd, err := s.Command("Aurora")
	require.NoError(t, err)
	assert.Equal(t, model.CapDynamicScene, cmd.Type)
	assert.Equal(t, model.InstanceLightScene, cmd.Instance)
	assert.Equal(t, map[string]any{"id": 201, "paramId": 182}, cmd.Value)

	_, err = s.Command("No Such Scene")
	assert.Error(t, err)
}

func TestMusicModes(t *testing.T) {
	cap := model.Capability{
		Type:     model.CapMusicSetting,
		Instance: model.InstanceMusicMode,
		Parameters: json.RawMessage(`{"fields":[
			{"fieldName":"musicMode","options":[{"name":"Energic","value":1},{"name":"Rhythm","value":2}]},
			{"fieldName":"sensitivity","range":{"min":0,"max":100}}
		]}`),
	}

	mt, err := parseMusicModes(cap)
	require.NoError(t, err)
	assert.Equal(t, []string{"Energic", "Rhythm"}, mt.Names())

	cmd, err := mt.Command("Rhythm")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"musicMode": 2, "sensitivity": 50, "autoColor": 1}, cmd.Value)

	name, ok := mt.NameFor(map[string]any{"musicMode": float64(1), "sensitivity": float64(50)})
	require.True(t, ok)
	assert.Equal(t, "Energic", name)
}
