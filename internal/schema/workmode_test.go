package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oebus/govee-bridge/internal/model"
)

func workModeCapability() model.Capability {
	return model.Capability{
		Type:     model.CapWorkMode,
		Instance: model.InstanceWorkMode,
		Parameters: json.RawMessage(`{"fields":[
			{"fieldName":"workMode","options":[
				{"name":"gearMode","value":1},
				{"name":"Auto","value":3},
				{"name":"Sleep","value":5}
			]},
			{"fieldName":"modeValue","options":[
				{"name":"gearMode","options":[
					{"name":"Low","value":1},
					{"name":"Medium","value":2},
					{"name":"High","value":3}
				]},
				{"name":"Auto","value":0}
			]}
		]}`),
	}
}

func TestParseWorkModesFlattensGears(t *testing.T) {
	mt, err := parseWorkModes(workModeCapability())
	require.NoError(t, err)

	// gearMode expands into its leaves; plain modes map directly
	assert.Equal(t, []string{"Low", "Medium", "High", "Auto", "Sleep"}, mt.Names())

	low, ok := mt.Resolve("Low")
	require.True(t, ok)
	assert.Equal(t, ModeValue{WorkMode: 1, ModeValue: 1}, low)

	auto, ok := mt.Resolve("Auto")
	require.True(t, ok)
	assert.Equal(t, ModeValue{WorkMode: 3, ModeValue: 0}, auto)

	_, ok = mt.Resolve("gearMode")
	assert.False(t, ok)
}

func TestWorkModeRoundTrip(t *testing.T) {
	mt, err := parseWorkModes(workModeCapability())
	require.NoError(t, err)

	for _, name := range mt.Names() {
		cmd, err := mt.Command(name)
		require.NoError(t, err)
		assert.Equal(t, name, mt.NameFor(cmd.Value))
	}
}

func TestWorkModeNameForUnknown(t *testing.T) {
	mt, err := parseWorkModes(workModeCapability())
	require.NoError(t, err)

	assert.Equal(t, ModeUnknown, mt.NameFor(map[string]any{"workMode": float64(99)}))
	assert.Equal(t, ModeUnknown, mt.NameFor("not a map"))
	assert.Equal(t, ModeUnknown, mt.NameFor(nil))
}

func TestWorkModeCommandShape(t *testing.T) {
	mt, err := parseWorkModes(workModeCapability())
	require.NoError(t, err)

	cmd, err := mt.Command("High")
	require.NoError(t, err)
	assert.Equal(t, model.CapWorkMode, cmd.Type)
	assert.Equal(t, model.InstanceWorkMode, cmd.Instance)
	assert.Equal(t, map[string]any{"workMode": 1, "modeValue": 3}, cmd.Value)

	_, err = mt.Command("Turbo")
	assert.Error(t, err)
}

func TestParseWorkModesRejectsEmptyField(t *testing.T) {
	cap := model.Capability{
		Type:       model.CapWorkMode,
		Instance:   model.InstanceWorkMode,
		Parameters: json.RawMessage(`{"fields":[{"fieldName":"modeValue","options":[]}]}`),
	}
	_, err := parseWorkModes(cap)
	assert.Error(t, err)
}
