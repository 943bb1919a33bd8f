package model

import "encoding/json"

// DeviceType is the vendor's device category, e.g. "devices.types.light".
type DeviceType string

const (
	DeviceTypeLight        DeviceType = "devices.types.light"
	DeviceTypeFan          DeviceType = "devices.types.fan"
	DeviceTypeAirPurifier  DeviceType = "devices.types.air_purifier"
	DeviceTypeHumidifier   DeviceType = "devices.types.humidifier"
	DeviceTypeDehumidifier DeviceType = "devices.types.dehumidifier"
)

// CapabilityType is the vendor's capability category. A device lists one or
// more capabilities per type, disambiguated by instance.
type CapabilityType string

const (
	CapOnOff        CapabilityType = "devices.capabilities.on_off"
	CapRange        CapabilityType = "devices.capabilities.range"
	CapColorSetting CapabilityType = "devices.capabilities.color_setting"
	CapWorkMode     CapabilityType = "devices.capabilities.work_mode"
	CapDynamicScene CapabilityType = "devices.capabilities.dynamic_scene"
	CapMusicSetting CapabilityType = "devices.capabilities.music_setting"
	CapSegmentColor CapabilityType = "devices.capabilities.segment_color_setting"
	CapEvent        CapabilityType = "devices.capabilities.event"
	CapProperty     CapabilityType = "devices.capabilities.property"
	CapOnline       CapabilityType = "devices.capabilities.online"
)

// Well-known capability instances.
const (
	InstancePowerSwitch   = "powerSwitch"
	InstanceBrightness    = "brightness"
	InstanceColorRGB      = "colorRgb"
	InstanceColorTempK    = "colorTemperatureK"
	InstanceHumidity      = "humidity"
	InstanceWorkMode      = "workMode"
	InstanceLightScene    = "lightScene"
	InstanceMusicMode     = "musicMode"
	InstanceSnapshot      = "snapshot"
	InstanceFilterLife    = "filterLifeTime"
	InstanceAirQuality    = "airQuality"
	InstanceWaterFull     = "waterFullEvent"
	InstanceOnline        = "online"
	InstanceSegmentRGB    = "segmentedColorRgb"
	InstanceSegmentBright = "segmentedBrightness"
)

// Device is a single cloud device as returned by the device listing.
// The capability list may be enriched once after registration (scene merge
// for lights) and is immutable afterwards; live values are held by the
// state cache, not here.
type Device struct {
	ID           string       `json:"device"`
	SKU          string       `json:"sku"`
	Type         DeviceType   `json:"type"`
	Name         string       `json:"deviceName"`
	Capabilities []Capability `json:"capabilities"`
}

// CapState holds a capability's last-known state. The vendor usually keys
// the value as "value" but older device firmwares key it by the instance
// name instead, so the shape stays a free-form map.
type CapState map[string]any

// Value returns the state value, preferring "value" and falling back to a
// field named after the capability instance.
func (s CapState) Value(instance string) (any, bool) {
	if s == nil {
		return nil, false
	}
	if v, ok := s["value"]; ok {
		return v, true
	}
	if v, ok := s[instance]; ok {
		return v, true
	}
	return nil, false
}

// Capability describes one controllable or observable device function,
// identified by (Type, Instance) which is unique within a device.
type Capability struct {
	Type       CapabilityType  `json:"type"`
	Instance   string          `json:"instance"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	State      CapState        `json:"state,omitempty"`
	EventState json.RawMessage `json:"eventState,omitempty"`
}

// Command is a single capability command inside a control request.
type Command struct {
	Type     CapabilityType `json:"type"`
	Instance string         `json:"instance"`
	Value    any            `json:"value"`
}

// EchoCapability builds the capability snapshot implied by a control echo,
// ready for a state cache patch.
func EchoCapability(typ CapabilityType, instance string, value any) Capability {
	return Capability{
		Type:     typ,
		Instance: instance,
		State:    CapState{"value": value},
	}
}
