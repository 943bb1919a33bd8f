package schema

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/oebus/govee-bridge/internal/model"
)

// DeviceSchema holds the typed capability descriptors parsed from one
// device's raw capability list. Parsing is pure; enrichment (scene fetch)
// happens before parsing, on the device's capability list itself.
type DeviceSchema struct {
	Power      *PowerMapping
	Brightness *RangeBounds
	Humidity   *RangeBounds
	Color      ColorCaps
	WorkModes  *ModeTable
	Scenes     *SceneTable
	Music      *MusicTable

	SegmentControl bool
	Events         map[string]bool
	Properties     []string
}

// Parse walks a device's capability list and builds its schema. Unknown or
// malformed entries are skipped with a warning; they never abort the device.
func Parse(dev model.Device) *DeviceSchema {
	s := &DeviceSchema{Events: map[string]bool{}}

	for _, cap := range dev.Capabilities {
		var err error
		switch cap.Type {
		case model.CapOnOff:
			var pm *PowerMapping
			if pm, err = parsePower(cap); err == nil {
				s.Power = pm
			}
		case model.CapRange:
			var rb *RangeBounds
			if rb, err = parseRange(cap); err == nil {
				switch cap.Instance {
				case model.InstanceBrightness:
					s.Brightness = rb
				case model.InstanceHumidity:
					s.Humidity = rb
				}
			}
		case model.CapColorSetting:
			err = s.Color.absorb(cap)
		case model.CapWorkMode:
			if cap.Instance == model.InstanceWorkMode {
				var mt *ModeTable
				if mt, err = parseWorkModes(cap); err == nil {
					s.WorkModes = mt
				}
			}
		case model.CapDynamicScene:
			if cap.Instance == model.InstanceLightScene {
				if s.Scenes == nil {
					s.Scenes = DefaultScenes()
				}
				err = s.Scenes.Merge(cap)
			}
		case model.CapMusicSetting:
			if cap.Instance == model.InstanceMusicMode {
				var mt *MusicTable
				if mt, err = parseMusicModes(cap); err == nil {
					s.Music = mt
				}
			}
		case model.CapSegmentColor:
			s.SegmentControl = true
		case model.CapEvent:
			s.Events[cap.Instance] = true
		case model.CapProperty:
			s.Properties = append(s.Properties, cap.Instance)
		case model.CapOnline:
			// Availability is read straight from the state cache.
		default:
			log.Debug().
				Str("device", dev.ID).
				Str("type", string(cap.Type)).
				Str("instance", cap.Instance).
				Msg("Ignoring unrecognized capability type")
		}
		if err != nil {
			log.Warn().
				Err(err).
				Str("device", dev.ID).
				Str("type", string(cap.Type)).
				Str("instance", cap.Instance).
				Msg("Skipping malformed capability")
		}
	}

	if dev.Type == model.DeviceTypeLight && s.Scenes == nil {
		s.Scenes = DefaultScenes()
	}
	return s
}

// HasEvent reports whether the device advertises the named event capability.
func (s *DeviceSchema) HasEvent(instance string) bool {
	return s.Events[instance]
}

// HasProperty reports whether the device advertises the named property.
func (s *DeviceSchema) HasProperty(instance string) bool {
	for _, p := range s.Properties {
		if p == instance {
			return true
		}
	}
	return false
}

// Raw parameter shapes shared by the capability parsers.

type rawParameters struct {
	Options []rawOption `json:"options"`
	Range   *rawRange   `json:"range"`
	Fields  []rawField  `json:"fields"`
}

type rawOption struct {
	Name    string          `json:"name"`
	Value   json.RawMessage `json:"value"`
	Options []rawOption     `json:"options"`
}

type rawRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type rawField struct {
	FieldName string      `json:"fieldName"`
	Options   []rawOption `json:"options"`
	Range     *rawRange   `json:"range"`
}

func decodeParameters(cap model.Capability) (*rawParameters, error) {
	if len(cap.Parameters) == 0 {
		return nil, fmt.Errorf("capability %s/%s has no parameters", cap.Type, cap.Instance)
	}
	var p rawParameters
	if err := json.Unmarshal(cap.Parameters, &p); err != nil {
		return nil, fmt.Errorf("decode parameters for %s/%s: %w", cap.Type, cap.Instance, err)
	}
	return &p, nil
}

func asInt(raw json.RawMessage) (int, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return int(f), true
}

// PowerMapping maps the raw on/off option values to an abstract power state.
type PowerMapping struct {
	OnValue  int
	OffValue int
}

func parsePower(cap model.Capability) (*PowerMapping, error) {
	p, err := decodeParameters(cap)
	if err != nil {
		return nil, err
	}

	pm := &PowerMapping{OnValue: -1, OffValue: -1}
	for _, opt := range p.Options {
		v, ok := asInt(opt.Value)
		if !ok {
			continue
		}
		switch opt.Name {
		case "on":
			pm.OnValue = v
		case "off":
			pm.OffValue = v
		}
	}
	if pm.OnValue < 0 || pm.OffValue < 0 {
		return nil, fmt.Errorf("on_off capability missing on/off options")
	}
	return pm, nil
}

// IsOn interprets a cached raw value against the mapping.
func (pm *PowerMapping) IsOn(v any) bool {
	n, ok := toFloat(v)
	return ok && int(n) == pm.OnValue
}

// RangeBounds holds a numeric capability's advertised bounds.
type RangeBounds struct {
	Min int
	Max int
}

func parseRange(cap model.Capability) (*RangeBounds, error) {
	p, err := decodeParameters(cap)
	if err != nil {
		return nil, err
	}
	if p.Range == nil {
		return nil, fmt.Errorf("range capability %s missing range bounds", cap.Instance)
	}
	return &RangeBounds{Min: p.Range.Min, Max: p.Range.Max}, nil
}

// Contains reports whether v lies within the advertised bounds.
func (rb *RangeBounds) Contains(v int) bool {
	return v >= rb.Min && v <= rb.Max
}

// ColorCaps records which color settings a light supports.
type ColorCaps struct {
	RGB     bool
	Temp    bool
	TempMin int
	TempMax int
}

func (cc *ColorCaps) absorb(cap model.Capability) error {
	switch cap.Instance {
	case model.InstanceColorRGB:
		cc.RGB = true
	case model.InstanceColorTempK:
		p, err := decodeParameters(cap)
		if err != nil {
			return err
		}
		if p.Range == nil {
			return fmt.Errorf("colorTemperatureK capability missing range")
		}
		cc.Temp = true
		cc.TempMin = p.Range.Min
		cc.TempMax = p.Range.Max
	}
	return nil
}

// EncodeRGB packs a color into the vendor's combined 24-bit value.
func EncodeRGB(r, g, b uint8) int {
	return int(r)<<16 | int(g)<<8 | int(b)
}

// DecodeRGB unpacks the vendor's combined 24-bit color value.
func DecodeRGB(v int) (r, g, b uint8) {
	return uint8(v >> 16 & 0xFF), uint8(v >> 8 & 0xFF), uint8(v & 0xFF)
}

// BrightnessToDevice converts host brightness (0-255) to the device range.
// Integer truncation keeps 128/255 on a [1,100] scale at 50.
func BrightnessToDevice(rb *RangeBounds, brightness int) int {
	return rb.Min + (rb.Max-rb.Min)*brightness/255
}

// BrightnessFromDevice converts a device value back to host brightness.
func BrightnessFromDevice(rb *RangeBounds, value int) int {
	if rb.Max == rb.Min {
		return 0
	}
	return int(math.Round(float64(value-rb.Min) / float64(rb.Max-rb.Min) * 255.0))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
