package schema

import (
	"fmt"

	"github.com/oebus/govee-bridge/internal/model"
)

// ModeUnknown is returned when a raw work-mode value reverse-resolves to no
// known mode name.
const ModeUnknown = "unknown"

// ModeValue is the structured command value behind a named work mode.
type ModeValue struct {
	WorkMode  int `json:"workMode"`
	ModeValue int `json:"modeValue"`
}

// ModeTable is the bidirectional mode-name <-> ModeValue mapping built from
// a work_mode capability's field tree. Nested gearMode sub-options flatten
// into one named mode per leaf, sharing the parent's workMode code.
type ModeTable struct {
	names []string
	modes map[string]ModeValue
}

func parseWorkModes(cap model.Capability) (*ModeTable, error) {
	p, err := decodeParameters(cap)
	if err != nil {
		return nil, err
	}

	var workModes, modeValues *rawField
	for i := range p.Fields {
		switch p.Fields[i].FieldName {
		case "workMode":
			workModes = &p.Fields[i]
		case "modeValue":
			modeValues = &p.Fields[i]
		}
	}
	if workModes == nil {
		return nil, fmt.Errorf("work_mode capability missing workMode field")
	}

	t := &ModeTable{modes: map[string]ModeValue{}}
	for _, mode := range workModes.Options {
		modeCode, ok := asInt(mode.Value)
		if !ok {
			continue
		}

		gears := gearOptions(modeValues, mode.Name)
		if len(gears) > 0 {
			for _, gear := range gears {
				gearCode, ok := asInt(gear.Value)
				if !ok {
					continue
				}
				t.add(gear.Name, ModeValue{WorkMode: modeCode, ModeValue: gearCode})
			}
			continue
		}
		t.add(mode.Name, ModeValue{WorkMode: modeCode})
	}

	if len(t.modes) == 0 {
		return nil, fmt.Errorf("work_mode capability yielded no modes")
	}
	return t, nil
}

// gearOptions returns the nested sub-options under a modeValue option with
// the given name (typically "gearMode"), or nil when the mode has no
// sub-tree and maps directly.
func gearOptions(modeValues *rawField, name string) []rawOption {
	if modeValues == nil {
		return nil
	}
	for _, opt := range modeValues.Options {
		if opt.Name == name && len(opt.Options) > 0 {
			return opt.Options
		}
	}
	return nil
}

func (t *ModeTable) add(name string, v ModeValue) {
	if _, exists := t.modes[name]; !exists {
		t.names = append(t.names, name)
	}
	t.modes[name] = v
}

// Names lists the mode names in capability order.
func (t *ModeTable) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Resolve returns the command value for a mode name.
func (t *ModeTable) Resolve(name string) (ModeValue, bool) {
	v, ok := t.modes[name]
	return v, ok
}

// NameFor reverse-resolves a raw cached work-mode value. Any value produced
// through Resolve round-trips to its name; anything else is ModeUnknown.
func (t *ModeTable) NameFor(raw any) string {
	fields, ok := raw.(map[string]any)
	if !ok {
		return ModeUnknown
	}
	work, ok := toFloat(fields["workMode"])
	if !ok {
		return ModeUnknown
	}
	modeVal := 0.0
	if v, ok := toFloat(fields["modeValue"]); ok {
		modeVal = v
	}

	for _, name := range t.names {
		mv := t.modes[name]
		if mv.WorkMode == int(work) && mv.ModeValue == int(modeVal) {
			return name
		}
	}
	return ModeUnknown
}

// Command builds the control command selecting the named mode.
func (t *ModeTable) Command(name string) (model.Command, error) {
	mv, ok := t.modes[name]
	if !ok {
		return model.Command{}, fmt.Errorf("unknown work mode %q", name)
	}
	return model.Command{
		Type:     model.CapWorkMode,
		Instance: model.InstanceWorkMode,
		Value: map[string]any{
			"workMode":  mv.WorkMode,
			"modeValue": mv.ModeValue,
		},
	}, nil
}
