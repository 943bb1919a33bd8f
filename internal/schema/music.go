package schema

import (
	"fmt"

	"github.com/oebus/govee-bridge/internal/model"
)

const (
	defaultMusicSensitivity = 50
	defaultMusicAutoColor   = 1
)

// MusicTable maps music-mode names to their command values with the
// vendor's default sensitivity and auto-color settings.
type MusicTable struct {
	names []string
	modes map[string]int
}

func parseMusicModes(cap model.Capability) (*MusicTable, error) {
	p, err := decodeParameters(cap)
	if err != nil {
		return nil, err
	}

	t := &MusicTable{modes: map[string]int{}}
	for _, field := range p.Fields {
		if field.FieldName != "musicMode" {
			continue
		}
		for _, opt := range field.Options {
			v, ok := asInt(opt.Value)
			if !ok {
				continue
			}
			if _, exists := t.modes[opt.Name]; !exists {
				t.names = append(t.names, opt.Name)
			}
			t.modes[opt.Name] = v
		}
	}

	if len(t.modes) == 0 {
		return nil, fmt.Errorf("music_setting capability carried no musicMode options")
	}
	return t, nil
}

// Names lists the music mode names in capability order.
func (t *MusicTable) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Resolve returns the raw musicMode code for a name.
func (t *MusicTable) Resolve(name string) (int, bool) {
	v, ok := t.modes[name]
	return v, ok
}

// NameFor reverse-resolves a cached music-setting value to its mode name.
func (t *MusicTable) NameFor(raw any) (string, bool) {
	fields, ok := raw.(map[string]any)
	if !ok {
		return "", false
	}
	mode, ok := toFloat(fields["musicMode"])
	if !ok {
		return "", false
	}
	for _, name := range t.names {
		if t.modes[name] == int(mode) {
			return name, true
		}
	}
	return "", false
}

// Command builds the control command selecting the named music mode with
// default sensitivity and auto-color.
func (t *MusicTable) Command(name string) (model.Command, error) {
	mode, ok := t.modes[name]
	if !ok {
		return model.Command{}, fmt.Errorf("unknown music mode %q", name)
	}
	return model.Command{
		Type:     model.CapMusicSetting,
		Instance: model.InstanceMusicMode,
		Value: map[string]any{
			"musicMode":   mode,
			"sensitivity": defaultMusicSensitivity,
			"autoColor":   defaultMusicAutoColor,
		},
	}, nil
}
