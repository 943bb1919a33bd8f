package schema

import (
	"encoding/json"
	"fmt"

	"github.com/oebus/govee-bridge/internal/model"
)

// SceneRef identifies one dynamic scene on the vendor side.
type SceneRef struct {
	ID      int `json:"id"`
	ParamID int `json:"paramId"`
}

// SceneTable maps scene names to their vendor IDs. It always starts from
// the curated default catalog; live scene fetches for a SKU merge on top,
// replacing same-named entries.
type SceneTable struct {
	names  []string
	scenes map[string]SceneRef
}

// defaultScenes is the curated catalog. The vendor does not reliably
// enumerate every scene per SKU, so these stay available as a fallback.
var defaultScenes = []struct {
	name    string
	id      int
	paramID int
}{
	{"Sunrise", 196, 177}, {"Sunset", 197, 178}, {"Rainbow", 198, 179},
	{"Sunset Glow", 199, 180}, {"Snow flake", 200, 181}, {"Aurora", 201, 182},
	{"Forest", 202, 183}, {"Ocean", 203, 184}, {"Waves", 204, 185},
	{"Fire", 205, 186}, {"Dark Clouds", 2457, 2565}, {"Morning", 730, 784},
	{"Firefly", 2458, 2568}, {"Sky", 731, 785}, {"Flowing Light", 2459, 2569},
	{"Flower Field", 732, 786}, {"Dense fog", 733, 787}, {"Lightning", 734, 788},
	{"Falling Petals", 735, 789}, {"Feather", 736, 790}, {"Reading", 206, 187},
	{"Night Light", 207, 188}, {"Fish tank", 208, 189}, {"Graffiti", 209, 190},
	{"Cherry Blossom Festival", 210, 191}, {"Eating Dots", 2460, 2570},
	{"Marshmallow", 2463, 2567}, {"Goldfish", 737, 791}, {"Geometry", 738, 792},
	{"Kaleidoscope", 739, 793}, {"Rubik's Cube", 740, 794}, {"Train", 741, 795},
	{"Kitchen Aromas", 742, 796}, {"Rings", 743, 797}, {"Dancing", 211, 192},
	{"Breathe", 212, 193}, {"Gradient", 213, 194}, {"Cheerful", 214, 195},
	{"Sweet", 215, 196}, {"Heartbeat", 2462, 2571}, {"Leisure", 744, 798},
	{"Healing", 745, 799}, {"Dreamland", 746, 800},
}

// DefaultScenes builds a table seeded with the curated catalog.
func DefaultScenes() *SceneTable {
	t := &SceneTable{scenes: map[string]SceneRef{}}
	for _, s := range defaultScenes {
		t.add(s.name, SceneRef{ID: s.id, ParamID: s.paramID})
	}
	return t
}

// Merge folds a fetched dynamic_scene capability into the table. Scene
// option values arrive either as a {"id","paramId"} object or as flat
// id/paramId fields on the option itself.
func (t *SceneTable) Merge(cap model.Capability) error {
	p, err := decodeParameters(cap)
	if err != nil {
		return err
	}

	merged := 0
	for _, opt := range p.Options {
		ref, ok := sceneRefFromOption(opt)
		if !ok {
			continue
		}
		t.add(opt.Name, ref)
		merged++
	}
	if merged == 0 {
		return fmt.Errorf("dynamic_scene capability carried no usable options")
	}
	return nil
}

func sceneRefFromOption(opt rawOption) (SceneRef, bool) {
	if len(opt.Value) == 0 {
		return SceneRef{}, false
	}

	var ref SceneRef
	if err := json.Unmarshal(opt.Value, &ref); err == nil && ref.ID != 0 {
		return ref, true
	}
	if id, ok := asInt(opt.Value); ok && id != 0 {
		return SceneRef{ID: id}, true
	}
	return SceneRef{}, false
}

func (t *SceneTable) add(name string, ref SceneRef) {
	if _, exists := t.scenes[name]; !exists {
		t.names = append(t.names, name)
	}
	t.scenes[name] = ref
}

// Names lists the known scene names, catalog order first.
func (t *SceneTable) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Resolve returns the scene reference for a name.
func (t *SceneTable) Resolve(name string) (SceneRef, bool) {
	ref, ok := t.scenes[name]
	return ref, ok
}

// NameByID reverse-resolves a scene id from a cached value.
func (t *SceneTable) NameByID(id int) (string, bool) {
	for _, name := range t.names {
		if t.scenes[name].ID == id {
			return name, true
		}
	}
	return "", false
}

// Command builds the control command activating the named scene.
func (t *SceneTable) Command(name string) (model.Command, error) {
	ref, ok := t.scenes[name]
	if !ok {
		return model.Command{}, fmt.Errorf("unknown scene %q", name)
	}
	return model.Command{
		Type:     model.CapDynamicScene,
		Instance: model.InstanceLightScene,
		Value: map[string]any{
			"id":      ref.ID,
			"paramId": ref.ParamID,
		},
	}, nil
}
