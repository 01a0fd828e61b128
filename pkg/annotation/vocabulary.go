package annotation

import (
	"maps"
	"strings"

	ferrors "github.com/matzehuels/floorplan/pkg/errors"
)

// Kind classifies an annotation element.
type Kind string

const (
	// KindAny matches every kind in [Model.All].
	KindAny Kind = ""

	KindRoom        Kind = "room"
	KindDevice      Kind = "device"
	KindSupply      Kind = "supply"
	KindCircuitLink Kind = "circuit-link"
	KindLabel       Kind = "label"
	KindOther       Kind = "other"
)

// Kinds lists every concrete kind in classification order.
var Kinds = []Kind{KindCircuitLink, KindSupply, KindDevice, KindRoom, KindLabel, KindOther}

// Vocabulary names the attribute keys that carry annotation facts in a
// drawing. Keys are case-sensitive and must live in the AttrPrefix namespace,
// since only attributes in that namespace are read from the document.
type Vocabulary struct {
	AttrPrefix   string `toml:"attr_prefix" yaml:"attr_prefix" json:"attr_prefix"`
	DeviceKey    string `toml:"device_key" yaml:"device_key" json:"device_key"`
	CircuitIDKey string `toml:"circuit_id_key" yaml:"circuit_id_key" json:"circuit_id_key"`
	SupplyKey    string `toml:"supply_key" yaml:"supply_key" json:"supply_key"`
	LinkKey      string `toml:"link_key" yaml:"link_key" json:"link_key"`
	RoomKey      string `toml:"room_key" yaml:"room_key" json:"room_key"`
	LabelKey     string `toml:"label_key" yaml:"label_key" json:"label_key"`

	// TextClasses maps a CSS class of a <text> child to the attribute key its
	// content provides for the enclosing group. A symbol group holding
	// <text class="elektra-groep">12</text> is annotated with
	// TextClasses["elektra-groep"] = "12".
	TextClasses map[string]string `toml:"text_classes" yaml:"text_classes" json:"text_classes,omitempty"`
}

// DefaultVocabulary returns the data-* vocabulary used when a configuration
// does not override it.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		AttrPrefix:   "data-",
		DeviceKey:    "data-device",
		CircuitIDKey: "data-circuit",
		SupplyKey:    "data-supply",
		LinkKey:      "data-circuit-link",
		RoomKey:      "data-room",
		LabelKey:     "data-label",
	}
}

// WithDefaults returns v with every empty key replaced by its default.
func (v Vocabulary) WithDefaults() Vocabulary {
	d := DefaultVocabulary()
	fill := func(dst *string, def string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = def
		}
	}
	fill(&v.AttrPrefix, d.AttrPrefix)
	fill(&v.DeviceKey, d.DeviceKey)
	fill(&v.CircuitIDKey, d.CircuitIDKey)
	fill(&v.SupplyKey, d.SupplyKey)
	fill(&v.LinkKey, d.LinkKey)
	fill(&v.RoomKey, d.RoomKey)
	fill(&v.LabelKey, d.LabelKey)
	v.TextClasses = maps.Clone(v.TextClasses)
	return v
}

// Validate checks that every key is in the annotation namespace and that the
// keys deciding an element's kind are distinct.
func (v Vocabulary) Validate() error {
	if v.AttrPrefix == "" {
		return ferrors.New(ferrors.ErrCodeInvalidConfig, "vocabulary: attr_prefix is required")
	}
	keys := []struct{ name, key string }{
		{"device_key", v.DeviceKey},
		{"circuit_id_key", v.CircuitIDKey},
		{"supply_key", v.SupplyKey},
		{"link_key", v.LinkKey},
		{"room_key", v.RoomKey},
		{"label_key", v.LabelKey},
	}
	seen := make(map[string]string, len(keys))
	for _, k := range keys {
		if !strings.HasPrefix(k.key, v.AttrPrefix) || k.key == v.AttrPrefix {
			return ferrors.New(ferrors.ErrCodeInvalidConfig,
				"vocabulary: %s %q must start with %q", k.name, k.key, v.AttrPrefix)
		}
		if other, dup := seen[k.key]; dup {
			return ferrors.New(ferrors.ErrCodeInvalidConfig,
				"vocabulary: %s and %s both use %q", other, k.name, k.key)
		}
		seen[k.key] = k.name
	}
	for class, key := range v.TextClasses {
		if !strings.HasPrefix(key, v.AttrPrefix) {
			return ferrors.New(ferrors.ErrCodeInvalidConfig,
				"vocabulary: text class %q maps to %q outside %q", class, key, v.AttrPrefix)
		}
	}
	return nil
}

// Classify returns the kind of an element carrying attrs. The first matching
// marker key wins: link, supply, device, room, label.
func (v Vocabulary) Classify(attrs map[string]string) Kind {
	switch {
	case has(attrs, v.LinkKey):
		return KindCircuitLink
	case has(attrs, v.SupplyKey):
		return KindSupply
	case has(attrs, v.DeviceKey):
		return KindDevice
	case has(attrs, v.RoomKey):
		return KindRoom
	case has(attrs, v.LabelKey):
		return KindLabel
	}
	return KindOther
}

func has(attrs map[string]string, key string) bool {
	_, ok := attrs[key]
	return ok
}
