package annotation

import (
	"testing"

	ferrors "github.com/matzehuels/floorplan/pkg/errors"
)

func TestVocabularyWithDefaults(t *testing.T) {
	v := Vocabulary{CircuitIDKey: "data-groep"}.WithDefaults()
	if v.CircuitIDKey != "data-groep" {
		t.Errorf("CircuitIDKey = %q, want override kept", v.CircuitIDKey)
	}
	if v.DeviceKey != "data-device" || v.AttrPrefix != "data-" {
		t.Errorf("defaults not applied: %+v", v)
	}
	if err := v.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestVocabularyValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Vocabulary)
	}{
		{"outside prefix", func(v *Vocabulary) { v.DeviceKey = "device" }},
		{"prefix only", func(v *Vocabulary) { v.RoomKey = "data-" }},
		{"shared marker", func(v *Vocabulary) { v.SupplyKey = v.DeviceKey }},
		{"empty prefix", func(v *Vocabulary) { v.AttrPrefix = "" }},
		{"text class outside prefix", func(v *Vocabulary) {
			v.TextClasses = map[string]string{"elektra-groep": "circuit"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := DefaultVocabulary()
			tt.modify(&v)
			if err := v.Validate(); !ferrors.Is(err, ferrors.ErrCodeInvalidConfig) {
				t.Errorf("Validate() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	v := DefaultVocabulary()
	tests := []struct {
		attrs map[string]string
		want  Kind
	}{
		{map[string]string{"data-circuit-link": "D1", "data-circuit": "3"}, KindCircuitLink},
		{map[string]string{"data-supply": "B16", "data-circuit": "3"}, KindSupply},
		{map[string]string{"data-device": "wcd", "data-room": "1.02"}, KindDevice},
		{map[string]string{"data-room": "1.02"}, KindRoom},
		{map[string]string{"data-label": "meterkast"}, KindLabel},
		{map[string]string{"data-circuit": "3"}, KindOther},
		{map[string]string{"data-device": ""}, KindDevice},
	}
	for _, tt := range tests {
		if got := v.Classify(tt.attrs); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.attrs, got, tt.want)
		}
	}
}
