package annotation

import (
	"slices"
	"strings"
	"testing"

	ferrors "github.com/matzehuels/floorplan/pkg/errors"
)

const header = `<svg xmlns="http://www.w3.org/2000/svg"
  xmlns:inkscape="http://www.inkscape.org/namespaces/inkscape"
  xmlns:xlink="http://www.w3.org/1999/xlink">`

func parse(t *testing.T, body string, vocab Vocabulary) *Model {
	t.Helper()
	m, err := Parse(strings.NewReader(header+body+`</svg>`), vocab)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return m
}

const plan = `
<defs><use id="outside" data-device="outlet" data-circuit="1"/></defs>
<g inkscape:groupmode="layer" inkscape:label="Base" id="layer1" style="display:none">
  <rect id="R1" data-room="1.02"/>
  <g inkscape:groupmode="layer" inkscape:label="Electrical" id="layer2">
    <use xlink:href="#wcd" id="D1" data-device="outlet" data-circuit="12" data-room="1.02"/>
    <g>
      <use xlink:href="#lamp" id="D2" data-device="lamp" data-circuit="12"/>
    </g>
    <rect id="B12" data-supply="B16" data-circuit="12"/>
    <path data-circuit-link="D2" data-circuit="13"/>
    <path id="plain"/>
  </g>
</g>
<g inkscape:groupmode="layer" id="layer3">
  <text data-label="note">Meterkast</text>
</g>`

func TestLoadLayers(t *testing.T) {
	m := parse(t, plan, DefaultVocabulary())

	if got := m.LayerIDs(); !slices.Equal(got, []string{"Base", "Electrical", "layer3"}) {
		t.Fatalf("LayerIDs() = %v", got)
	}

	base, ok := m.Layer("Base")
	if !ok {
		t.Fatal("Layer(Base) not found")
	}
	if !base.Hidden || base.Parent != "" || base.Depth != 0 || base.XMLID != "layer1" {
		t.Errorf("Base = %+v", base)
	}
	if !slices.Equal(base.Children, []string{"Electrical"}) {
		t.Errorf("Base.Children = %v", base.Children)
	}

	el, _ := m.Layer("Electrical")
	if el.Parent != "Base" || el.Depth != 1 || el.Hidden {
		t.Errorf("Electrical = %+v", el)
	}

	l3, _ := m.Layer("layer3")
	if l3.Name != "layer3" {
		t.Errorf("unlabelled layer Name = %q, want id fallback", l3.Name)
	}
}

func TestLoadElements(t *testing.T) {
	m := parse(t, plan, DefaultVocabulary())

	elems, err := m.ElementsOf("Electrical")
	if err != nil {
		t.Fatalf("ElementsOf() error = %v", err)
	}
	var got []string
	for _, e := range elems {
		got = append(got, e.ID+":"+string(e.Kind))
	}
	want := []string{"D1:device", "D2:device", "B12:supply", "Electrical#1:circuit-link"}
	if !slices.Equal(got, want) {
		t.Fatalf("ElementsOf(Electrical) = %v, want %v", got, want)
	}
	if !elems[3].Synthetic {
		t.Error("link without id should be marked synthetic")
	}
	if elems[0].Symbol != "wcd" || elems[0].Tag != "use" {
		t.Errorf("D1 symbol/tag = %q/%q", elems[0].Symbol, elems[0].Tag)
	}
	if elems[0].Attr("data-room") != "1.02" {
		t.Errorf("D1 data-room = %q", elems[0].Attr("data-room"))
	}

	base, _ := m.ElementsOf("Base")
	if len(base) != 1 || base[0].ID != "R1" || base[0].Kind != KindRoom {
		t.Errorf("ElementsOf(Base) = %+v, want only R1", base)
	}

	if _, ok := m.Element("outside"); ok {
		t.Error("element outside every layer should be ignored")
	}

	label, ok := m.Element("layer3#1")
	if !ok || label.Kind != KindLabel || label.Text != "Meterkast" {
		t.Errorf("label = %+v, %v", label, ok)
	}
}

func TestElementsOfUnknownLayer(t *testing.T) {
	m := parse(t, plan, DefaultVocabulary())
	_, err := m.ElementsOf("Plumbing")
	if !ferrors.Is(err, ferrors.ErrCodeUnknownLayer) {
		t.Fatalf("ElementsOf(Plumbing) error = %v, want UNKNOWN_LAYER", err)
	}
	if _, err := m.Ancestors("Plumbing"); !ferrors.Is(err, ferrors.ErrCodeUnknownLayer) {
		t.Errorf("Ancestors(Plumbing) error = %v", err)
	}
}

func TestAllIsRestartable(t *testing.T) {
	m := parse(t, plan, DefaultVocabulary())

	collect := func() []string {
		var ids []string
		for e := range m.All(KindDevice) {
			ids = append(ids, e.ID)
		}
		return ids
	}
	first, second := collect(), collect()
	if !slices.Equal(first, []string{"D1", "D2"}) || !slices.Equal(first, second) {
		t.Fatalf("All(device) = %v then %v", first, second)
	}

	// Early break must not disturb a later scan.
	for range m.All(KindAny) {
		break
	}
	if got := m.Count(KindAny); got != 6 {
		t.Errorf("Count(any) = %d, want 6", got)
	}
}

func TestElementsAreImmutable(t *testing.T) {
	m := parse(t, plan, DefaultVocabulary())

	e, _ := m.Element("D1")
	e.Attributes["data-circuit"] = "99"

	again, _ := m.Element("D1")
	if again.Attr("data-circuit") != "12" {
		t.Error("modifying a returned element changed the model")
	}

	l, _ := m.Layer("Base")
	l.Children[0] = "x"
	again2, _ := m.Layer("Base")
	if again2.Children[0] != "Electrical" {
		t.Error("modifying a returned layer changed the model")
	}
}

func TestAncestorsAndVisibility(t *testing.T) {
	m := parse(t, plan, DefaultVocabulary())

	anc, err := m.Ancestors("Electrical")
	if err != nil || !slices.Equal(anc, []string{"Base"}) {
		t.Errorf("Ancestors(Electrical) = %v, %v", anc, err)
	}

	tests := []struct {
		layer string
		want  bool
	}{
		{"Base", false},
		{"Electrical", false}, // suppressed by hidden parent
		{"layer3", true},
	}
	for _, tt := range tests {
		got, err := m.EffectivelyVisible(tt.layer)
		if err != nil || got != tt.want {
			t.Errorf("EffectivelyVisible(%s) = %v, %v; want %v", tt.layer, got, err, tt.want)
		}
	}
}

func TestTextClasses(t *testing.T) {
	vocab := DefaultVocabulary()
	vocab.TextClasses = map[string]string{
		"elektra-groep": "data-circuit",
		"elektra-soort": "data-device",
	}
	m := parse(t, `
<g inkscape:groupmode="layer" inkscape:label="V0_Elektra_L01">
  <g id="S1">
    <use xlink:href="#wcd"/>
    <text class="elektra-groep"><tspan>4</tspan></text>
    <text class="elektra-soort">wcd</text>
    <text data-label="x" id="T1">free</text>
  </g>
  <g id="S2" data-circuit="5">
    <text class="elektra-groep">6</text>
    <text class="elektra-soort">wcd</text>
  </g>
</g>`, vocab)

	s1, ok := m.Element("S1")
	if !ok || s1.Kind != KindDevice || s1.Attr("data-circuit") != "4" {
		t.Fatalf("S1 = %+v", s1)
	}
	if s2, _ := m.Element("S2"); s2.Attr("data-circuit") != "5" {
		t.Errorf("direct attribute should win over text class, got %q", s2.Attr("data-circuit"))
	}
	if _, ok := m.Element("T1"); !ok {
		t.Error("text without a mapped class should remain its own element")
	}
	if got := m.Count(KindAny); got != 3 {
		t.Errorf("Count(any) = %d, want 3 (consumed texts are not elements)", got)
	}
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not svg", `<html><g inkscape:groupmode="layer" inkscape:label="A"/></html>`},
		{"no layers", header + `<g id="x"/></svg>`},
		{"layer without identifier", header + `<g inkscape:groupmode="layer"/></svg>`},
		{"duplicate layer", header + `<g inkscape:groupmode="layer" inkscape:label="A"/><g inkscape:groupmode="layer" id="A"/></svg>`},
		{"syntax", header + `<g></svg>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc), DefaultVocabulary())
			if !ferrors.Is(err, ferrors.ErrCodeMalformedDocument) {
				t.Errorf("Parse() error = %v, want MALFORMED_DOCUMENT", err)
			}
		})
	}
}
