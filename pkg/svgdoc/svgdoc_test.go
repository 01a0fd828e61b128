package svgdoc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	ferrors "github.com/matzehuels/floorplan/pkg/errors"
)

const testSVG = `<?xml version="1.0"?>
<svg xmlns="http://www.w3.org/2000/svg"
     xmlns:inkscape="http://www.inkscape.org/namespaces/inkscape"
     xmlns:xlink="http://www.w3.org/1999/xlink"
     width="420mm" height="297mm">
  <g inkscape:groupmode="layer" inkscape:label="Base" id="layer1" style="display:none">
    <g inkscape:groupmode="layer" inkscape:label="Electrical" id="layer2">
      <use xlink:href="#wcd-2v" id="D1"/>
    </g>
  </g>
  <g inkscape:groupmode="layer" id="layer3" display="none">
    <text id="title-block-title"><tspan>old</tspan><tspan>second</tspan></text>
  </g>
</svg>`

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	doc, err := ParseBytes([]byte(s))
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	return doc
}

func TestParseMalformed(t *testing.T) {
	_, err := ParseBytes([]byte("<svg><g></svg>"))
	if !ferrors.Is(err, ferrors.ErrCodeMalformedDocument) {
		t.Fatalf("ParseBytes() error = %v, want MALFORMED_DOCUMENT", err)
	}
}

func TestReadFileNotFound(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.svg"))
	if !ferrors.Is(err, ferrors.ErrCodeFileNotFound) {
		t.Fatalf("ReadFile() error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.svg")
	if err := os.WriteFile(path, []byte(testSVG), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if doc.Path() != path {
		t.Errorf("Path() = %q, want %q", doc.Path(), path)
	}
}

func TestLayers(t *testing.T) {
	doc := mustParse(t, testSVG)

	layers := doc.Layers()
	var ids []string
	for _, l := range layers {
		ids = append(ids, LayerID(l))
	}
	want := []string{"Base", "Electrical", "layer3"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Fatalf("layer ids = %v, want %v", ids, want)
	}

	if !IsHidden(layers[0]) {
		t.Error("Base should be hidden via style")
	}
	if IsHidden(layers[1]) {
		t.Error("Electrical should not be hidden")
	}
	if !IsHidden(layers[2]) {
		t.Error("layer3 should be hidden via display attribute")
	}
}

func TestSetVisible(t *testing.T) {
	doc := mustParse(t, testSVG)
	layers := doc.Layers()

	SetVisible(layers[0], true)
	SetVisible(layers[2], true)
	SetVisible(layers[1], false)

	if IsHidden(layers[0]) || IsHidden(layers[2]) {
		t.Error("layers should be visible after SetVisible(true)")
	}
	if !IsHidden(layers[1]) {
		t.Error("layer should be hidden after SetVisible(false)")
	}
	if got := layers[2].SelectAttrValue("display", ""); got != "" {
		t.Errorf("display attribute = %q, want removed", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	doc := mustParse(t, testSVG)
	clone := doc.Clone()

	SetVisible(clone.Layers()[0], true)

	if !IsHidden(doc.Layers()[0]) {
		t.Error("modifying the clone changed the original")
	}
}

func TestElementByIDAndText(t *testing.T) {
	doc := mustParse(t, testSVG)

	title := doc.ElementByID("title-block-title")
	if title == nil {
		t.Fatal("ElementByID() = nil")
	}
	if got := TextContent(title); got != "old second" {
		t.Errorf("TextContent() = %q, want %q", got, "old second")
	}

	SetText(title, "Elektra")
	if got := TextContent(title); got != "Elektra second" {
		t.Errorf("TextContent() after SetText = %q", got)
	}

	use := doc.ElementByID("D1")
	if got := Href(use); got != "wcd-2v" {
		t.Errorf("Href() = %q, want wcd-2v", got)
	}

	if doc.ElementByID("nope") != nil {
		t.Error("ElementByID(nope) should be nil")
	}
}

func TestSetPageSize(t *testing.T) {
	doc := mustParse(t, testSVG)
	doc.SetPageSize("840mm", "")

	root := doc.Root()
	if got := root.SelectAttrValue("width", ""); got != "840mm" {
		t.Errorf("width = %q", got)
	}
	if got := root.SelectAttrValue("height", ""); got != "297mm" {
		t.Errorf("height = %q, want unchanged", got)
	}
}

func TestStyleValue(t *testing.T) {
	tests := []struct {
		style, name, want string
		ok                bool
	}{
		{"display:none", "display", "none", true},
		{"fill:#fff; display : inline ;", "display", "inline", true},
		{"fill:#fff", "display", "", false},
		{"", "display", "", false},
	}
	for _, tt := range tests {
		got, ok := StyleValue(tt.style, tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("StyleValue(%q, %q) = %q, %v; want %q, %v", tt.style, tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSetStyleValue(t *testing.T) {
	tests := []struct {
		style, name, value, want string
	}{
		{"", "display", "none", "display:none"},
		{"display:inline", "display", "none", "display:none"},
		{"fill:#fff;display:inline;", "display", "none", "fill:#fff;display:none"},
		{"fill:#fff", "opacity", "0.5", "fill:#fff;opacity:0.5"},
		{"display:inline;display:none", "display", "inline", "display:inline"},
	}
	for _, tt := range tests {
		if got := SetStyleValue(tt.style, tt.name, tt.value); got != tt.want {
			t.Errorf("SetStyleValue(%q, %q, %q) = %q, want %q", tt.style, tt.name, tt.value, got, tt.want)
		}
	}
}
