package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/floorplan/pkg/config"
	"github.com/matzehuels/floorplan/pkg/svgdoc"
)

const drawing = `<svg xmlns="http://www.w3.org/2000/svg"
  xmlns:inkscape="http://www.inkscape.org/namespaces/inkscape">
  <g inkscape:groupmode="layer" inkscape:label="Base" style="display:none">
    <g inkscape:groupmode="layer" inkscape:label="Electrical">
      <circle id="D1" data-device="outlet" data-circuit="1" data-room="1.02"/>
      <circle id="D2" data-device="outlet" data-circuit="2" data-room="1.03"/>
      <circle id="D3" data-device="light" data-circuit="10"/>
    </g>
  </g>
  <g inkscape:groupmode="layer" inkscape:label="Titleblock">
    <text id="title-block-title"><tspan>TITLE</tspan></text>
    <text id="title-block-sheet"><tspan>x / y</tspan></text>
  </g>
</svg>`

const configTOML = `
[[sets.Elektra]]
filename = "Elektra.pdf"
title = "Elektra"
  [[sets.Elektra.pages]]
  subtitle = "Groepen"
  layers = ["Titleblock", "Electrical"]
  [[sets.Elektra.pages]]
  layers = ["Titleblock"]

[[sets.Water]]
filename = "Water.pdf"
  [[sets.Water.pages]]
  layers = ["Plumbing"]
`

func newServer(t *testing.T, doc string) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.svg")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Parse([]byte(configTOML), "toml")
	if err != nil {
		t.Fatal(err)
	}
	return New(path, cfg, nil)
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	rec := get(t, newServer(t, drawing), "/healthz")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "ok" {
		t.Errorf("GET /healthz = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestLayers(t *testing.T) {
	rec := get(t, newServer(t, drawing), "/api/layers")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	got := decode[[]layerJSON](t, rec)
	if len(got) != 3 {
		t.Fatalf("layers = %+v", got)
	}
	base, elec := got[0], got[1]
	if base.ID != "Base" || !base.Hidden || base.Visible || !slices.Equal(base.Children, []string{"Electrical"}) {
		t.Errorf("Base = %+v", base)
	}
	if elec.Parent != "Base" || elec.Hidden || elec.Visible || elec.Elements != 3 {
		t.Errorf("Electrical = %+v", elec)
	}
}

func TestCircuits(t *testing.T) {
	s := newServer(t, drawing)

	rec := get(t, s, "/api/circuits")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var manifest struct {
		Circuits []struct {
			ID string `json:"id"`
		} `json:"circuits"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &manifest); err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, c := range manifest.Circuits {
		ids = append(ids, c.ID)
	}
	if !slices.Equal(ids, []string{"1", "2", "10"}) {
		t.Errorf("circuits = %v, want natural order [1 2 10]", ids)
	}

	rec = get(t, s, "/api/circuits?format=csv")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "circuit,device,") {
		t.Errorf("csv = %q", rec.Body.String())
	}

	rec = get(t, s, "/api/circuits?format=xlsx")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("format=xlsx status = %d", rec.Code)
	}
}

func TestCircuitsValidationError(t *testing.T) {
	doc := strings.Replace(drawing, `<circle id="D3"`, `<path id="L1" data-circuit-link="D9" data-circuit="1"/><circle id="D3"`, 1)
	rec := get(t, newServer(t, doc), "/api/circuits")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	got := decode[validationJSON](t, rec)
	if got.Code != "CIRCUIT_VALIDATION" || len(got.Issues) != 1 || got.Issues[0].Element != "D9" {
		t.Errorf("body = %+v", got)
	}
	if got.Manifest == nil || len(got.Manifest.Circuits) != 3 {
		t.Error("best-effort manifest missing")
	}
}

func TestSets(t *testing.T) {
	rec := get(t, newServer(t, drawing), "/api/sets")
	got := decode[map[string][]outputJSON](t, rec)
	if len(got) != 2 || len(got["Elektra"]) != 1 || len(got["Elektra"][0].Pages) != 2 {
		t.Errorf("sets = %+v", got)
	}
}

func TestMask(t *testing.T) {
	s := newServer(t, drawing)

	rec := get(t, s, "/api/sets/Elektra/Elektra.pdf/pages/1/mask")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	got := decode[maskJSON](t, rec)
	if !slices.Equal(got.Visible, []string{"Base", "Electrical", "Titleblock"}) {
		t.Errorf("visible = %v", got.Visible)
	}

	rec = get(t, s, "/api/sets/Elektra/Elektra/pages/2/mask")
	got = decode[maskJSON](t, rec)
	if !slices.Equal(got.Visible, []string{"Titleblock"}) || got.Layers["Base"] {
		t.Errorf("page 2 = %+v", got)
	}

	tests := []struct {
		target string
		status int
	}{
		{"/api/sets/Elektra/Elektra.pdf/pages/3/mask", http.StatusNotFound},
		{"/api/sets/Elektra/Elektra.pdf/pages/x/mask", http.StatusNotFound},
		{"/api/sets/Nope/Elektra.pdf/pages/1/mask", http.StatusNotFound},
		{"/api/sets/Water/Water.pdf/pages/1/mask", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		if rec := get(t, s, tt.target); rec.Code != tt.status {
			t.Errorf("GET %s = %d, want %d: %s", tt.target, rec.Code, tt.status, rec.Body)
		}
	}
}

func TestPageSVG(t *testing.T) {
	rec := get(t, newServer(t, drawing), "/api/sets/Elektra/Elektra.pdf/pages/2.svg")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	doc, err := svgdoc.ParseBytes(rec.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got := svgdoc.TextContent(doc.ElementByID("title-block-sheet")); got != "2 / 2" {
		t.Errorf("sheet = %q", got)
	}
	if got := svgdoc.TextContent(doc.ElementByID("title-block-title")); got != "Elektra" {
		t.Errorf("title = %q", got)
	}
	for _, l := range doc.Layers() {
		if id := svgdoc.LayerID(l); (id == "Titleblock") == svgdoc.IsHidden(l) {
			t.Errorf("layer %s hidden = %v", id, svgdoc.IsHidden(l))
		}
	}
}

func TestDocumentReloadedPerRequest(t *testing.T) {
	s := newServer(t, drawing)
	if rec := get(t, s, "/api/layers"); rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	if err := os.WriteFile(s.Document, []byte("<svg"), 0o644); err != nil {
		t.Fatal(err)
	}
	if rec := get(t, s, "/api/layers"); rec.Code != http.StatusInternalServerError {
		t.Errorf("malformed reload status = %d", rec.Code)
	}
}
