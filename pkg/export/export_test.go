package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/floorplan/pkg/annotation"
	"github.com/matzehuels/floorplan/pkg/config"
	ferrors "github.com/matzehuels/floorplan/pkg/errors"
	"github.com/matzehuels/floorplan/pkg/layers"
	"github.com/matzehuels/floorplan/pkg/render"
	"github.com/matzehuels/floorplan/pkg/svgdoc"
)

const drawing = `<svg xmlns="http://www.w3.org/2000/svg"
  xmlns:inkscape="http://www.inkscape.org/namespaces/inkscape">
  <g inkscape:groupmode="layer" inkscape:label="Base" style="display:none">
    <g inkscape:groupmode="layer" inkscape:label="Electrical"/>
    <g inkscape:groupmode="layer" inkscape:label="Lighting"/>
  </g>
  <g inkscape:groupmode="layer" inkscape:label="Titleblock"/>
</svg>`

// fakeRenderer records requests and returns the page index as data. Pages
// listed in slow finish after the others.
type fakeRenderer struct {
	mu       sync.Mutex
	requests []render.Request
	slow     map[int]bool
	fail     map[int]bool
	active   atomic.Int32
	peak     atomic.Int32
}

func (f *fakeRenderer) Render(_ context.Context, req render.Request) (render.Artifact, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.slow[req.Page] {
		time.Sleep(20 * time.Millisecond)
	}
	if f.fail[req.Page] {
		return render.Artifact{}, errors.New("converter exited with status 1")
	}
	data := fmt.Sprintf("%s#%d", req.Output, req.Page+1)
	return render.Artifact{Format: req.Format, Page: req.Page, Data: []byte(data), SVG: []byte("<svg/>")}, nil
}

func (f *fakeRenderer) outputs() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int)
	for _, r := range f.requests {
		out[r.Output]++
	}
	return out
}

func load(t *testing.T) (*svgdoc.Document, *annotation.Model) {
	t.Helper()
	doc, err := svgdoc.ParseBytes([]byte(drawing))
	if err != nil {
		t.Fatal(err)
	}
	m, err := annotation.Load(doc, annotation.DefaultVocabulary())
	if err != nil {
		t.Fatal(err)
	}
	return doc, m
}

func output(filename, format string, pages ...[]string) config.Output {
	out := config.Output{Filename: filename, Title: strings.TrimSuffix(filename, filepath.Ext(filename)), Format: format}
	for i, ls := range pages {
		out.Pages = append(out.Pages, config.Page{Index: i, Subtitle: fmt.Sprintf("Sheet %d", i+1), Layers: ls})
	}
	return out
}

func joinMerge(pages [][]byte, w io.Writer) error {
	for i, p := range pages {
		if i > 0 {
			if _, err := io.WriteString(w, "|"); err != nil {
				return err
			}
		}
		if _, err := w.Write(p); err != nil {
			return err
		}
	}
	return nil
}

func newOrchestrator(t *testing.T, r Renderer, opts Options) *Orchestrator {
	t.Helper()
	doc, m := load(t)
	opts.OutputDir = t.TempDir()
	opts.Now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }
	o := New(doc, m, r, opts)
	o.Merge = joinMerge
	return o
}

func TestExportKeepsPageOrder(t *testing.T) {
	r := &fakeRenderer{slow: map[int]bool{0: true, 1: true}}
	o := newOrchestrator(t, r, Options{Jobs: 4})

	out := output("Elektra.pdf", render.FormatPDF,
		[]string{"Electrical"}, []string{"Lighting"}, []string{"Titleblock"})
	results := o.Export(context.Background(), []config.Output{out})

	if len(results) != 1 || !results[0].OK() {
		t.Fatalf("Export() = %+v", results)
	}
	if len(results[0].Files) != 1 {
		t.Fatalf("Files = %v, want one PDF", results[0].Files)
	}
	data, err := os.ReadFile(results[0].Files[0])
	if err != nil {
		t.Fatal(err)
	}
	if want := "Elektra.pdf#1|Elektra.pdf#2|Elektra.pdf#3"; string(data) != want {
		t.Errorf("merged = %q, want %q", data, want)
	}
}

func TestExportTitleBlockTexts(t *testing.T) {
	r := &fakeRenderer{}
	o := newOrchestrator(t, r, Options{Jobs: 1, DPI: 150})

	out := output("Elektra.pdf", render.FormatPDF, []string{"Electrical"}, []string{"Lighting"})
	out.Pages[1].Texts = map[string]string{render.TextSubtitle: "Ignored", "extra": "x"}
	o.Export(context.Background(), []config.Output{out})

	if len(r.requests) != 2 {
		t.Fatalf("got %d requests", len(r.requests))
	}
	for _, req := range r.requests {
		if req.DPI != 150 {
			t.Errorf("page %d DPI = %d", req.Page, req.DPI)
		}
		if req.Texts[render.TextTitle] != "Elektra" || req.Texts[render.TextDate] != "2024-03-09" {
			t.Errorf("page %d texts = %v", req.Page, req.Texts)
		}
		want := fmt.Sprintf("%d / 2", req.Page+1)
		if req.Texts[render.TextSheet] != want {
			t.Errorf("page %d sheet = %q, want %q", req.Page, req.Texts[render.TextSheet], want)
		}
		switch req.Page {
		case 0:
			if req.Texts[render.TextSubtitle] != "Sheet 1" {
				t.Errorf("page 1 subtitle = %q", req.Texts[render.TextSubtitle])
			}
		case 1:
			if req.Texts[render.TextSubtitle] != "Sheet 2" || req.Texts["extra"] != "x" {
				t.Errorf("page 2 texts = %v", req.Texts)
			}
		}
		if !req.Mask.Visible("Base") {
			t.Errorf("page %d: ancestor Base not visible", req.Page)
		}
	}
}

func TestExportUnknownLayerContinuesSiblings(t *testing.T) {
	r := &fakeRenderer{}
	o := newOrchestrator(t, r, Options{Jobs: 2})

	outputs := []config.Output{
		output("Water.pdf", render.FormatPDF, []string{"Base"}, []string{"Plumbing"}),
		output("Elektra.pdf", render.FormatPDF, []string{"Electrical"}),
	}
	results := o.Export(context.Background(), outputs)

	if !ferrors.Is(results[0].Err, ferrors.ErrCodeUnknownLayerReference) {
		t.Fatalf("Water.pdf error = %v, want UNKNOWN_LAYER_REFERENCE", results[0].Err)
	}
	var ref *layers.UnknownLayerReferenceError
	if !errors.As(results[0].Err, &ref) || ref.Layers[0] != "Plumbing" {
		t.Errorf("error does not name Plumbing: %v", results[0].Err)
	}
	if !results[1].OK() || len(results[1].Files) != 1 {
		t.Errorf("Elektra.pdf = %+v", results[1])
	}
	if got := r.outputs(); got["Water.pdf"] != 0 || got["Elektra.pdf"] != 1 {
		t.Errorf("rendered %v, want no Water.pdf pages", got)
	}
	if got := Failed(results); len(got) != 1 || got[0].Output.Filename != "Water.pdf" {
		t.Errorf("Failed() = %v", got)
	}
}

func TestExportRenderFailure(t *testing.T) {
	r := &fakeRenderer{fail: map[int]bool{1: true}}
	o := newOrchestrator(t, r, Options{Jobs: 1})

	outputs := []config.Output{
		output("Elektra.pdf", render.FormatPDF, []string{"Electrical"}, []string{"Lighting"}, []string{"Base"}),
	}
	results := o.Export(context.Background(), outputs)

	err := results[0].Err
	if !ferrors.Is(err, ferrors.ErrCodeRenderFailure) {
		t.Fatalf("error = %v, want RENDER_FAILURE", err)
	}
	var re *RenderError
	if !errors.As(err, &re) || re.Output != "Elektra.pdf" || re.Page != 1 {
		t.Errorf("RenderError = %+v", re)
	}
	if !strings.Contains(err.Error(), "Elektra.pdf page 2") {
		t.Errorf("error %q does not name the page", err)
	}
	if len(results[0].Files) != 0 {
		t.Errorf("failed output wrote %v", results[0].Files)
	}
	entries, _ := os.ReadDir(o.Options.OutputDir)
	if len(entries) != 0 {
		t.Errorf("output dir not empty: %v", entries)
	}
}

func TestExportFailureDoesNotAbortSiblingOutputs(t *testing.T) {
	r := &fakeRenderer{fail: map[int]bool{2: true}}
	o := newOrchestrator(t, r, Options{Jobs: 3})

	outputs := []config.Output{
		output("A.pdf", render.FormatPDF, []string{"Base"}, []string{"Base"}, []string{"Base"}),
		output("B.pdf", render.FormatPDF, []string{"Titleblock"}),
	}
	results := o.Export(context.Background(), outputs)
	if results[0].OK() {
		t.Error("A.pdf should fail")
	}
	if !results[1].OK() {
		t.Errorf("B.pdf error = %v", results[1].Err)
	}
}

func TestExportRespectsJobs(t *testing.T) {
	r := &fakeRenderer{slow: map[int]bool{0: true, 1: true, 2: true, 3: true}}
	o := newOrchestrator(t, r, Options{Jobs: 2})

	outputs := []config.Output{
		output("A.svg", render.FormatSVG, []string{"Base"}, []string{"Base"}),
		output("B.svg", render.FormatSVG, []string{"Base"}, []string{"Base"}, []string{"Base"}, []string{"Base"}),
	}
	o.Export(context.Background(), outputs)
	if p := r.peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestExportPerPageFiles(t *testing.T) {
	r := &fakeRenderer{}
	o := newOrchestrator(t, r, Options{DatePrefix: true, KeepSVG: true})

	out := output("Plan.svg", render.FormatSVG, []string{"Base"}, []string{"Titleblock"})
	results := o.Export(context.Background(), []config.Output{out})
	if !results[0].OK() {
		t.Fatal(results[0].Err)
	}

	dir := o.Options.OutputDir
	want := []string{
		filepath.Join(dir, "2024-03-09 Plan-p1.svg"),
		filepath.Join(dir, "2024-03-09 Plan-p2.svg"),
		filepath.Join(dir, "svg", "2024-03-09 Plan.svg_page1.svg"),
		filepath.Join(dir, "svg", "2024-03-09 Plan.svg_page2.svg"),
	}
	if fmt.Sprint(results[0].Files) != fmt.Sprint(want) {
		t.Errorf("Files = %v, want %v", results[0].Files, want)
	}
	for _, f := range want {
		if _, err := os.Stat(f); err != nil {
			t.Error(err)
		}
	}
}

func TestExportKeepSVGListsPageSources(t *testing.T) {
	r := &fakeRenderer{}
	o := newOrchestrator(t, r, Options{KeepSVG: true})

	out := output("Elektra.pdf", render.FormatPDF, []string{"Electrical"}, []string{"Lighting"})
	results := o.Export(context.Background(), []config.Output{out})
	if !results[0].OK() {
		t.Fatal(results[0].Err)
	}

	dir := o.Options.OutputDir
	want := []string{
		filepath.Join(dir, "Elektra.pdf"),
		filepath.Join(dir, "svg", "Elektra.pdf_page1.svg"),
		filepath.Join(dir, "svg", "Elektra.pdf_page2.svg"),
	}
	if fmt.Sprint(results[0].Files) != fmt.Sprint(want) {
		t.Errorf("Files = %v, want %v", results[0].Files, want)
	}
	for _, f := range want {
		if _, err := os.Stat(f); err != nil {
			t.Error(err)
		}
	}
}

func TestExportDryRun(t *testing.T) {
	r := &fakeRenderer{}
	o := newOrchestrator(t, r, Options{DryRun: true})

	results := o.Export(context.Background(), []config.Output{
		output("Elektra.pdf", render.FormatPDF, []string{"Electrical"}),
	})
	if !results[0].OK() || len(results[0].Masks) != 1 {
		t.Fatalf("result = %+v", results[0])
	}
	if len(r.requests) != 0 || len(results[0].Files) != 0 {
		t.Error("dry run rendered pages")
	}
	if !results[0].Masks[0].Visible("Base") {
		t.Error("mask should show Base")
	}
}

func TestExportCanceled(t *testing.T) {
	r := &fakeRenderer{}
	o := newOrchestrator(t, r, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := o.Export(ctx, []config.Output{output("Elektra.pdf", render.FormatPDF, []string{"Base"})})
	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", results[0].Err)
	}
}

func TestFilenames(t *testing.T) {
	out := config.Output{Filename: "Elektra.pdf"}
	if got := Filename(out, "2024-03-09", true); got != "2024-03-09 Elektra.pdf" {
		t.Errorf("Filename() = %q", got)
	}
	if got := Filename(out, "2024-03-09", false); got != "Elektra.pdf" {
		t.Errorf("Filename() = %q", got)
	}

	tests := []struct {
		name  string
		page  int
		pages int
		want  string
	}{
		{"Plan.png", 0, 1, "Plan.png"},
		{"Plan.png", 0, 3, "Plan-p1.png"},
		{"Plan.png", 2, 3, "Plan-p3.png"},
		{"2024-03-09 Plan.svg", 1, 2, "2024-03-09 Plan-p2.svg"},
	}
	for _, tt := range tests {
		if got := PageFilename(tt.name, tt.page, tt.pages); got != tt.want {
			t.Errorf("PageFilename(%q, %d, %d) = %q, want %q", tt.name, tt.page, tt.pages, got, tt.want)
		}
	}
}
