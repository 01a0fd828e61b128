package render

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	ferrors "github.com/matzehuels/floorplan/pkg/errors"
	"github.com/matzehuels/floorplan/pkg/layers"
	"github.com/matzehuels/floorplan/pkg/svgdoc"
)

// Format constants for page artifacts.
const (
	FormatSVG = "svg"
	FormatPDF = "pdf"
	FormatPNG = "png"
)

// Title-block element IDs filled in on every page.
const (
	TextTitle    = "title-block-title"
	TextSubtitle = "title-block-subtitle"
	TextDate     = "title-block-date"
	TextSheet    = "title-block-sheet"
)

// DateFormat is the layout of the title-block date.
const DateFormat = "2006-01-02"

// TitleBlock returns the title-block texts of page i (0-based) of n pages.
// extra adds further fields. The generated fields win over entries of extra,
// except that an empty title or subtitle keeps the value given in extra.
func TitleBlock(title, subtitle, date string, i, n int, extra map[string]string) map[string]string {
	texts := make(map[string]string, len(extra)+4)
	maps.Copy(texts, extra)
	generated := map[string]string{
		TextTitle:    title,
		TextSubtitle: subtitle,
		TextDate:     date,
		TextSheet:    fmt.Sprintf("%d / %d", i+1, n),
	}
	for id, v := range generated {
		if v != "" || texts[id] == "" {
			texts[id] = v
		}
	}
	return texts
}

// Request describes one page to render. The document is shared between
// concurrent requests and is never modified.
type Request struct {
	Document *svgdoc.Document
	Mask     layers.Mask
	Format   string
	Width    string // Page size override, "" keeps the drawing's
	Height   string
	DPI      int
	Opacity  map[string]float64 // Layer ID -> opacity
	Texts    map[string]string  // Element ID -> replacement text

	Output string // For logs and errors
	Page   int    // 0-based page index
}

// Artifact is a rendered page.
type Artifact struct {
	Format string
	Page   int
	Data   []byte
	SVG    []byte // The composed page before conversion
}

// Compose applies a request to a private copy of the drawing and returns
// the page SVG: layer visibility from the mask, layer opacity, title-block
// texts and page size.
func Compose(req Request) ([]byte, error) {
	if req.Document == nil {
		return nil, ferrors.New(ferrors.ErrCodeInvalidInput, "render request without document")
	}
	doc := req.Document.Clone()
	doc.SetPageSize(req.Width, req.Height)

	for _, l := range doc.Layers() {
		id := svgdoc.LayerID(l)
		if req.Mask.Known(id) {
			svgdoc.SetVisible(l, req.Mask.Visible(id))
		}
		if op, ok := req.Opacity[id]; ok {
			svgdoc.SetOpacity(l, op)
		}
	}
	for _, id := range slices.Sorted(maps.Keys(req.Texts)) {
		if el := doc.ElementByID(id); el != nil {
			svgdoc.SetText(el, req.Texts[id])
		}
	}
	return doc.Bytes()
}

// PageRenderer composes pages and converts them with an external converter.
// It is safe for concurrent use.
type PageRenderer struct {
	Converter Converter
	Logger    *log.Logger
}

// NewPageRenderer returns a renderer using conv. A nil logger discards
// output.
func NewPageRenderer(conv Converter, logger *log.Logger) *PageRenderer {
	if conv == nil {
		conv = RSVG{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &PageRenderer{Converter: conv, Logger: logger}
}

// Render renders one page. Failures are reported as RENDER_FAILURE.
func (r *PageRenderer) Render(ctx context.Context, req Request) (Artifact, error) {
	start := time.Now()
	svg, err := Compose(req)
	if err != nil {
		return Artifact{}, ferrors.Wrap(ferrors.ErrCodeRenderFailure, err, "compose page %d", req.Page+1)
	}

	art := Artifact{Format: req.Format, Page: req.Page, SVG: svg}
	switch req.Format {
	case FormatSVG, "":
		art.Format = FormatSVG
		art.Data = svg
	case FormatPDF, FormatPNG:
		art.Data, err = r.Converter.Convert(ctx, svg, req.Format, req.DPI)
		if err != nil {
			return Artifact{}, ferrors.Wrap(ferrors.ErrCodeRenderFailure, err,
				"%s page %d with %s", req.Output, req.Page+1, r.Converter.Name())
		}
	default:
		return Artifact{}, ferrors.New(ferrors.ErrCodeInvalidFormat, "unsupported page format %q", req.Format)
	}

	r.Logger.Debug("rendered page",
		"output", req.Output,
		"page", req.Page+1,
		"visible", req.Mask.Count(),
		"bytes", len(art.Data),
		"duration", time.Since(start))
	return art, nil
}
