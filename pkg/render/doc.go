// Package render produces single floorplan pages.
//
// # Overview
//
// A page is the drawing with a chosen set of layers visible. [Compose]
// applies a [Request] to a private copy of the document: every layer gets
// display:inline or display:none from the visibility mask, configured
// layers get an opacity, title-block text fields (title-block-title,
// -subtitle, -date, -sheet and any extra ids) receive their texts and the
// page size is overridden when requested. The shared document is never
// modified, so pages can be composed concurrently.
//
// # Format Conversion
//
// SVG pages are the composed document itself. PDF and PNG pages are produced
// by an external [Converter]:
//
//   - [RSVG] pipes the page through rsvg-convert (librsvg)
//   - [Inkscape] runs inkscape -C -d DPI -o page.pdf page.svg
//
// Converters run with exec.CommandContext, so cancelling the context stops
// a running conversion.
//
//	r := render.NewPageRenderer(render.RSVG{}, logger)
//	art, err := r.Render(ctx, render.Request{
//	    Document: doc,
//	    Mask:     mask,
//	    Format:   render.FormatPDF,
//	    DPI:      90,
//	})
package render
