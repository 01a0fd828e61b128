// Package export renders configured outputs of a floorplan drawing.
//
// # Overview
//
// An output is one file of a configuration set: an ordered list of pages,
// each showing a selection of layers. The [Orchestrator] turns outputs into
// files in three steps:
//
//  1. Resolve: every page's layer selection becomes a visibility mask. An
//     unknown layer fails the whole output before anything renders; other
//     outputs are unaffected.
//  2. Render: pages of all outputs render concurrently through a
//     [Renderer], bounded by Options.Jobs. Each page gets the title-block
//     texts of its output: title, subtitle, date and sheet "i / n".
//  3. Assemble: PDF pages are concatenated with pdfcpu into one file, SVG
//     and PNG outputs produce one file per page (name-pN.ext). Filenames get
//     an ISO date prefix unless disabled.
//
// # Usage
//
//	orch := export.New(doc, model, render.NewPageRenderer(conv, logger), export.Options{
//	    OutputDir:  "export",
//	    Jobs:       4,
//	    DatePrefix: true,
//	})
//	for _, r := range orch.Export(ctx, outputs) {
//	    if !r.OK() {
//	        logger.Error("export failed", "output", r.Output.Filename, "err", r.Err)
//	    }
//	}
//
// # Failures
//
// A failed page is reported as a [*RenderError] naming the output and page,
// unwrapping to RENDER_FAILURE. Pages of the same output that already run
// finish; its remaining pages are skipped and nothing is written for it.
// Nothing is retried.
package export
