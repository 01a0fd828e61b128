package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/floorplan/pkg/annotation"
	"github.com/matzehuels/floorplan/pkg/config"
	ferrors "github.com/matzehuels/floorplan/pkg/errors"
	"github.com/matzehuels/floorplan/pkg/layers"
	"github.com/matzehuels/floorplan/pkg/observability"
	"github.com/matzehuels/floorplan/pkg/render"
	"github.com/matzehuels/floorplan/pkg/svgdoc"
)

// DateFormat is the layout of the date written into the title block and
// prepended to output filenames.
const DateFormat = render.DateFormat

// Renderer renders one page. [*render.PageRenderer] is the production
// implementation; tests substitute fakes.
type Renderer interface {
	Render(ctx context.Context, req render.Request) (render.Artifact, error)
}

// =============================================================================
// Options
// =============================================================================

// Options configures an [Orchestrator].
type Options struct {
	OutputDir  string
	Jobs       int  // Concurrent page renders across all outputs
	DPI        int  // Used when an output sets none
	DatePrefix bool // Prefix filenames with the ISO date
	KeepSVG    bool // Also write the composed page SVGs
	DryRun     bool // Resolve masks only, render nothing

	Logger *log.Logger
	Now    func() time.Time
}

// SetDefaults fills unset fields from the configuration defaults.
func (o *Options) SetDefaults() {
	if o.OutputDir == "" {
		o.OutputDir = config.DefaultOutputDir
	}
	if o.Jobs <= 0 {
		o.Jobs = config.DefaultJobs
	}
	if o.DPI <= 0 {
		o.DPI = config.DefaultDPI
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// OptionsFrom derives orchestrator options from export settings.
func OptionsFrom(s config.ExportSettings, logger *log.Logger) Options {
	return Options{
		OutputDir:  s.OutputDir,
		Jobs:       s.Jobs,
		DPI:        s.DPI,
		DatePrefix: s.UseDatePrefix(),
		KeepSVG:    s.KeepSVG,
		Logger:     logger,
	}
}

// =============================================================================
// Results
// =============================================================================

// Result is the outcome of one output.
type Result struct {
	Output   config.Output
	Masks    []layers.Mask // One per page, set when every reference resolved
	Files    []string      // Files written, in page order
	Duration time.Duration
	Err      error
}

// OK reports whether the output was produced.
func (r Result) OK() bool { return r.Err == nil }

// RenderError reports a page that failed to render. It unwraps to the
// renderer's error, which carries RENDER_FAILURE.
type RenderError struct {
	Output string
	Page   int // 0-based
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s page %d: %v", e.Output, e.Page+1, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// =============================================================================
// Orchestrator
// =============================================================================

// Orchestrator exports outputs of one drawing. It is safe to call Export
// repeatedly; each call is a run with its own ID.
type Orchestrator struct {
	Document *svgdoc.Document
	Model    *annotation.Model
	Renderer Renderer
	Options  Options

	// Merge concatenates PDF pages. Defaults to [MergePDF].
	Merge func(pages [][]byte, w io.Writer) error
}

// New creates an orchestrator for a loaded drawing.
func New(doc *svgdoc.Document, m *annotation.Model, r Renderer, opts Options) *Orchestrator {
	opts.SetDefaults()
	return &Orchestrator{
		Document: doc,
		Model:    m,
		Renderer: r,
		Options:  opts,
		Merge:    MergePDF,
	}
}

// job is one output in flight.
type job struct {
	result  *Result
	pages   []render.Artifact
	errs    []error
	failed  atomic.Bool
	started time.Time
}

// Export produces every output and returns one result per output, in input
// order.
//
// All masks of an output are resolved before any of its pages is rendered:
// an unknown layer reference fails that output with UNKNOWN_LAYER_REFERENCE
// and nothing of it is rendered, while the other outputs continue. Pages of
// all outputs then render concurrently, at most Jobs at a time, and are
// assembled in page order whatever order they complete in. A failed page
// marks its output failed; pages already rendering finish, pages not yet
// started are skipped. Nothing is retried.
func (o *Orchestrator) Export(ctx context.Context, outputs []config.Output) []Result {
	opts := o.Options
	opts.SetDefaults()
	run := uuid.New()
	logger := opts.Logger.With("run", run.String()[:8])
	hooks := observability.Pipeline()
	date := opts.Now().Format(DateFormat)

	results := make([]Result, len(outputs))
	jobs := make([]*job, 0, len(outputs))
	for i, out := range outputs {
		results[i].Output = out
		masks, err := layers.ResolveAll(out.Selections(), o.Model)
		if err != nil {
			results[i].Err = err
			logger.Error("skipping output", "output", out.Filename, "err", ferrors.UserMessage(err))
			hooks.OnExportComplete(ctx, out.Filename, 0, err)
			continue
		}
		results[i].Masks = masks
		if opts.DryRun {
			continue
		}
		jobs = append(jobs, &job{
			result:  &results[i],
			pages:   make([]render.Artifact, len(out.Pages)),
			errs:    make([]error, len(out.Pages)),
			started: time.Now(),
		})
		hooks.OnExportStart(ctx, out.Filename, len(out.Pages))
		logger.Info("exporting", "output", out.Filename, "pages", len(out.Pages))
	}
	if opts.DryRun {
		return results
	}

	g := new(errgroup.Group)
	g.SetLimit(opts.Jobs)
	for _, j := range jobs {
		for i := range j.result.Output.Pages {
			g.Go(func() error {
				if j.failed.Load() {
					return nil
				}
				if err := ctx.Err(); err != nil {
					j.failed.Store(true)
					j.errs[i] = err
					return err
				}
				start := time.Now()
				art, err := o.Renderer.Render(ctx, request(j.result.Output, i, o.Document, j.result.Masks[i], date, opts.DPI))
				hooks.OnPageRendered(ctx, j.result.Output.Filename, i, time.Since(start), err)
				if err != nil {
					if !ferrors.Is(err, ferrors.ErrCodeRenderFailure) {
						err = ferrors.Wrap(ferrors.ErrCodeRenderFailure, err, "render failed")
					}
					j.failed.Store(true)
					j.errs[i] = &RenderError{Output: j.result.Output.Filename, Page: i, Err: err}
					logger.Error("page failed", "output", j.result.Output.Filename, "page", i+1, "err", ferrors.UserMessage(err))
					return j.errs[i]
				}
				j.pages[i] = art
				return nil
			})
		}
	}
	// Without a group context a failed page does not cancel the others;
	// each output collects its own page errors below.
	if err := g.Wait(); err != nil {
		logger.Debug("export finished with failed pages", "first", ferrors.UserMessage(err))
	}

	for _, j := range jobs {
		res := j.result
		if err := errors.Join(j.errs...); err != nil {
			res.Err = err
		} else {
			res.Files, res.Err = o.assemble(res.Output, j.pages, date, opts)
		}
		res.Duration = time.Since(j.started)
		hooks.OnExportComplete(ctx, res.Output.Filename, res.Duration, res.Err)
		if res.Err == nil {
			logger.Info("exported", "output", res.Output.Filename, "files", len(res.Files), "duration", res.Duration)
		}
	}
	return results
}

// request builds the render request of page i of out.
func request(out config.Output, i int, doc *svgdoc.Document, mask layers.Mask, date string, defaultDPI int) render.Request {
	page := out.Pages[i]
	dpi := out.DPI
	if dpi <= 0 {
		dpi = defaultDPI
	}
	return render.Request{
		Document: doc,
		Mask:     mask,
		Format:   out.Format,
		Width:    out.Width,
		Height:   out.Height,
		DPI:      dpi,
		Opacity:  page.Opacity,
		Texts:    render.TitleBlock(out.Title, page.Subtitle, date, i, len(out.Pages), page.Texts),
		Output:   out.Filename,
		Page:     i,
	}
}
