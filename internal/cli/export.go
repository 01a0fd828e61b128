package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/floorplan/pkg/config"
	ferrors "github.com/matzehuels/floorplan/pkg/errors"
	"github.com/matzehuels/floorplan/pkg/export"
	"github.com/matzehuels/floorplan/pkg/render"
)

// exportFlags holds the export command's flags. Flags that were not set
// keep the configured values.
type exportFlags struct {
	set       string
	only      string
	outputDir string
	renderer  string
	dpi       int
	jobs      int
	keepSVG   bool
	noDate    bool
	dryRun    bool
}

// settings applies the flags that were set to the configured settings.
func (f *exportFlags) settings(cmd *cobra.Command, s config.ExportSettings) (config.ExportSettings, error) {
	changed := cmd.Flags().Changed
	if changed("output-dir") {
		s.OutputDir = f.outputDir
	}
	if changed("renderer") {
		s.Renderer = f.renderer
	}
	if changed("dpi") {
		s.DPI = f.dpi
	}
	if changed("jobs") {
		s.Jobs = f.jobs
	}
	if changed("keep-svg") {
		s.KeepSVG = f.keepSVG
	}
	if changed("no-date") {
		on := !f.noDate
		s.DatePrefix = &on
	}
	s.SetDefaults()
	return s, s.Validate()
}

// exportCommand renders the outputs of a configured set.
func (c *CLI) exportCommand() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export <drawing.svg>",
		Short: "Render the configured layer sets of a drawing",
		Long: `Render every output of a configured set. Each page shows the layers it
names (and their parent layers); PDF outputs are joined into one file, SVG and
PNG outputs produce one file per page.

The set is detected from the drawing's filename unless --set is given. An
output naming an unknown layer fails without rendering anything while the
other outputs continue. The command fails if any output failed.`,
		Example: `  floorplan export plan.svg
  floorplan export plan.svg --set Elektra --only Groepen
  floorplan export plan.svg --renderer inkscape --dpi 150 --keep-svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			stderr := cmd.ErrOrStderr()

			d, err := c.load(ctx, args[0])
			if err != nil {
				return err
			}
			settings, err := flags.settings(cmd, d.cfg.Export)
			if err != nil {
				return err
			}
			set := flags.set
			if set == "" {
				if set, err = d.cfg.DetectSet(args[0]); err != nil {
					return err
				}
				logger.Debug("detected set", "set", set)
			}
			outputs, err := d.cfg.Select(set, flags.only)
			if err != nil {
				return err
			}

			conv, err := render.NewConverter(settings.Renderer)
			if err != nil {
				return err
			}
			opts := export.OptionsFrom(settings, logger)
			opts.DryRun = flags.dryRun
			orch := export.New(d.doc, d.model, render.NewPageRenderer(conv, logger), opts)

			prog := newProgress(logger)
			spinner := newSpinner(ctx, stderr, fmt.Sprintf("Exporting %s (%d outputs)", set, len(outputs)))
			if !flags.dryRun {
				spinner.Start()
			}
			results := orch.Export(ctx, outputs)
			spinner.Stop()
			if spinner.Cancelled() {
				return ctx.Err()
			}

			for _, res := range results {
				name := res.Output.Filename
				switch {
				case !res.OK():
					printError(stderr, "%s: %s", name, ferrors.UserMessage(res.Err))
				case flags.dryRun:
					printInfo(stderr, "%s: %d pages", name, len(res.Masks))
					for i, m := range res.Masks {
						printDetail(stderr, "page %d: %v", i+1, m.VisibleIDs())
					}
				default:
					printSuccess(stderr, "%s", name)
					for _, f := range res.Files {
						printFile(stderr, f)
					}
				}
			}

			failed := export.Failed(results)
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d outputs failed", len(failed), len(results))
			}
			if !flags.dryRun {
				prog.done(fmt.Sprintf("Exported %d outputs to %s", len(results), filepath.Clean(settings.OutputDir)))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.set, "set", "s", "", "set to export (default: detected from the drawing's filename)")
	f.StringVar(&flags.only, "only", "", "only export outputs whose filename contains this text")
	f.StringVarP(&flags.outputDir, "output-dir", "o", config.DefaultOutputDir, "directory to write into")
	f.StringVar(&flags.renderer, "renderer", config.DefaultRenderer, "converter for PDF and PNG pages (rsvg-convert, inkscape)")
	f.IntVar(&flags.dpi, "dpi", config.DefaultDPI, "resolution for outputs that set none")
	f.IntVarP(&flags.jobs, "jobs", "j", config.DefaultJobs, "pages rendered concurrently")
	f.BoolVar(&flags.keepSVG, "keep-svg", false, "also write the composed page SVGs")
	f.BoolVar(&flags.noDate, "no-date", false, "do not prefix filenames with the date")
	f.BoolVarP(&flags.dryRun, "dry-run", "n", false, "resolve pages and report them without rendering")
	_ = cmd.RegisterFlagCompletionFunc("renderer",
		cobra.FixedCompletions([]string{config.RendererRSVG, config.RendererInkscape}, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}
