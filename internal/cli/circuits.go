package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/floorplan/pkg/annotation"
	"github.com/matzehuels/floorplan/pkg/circuit"
	ferrors "github.com/matzehuels/floorplan/pkg/errors"
	"github.com/matzehuels/floorplan/pkg/export"
	"github.com/matzehuels/floorplan/pkg/observability"
	"github.com/matzehuels/floorplan/pkg/report"
)

// circuitFlags are the circuit build options settable on the command line.
type circuitFlags struct {
	layers []string
	strict bool
	prefix string
}

func (f *circuitFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.layers, "layers", nil, "only consider elements on these layers and their sublayers")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "treat devices without a circuit as errors")
	cmd.Flags().StringVar(&f.prefix, "strip-prefix", "", "prefix ignored when ordering circuit IDs (e.g. K)")
}

// apply overrides the configured options with the flags that were set.
func (f *circuitFlags) apply(cmd *cobra.Command, opts circuit.Options) circuit.Options {
	if cmd.Flags().Changed("layers") {
		opts.Layers = f.layers
	}
	if cmd.Flags().Changed("strict") {
		opts.StrictUnassigned = f.strict
	}
	if cmd.Flags().Changed("strip-prefix") {
		opts.StripPrefix = f.prefix
	}
	return opts
}

// circuitsCommand derives the circuit manifest of a drawing.
func (c *CLI) circuitsCommand() *cobra.Command {
	var (
		flags  circuitFlags
		format string
		output string
		split  string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "circuits <drawing.svg>",
		Short: "List the electrical circuits drawn in a drawing",
		Long: `Group the annotated devices of the drawing into circuits, validate them and
print the manifest ordered naturally by circuit ID (1, 2, 10, 10a).

Circuits are numbered per distribution board: the board comes from layers
named like V0_Elektra_L01 or from identifiers like L01.2. With --split every
board is written to its own file (L01.csv, L02.csv) in the given directory.

Validation errors (devices on two circuits, circuits without supply, links to
missing devices) are all reported and the command fails. Use --force to write
the best-effort manifest anyway.

Formats: ` + strings.Join(report.Formats, ", "),
		Example: `  floorplan circuits plan.svg
  floorplan circuits plan.svg -f csv -o circuits.csv
  floorplan circuits plan.svg -f svg -o circuits.svg --layers Electrical
  floorplan circuits plan.svg -f csv --split tables`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := report.ValidateFormat(format); err != nil {
				return err
			}
			if split != "" && output != "" {
				return ferrors.New(ferrors.ErrCodeInvalidInput, "--split and --output cannot be combined")
			}
			d, err := c.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			manifest, err := buildCircuits(cmd.Context(), d, flags.apply(cmd, d.cfg.Circuits))
			if manifest == nil {
				return err
			}
			stderr := cmd.ErrOrStderr()
			reportIssues(stderr, manifest, err)
			if err != nil && !force {
				return summarize(err)
			}

			if split != "" {
				paths, werr := report.WriteBoards(split, manifest, format)
				for _, p := range paths {
					printFile(stderr, p)
				}
				if werr != nil {
					return werr
				}
				return summarize(err)
			}

			w, closeFn, werr := writerFor(cmd, output)
			if werr != nil {
				return werr
			}
			if werr = report.Write(w, manifest, format); werr != nil {
				_ = closeFn()
				return werr
			}
			if werr = closeFn(); werr != nil {
				return werr
			}
			if output != "" && output != "-" {
				printFile(stderr, output)
			}
			return summarize(err)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatText, "output format")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().StringVar(&split, "split", "", "write one file per distribution board into this directory")
	cmd.Flags().BoolVar(&force, "force", false, "write the manifest even when validation fails")
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(report.Formats, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}

// checkCommand validates a drawing against its configuration without
// rendering anything.
func (c *CLI) checkCommand() *cobra.Command {
	var flags circuitFlags

	cmd := &cobra.Command{
		Use:   "check <drawing.svg>",
		Short: "Validate a drawing and its configuration",
		Long: `Check that the drawing loads, that its circuits validate and that every page
of every configured set names only layers the drawing has. Nothing is rendered.
Every problem is reported before the command fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stderr := cmd.ErrOrStderr()
			d, err := c.load(ctx, args[0])
			if err != nil {
				return err
			}
			printSuccess(stderr, "%s: %d layers, %d annotations", args[0], len(d.model.Layers()), d.model.Count(annotation.KindAny))

			var failures int
			manifest, err := buildCircuits(ctx, d, flags.apply(cmd, d.cfg.Circuits))
			if manifest == nil {
				return err
			}
			reportIssues(stderr, manifest, err)
			if err != nil {
				failures++
			} else {
				printSuccess(stderr, "circuits valid")
			}
			printStats(stderr, len(manifest.Circuits), manifest.DeviceCount(), len(manifest.Warnings))

			opts := export.OptionsFrom(d.cfg.Export, c.Logger)
			opts.DryRun = true
			orch := export.New(d.doc, d.model, nil, opts)
			for _, set := range d.cfg.SetNames() {
				outputs, _ := d.cfg.Set(set)
				for _, res := range orch.Export(ctx, outputs) {
					if !res.OK() {
						failures++
						printError(stderr, "%s/%s: %s", set, res.Output.Filename, ferrors.UserMessage(res.Err))
						continue
					}
					printSuccess(stderr, "%s/%s: %d pages", set, res.Output.Filename, len(res.Masks))
				}
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			if failures > 0 {
				return fmt.Errorf("check failed: %d problems", failures)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// buildCircuits builds the manifest and reports the build to the hooks.
func buildCircuits(ctx context.Context, d *drawing, opts circuit.Options) (*circuit.Manifest, error) {
	start := time.Now()
	manifest, err := circuit.Build(d.model, opts)
	if manifest != nil {
		observability.Pipeline().OnBuildComplete(ctx, len(manifest.Circuits), len(manifest.Warnings), time.Since(start), err)
	}
	return manifest, err
}

// reportIssues prints warnings and validation errors.
func reportIssues(w io.Writer, m *circuit.Manifest, err error) {
	for _, issue := range m.Warnings {
		printWarning(w, "%s", issue)
	}
	var verrs *circuit.ValidationErrors
	if errors.As(err, &verrs) {
		for _, v := range verrs.Errors {
			printError(w, "%s", v)
		}
	}
}

// summarize shortens a validation failure whose issues were already printed.
func summarize(err error) error {
	var verrs *circuit.ValidationErrors
	if errors.As(err, &verrs) {
		return ferrors.New(ferrors.ErrCodeCircuitValidation, "%d circuit validation errors", len(verrs.Errors))
	}
	return err
}
