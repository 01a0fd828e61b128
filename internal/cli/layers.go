package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	ferrors "github.com/matzehuels/floorplan/pkg/errors"
	"github.com/matzehuels/floorplan/pkg/layers"
)

// layersCommand prints the layer tree of a drawing.
func (c *CLI) layersCommand() *cobra.Command {
	var ids bool

	cmd := &cobra.Command{
		Use:   "layers <drawing.svg>",
		Short: "Print the layer tree of a drawing",
		Long: `Print every layer of the drawing in document order, indented by depth.

Filled markers are layers shown as stored in the drawing (the layer and all its
ancestors visible), hollow markers are hidden ones. The number in parentheses
counts the annotation elements directly on the layer.`,
		Example: `  floorplan layers plan.svg
  floorplan layers --ids plan.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, l := range d.model.Layers() {
				if ids {
					fmt.Fprintln(w, l.ID)
					continue
				}
				shown, _ := d.model.EffectivelyVisible(l.ID)
				elems, _ := d.model.ElementsOf(l.ID)
				printLayer(w, l.Depth, l.ID, shown, len(elems))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&ids, "ids", false, "print layer IDs only, one per line")
	return cmd
}

// maskCommand resolves a layer selection into the visibility of every layer.
func (c *CLI) maskCommand() *cobra.Command {
	var (
		set    string
		output string
		page   int
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "mask <drawing.svg> [layer...]",
		Short: "Show which layers a selection makes visible",
		Long: `Resolve a layer selection the way export does and print the visible layers.

The selection is either the layers given as arguments or a configured page
chosen with --set, --output and --page. Ancestors of selected layers become
visible too. Unknown layer names fail before anything is printed.`,
		Example: `  floorplan mask plan.svg Titleblock Electrical
  floorplan mask plan.svg --set Elektra --output Elektra.pdf --page 2
  floorplan mask plan.svg --all Electrical`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			sel := layers.Selection{Name: "command line", Layers: args[1:]}
			if output != "" {
				if set == "" {
					if set, err = d.cfg.DetectSet(args[0]); err != nil {
						return err
					}
				}
				out, err := d.cfg.Output(set, output)
				if err != nil {
					return err
				}
				if page < 1 || page > len(out.Pages) {
					return ferrors.New(ferrors.ErrCodeInvalidInput,
						"%s has %d pages, got --page %d", out.Filename, len(out.Pages), page)
				}
				sel = out.Pages[page-1].Selection(out.Filename)
				sel.Layers = append(sel.Layers, args[1:]...)
			} else if set != "" {
				return ferrors.New(ferrors.ErrCodeInvalidInput, "--set needs --output")
			}

			mask, err := layers.Resolve(sel, d.model)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !all {
				for _, id := range mask.VisibleIDs() {
					fmt.Fprintln(w, id)
				}
				return nil
			}
			for _, l := range d.model.Layers() {
				printLayer(w, l.Depth, l.ID, mask.Visible(l.ID), 0)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&set, "set", "s", "", "configured set (default: detected from the drawing's filename)")
	cmd.Flags().StringVar(&output, "output", "", "configured output of the set, by filename or name")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page of the output, starting at 1")
	cmd.Flags().BoolVar(&all, "all", false, "print every layer as a tree with its visibility")
	return cmd
}
