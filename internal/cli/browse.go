package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// browseCommand opens the interactive circuit browser.
func (c *CLI) browseCommand() *cobra.Command {
	var flags circuitFlags

	cmd := &cobra.Command{
		Use:   "browse <drawing.svg>",
		Short: "Browse the circuits of a drawing interactively",
		Long: `Show the circuit manifest as a navigable table. Enter opens the devices of a
circuit, esc goes back, q quits. Validation problems are printed after the
browser closes; the best-effort manifest is shown regardless.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := c.load(ctx, args[0])
			if err != nil {
				return err
			}
			manifest, err := buildCircuits(ctx, d, flags.apply(cmd, d.cfg.Circuits))
			if manifest == nil {
				return err
			}

			p := tea.NewProgram(NewCircuitListModel(manifest),
				tea.WithContext(ctx),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
				tea.WithAltScreen())
			if _, perr := p.Run(); perr != nil {
				return perr
			}

			reportIssues(cmd.ErrOrStderr(), manifest, err)
			return summarize(err)
		},
	}

	flags.register(cmd)
	return cmd
}
