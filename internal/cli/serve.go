package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/floorplan/pkg/server"
)

// serveCommand serves a drawing over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve <drawing.svg>",
		Short: "Serve layers, circuits and composed pages over HTTP",
		Long: `Start a read-only HTTP API for a drawing. The drawing is read again on every
request, so edits show up without a restart; the configuration is read once.

Endpoints:
  GET /api/layers
  GET /api/circuits?format=json
  GET /api/sets
  GET /api/sets/{set}/{output}/pages/{page}/mask
  GET /api/sets/{set}/{output}/pages/{page}.svg`,
		Example: `  floorplan serve plan.svg
  floorplan serve plan.svg --addr :9000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(args[0])
			if err != nil {
				return err
			}
			srv := server.New(args[0], cfg, loggerFromContext(cmd.Context()))
			printInfo(cmd.ErrOrStderr(), "serving %s on %s", args[0], StyleHighlight.Render(addr))
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "address to listen on")
	return cmd
}
