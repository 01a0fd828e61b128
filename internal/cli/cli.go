package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/floorplan/pkg/annotation"
	"github.com/matzehuels/floorplan/pkg/config"
	"github.com/matzehuels/floorplan/pkg/observability"
	"github.com/matzehuels/floorplan/pkg/svgdoc"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display and completions.
	appName = "floorplan"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string // --config, "" searches next to the drawing
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Floorplan exports layer sets and circuit tables from annotated SVG drawings",
		Long: `Floorplan reads an Inkscape drawing whose layers and elements carry data-*
annotations. It exports configured layer combinations as multi-page PDF, SVG or
PNG files and derives the electrical circuits (supply, circuit, devices) drawn
in it.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			observability.SetPipelineHooks(logHooks{logger: c.Logger})
			return nil
		},
	}

	root.SetVersionTemplate(versionTemplate())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "configuration file (default: floorplan.toml next to the drawing)")

	root.AddCommand(c.layersCommand())
	root.AddCommand(c.maskCommand())
	root.AddCommand(c.circuitsCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Loading
// =============================================================================

// loadConfig reads the configuration given by --config, else the first
// configuration file next to the drawing, else in the working directory.
// Without any file the defaults apply.
func (c *CLI) loadConfig(drawing string) (*config.Config, error) {
	path := c.configPath
	if path == "" {
		path = config.Find(filepath.Dir(drawing))
	}
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path = config.Find(wd)
		}
	}
	if path == "" {
		c.Logger.Debug("no configuration file, using defaults")
		return config.Default(), nil
	}
	c.Logger.Debug("loading configuration", "path", path)
	return config.Load(path)
}

// drawing is a loaded document with its configuration.
type drawing struct {
	doc   *svgdoc.Document
	model *annotation.Model
	cfg   *config.Config
}

// load reads the configuration and the drawing at path.
func (c *CLI) load(ctx context.Context, path string) (*drawing, error) {
	cfg, err := c.loadConfig(path)
	if err != nil {
		return nil, err
	}

	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnLoadStart(ctx, path)
	doc, err := svgdoc.ReadFile(path)
	if err != nil {
		hooks.OnLoadComplete(ctx, path, 0, time.Since(start), err)
		return nil, err
	}
	m, err := annotation.Load(doc, cfg.Vocabulary)
	if err != nil {
		hooks.OnLoadComplete(ctx, path, 0, time.Since(start), err)
		return nil, err
	}
	hooks.OnLoadComplete(ctx, path, len(m.LayerIDs()), time.Since(start), nil)
	return &drawing{doc: doc, model: m, cfg: cfg}, nil
}

// writerFor opens path for writing, or returns stdout for "" and "-".
func writerFor(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
