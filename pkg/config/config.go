package config

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/floorplan/pkg/annotation"
	"github.com/matzehuels/floorplan/pkg/circuit"
	ferrors "github.com/matzehuels/floorplan/pkg/errors"
	"github.com/matzehuels/floorplan/pkg/layers"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultDPI is the resolution handed to the converter.
	DefaultDPI = 90

	// DefaultOutputDir is where exports are written.
	DefaultOutputDir = "export"

	// DefaultJobs is the number of pages rendered concurrently.
	DefaultJobs = 4

	// DefaultRenderer is the converter used for PDF and PNG pages.
	DefaultRenderer = RendererRSVG
)

// Format constants for page outputs.
const (
	FormatPDF = "pdf"
	FormatSVG = "svg"
	FormatPNG = "png"
)

// Converter names.
const (
	RendererRSVG     = "rsvg-convert"
	RendererInkscape = "inkscape"
)

// ValidFormats is the set of supported page formats.
var ValidFormats = map[string]bool{
	FormatPDF: true,
	FormatSVG: true,
	FormatPNG: true,
}

// ValidRenderers is the set of supported converters.
var ValidRenderers = map[string]bool{
	RendererRSVG:     true,
	RendererInkscape: true,
}

// FileNames are the configuration files looked for by [Find], in order.
var FileNames = []string{"floorplan.toml", "floorplan.yaml", "floorplan.yml"}

// =============================================================================
// Resolved Configuration
// =============================================================================

// Config is a loaded and expanded configuration.
type Config struct {
	Path       string
	Vocabulary annotation.Vocabulary
	Circuits   circuit.Options
	Export     ExportSettings

	sets map[string][]Output
}

// ExportSettings holds run-wide export defaults. CLI flags override them.
type ExportSettings struct {
	OutputDir  string `toml:"path" yaml:"path" json:"path"`
	Renderer   string `toml:"renderer" yaml:"renderer" json:"renderer"`
	DPI        int    `toml:"dpi" yaml:"dpi" json:"dpi"`
	Jobs       int    `toml:"jobs" yaml:"jobs" json:"jobs"`
	DatePrefix *bool  `toml:"date_prefix" yaml:"date_prefix" json:"date_prefix,omitempty"`
	KeepSVG    bool   `toml:"keep_svg" yaml:"keep_svg" json:"keep_svg"`
}

// SetDefaults fills every unset field.
func (s *ExportSettings) SetDefaults() {
	if s.OutputDir == "" {
		s.OutputDir = DefaultOutputDir
	}
	if s.Renderer == "" {
		s.Renderer = DefaultRenderer
	}
	if s.DPI <= 0 {
		s.DPI = DefaultDPI
	}
	if s.Jobs <= 0 {
		s.Jobs = DefaultJobs
	}
	if s.DatePrefix == nil {
		on := true
		s.DatePrefix = &on
	}
}

// Validate checks the settings after defaults were applied.
func (s *ExportSettings) Validate() error {
	if !ValidRenderers[s.Renderer] {
		return ferrors.New(ferrors.ErrCodeInvalidConfig,
			"invalid renderer: %q (must be one of: rsvg-convert, inkscape)", s.Renderer)
	}
	return ferrors.ValidatePath(s.OutputDir)
}

// UseDatePrefix reports whether output filenames get an ISO date prefix.
func (s ExportSettings) UseDatePrefix() bool { return s.DatePrefix == nil || *s.DatePrefix }

// Output is one file of a set: an ordered list of pages sharing a title,
// format and page size.
type Output struct {
	Set      string
	Filename string
	Title    string
	Format   string
	Width    string // Page width override, "" keeps the drawing's
	Height   string
	DPI      int // 0 uses ExportSettings.DPI
	Pages    []Page
}

// Name returns the filename without extension.
func (o Output) Name() string {
	return strings.TrimSuffix(o.Filename, filepath.Ext(o.Filename))
}

// Selections returns the layer selection of every page, in page order.
func (o Output) Selections() []layers.Selection {
	out := make([]layers.Selection, len(o.Pages))
	for i, p := range o.Pages {
		out[i] = p.Selection(o.Filename)
	}
	return out
}

// Page is one page of an output.
type Page struct {
	Index    int
	Subtitle string
	Layers   []string
	Opacity  map[string]float64 // Layer ID -> opacity
	Texts    map[string]string  // Element ID -> text, for title-block fields
}

// Selection returns the page's layer selection.
func (p Page) Selection(output string) layers.Selection {
	return layers.Selection{Name: output, Page: p.Index, Layers: slices.Clone(p.Layers)}
}

// Default returns the configuration used when no file exists: default
// vocabulary, default circuit rules and no sets.
func Default() *Config {
	c := &Config{
		Vocabulary: annotation.DefaultVocabulary(),
		sets:       map[string][]Output{},
	}
	c.Export.SetDefaults()
	return c
}

// SetNames returns the names of all sets, sorted.
func (c *Config) SetNames() []string {
	names := make([]string, 0, len(c.sets))
	for name := range c.sets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Set returns the outputs of a named set.
func (c *Config) Set(name string) ([]Output, error) {
	outputs, ok := c.sets[name]
	if !ok {
		return nil, ferrors.New(ferrors.ErrCodeNotFound,
			"unknown set %q (available: %s)", name, strings.Join(c.SetNames(), ", "))
	}
	return slices.Clone(outputs), nil
}

// DetectSet picks the set for a drawing by its filename: the longest set
// name contained in the file's base name. A configuration with a single set
// always uses it.
func (c *Config) DetectSet(documentPath string) (string, error) {
	names := c.SetNames()
	if len(names) == 1 {
		return names[0], nil
	}
	base := filepath.Base(documentPath)
	best := ""
	for _, name := range names {
		if strings.Contains(base, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return "", ferrors.New(ferrors.ErrCodeNotFound,
			"no set matches %q; choose one of: %s", base, strings.Join(names, ", "))
	}
	return best, nil
}

// Select returns the outputs of set whose filename contains only, or all of
// them when only is empty.
func (c *Config) Select(set, only string) ([]Output, error) {
	outputs, err := c.Set(set)
	if err != nil {
		return nil, err
	}
	if only == "" {
		return outputs, nil
	}
	var out []Output
	for _, o := range outputs {
		if strings.Contains(o.Filename, only) {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return nil, ferrors.New(ferrors.ErrCodeNotFound, "no output of set %q matches %q", set, only)
	}
	return out, nil
}

// Output finds an output of a set by filename or by name without extension.
func (c *Config) Output(set, name string) (Output, error) {
	outputs, err := c.Set(set)
	if err != nil {
		return Output{}, err
	}
	for _, o := range outputs {
		if o.Filename == name || o.Name() == name {
			return o, nil
		}
	}
	return Output{}, ferrors.New(ferrors.ErrCodeNotFound, "set %q has no output %q", set, name)
}
