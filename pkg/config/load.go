package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/floorplan/pkg/annotation"
	"github.com/matzehuels/floorplan/pkg/circuit"
	ferrors "github.com/matzehuels/floorplan/pkg/errors"
)

// fileConfig mirrors the on-disk layout of floorplan.toml / floorplan.yaml.
type fileConfig struct {
	Vocabulary annotation.Vocabulary   `toml:"vocabulary" yaml:"vocabulary"`
	Circuits   fileCircuits            `toml:"circuits" yaml:"circuits"`
	Export     ExportSettings          `toml:"export" yaml:"export"`
	Defaults   fileDefaults            `toml:"defaults" yaml:"defaults"`
	Vars       map[string][]string     `toml:"vars" yaml:"vars"`
	Sets       map[string][]fileOutput `toml:"sets" yaml:"sets"`
}

type fileCircuits struct {
	StrictUnassigned bool                `toml:"strict_unassigned" yaml:"strict_unassigned"`
	StripPrefix      string              `toml:"strip_prefix" yaml:"strip_prefix"`
	Layers           []string            `toml:"layers" yaml:"layers"`
	Ignore           *circuit.IgnoreRule `toml:"ignore" yaml:"ignore"`
	Boards           *circuit.BoardRule  `toml:"boards" yaml:"boards"`
}

type fileDefaults struct {
	Format   string   `toml:"format" yaml:"format"`
	PageSize []string `toml:"page_size" yaml:"page_size"`
	DPI      int      `toml:"dpi" yaml:"dpi"`
}

type fileOutput struct {
	Filename string              `toml:"filename" yaml:"filename"`
	Title    string              `toml:"title" yaml:"title"`
	Format   string              `toml:"format" yaml:"format"`
	PageSize []string            `toml:"page_size" yaml:"page_size"`
	DPI      int                 `toml:"dpi" yaml:"dpi"`
	Each     string              `toml:"each" yaml:"each"`
	Vars     map[string][]string `toml:"vars" yaml:"vars"`
	Opacity  map[string]float64  `toml:"opacity" yaml:"opacity"`
	Texts    map[string]string   `toml:"texts" yaml:"texts"`
	Pages    []filePage          `toml:"pages" yaml:"pages"`
}

type filePage struct {
	Subtitle string              `toml:"subtitle" yaml:"subtitle"`
	Layers   []string            `toml:"layers" yaml:"layers"`
	Vars     map[string][]string `toml:"vars" yaml:"vars"`
	Opacity  map[string]float64  `toml:"opacity" yaml:"opacity"`
	Texts    map[string]string   `toml:"texts" yaml:"texts"`
}

// Load reads a configuration file. The format follows the extension:
// .toml, or .yaml/.yml. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	if err := ferrors.ValidatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ferrors.Wrap(ferrors.ErrCodeFileNotFound, err, "read config %s", path)
	}
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeInvalidPath, err, "read config %s", path)
	}
	cfg, err := Parse(data, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeInvalidConfig, err, "config %s", path)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes and expands configuration data. syntax is "toml", "yaml" or
// "yml".
func Parse(data []byte, syntax string) (*Config, error) {
	var fc fileConfig
	switch strings.ToLower(syntax) {
	case "toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&fc)
		if err != nil {
			return nil, ferrors.Wrap(ferrors.ErrCodeInvalidConfig, err, "decode toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, ferrors.New(ferrors.ErrCodeInvalidConfig, "unknown keys: %s", strings.Join(keys, ", "))
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return nil, ferrors.Wrap(ferrors.ErrCodeInvalidConfig, err, "decode yaml")
		}
	default:
		return nil, ferrors.New(ferrors.ErrCodeInvalidFormat,
			"unsupported config format %q (must be one of: toml, yaml)", syntax)
	}
	return fc.resolve()
}

// Find returns the first configuration file of [FileNames] in dir, or ""
// when there is none.
func Find(dir string) string {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// resolve validates fc and expands every set into concrete outputs.
func (fc *fileConfig) resolve() (*Config, error) {
	cfg := &Config{
		Vocabulary: fc.Vocabulary.WithDefaults(),
		Circuits: circuit.Options{
			StrictUnassigned: fc.Circuits.StrictUnassigned,
			StripPrefix:      fc.Circuits.StripPrefix,
			Layers:           fc.Circuits.Layers,
			Ignore:           fc.Circuits.Ignore,
			Boards:           fc.Circuits.Boards,
		},
		Export: fc.Export,
		sets:   make(map[string][]Output, len(fc.Sets)),
	}
	if err := cfg.Vocabulary.Validate(); err != nil {
		return nil, err
	}
	if b := fc.Circuits.Boards; b != nil {
		if err := b.Validate(); err != nil {
			return nil, err
		}
	}
	cfg.Export.SetDefaults()
	if err := cfg.Export.Validate(); err != nil {
		return nil, err
	}
	if fc.Defaults.Format != "" && !ValidFormats[fc.Defaults.Format] {
		return nil, invalidFormat(fc.Defaults.Format)
	}
	if err := checkPageSize(fc.Defaults.PageSize); err != nil {
		return nil, err
	}

	for name, outputs := range fc.Sets {
		if err := ferrors.ValidateIdentifier("set", name); err != nil {
			return nil, err
		}
		seen := make(map[string]bool, len(outputs))
		for i, fo := range outputs {
			out, err := fc.expandOutput(name, fo)
			if err != nil {
				return nil, ferrors.Wrap(ferrors.ErrCodeInvalidConfig, err, "set %q output %d", name, i+1)
			}
			if seen[out.Filename] {
				return nil, ferrors.New(ferrors.ErrCodeInvalidConfig,
					"set %q: duplicate output %q", name, out.Filename)
			}
			seen[out.Filename] = true
			cfg.sets[name] = append(cfg.sets[name], out)
		}
	}
	return cfg, nil
}

func invalidFormat(format string) error {
	return ferrors.New(ferrors.ErrCodeInvalidFormat,
		"invalid format: %q (must be one of: pdf, svg, png)", format)
}

func checkPageSize(size []string) error {
	if len(size) != 0 && len(size) != 2 {
		return ferrors.New(ferrors.ErrCodeInvalidConfig,
			"page_size must be [width, height], got %d values", len(size))
	}
	return nil
}
