package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	ferrors "github.com/matzehuels/floorplan/pkg/errors"
)

// Converter turns a composed page SVG into another format.
type Converter interface {
	// Name identifies the converter in logs and errors.
	Name() string
	// Convert renders svg as format ("pdf" or "png") at dpi.
	Convert(ctx context.Context, svg []byte, format string, dpi int) ([]byte, error)
}

// NewConverter returns the converter registered under name:
// "rsvg-convert" or "inkscape".
func NewConverter(name string) (Converter, error) {
	switch name {
	case "rsvg-convert", "rsvg", "":
		return RSVG{}, nil
	case "inkscape":
		return Inkscape{}, nil
	}
	return nil, ferrors.New(ferrors.ErrCodeInvalidConfig,
		"unknown renderer %q (must be one of: rsvg-convert, inkscape)", name)
}

// RSVG converts with rsvg-convert from librsvg, streaming the page through
// stdin and stdout.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
type RSVG struct {
	// Bin overrides the executable, default "rsvg-convert".
	Bin string
}

func (r RSVG) Name() string { return "rsvg-convert" }

func (r RSVG) Convert(ctx context.Context, svg []byte, format string, dpi int) ([]byte, error) {
	bin := r.Bin
	if bin == "" {
		bin = "rsvg-convert"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%s export requires librsvg. Install with:\n  macOS:  brew install librsvg\n  Linux:  apt install librsvg2-bin", format)
	}

	args := []string{"-f", format}
	if dpi > 0 {
		d := strconv.Itoa(dpi)
		args = append(args, "--dpi-x", d, "--dpi-y", d)
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(svg)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("rsvg-convert: %v: %s", err, errBuf.String())
	}
	return out.Bytes(), nil
}

// Inkscape converts with the Inkscape command line, exporting the whole
// page area. It works through a temporary directory since Inkscape infers
// the export type from the output filename.
type Inkscape struct {
	// Bin overrides the executable, default "inkscape".
	Bin string
}

func (i Inkscape) Name() string { return "inkscape" }

func (i Inkscape) Convert(ctx context.Context, svg []byte, format string, dpi int) ([]byte, error) {
	bin := i.Bin
	if bin == "" {
		bin = "inkscape"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%s export with inkscape requires Inkscape 1.0 or newer on PATH", format)
	}

	dir, err := os.MkdirTemp("", "floorplan-page-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "page.svg")
	out := filepath.Join(dir, "page."+format)
	if err := os.WriteFile(in, svg, 0o600); err != nil {
		return nil, err
	}

	args := []string{"-C"}
	if dpi > 0 {
		args = append(args, "-d", strconv.Itoa(dpi))
	}
	args = append(args, "-o", out, in)
	cmd := exec.CommandContext(ctx, bin, args...)

	var errBuf bytes.Buffer
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("inkscape: %v: %s", err, errBuf.String())
	}
	return os.ReadFile(out)
}
