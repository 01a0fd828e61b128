package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/matzehuels/floorplan/pkg/config"
	ferrors "github.com/matzehuels/floorplan/pkg/errors"
	"github.com/matzehuels/floorplan/pkg/render"
)

// pdfcpu writes a configuration directory on first use unless disabled.
var disableConfigDir = sync.OnceFunc(api.DisableConfigDir)

// MergePDF concatenates single-page PDF documents into w, in order.
func MergePDF(pages [][]byte, w io.Writer) error {
	if len(pages) == 1 {
		_, err := w.Write(pages[0])
		return err
	}
	rs := make([]io.ReadSeeker, len(pages))
	for i, p := range pages {
		rs[i] = bytes.NewReader(p)
	}
	disableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.MergeRaw(rs, w, false, conf)
}

// Filename returns the name an output is written under: the configured
// filename, prefixed with the date when prefix is set.
func Filename(out config.Output, date string, prefix bool) string {
	if !prefix {
		return out.Filename
	}
	return date + " " + out.Filename
}

// PageFilename returns the file of one page of a per-page output:
// name-pN.ext. Single-page outputs keep the plain name.
func PageFilename(name string, page, pages int) string {
	if pages == 1 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-p%d%s", name[:len(name)-len(ext)], page+1, ext)
}

// assemble writes the rendered pages of out and returns the written paths:
// the output files, then the kept page SVGs. PDF pages are concatenated
// into one file; SVG and PNG pages are written one file each.
func (o *Orchestrator) assemble(out config.Output, pages []render.Artifact, date string, opts Options) ([]string, error) {
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeInvalidPath, err, "create output directory")
	}
	name := Filename(out, date, opts.DatePrefix)

	var files, kept []string
	if opts.KeepSVG {
		dir := filepath.Join(opts.OutputDir, "svg")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ferrors.Wrap(ferrors.ErrCodeInvalidPath, err, "create svg directory")
		}
		for i, p := range pages {
			path := filepath.Join(dir, fmt.Sprintf("%s_page%d.svg", name, i+1))
			if err := os.WriteFile(path, p.SVG, 0o644); err != nil {
				return nil, ferrors.Wrap(ferrors.ErrCodeInternal, err, "write %s", path)
			}
			kept = append(kept, path)
		}
	}

	if out.Format == render.FormatPDF {
		merge := o.Merge
		if merge == nil {
			merge = MergePDF
		}
		data := make([][]byte, len(pages))
		for i, p := range pages {
			data[i] = p.Data
		}
		var buf bytes.Buffer
		if err := merge(data, &buf); err != nil {
			return nil, ferrors.Wrap(ferrors.ErrCodeRenderFailure, err, "merge %d pages of %s", len(pages), out.Filename)
		}
		path := filepath.Join(opts.OutputDir, name)
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return nil, ferrors.Wrap(ferrors.ErrCodeInternal, err, "write %s", path)
		}
		return append(append(files, path), kept...), nil
	}

	for i, p := range pages {
		path := filepath.Join(opts.OutputDir, PageFilename(name, i, len(pages)))
		if err := os.WriteFile(path, p.Data, 0o644); err != nil {
			return nil, ferrors.Wrap(ferrors.ErrCodeInternal, err, "write %s", path)
		}
		files = append(files, path)
	}
	return append(files, kept...), nil
}
