package config

import (
	"maps"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	ferrors "github.com/matzehuels/floorplan/pkg/errors"
)

var templateVar = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Expand substitutes every ${name} in template with each combination of the
// named variables' values and returns the distinct results in order.
//
//	Expand("${floor}_Elektra_${dist}", {"floor": {"V0", "V1"}, "dist": {"L01"}})
//	// [V0_Elektra_L01 V1_Elektra_L01]
//
// A template without variables expands to itself. A variable missing from
// vars, or bound to no values, is an error.
func Expand(template string, vars map[string][]string) ([]string, error) {
	var names []string
	for _, m := range templateVar.FindAllStringSubmatch(template, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	results := []string{template}
	for _, name := range names {
		values, ok := vars[name]
		if !ok || len(values) == 0 {
			return nil, ferrors.New(ferrors.ErrCodeInvalidConfig, "undefined variable ${%s} in %q", name, template)
		}
		next := make([]string, 0, len(results)*len(values))
		for _, r := range results {
			for _, v := range values {
				next = append(next, strings.ReplaceAll(r, "${"+name+"}", v))
			}
		}
		results = next
	}
	return dedupe(results), nil
}

// expandAll expands every template and concatenates the distinct results.
func expandAll(templates []string, vars map[string][]string) ([]string, error) {
	var out []string
	for _, t := range templates {
		expanded, err := Expand(t, vars)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return dedupe(out), nil
}

func expandOpacity(opacity map[string]float64, vars map[string][]string, into map[string]float64) error {
	for _, key := range slices.Sorted(maps.Keys(opacity)) {
		value := opacity[key]
		if value < 0 || value > 1 {
			return ferrors.New(ferrors.ErrCodeInvalidConfig, "opacity of %q must be within [0, 1], got %g", key, value)
		}
		ids, err := Expand(key, vars)
		if err != nil {
			return err
		}
		for _, id := range ids {
			into[id] = value
		}
	}
	return nil
}

// scope layers variable bindings: later maps override earlier ones.
func scope(layers ...map[string][]string) map[string][]string {
	out := make(map[string][]string)
	for _, l := range layers {
		maps.Copy(out, l)
	}
	return out
}

// expandOutput turns one configured output into concrete pages.
func (fc *fileConfig) expandOutput(set string, fo fileOutput) (Output, error) {
	if err := ferrors.ValidateFilename(fo.Filename); err != nil {
		return Output{}, err
	}
	if len(fo.Pages) == 0 {
		return Output{}, ferrors.New(ferrors.ErrCodeInvalidConfig, "output %q has no pages", fo.Filename)
	}

	out := Output{
		Set:      set,
		Filename: fo.Filename,
		Title:    fo.Title,
		Format:   firstNonEmpty(fo.Format, formatOf(fo.Filename), fc.Defaults.Format, FormatPDF),
		DPI:      fo.DPI,
	}
	if out.DPI == 0 {
		out.DPI = fc.Defaults.DPI
	}
	if !ValidFormats[out.Format] {
		return Output{}, invalidFormat(out.Format)
	}
	if filepath.Ext(out.Filename) == "" {
		out.Filename += "." + out.Format
	}

	size := fo.PageSize
	if len(size) == 0 {
		size = fc.Defaults.PageSize
	}
	if err := checkPageSize(size); err != nil {
		return Output{}, err
	}
	if len(size) == 2 {
		out.Width, out.Height = size[0], size[1]
	}

	// each = "floor" repeats the page list once per value of a top-level
	// variable, binding the variable to that single value.
	iterations := []map[string][]string{nil}
	if fo.Each != "" {
		values, ok := fc.Vars[fo.Each]
		if !ok || len(values) == 0 {
			return Output{}, ferrors.New(ferrors.ErrCodeInvalidConfig,
				"each = %q: no such top-level variable", fo.Each)
		}
		iterations = iterations[:0]
		for _, v := range values {
			iterations = append(iterations, map[string][]string{fo.Each: {v}})
		}
	}

	for _, bind := range iterations {
		for _, fp := range fo.Pages {
			vars := scope(fc.Vars, fo.Vars, fp.Vars, bind)
			page := Page{
				Index:   len(out.Pages),
				Opacity: make(map[string]float64),
				Texts:   make(map[string]string),
			}

			var err error
			if page.Layers, err = expandAll(fp.Layers, vars); err != nil {
				return Output{}, err
			}
			subtitles, err := Expand(fp.Subtitle, vars)
			if err != nil {
				return Output{}, err
			}
			page.Subtitle = strings.Join(subtitles, ", ")

			if err := expandOpacity(fo.Opacity, vars, page.Opacity); err != nil {
				return Output{}, err
			}
			if err := expandOpacity(fp.Opacity, vars, page.Opacity); err != nil {
				return Output{}, err
			}
			maps.Copy(page.Texts, fo.Texts)
			maps.Copy(page.Texts, fp.Texts)
			out.Pages = append(out.Pages, page)
		}
	}
	return out, nil
}

func formatOf(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ValidFormats[ext] {
		return ext
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func dedupe(values []string) []string {
	out := values[:0:0]
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
