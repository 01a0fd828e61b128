package report

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/floorplan/pkg/circuit"
	ferrors "github.com/matzehuels/floorplan/pkg/errors"
)

// Format constants for manifest reports.
const (
	FormatText = "text"
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCBOR = "cbor"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// Formats lists every supported report format.
var Formats = []string{FormatText, FormatCSV, FormatJSON, FormatYAML, FormatCBOR, FormatDOT, FormatSVG}

// ContentTypes maps report formats to MIME types.
var ContentTypes = map[string]string{
	FormatText: "text/plain; charset=utf-8",
	FormatCSV:  "text/csv; charset=utf-8",
	FormatJSON: "application/json",
	FormatYAML: "application/yaml",
	FormatCBOR: "application/cbor",
	FormatDOT:  "text/vnd.graphviz",
	FormatSVG:  "image/svg+xml",
}

// Extensions maps report formats to file extensions.
var Extensions = map[string]string{
	FormatText: ".txt",
	FormatCSV:  ".csv",
	FormatJSON: ".json",
	FormatYAML: ".yaml",
	FormatCBOR: ".cbor",
	FormatDOT:  ".dot",
	FormatSVG:  ".svg",
}

// LooseName is the file stem of the report of circuits without board.
const LooseName = "circuits"

// cborMode encodes manifests deterministically.
var cborMode cbor.EncMode

func init() {
	opts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	var err error
	cborMode, err = opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}
}

// ValidateFormat returns INVALID_FORMAT for unknown report formats.
func ValidateFormat(format string) error {
	if !slices.Contains(Formats, format) {
		return ferrors.New(ferrors.ErrCodeInvalidFormat,
			"invalid report format: %q (must be one of: %s)", format, strings.Join(Formats, ", "))
	}
	return nil
}

// Write renders the manifest in the given format.
func Write(w io.Writer, m *circuit.Manifest, format string) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}
	switch format {
	case FormatText:
		_, err := io.WriteString(w, Text(m))
		return err
	case FormatCSV:
		return WriteCSV(w, m)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	case FormatCBOR:
		return cborMode.NewEncoder(w).Encode(m)
	case FormatDOT:
		_, err := io.WriteString(w, ToDOT(m))
		return err
	default:
		svg, err := RenderSVG(context.Background(), ToDOT(m))
		if err != nil {
			return err
		}
		_, err = w.Write(svg)
		return err
	}
}

// Describe summarizes a circuit's members, one line per device kind: the
// kind (label, else type) followed by the rooms it occurs in, with a count
// when a room has several. A kind occurring once without room is its bare
// name.
//
//	outlet: 1.02 (2×), 1.03
//	light: 1.02
//	Boiler
func Describe(c circuit.Circuit) []string {
	rooms := make(map[string]map[string]int)
	for _, mb := range c.Members {
		kind := cmp.Or(mb.Label, mb.Type, "device")
		if rooms[kind] == nil {
			rooms[kind] = make(map[string]int)
		}
		rooms[kind][mb.Room]++
	}

	var lines []string
	for _, kind := range slices.Sorted(maps.Keys(rooms)) {
		counts := rooms[kind]
		if len(counts) == 1 && counts[""] == 1 {
			lines = append(lines, kind)
			continue
		}
		names := slices.SortedFunc(maps.Keys(counts), circuit.Compare)
		parts := make([]string, len(names))
		for i, room := range names {
			label := cmp.Or(room, "?")
			if n := counts[room]; n > 1 {
				label = fmt.Sprintf("%s (%d×)", label, n)
			}
			parts[i] = label
		}
		lines = append(lines, kind+": "+strings.Join(parts, ", "))
	}
	return lines
}

// Marshal renders the manifest into a byte slice.
func Marshal(m *circuit.Manifest, format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, m, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteBoards writes one report per distribution board into dir, named
// after the board ("L01.csv"). Circuits without board, and every circuit
// of a drawing without boards, go to "circuits.<ext>". It returns the
// written paths in board order.
func WriteBoards(dir string, m *circuit.Manifest, format string) ([]string, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	var names []string
	if len(m.Board("").Circuits) > 0 || len(m.Boards()) == 0 {
		names = append(names, "")
	}
	names = append(names, m.Boards()...)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeInvalidPath, err, "create report directory")
	}
	paths := make([]string, 0, len(names))
	for _, board := range names {
		name := cmp.Or(board, LooseName) + Extensions[format]
		if err := ferrors.ValidateFilename(name); err != nil {
			return paths, ferrors.Wrap(ferrors.ErrCodeInvalidPath, err, "board %q", board)
		}
		data, err := Marshal(m.Board(board), format)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, ferrors.Wrap(ferrors.ErrCodeInternal, err, "write %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
