package report

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/floorplan/pkg/circuit"
	ferrors "github.com/matzehuels/floorplan/pkg/errors"
)

// ToDOT converts a manifest to Graphviz DOT: supplies feed circuits, which
// feed their devices. Spare circuits are drawn dashed. The circuits of a
// distribution board are grouped in a cluster.
func ToDOT(m *circuit.Manifest) string {
	var buf bytes.Buffer
	buf.WriteString("digraph circuits {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.2;\n")
	buf.WriteString("\n")

	board := ""
	for _, c := range m.Circuits {
		if c.Board != board {
			if board != "" {
				buf.WriteString("  }\n")
			}
			board = c.Board
			fmt.Fprintf(&buf, "  subgraph %q {\n", "cluster:"+board)
			fmt.Fprintf(&buf, "  label=%q;\n", board)
		}
		cid := "circuit:" + c.Name()
		attrs := []string{fmt.Sprintf("label=%q", c.ID), "shape=ellipse"}
		if len(c.Members) == 0 {
			attrs = append(attrs, "style=\"filled,dashed\"", "fillcolor=lightgrey")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", cid, strings.Join(attrs, ", "))

		if s := c.Supply; s != nil {
			sid := "supply:" + s.ID
			label := supplyName(s)
			if s.Rating != "" {
				label += "\n" + s.Rating
			}
			fmt.Fprintf(&buf, "  %q [label=%q, shape=box, style=filled, fillcolor=lightyellow];\n", sid, label)
			fmt.Fprintf(&buf, "  %q -> %q;\n", sid, cid)
		}

		for _, mb := range c.Members {
			did := "device:" + mb.ID
			fmt.Fprintf(&buf, "  %q [label=%q];\n", did, deviceLabel(mb))
			edge := ""
			if mb.Source == circuit.SourceLink {
				edge = " [style=dashed]"
			}
			fmt.Fprintf(&buf, "  %q -> %q%s;\n", cid, did, edge)
		}
	}
	if board != "" {
		buf.WriteString("  }\n")
	}

	buf.WriteString("}\n")
	return buf.String()
}

func deviceLabel(mb circuit.Member) string {
	label := mb.ID
	var parts []string
	for _, p := range []string{mb.Label, mb.Type, mb.Room} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		label += "\n" + strings.Join(parts, " · ")
	}
	return label
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeRenderFailure, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeRenderFailure, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeRenderFailure, err, "render circuit graph")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with one sized
// in user units so the graph scales in browsers.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
