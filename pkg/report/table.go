package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/floorplan/pkg/circuit"
)

var (
	colorGray = lipgloss.Color("245")
	colorDim  = lipgloss.Color("240")

	headerStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Text renders the manifest as a terminal table: circuit, supply (when the
// drawing has supplies), device count and description. A drawing with
// distribution boards gets one table per board.
func Text(m *circuit.Manifest) string {
	summary := fmt.Sprintf("%d circuits, %d devices\n", len(m.Circuits), m.DeviceCount())
	boards := m.Boards()
	if len(boards) == 0 {
		return circuitTable(m.Circuits, m.HasSupplies) + "\n" + summary
	}

	var b strings.Builder
	if loose := m.Board(""); len(loose.Circuits) > 0 {
		b.WriteString(headerStyle.Render("Without board") + "\n")
		b.WriteString(circuitTable(loose.Circuits, m.HasSupplies) + "\n")
	}
	for _, board := range boards {
		b.WriteString(headerStyle.Render("Board "+board) + "\n")
		b.WriteString(circuitTable(m.Board(board).Circuits, m.HasSupplies) + "\n")
	}
	b.WriteString(summary)
	return b.String()
}

func circuitTable(circuits []circuit.Circuit, hasSupplies bool) string {
	headers := []string{"Circuit"}
	if hasSupplies {
		headers = append(headers, "Supply")
	}
	headers = append(headers, "Devices", "Description")

	rows := make([][]string, 0, len(circuits))
	for _, c := range circuits {
		row := []string{c.ID}
		if hasSupplies {
			row = append(row, supplyName(c.Supply))
		}
		desc := strings.Join(Describe(c), "\n")
		if desc == "" {
			desc = "spare"
		}
		row = append(row, strconv.Itoa(len(c.Members)), desc)
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
	return t.Render()
}

// WriteCSV writes one row per circuit member. Circuits without members get
// a single row with empty device columns. The board column is present when
// the drawing has distribution boards.
func WriteCSV(w io.Writer, m *circuit.Manifest) error {
	cw := csv.NewWriter(w)
	hasBoards := len(m.Boards()) > 0
	var header []string
	if hasBoards {
		header = append(header, "board")
	}
	header = append(header, "circuit")
	if m.HasSupplies {
		header = append(header, "supply", "rating")
	}
	header = append(header, "device", "type", "room", "label", "layer", "source")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, c := range m.Circuits {
		var prefix []string
		if hasBoards {
			prefix = append(prefix, c.Board)
		}
		prefix = append(prefix, c.ID)
		if m.HasSupplies {
			rating := ""
			if c.Supply != nil {
				rating = c.Supply.Rating
			}
			prefix = append(prefix, supplyName(c.Supply), rating)
		}
		if len(c.Members) == 0 {
			if err := cw.Write(append(prefix, "", "", "", "", "", "")); err != nil {
				return err
			}
			continue
		}
		for _, mb := range c.Members {
			row := append(append([]string{}, prefix...),
				mb.ID, mb.Type, mb.Room, mb.Label, mb.Layer, string(mb.Source))
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func supplyName(s *circuit.Supply) string {
	if s == nil {
		return ""
	}
	if s.Label != "" {
		return s.Label
	}
	return s.ID
}
