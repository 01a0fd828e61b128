package cli

import (
	"cmp"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/floorplan/pkg/circuit"
	"github.com/matzehuels/floorplan/pkg/report"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
	headerStyle  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// CircuitListModel - Interactive circuit browser
// =============================================================================

// CircuitListModel is the bubbletea model for browsing a circuit manifest.
// Enter opens the members of the circuit under the cursor; esc goes back.
type CircuitListModel struct {
	Manifest *circuit.Manifest
	Cursor   int
	Offset   int
	Height   int
	Open     *circuit.Circuit // Circuit whose members are shown, nil for the list
	Member   int              // Cursor within Open
}

// NewCircuitListModel creates a new circuit list model.
func NewCircuitListModel(m *circuit.Manifest) CircuitListModel {
	return CircuitListModel{Manifest: m, Height: 15}
}

func (m CircuitListModel) Init() tea.Cmd {
	return nil
}

func (m CircuitListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc", "backspace":
			if m.Open == nil {
				return m, tea.Quit
			}
			m.Open = nil
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "enter":
			if m.Open == nil && len(m.Manifest.Circuits) > 0 {
				c := m.Manifest.Circuits[m.Cursor]
				m.Open = &c
				m.Member = 0
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m *CircuitListModel) move(delta int) {
	if m.Open != nil {
		m.Member = clamp(m.Member+delta, len(m.Open.Members))
		return
	}
	m.Cursor = clamp(m.Cursor+delta, len(m.Manifest.Circuits))
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func clamp(i, n int) int {
	return max(0, min(i, n-1))
}

func (m CircuitListModel) View() string {
	if m.Open != nil {
		return m.membersView()
	}

	var b strings.Builder
	b.WriteString(StyleTitle.Render("Circuits"))
	if m.Manifest.Source != "" {
		b.WriteString(listDimStyle.Render("  " + m.Manifest.Source))
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ open  q quit"))
	b.WriteString("\n\n")

	circuits := m.Manifest.Circuits
	end := min(m.Offset+m.Height, len(circuits))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		c := circuits[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		supply := "—"
		if c.Supply != nil {
			supply = cmp.Or(c.Supply.Label, c.Supply.ID)
		}
		desc := strings.Join(report.Describe(c), "; ")
		if len(c.Members) == 0 {
			desc = "spare"
		}
		rows = append(rows, []string{cursor, c.Name(), supply, fmt.Sprint(len(c.Members)), desc})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Circuit", "Supply", "Devices", "Description").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(circuits) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if len(circuits[idx].Members) == 0 {
				base = base.Foreground(colorDim)
			}
			if idx == m.Cursor {
				return base.Foreground(colorGreen).Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	if len(circuits) > 0 {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(circuits))))
	} else {
		b.WriteString(listDimStyle.Render("  no circuits"))
	}
	return b.String()
}

func (m CircuitListModel) membersView() string {
	c := m.Open
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Circuit " + c.Name()))
	if c.Supply != nil {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  supply %s %s", cmp.Or(c.Supply.Label, c.Supply.ID), c.Supply.Rating)))
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  esc back  q quit"))
	b.WriteString("\n\n")

	if len(c.Members) == 0 {
		b.WriteString(listDimStyle.Render("  spare circuit, no devices"))
		return b.String()
	}

	rows := make([][]string, len(c.Members))
	for i, mem := range c.Members {
		cursor := "  "
		if i == m.Member {
			cursor = "▸ "
		}
		rows[i] = []string{cursor, mem.ID, mem.Type, mem.Room, mem.Label, mem.Layer, string(mem.Source)}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Device", "Type", "Room", "Label", "Layer", "Via").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == m.Member:
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			case col == 6 && c.Members[row].Source == circuit.SourceLink:
				return lipgloss.NewStyle().Foreground(colorYellow)
			}
			return lipgloss.NewStyle()
		})
	b.WriteString(t.Render())
	return b.String()
}
