package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/treescan/pkg/pipeline"
	"github.com/matzehuels/treescan/pkg/report"
)

// browseCommand creates the browse command, an interactive cut viewer.
func (c *CLI) browseCommand() *cobra.Command {
	alpha := pipeline.SignificanceLevel

	cmd := &cobra.Command{
		Use:   "browse [result.json]",
		Short: "Browse the ranked cuts of a saved result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := report.ReadJSONFile(args[0])
			if err != nil {
				return fmt.Errorf("load result %s: %w", args[0], err)
			}
			if len(doc.Cuts) == 0 {
				printInfo("No cuts in %s", args[0])
				return nil
			}
			p := tea.NewProgram(NewCutListModel(doc, alpha), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().Float64Var(&alpha, "alpha", alpha, "highlight cuts with a p-value at or below alpha")

	return cmd
}

// List styles
var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	listDetailStyle = lipgloss.NewStyle().BorderLeft(true).BorderStyle(lipgloss.NormalBorder()).BorderForeground(colorDim).PaddingLeft(1)
)

// =============================================================================
// CutListModel - Interactive cut browser
// =============================================================================

// CutListModel is the bubbletea model for paging through ranked cuts.
type CutListModel struct {
	Doc    *report.Document
	Alpha  float64
	Cursor int
	Offset int
	Height int

	nodes map[string]report.NodeSummary
}

// NewCutListModel creates a cut browser for doc.
func NewCutListModel(doc *report.Document, alpha float64) CutListModel {
	nodes := make(map[string]report.NodeSummary, len(doc.NodeSummary))
	for _, n := range doc.NodeSummary {
		nodes[n.ID] = n
	}
	return CutListModel{
		Doc:    doc,
		Alpha:  alpha,
		Height: 15,
		nodes:  nodes,
	}
}

func (m CutListModel) Init() tea.Cmd {
	return nil
}

func (m CutListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "pgup":
			m.move(-m.Height)
		case "pgdown", " ":
			m.move(m.Height)
		case "home", "g":
			m.move(-len(m.Doc.Cuts))
		case "end", "G":
			m.move(len(m.Doc.Cuts))
		}
	case tea.WindowSizeMsg:
		// Room for the title, the table borders and the detail pane.
		m.Height = max(5, msg.Height-14)
		m.move(0)
	}
	return m, nil
}

// move shifts the cursor by delta and keeps it inside the visible window.
func (m *CutListModel) move(delta int) {
	m.Cursor = max(0, min(len(m.Doc.Cuts)-1, m.Cursor+delta))
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m CutListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("%s · %s model", m.Doc.Input, m.Doc.Model)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  pgup/pgdn page  q quit"))
	b.WriteString("\n")
	if !m.Doc.Complete {
		b.WriteString(StyleWarning.Render(fmt.Sprintf("run stopped after %d of %d replications, p-values are not valid",
			m.Doc.Completed, m.Doc.Replications)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	end := min(m.Offset+m.Height, len(m.Doc.Cuts))
	b.WriteString(cutTable(m.Doc.Cuts[m.Offset:end], m.Alpha, m.Cursor-m.Offset).Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Doc.Cuts))))
	b.WriteString("\n\n")
	b.WriteString(m.detail())

	return b.String()
}

// detail describes the cut under the cursor.
func (m CutListModel) detail() string {
	c := m.Doc.Cuts[m.Cursor]
	lines := []string{
		StyleValue.Bold(true).Render(c.ID),
		fmt.Sprintf("observed %d  expected %.4f  O/E %.2f", c.Observed, c.Expected, c.Ratio),
		fmt.Sprintf("LLR %.6f  rank %d of %d  p %s", c.LLR, c.Rank, m.Doc.Completed+1, formatPValue(c.PValue)),
	}
	if n, ok := m.nodes[c.ID]; ok {
		if n.Duplicates > 0 {
			lines = append(lines, fmt.Sprintf("%d known duplicates removed", n.Duplicates))
		}
		if n.MultiPath {
			lines = append(lines, "reaches an ancestor along more than one path")
		}
	}
	return listDetailStyle.Render(strings.Join(lines, "\n"))
}
