package controller

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "jmute.dev/pkg/jmute/internal/model"
)

var (
	tuiBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
	tuiHeader = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			BorderBottom(true).
			Bold(true)
	tuiSelected = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(false)
	tuiHelp = lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))
)

// TUI renders the tabular mutation view as an interactive, scrollable
// table. Non-tabular output falls back to plain printing.
type TUI struct {
	output io.Writer
}

// NewTUI creates an interactive UI writing to output.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// ShowMutations prints every mutation's full record.
func (t *TUI) ShowMutations(muts []m.Mutation) error {
	for _, mu := range muts {
		if _, err := fmt.Fprintf(t.output, "%s\n", mu); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(t.output, "%d mutations\n", len(muts))
	return err
}

// ShowTable opens the scrollable table browser.
func (t *TUI) ShowTable(rows []Row) error {
	columns := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Type", Width: 6},
		{Title: "Location", Width: 48},
		{Title: "Variants", Width: 16},
	}
	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row{row.ID, row.Type, row.Location, row.Variants}
	}

	tbl := table.New(
		table.WithColumns(columns),
		table.WithRows(tableRows),
		table.WithFocused(true),
		table.WithHeight(20),
	)
	styles := table.DefaultStyles()
	styles.Header = tuiHeader
	styles.Selected = tuiSelected
	tbl.SetStyles(styles)

	program := tea.NewProgram(tableBrowser{table: tbl}, tea.WithOutput(t.output))
	_, err := program.Run()
	return err
}

// ShowCounts prints the per-class count summary.
func (t *TUI) ShowCounts(title string, counts []ClassCount) error {
	total := 0
	for _, count := range counts {
		if _, err := fmt.Fprintf(t.output, "%s: %d\n", count.Class, count.Count); err != nil {
			return err
		}
		total += count.Count
	}
	_, err := fmt.Fprintf(t.output, "%s: %d across %d classes\n", title, total, len(counts))
	return err
}

// ShowReports prints the per-class session summary.
func (t *TUI) ShowReports(reports []m.ClassReport) error {
	for _, report := range reports {
		if _, err := fmt.Fprintf(t.output, "%s: %d applied, %d rejected\n",
			report.Class, len(report.Applied), report.Rejected); err != nil {
			return err
		}
	}
	return nil
}

// tableBrowser is the bubbletea model around the bubbles table.
type tableBrowser struct {
	table table.Model
}

func (b tableBrowser) Init() tea.Cmd {
	return nil
}

func (b tableBrowser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Leave room for the border and the help line.
		height := msg.Height - 4
		if height < 3 {
			height = 3
		}
		b.table.SetHeight(height)
		return b, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return b, tea.Quit
		}
	}
	var cmd tea.Cmd
	b.table, cmd = b.table.Update(msg)
	return b, cmd
}

func (b tableBrowser) View() string {
	return tuiBorder.Render(b.table.View()) + "\n" +
		tuiHelp.Render("↑/k up · ↓/j down · g/G top/bottom · q quit") + "\n"
}
