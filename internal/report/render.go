package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	reportTitleStyle = lipgloss.NewStyle().Bold(true)
	cellStyle        = lipgloss.NewStyle().Padding(0, 1)
	numberStyle      = cellStyle.Align(lipgloss.Right)
)

// Render draws a report table as bordered text. The first column is
// left-aligned labels; everything else is right-aligned numbers.
func Render(t Table) string {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.Headers...).
		StyleFunc(func(_, col int) lipgloss.Style {
			if col == 0 {
				return cellStyle
			}
			return numberStyle
		})
	for _, row := range t.Rows {
		tbl.Row(row...)
	}

	var b strings.Builder
	b.WriteString(reportTitleStyle.Render(t.Title))
	b.WriteString("\n")
	b.WriteString(tbl.Render())
	b.WriteString("\n")
	return b.String()
}
