package controller

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "jmute.dev/pkg/jmute/internal/model"
)

// SimpleUI renders through the cobra command's output writer.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a plain-text UI on the command's stdout.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// ShowMutations prints every mutation's full record, one block each.
func (s *SimpleUI) ShowMutations(muts []m.Mutation) error {
	for _, mu := range muts {
		s.printf("%s\n", mu)
	}
	s.printf("%d mutations\n", len(muts))
	return nil
}

// ShowTable renders the tabular mutation view.
func (s *SimpleUI) ShowTable(rows []Row) error {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"ID", "Type", "Location", "Variants"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
	})
	for _, row := range rows {
		table.Append([]string{row.ID, row.Type, row.Location, row.Variants})
	}
	table.SetFooter([]string{"", "", "Total", fmt.Sprintf("%d", len(rows))})
	table.Render()
	s.printf("\n%s", buf.String())
	return nil
}

// ShowCounts renders the per-class count summary table.
func (s *SimpleUI) ShowCounts(title string, counts []ClassCount) error {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Class", title})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	total := 0
	for _, count := range counts {
		table.Append([]string{count.Class, fmt.Sprintf("%d", count.Count)})
		total += count.Count
	}
	table.SetFooter([]string{
		fmt.Sprintf("Total Classes %d", len(counts)),
		fmt.Sprintf("%d", total),
	})
	table.Render()
	s.printf("\n%s", buf.String())
	return nil
}

// ShowReports renders the per-class session summary table.
func (s *SimpleUI) ShowReports(reports []m.ClassReport) error {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Class", "Applied", "Rejected"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	applied, rejected := 0, 0
	for _, report := range reports {
		table.Append([]string{
			report.Class,
			fmt.Sprintf("%d", len(report.Applied)),
			fmt.Sprintf("%d", report.Rejected),
		})
		applied += len(report.Applied)
		rejected += report.Rejected
	}
	table.SetFooter([]string{
		fmt.Sprintf("Total Classes %d", len(reports)),
		fmt.Sprintf("%d", applied),
		fmt.Sprintf("%d", rejected),
	})
	table.Render()
	s.printf("\n%s", buf.String())
	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
