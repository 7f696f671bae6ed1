// Package controller renders mutation tables and session summaries to
// the terminal, either as plain text and tables or interactively.
package controller

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	m "jmute.dev/pkg/jmute/internal/model"
)

// Row is one line of the tabular mutation view.
type Row struct {
	ID       string
	Type     string
	Location string
	Variants string
}

// ClassCount is one line of a per-class count summary.
type ClassCount struct {
	Class string
	Count int
}

// UI displays mutation tables and session results. Implementations
// differ in output style, not content.
type UI interface {
	// ShowMutations prints the full record of every mutation.
	ShowMutations(muts []m.Mutation) error
	// ShowTable renders the tabular view.
	ShowTable(rows []Row) error
	// ShowCounts renders a per-class count summary; title names the
	// count column.
	ShowCounts(title string, counts []ClassCount) error
	// ShowReports renders per-class session summaries.
	ShowReports(reports []m.ClassReport) error
}

// NewUI picks the interactive renderer on a terminal, the plain one
// otherwise.
func NewUI(cmd *cobra.Command, interactive bool) UI {
	if interactive {
		return NewTUI(cmd.OutOrStdout())
	}
	return NewSimpleUI(cmd)
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// RowsFromMutations flattens a mutation table into display rows. A
// group contributes its own row followed by one row per member.
func RowsFromMutations(muts []m.Mutation) []Row {
	var rows []Row
	for _, mu := range muts {
		rows = append(rows, mutationRow(mu))
		if g, ok := mu.(*m.MutationGroup); ok {
			for _, member := range g.Members() {
				rows = append(rows, mutationRow(member))
			}
		}
	}
	return rows
}

func mutationRow(mu m.Mutation) Row {
	row := Row{
		ID:   mu.ID().String(),
		Type: mu.Type(),
	}
	if cs, ok := mu.(m.ClassScoped); ok {
		row.Location = cs.ClassName()
	}
	if ms, ok := mu.(m.MethodScoped); ok && ms.MethodName() != "" {
		row.Location += "." + ms.MethodName() + ms.Signature()
	}
	labels := make([]string, 0, len(mu.Variants()))
	for _, v := range mu.Variants() {
		labels = append(labels, v.String())
	}
	row.Variants = strings.Join(labels, " ")
	return row
}
