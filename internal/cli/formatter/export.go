package formatter

import (
	"fmt"
	"io"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Export formats understood by ExportTasks.
const (
	ExportCSV      = "csv"
	ExportMarkdown = "markdown"
)

// ExportTasks writes tasks to w as an unstyled csv or markdown table.
func ExportTasks(w io.Writer, tasks []domain.Task, format string) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	header := make(table.Row, 0, len(TaskHeaders))
	for _, h := range TaskHeaders {
		header = append(header, h)
	}
	tw.AppendHeader(header)
	total := 0.0
	for _, t := range tasks {
		row := make(table.Row, 0, len(TaskHeaders))
		for _, cell := range TaskRow(t) {
			row = append(row, cell)
		}
		tw.AppendRow(row)
		total += t.Duration
	}

	switch format {
	case ExportCSV:
		tw.RenderCSV()
	case ExportMarkdown:
		tw.AppendFooter(table.Row{"", "", "", "", "TOTAL", FormatHours(total)})
		tw.RenderMarkdown()
	default:
		return fmt.Errorf("unknown export format %q (want %s or %s)", format, ExportCSV, ExportMarkdown)
	}
	return nil
}
