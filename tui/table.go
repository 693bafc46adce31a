package tui

import (
	"fmt"
	"net/url"

	"github.com/charmbracelet/bubbles/v2/table"
	"github.com/charmbracelet/bubbles/v2/viewport"
	"github.com/pb33f/lantern/lumen"
)

func (m *ReportViewModel) initializeTable() {
	m.buildTableRows()

	m.table = table.New(
		table.WithColumns(m.columns),
		table.WithRows(m.rows),
		table.WithFocused(true),
		table.WithHeight(m.tableHeight()),
		table.WithWidth(m.width),
	)
	m.table.SetStyles(tableStyles())

	m.detail = viewport.New()
	m.detail.SetWidth(m.width - 4)
	m.detail.SetHeight(m.detailHeight())
}

func (m *ReportViewModel) updateTableDimensions() {
	m.table.SetHeight(m.tableHeight())
	m.table.SetWidth(m.width)
	m.detail.SetWidth(m.width - 4)
	m.detail.SetHeight(m.detailHeight())
}

func (m *ReportViewModel) tableHeight() int {
	h := m.height - tableVerticalPadding - metricBarHeight(m.report)
	if m.viewMode == ViewModeTableWithDetail {
		h -= m.detailHeight()
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m *ReportViewModel) detailHeight() int {
	h := m.height / 3
	if h < 5 {
		h = 5
	}
	return h
}

func metricBarHeight(report *lumen.Report) int {
	return 2 + len(report.Unavailable)
}

// buildTableRows renders one row per graph node in graph order, which is
// also the row-to-node mapping used by the cursor.
func (m *ReportViewModel) buildTableRows() {
	rows := make([]table.Row, 0, len(m.report.Graph.Nodes))
	for _, n := range m.report.Graph.Nodes {
		rows = append(rows, m.formatNodeRow(n))
	}
	m.rows = rows
}

func (m *ReportViewModel) formatNodeRow(n *lumen.Node) table.Row {
	opt := m.report.Optimistic.Timings[n.ID]
	pess := m.report.Pessimistic.Timings[n.ID]

	return table.Row{
		string(n.Type),
		formatResource(n, m.report),
		formatMillis(opt.StartTime),
		formatMillis(opt.EndTime),
		formatMillis(pess.EndTime),
	}
}

func formatResource(n *lumen.Node, report *lumen.Report) string {
	if n.Type == lumen.NetworkNode {
		return formatURL(n.Request.URL)
	}
	tasks := report.Graph.TaskArena()
	if n.Task >= 0 && n.Task < len(tasks) {
		return fmt.Sprintf("%s (%s)", tasks[n.Task].Event.Name, tasks[n.Task].Group)
	}
	return "(task)"
}

func formatURL(fullURL string) string {
	if fullURL == "" {
		return "/"
	}

	u, err := url.Parse(fullURL)
	if err != nil {
		return truncate(fullURL, maxURLDisplayLength)
	}

	display := u.Host + u.Path
	return truncate(display, maxURLDisplayLength)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func formatMillis(ms float64) string {
	if ms < 0 {
		return "-"
	}
	return fmt.Sprintf("%.0fms", ms)
}
