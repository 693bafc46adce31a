package tui

import (
	"fmt"
	"strings"

	"github.com/pb33f/lantern/lumen"
)

func (m *ReportViewModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "initializing..."
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render("lantern"))
	b.WriteString(" ")
	b.WriteString(SubtitleStyle.Render("simulated page-load timings"))
	b.WriteString("\n")
	b.WriteString(m.renderMetricBar())
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")

	if m.viewMode == ViewModeTableWithDetail {
		b.WriteString(BorderStyle.Render(m.detail.View()))
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render("↑/↓ navigate · enter detail · esc close · q quit"))
	return b.String()
}

// renderMetricBar lays the blended estimates out on one line, with any
// unavailable metrics flagged beneath.
func (m *ReportViewModel) renderMetricBar() string {
	var parts []string
	for _, est := range m.report.Metrics {
		parts = append(parts, fmt.Sprintf("%s %s",
			HeaderStyle.Render(shortMetricName(est.Metric)),
			MetricValueStyle.Render(fmt.Sprintf("%.0fms", est.EstimateMs))))
	}
	line := strings.Join(parts, "   ")

	for _, u := range m.report.Unavailable {
		line += "\n" + MetricUnavailableStyle.Render(
			fmt.Sprintf("%s unavailable: %v", shortMetricName(u.Metric), u.Reason))
	}
	return line
}

func shortMetricName(metric string) string {
	switch metric {
	case lumen.MetricFCP:
		return "FCP"
	case lumen.MetricLCP:
		return "LCP"
	case lumen.MetricTTI:
		return "TTI"
	case lumen.MetricSpeedIndex:
		return "SI"
	}
	return metric
}

// renderNodeDetail builds the detail pane body for one node.
func (m *ReportViewModel) renderNodeDetail(n *lumen.Node) string {
	var b strings.Builder
	opt := m.report.Optimistic.Timings[n.ID]
	pess := m.report.Pessimistic.Timings[n.ID]

	if n.Type == lumen.NetworkNode {
		r := n.Request
		fmt.Fprintf(&b, "%s %s\n", r.RequestMethod, r.URL)
		fmt.Fprintf(&b, "type: %s   status: %d   protocol: %s   priority: %s\n",
			r.ResourceType, r.StatusCode, r.Protocol, r.Priority)
		fmt.Fprintf(&b, "transfer: %d bytes   resource: %d bytes   cached: %v\n",
			r.TransferSize, r.ResourceSize, r.FromCache())
		fmt.Fprintf(&b, "observed: %s → %s\n",
			formatMillis(n.StartTime), formatMillis(n.EndTime))
	} else {
		tasks := m.report.Graph.TaskArena()
		if n.Task >= 0 && n.Task < len(tasks) {
			t := tasks[n.Task]
			fmt.Fprintf(&b, "%s (%s)\n", t.Event.Name, t.Group)
			fmt.Fprintf(&b, "observed: %s → %s   self: %.1fms\n",
				formatMillis(t.StartTime), formatMillis(t.EndTime), t.SelfTime)
		}
		for group, selfTime := range n.SelfTimeByGroup {
			fmt.Fprintf(&b, "  %s: %.1fms\n", group, selfTime)
		}
	}

	fmt.Fprintf(&b, "simulated optimistic:  %s → %s\n",
		formatMillis(opt.StartTime), formatMillis(opt.EndTime))
	fmt.Fprintf(&b, "simulated pessimistic: %s → %s\n",
		formatMillis(pess.StartTime), formatMillis(pess.EndTime))
	fmt.Fprintf(&b, "dependencies: %d   dependents: %d\n",
		len(n.Dependencies), len(n.Dependents))
	return b.String()
}
