package tui

import (
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/bubbles/v2/table"
	"github.com/charmbracelet/bubbles/v2/viewport"
	"github.com/pb33f/lantern/lumen"
)

// ViewMode represents the different view states
type ViewMode int

const (
	ViewModeTable ViewMode = iota
	ViewModeTableWithDetail
)

// ReportViewModel browses a completed simulation report: metric estimates
// up top, the per-node timing table below, and a detail pane for the
// selected node.
type ReportViewModel struct {
	report *lumen.Report

	table   table.Model
	rows    []table.Row
	columns []table.Column

	detail       viewport.Model
	selectedNode *lumen.Node
	viewMode     ViewMode

	width    int
	height   int
	ready    bool
	quitting bool
}

// NewReportViewModel creates the TUI model over an already-computed report.
func NewReportViewModel(report *lumen.Report) *ReportViewModel {
	columns := []table.Column{
		{Title: "Type", Width: typeColumnWidth},
		{Title: "Resource", Width: maxURLDisplayLength},
		{Title: "Opt Start", Width: timingColumnWidth},
		{Title: "Opt End", Width: timingColumnWidth},
		{Title: "Pess End", Width: timingColumnWidth},
	}

	return &ReportViewModel{
		report:   report,
		columns:  columns,
		viewMode: ViewModeTable,
	}
}

func (m *ReportViewModel) Init() tea.Cmd {
	return nil
}

func (m *ReportViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.initializeTable()
			m.ready = true
		} else {
			m.updateTableDimensions()
		}
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			if m.viewMode == ViewModeTable {
				m.openDetail()
			} else {
				m.viewMode = ViewModeTable
			}
			return m, nil

		case "esc":
			m.viewMode = ViewModeTable
			return m, nil
		}
	}

	m.table, cmd = m.table.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}

	if m.viewMode == ViewModeTableWithDetail {
		m.detail, cmd = m.detail.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// openDetail pins the detail pane to the node under the cursor.
func (m *ReportViewModel) openDetail() {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.report.Graph.Nodes) {
		return
	}
	m.selectedNode = m.report.Graph.Nodes[cursor]
	m.detail.SetContent(m.renderNodeDetail(m.selectedNode))
	m.viewMode = ViewModeTableWithDetail
}
