package tui

const (
	tableVerticalPadding = 6
	minURLColumnWidth    = 20
	maxURLDisplayLength  = 80

	typeColumnWidth     = 9
	timingColumnWidth   = 12
	durationColumnWidth = 10
)
