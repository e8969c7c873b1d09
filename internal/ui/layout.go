package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutStateWidth is the minimum width to show the state column.
	LayoutStateWidth = 70
)

// Column widths of the variable table.
const (
	nameColumnMin   = 12
	nameColumnMax   = 32
	stateColumnSize = 10
)

// Log display limits.
const (
	// LogTailLines is the number of log lines read per refresh.
	LogTailLines = 2000
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second

	// NoticeLifetime is how long a notification stays in the banner.
	NoticeLifetime = 6 * time.Second

	// chromeHeight is the number of lines taken by header, command bar and
	// notice line.
	chromeHeight = 3
)
