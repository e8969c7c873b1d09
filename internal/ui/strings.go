package ui

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "…"

// truncate shortens a string to the given display width, adding an ellipsis
// if needed. ANSI sequences are preserved and do not count toward the width.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	if ansi.StringWidth(value) <= limit {
		return value
	}
	if limit <= 1 {
		return ansi.Truncate(value, limit, "")
	}
	return ansi.Truncate(value, limit, ellipsis)
}

// truncateMiddle shortens a string by removing characters from the middle,
// preserving both the beginning and end.
func truncateMiddle(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || value == "" {
		return value
	}
	width := ansi.StringWidth(value)
	if width <= limit {
		return value
	}
	if limit <= 3 {
		return ansi.Truncate(value, limit, "")
	}
	keep := limit - 1
	prefix := keep / 2
	suffix := keep - prefix
	return ansi.Truncate(value, prefix, "") + ellipsis + ansi.TruncateLeft(value, width-suffix, "")
}

// padRight pads a string with spaces to the given display width.
func padRight(s string, width int) string {
	if width <= 0 {
		return s
	}
	w := ansi.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// singleLine collapses a variable value onto one line for table display.
// JSON values are compacted; anything else has its whitespace runs folded.
func singleLine(value string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(value)); err == nil {
		return buf.String()
	}
	return strings.Join(strings.Fields(value), " ")
}

// prettyValue indents a JSON value for the value view. Values that are not
// valid JSON (truncated previews, for example) are returned as is.
func prettyValue(value string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(value), "", "  "); err == nil {
		return buf.String()
	}
	return value
}
