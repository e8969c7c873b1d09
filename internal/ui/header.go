package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/five82/tern/internal/operate"
	"github.com/five82/tern/internal/state"
)

// renderHeader renders the status bar with all information.
func (m Model) renderHeader() string {
	// Header uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth
	snap := m.snapshot

	parts := []string{bg.Render("tern", styles.Logo)}

	// Connection indicator
	switch {
	case snap.Scope == "":
		parts = append(parts, bg.Render("● NO SCOPE", styles.WarningText.Bold(true)))
	case snap.IsOffline():
		parts = append(parts, bg.Render("● "+classifyConnectionError(snap.FetchError), styles.DangerText))
	case snap.Status.Loading():
		parts = append(parts, m.spinner.View()+bg.Space()+bg.Render(loadingLabel(snap.Status), styles.WarningText))
	case snap.Status == state.StatusError:
		parts = append(parts, bg.Render("● ERROR", styles.DangerText))
	default:
		parts = append(parts, bg.Render("● ONLINE", styles.SuccessText))
	}

	if snap.Scope != "" {
		limit := 40
		if compact {
			limit = 20
		}
		parts = append(parts,
			bg.Render("Scope:", styles.MutedText)+bg.Space()+
				bg.Render(truncateMiddle(snap.Scope, limit), styles.Text))

		count := humanize.Comma(int64(len(snap.Items)))
		if snap.TotalCount > len(snap.Items) {
			count += "/" + humanize.Comma(int64(snap.TotalCount))
		}
		parts = append(parts,
			bg.Render("Vars:", styles.MutedText)+bg.Space()+bg.Render(count, styles.Text))
	}

	if p := snap.Pending; p != nil {
		label := fmt.Sprintf("Saving %s", truncate(p.Name, 24))
		if p.Attempts > 0 && !compact {
			label += fmt.Sprintf(" (check %d)", p.Attempts)
		}
		parts = append(parts, styles.StatusStyle(rowSaving).Render(label))
	}

	if !snap.LastUpdated.IsZero() {
		parts = append(parts, bg.Render(humanize.RelTime(snap.LastUpdated, m.now, "ago", "from now"), styles.MutedText))
	}

	if snap.FetchError != nil && !snap.IsOffline() && !compact {
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(snap.FetchError.Error(), 60), styles.DangerText))
	}

	if m.apiURL != "" && !compact {
		parts = append(parts, bg.Render(truncateMiddle(m.apiURL, 40), styles.FaintText))
	}

	return styles.Header.Width(m.width).MaxWidth(m.width).Render(bg.Join(parts, "  "))
}

func loadingLabel(status state.Status) string {
	if status == state.StatusRefetching {
		return "Refreshing"
	}
	return "Loading"
}

// classifyConnectionError returns a short description of the fetch error.
func classifyConnectionError(err error) string {
	if err == nil {
		return "OFFLINE"
	}
	if apiErr, ok := operate.AsAPIError(err); ok {
		return fmt.Sprintf("HTTP %d", apiErr.StatusCode)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	default:
		return "OFFLINE"
	}
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	// Command bar uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewLogs:
		followLabel := "Pause"
		if !m.logState.follow {
			followLabel = "Follow"
		}
		commands = []cmd{
			{"Space", followLabel},
			{"L", "Level"},
			{"j/k", "Scroll"},
			{"esc", "Variables"},
			{"?", "More"},
		}
	case ViewValue:
		commands = []cmd{
			{"j/k", "Scroll"},
			{"f", "Full value"},
			{"e", "Edit"},
			{"l", "Logs"},
			{"esc", "Variables"},
			{"?", "More"},
		}
	default: // ViewVariables
		commands = []cmd{
			{"a", "Add"},
			{"e", "Edit"},
			{"enter", "Value"},
			{"r", "Refresh"},
			{"s", "Scope"},
		}
		if m.snapshot.HasMore {
			commands = append(commands, cmd{"n", "More"})
		}
		commands = append(commands,
			cmd{"j/k", "Navigate"},
			cmd{"l", "Logs"},
			cmd{"?", "Help"},
		)
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	// Add theme indicator
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).MaxWidth(m.width).Render(strings.Join(segments, sep))
}

// renderNoticeLine renders the notification banner below the content.
func (m Model) renderNoticeLine() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var content string
	if n := m.notice; n != nil {
		icon, style := "✓", styles.SuccessText
		if n.Kind == state.NotifyError {
			icon, style = "✗", styles.DangerText
		}
		content = bg.Render(icon, style) + bg.Space() +
			bg.Render(truncate(n.Message, max(m.width-6, 10)), style)
	}
	return styles.Footer.Width(m.width).MaxWidth(m.width).Render(content)
}
