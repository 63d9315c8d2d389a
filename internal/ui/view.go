package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/cache"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/logtail"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var body string
	switch m.view {
	case ViewItems:
		body = m.renderItems()
	case ViewLog:
		body = m.logViewport.View()
	default:
		body = m.renderLists()
	}
	body = lipgloss.NewStyle().Height(m.bodyHeight()).MaxHeight(m.bodyHeight()).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderStatusLine(),
		body,
		m.renderFlash(),
		m.styles.Footer.Render(m.help.ShortHelpView(m.keys.ShortHelp())),
	)
}

func (m Model) renderHeader() string {
	title := "Kitchen · Grocery lists"
	switch m.view {
	case ViewItems:
		if l, ok := m.openList(); ok {
			title = "Kitchen · " + l.Name
		}
	case ViewLog:
		title = "Kitchen · Log"
	}

	right := m.styles.FaintText.Render("theme " + m.theme.Name)
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.styles.Header.Width(m.width).Render(title + strings.Repeat(" ", gap) + right)
}

// renderStatusLine shows the offline banner, pending counts and last sync.
func (m Model) renderStatusLine() string {
	snap := m.snapshot
	var parts []string
	if snap.IsOffline() {
		parts = append(parts, m.styles.OfflineBanner.Render("OFFLINE"))
	} else {
		parts = append(parts, m.styles.SuccessText.Render("● online"))
	}
	if snap.Pending > 0 {
		parts = append(parts, m.styles.PendingBadge.Render(fmt.Sprintf("%d pending", snap.Pending)))
	}
	if snap.DeadLetters > 0 {
		parts = append(parts, m.styles.DangerText.Render(fmt.Sprintf("%d failed (R to retry)", snap.DeadLetters)))
	}
	if snap.Draining {
		parts = append(parts, m.styles.InfoText.Render("syncing"))
	}
	parts = append(parts, m.styles.MutedText.Render("synced "+humanizeSince(snap.LastSynced, time.Now())))
	if snap.LastError != nil {
		parts = append(parts, m.styles.WarningText.Render("refresh failed"))
	}
	return " " + strings.Join(parts, "  ")
}

func (m Model) renderFlash() string {
	if m.flash == "" {
		return ""
	}
	return " " + m.styles.AccentText.Render(m.flash)
}

func (m Model) renderLists() string {
	if len(m.lists) == 0 {
		if m.snapshot.LastError != nil {
			return m.styles.DangerText.Render(" Could not load lists: " + m.snapshot.LastError.Error())
		}
		return m.styles.MutedText.Render(" No grocery lists yet. Press r to refresh.")
	}

	var b strings.Builder
	for i, l := range m.lists {
		line := fmt.Sprintf("%-28s %s  %d/%d", truncate(l.Name, 28), m.styles.StatusStyle(l.Status).Render(l.Status), l.CheckedCount(), len(l.Items))
		if l.Store != "" {
			line += m.styles.FaintText.Render("  @ " + l.Store)
		}
		b.WriteString(m.row(line, i == m.listCursor))
		b.WriteByte('\n')
	}
	return b.String()
}

func (m Model) renderItems() string {
	items := m.visibleItems()
	if len(items) == 0 {
		return m.styles.MutedText.Render(" Nothing to show.")
	}

	var b strings.Builder
	for i, it := range items {
		b.WriteString(m.row(m.itemLine(it), i == m.itemCursor))
		b.WriteByte('\n')
	}
	return b.String()
}

func (m Model) itemLine(it cache.Item) string {
	box := "[ ]"
	if it.Checked {
		box = "[x]"
	}
	name := it.ItemName
	if qty := formatQuantity(it.Quantity, it.Unit); qty != "" {
		name = qty + " " + name
	}
	line := box + " " + name
	if it.Category != "" {
		line += m.styles.FaintText.Render("  " + it.Category)
	}
	if it.AddedToPantry {
		line += m.styles.SuccessText.Render("  in pantry")
	}
	return line
}

func (m Model) row(text string, selected bool) string {
	if selected {
		return m.styles.Selected.Width(m.width).Render("› " + text)
	}
	return "  " + text
}

func (m Model) renderHelp() string {
	h := m.help
	h.ShowAll = true
	return m.styles.Panel.Render(
		m.styles.AccentText.Render("Keys") + "\n\n" + h.View(m.keys) + "\n\n" +
			m.styles.MutedText.Render("Press any key to close"),
	)
}

func (m Model) renderLogLines(entries []logtail.Entry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		text := logtail.Format(e)
		switch {
		case e.Level >= zerolog.ErrorLevel && e.Level < zerolog.NoLevel:
			text = m.styles.DangerText.Render(text)
		case e.Level == zerolog.WarnLevel:
			text = m.styles.WarningText.Render(text)
		case e.Level == zerolog.DebugLevel || e.Level == zerolog.TraceLevel:
			text = m.styles.FaintText.Render(text)
		default:
			text = m.styles.Text.Render(text)
		}
		lines[i] = text
	}
	return strings.Join(lines, "\n")
}

func humanizeSince(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Local().Format("Jan 2 15:04")
	}
}

func formatQuantity(q float64, unit string) string {
	if q == 0 {
		return ""
	}
	s := fmt.Sprintf("%g", q)
	if unit != "" {
		s += " " + unit
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
