package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/notify"
	"github.com/imkarma/taskboard/internal/store"
)

// --- Color palette ---
var (
	clrSubtle    = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrHighlight = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrYellow    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrBlue      = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	clrCyan      = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"}
	clrWhite     = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
)

// --- Styles ---
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	dimStyle    = lipgloss.NewStyle().Foreground(clrDim)
	subtleStyle = lipgloss.NewStyle().Foreground(clrSubtle)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrSubtle).
			Padding(0, 1)

	cardSelectedStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(clrHighlight).
				Padding(0, 1).
				Bold(true)

	dropSlotStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(clrYellow).
			Foreground(clrYellow).
			Padding(0, 1)

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrHighlight).
			Padding(1, 2).
			Width(60)

	statusStyle = lipgloss.NewStyle().Foreground(clrGreen).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(clrRed).Bold(true)
	infoStyle   = lipgloss.NewStyle().Foreground(clrCyan)

	footerKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	footerDescStyle = lipgloss.NewStyle().Foreground(clrSubtle)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	content := m.viewBoard()

	// Overlay popup if active.
	if m.popup != popupNone {
		content = m.overlayPopup(content)
	}

	return content
}

// ════════════════════════════════════════════════
// BOARD VIEW
// ════════════════════════════════════════════════

func (m Model) viewBoard() string {
	var b strings.Builder

	// Header.
	header := titleStyle.Render(m.title)
	header += dimStyle.Render(fmt.Sprintf(" · %d tasks ", m.board.Total()))
	header += renderProgress(m.board.Progress, 20)
	if m.board.Locked {
		header += " " + statusStyle.Render("FINISHED")
	} else if m.readOnly() {
		header += " " + dimStyle.Render("read-only")
	}

	rightHelp := footerKeyStyle.Render("c") + footerDescStyle.Render(" new  ") +
		footerKeyStyle.Render("q") + footerDescStyle.Render(" quit")

	headerLine := header
	if m.width > 0 {
		pad := m.width - lipgloss.Width(header) - lipgloss.Width(rightHelp)
		if pad > 0 {
			headerLine = header + strings.Repeat(" ", pad) + rightHelp
		}
	}
	b.WriteString(headerLine + "\n\n")

	colWidth := 32
	if m.width > 0 {
		colWidth = max((m.width-4)/len(board.Lanes), 24)
	}

	cols := make([]string, 0, len(board.Lanes))
	for i, l := range board.Lanes {
		cols = append(cols, m.renderLane(l, i == m.cursorCol, colWidth))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	b.WriteString("\n")

	b.WriteString(m.viewNotes())
	b.WriteString(m.boardFooter())
	return b.String()
}

func laneStyle(l board.Lane) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch l {
	case board.LaneInProgress:
		return style.Foreground(clrBlue)
	case board.LaneDone:
		return style.Foreground(clrGreen)
	default:
		return style.Foreground(clrWhite)
	}
}

// renderLane draws one column. While a card is carried it is left out
// of every lane and a drop slot marks where it would land.
func (m Model) renderLane(l board.Lane, active bool, width int) string {
	tasks := m.board.Lane(l)

	var heldTask *store.Task
	if m.held != nil {
		if src, idx, ok := m.board.Find(m.held.taskID); ok {
			t := m.board.Lane(src)[idx]
			heldTask = &t
			if src == l {
				tasks = append(tasks[:idx:idx], tasks[idx+1:]...)
			}
		}
	}

	var rows []string
	title := laneStyle(l).Render(fmt.Sprintf("%s (%d)", l.Title(), len(m.board.Lane(l))))
	if active && m.held == nil {
		title = "▸ " + title
	}
	rows = append(rows, title)

	cardWidth := width - 2
	for i, t := range tasks {
		if m.held != nil && m.held.lane == l && m.held.index == i && heldTask != nil {
			rows = append(rows, renderDropSlot(*heldTask, cardWidth))
		}
		selected := m.held == nil && active && i == m.cursorRow
		rows = append(rows, renderCard(t, selected, cardWidth))
	}
	if m.held != nil && m.held.lane == l && m.held.index >= len(tasks) && heldTask != nil {
		rows = append(rows, renderDropSlot(*heldTask, cardWidth))
	}
	if len(rows) == 1 {
		rows = append(rows, dimStyle.Render("  (empty)"))
	}

	return lipgloss.NewStyle().Width(width).PaddingRight(1).Render(strings.Join(rows, "\n"))
}

func renderCard(t store.Task, selected bool, width int) string {
	style := cardStyle
	if selected {
		style = cardSelectedStyle
	}
	inner := max(width-4, 8)

	line1 := truncate(t.Title, inner)
	line2 := priorityStyle(t.Priority).Render(string(t.Priority))
	if t.AssignedTo != "" {
		line2 += subtleStyle.Render(" @" + truncate(t.AssignedTo, max(inner-len(t.Priority)-2, 4)))
	}
	return style.Width(width).Render(line1 + "\n" + line2)
}

func renderDropSlot(t store.Task, width int) string {
	return dropSlotStyle.Width(width).Render(truncate("↓ "+t.Title, max(width-4, 8)))
}

func priorityStyle(p store.Priority) lipgloss.Style {
	switch p {
	case store.PriorityHigh:
		return lipgloss.NewStyle().Bold(true).Foreground(clrRed)
	case store.PriorityMedium:
		return lipgloss.NewStyle().Foreground(clrYellow)
	default:
		return lipgloss.NewStyle().Foreground(clrSubtle)
	}
}

// renderProgress draws a bar of width cells for a 0-100 percentage.
func renderProgress(percent, width int) string {
	filled := percent * width / 100
	filled = max(0, min(filled, width))
	bar := lipgloss.NewStyle().Foreground(clrGreen).Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", width-filled))
	return bar + dimStyle.Render(fmt.Sprintf(" %d%%", percent))
}

func (m Model) viewNotes() string {
	var b strings.Builder
	for _, n := range m.pending {
		switch n.Kind {
		case notify.KindSuccess:
			b.WriteString("  " + statusStyle.Render("✓ "+n.Message) + "\n")
		case notify.KindError:
			b.WriteString("  " + errorStyle.Render("✗ "+n.Message) + "\n")
		default:
			b.WriteString("  " + infoStyle.Render("• "+n.Message) + "\n")
		}
	}
	if m.statusMsg != "" {
		b.WriteString("  " + subtleStyle.Render(m.statusMsg) + "\n")
	}
	return b.String()
}

func (m Model) boardFooter() string {
	if m.held != nil {
		return renderFooter([]struct{ key, desc string }{
			{"←→", "lane"},
			{"↑↓", "position"},
			{"enter", "drop"},
			{"esc", "cancel"},
		})
	}
	return renderFooter([]struct{ key, desc string }{
		{"←→↑↓", "navigate"},
		{"enter", "pick up"},
		{"c", "new"},
		{"d", "delete"},
		{"F", "finish"},
		{"R", "refresh"},
		{"q", "quit"},
	})
}

// ════════════════════════════════════════════════
// POPUPS
// ════════════════════════════════════════════════

func (m Model) overlayPopup(bg string) string {
	var popup string

	switch m.popup {
	case popupCreate:
		popup = m.viewCreatePopup()
	case popupConfirmDelete:
		popup = m.viewConfirmDeletePopup()
	case popupConfirmFinish:
		popup = m.viewConfirmFinishPopup()
	default:
		return bg
	}

	// Place popup in center of screen.
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			popup,
			lipgloss.WithWhitespaceChars(" "),
		)
	}

	return popup
}

func (m Model) viewCreatePopup() string {
	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true).Foreground(clrHighlight).Render("New task in " + m.createLane.Title())
	b.WriteString(title + "\n\n")

	b.WriteString("Title:\n")
	b.WriteString(m.textInput.View() + "\n\n")

	b.WriteString("Description:\n")
	b.WriteString(m.textInput2.View() + "\n\n")

	b.WriteString(fmt.Sprintf("Priority: %s\n\n", priorityStyle(m.createPriority).Render(string(m.createPriority))))

	b.WriteString(footerDescStyle.Render("enter create • tab switch • ctrl+p priority • esc cancel"))

	return m.popupBoxStyle().Render(b.String())
}

func (m Model) viewConfirmDeletePopup() string {
	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true).Foreground(clrRed).Render("Delete Task")
	b.WriteString(title + "\n\n")

	if l, i, ok := m.board.Find(m.popupTaskID); ok {
		b.WriteString(m.board.Lane(l)[i].Title + "\n\n")
	}
	b.WriteString("This is permanent.\n\n")

	b.WriteString(footerKeyStyle.Render("y") + footerDescStyle.Render(" confirm  ") +
		footerKeyStyle.Render("n") + footerDescStyle.Render(" cancel"))

	return m.popupBoxStyle().Render(b.String())
}

func (m Model) viewConfirmFinishPopup() string {
	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true).Foreground(clrGreen).Render("Finish Project")
	b.WriteString(title + "\n\n")

	if m.board.Progress < 100 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Only %d%% of the tasks are done.", m.board.Progress)) + "\n")
	}
	b.WriteString("The board will be frozen for everyone.\n\n")

	b.WriteString(footerKeyStyle.Render("y") + footerDescStyle.Render(" confirm  ") +
		footerKeyStyle.Render("n") + footerDescStyle.Render(" cancel"))

	return m.popupBoxStyle().Render(b.String())
}

func (m Model) popupBoxStyle() lipgloss.Style {
	w := 60
	if m.width > 0 {
		w = m.width - 12
		if w < 42 {
			w = 42
		}
		if w > 84 {
			w = 84
		}
	}
	return popupStyle.Width(w)
}

// ════════════════════════════════════════════════
// SHARED HELPERS
// ════════════════════════════════════════════════

func renderFooter(keys []struct{ key, desc string }) string {
	var parts []string
	for _, k := range keys {
		key := footerKeyStyle.Render(k.key)
		desc := footerDescStyle.Render(k.desc)
		parts = append(parts, key+" "+desc)
	}
	return "  " + strings.Join(parts, "  ")
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
