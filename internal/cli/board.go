package cli

import (
	"fmt"
	"strings"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/store"
	"github.com/spf13/cobra"
)

// ANSI color codes.
const (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorWhite   = "\033[37m"
)

const boardColWidth = 30

var boardCmd = &cobra.Command{
	Use:   "board [project]",
	Short: "Show the kanban board of a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runBoard,
}

func runBoard(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	eng, err := sess.engine(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	b := eng.Board()
	if b.Total() == 0 {
		fmt.Printf("%sBoard is empty.%s Create a task: %staskboard task create %s \"title\"%s\n",
			colorDim, colorReset, colorCyan, args[0], colorReset)
		return nil
	}

	fmt.Print(renderBoard(b, boardColWidth))

	actor, _ := sess.actor()
	if !eng.CanMutate(actor) {
		fmt.Printf("%sread-only%s\n", colorDim, colorReset)
	}
	return nil
}

func laneColor(l board.Lane) string {
	switch l {
	case board.LaneInProgress:
		return colorBlue
	case board.LaneDone:
		return colorGreen
	default:
		return colorWhite
	}
}

// renderBoard draws the lanes side by side followed by a summary line.
func renderBoard(b board.Board, colWidth int) string {
	var sb strings.Builder

	// Header.
	headerLine := ""
	sepLine := ""
	for _, l := range board.Lanes {
		count := len(b.Lane(l))
		header := fmt.Sprintf(" %s%s%s (%d)", laneColor(l)+colorBold, strings.ToUpper(l.Title()), colorReset, count)
		// padding needs visible length, not byte length (ANSI codes add bytes).
		visibleLen := len(fmt.Sprintf(" %s (%d)", strings.ToUpper(l.Title()), count))
		headerLine += header + strings.Repeat(" ", max(colWidth-visibleLen, 0))
		sepLine += strings.Repeat("─", colWidth)
	}
	if b.Locked {
		headerLine += colorGreen + " FINISHED" + colorReset
	}
	sb.WriteString(headerLine + "\n")
	sb.WriteString(colorDim + sepLine + colorReset + "\n")

	maxRows := 0
	for _, l := range board.Lanes {
		maxRows = max(maxRows, len(b.Lane(l)))
	}

	for i := 0; i < maxRows; i++ {
		// Title line.
		line := ""
		for _, l := range board.Lanes {
			tasks := b.Lane(l)
			if i >= len(tasks) {
				line += strings.Repeat(" ", colWidth)
				continue
			}
			t := tasks[i]
			idStr := fmt.Sprintf("%d.", i+1)
			titleStr := truncate(t.Title, colWidth-len(idStr)-3)
			card := fmt.Sprintf(" %s%s%s %s", priorityColor(t.Priority), idStr, colorReset, titleStr)
			visibleLen := len(fmt.Sprintf(" %s %s", idStr, titleStr))
			line += card + strings.Repeat(" ", max(colWidth-visibleLen, 0))
		}
		sb.WriteString(line + "\n")

		// ID / assignee line.
		detailLine := ""
		for _, l := range board.Lanes {
			tasks := b.Lane(l)
			if i >= len(tasks) {
				detailLine += strings.Repeat(" ", colWidth)
				continue
			}
			t := tasks[i]
			visible := "    " + shortID(t.ID)
			if t.AssignedTo != "" {
				visible += " @" + shortID(t.AssignedTo)
			}
			visible = padRight(visible, colWidth)
			detailLine += colorDim + visible + colorReset
		}
		sb.WriteString(detailLine + "\n")
		sb.WriteString("\n") // spacing between cards
	}

	// Summary line.
	sb.WriteString(fmt.Sprintf("%s%d tasks%s", colorBold, b.Total(), colorReset))
	if n := len(b.Done); n > 0 {
		sb.WriteString(fmt.Sprintf("  %s✓ %d done%s", colorGreen, n, colorReset))
	}
	if n := len(b.InProgress); n > 0 {
		sb.WriteString(fmt.Sprintf("  %s● %d in progress%s", colorBlue, n, colorReset))
	}
	sb.WriteString(fmt.Sprintf("  %s%d%%%s\n", colorBold, b.Progress, colorReset))
	return sb.String()
}

// shortID keeps the first block of a UUID.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return truncate(id, 8)
}

func priorityColor(priority store.Priority) string {
	switch priority {
	case store.PriorityHigh:
		return colorRed + colorBold
	case store.PriorityMedium:
		return colorYellow
	case store.PriorityLow:
		return colorDim
	default:
		return ""
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
