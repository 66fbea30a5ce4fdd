package cli

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/imkarma/taskboard/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui [project]",
	Short: "Open the interactive board",
	Long:  "Opens an interactive three-lane board. Pick up a card with enter, move it with the arrow keys and drop it with enter.",
	Args:  cobra.ExactArgs(1),
	RunE:  runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	// Diagnostics would draw over the board.
	sess.log.SetOutput(logSink())

	actor, err := sess.actor()
	if err != nil {
		return err
	}
	eng, err := sess.engine(ctx, args[0])
	if err != nil {
		return err
	}

	model := tui.New(ctx, eng, sess.notes, actor)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// logSink returns .taskboard/ui.log, or a discarding writer when it
// cannot be opened.
func logSink() io.Writer {
	f, err := os.OpenFile(workspacePath("ui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return io.Discard
	}
	return f
}
