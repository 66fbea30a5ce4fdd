package cli

import (
	"fmt"

	"github.com/imkarma/taskboard/internal/store"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log [task-id]",
	Short: "Show event log for a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	id := args[0]
	events, err := s.GetEvents(cmd.Context(), id)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Printf("No events for task %s\n", id)
		return nil
	}

	fmt.Printf("Events for task %s:\n\n", id)
	for _, e := range events {
		fmt.Printf("  %s  %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), formatEvent(e))
	}
	return nil
}

func formatEvent(e store.Event) string {
	actor := ""
	if e.Actor != "" {
		actor = fmt.Sprintf("[%s] ", shortID(e.Actor))
	}
	return fmt.Sprintf("%s%-14s %s", actor, e.Type, e.Content)
}
