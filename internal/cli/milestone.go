package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	milestoneDate string
	milestoneDesc string
)

var milestoneCmd = &cobra.Command{
	Use:   "milestone",
	Short: "Track dated project milestones",
}

var milestoneAddCmd = &cobra.Command{
	Use:   "add [project] [name]",
	Short: "Add a milestone",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runMilestoneAdd,
}

var milestoneListCmd = &cobra.Command{
	Use:   "list [project]",
	Short: "List milestones by date",
	Args:  cobra.ExactArgs(1),
	RunE:  runMilestoneList,
}

var milestoneToggleCmd = &cobra.Command{
	Use:   "toggle [id]",
	Short: "Flip a milestone between open and completed",
	Args:  cobra.ExactArgs(1),
	RunE:  runMilestoneToggle,
}

var milestoneDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a milestone",
	Args:  cobra.ExactArgs(1),
	RunE:  runMilestoneDelete,
}

func init() {
	milestoneAddCmd.Flags().StringVar(&milestoneDate, "date", "", "Due date (YYYY-MM-DD)")
	milestoneAddCmd.Flags().StringVarP(&milestoneDesc, "desc", "d", "", "Milestone description")
	milestoneAddCmd.MarkFlagRequired("date")

	milestoneCmd.AddCommand(milestoneAddCmd)
	milestoneCmd.AddCommand(milestoneListCmd)
	milestoneCmd.AddCommand(milestoneToggleCmd)
	milestoneCmd.AddCommand(milestoneDeleteCmd)
}

func runMilestoneAdd(cmd *cobra.Command, args []string) error {
	date, err := parseDate(milestoneDate)
	if err != nil {
		return err
	}
	if date == nil {
		return fmt.Errorf("--date is required")
	}

	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if _, err := s.GetProject(ctx, args[0]); err != nil {
		return err
	}
	m, err := s.CreateMilestone(ctx, args[0], strings.Join(args[1:], " "), milestoneDesc, *date)
	if err != nil {
		return err
	}
	fmt.Printf("Added milestone %s on %s\n", m.Name, m.Date.Format(dateLayout))
	fmt.Printf("  ID: %s\n", m.ID)
	return nil
}

func runMilestoneList(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	milestones, err := s.ListMilestones(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(milestones) == 0 {
		fmt.Println("No milestones found.")
		return nil
	}
	for _, m := range milestones {
		fmt.Printf("%s %s  %-36s  %s\n", checkbox(m.IsCompleted), m.Date.Format(dateLayout), m.ID, m.Name)
	}
	return nil
}

func runMilestoneToggle(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	done, err := s.ToggleMilestone(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	state := "open"
	if done {
		state = "completed"
	}
	fmt.Printf("Milestone %s is now %s\n", args[0], state)
	return nil
}

func runMilestoneDelete(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.DeleteMilestone(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted milestone %s\n", args[0])
	return nil
}
