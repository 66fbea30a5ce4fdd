package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/store"
	"github.com/spf13/cobra"
)

var (
	projectDesc  string
	projectStart string
	projectEnd   string
	projectMine  bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Create or manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a project managed by the actor",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProjectCreate,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE:  runProjectList,
}

var projectShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show project details",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

var projectFinishCmd = &cobra.Command{
	Use:   "finish [id]",
	Short: "Mark a project finished and freeze its board",
	Long:  "Marks the project completed. Every task must be done first. Only the manager can finish a project.",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectFinish,
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a project with its tasks and milestones",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectDelete,
}

func init() {
	projectCreateCmd.Flags().StringVarP(&projectDesc, "desc", "d", "", "Project description")
	projectCreateCmd.Flags().StringVar(&projectStart, "start", "", "Start date (YYYY-MM-DD)")
	projectCreateCmd.Flags().StringVar(&projectEnd, "end", "", "End date (YYYY-MM-DD)")

	projectListCmd.Flags().BoolVar(&projectMine, "mine", false, "Only projects the actor belongs to")

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectFinishCmd)
	projectCmd.AddCommand(projectDeleteCmd)
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	actor, err := sess.actor()
	if err != nil {
		return err
	}
	start, err := parseDate(projectStart)
	if err != nil {
		return err
	}
	end, err := parseDate(projectEnd)
	if err != nil {
		return err
	}

	p, err := sess.store.CreateProject(cmd.Context(), strings.Join(args, " "), projectDesc, actor, start, end)
	if err != nil {
		return err
	}
	fmt.Printf("Created project %s\n", p.Name)
	fmt.Printf("  ID: %s\n", p.ID)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	var projects []store.Project
	if projectMine {
		actor, err := sess.actor()
		if err != nil {
			return err
		}
		projects, err = sess.store.ListProjectsByMember(cmd.Context(), actor)
		if err != nil {
			return err
		}
	} else {
		projects, err = sess.store.ListProjects(cmd.Context())
		if err != nil {
			return err
		}
	}

	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return nil
	}
	for _, p := range projects {
		fmt.Printf("%-36s  %s%-12s%s %s\n", p.ID, projectStatusColor(p.Status), p.Status, colorReset, p.Name)
	}
	return nil
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()
	eng, err := sess.engine(ctx, args[0])
	if err != nil {
		return err
	}
	p := eng.Project()
	if p == nil {
		return fmt.Errorf("project %s is unavailable", args[0])
	}

	fmt.Printf("%sProject %s%s\n", colorBold, p.Name, colorReset)
	fmt.Printf("  ID:       %s\n", p.ID)
	fmt.Printf("  Status:   %s%s%s\n", projectStatusColor(p.Status), p.Status, colorReset)
	if p.Description != "" {
		fmt.Printf("  Desc:     %s\n", p.Description)
	}
	fmt.Printf("  Manager:  %s\n", p.CreatedBy)
	fmt.Printf("  Dates:    %s → %s\n", formatDate(p.StartDate), formatDate(p.EndDate))
	if p.FinishedAt != nil {
		fmt.Printf("  Finished: %s\n", p.FinishedAt.Format("2006-01-02 15:04"))
	}
	fmt.Printf("  Progress: %d%%\n", eng.Board().Progress)

	fmt.Println("\n  Members:")
	for _, m := range p.Members {
		name := m
		if u, err := sess.store.GetUser(ctx, m); err == nil {
			name = fmt.Sprintf("%s <%s>", u.UserName, u.Email)
		}
		fmt.Printf("    %s  %s\n", m, name)
	}

	milestones, err := sess.store.ListMilestones(ctx, p.ID)
	if err != nil {
		return err
	}
	if len(milestones) > 0 {
		fmt.Println("\n  Milestones:")
		for _, m := range milestones {
			fmt.Printf("    %s %s  %s\n", checkbox(m.IsCompleted), m.Date.Format(dateLayout), m.Name)
		}
	}
	return nil
}

func runProjectFinish(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	actor, err := sess.actor()
	if err != nil {
		return err
	}
	eng, err := sess.engine(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !eng.CanMutate(actor) {
		fmt.Printf("%sBoard is read-only for %s; nothing changed.%s\n", colorDim, actor, colorReset)
		return nil
	}

	err = eng.Finish(cmd.Context(), actor)
	sess.printNotes()
	if errors.Is(err, board.ErrIncomplete) {
		return fmt.Errorf("project is at %d%%", eng.Board().Progress)
	}
	return err
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	actor, err := sess.actor()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	p, err := sess.store.GetProject(ctx, args[0])
	if err != nil {
		return err
	}
	if p.CreatedBy != actor {
		return fmt.Errorf("only the project manager can delete %s", p.Name)
	}
	if err := sess.store.DeleteProject(ctx, p.ID); err != nil {
		return err
	}
	sess.hub.Forget(p.ID)
	fmt.Printf("Deleted project %s\n", p.Name)
	return nil
}

func projectStatusColor(s store.ProjectStatus) string {
	switch s {
	case store.ProjectCompleted:
		return colorGreen
	case store.ProjectLate:
		return colorRed
	default:
		return colorBlue
	}
}

func checkbox(done bool) string {
	if done {
		return colorGreen + "[x]" + colorReset
	}
	return "[ ]"
}
