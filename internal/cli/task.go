package cli

import (
	"fmt"
	"strings"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/store"
	"github.com/spf13/cobra"
)

var (
	taskPriority    string
	taskDescription string
	taskStatus      string
	taskAssign      string
	taskParent      string
	taskStart       string
	taskEnd         string
	taskMoveTo      int

	editTitle    string
	editDesc     string
	editStatus   string
	editPriority string
	editAssign   string
	editStart    string
	editEnd      string
	editSpent    float64
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create or manage tasks",
	Long:  "Create new tasks or manage existing ones on a project board.",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create [project] [title]",
	Short: "Create a new task",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTaskCreate,
}

var taskListCmd = &cobra.Command{
	Use:   "list [project] [status]",
	Short: "List tasks of a project, optionally filtered by status",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Change task fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskEdit,
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDelete,
}

var taskMoveCmd = &cobra.Command{
	Use:   "move [id] [lane]",
	Short: "Move a task within or between lanes",
	Long: "Moves a task the way dragging a card does. Lanes: todo, inprogress, done.\n" +
		"Without --to the task goes to the end of the lane.",
	Args: cobra.ExactArgs(2),
	RunE: runTaskMove,
}

func init() {
	taskCreateCmd.Flags().StringVarP(&taskPriority, "priority", "p", "medium", "Priority: high, medium, low")
	taskCreateCmd.Flags().StringVarP(&taskDescription, "desc", "d", "", "Task description")
	taskCreateCmd.Flags().StringVarP(&taskStatus, "status", "s", "", "Initial status (default todo)")
	taskCreateCmd.Flags().StringVarP(&taskAssign, "assign", "a", "", "Assignee user ID")
	taskCreateCmd.Flags().StringVar(&taskParent, "parent", "", "Parent task ID")
	taskCreateCmd.Flags().StringVar(&taskStart, "start", "", "Start date (YYYY-MM-DD)")
	taskCreateCmd.Flags().StringVar(&taskEnd, "end", "", "End date (YYYY-MM-DD)")

	taskEditCmd.Flags().StringVarP(&editTitle, "title", "t", "", "New title")
	taskEditCmd.Flags().StringVarP(&editDesc, "desc", "d", "", "New description")
	taskEditCmd.Flags().StringVarP(&editStatus, "status", "s", "", "New status: todo, inprogress, done, in-late")
	taskEditCmd.Flags().StringVarP(&editPriority, "priority", "p", "", "New priority")
	taskEditCmd.Flags().StringVarP(&editAssign, "assign", "a", "", "New assignee user ID")
	taskEditCmd.Flags().StringVar(&editStart, "start", "", "New start date (YYYY-MM-DD)")
	taskEditCmd.Flags().StringVar(&editEnd, "end", "", "New end date (YYYY-MM-DD)")
	taskEditCmd.Flags().Float64Var(&editSpent, "spent", 0, "Hours spent")

	taskMoveCmd.Flags().IntVar(&taskMoveTo, "to", -1, "Position in the destination lane, 0 is the top")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskEditCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskMoveCmd)
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	actor, err := sess.actor()
	if err != nil {
		return err
	}
	start, err := parseDate(taskStart)
	if err != nil {
		return err
	}
	end, err := parseDate(taskEnd)
	if err != nil {
		return err
	}

	eng, err := sess.engine(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	task, err := eng.CreateTask(cmd.Context(), actor, store.TaskDraft{
		Title:        strings.Join(args[1:], " "),
		Description:  taskDescription,
		Status:       store.TaskStatus(taskStatus),
		Priority:     store.Priority(taskPriority),
		AssignedTo:   taskAssign,
		ParentTaskID: taskParent,
		StartDate:    start,
		EndDate:      end,
	})
	sess.printNotes()
	if err != nil {
		return err
	}

	fmt.Printf("  ID: %s [%s]\n", task.ID, task.Priority)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	tasks, err := s.ListTasksByProject(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	status := ""
	if len(args) > 1 {
		status = args[1]
	}

	shown := 0
	for _, t := range tasks {
		if status != "" && string(t.Status) != status {
			continue
		}
		assignee := ""
		if t.AssignedTo != "" {
			assignee = fmt.Sprintf(" [%s]", t.AssignedTo)
		}
		fmt.Printf("%-36s  %-10s %s%-6s%s %s%s\n", t.ID, t.Status, priorityColor(t.Priority), t.Priority, colorReset, t.Title, assignee)
		shown++
	}
	if shown == 0 {
		fmt.Println("No tasks found.")
	}
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	task, err := s.GetTask(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Task %s\n", task.ID)
	fmt.Printf("  Title:    %s\n", task.Title)
	fmt.Printf("  Project:  %s\n", task.ProjectID)
	fmt.Printf("  Status:   %s\n", task.Status)
	fmt.Printf("  Priority: %s\n", task.Priority)
	fmt.Printf("  Rank:     %d\n", task.Rank)
	if task.Description != "" {
		fmt.Printf("  Desc:     %s\n", task.Description)
	}
	if task.AssignedTo != "" {
		fmt.Printf("  Assignee: %s\n", task.AssignedTo)
	}
	if task.ParentTaskID != "" {
		fmt.Printf("  Parent:   %s\n", task.ParentTaskID)
	}
	if len(task.Dependencies) > 0 {
		fmt.Printf("  Depends:  %s\n", strings.Join(task.Dependencies, ", "))
	}
	if task.StartDate != nil || task.EndDate != nil {
		fmt.Printf("  Dates:    %s → %s\n", formatDate(task.StartDate), formatDate(task.EndDate))
	}
	if task.TimeSpent > 0 {
		fmt.Printf("  Spent:    %.1fh\n", task.TimeSpent)
	}
	fmt.Printf("  Created:  %s\n", task.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("  Updated:  %s\n", task.UpdatedAt.Format("2006-01-02 15:04"))

	subtasks, err := s.ListSubtasks(ctx, task.ID)
	if err != nil {
		return err
	}
	if len(subtasks) > 0 {
		fmt.Println("\n  Subtasks:")
		for _, st := range subtasks {
			fmt.Printf("    %-10s %s\n", st.Status, st.Title)
		}
	}

	// Show events.
	events, err := s.GetEvents(ctx, task.ID)
	if err != nil {
		return err
	}
	if len(events) > 0 {
		fmt.Println("\n  Events:")
		for _, e := range events {
			fmt.Printf("    %s %s\n", e.Timestamp.Format("15:04"), formatEvent(e))
		}
	}

	return nil
}

func runTaskEdit(cmd *cobra.Command, args []string) error {
	patch, err := taskPatchFromFlags(cmd)
	if err != nil {
		return err
	}
	if patch.Empty() {
		return fmt.Errorf("nothing to change. See: taskboard task edit --help")
	}

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
	task, err := sess.store.GetTask(ctx, args[0])
	if err != nil {
		return err
	}
	eng, err := sess.engine(ctx, task.ProjectID)
	if err != nil {
		return err
	}
	err = eng.UpdateTask(ctx, actor, task.ID, patch)
	sess.printNotes()
	return err
}

// taskPatchFromFlags turns the flags the user actually set into a patch.
func taskPatchFromFlags(cmd *cobra.Command) (store.TaskPatch, error) {
	var p store.TaskPatch
	flags := cmd.Flags()
	if flags.Changed("title") {
		p.Title = &editTitle
	}
	if flags.Changed("desc") {
		p.Description = &editDesc
	}
	if flags.Changed("status") {
		status := store.TaskStatus(editStatus)
		if !status.Valid() {
			return p, fmt.Errorf("invalid status %q", editStatus)
		}
		p.Status = &status
	}
	if flags.Changed("priority") {
		priority := store.Priority(editPriority)
		p.Priority = &priority
	}
	if flags.Changed("assign") {
		p.AssignedTo = &editAssign
	}
	if flags.Changed("spent") {
		p.TimeSpent = &editSpent
	}
	if flags.Changed("start") {
		start, err := parseDate(editStart)
		if err != nil {
			return p, err
		}
		p.StartDate = start
	}
	if flags.Changed("end") {
		end, err := parseDate(editEnd)
		if err != nil {
			return p, err
		}
		p.EndDate = end
	}
	return p, nil
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
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
	task, err := sess.store.GetTask(ctx, args[0])
	if err != nil {
		return err
	}
	eng, err := sess.engine(ctx, task.ProjectID)
	if err != nil {
		return err
	}
	err = eng.DeleteTask(ctx, actor, task.ID)
	sess.printNotes()
	return err
}

func runTaskMove(cmd *cobra.Command, args []string) error {
	lane, err := board.ParseLane(args[1])
	if err != nil {
		return err
	}

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
	task, err := sess.store.GetTask(ctx, args[0])
	if err != nil {
		return err
	}
	eng, err := sess.engine(ctx, task.ProjectID)
	if err != nil {
		return err
	}
	if !eng.CanMutate(actor) {
		fmt.Printf("%sBoard is read-only for %s; nothing changed.%s\n", colorDim, actor, colorReset)
		return nil
	}

	drop, err := board.MoveTo(eng.Board(), task.ID, lane, taskMoveTo)
	if err != nil {
		return err
	}
	err = eng.HandleDrop(ctx, actor, drop)
	sess.printNotes()
	if err != nil {
		return err
	}

	b := eng.Board()
	_, idx, _ := b.Find(task.ID)
	fmt.Printf("Moved %q to %s, position %d of %d\n", task.Title, lane.Title(), idx+1, len(b.Lane(lane)))
	return nil
}
