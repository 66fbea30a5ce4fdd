package cli

import (
	"context"
	"fmt"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/spf13/cobra"
)

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Add or remove project members",
	Long:  "Changes who belongs to a project. Only the manager of an unfinished project can do this.",
}

var memberAddCmd = &cobra.Command{
	Use:   "add [project] [user-id or email]",
	Short: "Add a member to a project",
	Args:  cobra.ExactArgs(2),
	RunE:  runMemberAdd,
}

var memberRemoveCmd = &cobra.Command{
	Use:   "remove [project] [user-id or email]",
	Short: "Remove a member from a project",
	Args:  cobra.ExactArgs(2),
	RunE:  runMemberRemove,
}

func init() {
	memberCmd.AddCommand(memberAddCmd)
	memberCmd.AddCommand(memberRemoveCmd)
}

func runMemberAdd(cmd *cobra.Command, args []string) error {
	return changeMembers(cmd.Context(), args[0], args[1], true)
}

func runMemberRemove(cmd *cobra.Command, args []string) error {
	return changeMembers(cmd.Context(), args[0], args[1], false)
}

func changeMembers(ctx context.Context, projectID, who string, add bool) error {
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	actor, err := sess.actor()
	if err != nil {
		return err
	}
	eng, err := sess.engine(ctx, projectID)
	if err != nil {
		return err
	}
	if !eng.CanMutate(actor) {
		return board.ErrForbidden
	}

	userID := who
	if u, err := sess.store.FindUserByEmail(ctx, who); err == nil {
		userID = u.ID
	} else if _, err := sess.store.GetUser(ctx, who); err != nil {
		return fmt.Errorf("unknown user %s: %w", who, err)
	}

	if add {
		err = sess.store.AddMember(ctx, projectID, userID)
	} else {
		err = sess.store.RemoveMember(ctx, projectID, userID)
	}
	if err != nil {
		return err
	}
	if err := eng.Refresh(ctx); err != nil {
		return err
	}

	verb := "Added"
	if !add {
		verb = "Removed"
	}
	fmt.Printf("%s %s (%d members)\n", verb, userID, len(eng.Project().Members))
	return nil
}
