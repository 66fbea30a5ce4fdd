package cli

import (
	"fmt"

	"github.com/imkarma/taskboard/internal/store"
	"github.com/spf13/cobra"
)

var userRole string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add [name] [email]",
	Short: "Register a user",
	Args:  cobra.ExactArgs(2),
	RunE:  runUserAdd,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE:  runUserList,
}

func init() {
	userAddCmd.Flags().StringVarP(&userRole, "role", "r", string(store.RoleMember), "Role: manager, member")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	role := store.Role(userRole)
	if role != store.RoleManager && role != store.RoleMember {
		return fmt.Errorf("invalid role %q", userRole)
	}

	ctx := cmd.Context()
	if existing, err := s.FindUserByEmail(ctx, args[1]); err == nil {
		return fmt.Errorf("email %s already belongs to %s", existing.Email, existing.ID)
	}

	u, err := s.CreateUser(ctx, args[0], args[1], role)
	if err != nil {
		return err
	}
	fmt.Printf("Created user %s <%s> [%s]\n", u.UserName, u.Email, u.Role)
	fmt.Printf("  ID: %s\n", u.ID)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	users, err := s.ListUsers(cmd.Context())
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}
	for _, u := range users {
		fmt.Printf("%-36s  %-8s %-20s %s\n", u.ID, u.Role, truncate(u.UserName, 20), u.Email)
	}
	return nil
}
