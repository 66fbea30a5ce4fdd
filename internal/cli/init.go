package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/imkarma/taskboard/internal/config"
	"github.com/imkarma/taskboard/internal/store"
	"github.com/spf13/cobra"
)

var (
	initUserName string
	initEmail    string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize taskboard in the current directory",
	Long: "Creates a .taskboard/ directory with default config and database.\n" +
		"With --name and --email a manager account is created and set as the actor.",
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initUserName, "name", "", "User name of the first account")
	initCmd.Flags().StringVar(&initEmail, "email", "", "Email of the first account")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := workspaceDirName

	// Check if already initialized.
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("taskboard already initialized in this directory (%s/ exists)", dir)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	cfg := config.DefaultConfig()

	// Create database by opening store (migration runs automatically).
	s, err := openStore(filepath.Join(dir, cfg.Database))
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	defer s.Close()

	if initUserName != "" || initEmail != "" {
		u, err := s.CreateUser(cmd.Context(), initUserName, initEmail, store.RoleManager)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		cfg.Actor = u.ID
		fmt.Printf("Created manager %s (%s)\n", u.UserName, u.ID)
	}

	if err := config.Save(filepath.Join(dir, "config.yaml"), cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Initialized taskboard in %s/\n", dir)
	fmt.Println("")
	fmt.Println("Next steps:")
	if cfg.Actor == "" {
		fmt.Println("  1. Run: taskboard user add <name> <email> --role manager")
		fmt.Println("     and put the ID into .taskboard/config.yaml as actor")
	} else {
		fmt.Println("  1. Invite people: taskboard user add <name> <email>")
	}
	fmt.Println("  2. Run: taskboard project create \"project name\"")
	fmt.Println("  3. Run: taskboard board <project-id>")

	return nil
}
