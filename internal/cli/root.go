package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var flagActor string

var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Kanban boards for small teams",
	Long: "taskboard keeps projects, their members and a three-lane kanban board of tasks.\n" +
		"The project manager arranges the board; everyone else can look.",
	SilenceUsage: true,
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "User ID to act as (overrides config actor)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(memberCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(milestoneCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(uiCmd)
}
