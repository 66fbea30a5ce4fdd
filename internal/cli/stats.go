package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats [project]",
	Short: "Quick task counts for a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	eng, err := sess.engine(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	st := eng.Stats()
	if st.Total == 0 {
		fmt.Printf("No tasks. Run: %staskboard task create %s \"title\"%s\n", colorCyan, args[0], colorReset)
		return nil
	}

	fmt.Printf("%sTasks: %d total, %d%% done%s\n", colorBold, st.Total, st.Progress, colorReset)
	fmt.Printf("  %-14s %s%d%s\n", "todo:", colorWhite, st.Todo, colorReset)
	fmt.Printf("  %-14s %s%d%s\n", "in progress:", colorBlue, st.InProgress, colorReset)
	fmt.Printf("  %-14s %s%d%s\n", "done:", colorGreen, st.Done, colorReset)
	if st.Late > 0 {
		fmt.Printf("  %-14s %s%d%s\n", "late:", colorRed, st.Late, colorReset)
	}
	return nil
}
