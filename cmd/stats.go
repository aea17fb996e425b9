package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/signspell/internal/types"
	"github.com/andresmejia3/signspell/internal/utils"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show quiz statistics for the current user and overall",
	Run: func(cmd *cobra.Command, args []string) {
		runStats(cmd.Context(), opts.User)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(ctx context.Context, user string) {
	stats, err := DB.ReadStats(ctx, user)
	if err != nil {
		utils.Die("Failed to read stats", err, nil)
	}
	overall, err := DB.OverallStats(ctx)
	if err != nil {
		utils.Die("Failed to read overall stats", err, nil)
	}

	if len(stats) == 0 {
		fmt.Printf("No stats found for %s.\n", user)
	} else {
		fmt.Printf("📊 Stats for %s\n", user)
		printStats(os.Stdout, stats)
	}
	fmt.Printf("\n🌍 All users: %d / %d correct (%s)\n", overall.Correct, overall.Total, percent(overall.Correct, overall.Total))
}

func printStats(out io.Writer, stats []types.StatRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "QUIZ\tCORRECT\tATTEMPTS\tACCURACY")
	fmt.Fprintln(w, "----\t-------\t--------\t--------")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", s.QuizType, s.Correct, s.Total, percent(s.Correct, s.Total))
	}
	w.Flush()
}

func percent(correct, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", 100*float64(correct)/float64(total))
}
