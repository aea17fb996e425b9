package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/andresmejia3/signspell/internal/utils"
	"github.com/spf13/cobra"
)

var (
	resetStats bool
	resetDB    bool
	resetDebug bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset system state (User Stats, Database, Debug Frames)",
	Long:  "Clears all data. By default, it resets everything. Use flags to clear specific components.",
	Run: func(cmd *cobra.Command, args []string) {
		// If no flags are set, default to clearing EVERYTHING
		if !resetStats && !resetDB && !resetDebug {
			resetStats = true
			resetDB = true
			resetDebug = true
		}

		reader := bufio.NewReader(os.Stdin)

		if resetStats {
			if confirm(reader, fmt.Sprintf("⚠️  Are you sure you want to zero all stats for '%s'?", opts.User)) {
				fmt.Println("🗑️  Clearing Stats...")
				if err := DB.ResetStats(cmd.Context(), opts.User); err != nil {
					utils.Die("Failed to reset stats", err, nil)
				}
			}
		}

		if resetDB {
			if confirm(reader, "⚠️  Are you sure you want to DROP all database tables?") {
				fmt.Println("🗑️  Clearing Database...")
				if err := DB.Reset(cmd.Context()); err != nil {
					utils.Die("Failed to reset database", err, nil)
				}
			}
		}

		if resetDebug {
			dir := opts.DebugFrames
			if dir == "" {
				dir = "debug_frames"
			}
			if confirm(reader, fmt.Sprintf("⚠️  Are you sure you want to delete all debug frames in %s?", dir)) {
				fmt.Println("🗑️  Clearing Debug Frames...")
				removeDir(dir)
			}
		}

		fmt.Println("✨ System Reset Complete.")
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetStats, "stats", false, "Zero the current user's stats")
	resetCmd.Flags().BoolVar(&resetDB, "tables", false, "Drop all PostgreSQL tables")
	resetCmd.Flags().BoolVar(&resetDebug, "debug", false, "Clear debug frames")
	rootCmd.AddCommand(resetCmd)
}

func confirm(r *bufio.Reader, prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

func removeDir(path string) {
	if err := os.RemoveAll(path); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to remove %s: %v\n", path, err)
	}
}
