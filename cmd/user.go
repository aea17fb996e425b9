package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/andresmejia3/signspell/internal/utils"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user profiles",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a profile (prompts for a password)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		password := readPassword(bufio.NewReader(os.Stdin))
		if err := DB.AddUser(cmd.Context(), args[0], password); err != nil {
			utils.Die("Failed to add user", err, nil)
		}
		fmt.Printf("✅ Profile '%s' created\n", args[0])
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete a profile and its stats",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !confirm(bufio.NewReader(os.Stdin), fmt.Sprintf("⚠️  Delete profile '%s' and all of its stats?", args[0])) {
			return
		}
		deleted, err := DB.DeleteUser(cmd.Context(), args[0])
		if err != nil {
			utils.Die("Failed to delete user", err, nil)
		}
		if !deleted {
			fmt.Printf("No profile named '%s'.\n", args[0])
			return
		}
		fmt.Printf("🗑️  Profile '%s' deleted\n", args[0])
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	Run: func(cmd *cobra.Command, args []string) {
		runUserList(cmd.Context())
	},
}

var userLoginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Check a profile's password",
	Long:  "Validates the password and prints the export line that makes the profile the default for later commands.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		password := readPassword(bufio.NewReader(os.Stdin))
		ok, err := DB.ValidateUser(cmd.Context(), args[0], password)
		if err != nil {
			utils.Die("Failed to validate user", err, nil)
		}
		if !ok {
			utils.Die("Login failed", fmt.Errorf("wrong username or password"), nil)
		}
		fmt.Fprintf(os.Stderr, "✅ Logged in as %s\n", args[0])
		fmt.Printf("export SIGNSPELL_USER=%s\n", args[0])
	},
}

func init() {
	userCmd.AddCommand(userAddCmd, userDeleteCmd, userListCmd, userLoginCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserList(ctx context.Context) {
	users, err := DB.ListUsers(ctx)
	if err != nil {
		utils.Die("Failed to list users", err, nil)
	}

	if len(users) == 0 {
		fmt.Println("No profiles found in database.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tCREATED")
	fmt.Fprintln(w, "--------\t-------")

	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\n", u.Username, u.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
}

// readPassword reads one line from r. Input is echoed; use a pipe to keep it off screen.
func readPassword(r *bufio.Reader) string {
	fmt.Fprint(os.Stderr, "🔑 Password: ")
	line, _ := r.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
