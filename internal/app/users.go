package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/profile"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newUsersCmd() *cobra.Command {
	var (
		search  string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "users [query]",
		Short: "List library accounts (admin)",
		Long: `List every account with its profile status and how many books it has
borrowed. The query matches username, full name and email.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				search = args[0]
			}
			users, err := client.ListUsers(cmd.Context(), sess.Credential())
			if err != nil {
				return explain("Failed to fetch users.", err)
			}
			users = filterUsers(users, search)

			if jsonOut {
				return printJSON(cmd.OutOrStdout(), users)
			}
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users match.")
				return nil
			}
			renderUsers(cmd.OutOrStdout(), users)
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Match username, full name or email")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func filterUsers(users []api.Profile, q string) []api.Profile {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return users
	}
	out := make([]api.Profile, 0, len(users))
	for _, u := range users {
		for _, field := range []string{u.Username, u.Fullname, u.Email} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, u)
				break
			}
		}
	}
	return out
}

func renderUsers(w io.Writer, users []api.Profile) {
	t := newTable(w, "ID", "Username", "Name", "Role", "Course", "Borrowed", "Profile")
	for _, u := range users {
		status := color.GreenString("complete")
		if !profile.IsComplete(u) {
			status = color.YellowString("incomplete")
		}
		t.AppendRow([]interface{}{u.ID, u.Username, orDash(u.Fullname), orDash(u.Role), orDash(u.Course), intOrDash(u.BorrowedCount), status})
	}
	t.Render()
}
