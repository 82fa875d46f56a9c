package app

import (
	"context"
	"fmt"

	"github.com/blackwell-systems/libctl/internal/borrow"
	"github.com/blackwell-systems/libctl/internal/catalog"
	"github.com/blackwell-systems/libctl/internal/profile"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type statusOutput struct {
	Backend       string `json:"backend"`
	User          string `json:"user"`
	Admin         bool   `json:"admin"`
	Books         int    `json:"books"`
	Categories    int    `json:"categories"`
	TotalCopies   int    `json:"total_copies"`
	OnShelf       int    `json:"on_shelf"`
	Pending       *int   `json:"pending_requests,omitempty"`
	OpenRecords   *int   `json:"open_records,omitempty"`
	ProfileStatus string `json:"profile,omitempty"`

	problems []string
}

func newStatusCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show library and account statistics",
		Long: `Show an overview: catalog size and copies, your session, and for admins
the pending requests and open borrowing records.

Examples:
  libctl status
  libctl status --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := collectStatus(cmd.Context())
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), result)
			}
			printStatusText(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// collectStatus gathers what it can; a failing section is noted and
// skipped rather than failing the whole command.
func collectStatus(ctx context.Context) statusOutput {
	result := statusOutput{
		Backend: client.BaseURL(),
		User:    sess.String(),
		Admin:   sess.Admin,
	}

	view := catalog.NewView(client)
	if err := view.Refresh(ctx); err != nil {
		result.problems = append(result.problems, fmt.Sprintf("catalog: %v", err))
	} else {
		all := view.All()
		result.Books = len(all)
		result.Categories = len(catalog.Categories(all))
		result.TotalCopies = view.Total()
		for _, b := range all {
			result.OnShelf += b.AvailableQuantity
		}
	}

	if !sess.Authenticated() {
		return result
	}

	if sess.Admin {
		rev := borrow.NewReviewer(client, sess, guard)
		if err := rev.Refresh(ctx); err != nil {
			result.problems = append(result.problems, fmt.Sprintf("requests: %v", err))
		} else {
			n := len(rev.Pending())
			result.Pending = &n
		}
	}

	var opts []borrow.RecordsOption
	if !sess.Admin {
		opts = append(opts, borrow.OwnRecords())
	}
	recs := borrow.NewRecords(client, sess, guard, opts...)
	if err := recs.Refresh(ctx); err != nil {
		result.problems = append(result.problems, fmt.Sprintf("records: %v", err))
	} else {
		recs.SetFilter(borrow.RecordFilter{Status: borrow.StatusNotReturned})
		n := len(recs.Visible())
		result.OpenRecords = &n
	}

	if !sess.Admin {
		gate := profile.NewGate(client, sess, guard)
		if state, err := gate.Load(ctx); err != nil {
			result.problems = append(result.problems, fmt.Sprintf("profile: %v", err))
		} else {
			result.ProfileStatus = state.String()
		}
	}
	return result
}

func printStatusText(r statusOutput) {
	header("Library")
	printField("backend", r.Backend)
	printField("books", fmt.Sprintf("%d in %d categories", r.Books, r.Categories))
	printField("copies", fmt.Sprintf("%d owned, %d on the shelf", r.TotalCopies, r.OnShelf))
	fmt.Println()

	header("Account")
	printField("user", r.User)
	if r.Pending != nil {
		printField("pending", fmt.Sprintf("%d request(s)", *r.Pending))
	}
	if r.OpenRecords != nil {
		printField("borrowed", fmt.Sprintf("%d book(s) not yet returned", *r.OpenRecords))
	}
	if r.ProfileStatus != "" {
		status := color.GreenString(r.ProfileStatus)
		if r.ProfileStatus != profile.Complete.String() {
			status = color.YellowString(r.ProfileStatus)
		}
		printField("profile", status)
	}

	for _, p := range r.problems {
		warn("%s", p)
	}
	if r.ProfileStatus == profile.Incomplete.String() {
		fmt.Printf("\n%s Run 'libctl profile complete' before borrowing\n", color.CyanString("hint:"))
	}
}
