package app

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/borrow"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const returnQuestion = "Are you sure this book has been returned?"

func newRecordsCmd() *cobra.Command {
	var (
		search  string
		status  string
		mine    bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "records [query]",
		Short: "List borrowing records",
		Long: `List borrowing records. Admins see every record; --mine shows only
your own. The query matches book title and borrower (case-insensitive);
--status keeps only returned or not_returned records.

Examples:
  libctl records
  libctl records --status not_returned
  libctl records alice --status returned --json
  libctl records --mine`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				search = args[0]
			}
			st, err := borrow.ParseReturnStatus(status)
			if err != nil {
				return err
			}

			var opts []borrow.RecordsOption
			if mine {
				opts = append(opts, borrow.OwnRecords())
			}
			recs := borrow.NewRecords(client, sess, guard, opts...)
			if err := recs.Refresh(cmd.Context()); err != nil {
				return explain(recs.Err(), err)
			}
			recs.SetFilter(borrow.RecordFilter{Search: search, Status: st})
			visible := recs.Visible()

			out := cmd.OutOrStdout()
			if jsonOut {
				return printJSON(out, map[string]interface{}{
					"records": visible,
					"shown":   len(visible),
					"total":   recs.Total(),
				})
			}
			if len(visible) == 0 {
				fmt.Fprintln(out, "No borrowing records match.")
				return nil
			}
			renderRecords(out, visible)
			fmt.Fprintf(out, "\n%d of %d record(s)\n", len(visible), recs.Total())
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Match book title or borrower")
	cmd.Flags().StringVar(&status, "status", "all", "all, returned or not_returned")
	cmd.Flags().BoolVar(&mine, "mine", false, "Only your own records")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func renderRecords(w io.Writer, recs []api.BorrowingRecord) {
	t := newTable(w, "ID", "Book", "Title", "Borrower", "Borrowed", "Returned")
	for _, r := range recs {
		returned := color.YellowString("out")
		if r.IsReturned {
			returned = color.GreenString("yes")
			if r.ReturnDate != nil {
				returned = color.GreenString(*r.ReturnDate)
			}
		}
		t.AppendRow([]interface{}{r.ID, r.Book, r.BookTitle, r.User, orDash(r.BorrowDate), returned})
	}
	t.Render()
}

func newReturnCmd() *cobra.Command {
	var skipConfirm bool

	cmd := &cobra.Command{
		Use:   "return <record-id>",
		Short: "Mark a borrowed book as returned (admin)",
		Long: `Mark a borrowing record as returned. The book's copy goes back on the
shelf. You are asked to confirm unless --yes is given.`,
		Example: `  libctl return 31
  libctl return 31 --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid record id %q", args[0])
			}

			recs := borrow.NewRecords(client, sess, guard)
			if err := recs.Refresh(cmd.Context()); err != nil {
				return explain(recs.Err(), err)
			}

			ask := func(rec api.BorrowingRecord) bool {
				if skipConfirm {
					return true
				}
				printField("record", strconv.FormatInt(rec.ID, 10))
				printField("book", fmt.Sprintf("%s (%s)", rec.BookTitle, rec.Book))
				printField("borrower", rec.User)
				printField("borrowed", orDash(rec.BorrowDate))
				return confirm(cmd.InOrStdin(), cmd.OutOrStdout(), returnQuestion)
			}

			err = recs.MarkReturned(cmd.Context(), id, ask)
			switch {
			case errors.Is(err, borrow.ErrNotConfirmed):
				warn("Canceled")
				return nil
			case errors.Is(err, borrow.ErrAlreadyReturned):
				warn("%s", borrow.ReturnMessage(err))
				return nil
			case errors.Is(err, borrow.ErrStale):
				ok("Record %d marked returned", id)
				warn("%v", err)
				return nil
			case errors.Is(err, api.ErrNotFound):
				return fmt.Errorf("no borrowing record %d", id)
			case err != nil:
				return explain(borrow.ReturnMessage(err), err)
			}
			ok("Record %d marked returned", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipConfirm, "yes", false, "Skip confirmation prompt")
	return cmd
}
