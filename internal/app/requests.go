package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/borrow"
	"github.com/blackwell-systems/libctl/internal/profile"
	"github.com/spf13/cobra"
)

func newRequestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "request <book-id>",
		Short: "Ask to borrow a book",
		Long: `Send a borrow request for a book. An admin reviews it; once accepted
it shows up under 'libctl records --mine'.

Your profile must be complete before you can borrow.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return explain(borrow.MsgLoginRequired, err)
			}
			if err := requireCompleteProfile(cmd.Context()); err != nil {
				return err
			}

			bookID := args[0]
			sub := borrow.NewSubmitter(client, guard)
			req, err := sub.Submit(cmd.Context(), sess, bookID)
			if err != nil {
				return explain(borrow.SubmitMessage(err), err)
			}
			ok(borrow.MsgSubmitted)
			printField("request", strconv.FormatInt(req.ID, 10))
			printField("book", bookID)
			return nil
		},
	}
}

// requireCompleteProfile blocks non-admin accounts whose profile is not
// complete yet.
func requireCompleteProfile(ctx context.Context) error {
	if sess.Admin {
		return nil
	}
	gate := profile.NewGate(client, sess, guard)
	state, err := gate.Load(ctx)
	if err != nil {
		return explain(gate.Err(), err)
	}
	if state != profile.Complete {
		return fmt.Errorf("your profile is incomplete (%s); run 'libctl profile complete' first",
			strings.Join(profile.Missing(gate.Profile()), ", "))
	}
	return nil
}

func newRequestsCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "requests",
		Short: "List pending borrow requests (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rev := borrow.NewReviewer(client, sess, guard)
			if err := rev.Refresh(cmd.Context()); err != nil {
				return explain(borrow.ReviewMessage(err), err)
			}
			pending := rev.Pending()
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), pending)
			}
			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending requests.")
				return nil
			}
			renderRequests(cmd.OutOrStdout(), pending)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func renderRequests(w io.Writer, reqs []api.BorrowRequest) {
	t := newTable(w, "ID", "User", "Book", "Title", "Available", "Requested")
	for _, r := range reqs {
		t.AppendRow([]interface{}{
			r.ID,
			r.User,
			r.BookID(),
			orDash(r.BookDetail.Title),
			fmt.Sprintf("%d/%d", r.BookDetail.AvailableQuantity, r.BookDetail.Quantity),
			orDash(r.RequestDate),
		})
	}
	t.Render()
}

func newAcceptCmd() *cobra.Command {
	var (
		noRecord   bool
		recordOnly bool
		bookID     string
	)

	cmd := &cobra.Command{
		Use:   "accept <request-id>",
		Short: "Accept a borrow request and create its borrowing record (admin)",
		Long: `Accept a pending borrow request. The request leaves the pending list and
a borrowing record is created for its book, which takes one copy off the
shelf.

If the request was accepted but the record could not be created, rerun
with --record-only --book <book-id> to create just the record.

Use --no-record against backends that create the record themselves when
a request is accepted.`,
		Example: `  libctl accept 12
  libctl accept 12 --record-only --book BK0003
  libctl accept 12 --no-record`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid request id %q", args[0])
			}
			if noRecord && recordOnly {
				return fmt.Errorf("--no-record and --record-only are mutually exclusive")
			}

			var opts []borrow.ReviewerOption
			if noRecord {
				opts = append(opts, borrow.WithoutRecord())
			}
			rev := borrow.NewReviewer(client, sess, guard, opts...)

			if recordOnly {
				if bookID == "" {
					return fmt.Errorf("--record-only needs --book")
				}
				rec, err := rev.Materialize(cmd.Context(), id, bookID)
				if err != nil {
					return explain(borrow.ReviewMessage(err), err)
				}
				ok("Borrowing record %d created for request %d", rec.ID, id)
				return nil
			}

			// Load the list so the book id is known even if the accept
			// response omits it.
			if err := rev.Refresh(cmd.Context()); err != nil {
				return explain(borrow.ReviewMessage(err), err)
			}
			res, err := rev.Accept(cmd.Context(), id)
			var merr *borrow.MaterializeError
			switch {
			case errors.As(err, &merr):
				warn("%s", borrow.ReviewMessage(err))
				book := merr.BookID
				if book == "" {
					book = "<book-id>"
				}
				return fmt.Errorf("%w\n  retry with: libctl accept %d --record-only --book %s", err, id, book)
			case err != nil:
				return explain(borrow.ReviewMessage(err), err)
			}

			ok("Request %d accepted", id)
			if res.Record != nil {
				printField("record", strconv.FormatInt(res.Record.ID, 10))
				printField("book", res.Record.Book)
				printField("borrower", res.Record.User)
			}
			fmt.Printf("%d request(s) still pending\n", len(rev.Pending()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Only accept; do not create the borrowing record")
	cmd.Flags().BoolVar(&recordOnly, "record-only", false, "Only create the borrowing record for an already accepted request")
	cmd.Flags().StringVar(&bookID, "book", "", "Book id for --record-only")
	return cmd
}
