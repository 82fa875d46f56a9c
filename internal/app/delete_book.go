package app

import (
	"errors"
	"fmt"

	"github.com/blackwell-systems/libctl/internal/catalog"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newBookDeleteCmd() *cobra.Command {
	var skipConfirm bool

	cmd := &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Remove a book from the catalog (admin)",
		Long: `Remove a book from the catalog.

This action is DESTRUCTIVE and cannot be undone from libctl.

Examples:
  libctl book delete BK0001
  libctl book delete BK0001 --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return err
			}
			bookID := args[0]

			b, err := client.GetBook(cmd.Context(), bookID)
			if err != nil {
				return err
			}

			if !skipConfirm {
				fmt.Println()
				fmt.Println(color.RedString("⚠ WARNING: This will permanently delete the book"))
				printField("id", b.BookID)
				printField("title", b.Title)
				printField("copies", fmt.Sprintf("%d (%d on the shelf)", b.Quantity, b.AvailableQuantity))
				fmt.Println()
				if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Delete this book?") {
					warn("Canceled")
					return nil
				}
			}

			mgr := catalog.NewManager(client, catalog.NewView(client))
			if err := mgr.Delete(cmd.Context(), sess, bookID); err != nil {
				if !errors.Is(err, catalog.ErrReloadFailed) {
					return explain("Failed to delete book.", err)
				}
				warn("%v", err)
			}
			ok("Deleted %s (%s)", b.BookID, b.Title)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipConfirm, "yes", false, "Skip confirmation prompt")
	return cmd
}
