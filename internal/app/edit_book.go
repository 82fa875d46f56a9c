package app

import (
	"errors"
	"fmt"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/catalog"
	"github.com/blackwell-systems/libctl/internal/tui"
	"github.com/spf13/cobra"
)

func newBookEditCmd() *cobra.Command {
	var flags bookFlags

	cmd := &cobra.Command{
		Use:   "edit <book-id>",
		Short: "Update a book's details (admin)",
		Long: `Update a book's details. Only the flags you pass are changed; without
flags on a terminal, an edit form pre-filled with the current values is
shown.

Examples:
  libctl book edit BK0001
  libctl book edit BK0001 --quantity 5 --available 4
  libctl book edit BK0001 --location "Shelf B2"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return err
			}
			bookID := args[0]

			current, err := client.GetBook(cmd.Context(), bookID)
			if err != nil {
				return err
			}

			changed := cmd.Flags().Changed
			in := flags.apply(api.InputFrom(*current), changed)

			if !anyChanged(changed, bookFlagNames) {
				if !tui.ShouldUseTUI(cmd) {
					return fmt.Errorf("nothing to change; pass at least one field flag")
				}
				in, err = tui.RunBookForm("Edit Book", bookID, in)
				if errors.Is(err, tui.ErrCanceled) {
					warn("Canceled")
					return nil
				}
				if err != nil {
					return err
				}
			}

			mgr := catalog.NewManager(client, catalog.NewView(client))
			b, err := mgr.Update(cmd.Context(), sess, bookID, in)
			if b == nil {
				return err
			}
			fmt.Println()
			printBook(*b)
			fmt.Println()
			ok("Book updated successfully!")
			if err != nil {
				warn("%v", err)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
