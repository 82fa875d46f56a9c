package app

import (
	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/catalog"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newBookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Show or maintain a single book",
	}
	cmd.AddCommand(
		newBookShowCmd(),
		newBookAddCmd(),
		newBookEditCmd(),
		newBookDeleteCmd(),
	)
	return cmd
}

func newBookShowCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <book-id>",
		Short: "Show a book's details and availability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := client.GetBook(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), b)
			}
			printBook(*b)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func printBook(b api.Book) {
	header("Book: %s", b.BookID)
	printField("title", b.Title)
	printField("author", b.Author)
	if b.Publisher != "" {
		printField("publisher", b.Publisher)
	}
	if b.Category != "" {
		printField("category", b.Category)
	}
	printField("year", intOrDash(b.PublicationYear))
	printField("location", orDash(b.Location))

	avail := color.GreenString("%d of %d available", b.AvailableQuantity, b.Quantity)
	if !catalog.Available(b) {
		avail = color.RedString("none of %d available", b.Quantity)
	}
	printField("copies", avail)
	if b.DateAdded != "" {
		printField("added", b.DateAdded)
	}
	if b.CoverImage != "" {
		printField("cover", b.CoverImage)
	}
}
