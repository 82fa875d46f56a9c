package app

import (
	"errors"
	"fmt"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/catalog"
	"github.com/blackwell-systems/libctl/internal/tui"
	"github.com/spf13/cobra"
)

// bookFlags are the writable book fields shared by add and edit.
type bookFlags struct {
	title     string
	author    string
	publisher string
	category  string
	year      int
	quantity  int
	available int
	location  string
	cover     string
}

func (f *bookFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Book title")
	cmd.Flags().StringVar(&f.author, "author", "", "Author")
	cmd.Flags().StringVar(&f.publisher, "publisher", "", "Publisher")
	cmd.Flags().StringVar(&f.category, "category", "", "Category")
	cmd.Flags().IntVar(&f.year, "year", 0, "Publication year")
	cmd.Flags().IntVar(&f.quantity, "quantity", 1, "Copies owned")
	cmd.Flags().IntVar(&f.available, "available", 0, "Copies on the shelf (default: quantity)")
	cmd.Flags().StringVar(&f.location, "location", "", "Shelf location")
	cmd.Flags().StringVar(&f.cover, "cover", "", "Cover image file to upload")
}

// apply copies every flag the user set onto in.
func (f bookFlags) apply(in api.BookInput, changed func(string) bool) api.BookInput {
	if changed("title") {
		in.Title = f.title
	}
	if changed("author") {
		in.Author = f.author
	}
	if changed("publisher") {
		in.Publisher = f.publisher
	}
	if changed("category") {
		in.Category = f.category
	}
	if changed("year") {
		in.PublicationYear = f.year
	}
	if changed("quantity") {
		in.Quantity = f.quantity
	}
	if changed("available") {
		in.AvailableQuantity = f.available
	}
	if changed("location") {
		in.Location = f.location
	}
	if changed("cover") {
		in.CoverPath = f.cover
	}
	return in
}

var bookFlagNames = []string{"title", "author", "publisher", "category", "year", "quantity", "available", "location", "cover"}

func anyChanged(changed func(string) bool, names []string) bool {
	for _, n := range names {
		if changed(n) {
			return true
		}
	}
	return false
}

func newBookAddCmd() *cobra.Command {
	var flags bookFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog (admin)",
		Long: `Add a book to the catalog. Without flags on a terminal, an interactive
form is shown.

Examples:
  libctl book add
  libctl book add --title "Dune" --author "Frank Herbert" --category Fiction --quantity 3
  libctl book add --title "Dune" --author "Frank Herbert" --cover ./dune.jpg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return err
			}
			changed := cmd.Flags().Changed

			in := flags.apply(api.BookInput{Quantity: 1}, changed)
			if !changed("available") {
				in.AvailableQuantity = in.Quantity
			}

			if !anyChanged(changed, bookFlagNames) && tui.ShouldUseTUI(cmd) {
				var err error
				in, err = tui.RunBookForm("Add Book", "new book", in)
				if errors.Is(err, tui.ErrCanceled) {
					warn("Canceled")
					return nil
				}
				if err != nil {
					return err
				}
			}
			if in.Title == "" || in.Author == "" {
				return fmt.Errorf("--title and --author are required")
			}

			mgr := catalog.NewManager(client, catalog.NewView(client))
			b, err := mgr.Create(cmd.Context(), sess, in)
			if b == nil {
				return err
			}
			fmt.Println()
			printBook(*b)
			fmt.Println()
			ok("Book added")
			if err != nil {
				warn("%v", err)
			} else {
				fmt.Printf("%d copies in the collection\n", mgr.View().Total())
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
