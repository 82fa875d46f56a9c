package app

import (
	"fmt"
	"io"

	"github.com/blackwell-systems/libctl/internal/catalog"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type bookRow struct {
	ID        string `json:"book_id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Category  string `json:"category,omitempty"`
	Quantity  int    `json:"quantity"`
	Available int    `json:"available_quantity"`
	Location  string `json:"location,omitempty"`
}

type booksOutput struct {
	Books         []bookRow `json:"books"`
	Shown         int       `json:"shown"`
	TotalQuantity int       `json:"total_quantity"`
}

func newBooksCmd() *cobra.Command {
	var (
		search   string
		category string
		jsonOut  bool
		yamlOut  bool
	)

	cmd := &cobra.Command{
		Use:   "books [query]",
		Short: "List and search the catalog",
		Long: `List the library catalog. The query matches title, author, book ID and
publisher (case-insensitive); --category narrows by category. Both must
match when given together.

The total shown is the number of copies across the whole collection,
not just the matching books.

Examples:
  libctl books
  libctl books "dune"
  libctl books --category science
  libctl books herbert --category fiction --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				search = args[0]
			}
			if jsonOut && yamlOut {
				return fmt.Errorf("--json and --yaml are mutually exclusive")
			}

			view := catalog.NewView(client)
			if err := view.Refresh(cmd.Context()); err != nil {
				return err
			}
			view.SetFilter(catalog.Filter{Search: search, Category: category})
			visible := view.Visible()

			out := cmd.OutOrStdout()
			switch {
			case jsonOut:
				return printJSON(out, collectBooks(visible, view.Total()))
			case yamlOut:
				data, err := catalog.Marshal(visible)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			if view.Status() == catalog.Empty {
				fmt.Fprintln(out, catalog.Empty.String())
				return nil
			}
			renderBooks(out, visible)
			fmt.Fprintf(out, "\n%d book(s) shown · %d copies in the collection\n", len(visible), view.Total())
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Match title, author, book ID or publisher")
	cmd.Flags().StringVar(&category, "category", "", "Filter by category")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&yamlOut, "yaml", false, "Output as YAML")
	return cmd
}

func collectBooks(books []catalog.Book, total int) booksOutput {
	rows := make([]bookRow, 0, len(books))
	for _, b := range books {
		rows = append(rows, bookRow{
			ID:        b.BookID,
			Title:     b.Title,
			Author:    b.Author,
			Category:  b.Category,
			Quantity:  b.Quantity,
			Available: b.AvailableQuantity,
			Location:  b.Location,
		})
	}
	return booksOutput{Books: rows, Shown: len(rows), TotalQuantity: total}
}

func renderBooks(w io.Writer, books []catalog.Book) {
	t := newTable(w, "ID", "Title", "Author", "Category", "Available", "Location")
	for _, b := range books {
		avail := fmt.Sprintf("%d/%d", b.AvailableQuantity, b.Quantity)
		if catalog.Available(b) {
			avail = color.GreenString(avail)
		} else {
			avail = color.RedString(avail)
		}
		t.AppendRow([]interface{}{b.BookID, b.Title, b.Author, orDash(b.Category), avail, orDash(b.Location)})
	}
	t.Render()
}
