package catalog

import "github.com/blackwell-systems/libctl/internal/api"

// Book is one title in the library collection.
type Book = api.Book

// TotalQuantity sums the copies owned across books, borrowed or not.
func TotalQuantity(books []Book) int {
	total := 0
	for _, b := range books {
		total += b.Quantity
	}
	return total
}

// Available reports whether at least one copy can be borrowed.
func Available(b Book) bool {
	return b.AvailableQuantity > 0
}
