package catalog

import (
	"sort"
	"strings"
)

// Filter applies all non-empty criteria and returns matching books.
type Filter struct {
	Search   string // matches title, author, book id or publisher
	Category string // substring of the category
}

// Apply returns the subset of books matching all non-empty filter fields,
// in their original order.
func (f Filter) Apply(books []Book) []Book {
	out := make([]Book, 0, len(books))
	for _, b := range books {
		if f.Search != "" && !matchesSearch(b, f.Search) {
			continue
		}
		if f.Category != "" && !contains(b.Category, f.Category) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Empty reports whether the filter has no criteria.
func (f Filter) Empty() bool {
	return f.Search == "" && f.Category == ""
}

// ByID returns the first book with the given ID, or nil.
func ByID(books []Book, id string) *Book {
	for i := range books {
		if books[i].BookID == id {
			return &books[i]
		}
	}
	return nil
}

// Categories returns the distinct non-empty categories, sorted.
func Categories(books []Book) []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range books {
		c := strings.TrimSpace(b.Category)
		if c == "" || seen[strings.ToLower(c)] {
			continue
		}
		seen[strings.ToLower(c)] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func matchesSearch(b Book, q string) bool {
	return contains(b.Title, q) ||
		contains(b.Author, q) ||
		contains(b.BookID, q) ||
		contains(b.Publisher, q)
}

func contains(field, q string) bool {
	return strings.Contains(strings.ToLower(field), strings.ToLower(q))
}
