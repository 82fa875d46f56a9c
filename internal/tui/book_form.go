package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blackwell-systems/libctl/internal/api"
)

const (
	bookFieldTitle = iota
	bookFieldAuthor
	bookFieldPublisher
	bookFieldCategory
	bookFieldYear
	bookFieldQuantity
	bookFieldAvailable
	bookFieldLocation
	bookFieldCover
)

// NewBookForm builds the add/edit form pre-filled from in.
func NewBookForm(heading, bookID string, in api.BookInput) Form {
	year := ""
	if in.PublicationYear > 0 {
		year = strconv.Itoa(in.PublicationYear)
	}
	return NewForm(heading, bookID, []FieldSpec{
		{Label: "Title", Placeholder: "Book title", Value: in.Title, Required: true},
		{Label: "Author", Placeholder: "Author name", Value: in.Author, CharLimit: 100, Required: true},
		{Label: "Publisher", Placeholder: "Publisher", Value: in.Publisher, CharLimit: 100},
		{Label: "Category", Placeholder: "Fiction, Science, ...", Value: in.Category, CharLimit: 100},
		{Label: "Year", Placeholder: "2024", Value: year, CharLimit: 4, Width: 8},
		{Label: "Quantity", Placeholder: "1", Value: strconv.Itoa(in.Quantity), CharLimit: 6, Width: 8, Required: true},
		{Label: "Available", Placeholder: "1", Value: strconv.Itoa(in.AvailableQuantity), CharLimit: 6, Width: 8, Required: true},
		{Label: "Location", Placeholder: "Shelf A3", Value: in.Location, CharLimit: 100},
		{Label: "Cover image", Placeholder: "path/to/cover.jpg (optional)", Value: in.CoverPath, CharLimit: 400},
	})
}

// ParseBookForm converts form values back into a BookInput and checks it.
func ParseBookForm(values []string) (api.BookInput, error) {
	if len(values) != bookFieldCover+1 {
		return api.BookInput{}, fmt.Errorf("book form has %d fields, want %d", len(values), bookFieldCover+1)
	}
	in := api.BookInput{
		Title:     strings.TrimSpace(values[bookFieldTitle]),
		Author:    strings.TrimSpace(values[bookFieldAuthor]),
		Publisher: strings.TrimSpace(values[bookFieldPublisher]),
		Category:  strings.TrimSpace(values[bookFieldCategory]),
		Location:  strings.TrimSpace(values[bookFieldLocation]),
		CoverPath: strings.TrimSpace(values[bookFieldCover]),
	}

	var err error
	if in.PublicationYear, err = optionalInt(values[bookFieldYear], "year"); err != nil {
		return in, err
	}
	if in.PublicationYear < 0 || in.PublicationYear > 9999 {
		return in, fmt.Errorf("invalid year (must be 0-9999)")
	}
	if in.Quantity, err = optionalInt(values[bookFieldQuantity], "quantity"); err != nil {
		return in, err
	}
	if in.AvailableQuantity, err = optionalInt(values[bookFieldAvailable], "available"); err != nil {
		return in, err
	}
	return in, in.Validate()
}

func optionalInt(s, name string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", name)
	}
	return n, nil
}

// RunBookForm shows the book form until the values parse or the user
// cancels.
func RunBookForm(heading, bookID string, in api.BookInput) (api.BookInput, error) {
	f := NewBookForm(heading, bookID, in)
	for {
		values, err := RunForm(f)
		if err != nil {
			return api.BookInput{}, err
		}
		out, err := ParseBookForm(values)
		if err == nil {
			return out, nil
		}
		f = NewBookForm(heading, bookID, out).Reopen(err.Error())
	}
}
