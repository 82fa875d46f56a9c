package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

// Book is a catalog entry as served by the backend.
type Book struct {
	BookID            string `json:"book_id" yaml:"book_id"`
	Title             string `json:"title" yaml:"title"`
	Author            string `json:"author" yaml:"author"`
	Publisher         string `json:"publisher" yaml:"publisher,omitempty"`
	Category          string `json:"category" yaml:"category,omitempty"`
	PublicationYear   *int   `json:"publication_year" yaml:"publication_year,omitempty"`
	Quantity          int    `json:"quantity" yaml:"quantity"`
	AvailableQuantity int    `json:"available_quantity" yaml:"available_quantity"`
	Location          string `json:"location" yaml:"location,omitempty"`
	CoverImage        string `json:"cover_image,omitempty" yaml:"cover_image,omitempty"`
	DateAdded         string `json:"date_added,omitempty" yaml:"date_added,omitempty"`
}

// BookList is the books collection response.
type BookList struct {
	TotalBooks int    `json:"total_books"`
	Books      []Book `json:"books"`
}

// BookInput is the writable part of a Book. CoverPath, when set, names a
// local image uploaded as cover_image.
type BookInput struct {
	Title             string
	Author            string
	Publisher         string
	Category          string
	PublicationYear   int // 0 leaves the year empty
	Quantity          int
	AvailableQuantity int
	Location          string
	CoverPath         string
}

// InputFrom copies the writable fields of b.
func InputFrom(b Book) BookInput {
	in := BookInput{
		Title:             b.Title,
		Author:            b.Author,
		Publisher:         b.Publisher,
		Category:          b.Category,
		Quantity:          b.Quantity,
		AvailableQuantity: b.AvailableQuantity,
		Location:          b.Location,
	}
	if b.PublicationYear != nil {
		in.PublicationYear = *b.PublicationYear
	}
	return in
}

// Validate checks the quantity invariant before anything is sent.
func (in BookInput) Validate() error {
	if in.Title == "" {
		return fmt.Errorf("title is required")
	}
	if in.Author == "" {
		return fmt.Errorf("author is required")
	}
	if in.Quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}
	if in.AvailableQuantity < 0 || in.AvailableQuantity > in.Quantity {
		return fmt.Errorf("available quantity must be between 0 and %d", in.Quantity)
	}
	return nil
}

// encode writes the input as a multipart form.
func (in BookInput) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"title", in.Title},
		{"author", in.Author},
		{"publisher", in.Publisher},
		{"category", in.Category},
		{"quantity", strconv.Itoa(in.Quantity)},
		{"available_quantity", strconv.Itoa(in.AvailableQuantity)},
		{"location", in.Location},
	}
	if in.PublicationYear > 0 {
		fields = append(fields, [2]string{"publication_year", strconv.Itoa(in.PublicationYear)})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	if in.CoverPath != "" {
		f, err := os.Open(in.CoverPath)
		if err != nil {
			return nil, "", fmt.Errorf("opening cover image: %w", err)
		}
		defer f.Close()
		part, err := w.CreateFormFile("cover_image", filepath.Base(in.CoverPath))
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f); err != nil {
			return nil, "", fmt.Errorf("reading cover image: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// ListBooks fetches the whole collection. No credential is needed.
func (c *Client) ListBooks(ctx context.Context) (*BookList, error) {
	var list BookList
	if err := c.doJSON(ctx, http.MethodGet, c.url("library", "books"), "", nil, &list); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if list.Books == nil {
		list.Books = []Book{}
	}
	return &list, nil
}

// GetBook fetches one book. Returns ErrNotFound if absent.
func (c *Client) GetBook(ctx context.Context, bookID string) (*Book, error) {
	var b Book
	u := c.url("library", "books", url.PathEscape(bookID))
	if err := c.doJSON(ctx, http.MethodGet, u, "", nil, &b); err != nil {
		return nil, fmt.Errorf("get book %s: %w", bookID, err)
	}
	return &b, nil
}

// CreateBook adds a book to the catalog.
func (c *Client) CreateBook(ctx context.Context, token string, in BookInput) (*Book, error) {
	return c.writeBook(ctx, http.MethodPost, c.url("library", "books"), token, in)
}

// UpdateBook replaces a book's writable fields.
func (c *Client) UpdateBook(ctx context.Context, token, bookID string, in BookInput) (*Book, error) {
	return c.writeBook(ctx, http.MethodPut, c.url("library", "books", url.PathEscape(bookID)), token, in)
}

func (c *Client) writeBook(ctx context.Context, method, u, token string, in BookInput) (*Book, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	body, contentType, err := in.encode()
	if err != nil {
		return nil, err
	}
	var b Book
	if err := c.send(ctx, method, u, token, body, contentType, &b); err != nil {
		return nil, fmt.Errorf("save book %q: %w", in.Title, err)
	}
	return &b, nil
}

// DeleteBook permanently removes a book.
func (c *Client) DeleteBook(ctx context.Context, token, bookID string) error {
	if err := requireToken(token); err != nil {
		return err
	}
	u := c.url("library", "books", url.PathEscape(bookID))
	if err := c.doJSON(ctx, http.MethodDelete, u, token, nil, nil); err != nil {
		return fmt.Errorf("delete book %s: %w", bookID, err)
	}
	return nil
}
