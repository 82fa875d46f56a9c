package catalog_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/catalog"
)

func sampleBooks() []catalog.Book {
	return []catalog.Book{
		{BookID: "B1", Title: "X", Author: "A", Category: "Fic", Publisher: "P", Quantity: 3, AvailableQuantity: 1},
		{BookID: "SICP", Title: "Structure and Interpretation of Computer Programs", Author: "Abelson", Category: "Computer Science", Publisher: "MIT Press", Quantity: 2, AvailableQuantity: 0},
		{BookID: "DUNE", Title: "Dune", Author: "Frank Herbert", Category: "Science Fiction", Publisher: "Chilton", Quantity: 5, AvailableQuantity: 5},
	}
}

// fakeLister counts fetches and serves a canned response.
type fakeLister struct {
	books []catalog.Book
	err   error
	calls int
}

func (f *fakeLister) ListBooks(context.Context) (*api.BookList, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &api.BookList{TotalBooks: len(f.books), Books: f.books}, nil
}

// --- Filter ---

func TestFilter_Scenario(t *testing.T) {
	books := sampleBooks()[:1]

	got := catalog.Filter{Search: "x"}.Apply(books)
	if len(got) != 1 || got[0].BookID != "B1" {
		t.Errorf("search x = %v, want [B1]", ids(got))
	}
	got = catalog.Filter{Search: "y"}.Apply(books)
	if len(got) != 0 {
		t.Errorf("search y = %v, want []", ids(got))
	}
}

func TestFilter_SearchFields(t *testing.T) {
	books := sampleBooks()
	tests := []struct {
		q    string
		want string
	}{
		{"herbert", "DUNE"},        // author
		{"sicp", "SICP"},           // book id
		{"mit press", "SICP"},      // publisher
		{"INTERPRETATION", "SICP"}, // title, case-insensitive
	}
	for _, tt := range tests {
		got := catalog.Filter{Search: tt.q}.Apply(books)
		if len(got) != 1 || got[0].BookID != tt.want {
			t.Errorf("search %q = %v, want [%s]", tt.q, ids(got), tt.want)
		}
	}
}

func TestFilter_CategoryIsSubstring(t *testing.T) {
	got := catalog.Filter{Category: "science"}.Apply(sampleBooks())
	if strings.Join(ids(got), ",") != "SICP,DUNE" {
		t.Errorf("category science = %v", ids(got))
	}
}

func TestFilter_IsIntersection(t *testing.T) {
	books := sampleBooks()
	queries := []string{"", "a", "e", "dune", "x", "zzz"}
	cats := []string{"", "fic", "science", "computer", "none"}
	for _, q := range queries {
		for _, c := range cats {
			both := catalog.Filter{Search: q, Category: c}.Apply(books)
			bySearch := catalog.Filter{Search: q}.Apply(books)
			byCat := catalog.Filter{Category: c}.Apply(books)

			var want []string
			for _, id := range ids(bySearch) {
				if catalog.ByID(byCat, id) != nil {
					want = append(want, id)
				}
			}
			if strings.Join(ids(both), ",") != strings.Join(want, ",") {
				t.Errorf("Filter{%q,%q} = %v, want %v", q, c, ids(both), want)
			}
		}
	}
}

func TestFilter_EmptyMatchesAllInOrder(t *testing.T) {
	books := sampleBooks()
	got := catalog.Filter{}.Apply(books)
	if strings.Join(ids(got), ",") != "B1,SICP,DUNE" {
		t.Errorf("empty filter = %v", ids(got))
	}
	if !(catalog.Filter{}).Empty() {
		t.Error("zero Filter should be Empty")
	}
}

func TestFilter_DoesNotMutate(t *testing.T) {
	books := sampleBooks()
	_ = catalog.Filter{Search: "dune"}.Apply(books)
	if len(books) != 3 || books[0].BookID != "B1" {
		t.Error("Apply mutated its input")
	}
}

func TestByID(t *testing.T) {
	books := sampleBooks()
	if b := catalog.ByID(books, "DUNE"); b == nil || b.Title != "Dune" {
		t.Errorf("ByID(DUNE) = %v", b)
	}
	if b := catalog.ByID(books, "nope"); b != nil {
		t.Errorf("ByID(nope) = %v, want nil", b)
	}
}

func TestCategories(t *testing.T) {
	books := append(sampleBooks(), catalog.Book{BookID: "Z", Category: "fic"})
	got := catalog.Categories(books)
	if strings.Join(got, "|") != "Computer Science|Fic|Science Fiction" {
		t.Errorf("Categories = %v", got)
	}
}

func TestTotalQuantity(t *testing.T) {
	if got := catalog.TotalQuantity(sampleBooks()); got != 10 {
		t.Errorf("TotalQuantity = %d, want 10", got)
	}
	if got := catalog.TotalQuantity(nil); got != 0 {
		t.Errorf("TotalQuantity(nil) = %d", got)
	}
}

// --- View ---

func TestView_TotalIgnoresFilterAndFollowsRefetch(t *testing.T) {
	src := &fakeLister{books: sampleBooks()}
	v := catalog.NewView(src)
	if v.Status() != catalog.NotLoaded {
		t.Fatalf("initial Status = %v", v.Status())
	}
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if v.Total() != 10 {
		t.Errorf("Total = %d, want 10", v.Total())
	}

	v.SetFilter(catalog.Filter{Search: "dune"})
	if v.Total() != 10 {
		t.Errorf("Total with filter = %d, want 10", v.Total())
	}
	if len(v.Visible()) != 1 {
		t.Errorf("Visible = %v", ids(v.Visible()))
	}

	src.books = src.books[:1]
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if v.Total() != 3 {
		t.Errorf("Total after refetch = %d, want 3", v.Total())
	}
}

func TestView_FilterNeverFetches(t *testing.T) {
	src := &fakeLister{books: sampleBooks()}
	v := catalog.NewView(src)
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, q := range []string{"a", "b", "dune", ""} {
		v.SetFilter(catalog.Filter{Search: q})
		_ = v.Visible()
		_ = v.Status()
	}
	if src.calls != 1 {
		t.Errorf("ListBooks calls = %d, want 1", src.calls)
	}
}

func TestView_EmptyVersusNotLoaded(t *testing.T) {
	v := catalog.NewView(&fakeLister{books: sampleBooks()})
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	v.SetFilter(catalog.Filter{Search: "no such book"})
	if v.Status() != catalog.Empty {
		t.Errorf("Status = %v, want Empty", v.Status())
	}
	if v.Status().String() != "No books match." {
		t.Errorf("Empty message = %q", v.Status().String())
	}
	v.SetFilter(catalog.Filter{})
	if v.Status() != catalog.Populated {
		t.Errorf("Status = %v, want Populated", v.Status())
	}
}

func TestView_FailureKeepsPreviousSet(t *testing.T) {
	src := &fakeLister{books: sampleBooks()}
	v := catalog.NewView(src)
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	src.err = api.ErrNetwork
	err := v.Refresh(context.Background())
	if !errors.Is(err, api.ErrNetwork) {
		t.Fatalf("Refresh err = %v", err)
	}
	if v.Err() == "" {
		t.Error("Err() should carry the failure message")
	}
	if len(v.All()) != 3 || v.Total() != 10 {
		t.Errorf("previous set lost: %d books, total %d", len(v.All()), v.Total())
	}
	if src.calls != 2 {
		t.Errorf("calls = %d, failure must not retry", src.calls)
	}

	src.err = nil
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if v.Err() != "" {
		t.Errorf("Err() after success = %q", v.Err())
	}
}

func TestView_FailureBeforeLoad(t *testing.T) {
	v := catalog.NewView(&fakeLister{err: errors.New("boom")})
	if err := v.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if v.Status() != catalog.NotLoaded {
		t.Errorf("Status = %v, want NotLoaded", v.Status())
	}
}

func TestMarshal(t *testing.T) {
	year := 1965
	data, err := catalog.Marshal([]catalog.Book{{BookID: "DUNE", Title: "Dune", Author: "Herbert", PublicationYear: &year, Quantity: 1}})
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{"book_id: DUNE", "publication_year: 1965", "quantity: 1"} {
		if !strings.Contains(s, want) {
			t.Errorf("Marshal output missing %q:\n%s", want, s)
		}
	}
}

func ids(books []catalog.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.BookID)
	}
	return out
}
