package tui

import (
	"strings"
	"testing"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/profile"
	"github.com/blackwell-systems/libctl/internal/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

func press(f Form, keys ...string) Form {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		f, _ = f.Update(msg)
	}
	return f
}

func twoFieldForm() Form {
	return NewForm("Test", "", []FieldSpec{
		{Label: "Name", Required: true},
		{Label: "Kind", Options: []string{"a", "b", "c"}},
	})
}

func TestForm_RequiredFieldBlocksSubmit(t *testing.T) {
	f := press(twoFieldForm(), "enter")
	if f.Submitted() || f.confirming {
		t.Fatal("form with an empty required field went to confirm")
	}
	if f.err != "Name is required" {
		t.Errorf("err = %q, want %q", f.err, "Name is required")
	}
}

func TestForm_ConfirmThenSubmit(t *testing.T) {
	f := press(twoFieldForm(), "B", "o", "b", "enter")
	if !f.confirming {
		t.Fatal("expected confirm step after enter")
	}
	f = press(f, "n")
	if f.confirming || f.Submitted() {
		t.Fatal("n should return to editing")
	}
	f = press(f, "enter", "y")
	if !f.Submitted() {
		t.Fatal("y on the confirm step should submit")
	}
	if got := f.Values(); got[0] != "Bob" || got[1] != "a" {
		t.Errorf("Values() = %v, want [Bob a]", got)
	}
}

func TestForm_EscCancels(t *testing.T) {
	f := press(twoFieldForm(), "esc")
	if !f.Canceled() {
		t.Fatal("esc should cancel")
	}
	// A finished form ignores further input.
	f = press(f, "x")
	if f.Values()[0] != "" {
		t.Errorf("canceled form accepted input: %q", f.Values()[0])
	}
}

func TestForm_EscOnConfirmReturnsToEditing(t *testing.T) {
	f := press(twoFieldForm(), "x", "enter", "esc")
	if f.Canceled() || f.confirming {
		t.Fatal("esc on the confirm step should only leave the confirm step")
	}
}

func TestForm_OptionsCycle(t *testing.T) {
	f := press(twoFieldForm(), "tab", "right", "right")
	if got := f.Values()[1]; got != "c" {
		t.Errorf("after two rights = %q, want c", got)
	}
	f = press(f, "right")
	if got := f.Values()[1]; got != "a" {
		t.Errorf("options should wrap, got %q", got)
	}
	f = press(f, "left")
	if got := f.Values()[1]; got != "c" {
		t.Errorf("left should wrap backwards, got %q", got)
	}
	// Typing into a choice is ignored.
	f = press(f, "z")
	if got := f.Values()[1]; got != "c" {
		t.Errorf("typing changed a choice to %q", got)
	}
}

func TestForm_ReopenShowsError(t *testing.T) {
	f := press(twoFieldForm(), "x", "enter", "y").Reopen("server said no")
	if f.Submitted() || f.Canceled() {
		t.Fatal("Reopen should return the form to editing")
	}
	if !strings.Contains(f.View(), "server said no") {
		t.Error("reopened form does not show the error")
	}
}

func TestParseBookForm(t *testing.T) {
	values := []string{" Dune ", "Frank Herbert", "Chilton", "Science Fiction", "1965", "3", "2", "Shelf A3", ""}
	in, err := ParseBookForm(values)
	if err != nil {
		t.Fatalf("ParseBookForm: %v", err)
	}
	if in.Title != "Dune" || in.PublicationYear != 1965 || in.Quantity != 3 || in.AvailableQuantity != 2 {
		t.Errorf("got %+v", in)
	}

	bad := []struct {
		name   string
		modify func([]string)
	}{
		{"year not a number", func(v []string) { v[bookFieldYear] = "19x5" }},
		{"available above quantity", func(v []string) { v[bookFieldAvailable] = "4" }},
		{"missing author", func(v []string) { v[bookFieldAuthor] = "  " }},
		{"negative quantity", func(v []string) { v[bookFieldQuantity] = "-1"; v[bookFieldAvailable] = "0" }},
	}
	for _, tc := range bad {
		v := append([]string(nil), values...)
		tc.modify(v)
		if _, err := ParseBookForm(v); err == nil {
			t.Errorf("%s: expected an error", tc.name)
		}
	}

	if _, err := ParseBookForm(values[:3]); err == nil {
		t.Error("short value list should be rejected")
	}
}

func TestBookFormRoundTrip(t *testing.T) {
	in := api.BookInput{Title: "SICP", Author: "Abelson", Quantity: 2, AvailableQuantity: 1}
	got, err := ParseBookForm(NewBookForm("Edit Book", "SICP", in).Values())
	if err != nil {
		t.Fatalf("ParseBookForm: %v", err)
	}
	if got != in {
		t.Errorf("round trip = %+v, want %+v", got, in)
	}
}

func TestParseProfileForm(t *testing.T) {
	form := NewProfileForm(profile.Fields{
		Fullname:  "Juan Dela Cruz",
		Role:      profile.RoleStudent,
		Course:    profile.CourseBSIT,
		Address:   "Manila",
		Birthdate: "2001-02-03",
	}, nil)
	fields, err := ParseProfileForm(form.Values())
	if err != nil {
		t.Fatalf("ParseProfileForm: %v", err)
	}
	if fields.Fullname != "Juan Dela Cruz" || fields.Course != profile.CourseBSIT || fields.Age != 0 {
		t.Errorf("got %+v", fields)
	}

	values := form.Values()
	values[profileFieldBirthdate] = "03/02/2001"
	if _, err := ParseProfileForm(values); err == nil {
		t.Error("a birthdate that is not YYYY-MM-DD should be rejected")
	}

	values = form.Values()
	values[profileFieldAge] = "old"
	if _, err := ParseProfileForm(values); err == nil {
		t.Error("a non-numeric age should be rejected")
	}
}

func TestNewProfileForm_MissingNote(t *testing.T) {
	view := NewProfileForm(profile.DefaultFields(), []string{"fullname", "address"}).View()
	if !strings.Contains(view, "Missing: fullname, address") {
		t.Error("missing fields are not listed")
	}
}

func menuKeys(sess session.Session) []string {
	var out []string
	for _, item := range GetMenuItems(sess) {
		out = append(out, item.Key)
	}
	return out
}

func TestGetMenuItems(t *testing.T) {
	cases := []struct {
		name string
		sess session.Session
		want string
	}{
		{"anonymous", session.Anonymous, "browse login quit"},
		{"member", session.Session{Token: "t", Username: "alice"}, "browse my-records profile quit"},
		{"admin", session.Session{Token: "t", Username: "root", Admin: true}, "browse requests records add-book quit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := strings.Join(menuKeys(tc.sess), " "); got != tc.want {
				t.Errorf("menu = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPadOrTruncate(t *testing.T) {
	if got := padOrTruncate("abc", 6); got != "abc   " {
		t.Errorf("pad = %q", got)
	}
	got := padOrTruncate("Structure and Interpretation", 10)
	if w := ansi.StringWidth(got); w != 10 {
		t.Errorf("width = %d, want 10 (%q)", w, got)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated value %q has no ellipsis", got)
	}
	if got := padOrTruncate("abc", 0); got != "" {
		t.Errorf("zero width = %q", got)
	}
}

func TestComputeColumnWidths_Bounds(t *testing.T) {
	for _, total := range []int{20, 80, 200} {
		title, author, category := computeColumnWidths(total)
		if title < minTitleWidth || title > maxTitleWidth {
			t.Errorf("total %d: title width %d out of range", total, title)
		}
		if author < minAuthorWidth || author > maxAuthorWidth {
			t.Errorf("total %d: author width %d out of range", total, author)
		}
		if category < minCategoryWidth || category > maxCategoryWidth {
			t.Errorf("total %d: category width %d out of range", total, category)
		}
	}
}
