package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// BookItem is a catalog book in a list.
type BookItem struct {
	Book api.Book
	// Requested marks a book the user sent a request for in this session.
	Requested bool
}

// FilterValue returns a string used for filtering in the list
func (b BookItem) FilterValue() string {
	return strings.Join([]string{b.Book.BookID, b.Book.Title, b.Book.Author, b.Book.Publisher, b.Book.Category}, " ")
}

// Column width constraints
const (
	minTitleWidth    = 12
	maxTitleWidth    = 48
	minAuthorWidth   = 8
	maxAuthorWidth   = 26
	minCategoryWidth = 6
	maxCategoryWidth = 18
	copiesWidth      = 7
	columnGap        = 1
)

// computeColumnWidths distributes available width proportionally across columns.
func computeColumnWidths(totalWidth int) (titleW, authorW, categoryW int) {
	// prefix "› " and the gaps between four columns
	usable := totalWidth - 2 - columnGap*3 - copiesWidth
	if usable < minTitleWidth+minAuthorWidth+minCategoryWidth {
		return minTitleWidth, minAuthorWidth, minCategoryWidth
	}
	titleW = usable * 50 / 100
	if titleW > maxTitleWidth {
		titleW = maxTitleWidth
	}
	remaining := usable - titleW
	authorW = remaining * 60 / 100
	if authorW > maxAuthorWidth {
		authorW = maxAuthorWidth
	}
	categoryW = remaining - authorW
	if categoryW > maxCategoryWidth {
		categoryW = maxCategoryWidth
	}

	if authorW < minAuthorWidth {
		authorW = minAuthorWidth
	}
	if categoryW < minCategoryWidth {
		categoryW = minCategoryWidth
	}
	return
}

// padOrTruncate pads s to exactly width cells, truncating with "…" if necessary.
func padOrTruncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = ansi.Truncate(s, width, "…")
	if n := ansi.StringWidth(s); n < width {
		s += strings.Repeat(" ", width-n)
	}
	return s
}

// copiesLabel renders "available/quantity".
func copiesLabel(b api.Book) string {
	return fmt.Sprintf("%d/%d", b.AvailableQuantity, b.Quantity)
}

// RenderColumnHeader renders the header row matching RenderBookItem.
func RenderColumnHeader(listWidth int) string {
	if listWidth <= 0 {
		listWidth = 80
	}
	titleW, authorW, categoryW := computeColumnWidths(listWidth)
	gap := strings.Repeat(" ", columnGap)
	row := "  " + padOrTruncate("Title", titleW) + gap + padOrTruncate("Author", authorW) + gap +
		padOrTruncate("Category", categoryW) + gap + padOrTruncate("Copies", copiesWidth)
	return StyleHelp.Render(row)
}

// RenderBookItem renders a book with fixed-width columns.
func RenderBookItem(w io.Writer, m list.Model, index int, item list.Item) {
	bookItem, ok := item.(BookItem)
	if !ok {
		return
	}

	listWidth := m.Width()
	if listWidth <= 0 {
		listWidth = 80
	}
	titleW, authorW, categoryW := computeColumnWidths(listWidth)
	gap := strings.Repeat(" ", columnGap)

	isCursor := index == m.Index()
	prefix := "  "
	if isCursor {
		prefix = StyleHighlight.Render("›") + " "
	}

	b := bookItem.Book
	titleCol := padOrTruncate(b.Title, titleW)
	authorCol := padOrTruncate(b.Author, authorW)
	categoryCol := padOrTruncate(b.Category, categoryW)
	copiesCol := padOrTruncate(copiesLabel(b), copiesWidth)

	copiesStyle := StyleSuccess
	if b.AvailableQuantity <= 0 {
		copiesStyle = StyleError
	}

	var titleStyled, authorStyled string
	if isCursor {
		titleStyled = StyleHighlight.Render(titleCol)
		authorStyled = lipgloss.NewStyle().Foreground(ColorYellow).Faint(true).Render(authorCol)
	} else {
		titleStyled = StyleNormal.Render(titleCol)
		authorStyled = StyleHelp.Render(authorCol)
	}

	line := prefix + titleStyled + gap + authorStyled + gap + StyleTag.Render(categoryCol) + gap + copiesStyle.Render(copiesCol)
	if bookItem.Requested {
		line += gap + StyleHelp.Render("requested")
	}
	_, _ = fmt.Fprint(w, line)
}
