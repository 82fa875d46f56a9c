package tui

import (
	"fmt"
	"io"

	"github.com/blackwell-systems/libctl/internal/session"
	"github.com/charmbracelet/bubbles/list"
)

// MenuItem represents an action in the hub menu
type MenuItem struct {
	Key         string
	Label       string
	Description string

	audience audience
}

type audience int

const (
	everyone  audience = iota
	anonymous          // only when not logged in
	member             // logged in, not admin
	admin
)

// FilterValue implements list.Item
func (m MenuItem) FilterValue() string {
	return m.Label + " " + m.Description
}

// HubContext holds the counts shown in the hub status line.
type HubContext struct {
	User        string
	Admin       bool
	BookCount   int
	TotalCopies int
	Pending     int
	Err         string
}

// menuItems defines the menu in logical order
var menuItems = []MenuItem{
	// Catalog
	{Key: "browse", Label: "Browse Catalog", Description: "Search books and request a copy", audience: everyone},
	// Member
	{Key: "my-records", Label: "My Books", Description: "Books you have borrowed", audience: member},
	{Key: "profile", Label: "Profile", Description: "Complete or update your profile", audience: member},
	// Admin
	{Key: "requests", Label: "Borrow Requests", Description: "Accept pending requests", audience: admin},
	{Key: "records", Label: "Borrowing Records", Description: "Track loans and mark returns", audience: admin},
	{Key: "add-book", Label: "Add Book", Description: "Add a title to the collection", audience: admin},
	// Account
	{Key: "login", Label: "Log In", Description: "Sign in to borrow books", audience: anonymous},
	{Key: "quit", Label: "Quit", Description: "Exit libctl", audience: everyone},
}

// GetMenuItems returns the menu entries the session may use.
func GetMenuItems(sess session.Session) []MenuItem {
	var out []MenuItem
	for _, item := range menuItems {
		switch item.audience {
		case anonymous:
			if sess.Authenticated() {
				continue
			}
		case member:
			if !sess.Authenticated() || sess.Admin {
				continue
			}
		case admin:
			if !sess.Authenticated() || !sess.Admin {
				continue
			}
		}
		out = append(out, item)
	}
	return out
}

// RenderMenuItem renders a menu item in the hub
func RenderMenuItem(w io.Writer, m list.Model, index int, item list.Item) {
	menuItem, ok := item.(MenuItem)
	if !ok {
		return
	}

	isSelected := index == m.Index()

	label := menuItem.Label
	desc := StyleHelp.Render(menuItem.Description)

	display := fmt.Sprintf("%-20s   %s", label, desc)

	if isSelected {
		_, _ = fmt.Fprint(w, StyleHighlight.Render("› "+display))
	} else {
		_, _ = fmt.Fprint(w, "  "+StyleNormal.Render(display))
	}
}
