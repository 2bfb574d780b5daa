// Package dashboard holds the page router and the controller that turns a
// user action (pick a page, submit a ticker) into a view or a halting notice.
// Both the HTTP server and the TUI drive it.
package dashboard

import "strings"

// Page is one of the dashboard's top-level screens.
type Page int

const (
	PageHome Page = iota
	PageNews
	PageDisclaimer
)

// Pages lists the menu entries in display order. The first is the default.
var Pages = []Page{PageHome, PageNews, PageDisclaimer}

// Label returns the menu label.
func (p Page) Label() string {
	switch p {
	case PageNews:
		return "Latest Market News"
	case PageDisclaimer:
		return "Disclaimer"
	default:
		return "Home"
	}
}

// Slug returns the URL path segment.
func (p Page) Slug() string {
	switch p {
	case PageNews:
		return "news"
	case PageDisclaimer:
		return "disclaimer"
	default:
		return "home"
	}
}

// Icon returns the menu glyph.
func (p Page) Icon() string {
	switch p {
	case PageNews:
		return "📰"
	case PageDisclaimer:
		return "⚠️"
	default:
		return "🏠"
	}
}

func (p Page) String() string { return p.Label() }

// ParsePage maps a menu label or slug to a page. Unknown input selects Home.
func ParsePage(s string) Page {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range Pages {
		if s == p.Slug() || s == strings.ToLower(p.Label()) {
			return p
		}
	}
	return PageHome
}
