// Package news fetches syndication feeds and renders their entries for the
// News page.
package news

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"finvestigator/internal/domain"
)

// ErrNoURL is returned when Fetch is called without a feed URL.
var ErrNoURL = errors.New("no feed url")

// MissingURLMessage is the warning shown when no feed URL is configured.
const MissingURLMessage = "Please provide an RSS feed URL."

// summaryPolicy is the allow-list feed summaries pass through before they
// reach a page.
var summaryPolicy = bluemonday.UGCPolicy()

// Fetcher retrieves and parses RSS/Atom feeds.
type Fetcher struct {
	parser *gofeed.Parser
	log    *slog.Logger
}

// NewFetcher creates a Fetcher whose HTTP requests time out after timeout.
func NewFetcher(timeout time.Duration, log *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	fp := gofeed.NewParser()
	fp.Client = &http.Client{Timeout: timeout}
	fp.UserAgent = "Mozilla/5.0"
	return &Fetcher{parser: fp, log: log.With("component", "news")}
}

// Fetch downloads and parses the feed at feedURL. A feed with no items
// yields an empty slice and no error.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]domain.NewsEntry, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, ErrNoURL
	}

	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}

	entries := make([]domain.NewsEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		entries = append(entries, entryFromItem(item))
	}
	f.log.Info("fetched feed", "url", feedURL, "title", feed.Title, "entries", len(entries))
	return entries, nil
}

func entryFromItem(item *gofeed.Item) domain.NewsEntry {
	summary := item.Description
	if summary == "" {
		summary = item.Content
	}
	e := domain.NewsEntry{
		Title:   strings.TrimSpace(item.Title),
		Summary: strings.TrimSpace(summary),
		Link:    strings.TrimSpace(item.Link),
	}
	switch {
	case item.PublishedParsed != nil:
		e.Published = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		e.Published = item.UpdatedParsed.UTC()
	}
	return e
}

// RenderFragment renders entries as the News page markup, one block per
// entry. Summaries are sanitised and the Read more link is dropped unless
// it is http or https. Zero entries render as the empty string.
func RenderFragment(entries []domain.NewsEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "<b>%s</b><br>%s<br>", html.EscapeString(e.Title), summaryPolicy.Sanitize(e.Summary))
		if link := webLink(e.Link); link != "" {
			fmt.Fprintf(&b, "<a href='%s'>Read more</a><br>", html.EscapeString(link))
		}
		b.WriteString("<br>")
	}
	return b.String()
}

// webLink returns link if it is an absolute http(s) URL, else "".
func webLink(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String()
	}
	return ""
}

// PlainSummary returns the summary with markup removed and whitespace
// collapsed.
func PlainSummary(summary string) string {
	if !strings.ContainsAny(summary, "<&") {
		return strings.Join(strings.Fields(summary), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(summary))
	if err != nil {
		return strings.Join(strings.Fields(summary), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// MarkdownSummary converts the summary HTML to markdown for terminal display.
func MarkdownSummary(summary string) string {
	conv := md.NewConverter("", true, nil)
	out, err := conv.ConvertString(summary)
	if err != nil {
		return PlainSummary(summary)
	}
	return strings.TrimSpace(out)
}
