package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finvestigator/internal/domain"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Markets</title>
  <item>
    <title>Sensex climbs 500 points</title>
    <description><![CDATA[<p>Banks <b>lead</b> the rally.</p>]]></description>
    <link>https://example.com/a</link>
    <pubDate>Mon, 15 Jan 2024 10:00:00 +0000</pubDate>
  </item>
  <item>
    <title>Rupee steady</title>
    <description>Forex flat.</description>
    <link>https://example.com/b</link>
  </item>
</channel>
</rss>`

const emptyRSS = `<?xml version="1.0"?><rss version="2.0"><channel><title>Empty</title></channel></rss>`

func serve(t *testing.T, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestFetch(t *testing.T) {
	f := NewFetcher(5*time.Second, nil)

	entries, err := f.Fetch(context.Background(), serve(t, rssBody))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Title != "Sensex climbs 500 points" {
		t.Errorf("Title = %q", entries[0].Title)
	}
	if entries[0].Link != "https://example.com/a" {
		t.Errorf("Link = %q", entries[0].Link)
	}
	if !strings.Contains(entries[0].Summary, "<b>lead</b>") {
		t.Errorf("Summary = %q, want raw HTML preserved", entries[0].Summary)
	}
	if want := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC); !entries[0].Published.Equal(want) {
		t.Errorf("Published = %v, want %v", entries[0].Published, want)
	}
	if !entries[1].Published.IsZero() {
		t.Errorf("Published without pubDate = %v, want zero", entries[1].Published)
	}
}

func TestFetchEmptyFeed(t *testing.T) {
	f := NewFetcher(5*time.Second, nil)

	entries, err := f.Fetch(context.Background(), serve(t, emptyRSS))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
	if got := RenderFragment(entries); got != "" {
		t.Errorf("RenderFragment(empty) = %q, want empty", got)
	}
}

func TestFetchNoURL(t *testing.T) {
	f := NewFetcher(0, nil)
	if _, err := f.Fetch(context.Background(), "  "); !errors.Is(err, ErrNoURL) {
		t.Errorf("error = %v, want ErrNoURL", err)
	}
}

func TestFetchBadFeed(t *testing.T) {
	f := NewFetcher(5*time.Second, nil)
	if _, err := f.Fetch(context.Background(), serve(t, "not a feed")); err == nil {
		t.Error("expected parse error")
	}
}

func TestRenderFragment(t *testing.T) {
	entries := []domain.NewsEntry{
		{Title: "One", Summary: "First <i>story</i>", Link: "https://x/1"},
		{Title: "Two", Summary: "Second", Link: "https://x/2"},
	}
	want := "<b>One</b><br>First <i>story</i><br><a href='https://x/1'>Read more</a><br><br>" +
		"<b>Two</b><br>Second<br><a href='https://x/2'>Read more</a><br><br>"
	if got := RenderFragment(entries); got != want {
		t.Errorf("RenderFragment:\n got  %q\n want %q", got, want)
	}
}

func TestRenderFragmentSanitises(t *testing.T) {
	entries := []domain.NewsEntry{
		{
			Title:   "<script>x</script>",
			Summary: `Rally <img src="x" onerror="alert(document.cookie)"><a href="javascript:alert(2)">more</a><script>alert(3)</script>`,
			Link:    "javascript:alert(1)",
		},
		{Title: "Ok", Summary: "Fine", Link: "http://example.com/a?b=1&c=2"},
	}
	got := RenderFragment(entries)

	for _, bad := range []string{"onerror", "javascript:", "<script", "alert(3)"} {
		if strings.Contains(got, bad) {
			t.Errorf("fragment contains %q: %s", bad, got)
		}
	}
	if !strings.HasPrefix(got, "<b>&lt;script&gt;x&lt;/script&gt;</b><br>Rally ") {
		t.Errorf("first entry = %s", got)
	}
	if strings.Count(got, "Read more") != 1 {
		t.Errorf("want only the http link rendered: %s", got)
	}
	if !strings.HasSuffix(got, "<b>Ok</b><br>Fine<br><a href='http://example.com/a?b=1&amp;c=2'>Read more</a><br><br>") {
		t.Errorf("second entry = %s", got)
	}
}

func TestPlainSummary(t *testing.T) {
	cases := map[string]string{
		"<p>Banks <b>lead</b>\n the rally.</p>": "Banks lead the rally.",
		"plain   text":                          "plain text",
		"Tom &amp; Jerry":                       "Tom & Jerry",
		"":                                      "",
	}
	for in, want := range cases {
		if got := PlainSummary(in); got != want {
			t.Errorf("PlainSummary(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMarkdownSummary(t *testing.T) {
	got := MarkdownSummary(`<p>Banks <strong>lead</strong> the <a href="https://x">rally</a>.</p>`)
	if !strings.Contains(got, "**lead**") {
		t.Errorf("MarkdownSummary = %q, want bold markdown", got)
	}
	if !strings.Contains(got, "[rally](https://x)") {
		t.Errorf("MarkdownSummary = %q, want link markdown", got)
	}
}
