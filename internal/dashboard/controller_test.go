package dashboard

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"finvestigator/internal/domain"
	"finvestigator/internal/forecast"
	"finvestigator/internal/gather"
	"finvestigator/internal/store"
)

var fixedNow = time.Date(2024, 6, 28, 15, 0, 0, 0, time.UTC)

type fakeLoader struct {
	bars       domain.Series
	barsErr    error
	profile    *domain.CompanyProfile
	profileErr error

	barCalls     atomic.Int64
	profileCalls atomic.Int64
	lastRange    gather.DateRange
}

func (f *fakeLoader) Bars(_ context.Context, _ string, r gather.DateRange) (domain.Series, error) {
	f.barCalls.Add(1)
	f.lastRange = r
	return f.bars, f.barsErr
}

func (f *fakeLoader) Profile(_ context.Context, ticker string) (*domain.CompanyProfile, error) {
	f.profileCalls.Add(1)
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if f.profile != nil {
		return f.profile, nil
	}
	return &domain.CompanyProfile{Symbol: ticker, Name: ticker + " Corp"}, nil
}

func (f *fakeLoader) Invalidate(string) int { return 0 }
func (f *fakeLoader) Purge() int            { return 0 }

func (f *fakeLoader) Archived(context.Context) ([]string, error) {
	return []string{"INFY.NS", "TCS.NS"}, nil
}

type countingForecaster struct {
	inner forecast.Forecaster
	fits  atomic.Int64
}

func (c *countingForecaster) Fit(ctx context.Context, f forecast.Frame) (forecast.Model, error) {
	c.fits.Add(1)
	return c.inner.Fit(ctx, f)
}

type fakeNews struct {
	entries []domain.NewsEntry
	err     error
	calls   int
}

func (f *fakeNews) Fetch(context.Context, string) ([]domain.NewsEntry, error) {
	f.calls++
	return f.entries, f.err
}

func dailyBars(n int) domain.Series {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make(domain.Series, n)
	for i := range out {
		c := 100 + float64(i)*0.1
		out[i] = domain.Bar{Symbol: "ACME", Timestamp: start.AddDate(0, 0, i), Open: c - 0.5, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return out
}

func newTestController(t *testing.T, l *fakeLoader) (*Controller, *countingForecaster) {
	t.Helper()
	fc := &countingForecaster{inner: forecast.NewAdditive(forecast.Options{UncertaintySamples: 20})}
	c := NewController(Deps{
		Loader:     l,
		Forecaster: fc,
		News:       &fakeNews{},
		FeedURL:    "https://example.com/rss",
		Now:        func() time.Time { return fixedNow },
	})
	return c, fc
}

func wantNotice(t *testing.T, err error, kind Kind, msgPrefix string) *Notice {
	t.Helper()
	var n *Notice
	if !errors.As(err, &n) {
		t.Fatalf("error = %v (%T), want *Notice", err, err)
	}
	if n.Kind != kind {
		t.Errorf("notice kind = %v, want %v", n.Kind, kind)
	}
	if !strings.HasPrefix(n.Message, msgPrefix) {
		t.Errorf("notice message = %q, want prefix %q", n.Message, msgPrefix)
	}
	return n
}

func TestHomeEmptyTicker(t *testing.T) {
	l := &fakeLoader{bars: dailyBars(50)}
	c, fc := newTestController(t, l)

	view, err := c.Home(context.Background(), HomeRequest{Ticker: "   ", Years: 1})
	if view != nil {
		t.Error("view returned for empty ticker")
	}
	n := wantNotice(t, err, KindInput, MsgTickerHelp)
	if n.Level() != LevelWarning {
		t.Errorf("Level() = %v, want warning", n.Level())
	}
	if l.barCalls.Load() != 0 || l.profileCalls.Load() != 0 || fc.fits.Load() != 0 {
		t.Error("empty ticker should not reach the loader or forecaster")
	}
}

func TestHomeYearsValidation(t *testing.T) {
	c, _ := newTestController(t, &fakeLoader{bars: dailyBars(50)})
	for _, years := range []int{-1, 7} {
		_, err := c.Home(context.Background(), HomeRequest{Ticker: "ACME", Years: years})
		wantNotice(t, err, KindInput, MsgYearsRange)
	}
}

func TestHomeNoData(t *testing.T) {
	l := &fakeLoader{barsErr: gather.ErrNoData}
	c, fc := newTestController(t, l)

	_, err := c.Home(context.Background(), HomeRequest{Ticker: "NONE", Years: 2})
	n := wantNotice(t, err, KindNoData, MsgNoData)
	if n.Message != MsgNoData {
		t.Errorf("message = %q, want exactly %q", n.Message, MsgNoData)
	}
	if n.Level() != LevelWarning {
		t.Errorf("Level() = %v, want warning", n.Level())
	}
	if fc.fits.Load() != 0 {
		t.Error("forecaster called for empty data")
	}
}

func TestHomeLoadFault(t *testing.T) {
	l := &fakeLoader{barsErr: errors.New("connection refused")}
	c, fc := newTestController(t, l)

	_, err := c.Home(context.Background(), HomeRequest{Ticker: "ACME", Years: 1})
	n := wantNotice(t, err, KindUpstream, "Error occurred while loading data: ")
	if !strings.Contains(n.Message, "connection refused") {
		t.Errorf("message = %q, want upstream cause", n.Message)
	}
	if n.Level() != LevelError {
		t.Errorf("Level() = %v, want error", n.Level())
	}
	if fc.fits.Load() != 0 {
		t.Error("forecaster called after load fault")
	}
}

func TestHomeProfileFaultFirst(t *testing.T) {
	l := &fakeLoader{profileErr: errors.New("quote summary down"), barsErr: gather.ErrNoData}
	c, _ := newTestController(t, l)

	_, err := c.Home(context.Background(), HomeRequest{Ticker: "ACME", Years: 1})
	wantNotice(t, err, KindUpstream, "Error occurred while retrieving company information: ")
}

func TestHomeMissingProfileIsNotFatal(t *testing.T) {
	l := &fakeLoader{bars: dailyBars(60), profileErr: gather.ErrNoProfile}
	c, _ := newTestController(t, l)

	view, err := c.Home(context.Background(), HomeRequest{Ticker: "acme", Years: 1})
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if view.Profile.Symbol != "ACME" || view.Profile.Name != "" {
		t.Errorf("Profile = %+v, want symbol only", view.Profile)
	}
}

func TestHomeSuccess(t *testing.T) {
	bars := dailyBars(120)
	l := &fakeLoader{bars: bars}
	c, fc := newTestController(t, l)
	ctx := context.Background()

	view, err := c.Home(ctx, HomeRequest{Ticker: " acme ", Years: 2})
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if view.Symbol != "ACME" {
		t.Errorf("Symbol = %q", view.Symbol)
	}
	if got, want := len(view.Forecast.Rows), len(bars)+2*365; got != want {
		t.Errorf("forecast rows = %d, want %d", got, want)
	}
	if view.Forecast.HistoryRows != len(bars) || view.Forecast.Horizon != 730 {
		t.Errorf("forecast = history %d horizon %d", view.Forecast.HistoryRows, view.Forecast.Horizon)
	}
	if len(view.RawTail()) != TailRows || len(view.Forecast.Tail()) != TailRows {
		t.Errorf("tails = %d raw, %d forecast", len(view.RawTail()), len(view.Forecast.Tail()))
	}
	if view.Profile.Name != "ACME Corp" {
		t.Errorf("Profile.Name = %q", view.Profile.Name)
	}
	if view.Stats.Bars != len(bars) {
		t.Errorf("Stats.Bars = %d", view.Stats.Bars)
	}

	// History window is 2015-01-01 through today.
	if got := l.lastRange.Key(); got != "2015-01-01..2024-06-28" {
		t.Errorf("window = %s", got)
	}

	// Same request again reuses the fitted forecast.
	if _, err := c.Home(ctx, HomeRequest{Ticker: "ACME", Years: 2}); err != nil {
		t.Fatalf("Home (repeat): %v", err)
	}
	if got := fc.fits.Load(); got != 1 {
		t.Errorf("fits = %d, want 1", got)
	}

	// A different horizon is a separate fit.
	if _, err := c.Home(ctx, HomeRequest{Ticker: "ACME", Years: 1}); err != nil {
		t.Fatalf("Home (1y): %v", err)
	}
	if got := fc.fits.Load(); got != 2 {
		t.Errorf("fits = %d, want 2", got)
	}

	if n := c.Invalidate("acme"); n != 2 {
		t.Errorf("Invalidate removed %d forecasts, want 2", n)
	}
	if _, err := c.Home(ctx, HomeRequest{Ticker: "ACME", Years: 2}); err != nil {
		t.Fatalf("Home (after invalidate): %v", err)
	}
	if got := fc.fits.Load(); got != 3 {
		t.Errorf("fits after invalidate = %d, want 3", got)
	}

	if n := c.Purge(); n != 1 {
		t.Errorf("Purge removed %d forecasts, want 1", n)
	}
}

func TestHomeDefaultsYears(t *testing.T) {
	bars := dailyBars(40)
	c, _ := newTestController(t, &fakeLoader{bars: bars})

	view, err := c.Home(context.Background(), HomeRequest{Ticker: "ACME"})
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if view.Years != 1 || len(view.Forecast.Rows) != len(bars)+365 {
		t.Errorf("years = %d, rows = %d", view.Years, len(view.Forecast.Rows))
	}
}

func TestHomeTooFewRows(t *testing.T) {
	c, _ := newTestController(t, &fakeLoader{bars: dailyBars(1)})
	_, err := c.Home(context.Background(), HomeRequest{Ticker: "ACME", Years: 1})
	wantNotice(t, err, KindNoData, MsgTooFewRows)
}

func TestRecentRuns(t *testing.T) {
	runs, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer runs.Close()

	bars := dailyBars(30)
	c := NewController(Deps{
		Loader:     &fakeLoader{bars: bars},
		Forecaster: forecast.NewAdditive(forecast.Options{UncertaintySamples: 10}),
		Runs:       runs,
		Now:        func() time.Time { return fixedNow },
	})
	ctx := context.Background()

	if got, err := c.Recent(ctx, 10); err != nil || len(got) != 0 {
		t.Fatalf("Recent before any forecast = %v, %v", got, err)
	}
	if _, err := c.Home(ctx, HomeRequest{Ticker: "ACME", Years: 3}); err != nil {
		t.Fatalf("Home: %v", err)
	}

	got, err := c.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Recent returned %d runs, want 1", len(got))
	}
	r := got[0]
	if r.Symbol != "ACME" || r.Years != 3 || r.HistoryRows != 30 || r.ForecastRows != 30+3*365 {
		t.Errorf("run = %+v", r)
	}
	if r.LastClose != bars[len(bars)-1].Close {
		t.Errorf("LastClose = %v", r.LastClose)
	}
}

func TestSymbols(t *testing.T) {
	c, _ := newTestController(t, &fakeLoader{})
	got, err := c.Symbols(context.Background())
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if len(got) != 2 || got[0] != "INFY.NS" {
		t.Errorf("Symbols = %v", got)
	}
}

func TestRecentWithoutStore(t *testing.T) {
	c, _ := newTestController(t, &fakeLoader{})
	runs, err := c.Recent(context.Background(), 5)
	if err != nil || runs != nil {
		t.Errorf("Recent = %v, %v; want nil, nil", runs, err)
	}
}

func TestNews(t *testing.T) {
	fn := &fakeNews{entries: []domain.NewsEntry{{Title: "A", Summary: "s", Link: "https://x/a"}}}
	c := NewController(Deps{News: fn, FeedURL: "https://example.com/rss"})

	view, err := c.News(context.Background())
	if err != nil {
		t.Fatalf("News: %v", err)
	}
	if view.Fragment != "<b>A</b><br>s<br><a href='https://x/a'>Read more</a><br><br>" {
		t.Errorf("Fragment = %q", view.Fragment)
	}
	if len(view.Entries) != 1 {
		t.Errorf("Entries = %d", len(view.Entries))
	}
}

func TestNewsEmptyFeed(t *testing.T) {
	c := NewController(Deps{News: &fakeNews{}, FeedURL: "https://example.com/rss"})
	view, err := c.News(context.Background())
	if err != nil {
		t.Fatalf("News: %v", err)
	}
	if view.Fragment != "" {
		t.Errorf("Fragment = %q, want empty", view.Fragment)
	}
}

func TestNewsMissingURL(t *testing.T) {
	fn := &fakeNews{}
	c := NewController(Deps{News: fn})

	_, err := c.News(context.Background())
	wantNotice(t, err, KindInput, MsgNoFeedURL)
	if fn.calls != 0 {
		t.Error("fetch attempted without a URL")
	}
}

func TestNewsFault(t *testing.T) {
	c := NewController(Deps{News: &fakeNews{err: errors.New("dns")}, FeedURL: "https://example.com/rss"})
	_, err := c.News(context.Background())
	wantNotice(t, err, KindUpstream, "Error occurred while fetching news: ")
}

func TestDisclaimer(t *testing.T) {
	c := NewController(Deps{})
	view, err := c.Disclaimer(context.Background())
	if err != nil {
		t.Fatalf("Disclaimer: %v", err)
	}
	if !strings.Contains(view.HTML, "<h2>Disclaimer") {
		t.Errorf("HTML = %q, want rendered heading", view.HTML)
	}
	if !strings.Contains(view.HTML, "not be considered as financial advice") {
		t.Errorf("HTML missing disclaimer text")
	}
}

func TestAsNotice(t *testing.T) {
	if AsNotice(nil) != nil {
		t.Error("AsNotice(nil) != nil")
	}
	n := AsNotice(errors.New("plain"))
	if n.Kind != KindUpstream || n.Message != "plain" {
		t.Errorf("AsNotice(plain) = %+v", n)
	}
	orig := warn(KindNoData, MsgNoData)
	if AsNotice(orig) != orig {
		t.Error("AsNotice should return the original notice")
	}
}
