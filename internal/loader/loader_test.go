package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"finvestigator/internal/domain"
	"finvestigator/internal/gather"
	"finvestigator/internal/store"
)

type countingSource struct {
	barCalls     atomic.Int64
	profileCalls atomic.Int64
	delay        time.Duration

	mu      sync.Mutex
	barErrs []error // consumed one per call before succeeding
	empty   bool
	profErr error
}

func (s *countingSource) Name() string { return "fake" }

func (s *countingSource) FetchBars(ctx context.Context, symbol string, r gather.DateRange) ([]domain.Bar, error) {
	s.barCalls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	if len(s.barErrs) > 0 {
		err := s.barErrs[0]
		s.barErrs = s.barErrs[1:]
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()
	if s.empty {
		return nil, gather.ErrNoData
	}
	return []domain.Bar{
		{Symbol: symbol, Timestamp: r.Start, Close: 10},
		{Symbol: symbol, Timestamp: r.Start.AddDate(0, 0, 1), Close: 11},
	}, nil
}

func (s *countingSource) FetchProfile(_ context.Context, symbol string) (*domain.CompanyProfile, error) {
	s.profileCalls.Add(1)
	if s.profErr != nil {
		return nil, s.profErr
	}
	return &domain.CompanyProfile{Symbol: symbol, Name: symbol + " Inc."}, nil
}

func rangeOf(startDay, endDay int) gather.DateRange {
	return gather.DateRange{
		Start: time.Date(2024, 1, startDay, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, endDay, 0, 0, 0, 0, time.UTC),
	}
}

func TestBarsMemoised(t *testing.T) {
	src := &countingSource{}
	l := New(src)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := l.Bars(ctx, "aapl", rangeOf(1, 10))
		if err != nil {
			t.Fatalf("Bars: %v", err)
		}
		if len(s) != 2 {
			t.Fatalf("len = %d, want 2", len(s))
		}
	}
	// Normalisation maps " AAPL " onto the same key.
	if _, err := l.Bars(ctx, " AAPL ", rangeOf(1, 10)); err != nil {
		t.Fatalf("Bars: %v", err)
	}
	if got := src.barCalls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}

	// A different end date is a different key.
	if _, err := l.Bars(ctx, "AAPL", rangeOf(1, 11)); err != nil {
		t.Fatalf("Bars: %v", err)
	}
	if got := src.barCalls.Load(); got != 2 {
		t.Errorf("upstream calls = %d, want 2", got)
	}
	if l.Len() != 2 {
		t.Errorf("Len() = %d, want 2", l.Len())
	}
}

func TestBarsConcurrentCollapse(t *testing.T) {
	src := &countingSource{delay: 50 * time.Millisecond}
	l := New(src)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Bars(context.Background(), "MSFT", rangeOf(1, 10)); err != nil {
				t.Errorf("Bars: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := src.barCalls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestBarsEmptyNotCached(t *testing.T) {
	src := &countingSource{empty: true}
	l := New(src)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := l.Bars(ctx, "NONE", rangeOf(1, 10)); !errors.Is(err, gather.ErrNoData) {
			t.Fatalf("error = %v, want ErrNoData", err)
		}
	}
	if got := src.barCalls.Load(); got != 2 {
		t.Errorf("upstream calls = %d, want 2 (errors are not cached)", got)
	}
}

func TestBarsEmptyTicker(t *testing.T) {
	src := &countingSource{}
	l := New(src)
	if _, err := l.Bars(context.Background(), "   ", rangeOf(1, 10)); !errors.Is(err, ErrEmptyTicker) {
		t.Errorf("error = %v, want ErrEmptyTicker", err)
	}
	if src.barCalls.Load() != 0 {
		t.Error("empty ticker must not reach the source")
	}
}

func TestBarsRetry(t *testing.T) {
	src := &countingSource{barErrs: []error{
		&gather.StatusError{Source: "fake", Code: 503},
		&gather.StatusError{Source: "fake", Code: 503},
	}}
	l := New(src, WithRetries(3, 0))

	if _, err := l.Bars(context.Background(), "IBM", rangeOf(1, 10)); err != nil {
		t.Fatalf("Bars: %v", err)
	}
	if got := src.barCalls.Load(); got != 3 {
		t.Errorf("upstream calls = %d, want 3", got)
	}
}

func TestBarsNoRetryOnNoData(t *testing.T) {
	src := &countingSource{empty: true}
	l := New(src, WithRetries(5, 0))

	_, _ = l.Bars(context.Background(), "NONE", rangeOf(1, 10))
	if got := src.barCalls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestInvalidateAndPurge(t *testing.T) {
	src := &countingSource{}
	l := New(src)
	ctx := context.Background()

	mustBars := func(sym string) {
		t.Helper()
		if _, err := l.Bars(ctx, sym, rangeOf(1, 10)); err != nil {
			t.Fatalf("Bars(%s): %v", sym, err)
		}
	}

	mustBars("AAPL")
	mustBars("MSFT")
	if _, err := l.Profile(ctx, "AAPL"); err != nil {
		t.Fatalf("Profile: %v", err)
	}

	if n := l.Invalidate("aapl"); n != 2 {
		t.Errorf("Invalidate removed %d entries, want 2", n)
	}
	mustBars("AAPL")
	mustBars("MSFT")
	if got := src.barCalls.Load(); got != 3 {
		t.Errorf("upstream calls after invalidate = %d, want 3", got)
	}

	if n := l.Purge(); n != 2 {
		t.Errorf("Purge removed %d entries, want 2", n)
	}
	mustBars("MSFT")
	if got := src.barCalls.Load(); got != 4 {
		t.Errorf("upstream calls after purge = %d, want 4", got)
	}
}

func TestProfileMemoised(t *testing.T) {
	src := &countingSource{}
	l := New(src)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := l.Profile(ctx, "tsla")
		if err != nil {
			t.Fatalf("Profile: %v", err)
		}
		if p.Name != "TSLA Inc." {
			t.Errorf("Name = %q", p.Name)
		}
	}
	if got := src.profileCalls.Load(); got != 1 {
		t.Errorf("profile calls = %d, want 1", got)
	}
}

func TestProfileErrorNotCached(t *testing.T) {
	src := &countingSource{profErr: errors.New("boom")}
	l := New(src)

	for i := 0; i < 2; i++ {
		if _, err := l.Profile(context.Background(), "X"); err == nil {
			t.Fatal("expected error")
		}
	}
	if got := src.profileCalls.Load(); got != 2 {
		t.Errorf("profile calls = %d, want 2", got)
	}
}

func TestWriteThroughArchive(t *testing.T) {
	ps := store.NewParquetStore(t.TempDir())
	l := New(&countingSource{}, WithArchive(ps, domain.MarketUS))
	ctx := context.Background()
	r := rangeOf(1, 10)

	if _, err := l.Bars(ctx, "NVDA", r); err != nil {
		t.Fatalf("Bars: %v", err)
	}

	archived, err := gather.NewArchiveSource(ps, domain.MarketUS).FetchBars(ctx, "NVDA", r)
	if err != nil {
		t.Fatalf("archive FetchBars: %v", err)
	}
	if len(archived) != 2 {
		t.Errorf("archived %d bars, want 2", len(archived))
	}
}

func TestArchived(t *testing.T) {
	ctx := context.Background()
	if got, err := New(&countingSource{}).Archived(ctx); err != nil || got != nil {
		t.Errorf("Archived without archive = %v, %v; want nil, nil", got, err)
	}

	ps := store.NewParquetStore(t.TempDir())
	l := New(&countingSource{}, WithArchive(ps, domain.MarketUS))
	if _, err := l.Bars(ctx, "nvda", rangeOf(1, 10)); err != nil {
		t.Fatalf("Bars: %v", err)
	}
	got, err := l.Archived(ctx)
	if err != nil {
		t.Fatalf("Archived: %v", err)
	}
	if len(got) != 1 || got[0] != "NVDA" {
		t.Errorf("Archived = %v, want [NVDA]", got)
	}
}

func TestBarsSharedFetchOutlivesFirstCaller(t *testing.T) {
	src := &countingSource{delay: 150 * time.Millisecond}
	l := New(src)
	r := rangeOf(1, 10)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := l.Bars(firstCtx, "AAPL", r)
		firstErr <- err
	}()
	time.Sleep(30 * time.Millisecond)

	type result struct {
		series domain.Series
		err    error
	}
	second := make(chan result, 1)
	go func() {
		s, err := l.Bars(context.Background(), "AAPL", r)
		second <- result{s, err}
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("first caller error = %v, want context.Canceled", err)
	}
	got := <-second
	if got.err != nil {
		t.Fatalf("second caller error = %v", got.err)
	}
	if len(got.series) != 2 {
		t.Errorf("second caller got %d bars, want 2", len(got.series))
	}
	if n := src.barCalls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
	if l.Len() != 1 {
		t.Errorf("cached series = %d, want 1", l.Len())
	}
}
