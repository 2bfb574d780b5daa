package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"finvestigator/internal/domain"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	got := ps.barPath("aapl", domain.MarketUS, 2024)
	want := filepath.Join("/data", "us", "daily", "AAPL", "2024.parquet")
	if got != want {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", got, want)
	}
}

func TestParquetStoreWriteReadBars(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "AAPL", Timestamp: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Open: 185.5, High: 187.0, Low: 185.0, Close: 186.0, Volume: 45000000},
		{Symbol: "AAPL", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 185.0, High: 186.5, Low: 184.0, Close: 185.5, Volume: 50000000},
		{Symbol: "AAPL", Timestamp: time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC), Open: 193.0, High: 194.0, Low: 191.0, Close: 192.5, Volume: 42000000},
	}
	if err := ps.WriteBars(ctx, domain.MarketUS, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "AAPL", domain.MarketUS, start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReadBars returned %d bars, want 3", len(got))
	}
	// Spans two year files and comes back sorted.
	if got[0].Close != 192.5 || got[1].Close != 185.5 || got[2].Close != 186.0 {
		t.Errorf("ReadBars closes = %v, %v, %v", got[0].Close, got[1].Close, got[2].Close)
	}
	if got[2].Volume != 45000000 {
		t.Errorf("Volume = %d, want 45000000", got[2].Volume)
	}

	// Range filter is inclusive on both ends.
	narrow, err := ps.ReadBars(ctx, "AAPL", domain.MarketUS,
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars narrow: %v", err)
	}
	if len(narrow) != 1 {
		t.Errorf("narrow ReadBars returned %d bars, want 1", len(narrow))
	}
}

func TestParquetStoreMergeBars(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	first := []domain.Bar{{Symbol: "MSFT", Timestamp: day, Open: 400, High: 405, Low: 399, Close: 403, Volume: 30000000}}
	if err := ps.WriteBars(ctx, domain.MarketUS, first); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}

	// Same day rewritten plus a new day: the rewrite wins, nothing is lost.
	second := []domain.Bar{
		{Symbol: "MSFT", Timestamp: day, Open: 400, High: 405, Low: 399, Close: 404, Volume: 31000000},
		{Symbol: "MSFT", Timestamp: day.AddDate(0, 0, 3), Open: 403, High: 410, Low: 402, Close: 408, Volume: 35000000},
	}
	if err := ps.WriteBars(ctx, domain.MarketUS, second); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	got, err := ps.ReadBars(ctx, "MSFT", domain.MarketUS, day, day.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars after merge, want 2", len(got))
	}
	if got[0].Close != 404 {
		t.Errorf("merged Close = %v, want 404", got[0].Close)
	}
}

func TestParquetStoreReadMissing(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	got, err := ps.ReadBars(context.Background(), "NOPE", domain.MarketUS,
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ReadBars for missing symbol returned %d bars", len(got))
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "GOOGL", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 140.5},
		{Symbol: "AAPL", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 185.5},
	}
	if err := ps.WriteBars(ctx, domain.MarketUS, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err := ps.ListSymbols(ctx, domain.MarketUS)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "GOOGL" {
		t.Errorf("ListSymbols = %v, want [AAPL GOOGL]", symbols)
	}

	empty, err := ps.ListSymbols(ctx, domain.MarketGlobal)
	if err != nil {
		t.Fatalf("ListSymbols(global): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ListSymbols(global) = %v, want empty", empty)
	}
}

func TestSQLiteStoreRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "runs.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q) returned error: %v", dbPath, err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	}()

	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, sym := range []string{"AAPL", "MSFT", "TSLA"} {
		run := &domain.ForecastRun{
			Symbol:       sym,
			Years:        i + 1,
			HistoryRows:  100,
			ForecastRows: 100 + (i+1)*365,
			LastClose:    float64(100 + i),
			FinalYHat:    float64(110 + i),
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun(%s): %v", sym, err)
		}
		if run.ID == 0 {
			t.Errorf("SaveRun(%s) left ID unset", sym)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns returned %d runs, want 2", len(runs))
	}
	if runs[0].Symbol != "TSLA" || runs[1].Symbol != "MSFT" {
		t.Errorf("ListRuns order = %s, %s; want TSLA, MSFT", runs[0].Symbol, runs[1].Symbol)
	}
	if runs[0].ForecastRows != 100+3*365 {
		t.Errorf("ForecastRows = %d", runs[0].ForecastRows)
	}
	if !runs[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("CreatedAt = %v", runs[0].CreatedAt)
	}
}

func TestSQLiteStoreReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.SaveRun(ctx, &domain.ForecastRun{Symbol: "AAPL", Years: 1}); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	s.Close()

	s2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	runs, err := s2.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("ListRuns after reopen = %d runs, want 1", len(runs))
	}
}
