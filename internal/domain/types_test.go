package domain

import (
	"testing"
	"time"
)

func TestTypesExist(t *testing.T) {
	// Verify Bar can be instantiated with zero values.
	bar := Bar{}
	if bar.Symbol != "" {
		t.Error("expected empty Symbol for zero-value Bar")
	}
	if !bar.Timestamp.IsZero() {
		t.Error("expected zero Timestamp for zero-value Bar")
	}
	if bar.Open != 0 || bar.High != 0 || bar.Low != 0 || bar.Close != 0 || bar.Volume != 0 {
		t.Error("expected zero OHLCV values for zero-value Bar")
	}

	row := ForecastRow{}
	if row.YHat != 0 || row.YHatLower != 0 || row.YHatUpper != 0 {
		t.Error("expected zero estimates for zero-value ForecastRow")
	}

	if MarketUS != "us" || MarketGlobal != "global" {
		t.Error("Market constants have unexpected values")
	}

	profile := CompanyProfile{Symbol: "AAPL", Name: "Apple Inc.", Sector: "Technology"}
	if profile.Sector != "Technology" {
		t.Errorf("profile.Sector = %q, want %q", profile.Sector, "Technology")
	}
}

func TestSeriesHelpers(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	s := Series{
		{Symbol: "X", Timestamp: day(2), Close: 10},
		{Symbol: "X", Timestamp: day(3), Close: 11},
		{Symbol: "X", Timestamp: day(4), Close: 12},
	}

	closes := s.Closes()
	if len(closes) != 3 || closes[0] != 10 || closes[2] != 12 {
		t.Errorf("Closes() = %v, want [10 11 12]", closes)
	}

	if got := s.Tail(2); len(got) != 2 || got[0].Close != 11 {
		t.Errorf("Tail(2) = %v, want last two bars", got)
	}
	if got := s.Tail(10); len(got) != 3 {
		t.Errorf("Tail(10) returned %d bars, want 3", len(got))
	}

	last, ok := s.Last()
	if !ok || last.Close != 12 {
		t.Errorf("Last() = %v, %v; want close 12, true", last, ok)
	}
	if _, ok := (Series{}).Last(); ok {
		t.Error("Last() on empty series should report false")
	}
}
