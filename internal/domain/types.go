// Package domain defines the core value types shared across finvestigator:
// price bars, forecast rows, news entries and company profiles.
package domain

import "time"

// Market identifies the exchange family a symbol belongs to.
type Market string

const (
	MarketUS     Market = "us"
	MarketGlobal Market = "global"
)

// Bar is one daily OHLCV record.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Series is a chronologically ordered slice of bars for one symbol.
type Series []Bar

// Closes returns the closing prices in order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i := range s {
		out[i] = s[i].Close
	}
	return out
}

// Tail returns the last n bars (all of them if n exceeds the length).
func (s Series) Tail(n int) Series {
	if n <= 0 || n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

// Last returns the most recent bar and false if the series is empty.
func (s Series) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// ForecastRow is one date of model output. Seasonal terms are zero when the
// corresponding seasonality was not fitted.
type ForecastRow struct {
	DS            time.Time
	YHat          float64
	YHatLower     float64
	YHatUpper     float64
	Trend         float64
	TrendLower    float64
	TrendUpper    float64
	Weekly        float64
	Yearly        float64
	AdditiveTerms float64
}

// NewsEntry is a single item from a syndication feed.
type NewsEntry struct {
	Title     string
	Summary   string
	Link      string
	Published time.Time
}

// CompanyProfile holds descriptive fields shown next to a ticker.
type CompanyProfile struct {
	Symbol   string
	Name     string
	Industry string
	Sector   string
	Country  string
	Summary  string
}

// ForecastRun records one computed forecast for the recent-forecasts list.
type ForecastRun struct {
	ID           int64
	Symbol       string
	Years        int
	HistoryRows  int
	ForecastRows int
	LastClose    float64
	FinalYHat    float64
	CreatedAt    time.Time
}
