package finvestigator

import (
	"fmt"
	"time"
)

// DateLayout is the date format used on the wire.
const DateLayout = "2006-01-02"

// Bar is one daily OHLCV row.
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Profile is the company description shown beside the Home page.
type Profile struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Industry string `json:"industry,omitempty"`
	Sector   string `json:"sector,omitempty"`
	Country  string `json:"country,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

// Stats summarises the loaded series.
type Stats struct {
	Bars      int     `json:"bars"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Open      float64 `json:"open"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
	Turnover  float64 `json:"turnover"`
	Change    float64 `json:"change"`
	MaxGain   float64 `json:"maxGain"`
	MaxLoss   float64 `json:"maxLoss"`
	FirstDate string  `json:"firstDate,omitempty"`
	LastDate  string  `json:"lastDate,omitempty"`
}

// ForecastRow is one predicted day.
type ForecastRow struct {
	DS            string  `json:"ds"`
	YHat          float64 `json:"yhat"`
	YHatLower     float64 `json:"yhat_lower"`
	YHatUpper     float64 `json:"yhat_upper"`
	Trend         float64 `json:"trend"`
	TrendLower    float64 `json:"trend_lower"`
	TrendUpper    float64 `json:"trend_upper"`
	Weekly        float64 `json:"weekly"`
	Yearly        float64 `json:"yearly"`
	AdditiveTerms float64 `json:"additive_terms"`
}

// TrendPoint is one trend value with its interval.
type TrendPoint struct {
	DS    string  `json:"ds"`
	Value float64 `json:"value"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ProfilePoint is one position of a seasonal cycle.
type ProfilePoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Components is the decomposed forecast.
type Components struct {
	Trend  []TrendPoint   `json:"trend"`
	Weekly []ProfilePoint `json:"weekly,omitempty"`
	Yearly []ProfilePoint `json:"yearly,omitempty"`
}

// Forecast is a fitted forecast for one symbol and horizon.
type Forecast struct {
	Symbol      string        `json:"symbol"`
	Years       int           `json:"years"`
	Horizon     int           `json:"horizon"`
	HistoryRows int           `json:"historyRows"`
	Rows        []ForecastRow `json:"rows"`
	Components  Components    `json:"components"`
}

// HomeResponse is the Home page for a ticker.
type HomeResponse struct {
	Symbol   string   `json:"symbol"`
	Years    int      `json:"years"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Profile  Profile  `json:"profile"`
	Stats    Stats    `json:"stats"`
	Bars     []Bar    `json:"bars"`
	Forecast Forecast `json:"forecast"`
}

// BarsResponse is the raw series for a symbol.
type BarsResponse struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// NewsEntry is one feed item. Text is the summary with markup removed.
type NewsEntry struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Text      string `json:"text,omitempty"`
	Link      string `json:"link"`
	Published string `json:"published,omitempty"`
}

// NewsResponse is the News page.
type NewsResponse struct {
	FeedURL  string      `json:"feedUrl"`
	Entries  []NewsEntry `json:"entries"`
	Fragment string      `json:"fragment"`
}

// DisclaimerResponse is the Disclaimer page.
type DisclaimerResponse struct {
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// Run is one recorded forecast.
type Run struct {
	ID           int64     `json:"id"`
	Symbol       string    `json:"symbol"`
	Years        int       `json:"years"`
	HistoryRows  int       `json:"historyRows"`
	ForecastRows int       `json:"forecastRows"`
	LastClose    float64   `json:"lastClose"`
	FinalYHat    float64   `json:"finalYhat"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RecentResponse lists recorded forecasts, newest first.
type RecentResponse struct {
	Runs []Run `json:"runs"`
}

// SymbolsResponse lists the tickers held in the server's bar archive.
type SymbolsResponse struct {
	Symbols []string `json:"symbols"`
}

// CacheResponse reports how many cache entries were dropped.
type CacheResponse struct {
	Symbol  string `json:"symbol,omitempty"`
	Removed int    `json:"removed"`
}

// Notice is a message that halted a page render.
type Notice struct {
	Level   string `json:"level"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NoticeResponse is the body of every non-2xx API response.
type NoticeResponse struct {
	Notice Notice `json:"notice"`
}

// APIError is returned by Client when the server answers with a non-2xx
// status.
type APIError struct {
	Status int
	Notice Notice
}

func (e *APIError) Error() string {
	if e.Notice.Message != "" {
		return fmt.Sprintf("%s (%d): %s", e.Notice.Level, e.Status, e.Notice.Message)
	}
	return fmt.Sprintf("unexpected status %d", e.Status)
}
