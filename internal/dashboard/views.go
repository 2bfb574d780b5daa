package dashboard

import (
	"context"
	"time"

	"finvestigator/internal/domain"
	"finvestigator/internal/forecast"
)

// TailRows is how many rows the raw and forecast tables show.
const TailRows = 5

// HomeRequest is the Home page input.
type HomeRequest struct {
	Ticker string
	Years  int `validate:"min=1,max=6"`
}

// ForecastResult is one fitted forecast for a symbol and horizon.
type ForecastResult struct {
	Symbol      string
	Years       int
	Horizon     int // days
	HistoryRows int
	Rows        []domain.ForecastRow
	Components  forecast.Components
}

// Tail returns the last TailRows forecast rows.
func (f *ForecastResult) Tail() []domain.ForecastRow {
	if len(f.Rows) <= TailRows {
		return f.Rows
	}
	return f.Rows[len(f.Rows)-TailRows:]
}

// HomeView is everything the Home page renders for a ticker.
type HomeView struct {
	Symbol   string
	Years    int
	Start    time.Time
	End      time.Time
	Profile  domain.CompanyProfile
	Bars     domain.Series
	Stats    SeriesStats
	Forecast *ForecastResult
}

// RawTail returns the last TailRows bars.
func (v *HomeView) RawTail() domain.Series { return v.Bars.Tail(TailRows) }

// NewsView is the News page.
type NewsView struct {
	FeedURL  string
	Entries  []domain.NewsEntry
	Fragment string
}

// DisclaimerView is the Disclaimer page.
type DisclaimerView struct {
	Title    string
	Markdown string
	HTML     string
}

// Service is the set of page actions a front end drives. Controller
// implements it in-process; the gRPC client implements it remotely.
// Halting conditions are returned as *Notice errors.
type Service interface {
	Home(ctx context.Context, req HomeRequest) (*HomeView, error)
	News(ctx context.Context) (*NewsView, error)
	Disclaimer(ctx context.Context) (*DisclaimerView, error)
	Recent(ctx context.Context, limit int) ([]domain.ForecastRun, error)
}
