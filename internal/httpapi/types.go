// Package httpapi serves the dashboard over HTTP: HTML pages driven by the
// page router and a JSON API carrying the same views.
package httpapi

import (
	"fmt"
	"time"

	"finvestigator/internal/dashboard"
	"finvestigator/internal/domain"
	"finvestigator/internal/forecast"
	"finvestigator/internal/news"
	"finvestigator/pkg/finvestigator"
)

const dateLayout = finvestigator.DateLayout

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

// EncodeBars converts a series to its wire form.
func EncodeBars(series domain.Series) []finvestigator.Bar {
	out := make([]finvestigator.Bar, len(series))
	for i, b := range series {
		out[i] = finvestigator.Bar{
			Date:   formatDate(b.Timestamp),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return out
}

func EncodeProfile(p domain.CompanyProfile) finvestigator.Profile {
	return finvestigator.Profile(p)
}

func encodeStats(s dashboard.SeriesStats) finvestigator.Stats {
	return finvestigator.Stats(s)
}

// EncodeForecast converts a fitted forecast to its wire form.
func EncodeForecast(f *dashboard.ForecastResult) finvestigator.Forecast {
	out := finvestigator.Forecast{
		Symbol:      f.Symbol,
		Years:       f.Years,
		Horizon:     f.Horizon,
		HistoryRows: f.HistoryRows,
		Rows:        make([]finvestigator.ForecastRow, len(f.Rows)),
	}
	for i, r := range f.Rows {
		out.Rows[i] = finvestigator.ForecastRow{
			DS:            formatDate(r.DS),
			YHat:          r.YHat,
			YHatLower:     r.YHatLower,
			YHatUpper:     r.YHatUpper,
			Trend:         r.Trend,
			TrendLower:    r.TrendLower,
			TrendUpper:    r.TrendUpper,
			Weekly:        r.Weekly,
			Yearly:        r.Yearly,
			AdditiveTerms: r.AdditiveTerms,
		}
	}
	c := f.Components
	out.Components.Trend = make([]finvestigator.TrendPoint, len(c.Trend))
	for i, p := range c.Trend {
		out.Components.Trend[i] = finvestigator.TrendPoint{DS: formatDate(p.DS), Value: p.Value, Lower: p.Lower, Upper: p.Upper}
	}
	out.Components.Weekly = encodeProfilePoints(c.Weekly)
	out.Components.Yearly = encodeProfilePoints(c.Yearly)
	return out
}

func encodeProfilePoints(pts []forecast.ProfilePoint) []finvestigator.ProfilePoint {
	if pts == nil {
		return nil
	}
	out := make([]finvestigator.ProfilePoint, len(pts))
	for i, p := range pts {
		out[i] = finvestigator.ProfilePoint(p)
	}
	return out
}

// EncodeHome converts the Home page view to its wire form.
func EncodeHome(v *dashboard.HomeView) finvestigator.HomeResponse {
	return finvestigator.HomeResponse{
		Symbol:   v.Symbol,
		Years:    v.Years,
		Start:    formatDate(v.Start),
		End:      formatDate(v.End),
		Profile:  EncodeProfile(v.Profile),
		Stats:    encodeStats(v.Stats),
		Bars:     EncodeBars(v.Bars),
		Forecast: EncodeForecast(v.Forecast),
	}
}

// EncodeNews converts the News page. Text carries the summary without
// markup for clients that cannot render HTML.
func EncodeNews(v *dashboard.NewsView) finvestigator.NewsResponse {
	out := finvestigator.NewsResponse{
		FeedURL:  v.FeedURL,
		Entries:  make([]finvestigator.NewsEntry, len(v.Entries)),
		Fragment: v.Fragment,
	}
	for i, e := range v.Entries {
		out.Entries[i] = finvestigator.NewsEntry{
			Title:   e.Title,
			Summary: e.Summary,
			Text:    news.PlainSummary(e.Summary),
			Link:    e.Link,
		}
		if !e.Published.IsZero() {
			out.Entries[i].Published = e.Published.UTC().Format(time.RFC3339)
		}
	}
	return out
}

func EncodeDisclaimer(v *dashboard.DisclaimerView) finvestigator.DisclaimerResponse {
	return finvestigator.DisclaimerResponse{Title: v.Title, Markdown: v.Markdown, HTML: v.HTML}
}

func EncodeRuns(runs []domain.ForecastRun) finvestigator.RecentResponse {
	out := finvestigator.RecentResponse{Runs: make([]finvestigator.Run, len(runs))}
	for i, r := range runs {
		out.Runs[i] = finvestigator.Run(r)
	}
	return out
}

func EncodeNotice(n *dashboard.Notice) finvestigator.NoticeResponse {
	return finvestigator.NoticeResponse{Notice: finvestigator.Notice{
		Level:   string(n.Level()),
		Kind:    n.Kind.String(),
		Message: n.Message,
	}}
}

// DecodeHome rebuilds a Home view from its wire form.
func DecodeHome(r finvestigator.HomeResponse) (*dashboard.HomeView, error) {
	start, err := parseDate(r.Start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	end, err := parseDate(r.End)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	bars, err := DecodeBars(r.Symbol, r.Bars)
	if err != nil {
		return nil, err
	}
	fc, err := DecodeForecast(r.Forecast)
	if err != nil {
		return nil, err
	}
	return &dashboard.HomeView{
		Symbol:   r.Symbol,
		Years:    r.Years,
		Start:    start,
		End:      end,
		Profile:  domain.CompanyProfile(r.Profile),
		Bars:     bars,
		Stats:    dashboard.SeriesStats(r.Stats),
		Forecast: fc,
	}, nil
}

func DecodeBars(symbol string, bars []finvestigator.Bar) (domain.Series, error) {
	out := make(domain.Series, len(bars))
	for i, b := range bars {
		ts, err := parseDate(b.Date)
		if err != nil {
			return nil, fmt.Errorf("bar %d: %w", i, err)
		}
		out[i] = domain.Bar{Symbol: symbol, Timestamp: ts, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
	}
	return out, nil
}

func DecodeForecast(f finvestigator.Forecast) (*dashboard.ForecastResult, error) {
	out := &dashboard.ForecastResult{
		Symbol:      f.Symbol,
		Years:       f.Years,
		Horizon:     f.Horizon,
		HistoryRows: f.HistoryRows,
		Rows:        make([]domain.ForecastRow, len(f.Rows)),
	}
	for i, r := range f.Rows {
		ds, err := parseDate(r.DS)
		if err != nil {
			return nil, fmt.Errorf("forecast row %d: %w", i, err)
		}
		out.Rows[i] = domain.ForecastRow{
			DS:            ds,
			YHat:          r.YHat,
			YHatLower:     r.YHatLower,
			YHatUpper:     r.YHatUpper,
			Trend:         r.Trend,
			TrendLower:    r.TrendLower,
			TrendUpper:    r.TrendUpper,
			Weekly:        r.Weekly,
			Yearly:        r.Yearly,
			AdditiveTerms: r.AdditiveTerms,
		}
	}
	c := f.Components
	out.Components.Trend = make([]forecast.Point, len(c.Trend))
	for i, p := range c.Trend {
		ds, err := parseDate(p.DS)
		if err != nil {
			return nil, fmt.Errorf("trend point %d: %w", i, err)
		}
		out.Components.Trend[i] = forecast.Point{DS: ds, Value: p.Value, Lower: p.Lower, Upper: p.Upper}
	}
	out.Components.Weekly = decodeProfilePoints(c.Weekly)
	out.Components.Yearly = decodeProfilePoints(c.Yearly)
	return out, nil
}

func decodeProfilePoints(pts []finvestigator.ProfilePoint) []forecast.ProfilePoint {
	if pts == nil {
		return nil
	}
	out := make([]forecast.ProfilePoint, len(pts))
	for i, p := range pts {
		out[i] = forecast.ProfilePoint(p)
	}
	return out
}

func DecodeNews(r finvestigator.NewsResponse) *dashboard.NewsView {
	v := &dashboard.NewsView{
		FeedURL:  r.FeedURL,
		Entries:  make([]domain.NewsEntry, len(r.Entries)),
		Fragment: r.Fragment,
	}
	for i, e := range r.Entries {
		v.Entries[i] = domain.NewsEntry{Title: e.Title, Summary: e.Summary, Link: e.Link}
		if e.Published != "" {
			v.Entries[i].Published, _ = time.Parse(time.RFC3339, e.Published)
		}
	}
	return v
}

func DecodeDisclaimer(r finvestigator.DisclaimerResponse) *dashboard.DisclaimerView {
	return &dashboard.DisclaimerView{Title: r.Title, Markdown: r.Markdown, HTML: r.HTML}
}

func DecodeRuns(r finvestigator.RecentResponse) []domain.ForecastRun {
	out := make([]domain.ForecastRun, len(r.Runs))
	for i, run := range r.Runs {
		out[i] = domain.ForecastRun(run)
	}
	return out
}
