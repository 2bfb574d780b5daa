package main

import (
	"fmt"
	"strings"

	"finvestigator/internal/charts"
	"finvestigator/internal/dashboard"
	"finvestigator/internal/domain"
	"finvestigator/internal/news"
)

func (m model) renderContent() string {
	var b strings.Builder

	if m.notice != nil {
		style := warningStyle
		if m.notice.Level() == dashboard.LevelError {
			style = errorStyle
		}
		b.WriteString(style.Render(" " + m.notice.Message + " "))
		b.WriteString("\n\n")
	}
	if m.loading {
		b.WriteString(dimStyle.Render("Loading..."))
		return b.String()
	}

	switch m.page {
	case dashboard.PageNews:
		if m.news != nil {
			m.renderNews(&b, m.news)
		}
	case dashboard.PageDisclaimer:
		if m.disclaim != nil {
			b.WriteString(m.disclaim.Markdown)
		}
	default:
		if m.home != nil {
			m.renderHome(&b, m.home)
		} else if m.notice == nil {
			b.WriteString(dimStyle.Render("Enter a ticker and press enter."))
		}
	}
	return b.String()
}

func (m model) sparkWidth() int {
	w := m.width - 16
	if w < 10 {
		w = 10
	}
	if w > 120 {
		w = 120
	}
	return w
}

func (m model) renderHome(b *strings.Builder, v *dashboard.HomeView) {
	p := v.Profile
	b.WriteString(headingStyle.Render(dashboard.OrDash(p.Name)))
	fmt.Fprintf(b, "  %s\n", labelStyle.Render(v.Symbol))
	fmt.Fprintf(b, "%s %s   %s %s   %s %s\n",
		labelStyle.Render("Industry:"), dashboard.OrDash(p.Industry),
		labelStyle.Render("Sector:"), dashboard.OrDash(p.Sector),
		labelStyle.Render("Country:"), dashboard.OrDash(p.Country))
	if p.Summary != "" {
		b.WriteString(dimStyle.Render(wrap(p.Summary, m.width-2)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	s := v.Stats
	change := dashboard.FormatChange(s.Change)
	if s.Change >= 0 {
		change = gainStyle.Render(change)
	} else {
		change = lossStyle.Render(change)
	}
	fmt.Fprintf(b, "%s %s .. %s   %s %s   %s %s   %s %s   %s %s\n",
		labelStyle.Render("Range:"), s.FirstDate, s.LastDate,
		labelStyle.Render("Close:"), dashboard.FormatPrice(s.Close),
		labelStyle.Render("Change:"), change,
		labelStyle.Render("Volume:"), dashboard.FormatInt(s.Volume),
		labelStyle.Render("Turnover:"), dashboard.FormatTurnover(s.Turnover))
	fmt.Fprintf(b, "%s %s   %s %s   %s %s   %s %s\n\n",
		labelStyle.Render("High:"), dashboard.FormatPrice(s.High),
		labelStyle.Render("Low:"), dashboard.FormatPrice(s.Low),
		labelStyle.Render("Max gain:"), dashboard.FormatChange(s.MaxGain),
		labelStyle.Render("Max loss:"), dashboard.FormatChange(-s.MaxLoss))

	b.WriteString(headingStyle.Render("Raw Data"))
	b.WriteString("\n")
	renderBars(b, v.RawTail())
	fmt.Fprintf(b, "\n%s %s\n\n", labelStyle.Render("Close  "), sparkStyle.Render(charts.Sparkline(v.Bars.Closes(), m.sparkWidth())))

	f := v.Forecast
	if f == nil {
		return
	}
	b.WriteString(headingStyle.Render("Forecast Data"))
	b.WriteString("\n")
	renderForecast(b, f.Tail())

	yhat := make([]float64, len(f.Rows))
	for i, r := range f.Rows {
		yhat[i] = r.YHat
	}
	fmt.Fprintf(b, "\n%s %s\n", labelStyle.Render("yhat   "), forecastStyle.Render(charts.Sparkline(yhat, m.sparkWidth())))
	fmt.Fprintf(b, "%s\n\n", dimStyle.Render(fmt.Sprintf("%d history rows, %d forecast days", f.HistoryRows, f.Horizon)))

	b.WriteString(headingStyle.Render("Forecast Components"))
	b.WriteString("\n")
	trend := make([]float64, len(f.Components.Trend))
	for i, pt := range f.Components.Trend {
		trend[i] = pt.Value
	}
	fmt.Fprintf(b, "%s %s\n", labelStyle.Render("trend  "), sparkStyle.Render(charts.Sparkline(trend, m.sparkWidth())))
	if len(f.Components.Weekly) > 0 {
		b.WriteString(labelStyle.Render("weekly "))
		for _, pt := range f.Components.Weekly {
			fmt.Fprintf(b, " %s %+.2f", pt.Label[:3], pt.Value)
		}
		b.WriteString("\n")
	}
	if len(f.Components.Yearly) > 0 {
		yearly := make([]float64, len(f.Components.Yearly))
		for i, pt := range f.Components.Yearly {
			yearly[i] = pt.Value
		}
		fmt.Fprintf(b, "%s %s\n", labelStyle.Render("yearly "), sparkStyle.Render(charts.Sparkline(yearly, m.sparkWidth())))
	}
}

func renderBars(b *strings.Builder, bars domain.Series) {
	fmt.Fprintf(b, "%s\n", labelStyle.Render(fmt.Sprintf("%-12s %12s %12s %12s %12s %14s", "Date", "Open", "High", "Low", "Close", "Volume")))
	for _, bar := range bars {
		fmt.Fprintf(b, "%-12s %12s %12s %12s %12s %14s\n",
			bar.Timestamp.Format("2006-01-02"),
			dashboard.FormatPrice(bar.Open), dashboard.FormatPrice(bar.High),
			dashboard.FormatPrice(bar.Low), dashboard.FormatPrice(bar.Close),
			dashboard.FormatInt(bar.Volume))
	}
}

func renderForecast(b *strings.Builder, rows []domain.ForecastRow) {
	fmt.Fprintf(b, "%s\n", labelStyle.Render(fmt.Sprintf("%-12s %12s %12s %12s %12s", "ds", "yhat", "yhat_lower", "yhat_upper", "trend")))
	for _, r := range rows {
		fmt.Fprintf(b, "%-12s %12s %12s %12s %12s\n",
			r.DS.Format("2006-01-02"),
			dashboard.FormatPrice(r.YHat), dashboard.FormatPrice(r.YHatLower),
			dashboard.FormatPrice(r.YHatUpper), dashboard.FormatPrice(r.Trend))
	}
}

func (m model) renderNews(b *strings.Builder, v *dashboard.NewsView) {
	b.WriteString(headingStyle.Render("Latest Market News"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(v.FeedURL))
	b.WriteString("\n\n")
	for _, e := range v.Entries {
		b.WriteString(headingStyle.Render(e.Title))
		b.WriteString("\n")
		if !e.Published.IsZero() {
			b.WriteString(dimStyle.Render(e.Published.Local().Format("Mon, 02 Jan 2006 15:04")))
			b.WriteString("\n")
		}
		if summary := news.MarkdownSummary(e.Summary); summary != "" {
			b.WriteString(wrap(summary, m.width-2))
			b.WriteString("\n")
		}
		if e.Link != "" {
			b.WriteString(labelStyle.Render(e.Link))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
}

// wrap breaks text on spaces so no line exceeds width.
func wrap(text string, width int) string {
	if width < 20 {
		width = 20
	}
	var out strings.Builder
	for i, para := range strings.Split(text, "\n") {
		if i > 0 {
			out.WriteByte('\n')
		}
		n := 0
		for j, word := range strings.Fields(para) {
			if j > 0 {
				if n+1+len(word) > width {
					out.WriteByte('\n')
					n = 0
				} else {
					out.WriteByte(' ')
					n++
				}
			}
			out.WriteString(word)
			n += len(word)
		}
	}
	return out.String()
}
