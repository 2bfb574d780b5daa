package httpapi

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"finvestigator/internal/charts"
	"finvestigator/internal/dashboard"
)

var templateFuncs = template.FuncMap{
	"price":    dashboard.FormatPrice,
	"change":   dashboard.FormatChange,
	"int":      dashboard.FormatInt,
	"turnover": dashboard.FormatTurnover,
	"dash":     dashboard.OrDash,
	"date":     func(t time.Time) string { return t.Format(dateLayout) },
	"safe":     func(s string) template.HTML { return template.HTML(s) },
}

// pageData is everything the layout template renders. Exactly one of
// Home, News and Disclaimer is set unless Notice halted the render.
type pageData struct {
	Pages      []dashboard.Page
	Current    dashboard.Page
	Ticker     string
	Years      int
	Notice     *dashboard.Notice
	Home       *homePage
	News       *dashboard.NewsView
	Disclaimer *dashboard.DisclaimerView
}

type homePage struct {
	*dashboard.HomeView
	RawChart        template.JS
	ForecastChart   template.JS
	ComponentsChart template.JS
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/"+dashboard.Pages[0].Slug(), http.StatusFound)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("page")
	page := dashboard.ParsePage(slug)
	if page.Slug() != slug {
		http.Redirect(w, r, "/"+page.Slug(), http.StatusFound)
		return
	}

	data := pageData{Pages: dashboard.Pages, Current: page, Years: 1}
	ctx := r.Context()
	var err error

	switch page {
	case dashboard.PageHome:
		data.Ticker = r.URL.Query().Get("ticker")
		if data.Years, err = parseYears(r); err == nil {
			var view *dashboard.HomeView
			if view, err = s.dash.Home(ctx, dashboard.HomeRequest{Ticker: data.Ticker, Years: data.Years}); err == nil {
				data.Home, err = homePageFor(view)
			}
		}
		if data.Years < 1 || data.Years > 6 {
			data.Years = 1
		}
	case dashboard.PageNews:
		data.News, err = s.dash.News(ctx)
	case dashboard.PageDisclaimer:
		data.Disclaimer, err = s.dash.Disclaimer(ctx)
	}
	if err != nil {
		data.Notice = dashboard.AsNotice(err)
		if data.Notice.Kind == dashboard.KindUpstream {
			s.log.Warn("page render halted", "page", page.Slug(), "error", err)
		}
	}

	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.log.Error("rendering page", "page", page.Slug(), "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func homePageFor(v *dashboard.HomeView) (*homePage, error) {
	raw, err := charts.RawData(v.Bars).JSON()
	if err != nil {
		return nil, err
	}
	fc, err := charts.Forecast(v.Bars, v.Forecast.Rows).JSON()
	if err != nil {
		return nil, err
	}
	comp, err := charts.Components(v.Forecast.Components).JSON()
	if err != nil {
		return nil, err
	}
	return &homePage{
		HomeView:        v,
		RawChart:        template.JS(raw),
		ForecastChart:   template.JS(fc),
		ComponentsChart: template.JS(comp),
	}, nil
}
