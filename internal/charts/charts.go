// Package charts builds Plotly figures for the HTML pages and a compact
// text sparkline for the terminal UI.
package charts

import (
	"encoding/json"
	"time"

	"finvestigator/internal/domain"
	"finvestigator/internal/forecast"
)

// RawDataTitle is the title of the raw price chart.
const RawDataTitle = "Time series data with Rangeslider"

const (
	actualColor = "black"
	yhatColor   = "#0072B2"
	bandColor   = "rgba(0, 114, 178, 0.2)"
)

// Figure is a Plotly figure: traces plus layout.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// JSON encodes the figure for Plotly.newPlot.
func (f Figure) JSON() ([]byte, error) { return json.Marshal(f) }

// Trace is one Plotly scatter trace.
type Trace struct {
	Type       string    `json:"type"`
	Mode       string    `json:"mode,omitempty"`
	Name       string    `json:"name,omitempty"`
	X          []string  `json:"x"`
	Y          []float64 `json:"y"`
	Fill       string    `json:"fill,omitempty"`
	FillColor  string    `json:"fillcolor,omitempty"`
	Line       *Line     `json:"line,omitempty"`
	Marker     *Marker   `json:"marker,omitempty"`
	HoverInfo  string    `json:"hoverinfo,omitempty"`
	ShowLegend *bool     `json:"showlegend,omitempty"`
	XAxis      string    `json:"xaxis,omitempty"`
	YAxis      string    `json:"yaxis,omitempty"`
}

type Line struct {
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width"`
}

type Marker struct {
	Color string  `json:"color,omitempty"`
	Size  float64 `json:"size,omitempty"`
}

type Font struct {
	Family string `json:"family,omitempty"`
	Size   int    `json:"size,omitempty"`
}

type Title struct {
	Text string `json:"text"`
	Font *Font  `json:"font,omitempty"`
}

type RangeSlider struct {
	Visible bool `json:"visible"`
}

// Axis is a Plotly x or y axis. Domain positions a subplot.
type Axis struct {
	Title       *Title       `json:"title,omitempty"`
	Type        string       `json:"type,omitempty"`
	Domain      []float64    `json:"domain,omitempty"`
	Anchor      string       `json:"anchor,omitempty"`
	RangeSlider *RangeSlider `json:"rangeslider,omitempty"`
}

// Layout holds up to three stacked subplots.
type Layout struct {
	Title      *Title `json:"title,omitempty"`
	ShowLegend *bool  `json:"showlegend,omitempty"`
	Height     int    `json:"height,omitempty"`
	XAxis      *Axis  `json:"xaxis,omitempty"`
	YAxis      *Axis  `json:"yaxis,omitempty"`
	XAxis2     *Axis  `json:"xaxis2,omitempty"`
	YAxis2     *Axis  `json:"yaxis2,omitempty"`
	XAxis3     *Axis  `json:"xaxis3,omitempty"`
	YAxis3     *Axis  `json:"yaxis3,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

func dates(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Format("2006-01-02")
	}
	return out
}

// RawData plots the open and close of every bar with a range slider.
func RawData(series domain.Series) Figure {
	ts := make([]time.Time, len(series))
	open := make([]float64, len(series))
	for i, b := range series {
		ts[i] = b.Timestamp
		open[i] = b.Open
	}
	x := dates(ts)
	return Figure{
		Data: []Trace{
			{Type: "scatter", Name: "stock_open", X: x, Y: open},
			{Type: "scatter", Name: "stock_close", X: x, Y: series.Closes()},
		},
		Layout: Layout{
			Title: &Title{Text: RawDataTitle, Font: &Font{Family: "Arial", Size: 25}},
			XAxis: &Axis{RangeSlider: &RangeSlider{Visible: true}},
		},
	}
}

// Forecast plots the actual closes as markers over the predicted line and
// its uncertainty band.
func Forecast(series domain.Series, rows []domain.ForecastRow) Figure {
	ts := make([]time.Time, len(series))
	for i, b := range series {
		ts[i] = b.Timestamp
	}

	fts := make([]time.Time, len(rows))
	yhat := make([]float64, len(rows))
	lower := make([]float64, len(rows))
	upper := make([]float64, len(rows))
	for i, r := range rows {
		fts[i] = r.DS
		yhat[i] = r.YHat
		lower[i] = r.YHatLower
		upper[i] = r.YHatUpper
	}
	fx := dates(fts)

	return Figure{
		Data: []Trace{
			{Type: "scatter", Mode: "markers", Name: "Actual", X: dates(ts), Y: series.Closes(),
				Marker: &Marker{Color: actualColor, Size: 4}},
			{Type: "scatter", Mode: "lines", Name: "Lower Bound", X: fx, Y: lower,
				Line: &Line{Width: 0}, HoverInfo: "skip"},
			{Type: "scatter", Mode: "lines", Name: "Predicted", X: fx, Y: yhat,
				Line: &Line{Color: yhatColor, Width: 2}, Fill: "tonexty", FillColor: bandColor},
			{Type: "scatter", Mode: "lines", Name: "Upper Bound", X: fx, Y: upper,
				Line: &Line{Width: 0}, Fill: "tonexty", FillColor: bandColor, HoverInfo: "skip"},
		},
		Layout: Layout{
			ShowLegend: boolPtr(false),
			Height:     400,
			XAxis:      &Axis{Title: &Title{Text: "ds"}, Type: "date", RangeSlider: &RangeSlider{Visible: true}},
			YAxis:      &Axis{Title: &Title{Text: "y"}},
		},
	}
}

// Components plots trend, weekly and yearly as stacked subplots. Panels
// for seasonalities that were not fitted are left out.
func Components(c forecast.Components) Figure {
	type panel struct {
		name   string
		trace  []Trace
		xTitle string
	}
	var panels []panel

	if len(c.Trend) > 0 {
		ts := make([]time.Time, len(c.Trend))
		v := make([]float64, len(c.Trend))
		lo := make([]float64, len(c.Trend))
		hi := make([]float64, len(c.Trend))
		for i, p := range c.Trend {
			ts[i], v[i], lo[i], hi[i] = p.DS, p.Value, p.Lower, p.Upper
		}
		x := dates(ts)
		panels = append(panels, panel{name: "trend", xTitle: "ds", trace: []Trace{
			{Type: "scatter", Mode: "lines", X: x, Y: lo, Line: &Line{Width: 0}, HoverInfo: "skip"},
			{Type: "scatter", Mode: "lines", Name: "trend", X: x, Y: v,
				Line: &Line{Color: yhatColor, Width: 2}, Fill: "tonexty", FillColor: bandColor},
			{Type: "scatter", Mode: "lines", X: x, Y: hi, Line: &Line{Width: 0},
				Fill: "tonexty", FillColor: bandColor, HoverInfo: "skip"},
		}})
	}
	if len(c.Weekly) > 0 {
		panels = append(panels, panel{name: "weekly", xTitle: "Day of week", trace: []Trace{profileTrace("weekly", c.Weekly)}})
	}
	if len(c.Yearly) > 0 {
		panels = append(panels, panel{name: "yearly", xTitle: "Day of year", trace: []Trace{profileTrace("yearly", c.Yearly)}})
	}

	fig := Figure{Layout: Layout{ShowLegend: boolPtr(false), Height: 250 * max(len(panels), 1)}}
	n := float64(len(panels))
	gap := 0.08
	for i, p := range panels {
		// Panel 0 sits on top.
		top := 1 - float64(i)/n
		bottom := 1 - float64(i+1)/n + gap/2
		if i == len(panels)-1 {
			bottom = 0
		}
		suffix := ""
		if i > 0 {
			suffix = string(rune('1' + i))
		}
		x := &Axis{Title: &Title{Text: p.xTitle}, Anchor: "y" + suffix}
		y := &Axis{Title: &Title{Text: p.name}, Domain: []float64{bottom, top - gap/2}, Anchor: "x" + suffix}
		if i == 0 {
			y.Domain[1] = top
		}
		switch i {
		case 0:
			fig.Layout.XAxis, fig.Layout.YAxis = x, y
		case 1:
			fig.Layout.XAxis2, fig.Layout.YAxis2 = x, y
		case 2:
			fig.Layout.XAxis3, fig.Layout.YAxis3 = x, y
		}
		for _, tr := range p.trace {
			tr.XAxis, tr.YAxis = "x"+suffix, "y"+suffix
			tr.ShowLegend = boolPtr(false)
			fig.Data = append(fig.Data, tr)
		}
	}
	return fig
}

func profileTrace(name string, pts []forecast.ProfilePoint) Trace {
	x := make([]string, len(pts))
	y := make([]float64, len(pts))
	for i, p := range pts {
		x[i], y[i] = p.Label, p.Value
	}
	return Trace{Type: "scatter", Mode: "lines", Name: name, X: x, Y: y, Line: &Line{Color: yhatColor, Width: 2}}
}
