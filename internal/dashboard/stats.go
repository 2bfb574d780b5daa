package dashboard

import (
	"math"

	"finvestigator/internal/domain"
)

// SeriesStats summarises a bar series for the Home page header.
type SeriesStats struct {
	Bars      int
	High      float64
	Low       float64
	Open      float64 // first close in the series
	Close     float64 // last close in the series
	Volume    int64
	Turnover  float64 // sum(close * volume)
	Change    float64 // (Close - Open) / Open
	MaxGain   float64 // best buy-low-then-sell-high return over the series
	MaxLoss   float64 // worst buy-high-then-sell-low drawdown over the series
	FirstDate string
	LastDate  string
}

// ComputeStats walks the series once in time order.
func ComputeStats(series domain.Series) SeriesStats {
	s := SeriesStats{Bars: len(series)}
	if len(series) == 0 {
		return s
	}

	s.Low = math.MaxFloat64
	minPrice := math.MaxFloat64
	maxPrice := 0.0

	for i, b := range series {
		s.Volume += b.Volume
		s.Turnover += b.Close * float64(b.Volume)
		if b.High > s.High {
			s.High = b.High
		}
		if b.Low > 0 && b.Low < s.Low {
			s.Low = b.Low
		}
		if i == 0 {
			s.Open = b.Close
		}
		s.Close = b.Close

		// Max gain: buy at lowest close seen so far, sell now.
		if b.Close < minPrice {
			minPrice = b.Close
		}
		if minPrice > 0 {
			if g := (b.Close - minPrice) / minPrice; g > s.MaxGain {
				s.MaxGain = g
			}
		}
		// Max loss: buy at highest close seen so far, sell now.
		if b.Close > maxPrice {
			maxPrice = b.Close
		}
		if maxPrice > 0 {
			if l := (maxPrice - b.Close) / maxPrice; l > s.MaxLoss {
				s.MaxLoss = l
			}
		}
	}
	if s.Low == math.MaxFloat64 {
		s.Low = 0
	}
	if s.Open > 0 {
		s.Change = (s.Close - s.Open) / s.Open
	}
	s.FirstDate = series[0].Timestamp.Format("2006-01-02")
	s.LastDate = series[len(series)-1].Timestamp.Format("2006-01-02")
	return s
}
