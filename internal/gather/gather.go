// Package gather defines the market-data source boundary used by the loader
// and the local archive source. Network sources live in subpackages.
package gather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"finvestigator/internal/domain"
)

var (
	// ErrNoData means the upstream answered but had no bars for the range.
	ErrNoData = errors.New("no data for symbol and range")

	// ErrNoProfile means the source has no company profile for the symbol.
	ErrNoProfile = errors.New("no company profile")
)

// Source fetches daily bars and company profiles for one provider.
type Source interface {
	// Name returns the source identifier used in config and logs.
	Name() string
	// FetchBars returns daily bars in [r.Start, r.End], oldest first. An
	// empty result is reported as ErrNoData.
	FetchBars(ctx context.Context, symbol string, r DateRange) ([]domain.Bar, error)
	// FetchProfile returns descriptive fields for the symbol.
	FetchProfile(ctx context.Context, symbol string) (*domain.CompanyProfile, error)
}

// DateRange represents a time range for data fetching.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Key formats the range as "YYYY-MM-DD..YYYY-MM-DD".
func (r DateRange) Key() string {
	return r.Start.Format("2006-01-02") + ".." + r.End.Format("2006-01-02")
}

// Valid reports whether the range is non-empty and ordered.
func (r DateRange) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && !r.End.Before(r.Start)
}

// StatusError is an unexpected HTTP status from an upstream API.
type StatusError struct {
	Source string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Source, e.Code)
	}
	return fmt.Sprintf("%s: status %d, body: %s", e.Source, e.Code, e.Body)
}

// Retryable reports whether another attempt could succeed. Missing data,
// cancellation and client errors other than 429 are final.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoData) || errors.Is(err, ErrNoProfile) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return true
}
