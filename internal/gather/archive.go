package gather

import (
	"context"
	"fmt"
	"strings"

	"finvestigator/internal/domain"
	"finvestigator/internal/store"
)

// Compile-time interface check.
var _ Source = (*ArchiveSource)(nil)

// ArchiveSource serves bars previously written to the local bar archive.
type ArchiveSource struct {
	store  store.BarStore
	market domain.Market
}

// NewArchiveSource creates a source reading the given market from s.
func NewArchiveSource(s store.BarStore, market domain.Market) *ArchiveSource {
	return &ArchiveSource{store: s, market: market}
}

// Name returns the source identifier.
func (a *ArchiveSource) Name() string { return "archive" }

// FetchBars reads archived bars for the symbol and range.
func (a *ArchiveSource) FetchBars(ctx context.Context, symbol string, r DateRange) ([]domain.Bar, error) {
	bars, err := a.store.ReadBars(ctx, strings.ToUpper(symbol), a.market, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("archive read %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return bars, nil
}

// FetchProfile always returns ErrNoProfile; the archive holds prices only.
func (a *ArchiveSource) FetchProfile(_ context.Context, _ string) (*domain.CompanyProfile, error) {
	return nil, ErrNoProfile
}
