package rates

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/orend/fincast/internal/domain"
	"github.com/orend/fincast/internal/utils"
)

// Source answers point lookups against stored index values.
// Both the sqlite Repository and the in-memory MemorySource implement it.
type Source interface {
	LatestAtOrBefore(index string, t time.Time) (RatePoint, bool, error)
	EarliestAtOrAfter(index string, t time.Time) (RatePoint, bool, error)
}

// Provider implements domain.RateProvider on top of a Source.
//
// Resolution policy:
//   - exact or earlier month found: prime holds the last known value flat,
//     CPI extrapolates forward with the configured annual drift
//   - month precedes the known range: backfill with the earliest known value
//   - index unknown entirely: error
type Provider struct {
	source      Source
	cpiDriftPct float64 // expected annual CPI increase beyond known data
	log         zerolog.Logger
}

// NewProvider creates a rate provider with the given CPI drift assumption
func NewProvider(source Source, cpiDriftPct float64, log zerolog.Logger) *Provider {
	return &Provider{
		source:      source,
		cpiDriftPct: cpiDriftPct,
		log:         log.With().Str("service", "rates").Logger(),
	}
}

// RateAt returns the index value for the month containing t
func (p *Provider) RateAt(index string, t time.Time) (float64, error) {
	month := utils.MonthStart(t)

	pt, found, err := p.source.LatestAtOrBefore(index, month)
	if err != nil {
		return 0, err
	}
	if found {
		if index == domain.IndexCPI && p.cpiDriftPct != 0 && pt.Month.Before(month) {
			gap := utils.MonthsBetween(pt.Month, month)
			return pt.Value * math.Pow(utils.AnnualPctToMonthlyFactor(p.cpiDriftPct), float64(gap)), nil
		}
		return pt.Value, nil
	}

	// Before the known range: hold the earliest value flat backwards
	pt, found, err = p.source.EarliestAtOrAfter(index, month)
	if err != nil {
		return 0, err
	}
	if found {
		p.log.Debug().Str("index", index).Time("month", month).Msg("Backfilling rate from earliest known point")
		return pt.Value, nil
	}

	return 0, fmt.Errorf("no data for index %q", index)
}

// MemorySource serves rate lookups from explicit in-memory points.
// Used by tests and by scenario runs that pin an expected index path.
type MemorySource struct {
	points map[string][]RatePoint // sorted by month, ascending
}

// NewMemorySource builds a source from per-index point lists
func NewMemorySource(points map[string][]RatePoint) *MemorySource {
	sorted := make(map[string][]RatePoint, len(points))
	for index, pts := range points {
		cp := append([]RatePoint(nil), pts...)
		sort.Slice(cp, func(i, j int) bool { return cp[i].Month.Before(cp[j].Month) })
		sorted[index] = cp
	}
	return &MemorySource{points: sorted}
}

// LatestAtOrBefore returns the most recent point at or before the month of t
func (m *MemorySource) LatestAtOrBefore(index string, t time.Time) (RatePoint, bool, error) {
	pts, ok := m.points[index]
	if !ok {
		return RatePoint{}, false, nil
	}

	month := utils.MonthStart(t)
	for i := len(pts) - 1; i >= 0; i-- {
		if !pts[i].Month.After(month) {
			return pts[i], true, nil
		}
	}
	return RatePoint{}, false, nil
}

// EarliestAtOrAfter returns the oldest point at or after the month of t
func (m *MemorySource) EarliestAtOrAfter(index string, t time.Time) (RatePoint, bool, error) {
	pts, ok := m.points[index]
	if !ok {
		return RatePoint{}, false, nil
	}

	month := utils.MonthStart(t)
	for _, pt := range pts {
		if !pt.Month.Before(month) {
			return pt, true, nil
		}
	}
	return RatePoint{}, false, nil
}
