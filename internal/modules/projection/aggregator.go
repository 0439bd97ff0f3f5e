package projection

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/orend/fincast/internal/domain"
	"github.com/orend/fincast/internal/utils"
)

// aggregator folds per-entity simulation output into portfolio-level series
type aggregator struct{}

// Aggregate builds net worth, totals, the cash-flow breakdown and the
// accumulated-cash series from raw simulation output, and attaches
// measurement markers to per-entity projections.
func (a aggregator) Aggregate(out *SimulationOutput, measurements []domain.HistoricalMeasurement) (*domain.ProjectionResult, error) {
	months := monthRange(out.Start, out.End)
	n := len(months)

	totalAssets := make([]float64, n)
	totalLiabilities := make([]float64, n)

	result := &domain.ProjectionResult{
		NetWorthSeries:         domain.Series{},
		TotalAssetsSeries:      domain.Series{},
		TotalLiabilitiesSeries: domain.Series{},
		AccumulatedCashSeries:  domain.Series{},
		Breakdown: domain.CashFlowBreakdown{
			Income:    make(map[domain.FlowCategory][]domain.FlowSource),
			Expense:   make(map[domain.FlowCategory][]domain.FlowSource),
			NetSeries: domain.Series{},
		},
	}

	markers := markersByEntity(measurements, out.Start, out.End)

	for _, ao := range out.Assets {
		floats.Add(totalAssets, alignSeries(ao.Proj.Series, months))
		result.Assets = append(result.Assets, domain.EntityProjection{
			EntityID: ao.Asset.ID,
			Name:     ao.Asset.Name,
			Series:   ao.Proj.Series,
			Markers:  markers[ao.Asset.ID],
		})
	}

	for _, lo := range out.Loans {
		floats.Add(totalLiabilities, alignSeries(lo.Proj.Balance, months))
		result.Loans = append(result.Loans, domain.EntityProjection{
			EntityID: lo.Loan.ID,
			Name:     lo.Loan.Name,
			Series:   lo.Proj.Balance,
			Payments: lo.Proj.Payments,
			Markers:  markers[lo.Loan.ID],
		})
	}

	// Net worth is assets minus liabilities, month by month
	netWorth := make([]float64, n)
	copy(netWorth, totalAssets)
	floats.Sub(netWorth, totalLiabilities)

	for i, m := range months {
		result.TotalAssetsSeries[m] = utils.Round2(totalAssets[i])
		result.TotalLiabilitiesSeries[m] = utils.Round2(totalLiabilities[i])
		result.NetWorthSeries[m] = utils.Round2(netWorth[i])
	}

	if err := a.buildBreakdown(out, result, months); err != nil {
		return nil, err
	}

	return result, nil
}

// buildBreakdown groups monthly flows by category and source, computes the
// net series and the running accumulated-cash series
func (a aggregator) buildBreakdown(out *SimulationOutput, result *domain.ProjectionResult, months []string) error {
	seen := make(map[string]bool) // category+name, collisions are an input error

	addSource := func(income bool, cat domain.FlowCategory, name string, s domain.Series) error {
		if len(s) == 0 {
			return nil
		}
		key := string(cat) + "\x00" + name
		if seen[key] {
			return domain.NewValidationError("breakdown", "duplicate source %q in category %q", name, cat)
		}
		seen[key] = true

		src := domain.FlowSource{Name: name, Series: s}
		if income {
			result.Breakdown.Income[cat] = append(result.Breakdown.Income[cat], src)
		} else {
			result.Breakdown.Expense[cat] = append(result.Breakdown.Expense[cat], src)
		}
		return nil
	}

	for _, ro := range out.Revenues {
		cat, ok := revenueCategory(ro.Stream.Kind)
		if !ok {
			return domain.NewValidationError("revenue_stream.kind", "unknown kind %q", ro.Stream.Kind)
		}
		if err := addSource(true, cat, ro.Stream.Name, ro.Series); err != nil {
			return err
		}
	}

	for _, ao := range out.Assets {
		if err := addSource(true, domain.CategoryWithdrawal, ao.Asset.Name, ao.Proj.Withdrawals); err != nil {
			return err
		}
		if err := addSource(true, domain.CategoryPension, ao.Asset.Name, ao.Proj.PensionPayout); err != nil {
			return err
		}
		if err := addSource(false, domain.CategoryDeposit, ao.Asset.Name, ao.Proj.OwnDeposits); err != nil {
			return err
		}
	}

	for _, lo := range out.Loans {
		if err := addSource(false, domain.CategoryLoanPayment, lo.Loan.Name, lo.Proj.Payments); err != nil {
			return err
		}
	}

	// Net flow and running cash, month by month. Sale proceeds and
	// in-horizon purchases move cash without appearing in the breakdown
	// categories; when a cash asset already absorbed them they show up in
	// its value series instead and must not count twice here.
	running := 0.0
	for _, m := range months {
		net := 0.0
		for _, sources := range result.Breakdown.Income {
			for _, src := range sources {
				net += src.Series[m]
			}
		}
		for _, sources := range result.Breakdown.Expense {
			for _, src := range sources {
				net -= src.Series[m]
			}
		}
		result.Breakdown.NetSeries[m] = utils.Round2(net)

		running += net
		for _, ao := range out.Assets {
			if out.CashAssetID != "" && ao.Asset.ID != out.CashAssetID {
				continue
			}
			running += ao.Proj.SaleProceeds[m]
			running -= ao.Proj.PurchaseCost[m]
		}
		result.AccumulatedCashSeries[m] = utils.Round2(running)
	}

	return nil
}

func revenueCategory(kind domain.RevenueKind) (domain.FlowCategory, bool) {
	switch kind {
	case domain.RevenueKindSalary:
		return domain.CategorySalary, true
	case domain.RevenueKindRent:
		return domain.CategoryRent, true
	case domain.RevenueKindDividend:
		return domain.CategoryDividend, true
	case domain.RevenueKindPension:
		return domain.CategoryPension, true
	}
	return "", false
}

// monthRange lists every month key from start to end inclusive
func monthRange(start, end time.Time) []string {
	var months []string
	for m := start; !m.After(end); m = utils.AddMonths(m, 1) {
		months = append(months, utils.FormatMonth(m))
	}
	return months
}

// alignSeries expands a sparse series onto the canonical month grid,
// missing months contributing zero
func alignSeries(s domain.Series, months []string) []float64 {
	vec := make([]float64, len(months))
	for i, m := range months {
		vec[i] = s[m]
	}
	return vec
}

// markersByEntity groups in-range measurements as markers per entity
func markersByEntity(measurements []domain.HistoricalMeasurement, start, end time.Time) map[string][]domain.Marker {
	byEntity := make(map[string][]domain.Marker)
	for _, hm := range measurements {
		m := utils.MonthStart(hm.Date)
		if m.Before(start) || m.After(end) {
			continue
		}
		byEntity[hm.EntityID] = append(byEntity[hm.EntityID], domain.Marker{
			Date:  utils.FormatMonth(hm.Date),
			Value: hm.Value,
		})
	}
	return byEntity
}
