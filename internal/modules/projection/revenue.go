package projection

import (
	"math"
	"time"

	"github.com/orend/fincast/internal/domain"
	"github.com/orend/fincast/internal/utils"
)

// revenueCalculator projects a revenue stream as net monthly amounts
type revenueCalculator struct{}

// Project normalizes the stream to its monthly equivalent, compounds annual
// growth in yearly steps from the stream start, and applies tax
// multiplicatively. Output covers the months where the stream is active
// inside [simStart, simEnd].
func (c revenueCalculator) Project(stream *domain.RevenueStream, simStart, simEnd time.Time) (domain.Series, error) {
	out := domain.Series{}

	periodMonths := domain.MonthsPerPeriod(stream.Period)
	if periodMonths == 0 {
		return nil, domain.NewValidationError("revenue_stream.period", "unknown period %q", stream.Period)
	}

	streamStart := utils.MonthStart(stream.StartDate)
	streamEnd := utils.NeverDate
	if !stream.EndDate.IsZero() {
		streamEnd = utils.MonthStart(stream.EndDate)
	}

	firstMonth := simStart
	if streamStart.After(simStart) {
		firstMonth = streamStart
	}

	monthlyGross := stream.AmountPerPeriod / float64(periodMonths)
	netFactor := 1 - stream.TaxPct/100

	for m := firstMonth; !m.After(simEnd) && !m.After(streamEnd); m = utils.AddMonths(m, 1) {
		yearsElapsed := utils.MonthsBetween(streamStart, m) / 12
		grown := monthlyGross * math.Pow(1+stream.AnnualGrowthPct/100, float64(yearsElapsed))
		net := grown * netFactor

		if math.IsNaN(net) || math.IsInf(net, 0) {
			return nil, &domain.ComputationError{
				EntityID: stream.ID,
				Month:    utils.FormatMonth(m),
				Reason:   "non-finite revenue amount",
			}
		}

		out.Set(m, utils.Round2(net))
	}

	return out, nil
}

// ProjectYield projects a dividend stream as a monthly payout yield on the
// linked asset's projected value. Before the stream start the asset
// reinvests the dividends and no income is paid; after the asset is sold
// the series naturally ends.
func (c revenueCalculator) ProjectYield(stream *domain.RevenueStream, linked domain.Series, simStart, simEnd time.Time) (domain.Series, error) {
	out := domain.Series{}

	if stream.YieldPct < 0 {
		return nil, domain.NewValidationError("revenue_stream.yield_pct",
			"dividend yield must not be negative, got %.2f", stream.YieldPct)
	}

	streamStart := utils.MonthStart(stream.StartDate)
	streamEnd := utils.NeverDate
	if !stream.EndDate.IsZero() {
		streamEnd = utils.MonthStart(stream.EndDate)
	}

	firstMonth := simStart
	if streamStart.After(simStart) {
		firstMonth = streamStart
	}

	yieldMonthly := stream.YieldPct / 100 / 12
	netFactor := 1 - stream.TaxPct/100

	for m := firstMonth; !m.After(simEnd) && !m.After(streamEnd); m = utils.AddMonths(m, 1) {
		v, ok := linked.At(m)
		if !ok || v <= 0 {
			continue
		}
		out.Set(m, utils.Round2(v*yieldMonthly*netFactor))
	}

	return out, nil
}
