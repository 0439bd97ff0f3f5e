// Package projection implements the monthly simulation engine: per-entity
// calculators, the simulator loop, series aggregation, and the projection
// service orchestrating them.
package projection

import (
	"math"
	"time"

	"github.com/orend/fincast/internal/domain"
	"github.com/orend/fincast/internal/utils"
)

// AssetProjection is the full monthly output for one asset
type AssetProjection struct {
	Series        domain.Series // end-of-month value
	OwnDeposits   domain.Series // own-capital deposits (a user expense)
	Withdrawals   domain.Series // withdrawals paid out to the user
	PensionPayout domain.Series // monthly annuity after pension conversion
	SaleProceeds  domain.Series // after-tax proceeds credited at the sell month
	PurchaseCost  domain.Series // purchases inside the horizon debit cash
}

// assetCalculator projects a single asset month by month
type assetCalculator struct{}

// dividendPlan carries the yield of a linked dividend stream into the asset
// projection. Until payoutStart the dividends compound into the value; from
// payoutStart they are paid out by the stream and leave the value untouched.
type dividendPlan struct {
	yieldMonthly float64 // decimal monthly yield
	payoutStart  time.Time
}

// Project walks the asset from simStart to simEnd (inclusive, month starts).
// The value at the first active month is the snapshot value; growth, fees,
// crashes and cash flows apply on each following month. div is the optional
// reinvestment plan of a linked dividend stream.
func (c assetCalculator) Project(asset *domain.Asset, flows []domain.CashFlow, div *dividendPlan, simStart, simEnd time.Time) (*AssetProjection, error) {
	out := &AssetProjection{
		Series:        domain.Series{},
		OwnDeposits:   domain.Series{},
		Withdrawals:   domain.Series{},
		PensionPayout: domain.Series{},
		SaleProceeds:  domain.Series{},
		PurchaseCost:  domain.Series{},
	}

	purchaseMonth := utils.MonthStart(asset.PurchaseDate)
	firstMonth := simStart
	if purchaseMonth.After(simStart) {
		firstMonth = purchaseMonth
	}
	if firstMonth.After(simEnd) {
		return out, nil
	}

	sellMonth := time.Time{}
	if !asset.NeverSold() {
		sellMonth = utils.MonthStart(asset.SellDate)
	}

	growthFactor := utils.AnnualPctToMonthlyFactor(asset.AnnualGrowthPct)
	feeFactor := 1 - asset.YearlyFeePct/100/12

	var converted bool // pension pot already converted to annuity
	var payout float64

	value := asset.Value

	// An asset bought inside the horizon costs its value in cash
	if purchaseMonth.After(simStart) {
		out.PurchaseCost.Set(firstMonth, value)
	}

	for m := firstMonth; !m.After(simEnd); m = utils.AddMonths(m, 1) {
		if !m.Equal(firstMonth) && !converted {
			value *= growthFactor * feeFactor
			if div != nil && m.Before(div.payoutStart) {
				value *= 1 + div.yieldMonthly
			}
		}

		// Transforms switch the growth profile from their month onward
		for _, tr := range asset.Transforms {
			if utils.SameMonth(tr.Date, m) {
				if tr.NewAnnualGrowthPct != nil {
					growthFactor = utils.AnnualPctToMonthlyFactor(*tr.NewAnnualGrowthPct)
				}
				if tr.NewYearlyFeePct != nil {
					feeFactor = 1 - *tr.NewYearlyFeePct/100/12
				}
			}
		}

		// Market shocks rebase the value; later growth compounds from the
		// reduced base
		for _, crash := range asset.Crashes {
			if utils.SameMonth(crash.Date, m) {
				value *= 1 - crash.Pct/100
			}
		}

		// Recurring cash flows within their window
		for _, f := range flows {
			if !flowActive(&f, m) {
				continue
			}
			switch f.Kind {
			case domain.CashFlowDeposit:
				value += f.MonthlyAmount
				if f.FromOwnCapital {
					addTo(out.OwnDeposits, m, f.MonthlyAmount)
				}
			case domain.CashFlowWithdrawal:
				if f.Conversion {
					// Purchase funding may overdraw the cash position
					value -= f.MonthlyAmount
					break
				}
				withdrawn := math.Min(f.MonthlyAmount, value)
				if withdrawn > 0 {
					value -= withdrawn
					addTo(out.Withdrawals, m, withdrawn)
				}
			}
		}

		// Pension conversion: the pot becomes a monthly annuity
		if asset.Pension != nil && !converted && !m.Before(utils.MonthStart(asset.Pension.ConversionDate)) {
			coeff := asset.Pension.Coefficient
			if coeff == 0 {
				coeff = domain.DefaultPensionCoefficient
			}
			if coeff < 0 {
				return nil, &domain.ComputationError{
					EntityID: asset.ID,
					Month:    utils.FormatMonth(m),
					Reason:   "pension coefficient must be positive",
				}
			}
			payout = value / coeff
			value = 0
			converted = true
		}
		if converted && payout > 0 {
			out.PensionPayout.Set(m, payout)
		}

		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, &domain.ComputationError{
				EntityID: asset.ID,
				Month:    utils.FormatMonth(m),
				Reason:   "non-finite asset value",
			}
		}

		// Sale: tax the gain, credit the proceeds, end the series
		if !sellMonth.IsZero() && !m.Before(sellMonth) {
			gain := value - asset.InitialValue
			tax := 0.0
			if gain > 0 {
				tax = gain * asset.SellTaxPct / 100
			}
			out.SaleProceeds.Set(m, value-tax)
			out.Series.Set(m, 0)
			break
		}

		out.Series.Set(m, utils.Round2(value))
	}

	return out, nil
}

// flowActive reports whether a cash flow applies in month m
func flowActive(f *domain.CashFlow, m time.Time) bool {
	if f.StartDate.IsZero() {
		return false
	}
	start := utils.MonthStart(f.StartDate)
	if m.Before(start) {
		return false
	}
	if f.EndDate.IsZero() {
		return true
	}
	return !m.After(utils.MonthStart(f.EndDate))
}

func addTo(s domain.Series, m time.Time, v float64) {
	cur, _ := s.At(m)
	s.Set(m, cur+v)
}
