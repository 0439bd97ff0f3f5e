// Package domain provides core domain models and types.
package domain

import (
	"time"

	"github.com/orend/fincast/internal/utils"
)

// AssetType classifies an asset for growth and cash-conversion semantics
type AssetType string

const (
	AssetTypeStock      AssetType = "stock"
	AssetTypeFund       AssetType = "fund"
	AssetTypePension    AssetType = "pension"
	AssetTypeRealEstate AssetType = "real_estate"
	AssetTypeCash       AssetType = "cash"
	AssetTypeOther      AssetType = "other"
)

// LoanType selects the amortization model
type LoanType string

const (
	// LoanTypeFixed - classic annuity with a constant rate
	LoanTypeFixed LoanType = "fixed"
	// LoanTypePrimePegged - rate follows the prime index plus a margin
	LoanTypePrimePegged LoanType = "prime_pegged"
	// LoanTypeCPIPegged - principal is indexed to CPI before each payment
	LoanTypeCPIPegged LoanType = "cpi_pegged"
	// LoanTypeVariable - base rate drifts annually by an expected adjustment
	LoanTypeVariable LoanType = "variable"
)

// RevenueKind classifies a revenue stream for cash-flow breakdown
type RevenueKind string

const (
	RevenueKindSalary   RevenueKind = "salary"
	RevenueKindRent     RevenueKind = "rent"
	RevenueKindDividend RevenueKind = "dividend"
	RevenueKindPension  RevenueKind = "pension"
)

// RevenuePeriod is the payout frequency of a revenue stream
type RevenuePeriod string

const (
	PeriodMonthly   RevenuePeriod = "monthly"
	PeriodQuarterly RevenuePeriod = "quarterly"
	PeriodYearly    RevenuePeriod = "yearly"
)

// MonthsPerPeriod maps a payout frequency to its length in months.
// Unknown periods map to 0 so validation catches them.
func MonthsPerPeriod(p RevenuePeriod) int {
	switch p {
	case PeriodMonthly:
		return 1
	case PeriodQuarterly:
		return 3
	case PeriodYearly:
		return 12
	}
	return 0
}

// CashFlowKind is the direction of a recurring cash flow
type CashFlowKind string

const (
	CashFlowDeposit    CashFlowKind = "deposit"
	CashFlowWithdrawal CashFlowKind = "withdrawal"
)

// DefaultPensionCoefficient divides a pension pot into a monthly annuity
// when no coefficient is configured.
const DefaultPensionCoefficient = 200.0

// PensionConfig describes conversion of a pension pot into a monthly annuity.
// At the conversion month the pot value becomes zero and a monthly payout of
// value/coefficient starts.
type PensionConfig struct {
	ConversionDate time.Time `json:"conversion_date"`
	Coefficient    float64   `json:"coefficient"`
}

// TransformEvent changes an asset's profile from a date onward, attached by
// a scenario (e.g. selling stock to buy real estate). Nil change fields keep
// the current value.
type TransformEvent struct {
	Date               time.Time `json:"date"`
	NewType            AssetType `json:"new_type,omitempty"`
	NewName            string    `json:"new_name,omitempty"`
	NewAnnualGrowthPct *float64  `json:"new_annual_growth_pct,omitempty"`
	NewYearlyFeePct    *float64  `json:"new_yearly_fee_pct,omitempty"`
}

// CrashEvent is a one-off market shock attached to an asset by a scenario.
// At the crash month the asset value is rebased to value*(1-Pct/100);
// growth compounds from the reduced base afterwards.
type CrashEvent struct {
	Date time.Time `json:"date"`
	Pct  float64   `json:"pct"`
}

// Asset is a value-bearing holding projected month by month
type Asset struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Type            AssetType        `json:"type"`
	Value           float64          `json:"value"`             // current value at snapshot time
	InitialValue    float64          `json:"initial_value"`     // cost basis for sell-tax gain
	AnnualGrowthPct float64          `json:"annual_growth_pct"` // expected annual growth, percent
	YearlyFeePct    float64          `json:"yearly_fee_pct"`    // management fee drag, percent per year
	PurchaseDate    time.Time        `json:"purchase_date"`
	SellDate        time.Time        `json:"sell_date"` // NeverDate when the asset is held forever
	SellTaxPct      float64          `json:"sell_tax_pct"`
	Pension         *PensionConfig   `json:"pension,omitempty"`
	Crashes         []CrashEvent     `json:"crashes,omitempty"`
	Transforms      []TransformEvent `json:"transforms,omitempty"`
}

// NeverSold reports whether the asset has no sale planned inside any
// realistic horizon.
func (a *Asset) NeverSold() bool {
	return a.SellDate.IsZero() || !a.SellDate.Before(utils.NeverDate)
}

// LoanConfig carries the model-specific knobs of a loan
type LoanConfig struct {
	EndDate         time.Time `json:"end_date,omitempty"`          // overrides start+duration when set
	PrimeMarginPct  float64   `json:"prime_margin_pct,omitempty"`  // prime_pegged: spread over the prime index
	ExpectedCPIPct  float64   `json:"expected_cpi_pct,omitempty"`  // cpi_pegged: annual CPI drift beyond known data
	AnnualAdjustPct float64   `json:"annual_adjust_pct,omitempty"` // variable: yearly base-rate drift
	RateIndex       string    `json:"rate_index,omitempty"`        // index name for pegged loans
}

// ExtraRepayment is a lump-sum principal reduction injected by a scenario.
// The remaining schedule re-amortizes over the remaining term.
type ExtraRepayment struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// Loan is a liability amortized month by month
type Loan struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Type            LoanType         `json:"type"`
	Principal       float64          `json:"principal"`       // original amount
	CurrentBalance  float64          `json:"current_balance"` // balance at snapshot time
	AnnualRatePct   float64          `json:"annual_rate_pct"`
	DurationMonths  int              `json:"duration_months"`
	StartDate       time.Time        `json:"start_date"`
	Config          LoanConfig       `json:"config"`
	ExtraRepayments []ExtraRepayment `json:"extra_repayments,omitempty"`
}

// EndDate returns the month the loan schedule ends: the configured end-date
// override when present, otherwise start + duration.
func (l *Loan) EndDate() time.Time {
	if !l.Config.EndDate.IsZero() {
		return utils.MonthStart(l.Config.EndDate)
	}
	return utils.AddMonths(l.StartDate, l.DurationMonths)
}

// RevenueStream is recurring income, normalized to monthly equivalents.
// A dividend stream with YieldPct set pays a yield on the linked asset's
// projected value instead of a fixed amount; before StartDate the dividends
// are reinvested into the asset.
type RevenueStream struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Kind            RevenueKind   `json:"kind"`
	AmountPerPeriod float64       `json:"amount_per_period"`
	Period          RevenuePeriod `json:"period"`
	AnnualGrowthPct float64       `json:"annual_growth_pct"`
	TaxPct          float64       `json:"tax_pct"`
	StartDate       time.Time     `json:"start_date"`
	EndDate         time.Time     `json:"end_date"` // NeverDate when open-ended
	LinkedAssetID   string        `json:"linked_asset_id,omitempty"`
	YieldPct        float64       `json:"yield_pct,omitempty"` // annual payout yield on the linked asset
}

// IsYieldDriven reports whether the stream pays a yield on a linked asset
// rather than a fixed amount per period.
func (r *RevenueStream) IsYieldDriven() bool {
	return r.YieldPct != 0 && r.LinkedAssetID != ""
}

// CashFlow is a recurring deposit into or withdrawal from a target asset.
// Conversion flows are synthesized by the engine to move sale proceeds and
// purchase costs through the cash position; they are never user input and
// never appear in the cash-flow breakdown.
type CashFlow struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Kind           CashFlowKind `json:"kind"`
	MonthlyAmount  float64      `json:"monthly_amount"`
	StartDate      time.Time    `json:"start_date"`
	EndDate        time.Time    `json:"end_date"` // NeverDate when open-ended
	TargetAssetID  string       `json:"target_asset_id"`
	FromOwnCapital bool         `json:"from_own_capital"` // false for employer contributions
	Conversion     bool         `json:"-"`
}

// HistoricalMeasurement is an observed value for an entity at a date.
// Measurements annotate projection output; they never shift computed curves.
type HistoricalMeasurement struct {
	ID       string    `json:"id"`
	EntityID string    `json:"entity_id"`
	Date     time.Time `json:"date"`
	Value    float64   `json:"value"`
}

// Portfolio is an immutable snapshot of everything the simulation consumes.
// Version changes whenever the underlying data changes; the projection cache
// keys on it.
type Portfolio struct {
	UserID       string                  `json:"user_id"`
	Version      int64                   `json:"version"`
	Assets       []Asset                 `json:"assets"`
	Loans        []Loan                  `json:"loans"`
	Revenues     []RevenueStream         `json:"revenues"`
	CashFlows    []CashFlow              `json:"cash_flows"`
	Measurements []HistoricalMeasurement `json:"measurements"`
}

// Clone returns a deep copy. Scenario application always works on a clone;
// the snapshot handed to the engine is never mutated.
func (p *Portfolio) Clone() *Portfolio {
	out := &Portfolio{
		UserID:  p.UserID,
		Version: p.Version,
	}

	if p.Assets != nil {
		out.Assets = make([]Asset, len(p.Assets))
		for i, a := range p.Assets {
			out.Assets[i] = a
			if a.Pension != nil {
				pc := *a.Pension
				out.Assets[i].Pension = &pc
			}
			if a.Crashes != nil {
				out.Assets[i].Crashes = append([]CrashEvent(nil), a.Crashes...)
			}
			if a.Transforms != nil {
				out.Assets[i].Transforms = append([]TransformEvent(nil), a.Transforms...)
			}
		}
	}

	if p.Loans != nil {
		out.Loans = make([]Loan, len(p.Loans))
		for i, l := range p.Loans {
			out.Loans[i] = l
			if l.ExtraRepayments != nil {
				out.Loans[i].ExtraRepayments = append([]ExtraRepayment(nil), l.ExtraRepayments...)
			}
		}
	}

	if p.Revenues != nil {
		out.Revenues = append([]RevenueStream(nil), p.Revenues...)
	}
	if p.CashFlows != nil {
		out.CashFlows = append([]CashFlow(nil), p.CashFlows...)
	}
	if p.Measurements != nil {
		out.Measurements = append([]HistoricalMeasurement(nil), p.Measurements...)
	}

	return out
}

// AssetByID finds an asset in the portfolio. Returns nil when absent.
func (p *Portfolio) AssetByID(id string) *Asset {
	for i := range p.Assets {
		if p.Assets[i].ID == id {
			return &p.Assets[i]
		}
	}
	return nil
}

// LoanByID finds a loan in the portfolio. Returns nil when absent.
func (p *Portfolio) LoanByID(id string) *Loan {
	for i := range p.Loans {
		if p.Loans[i].ID == id {
			return &p.Loans[i]
		}
	}
	return nil
}
