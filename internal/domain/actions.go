package domain

import (
	"time"

	"github.com/orend/fincast/internal/utils"
)

// ActionKind identifies a scenario action. The set is closed: anything else
// fails validation before simulation starts.
type ActionKind string

const (
	ActionParamChange       ActionKind = "param_change"
	ActionNewAsset          ActionKind = "new_asset"
	ActionNewLoan           ActionKind = "new_loan"
	ActionRepayLoan         ActionKind = "repay_loan"
	ActionTransformAsset    ActionKind = "transform_asset"
	ActionWithdrawFromAsset ActionKind = "withdraw_from_asset"
	ActionDepositToAsset    ActionKind = "deposit_to_asset"
	ActionMarketCrash       ActionKind = "market_crash"
	ActionAddRevenueStream  ActionKind = "add_revenue_stream"
)

// TargetKind names the entity family a param_change addresses
type TargetKind string

const (
	TargetAsset   TargetKind = "asset"
	TargetLoan    TargetKind = "loan"
	TargetRevenue TargetKind = "revenue_stream"
)

// ParamChange replaces a single parameter on an existing entity.
// Exactly one of NumericValue and DateValue must be set.
type ParamChange struct {
	TargetKind   TargetKind `json:"target_kind"`
	TargetID     string     `json:"target_id"`
	Param        string     `json:"param"`
	NumericValue *float64   `json:"numeric_value,omitempty"`
	DateValue    *time.Time `json:"date_value,omitempty"`
}

// RepayLoan injects a lump-sum principal repayment at a date
type RepayLoan struct {
	LoanID string    `json:"loan_id"`
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// TransformAsset changes an asset's type and growth profile at a date,
// e.g. selling stock to buy real estate.
type TransformAsset struct {
	AssetID            string    `json:"asset_id"`
	Date               time.Time `json:"date"`
	NewType            AssetType `json:"new_type"`
	NewName            string    `json:"new_name,omitempty"`
	NewAnnualGrowthPct *float64  `json:"new_annual_growth_pct,omitempty"`
	NewYearlyFeePct    *float64  `json:"new_yearly_fee_pct,omitempty"`
}

// AssetTransfer is a one-off deposit to or withdrawal from an asset
type AssetTransfer struct {
	AssetID        string    `json:"asset_id"`
	Date           time.Time `json:"date"`
	Amount         float64   `json:"amount"`
	FromOwnCapital bool      `json:"from_own_capital,omitempty"`
}

// MarketCrash rebases the value of matching assets at a date.
// Empty AssetTypes means every growth-bearing asset is hit.
type MarketCrash struct {
	Date       time.Time   `json:"date"`
	Pct        float64     `json:"pct"`
	AssetTypes []AssetType `json:"asset_types,omitempty"`
}

// ScenarioAction is one step of a what-if scenario. Kind selects which
// payload field is meaningful; validation enforces the pairing.
type ScenarioAction struct {
	Kind        ActionKind      `json:"kind"`
	ParamChange *ParamChange    `json:"param_change,omitempty"`
	Asset       *Asset          `json:"asset,omitempty"`
	Loan        *Loan           `json:"loan,omitempty"`
	Repay       *RepayLoan      `json:"repay,omitempty"`
	Transform   *TransformAsset `json:"transform,omitempty"`
	Transfer    *AssetTransfer  `json:"transfer,omitempty"`
	Crash       *MarketCrash    `json:"crash,omitempty"`
	Revenue     *RevenueStream  `json:"revenue,omitempty"`
}

// Validate checks structural correctness of the action: known kind, payload
// present, amounts and rates in range. Reference checks against a concrete
// portfolio happen later, at application time.
func (a *ScenarioAction) Validate() error {
	switch a.Kind {
	case ActionParamChange:
		pc := a.ParamChange
		if pc == nil {
			return NewValidationError("param_change", "missing payload")
		}
		if pc.TargetKind != TargetAsset && pc.TargetKind != TargetLoan && pc.TargetKind != TargetRevenue {
			return NewValidationError("param_change.target_kind", "unknown target kind %q", pc.TargetKind)
		}
		if pc.TargetID == "" {
			return NewValidationError("param_change.target_id", "required")
		}
		if pc.Param == "" {
			return NewValidationError("param_change.param", "required")
		}
		if (pc.NumericValue == nil) == (pc.DateValue == nil) {
			return NewValidationError("param_change", "exactly one of numeric_value and date_value must be set")
		}

	case ActionNewAsset:
		if a.Asset == nil {
			return NewValidationError("new_asset", "missing payload")
		}
		if a.Asset.Name == "" {
			return NewValidationError("new_asset.name", "required")
		}
		if err := utils.ValidateRatePct(a.Asset.AnnualGrowthPct); err != nil {
			return NewValidationError("new_asset.annual_growth_pct", "%v", err)
		}

	case ActionNewLoan:
		if a.Loan == nil {
			return NewValidationError("new_loan", "missing payload")
		}
		if a.Loan.Name == "" {
			return NewValidationError("new_loan.name", "required")
		}
		if a.Loan.DurationMonths <= 0 && a.Loan.Config.EndDate.IsZero() {
			return NewValidationError("new_loan.duration_months", "must be positive")
		}
		if a.Loan.Principal <= 0 {
			return NewValidationError("new_loan.principal", "must be positive")
		}

	case ActionRepayLoan:
		if a.Repay == nil {
			return NewValidationError("repay_loan", "missing payload")
		}
		if a.Repay.LoanID == "" {
			return NewValidationError("repay_loan.loan_id", "required")
		}
		if a.Repay.Amount <= 0 {
			return NewValidationError("repay_loan.amount", "must be positive")
		}
		if a.Repay.Date.IsZero() {
			return NewValidationError("repay_loan.date", "required")
		}

	case ActionTransformAsset:
		if a.Transform == nil {
			return NewValidationError("transform_asset", "missing payload")
		}
		if a.Transform.AssetID == "" {
			return NewValidationError("transform_asset.asset_id", "required")
		}
		if a.Transform.NewType == "" && a.Transform.NewAnnualGrowthPct == nil &&
			a.Transform.NewYearlyFeePct == nil && a.Transform.NewName == "" {
			return NewValidationError("transform_asset", "no changes specified")
		}

	case ActionWithdrawFromAsset, ActionDepositToAsset:
		if a.Transfer == nil {
			return NewValidationError(string(a.Kind), "missing payload")
		}
		if a.Transfer.AssetID == "" {
			return NewValidationError(string(a.Kind)+".asset_id", "required")
		}
		if a.Transfer.Amount <= 0 {
			return NewValidationError(string(a.Kind)+".amount", "must be positive")
		}
		if a.Transfer.Date.IsZero() {
			return NewValidationError(string(a.Kind)+".date", "required")
		}

	case ActionMarketCrash:
		if a.Crash == nil {
			return NewValidationError("market_crash", "missing payload")
		}
		if a.Crash.Pct <= 0 || a.Crash.Pct > 100 {
			return NewValidationError("market_crash.pct", "must be in (0, 100], got %.2f", a.Crash.Pct)
		}
		if a.Crash.Date.IsZero() {
			return NewValidationError("market_crash.date", "required")
		}

	case ActionAddRevenueStream:
		if a.Revenue == nil {
			return NewValidationError("add_revenue_stream", "missing payload")
		}
		if a.Revenue.Name == "" {
			return NewValidationError("add_revenue_stream.name", "required")
		}
		if MonthsPerPeriod(a.Revenue.Period) == 0 {
			return NewValidationError("add_revenue_stream.period", "unknown period %q", a.Revenue.Period)
		}
		if a.Revenue.YieldPct < 0 {
			return NewValidationError("add_revenue_stream.yield_pct", "must not be negative, got %.2f", a.Revenue.YieldPct)
		}

	default:
		return NewValidationError("kind", "unknown action kind %q", a.Kind)
	}

	return nil
}
