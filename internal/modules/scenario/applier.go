// Package scenario replays what-if actions against a cloned portfolio
// snapshot. The input snapshot is never mutated; a scenario either applies
// completely or not at all.
package scenario

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orend/fincast/internal/domain"
	"github.com/orend/fincast/internal/utils"
)

// Applier validates and applies scenario actions
type Applier struct {
	log zerolog.Logger
}

// NewApplier creates a scenario applier
func NewApplier(log zerolog.Logger) *Applier {
	return &Applier{
		log: log.With().Str("service", "scenario").Logger(),
	}
}

// Apply validates every action up front, deep-clones the portfolio and
// applies the actions in order. A ReferenceError on any action aborts the
// whole scenario; the caller never sees a partially applied portfolio.
func (a *Applier) Apply(p *domain.Portfolio, actions []domain.ScenarioAction) (*domain.Portfolio, error) {
	for i := range actions {
		if err := actions[i].Validate(); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
	}

	clone := p.Clone()

	for i := range actions {
		if err := a.applyOne(clone, &actions[i]); err != nil {
			return nil, fmt.Errorf("action %d (%s): %w", i, actions[i].Kind, err)
		}
	}

	a.log.Debug().Int("actions", len(actions)).Msg("Scenario applied")
	return clone, nil
}

func (a *Applier) applyOne(p *domain.Portfolio, action *domain.ScenarioAction) error {
	switch action.Kind {
	case domain.ActionParamChange:
		return applyParamChange(p, action.ParamChange)

	case domain.ActionNewAsset:
		asset := *action.Asset
		if asset.ID == "" {
			asset.ID = uuid.New().String()
		}
		if asset.SellDate.IsZero() {
			asset.SellDate = utils.NeverDate
		}
		if asset.InitialValue == 0 {
			asset.InitialValue = asset.Value
		}
		p.Assets = append(p.Assets, asset)

	case domain.ActionNewLoan:
		loan := *action.Loan
		if loan.ID == "" {
			loan.ID = uuid.New().String()
		}
		if loan.CurrentBalance == 0 {
			loan.CurrentBalance = loan.Principal
		}
		p.Loans = append(p.Loans, loan)

	case domain.ActionRepayLoan:
		loan := p.LoanByID(action.Repay.LoanID)
		if loan == nil {
			return &domain.ReferenceError{EntityKind: "loan", EntityID: action.Repay.LoanID}
		}
		loan.ExtraRepayments = append(loan.ExtraRepayments, domain.ExtraRepayment{
			Date:   action.Repay.Date,
			Amount: action.Repay.Amount,
		})

	case domain.ActionTransformAsset:
		asset := p.AssetByID(action.Transform.AssetID)
		if asset == nil {
			return &domain.ReferenceError{EntityKind: "asset", EntityID: action.Transform.AssetID}
		}
		asset.Transforms = append(asset.Transforms, domain.TransformEvent{
			Date:               action.Transform.Date,
			NewType:            action.Transform.NewType,
			NewName:            action.Transform.NewName,
			NewAnnualGrowthPct: action.Transform.NewAnnualGrowthPct,
			NewYearlyFeePct:    action.Transform.NewYearlyFeePct,
		})

	case domain.ActionWithdrawFromAsset, domain.ActionDepositToAsset:
		return applyTransfer(p, action)

	case domain.ActionMarketCrash:
		applyCrash(p, action.Crash)

	case domain.ActionAddRevenueStream:
		stream := *action.Revenue
		if stream.ID == "" {
			stream.ID = uuid.New().String()
		}
		if stream.EndDate.IsZero() {
			stream.EndDate = utils.NeverDate
		}
		p.Revenues = append(p.Revenues, stream)
	}

	return nil
}

// applyTransfer injects a one-off deposit or withdrawal as a single-month
// cash flow targeting the asset
func applyTransfer(p *domain.Portfolio, action *domain.ScenarioAction) error {
	t := action.Transfer
	asset := p.AssetByID(t.AssetID)
	if asset == nil {
		return &domain.ReferenceError{EntityKind: "asset", EntityID: t.AssetID}
	}

	kind := domain.CashFlowDeposit
	name := fmt.Sprintf("One-off deposit to %s", asset.Name)
	fromOwn := t.FromOwnCapital
	if action.Kind == domain.ActionWithdrawFromAsset {
		kind = domain.CashFlowWithdrawal
		name = fmt.Sprintf("One-off withdrawal from %s", asset.Name)
		fromOwn = false
	}

	month := utils.MonthStart(t.Date)
	p.CashFlows = append(p.CashFlows, domain.CashFlow{
		ID:             uuid.New().String(),
		Name:           name,
		Kind:           kind,
		MonthlyAmount:  t.Amount,
		StartDate:      month,
		EndDate:        month,
		TargetAssetID:  t.AssetID,
		FromOwnCapital: fromOwn,
	})
	return nil
}

// applyCrash attaches the shock to every matching asset. With no explicit
// types, every growth-bearing asset is hit; cash is spared.
func applyCrash(p *domain.Portfolio, crash *domain.MarketCrash) {
	match := func(t domain.AssetType) bool {
		if len(crash.AssetTypes) == 0 {
			return t != domain.AssetTypeCash
		}
		for _, at := range crash.AssetTypes {
			if at == t {
				return true
			}
		}
		return false
	}

	for i := range p.Assets {
		if match(p.Assets[i].Type) {
			p.Assets[i].Crashes = append(p.Assets[i].Crashes, domain.CrashEvent{
				Date: crash.Date,
				Pct:  crash.Pct,
			})
		}
	}
}

// applyParamChange replaces one parameter on an existing entity.
// The change is forward-effective over the whole simulation.
func applyParamChange(p *domain.Portfolio, pc *domain.ParamChange) error {
	switch pc.TargetKind {
	case domain.TargetAsset:
		asset := p.AssetByID(pc.TargetID)
		if asset == nil {
			return &domain.ReferenceError{EntityKind: "asset", EntityID: pc.TargetID}
		}
		return applyAssetParam(asset, pc)

	case domain.TargetLoan:
		loan := p.LoanByID(pc.TargetID)
		if loan == nil {
			return &domain.ReferenceError{EntityKind: "loan", EntityID: pc.TargetID}
		}
		return applyLoanParam(loan, pc)

	case domain.TargetRevenue:
		for i := range p.Revenues {
			if p.Revenues[i].ID == pc.TargetID {
				return applyRevenueParam(&p.Revenues[i], pc)
			}
		}
		return &domain.ReferenceError{EntityKind: "revenue_stream", EntityID: pc.TargetID}
	}

	return nil
}

func applyAssetParam(asset *domain.Asset, pc *domain.ParamChange) error {
	switch pc.Param {
	case "value":
		return setNumeric(pc, &asset.Value)
	case "annual_growth_pct":
		return setRate(pc, &asset.AnnualGrowthPct)
	case "yearly_fee_pct":
		return setNumeric(pc, &asset.YearlyFeePct)
	case "sell_tax_pct":
		return setNumeric(pc, &asset.SellTaxPct)
	case "sell_date":
		return setDate(pc, &asset.SellDate)
	}
	return domain.NewValidationError("param_change.param", "unknown asset param %q", pc.Param)
}

func applyLoanParam(loan *domain.Loan, pc *domain.ParamChange) error {
	switch pc.Param {
	case "annual_rate_pct":
		return setRate(pc, &loan.AnnualRatePct)
	case "current_balance":
		return setNumeric(pc, &loan.CurrentBalance)
	case "duration_months":
		var v float64
		if err := setNumeric(pc, &v); err != nil {
			return err
		}
		if v <= 0 {
			return domain.NewValidationError("param_change.numeric_value", "duration_months must be positive")
		}
		loan.DurationMonths = int(v)
		return nil
	case "end_date":
		return setDate(pc, &loan.Config.EndDate)
	}
	return domain.NewValidationError("param_change.param", "unknown loan param %q", pc.Param)
}

func applyRevenueParam(stream *domain.RevenueStream, pc *domain.ParamChange) error {
	switch pc.Param {
	case "amount_per_period":
		return setNumeric(pc, &stream.AmountPerPeriod)
	case "annual_growth_pct":
		return setRate(pc, &stream.AnnualGrowthPct)
	case "tax_pct":
		return setNumeric(pc, &stream.TaxPct)
	case "yield_pct":
		return setRate(pc, &stream.YieldPct)
	case "start_date":
		return setDate(pc, &stream.StartDate)
	case "end_date":
		return setDate(pc, &stream.EndDate)
	}
	return domain.NewValidationError("param_change.param", "unknown revenue param %q", pc.Param)
}

func setNumeric(pc *domain.ParamChange, dst *float64) error {
	if pc.NumericValue == nil {
		return domain.NewValidationError("param_change", "param %q requires a numeric value", pc.Param)
	}
	*dst = *pc.NumericValue
	return nil
}

func setRate(pc *domain.ParamChange, dst *float64) error {
	if pc.NumericValue == nil {
		return domain.NewValidationError("param_change", "param %q requires a numeric value", pc.Param)
	}
	if err := utils.ValidateRatePct(*pc.NumericValue); err != nil {
		return domain.NewValidationError("param_change.numeric_value", "%v", err)
	}
	*dst = *pc.NumericValue
	return nil
}

func setDate(pc *domain.ParamChange, dst *time.Time) error {
	if pc.DateValue == nil {
		return domain.NewValidationError("param_change", "param %q requires a date value", pc.Param)
	}
	*dst = *pc.DateValue
	return nil
}
