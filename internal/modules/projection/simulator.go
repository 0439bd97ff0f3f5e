package projection

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/orend/fincast/internal/domain"
	"github.com/orend/fincast/internal/utils"
)

// AssetOutput pairs an asset with its projection
type AssetOutput struct {
	Asset domain.Asset
	Proj  *AssetProjection
}

// LoanOutput pairs a loan with its projection
type LoanOutput struct {
	Loan domain.Loan
	Proj *LoanProjection
}

// RevenueOutput pairs a revenue stream with its net monthly series
type RevenueOutput struct {
	Stream domain.RevenueStream
	Series domain.Series
}

// SimulationOutput holds the raw per-entity results of one simulation run.
// CashAssetID names the cash asset that absorbed sale proceeds and purchase
// costs; empty when the portfolio has no cash asset.
type SimulationOutput struct {
	Assets      []AssetOutput
	Loans       []LoanOutput
	Revenues    []RevenueOutput
	Start       time.Time
	End         time.Time
	CashAssetID string
}

// Simulator runs the monthly simulation across every entity of a portfolio.
// It is deterministic: the same portfolio and date range always produce the
// same output.
type Simulator struct {
	assets   assetCalculator
	loans    loanCalculator
	revenues revenueCalculator
	log      zerolog.Logger
}

// NewSimulator creates a simulator backed by the given rate provider
func NewSimulator(rates domain.RateProvider, log zerolog.Logger) *Simulator {
	return &Simulator{
		loans: loanCalculator{rates: rates},
		log:   log.With().Str("service", "simulator").Logger(),
	}
}

// Run projects every entity over [start, end], both normalized to month
// starts. The portfolio is read-only; scenario mutations happen on a clone
// before this point.
func (s *Simulator) Run(p *domain.Portfolio, start, end time.Time) (*SimulationOutput, error) {
	simStart := utils.MonthStart(start)
	simEnd := utils.MonthStart(end)
	if simEnd.Before(simStart) {
		return nil, domain.NewValidationError("date_range", "end %s before start %s",
			utils.FormatMonth(simEnd), utils.FormatMonth(simStart))
	}

	out := &SimulationOutput{Start: simStart, End: simEnd}

	flowsByAsset, err := groupFlows(p)
	if err != nil {
		return nil, err
	}

	plans, err := dividendPlans(p)
	if err != nil {
		return nil, err
	}

	// The first cash asset absorbs sale proceeds and purchase costs, so it
	// is projected last with the conversion flows of every other asset.
	cashIdx := -1
	for i := range p.Assets {
		if p.Assets[i].Type == domain.AssetTypeCash {
			cashIdx = i
			break
		}
	}

	out.Assets = make([]AssetOutput, len(p.Assets))
	var conversions []domain.CashFlow
	for i := range p.Assets {
		if i == cashIdx {
			continue
		}
		asset := &p.Assets[i]
		proj, err := s.assets.Project(asset, flowsByAsset[asset.ID], plans[asset.ID], simStart, simEnd)
		if err != nil {
			return nil, err
		}
		out.Assets[i] = AssetOutput{Asset: *asset, Proj: proj}
		if cashIdx >= 0 {
			conversions = append(conversions, conversionFlows(asset, proj, p.Assets[cashIdx].ID, simStart, simEnd)...)
		}
	}
	if cashIdx >= 0 {
		asset := &p.Assets[cashIdx]
		flows := append(flowsByAsset[asset.ID], conversions...)
		proj, err := s.assets.Project(asset, flows, plans[asset.ID], simStart, simEnd)
		if err != nil {
			return nil, err
		}
		out.Assets[cashIdx] = AssetOutput{Asset: *asset, Proj: proj}
		out.CashAssetID = asset.ID
	}

	for i := range p.Loans {
		loan := &p.Loans[i]
		proj, err := s.loans.Project(loan, simStart, simEnd)
		if err != nil {
			return nil, err
		}
		out.Loans = append(out.Loans, LoanOutput{Loan: *loan, Proj: proj})
	}

	assetSeries := make(map[string]domain.Series, len(out.Assets))
	for _, ao := range out.Assets {
		assetSeries[ao.Asset.ID] = ao.Proj.Series
	}

	for i := range p.Revenues {
		stream := &p.Revenues[i]
		var series domain.Series
		var err error
		if stream.IsYieldDriven() {
			series, err = s.revenues.ProjectYield(stream, assetSeries[stream.LinkedAssetID], simStart, simEnd)
		} else {
			series, err = s.revenues.Project(stream, simStart, simEnd)
		}
		if err != nil {
			return nil, err
		}
		out.Revenues = append(out.Revenues, RevenueOutput{Stream: *stream, Series: series})
	}

	s.log.Debug().
		Int("assets", len(out.Assets)).
		Int("loans", len(out.Loans)).
		Int("revenues", len(out.Revenues)).
		Time("start", simStart).
		Time("end", simEnd).
		Msg("Simulation complete")

	return out, nil
}

// dividendPlans indexes yield-driven dividend streams by linked asset,
// rejecting dangling links and doubled-up streams before simulation starts
func dividendPlans(p *domain.Portfolio) (map[string]*dividendPlan, error) {
	plans := make(map[string]*dividendPlan)
	for i := range p.Revenues {
		stream := &p.Revenues[i]
		if !stream.IsYieldDriven() {
			continue
		}
		if p.AssetByID(stream.LinkedAssetID) == nil {
			return nil, domain.NewValidationError("revenue_stream.linked_asset_id",
				"dividend stream %q links unknown asset %q", stream.Name, stream.LinkedAssetID)
		}
		if plans[stream.LinkedAssetID] != nil {
			return nil, domain.NewValidationError("revenue_stream.linked_asset_id",
				"asset %q already has a dividend stream", stream.LinkedAssetID)
		}
		plans[stream.LinkedAssetID] = &dividendPlan{
			yieldMonthly: stream.YieldPct / 100 / 12,
			payoutStart:  utils.MonthStart(stream.StartDate),
		}
	}
	return plans, nil
}

// conversionFlows turns an asset's sale proceeds and purchase costs into
// single-month flows against the cash asset
func conversionFlows(a *domain.Asset, proj *AssetProjection, cashID string, simStart, simEnd time.Time) []domain.CashFlow {
	var flows []domain.CashFlow
	for m := simStart; !m.After(simEnd); m = utils.AddMonths(m, 1) {
		if v, ok := proj.SaleProceeds.At(m); ok && v > 0 {
			flows = append(flows, domain.CashFlow{
				Name:          a.Name + " sale",
				Kind:          domain.CashFlowDeposit,
				MonthlyAmount: v,
				StartDate:     m,
				EndDate:       m,
				TargetAssetID: cashID,
				Conversion:    true,
			})
		}
		if v, ok := proj.PurchaseCost.At(m); ok && v > 0 {
			flows = append(flows, domain.CashFlow{
				Name:          a.Name + " purchase",
				Kind:          domain.CashFlowWithdrawal,
				MonthlyAmount: v,
				StartDate:     m,
				EndDate:       m,
				TargetAssetID: cashID,
				Conversion:    true,
			})
		}
	}
	return flows
}

// groupFlows indexes cash flows by target asset, rejecting dangling targets
// before any simulation work starts
func groupFlows(p *domain.Portfolio) (map[string][]domain.CashFlow, error) {
	byAsset := make(map[string][]domain.CashFlow)
	for _, f := range p.CashFlows {
		if f.TargetAssetID == "" {
			return nil, domain.NewValidationError("cash_flow.target_asset_id",
				"cash flow %q has no target asset", f.Name)
		}
		if p.AssetByID(f.TargetAssetID) == nil {
			return nil, domain.NewValidationError("cash_flow.target_asset_id",
				"cash flow %q targets unknown asset %q", f.Name, f.TargetAssetID)
		}
		byAsset[f.TargetAssetID] = append(byAsset[f.TargetAssetID], f)
	}
	return byAsset, nil
}
