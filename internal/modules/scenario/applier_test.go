package scenario

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orend/fincast/internal/domain"
	"github.com/orend/fincast/internal/utils"
)

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

func fixturePortfolio() *domain.Portfolio {
	return &domain.Portfolio{
		UserID:  "u1",
		Version: 1,
		Assets: []domain.Asset{
			{
				ID:              "a1",
				Name:            "Index fund",
				Type:            domain.AssetTypeStock,
				Value:           100000,
				InitialValue:    100000,
				AnnualGrowthPct: 5,
				PurchaseDate:    month(2020, 1),
				SellDate:        utils.NeverDate,
			},
			{
				ID:           "a2",
				Name:         "Savings",
				Type:         domain.AssetTypeCash,
				Value:        50000,
				InitialValue: 50000,
				PurchaseDate: month(2020, 1),
				SellDate:     utils.NeverDate,
			},
		},
		Loans: []domain.Loan{
			{
				ID:             "l1",
				Name:           "Mortgage",
				Type:           domain.LoanTypeFixed,
				Principal:      1000000,
				CurrentBalance: 900000,
				AnnualRatePct:  4,
				DurationMonths: 240,
				StartDate:      month(2024, 1),
			},
		},
		Revenues: []domain.RevenueStream{
			{
				ID:              "r1",
				Name:            "Salary",
				Kind:            domain.RevenueKindSalary,
				AmountPerPeriod: 25000,
				Period:          domain.PeriodMonthly,
				TaxPct:          30,
				StartDate:       month(2024, 1),
				EndDate:         utils.NeverDate,
			},
		},
	}
}

func TestApply_InputNeverMutated(t *testing.T) {
	applier := NewApplier(zerolog.Nop())
	original := fixturePortfolio()

	growth := 9.0
	result, err := applier.Apply(original, []domain.ScenarioAction{
		{
			Kind: domain.ActionParamChange,
			ParamChange: &domain.ParamChange{
				TargetKind:   domain.TargetAsset,
				TargetID:     "a1",
				Param:        "annual_growth_pct",
				NumericValue: &growth,
			},
		},
		{
			Kind:  domain.ActionRepayLoan,
			Repay: &domain.RepayLoan{LoanID: "l1", Date: month(2027, 1), Amount: 100000},
		},
	})
	require.NoError(t, err)

	assert.NotSame(t, original, result)
	assert.Equal(t, 5.0, original.Assets[0].AnnualGrowthPct)
	assert.Empty(t, original.Loans[0].ExtraRepayments)

	assert.Equal(t, 9.0, result.Assets[0].AnnualGrowthPct)
	require.Len(t, result.Loans[0].ExtraRepayments, 1)
	assert.Equal(t, 100000.0, result.Loans[0].ExtraRepayments[0].Amount)
}

func TestApply_NewEntities(t *testing.T) {
	applier := NewApplier(zerolog.Nop())

	result, err := applier.Apply(fixturePortfolio(), []domain.ScenarioAction{
		{
			Kind: domain.ActionNewAsset,
			Asset: &domain.Asset{
				Name:            "Rental flat",
				Type:            domain.AssetTypeRealEstate,
				Value:           1200000,
				AnnualGrowthPct: 3,
				PurchaseDate:    month(2027, 6),
			},
		},
		{
			Kind: domain.ActionNewLoan,
			Loan: &domain.Loan{
				Name:           "Flat mortgage",
				Type:           domain.LoanTypeFixed,
				Principal:      900000,
				AnnualRatePct:  4.5,
				DurationMonths: 300,
				StartDate:      month(2027, 6),
			},
		},
		{
			Kind: domain.ActionAddRevenueStream,
			Revenue: &domain.RevenueStream{
				Name:            "Flat rent",
				Kind:            domain.RevenueKindRent,
				AmountPerPeriod: 4800,
				Period:          domain.PeriodMonthly,
				StartDate:       month(2027, 7),
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Assets, 3)
	added := result.Assets[2]
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, utils.NeverDate, added.SellDate)
	assert.Equal(t, 1200000.0, added.InitialValue)

	require.Len(t, result.Loans, 2)
	assert.NotEmpty(t, result.Loans[1].ID)
	assert.Equal(t, 900000.0, result.Loans[1].CurrentBalance)

	require.Len(t, result.Revenues, 2)
	assert.Equal(t, utils.NeverDate, result.Revenues[1].EndDate)
}

func TestApply_TransfersBecomeSingleMonthCashFlows(t *testing.T) {
	applier := NewApplier(zerolog.Nop())

	result, err := applier.Apply(fixturePortfolio(), []domain.ScenarioAction{
		{
			Kind:     domain.ActionDepositToAsset,
			Transfer: &domain.AssetTransfer{AssetID: "a1", Date: month(2027, 3), Amount: 20000, FromOwnCapital: true},
		},
		{
			Kind:     domain.ActionWithdrawFromAsset,
			Transfer: &domain.AssetTransfer{AssetID: "a2", Date: month(2028, 1), Amount: 5000},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.CashFlows, 2)

	dep := result.CashFlows[0]
	assert.Equal(t, domain.CashFlowDeposit, dep.Kind)
	assert.Equal(t, "a1", dep.TargetAssetID)
	assert.Equal(t, month(2027, 3), dep.StartDate)
	assert.Equal(t, dep.StartDate, dep.EndDate)
	assert.True(t, dep.FromOwnCapital)

	wd := result.CashFlows[1]
	assert.Equal(t, domain.CashFlowWithdrawal, wd.Kind)
	assert.False(t, wd.FromOwnCapital)
}

func TestApply_MarketCrashSparesCash(t *testing.T) {
	applier := NewApplier(zerolog.Nop())

	result, err := applier.Apply(fixturePortfolio(), []domain.ScenarioAction{
		{
			Kind:  domain.ActionMarketCrash,
			Crash: &domain.MarketCrash{Date: month(2027, 1), Pct: 35},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Assets[0].Crashes, 1)
	assert.Equal(t, 35.0, result.Assets[0].Crashes[0].Pct)
	assert.Empty(t, result.Assets[1].Crashes, "cash is not hit by an untargeted crash")
}

func TestApply_MarketCrashExplicitTypes(t *testing.T) {
	applier := NewApplier(zerolog.Nop())

	result, err := applier.Apply(fixturePortfolio(), []domain.ScenarioAction{
		{
			Kind: domain.ActionMarketCrash,
			Crash: &domain.MarketCrash{
				Date:       month(2027, 1),
				Pct:        20,
				AssetTypes: []domain.AssetType{domain.AssetTypeCash},
			},
		},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Assets[0].Crashes)
	require.Len(t, result.Assets[1].Crashes, 1)
}

func TestApply_TransformAsset(t *testing.T) {
	applier := NewApplier(zerolog.Nop())

	growth := 3.0
	result, err := applier.Apply(fixturePortfolio(), []domain.ScenarioAction{
		{
			Kind: domain.ActionTransformAsset,
			Transform: &domain.TransformAsset{
				AssetID:            "a1",
				Date:               month(2030, 1),
				NewType:            domain.AssetTypeRealEstate,
				NewName:            "Converted to flat",
				NewAnnualGrowthPct: &growth,
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Assets[0].Transforms, 1)
	ev := result.Assets[0].Transforms[0]
	assert.Equal(t, domain.AssetTypeRealEstate, ev.NewType)
	require.NotNil(t, ev.NewAnnualGrowthPct)
	assert.Equal(t, 3.0, *ev.NewAnnualGrowthPct)
}

func TestApply_ParamChanges(t *testing.T) {
	applier := NewApplier(zerolog.Nop())

	rate := 6.5
	amount := 30000.0
	endDate := month(2040, 1)

	result, err := applier.Apply(fixturePortfolio(), []domain.ScenarioAction{
		{
			Kind: domain.ActionParamChange,
			ParamChange: &domain.ParamChange{
				TargetKind: domain.TargetLoan, TargetID: "l1",
				Param: "annual_rate_pct", NumericValue: &rate,
			},
		},
		{
			Kind: domain.ActionParamChange,
			ParamChange: &domain.ParamChange{
				TargetKind: domain.TargetRevenue, TargetID: "r1",
				Param: "amount_per_period", NumericValue: &amount,
			},
		},
		{
			Kind: domain.ActionParamChange,
			ParamChange: &domain.ParamChange{
				TargetKind: domain.TargetRevenue, TargetID: "r1",
				Param: "end_date", DateValue: &endDate,
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 6.5, result.Loans[0].AnnualRatePct)
	assert.Equal(t, 30000.0, result.Revenues[0].AmountPerPeriod)
	assert.Equal(t, endDate, result.Revenues[0].EndDate)
}

func TestApply_ParamChangeWrongValueKind(t *testing.T) {
	applier := NewApplier(zerolog.Nop())

	d := month(2030, 1)
	_, err := applier.Apply(fixturePortfolio(), []domain.ScenarioAction{
		{
			Kind: domain.ActionParamChange,
			ParamChange: &domain.ParamChange{
				TargetKind: domain.TargetAsset, TargetID: "a1",
				Param: "value", DateValue: &d,
			},
		},
	})
	require.Error(t, err)

	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestApply_UnknownParam(t *testing.T) {
	applier := NewApplier(zerolog.Nop())

	v := 1.0
	_, err := applier.Apply(fixturePortfolio(), []domain.ScenarioAction{
		{
			Kind: domain.ActionParamChange,
			ParamChange: &domain.ParamChange{
				TargetKind: domain.TargetAsset, TargetID: "a1",
				Param: "favourite_colour", NumericValue: &v,
			},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown asset param")
}

func TestApply_ReferenceErrorAbortsScenario(t *testing.T) {
	applier := NewApplier(zerolog.Nop())
	original := fixturePortfolio()

	growth := 9.0
	_, err := applier.Apply(original, []domain.ScenarioAction{
		{
			Kind: domain.ActionParamChange,
			ParamChange: &domain.ParamChange{
				TargetKind: domain.TargetAsset, TargetID: "a1",
				Param: "annual_growth_pct", NumericValue: &growth,
			},
		},
		{
			Kind:  domain.ActionRepayLoan,
			Repay: &domain.RepayLoan{LoanID: "ghost", Date: month(2027, 1), Amount: 100},
		},
	})
	require.Error(t, err)

	var rerr *domain.ReferenceError
	assert.ErrorAs(t, err, &rerr)
	assert.Contains(t, err.Error(), "action 1")

	// Nothing from the first action leaked into the snapshot either
	assert.Equal(t, 5.0, original.Assets[0].AnnualGrowthPct)
}

func TestApply_InvalidActionRejectedUpFront(t *testing.T) {
	applier := NewApplier(zerolog.Nop())

	_, err := applier.Apply(fixturePortfolio(), []domain.ScenarioAction{
		{Kind: domain.ActionNewAsset}, // missing payload
	})
	require.Error(t, err)

	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestApply_NoActionsReturnsClone(t *testing.T) {
	applier := NewApplier(zerolog.Nop())
	original := fixturePortfolio()

	result, err := applier.Apply(original, nil)
	require.NoError(t, err)
	assert.NotSame(t, original, result)
	assert.Equal(t, original.Assets, result.Assets)
}
