package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orend/fincast/internal/domain"
	"github.com/orend/fincast/internal/utils"
)

func seriesOf(start time.Time, values ...float64) domain.Series {
	s := domain.Series{}
	for i, v := range values {
		s.Set(utils.AddMonths(start, i), v)
	}
	return s
}

func TestAggregate_NetWorthIsAssetsMinusLiabilities(t *testing.T) {
	agg := aggregator{}
	start := month(2026, 1)
	end := utils.AddMonths(start, 2)

	out := &SimulationOutput{
		Start: start,
		End:   end,
		Assets: []AssetOutput{
			{
				Asset: domain.Asset{ID: "a1", Name: "Fund"},
				Proj:  &AssetProjection{Series: seriesOf(start, 100, 110, 120)},
			},
			{
				Asset: domain.Asset{ID: "a2", Name: "Home"},
				Proj:  &AssetProjection{Series: seriesOf(start, 1000, 1000, 1000)},
			},
		},
		Loans: []LoanOutput{
			{
				Loan: domain.Loan{ID: "l1", Name: "Mortgage"},
				Proj: &LoanProjection{
					Balance:  seriesOf(start, 500, 490, 480),
					Payments: seriesOf(utils.AddMonths(start, 1), 15, 15),
				},
			},
		},
	}

	result, err := agg.Aggregate(out, nil)
	require.NoError(t, err)

	v, _ := result.TotalAssetsSeries.At(start)
	assert.Equal(t, 1100.0, v)
	v, _ = result.TotalLiabilitiesSeries.At(start)
	assert.Equal(t, 500.0, v)
	v, _ = result.NetWorthSeries.At(start)
	assert.Equal(t, 600.0, v)
	v, _ = result.NetWorthSeries.At(end)
	assert.Equal(t, 640.0, v)

	require.Len(t, result.Assets, 2)
	require.Len(t, result.Loans, 1)
	assert.Equal(t, "Mortgage", result.Loans[0].Name)
}

func TestAggregate_Breakdown(t *testing.T) {
	agg := aggregator{}
	start := month(2026, 1)
	end := utils.AddMonths(start, 1)

	out := &SimulationOutput{
		Start: start,
		End:   end,
		Assets: []AssetOutput{
			{
				Asset: domain.Asset{ID: "a1", Name: "Fund"},
				Proj: &AssetProjection{
					Series:      seriesOf(start, 100, 100),
					OwnDeposits: seriesOf(start, 3000, 3000),
					Withdrawals: seriesOf(start, 0, 500),
				},
			},
		},
		Loans: []LoanOutput{
			{
				Loan: domain.Loan{ID: "l1", Name: "Mortgage"},
				Proj: &LoanProjection{
					Balance:  seriesOf(start, 500, 490),
					Payments: seriesOf(utils.AddMonths(start, 1), 6000),
				},
			},
		},
		Revenues: []RevenueOutput{
			{
				Stream: domain.RevenueStream{ID: "r1", Name: "Salary", Kind: domain.RevenueKindSalary},
				Series: seriesOf(start, 21000, 21000),
			},
			{
				Stream: domain.RevenueStream{ID: "r2", Name: "Flat 3", Kind: domain.RevenueKindRent},
				Series: seriesOf(start, 4500, 4500),
			},
		},
	}

	result, err := agg.Aggregate(out, nil)
	require.NoError(t, err)
	bd := result.Breakdown

	require.Len(t, bd.Income[domain.CategorySalary], 1)
	assert.Equal(t, "Salary", bd.Income[domain.CategorySalary][0].Name)
	require.Len(t, bd.Income[domain.CategoryRent], 1)
	require.Len(t, bd.Income[domain.CategoryWithdrawal], 1)
	require.Len(t, bd.Expense[domain.CategoryDeposit], 1)
	require.Len(t, bd.Expense[domain.CategoryLoanPayment], 1)

	// Month 0: 21000 + 4500 income, 3000 deposit out
	v, _ := bd.NetSeries.At(start)
	assert.Equal(t, 22500.0, v)

	// Month 1 adds the 500 withdrawal and the 6000 loan payment
	v, _ = bd.NetSeries.At(end)
	assert.Equal(t, 17000.0, v)

	// Accumulated cash is the running net
	v, _ = result.AccumulatedCashSeries.At(end)
	assert.Equal(t, 39500.0, v)
}

func TestAggregate_DuplicateSourceInCategory(t *testing.T) {
	agg := aggregator{}
	start := month(2026, 1)

	out := &SimulationOutput{
		Start: start,
		End:   start,
		Revenues: []RevenueOutput{
			{
				Stream: domain.RevenueStream{ID: "r1", Name: "Salary", Kind: domain.RevenueKindSalary},
				Series: seriesOf(start, 100),
			},
			{
				Stream: domain.RevenueStream{ID: "r2", Name: "Salary", Kind: domain.RevenueKindSalary},
				Series: seriesOf(start, 200),
			},
		},
	}

	_, err := agg.Aggregate(out, nil)
	require.Error(t, err)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "duplicate source")
}

func TestAggregate_SameNameAcrossCategoriesAllowed(t *testing.T) {
	agg := aggregator{}
	start := month(2026, 1)

	out := &SimulationOutput{
		Start: start,
		End:   start,
		Assets: []AssetOutput{
			{
				Asset: domain.Asset{ID: "a1", Name: "Fund"},
				Proj: &AssetProjection{
					Series:      seriesOf(start, 100),
					OwnDeposits: seriesOf(start, 50),
					Withdrawals: seriesOf(start, 20),
				},
			},
		},
	}

	_, err := agg.Aggregate(out, nil)
	assert.NoError(t, err)
}

func TestAggregate_SaleProceedsAndPurchasesMoveCash(t *testing.T) {
	agg := aggregator{}
	start := month(2026, 1)
	end := utils.AddMonths(start, 2)

	out := &SimulationOutput{
		Start: start,
		End:   end,
		Assets: []AssetOutput{
			{
				Asset: domain.Asset{ID: "a1", Name: "Old flat"},
				Proj: &AssetProjection{
					Series:       seriesOf(start, 800, 810, 0),
					SaleProceeds: seriesOf(utils.AddMonths(start, 2), 805),
				},
			},
			{
				Asset: domain.Asset{ID: "a2", Name: "New car"},
				Proj: &AssetProjection{
					Series:       seriesOf(utils.AddMonths(start, 1), 200, 198),
					PurchaseCost: seriesOf(utils.AddMonths(start, 1), 200),
				},
			},
		},
	}

	result, err := agg.Aggregate(out, nil)
	require.NoError(t, err)

	v, _ := result.AccumulatedCashSeries.At(start)
	assert.Equal(t, 0.0, v)
	v, _ = result.AccumulatedCashSeries.At(utils.AddMonths(start, 1))
	assert.Equal(t, -200.0, v)
	v, _ = result.AccumulatedCashSeries.At(end)
	assert.Equal(t, 605.0, v)
}

func TestAggregate_MeasurementMarkers(t *testing.T) {
	agg := aggregator{}
	start := month(2026, 1)
	end := utils.AddMonths(start, 12)

	out := &SimulationOutput{
		Start: start,
		End:   end,
		Assets: []AssetOutput{
			{
				Asset: domain.Asset{ID: "a1", Name: "Fund"},
				Proj:  &AssetProjection{Series: seriesOf(start, 100)},
			},
		},
	}

	measurements := []domain.HistoricalMeasurement{
		{EntityID: "a1", Date: month(2026, 4), Value: 104.5},
		{EntityID: "a1", Date: month(2030, 1), Value: 200}, // outside range
		{EntityID: "other", Date: month(2026, 4), Value: 9},
	}

	result, err := agg.Aggregate(out, measurements)
	require.NoError(t, err)

	require.Len(t, result.Assets, 1)
	require.Len(t, result.Assets[0].Markers, 1)
	assert.Equal(t, utils.FormatMonth(month(2026, 4)), result.Assets[0].Markers[0].Date)
	assert.Equal(t, 104.5, result.Assets[0].Markers[0].Value)
}
