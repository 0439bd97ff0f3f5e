package portfolio

import (
	"fmt"
	"time"

	"github.com/orend/fincast/internal/domain"
	"github.com/orend/fincast/internal/utils"
)

// SeedDemo populates a demo portfolio for a user whose portfolio is empty:
// a salary, an index fund with a monthly deposit, a pension pot, a home
// with a fixed-rate mortgage, and a rent income. Returns true when seeding
// happened.
func (s *Service) SeedDemo(userID string) (bool, error) {
	version, err := s.repo.Version(userID)
	if err != nil {
		return false, err
	}
	if version > 0 {
		return false, nil
	}

	now := utils.MonthStart(time.Now())

	fund := &domain.Asset{
		Name:            "Index fund",
		Type:            domain.AssetTypeFund,
		Value:           100000,
		AnnualGrowthPct: 5,
		YearlyFeePct:    0.2,
		PurchaseDate:    utils.AddMonths(now, -24),
		SellDate:        utils.NeverDate,
		SellTaxPct:      25,
	}
	if err := s.repo.CreateAsset(userID, fund); err != nil {
		return false, fmt.Errorf("failed to seed fund: %w", err)
	}

	pension := &domain.Asset{
		Name:            "Workplace pension",
		Type:            domain.AssetTypePension,
		Value:           150000,
		AnnualGrowthPct: 4,
		YearlyFeePct:    0.5,
		PurchaseDate:    utils.AddMonths(now, -120),
		SellDate:        utils.NeverDate,
		Pension: &domain.PensionConfig{
			ConversionDate: utils.AddMonths(now, 25*12),
			Coefficient:    domain.DefaultPensionCoefficient,
		},
	}
	if err := s.repo.CreateAsset(userID, pension); err != nil {
		return false, fmt.Errorf("failed to seed pension: %w", err)
	}

	home := &domain.Asset{
		Name:            "Home",
		Type:            domain.AssetTypeRealEstate,
		Value:           1500000,
		AnnualGrowthPct: 3,
		PurchaseDate:    utils.AddMonths(now, -36),
		SellDate:        utils.NeverDate,
	}
	if err := s.repo.CreateAsset(userID, home); err != nil {
		return false, fmt.Errorf("failed to seed home: %w", err)
	}

	mortgage := &domain.Loan{
		Name:           "Mortgage",
		Type:           domain.LoanTypeFixed,
		Principal:      1000000,
		CurrentBalance: 920000,
		AnnualRatePct:  4,
		DurationMonths: 240,
		StartDate:      utils.AddMonths(now, -36),
	}
	if err := s.repo.CreateLoan(userID, mortgage); err != nil {
		return false, fmt.Errorf("failed to seed mortgage: %w", err)
	}

	salary := &domain.RevenueStream{
		Name:            "Salary",
		Kind:            domain.RevenueKindSalary,
		AmountPerPeriod: 28000,
		Period:          domain.PeriodMonthly,
		AnnualGrowthPct: 3,
		TaxPct:          32,
		StartDate:       utils.AddMonths(now, -60),
		EndDate:         utils.AddMonths(now, 25*12),
	}
	if err := s.repo.CreateRevenueStream(userID, salary); err != nil {
		return false, fmt.Errorf("failed to seed salary: %w", err)
	}

	rent := &domain.RevenueStream{
		Name:            "Rental income",
		Kind:            domain.RevenueKindRent,
		AmountPerPeriod: 13500,
		Period:          domain.PeriodQuarterly,
		AnnualGrowthPct: 2,
		TaxPct:          10,
		StartDate:       now,
		EndDate:         utils.NeverDate,
		LinkedAssetID:   home.ID,
	}
	if err := s.repo.CreateRevenueStream(userID, rent); err != nil {
		return false, fmt.Errorf("failed to seed rent: %w", err)
	}

	deposit := &domain.CashFlow{
		Name:           "Monthly fund deposit",
		Kind:           domain.CashFlowDeposit,
		MonthlyAmount:  3000,
		StartDate:      now,
		EndDate:        utils.AddMonths(now, 25*12),
		TargetAssetID:  fund.ID,
		FromOwnCapital: true,
	}
	if err := s.repo.CreateCashFlow(userID, deposit); err != nil {
		return false, fmt.Errorf("failed to seed deposit: %w", err)
	}

	employer := &domain.CashFlow{
		Name:           "Employer pension contribution",
		Kind:           domain.CashFlowDeposit,
		MonthlyAmount:  2000,
		StartDate:      now,
		EndDate:        utils.AddMonths(now, 25*12),
		TargetAssetID:  pension.ID,
		FromOwnCapital: false,
	}
	if err := s.repo.CreateCashFlow(userID, employer); err != nil {
		return false, fmt.Errorf("failed to seed employer contribution: %w", err)
	}

	measurement := &domain.HistoricalMeasurement{
		EntityID: fund.ID,
		Date:     utils.AddMonths(now, -12),
		Value:    91200,
	}
	if err := s.repo.CreateMeasurement(userID, measurement); err != nil {
		return false, fmt.Errorf("failed to seed measurement: %w", err)
	}

	s.log.Info().Str("user", userID).Msg("Seeded demo portfolio")
	return true, nil
}
