package projection

import (
	"math"
	"time"

	"github.com/orend/fincast/internal/domain"
	"github.com/orend/fincast/internal/utils"
)

// LoanProjection is the monthly output for one loan
type LoanProjection struct {
	Balance  domain.Series // end-of-month remaining balance
	Payments domain.Series // payment made that month
}

// loanCalculator projects a single loan month by month
type loanCalculator struct {
	rates domain.RateProvider
}

// AnnuityPayment computes the constant monthly payment for a principal over
// n months at monthly rate r. Near-zero rates degrade to straight-line.
func AnnuityPayment(principal float64, r float64, n int) float64 {
	if n <= 0 {
		return principal
	}
	if math.Abs(r) < 1e-9 {
		return principal / float64(n)
	}
	return principal * r / (1 - math.Pow(1+r, -float64(n)))
}

// Project walks the loan from simStart to simEnd. The first recorded month
// carries the starting balance; every following month accrues interest and
// makes a payment until the balance reaches zero or the schedule ends.
func (c loanCalculator) Project(loan *domain.Loan, simStart, simEnd time.Time) (*LoanProjection, error) {
	out := &LoanProjection{
		Balance:  domain.Series{},
		Payments: domain.Series{},
	}

	startMonth := utils.MonthStart(loan.StartDate)
	firstMonth := simStart
	balance := loan.CurrentBalance
	if startMonth.After(simStart) {
		// Loan taken inside the horizon starts from its full principal
		firstMonth = startMonth
		balance = loan.Principal
	}
	endMonth := loan.EndDate()
	if firstMonth.After(simEnd) || !endMonth.After(firstMonth) {
		return out, nil
	}

	annualRate := loan.AnnualRatePct
	switch loan.Type {
	case domain.LoanTypePrimePegged:
		prime, err := c.primeAt(loan, firstMonth)
		if err != nil {
			return nil, err
		}
		annualRate = loan.Config.PrimeMarginPct + prime
	}

	r := utils.AnnualPctToMonthlyDecimal(annualRate)
	payment := AnnuityPayment(balance, r, utils.MonthsBetween(firstMonth, endMonth))

	prevCPI := 0.0
	if loan.Type == domain.LoanTypeCPIPegged {
		cpi, err := c.rates.RateAt(cpiIndex(loan), firstMonth)
		if err != nil {
			return nil, err
		}
		prevCPI = cpi
	}

	out.Balance.Set(firstMonth, utils.Round2(balance))

	for m := utils.AddMonths(firstMonth, 1); !m.After(simEnd); m = utils.AddMonths(m, 1) {
		if m.After(endMonth) || balance <= 0 {
			out.Balance.Set(m, 0)
			break
		}

		remaining := utils.MonthsBetween(m, endMonth) + 1

		switch loan.Type {
		case domain.LoanTypePrimePegged:
			prime, err := c.primeAt(loan, m)
			if err != nil {
				return nil, err
			}
			newRate := loan.Config.PrimeMarginPct + prime
			if newRate != annualRate {
				// Re-amortize from the current balance over the remaining term
				annualRate = newRate
				r = utils.AnnualPctToMonthlyDecimal(annualRate)
				payment = AnnuityPayment(balance, r, remaining)
			}

		case domain.LoanTypeCPIPegged:
			cpi, err := c.rates.RateAt(cpiIndex(loan), m)
			if err != nil {
				return nil, err
			}
			if prevCPI > 0 && cpi != prevCPI {
				// Index the principal, then recompute the annuity
				balance *= cpi / prevCPI
				payment = AnnuityPayment(balance, r, remaining)
			}
			prevCPI = cpi

		case domain.LoanTypeVariable:
			// Base rate drifts at every anniversary of the loan start
			months := utils.MonthsBetween(startMonth, m)
			if months > 0 && months%12 == 0 && loan.Config.AnnualAdjustPct != 0 {
				annualRate *= 1 + loan.Config.AnnualAdjustPct/100
				r = utils.AnnualPctToMonthlyDecimal(annualRate)
				payment = AnnuityPayment(balance, r, remaining)
			}
		}

		// Scenario-injected lump-sum repayments reduce the principal, then
		// the schedule re-amortizes
		for _, rep := range loan.ExtraRepayments {
			if utils.SameMonth(rep.Date, m) {
				balance = math.Max(0, balance-rep.Amount)
				payment = AnnuityPayment(balance, r, remaining)
			}
		}

		interest := balance * r
		due := payment
		if balance+interest < due {
			due = balance + interest // final payment
		}
		balance += interest - due

		if math.IsNaN(balance) || math.IsInf(balance, 0) {
			return nil, &domain.ComputationError{
				EntityID: loan.ID,
				Month:    utils.FormatMonth(m),
				Reason:   "non-finite loan balance",
			}
		}

		out.Payments.Set(m, utils.Round2(due))

		if balance <= 0.005 {
			out.Balance.Set(m, 0)
			break
		}
		out.Balance.Set(m, utils.Round2(balance))
	}

	return out, nil
}

func (c loanCalculator) primeAt(loan *domain.Loan, m time.Time) (float64, error) {
	index := loan.Config.RateIndex
	if index == "" {
		index = domain.IndexPrime
	}
	return c.rates.RateAt(index, m)
}

func cpiIndex(loan *domain.Loan) string {
	if loan.Config.RateIndex != "" {
		return loan.Config.RateIndex
	}
	return domain.IndexCPI
}
