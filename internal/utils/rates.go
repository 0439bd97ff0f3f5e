package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rate bounds accepted from user input, in annual percent.
const (
	MinAnnualRatePct = -50.0
	MaxAnnualRatePct = 100.0
)

// AnnualPctToMonthlyFactor converts an annual percentage rate to the
// geometric monthly growth factor: (1 + pct/100)^(1/12).
// A 5% annual rate applied for 12 months compounds to exactly 5%.
func AnnualPctToMonthlyFactor(annualPct float64) float64 {
	return math.Pow(1+annualPct/100, 1.0/12.0)
}

// AnnualPctToMonthlyDecimal converts an annual percentage rate to a simple
// monthly decimal rate (pct/100/12). Loan amortization uses this form.
func AnnualPctToMonthlyDecimal(annualPct float64) float64 {
	return annualPct / 100 / 12
}

// NormalizeRatePct parses a rate that may carry a trailing percent sign
// ("4.5%" or "4.5") and validates it against the accepted bounds.
func NormalizeRatePct(input string) (float64, error) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(input), "%"))
	if s == "" {
		return 0, fmt.Errorf("empty rate input")
	}

	pct, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q: %w", input, err)
	}

	if err := ValidateRatePct(pct); err != nil {
		return 0, err
	}

	return pct, nil
}

// ValidateRatePct checks an annual percentage rate against the accepted bounds.
func ValidateRatePct(pct float64) error {
	if pct < MinAnnualRatePct || pct > MaxAnnualRatePct {
		return fmt.Errorf("rate %.2f%% out of range [%.0f%%, %.0f%%]", pct, MinAnnualRatePct, MaxAnnualRatePct)
	}
	return nil
}
