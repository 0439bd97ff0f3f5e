package domain

import (
	"sort"
	"time"

	"github.com/orend/fincast/internal/utils"
)

// Series is a sparse month-keyed value series. Keys are month-start dates
// formatted YYYY-MM-DD; an entity contributes points only for the months it
// exists.
type Series map[string]float64

// Set records a value for the month containing t
func (s Series) Set(t time.Time, v float64) {
	s[utils.FormatMonth(t)] = v
}

// At returns the value for the month containing t, and whether one exists
func (s Series) At(t time.Time) (float64, bool) {
	v, ok := s[utils.FormatMonth(t)]
	return v, ok
}

// Months returns the series keys in chronological order
func (s Series) Months() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FlowCategory buckets a cash-flow contribution for the breakdown view
type FlowCategory string

const (
	CategorySalary      FlowCategory = "salary"
	CategoryRent        FlowCategory = "rent"
	CategoryDividend    FlowCategory = "dividend"
	CategoryPension     FlowCategory = "pension"
	CategoryLoanPayment FlowCategory = "loan_payment"
	CategoryDeposit     FlowCategory = "deposit"
	CategoryWithdrawal  FlowCategory = "withdrawal"
)

// IsIncome reports whether the category contributes positively to net flow
func (c FlowCategory) IsIncome() bool {
	switch c {
	case CategorySalary, CategoryRent, CategoryDividend, CategoryPension, CategoryWithdrawal:
		return true
	}
	return false
}

// FlowSource is one named contributor inside a breakdown category
type FlowSource struct {
	Name   string `json:"name"`
	Series Series `json:"series"`
}

// CashFlowBreakdown groups monthly flows by category and source.
// NetSeries is income minus expense per month.
type CashFlowBreakdown struct {
	Income    map[FlowCategory][]FlowSource `json:"income"`
	Expense   map[FlowCategory][]FlowSource `json:"expense"`
	NetSeries Series                        `json:"net_series"`
}

// Marker annotates a projected series with an observed measurement
type Marker struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// EntityProjection is one entity's projected series plus measurement markers
type EntityProjection struct {
	EntityID string   `json:"entity_id"`
	Name     string   `json:"name"`
	Series   Series   `json:"series"`
	Payments Series   `json:"payments,omitempty"` // loans: monthly payment series
	Markers  []Marker `json:"markers,omitempty"`
}

// ProjectionRequest describes one projection run
type ProjectionRequest struct {
	UserID    string           `json:"user_id"`
	StartDate time.Time        `json:"start_date"`
	EndDate   time.Time        `json:"end_date"`   // zero = default horizon
	AsOfDate  time.Time        `json:"as_of_date"` // set = historical mode, series truncated here
	Actions   []ScenarioAction `json:"actions,omitempty"`
}

// IsScenario reports whether the request replays what-if actions.
// Scenario runs always bypass the projection cache.
func (r *ProjectionRequest) IsScenario() bool {
	return len(r.Actions) > 0
}

// IsHistorical reports whether the request asks for an as-of view
func (r *ProjectionRequest) IsHistorical() bool {
	return !r.AsOfDate.IsZero()
}

// ProjectionResult is the full output of one projection run. StartDate and
// EndDate are the resolved month range the series cover; in historical mode
// EndDate is already truncated to HistoricalAsOfDate.
type ProjectionResult struct {
	Assets                 []EntityProjection `json:"assets"`
	Loans                  []EntityProjection `json:"loans"`
	NetWorthSeries         Series             `json:"net_worth_series"`
	TotalAssetsSeries      Series             `json:"total_assets_series"`
	TotalLiabilitiesSeries Series             `json:"total_liabilities_series"`
	AccumulatedCashSeries  Series             `json:"accumulated_cash_series"`
	Breakdown              CashFlowBreakdown  `json:"breakdown"`
	StartDate              time.Time          `json:"start_date"`
	EndDate                time.Time          `json:"end_date"`
	HistoricalAsOfDate     time.Time          `json:"historical_as_of_date"`
	IsHistorical           bool               `json:"is_historical"`
	FromCache              bool               `json:"from_cache"`
	ComputedAt             time.Time          `json:"computed_at"`
}
