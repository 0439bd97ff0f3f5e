// Package portfolio persists the user's financial entities and assembles
// the immutable snapshot the projection engine consumes. Every write bumps
// the per-user portfolio version, which the projection cache keys on.
package portfolio

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orend/fincast/internal/database"
	"github.com/orend/fincast/internal/domain"
	"github.com/orend/fincast/internal/utils"
)

// Repository handles portfolio entity persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a portfolio repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// InitSchema creates the portfolio tables if they do not exist
func (r *Repository) InitSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS portfolio_meta (
			user_id TEXT PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS assets (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			name              TEXT NOT NULL,
			type              TEXT NOT NULL,
			value             REAL NOT NULL,
			initial_value     REAL NOT NULL,
			annual_growth_pct REAL NOT NULL,
			yearly_fee_pct    REAL NOT NULL,
			purchase_date     TEXT NOT NULL,
			sell_date         TEXT NOT NULL,
			sell_tax_pct      REAL NOT NULL,
			pension_json      TEXT
		);
		CREATE TABLE IF NOT EXISTS loans (
			id              TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL,
			name            TEXT NOT NULL,
			type            TEXT NOT NULL,
			principal       REAL NOT NULL,
			current_balance REAL NOT NULL,
			annual_rate_pct REAL NOT NULL,
			duration_months INTEGER NOT NULL,
			start_date      TEXT NOT NULL,
			config_json     TEXT
		);
		CREATE TABLE IF NOT EXISTS revenue_streams (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			name              TEXT NOT NULL,
			kind              TEXT NOT NULL,
			amount_per_period REAL NOT NULL,
			period            TEXT NOT NULL,
			annual_growth_pct REAL NOT NULL,
			tax_pct           REAL NOT NULL,
			start_date        TEXT NOT NULL,
			end_date          TEXT NOT NULL,
			linked_asset_id   TEXT,
			yield_pct         REAL NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS cash_flows (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL,
			name             TEXT NOT NULL,
			kind             TEXT NOT NULL,
			monthly_amount   REAL NOT NULL,
			start_date       TEXT NOT NULL,
			end_date         TEXT NOT NULL,
			target_asset_id  TEXT NOT NULL,
			from_own_capital INTEGER NOT NULL DEFAULT 1
		);
		CREATE TABLE IF NOT EXISTS historical_measurements (
			id        TEXT PRIMARY KEY,
			user_id   TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			date      TEXT NOT NULL,
			value     REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_assets_user ON assets(user_id);
		CREATE INDEX IF NOT EXISTS idx_loans_user ON loans(user_id);
		CREATE INDEX IF NOT EXISTS idx_revenues_user ON revenue_streams(user_id);
		CREATE INDEX IF NOT EXISTS idx_cash_flows_user ON cash_flows(user_id);
		CREATE INDEX IF NOT EXISTS idx_measurements_user ON historical_measurements(user_id);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create portfolio schema: %w", err)
	}
	return nil
}

// Version returns the current portfolio version for a user (0 when unseen)
func (r *Repository) Version(userID string) (int64, error) {
	var version int64
	err := r.db.QueryRow(`SELECT version FROM portfolio_meta WHERE user_id = ?`, userID).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read portfolio version: %w", err)
	}
	return version, nil
}

// bumpVersion increments the user's portfolio version inside tx
func bumpVersion(tx *sql.Tx, userID string) error {
	_, err := tx.Exec(`
		INSERT INTO portfolio_meta (user_id, version) VALUES (?, 1)
		ON CONFLICT (user_id) DO UPDATE SET version = version + 1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to bump portfolio version: %w", err)
	}
	return nil
}

// CreateAsset inserts an asset and bumps the portfolio version
func (r *Repository) CreateAsset(userID string, asset *domain.Asset) error {
	if asset.ID == "" {
		asset.ID = uuid.New().String()
	}
	if asset.SellDate.IsZero() {
		asset.SellDate = utils.NeverDate
	}
	if asset.InitialValue == 0 {
		asset.InitialValue = asset.Value
	}

	var pensionJSON sql.NullString
	if asset.Pension != nil {
		encoded, err := json.Marshal(asset.Pension)
		if err != nil {
			return fmt.Errorf("failed to encode pension config: %w", err)
		}
		pensionJSON = sql.NullString{String: string(encoded), Valid: true}
	}

	return r.withBump(userID, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO assets (
				id, user_id, name, type, value, initial_value, annual_growth_pct,
				yearly_fee_pct, purchase_date, sell_date, sell_tax_pct, pension_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, asset.ID, userID, asset.Name, string(asset.Type), asset.Value, asset.InitialValue,
			asset.AnnualGrowthPct, asset.YearlyFeePct, dateStr(asset.PurchaseDate),
			dateStr(asset.SellDate), asset.SellTaxPct, pensionJSON)
		if err != nil {
			return fmt.Errorf("failed to insert asset %q: %w", asset.Name, err)
		}
		return nil
	})
}

// GetAssetsByUser returns every asset of a user
func (r *Repository) GetAssetsByUser(userID string) ([]domain.Asset, error) {
	rows, err := r.db.Query(`
		SELECT id, name, type, value, initial_value, annual_growth_pct,
		       yearly_fee_pct, purchase_date, sell_date, sell_tax_pct, pension_json
		FROM assets WHERE user_id = ? ORDER BY name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var a domain.Asset
		var typeStr, purchase, sell string
		var pensionJSON sql.NullString

		if err := rows.Scan(&a.ID, &a.Name, &typeStr, &a.Value, &a.InitialValue,
			&a.AnnualGrowthPct, &a.YearlyFeePct, &purchase, &sell, &a.SellTaxPct, &pensionJSON); err != nil {
			return nil, fmt.Errorf("failed to scan asset row: %w", err)
		}

		a.Type = domain.AssetType(typeStr)
		if a.PurchaseDate, err = utils.ParseDate(purchase); err != nil {
			return nil, fmt.Errorf("corrupt purchase_date for asset %s: %w", a.ID, err)
		}
		if a.SellDate, err = utils.ParseDate(sell); err != nil {
			return nil, fmt.Errorf("corrupt sell_date for asset %s: %w", a.ID, err)
		}
		if pensionJSON.Valid {
			a.Pension = &domain.PensionConfig{}
			if err := json.Unmarshal([]byte(pensionJSON.String), a.Pension); err != nil {
				return nil, fmt.Errorf("corrupt pension config for asset %s: %w", a.ID, err)
			}
		}

		assets = append(assets, a)
	}

	return assets, rows.Err()
}

// CreateLoan inserts a loan and bumps the portfolio version
func (r *Repository) CreateLoan(userID string, loan *domain.Loan) error {
	if loan.ID == "" {
		loan.ID = uuid.New().String()
	}
	if loan.CurrentBalance == 0 {
		loan.CurrentBalance = loan.Principal
	}

	configJSON, err := json.Marshal(loan.Config)
	if err != nil {
		return fmt.Errorf("failed to encode loan config: %w", err)
	}

	return r.withBump(userID, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO loans (
				id, user_id, name, type, principal, current_balance,
				annual_rate_pct, duration_months, start_date, config_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, loan.ID, userID, loan.Name, string(loan.Type), loan.Principal, loan.CurrentBalance,
			loan.AnnualRatePct, loan.DurationMonths, dateStr(loan.StartDate), string(configJSON))
		if err != nil {
			return fmt.Errorf("failed to insert loan %q: %w", loan.Name, err)
		}
		return nil
	})
}

// GetLoansByUser returns every loan of a user
func (r *Repository) GetLoansByUser(userID string) ([]domain.Loan, error) {
	rows, err := r.db.Query(`
		SELECT id, name, type, principal, current_balance, annual_rate_pct,
		       duration_months, start_date, config_json
		FROM loans WHERE user_id = ? ORDER BY name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	var loans []domain.Loan
	for rows.Next() {
		var l domain.Loan
		var typeStr, start string
		var configJSON sql.NullString

		if err := rows.Scan(&l.ID, &l.Name, &typeStr, &l.Principal, &l.CurrentBalance,
			&l.AnnualRatePct, &l.DurationMonths, &start, &configJSON); err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}

		l.Type = domain.LoanType(typeStr)
		if l.StartDate, err = utils.ParseDate(start); err != nil {
			return nil, fmt.Errorf("corrupt start_date for loan %s: %w", l.ID, err)
		}
		if configJSON.Valid && configJSON.String != "" {
			if err := json.Unmarshal([]byte(configJSON.String), &l.Config); err != nil {
				return nil, fmt.Errorf("corrupt config for loan %s: %w", l.ID, err)
			}
		}

		loans = append(loans, l)
	}

	return loans, rows.Err()
}

// CreateRevenueStream inserts a revenue stream and bumps the portfolio version
func (r *Repository) CreateRevenueStream(userID string, stream *domain.RevenueStream) error {
	if stream.ID == "" {
		stream.ID = uuid.New().String()
	}
	if stream.EndDate.IsZero() {
		stream.EndDate = utils.NeverDate
	}

	return r.withBump(userID, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO revenue_streams (
				id, user_id, name, kind, amount_per_period, period,
				annual_growth_pct, tax_pct, start_date, end_date, linked_asset_id,
				yield_pct
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, stream.ID, userID, stream.Name, string(stream.Kind), stream.AmountPerPeriod,
			string(stream.Period), stream.AnnualGrowthPct, stream.TaxPct,
			dateStr(stream.StartDate), dateStr(stream.EndDate), stream.LinkedAssetID,
			stream.YieldPct)
		if err != nil {
			return fmt.Errorf("failed to insert revenue stream %q: %w", stream.Name, err)
		}
		return nil
	})
}

// GetRevenueStreamsByUser returns every revenue stream of a user
func (r *Repository) GetRevenueStreamsByUser(userID string) ([]domain.RevenueStream, error) {
	rows, err := r.db.Query(`
		SELECT id, name, kind, amount_per_period, period, annual_growth_pct,
		       tax_pct, start_date, end_date, linked_asset_id, yield_pct
		FROM revenue_streams WHERE user_id = ? ORDER BY name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue streams: %w", err)
	}
	defer rows.Close()

	var streams []domain.RevenueStream
	for rows.Next() {
		var s domain.RevenueStream
		var kind, period, start, end string
		var linked sql.NullString

		if err := rows.Scan(&s.ID, &s.Name, &kind, &s.AmountPerPeriod, &period,
			&s.AnnualGrowthPct, &s.TaxPct, &start, &end, &linked, &s.YieldPct); err != nil {
			return nil, fmt.Errorf("failed to scan revenue stream row: %w", err)
		}

		s.Kind = domain.RevenueKind(kind)
		s.Period = domain.RevenuePeriod(period)
		s.LinkedAssetID = linked.String
		if s.StartDate, err = utils.ParseDate(start); err != nil {
			return nil, fmt.Errorf("corrupt start_date for revenue stream %s: %w", s.ID, err)
		}
		if s.EndDate, err = utils.ParseDate(end); err != nil {
			return nil, fmt.Errorf("corrupt end_date for revenue stream %s: %w", s.ID, err)
		}

		streams = append(streams, s)
	}

	return streams, rows.Err()
}

// CreateCashFlow inserts a cash flow and bumps the portfolio version
func (r *Repository) CreateCashFlow(userID string, flow *domain.CashFlow) error {
	if flow.ID == "" {
		flow.ID = uuid.New().String()
	}
	if flow.EndDate.IsZero() {
		flow.EndDate = utils.NeverDate
	}

	return r.withBump(userID, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO cash_flows (
				id, user_id, name, kind, monthly_amount, start_date,
				end_date, target_asset_id, from_own_capital
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, flow.ID, userID, flow.Name, string(flow.Kind), flow.MonthlyAmount,
			dateStr(flow.StartDate), dateStr(flow.EndDate), flow.TargetAssetID,
			boolInt(flow.FromOwnCapital))
		if err != nil {
			return fmt.Errorf("failed to insert cash flow %q: %w", flow.Name, err)
		}
		return nil
	})
}

// GetCashFlowsByUser returns every cash flow of a user
func (r *Repository) GetCashFlowsByUser(userID string) ([]domain.CashFlow, error) {
	rows, err := r.db.Query(`
		SELECT id, name, kind, monthly_amount, start_date, end_date,
		       target_asset_id, from_own_capital
		FROM cash_flows WHERE user_id = ? ORDER BY name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cash flows: %w", err)
	}
	defer rows.Close()

	var flows []domain.CashFlow
	for rows.Next() {
		var f domain.CashFlow
		var kind, start, end string
		var fromOwn int

		if err := rows.Scan(&f.ID, &f.Name, &kind, &f.MonthlyAmount, &start, &end,
			&f.TargetAssetID, &fromOwn); err != nil {
			return nil, fmt.Errorf("failed to scan cash flow row: %w", err)
		}

		f.Kind = domain.CashFlowKind(kind)
		f.FromOwnCapital = fromOwn != 0
		if f.StartDate, err = utils.ParseDate(start); err != nil {
			return nil, fmt.Errorf("corrupt start_date for cash flow %s: %w", f.ID, err)
		}
		if f.EndDate, err = utils.ParseDate(end); err != nil {
			return nil, fmt.Errorf("corrupt end_date for cash flow %s: %w", f.ID, err)
		}

		flows = append(flows, f)
	}

	return flows, rows.Err()
}

// CreateMeasurement inserts a historical measurement and bumps the version
func (r *Repository) CreateMeasurement(userID string, m *domain.HistoricalMeasurement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	return r.withBump(userID, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO historical_measurements (id, user_id, entity_id, date, value)
			VALUES (?, ?, ?, ?, ?)
		`, m.ID, userID, m.EntityID, dateStr(m.Date), m.Value)
		if err != nil {
			return fmt.Errorf("failed to insert measurement: %w", err)
		}
		return nil
	})
}

// GetMeasurementsByUser returns every measurement of a user in date order
func (r *Repository) GetMeasurementsByUser(userID string) ([]domain.HistoricalMeasurement, error) {
	rows, err := r.db.Query(`
		SELECT id, entity_id, date, value
		FROM historical_measurements WHERE user_id = ? ORDER BY date
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	var measurements []domain.HistoricalMeasurement
	for rows.Next() {
		var m domain.HistoricalMeasurement
		var date string

		if err := rows.Scan(&m.ID, &m.EntityID, &date, &m.Value); err != nil {
			return nil, fmt.Errorf("failed to scan measurement row: %w", err)
		}
		if m.Date, err = utils.ParseDate(date); err != nil {
			return nil, fmt.Errorf("corrupt date for measurement %s: %w", m.ID, err)
		}

		measurements = append(measurements, m)
	}

	return measurements, rows.Err()
}

// withBump runs fn and the version bump in one transaction
func (r *Repository) withBump(userID string, fn func(*sql.Tx) error) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		return bumpVersion(tx, userID)
	})
}

func dateStr(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
