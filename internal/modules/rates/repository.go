// Package rates provides month-indexed economic index values (prime rate,
// CPI) to the projection engine. Values are stored per month; lookups fall
// back to the last known value at or before the requested month.
package rates

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/orend/fincast/internal/utils"
)

// RatePoint is one observed index value for a month
type RatePoint struct {
	Month time.Time `json:"month"`
	Value float64   `json:"value"`
}

// Repository handles index rate persistence in the index_rates table
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new index rate repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "rates").Logger(),
	}
}

// InitSchema creates the index_rates table if it does not exist
func (r *Repository) InitSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS index_rates (
			index_name TEXT NOT NULL,
			month      TEXT NOT NULL,
			value      REAL NOT NULL,
			PRIMARY KEY (index_name, month)
		)
	`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create index_rates table: %w", err)
	}
	return nil
}

// Upsert stores an index value for the month containing t
func (r *Repository) Upsert(index string, t time.Time, value float64) error {
	query := `
		INSERT INTO index_rates (index_name, month, value)
		VALUES (?, ?, ?)
		ON CONFLICT (index_name, month) DO UPDATE SET value = excluded.value
	`
	if _, err := r.db.Exec(query, index, utils.FormatMonth(t), value); err != nil {
		return fmt.Errorf("failed to upsert rate %s@%s: %w", index, utils.FormatMonth(t), err)
	}
	return nil
}

// LatestAtOrBefore returns the most recent point at or before the month of t
func (r *Repository) LatestAtOrBefore(index string, t time.Time) (RatePoint, bool, error) {
	query := `
		SELECT month, value FROM index_rates
		WHERE index_name = ? AND month <= ?
		ORDER BY month DESC LIMIT 1
	`
	return r.queryPoint(query, index, utils.FormatMonth(t))
}

// EarliestAtOrAfter returns the oldest point at or after the month of t.
// Used to backfill lookups that precede the known range.
func (r *Repository) EarliestAtOrAfter(index string, t time.Time) (RatePoint, bool, error) {
	query := `
		SELECT month, value FROM index_rates
		WHERE index_name = ? AND month >= ?
		ORDER BY month ASC LIMIT 1
	`
	return r.queryPoint(query, index, utils.FormatMonth(t))
}

func (r *Repository) queryPoint(query, index, month string) (RatePoint, bool, error) {
	var monthStr string
	var value float64

	err := r.db.QueryRow(query, index, month).Scan(&monthStr, &value)
	if err == sql.ErrNoRows {
		return RatePoint{}, false, nil
	}
	if err != nil {
		return RatePoint{}, false, fmt.Errorf("failed to query rate %s: %w", index, err)
	}

	parsed, err := utils.ParseDate(monthStr)
	if err != nil {
		return RatePoint{}, false, fmt.Errorf("corrupt month value %q for index %s: %w", monthStr, index, err)
	}

	return RatePoint{Month: parsed, Value: value}, true, nil
}

// GetAll returns every point for an index in chronological order
func (r *Repository) GetAll(index string) ([]RatePoint, error) {
	query := `
		SELECT month, value FROM index_rates
		WHERE index_name = ?
		ORDER BY month ASC
	`
	rows, err := r.db.Query(query, index)
	if err != nil {
		return nil, fmt.Errorf("failed to query rates for %s: %w", index, err)
	}
	defer rows.Close()

	var points []RatePoint
	for rows.Next() {
		var monthStr string
		var value float64
		if err := rows.Scan(&monthStr, &value); err != nil {
			return nil, fmt.Errorf("failed to scan rate row: %w", err)
		}
		parsed, err := utils.ParseDate(monthStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt month value %q for index %s: %w", monthStr, index, err)
		}
		points = append(points, RatePoint{Month: parsed, Value: value})
	}

	return points, rows.Err()
}
