package domain

import (
	"context"
	"time"
)

// SnapshotLoader assembles the current portfolio snapshot for a user.
// The engine treats the returned value as immutable; scenario application
// clones it before touching anything.
type SnapshotLoader interface {
	LoadPortfolio(ctx context.Context, userID string) (*Portfolio, error)
}

// RateProvider answers index values (prime rate, CPI) by month.
// Implementations fall back to the last known value at or before the month.
type RateProvider interface {
	// RateAt returns the index value for the month containing t.
	// An unknown index is an error; a month past the known range resolves
	// via the provider's extrapolation policy.
	RateAt(index string, t time.Time) (float64, error)
}

// Index names served by rate providers
const (
	IndexPrime = "prime"
	IndexCPI   = "cpi"
)
