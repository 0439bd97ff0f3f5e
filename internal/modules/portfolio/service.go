package portfolio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/orend/fincast/internal/domain"
	"github.com/orend/fincast/internal/utils"
)

// Service assembles portfolio snapshots from the repository.
// Implements domain.SnapshotLoader.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates the portfolio service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "portfolio").Logger(),
	}
}

// LoadPortfolio builds the full snapshot for a user. The returned value is
// treated as immutable by callers; the projection engine clones it before
// applying scenarios.
func (s *Service) LoadPortfolio(ctx context.Context, userID string) (*domain.Portfolio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer utils.OperationTimer("load_portfolio", s.log)()

	version, err := s.repo.Version(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio version: %w", err)
	}

	assets, err := s.repo.GetAssetsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}
	loans, err := s.repo.GetLoansByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load loans: %w", err)
	}
	revenues, err := s.repo.GetRevenueStreamsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load revenue streams: %w", err)
	}
	flows, err := s.repo.GetCashFlowsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cash flows: %w", err)
	}
	measurements, err := s.repo.GetMeasurementsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load measurements: %w", err)
	}

	s.log.Debug().
		Str("user", userID).
		Int64("version", version).
		Int("assets", len(assets)).
		Int("loans", len(loans)).
		Msg("Portfolio snapshot loaded")

	return &domain.Portfolio{
		UserID:       userID,
		Version:      version,
		Assets:       assets,
		Loans:        loans,
		Revenues:     revenues,
		CashFlows:    flows,
		Measurements: measurements,
	}, nil
}
