package projection

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/orend/fincast/internal/domain"
	"github.com/orend/fincast/internal/utils"
)

// ScenarioApplier replays what-if actions against a cloned snapshot
type ScenarioApplier interface {
	Apply(p *domain.Portfolio, actions []domain.ScenarioAction) (*domain.Portfolio, error)
}

// ResultCache stores computed projections keyed by fingerprint.
// Implementations must degrade gracefully: Get returns nil on any failure,
// Put swallows errors.
type ResultCache interface {
	Fingerprint(p *domain.Portfolio, start, end, asOf time.Time) (string, error)
	Get(key string) *domain.ProjectionResult
	Put(key string, result *domain.ProjectionResult)
}

// Config bounds the projection horizon
type Config struct {
	DefaultHorizonYears int
	MaxHorizonYears     int
}

// Service orchestrates one projection run: validate the request, load the
// snapshot, replay scenario actions, simulate, aggregate, and cache.
type Service struct {
	loader    domain.SnapshotLoader
	applier   ScenarioApplier
	simulator *Simulator
	agg       aggregator
	cache     ResultCache // nil disables caching
	cfg       Config
	log       zerolog.Logger
	now       func() time.Time
}

// NewService creates the projection service
func NewService(loader domain.SnapshotLoader, applier ScenarioApplier, simulator *Simulator, cache ResultCache, cfg Config, log zerolog.Logger) *Service {
	if cfg.DefaultHorizonYears <= 0 {
		cfg.DefaultHorizonYears = 30
	}
	if cfg.MaxHorizonYears < cfg.DefaultHorizonYears {
		cfg.MaxHorizonYears = cfg.DefaultHorizonYears
	}

	return &Service{
		loader:    loader,
		applier:   applier,
		simulator: simulator,
		cache:     cache,
		cfg:       cfg,
		log:       log.With().Str("service", "projection").Logger(),
		now:       time.Now,
	}
}

// Project runs one projection request end to end
func (s *Service) Project(ctx context.Context, req *domain.ProjectionRequest) (*domain.ProjectionResult, error) {
	start, end, asOf, err := s.resolveDates(req)
	if err != nil {
		return nil, err
	}

	// Structural action validation happens before any loading or simulation
	for i := range req.Actions {
		if err := req.Actions[i].Validate(); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
	}

	snapshot, err := s.loader.LoadPortfolio(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio for %s: %w", req.UserID, err)
	}

	portfolio := snapshot
	if req.IsScenario() {
		portfolio, err = s.applier.Apply(snapshot, req.Actions)
		if err != nil {
			return nil, fmt.Errorf("scenario failed: %w", err)
		}
	}

	// Scenario runs always recompute; cached baselines key on the portfolio
	// version and the date range
	useCache := s.cache != nil && !req.IsScenario()
	cacheKey := ""
	if useCache {
		cacheKey, err = s.cache.Fingerprint(portfolio, start, end, asOf)
		if err != nil {
			s.log.Warn().Err(err).Msg("Fingerprint failed, computing directly")
			useCache = false
		} else if cached := s.cache.Get(cacheKey); cached != nil {
			s.log.Debug().Str("key", cacheKey).Msg("Projection served from cache")
			return cached, nil
		}
	}

	timer := utils.NewTimer("projection", s.log)
	defer timer.Stop()

	simOut, err := s.simulator.Run(portfolio, start, end)
	if err != nil {
		return nil, err
	}

	result, err := s.agg.Aggregate(simOut, portfolio.Measurements)
	if err != nil {
		return nil, err
	}

	result.StartDate = start
	result.EndDate = end
	result.HistoricalAsOfDate = asOf
	result.IsHistorical = req.IsHistorical()
	result.ComputedAt = s.now()

	if useCache {
		s.cache.Put(cacheKey, result)
	}

	return result, nil
}

// resolveDates normalizes the requested range: default horizon when no end
// date is given, truncation to the as-of month in historical mode
func (s *Service) resolveDates(req *domain.ProjectionRequest) (start, end, asOf time.Time, err error) {
	if req.UserID == "" {
		return start, end, asOf, domain.NewValidationError("user_id", "required")
	}

	startBase := req.StartDate
	if startBase.IsZero() {
		startBase = s.now()
	}
	start = utils.MonthStart(startBase)

	if req.EndDate.IsZero() {
		end = utils.AddMonths(start, s.cfg.DefaultHorizonYears*12)
	} else {
		end = utils.MonthStart(req.EndDate)
	}

	if end.Before(start) {
		return start, end, asOf, domain.NewValidationError("end_date", "end %s before start %s",
			utils.FormatMonth(end), utils.FormatMonth(start))
	}
	if months := utils.MonthsBetween(start, end); months > s.cfg.MaxHorizonYears*12 {
		return start, end, asOf, domain.NewValidationError("end_date",
			"horizon of %d months exceeds the maximum of %d years", months, s.cfg.MaxHorizonYears)
	}

	if req.IsHistorical() {
		asOf = utils.MonthStart(req.AsOfDate)
		if asOf.Before(start) {
			return start, end, asOf, domain.NewValidationError("as_of_date", "as-of %s before start %s",
				utils.FormatMonth(asOf), utils.FormatMonth(start))
		}
		// Historical mode is pure truncation of the same deterministic run
		if asOf.Before(end) {
			end = asOf
		}
	}

	return start, end, asOf, nil
}
