package projcache

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Janitor prunes expired cache entries on a cron schedule
type Janitor struct {
	cache *Cache
	cron  *cron.Cron
	log   zerolog.Logger
}

// NewJanitor creates a janitor; Start arms the schedule
func NewJanitor(cache *Cache, log zerolog.Logger) *Janitor {
	return &Janitor{
		cache: cache,
		cron:  cron.New(),
		log:   log.With().Str("component", "cache_janitor").Logger(),
	}
}

// Start registers the prune job and starts the scheduler.
// Schedule accepts standard cron specs and descriptors like "@hourly".
func (j *Janitor) Start(schedule string) error {
	_, err := j.cron.AddFunc(schedule, func() {
		pruned, err := j.cache.Prune()
		if err != nil {
			j.log.Error().Err(err).Msg("Cache prune failed")
			return
		}
		if pruned > 0 {
			j.log.Debug().Int("pruned", pruned).Msg("Pruned expired cache entries")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}

	j.cron.Start()
	j.log.Info().Str("schedule", schedule).Msg("Cache janitor started")
	return nil
}

// Stop halts the scheduler, waiting for a running prune to finish
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}
