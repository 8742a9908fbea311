package session

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Sweeper periodically tears down idle sessions
type Sweeper struct {
	store *Store
	cron  *cron.Cron
}

// NewSweeper schedules SweepExpired on the given cron spec (e.g. "@every 1m")
func NewSweeper(store *Store, spec string) (*Sweeper, error) {
	c := cron.New()
	sw := &Sweeper{store: store, cron: c}

	if _, err := c.AddFunc(spec, sw.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return sw, nil
}

// Start runs the sweeper until ctx is cancelled
func (sw *Sweeper) Start(ctx context.Context) {
	log.Info().Msg("Starting session sweeper")
	sw.cron.Start()

	<-ctx.Done()
	stopped := sw.cron.Stop()
	<-stopped.Done()
	log.Info().Msg("Session sweeper stopped")
}

func (sw *Sweeper) sweep() {
	if n := sw.store.SweepExpired(); n > 0 {
		log.Info().Int("sessions", n).Msg("expired sessions torn down")
	}
}
