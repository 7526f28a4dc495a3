package revocation

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper periodically ages expired tokens out of a Store.
type Sweeper struct {
	store  *Store
	cron   *cron.Cron
	logger *logrus.Logger
	now    func() time.Time
}

// NewSweeper schedules store.Sweep on the given cron spec (for example "@every 10m").
func NewSweeper(store *Store, schedule string, logger *logrus.Logger) (*Sweeper, error) {
	s := &Sweeper{
		store:  store,
		cron:   cron.New(),
		logger: logger,
		now:    time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, fmt.Errorf("revocation: schedule %q: %w", schedule, err)
	}
	return s, nil
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce() {
	removed := s.store.Sweep(s.now())
	if removed == 0 {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"removed":   removed,
		"remaining": s.store.Len(),
	}).Info("swept expired revoked tokens")
}

// Start runs the schedule in the background.
func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
