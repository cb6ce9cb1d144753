// Package jobs runs periodic maintenance in the server process.
package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// Maintainer is the subset of the service the jobs call
type Maintainer interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
	UnlockExpiredPINs(ctx context.Context) (int64, error)
}

// Scheduler wraps a gocron scheduler with the canteen's jobs registered
type Scheduler struct {
	cron *gocron.Scheduler
}

// New registers the maintenance jobs; call Start to run them.
func New(m Maintainer) (*Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(1).Hour().Do(run, "purge_reset_tokens", m.PurgeExpiredTokens); err != nil {
		return nil, err
	}
	if _, err := s.Every(5).Minutes().Do(run, "unlock_pins", m.UnlockExpiredPINs); err != nil {
		return nil, err
	}
	return &Scheduler{cron: s}, nil
}

// Len reports the number of registered jobs
func (s *Scheduler) Len() int { return s.cron.Len() }

func (s *Scheduler) Start() { s.cron.StartAsync() }

func (s *Scheduler) Stop() { s.cron.Stop() }

func run(name string, job func(context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := job(ctx)
	if err != nil {
		logrus.WithFields(logrus.Fields{"job": name, "error": err.Error()}).Error("Scheduled job failed")
		return
	}
	if n > 0 {
		logrus.WithFields(logrus.Fields{"job": name, "rows": n}).Info("Scheduled job finished")
	}
}
