package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "rokcal/internal/log"
)

// Scheduler refreshes a Store on a cron schedule.
type Scheduler struct {
	store    *Store
	schedule cron.Schedule
	loc      *time.Location
}

// NewScheduler validates spec (standard 5-field cron) up front.
func NewScheduler(spec string, loc *time.Location, store *Store) (*Scheduler, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("catalog: bad refresh schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{store: store, schedule: sched, loc: loc}, nil
}

// Run blocks until ctx is done. A tick that fires while the previous
// refresh is still running is skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		err := s.store.Refresh(ctx)
		if err != nil && !errors.Is(err, ErrSuperseded) && ctx.Err() == nil {
			appLog.Error("scheduled refresh failed", err)
		}
	}))

	c.Start()
	appLog.Info("catalog refresh scheduler started")
	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("catalog refresh scheduler stopped")
	return nil
}

// cronLogger routes cron's own logging through the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
