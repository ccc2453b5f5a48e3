package schedule

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled run. Its error is logged; the schedule keeps going.
type Job func(ctx context.Context) error

type Scheduler struct {
	Spec     string
	Schedule cron.Schedule
	Location *time.Location

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func New(spec string, sched cron.Schedule, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{Spec: spec, Schedule: sched, Location: loc, now: time.Now, after: time.After}
}

// Run waits for each tick of the schedule and runs job, until ctx is
// cancelled. Runs never overlap: the next tick is computed after the job
// returns.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	log.Printf("schedule started cron=%q tz=%s", s.Spec, s.Location)
	for {
		now := s.now().In(s.Location)
		next := s.Schedule.Next(now)
		wait := next.Sub(now)
		log.Printf("Next run at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

		select {
		case <-ctx.Done():
			log.Printf("schedule stopped cron=%q", s.Spec)
			return ctx.Err()
		case <-s.after(wait):
		}

		start := time.Now()
		if err := job(ctx); err != nil {
			log.Printf("scheduled run error: %v", err)
		} else {
			log.Printf("scheduled run complete elapsed=%s", time.Since(start).Round(time.Millisecond))
		}
	}
}
