// Package scheduler drives the recurring background work of the backend:
// the daily day-ahead price refresh, the periodic model retrain and the
// weekly reservoir statistics update. Jobs re-arm after every run, whether
// the run succeeded or not, and at most one execution of a job is in flight
// at any time.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"strompris-api/config"
)

// Task is a unit of recurring work. The context is cancelled on shutdown;
// long-running tasks should honor it.
type Task func(ctx context.Context) error

// Clock abstracts wall-clock access so job timing is testable.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type job struct {
	name string
	task Task
	// next computes the next firing instant strictly after now
	next func(now time.Time) time.Time
}

// Scheduler runs registered jobs until stopped
type Scheduler struct {
	clock  Clock
	jobs   []*job
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler on the system clock
func NewScheduler() *Scheduler {
	return &Scheduler{clock: systemClock{}}
}

// NewSchedulerWithClock creates a scheduler on an injected clock, for tests
func NewSchedulerWithClock(clock Clock) *Scheduler {
	return &Scheduler{clock: clock}
}

// Daily registers a job that fires once per calendar day at the given
// wall-clock time. An instant exactly equal to now counts as already passed
// and rolls over to the next day.
func (s *Scheduler) Daily(name string, at config.TimeOfDay, task Task) {
	s.jobs = append(s.jobs, &job{
		name: name,
		task: task,
		next: func(now time.Time) time.Time { return nextDailyRun(now, at) },
	})
}

// Every registers a job that fires on a fixed interval, starting one
// interval from now.
func (s *Scheduler) Every(name string, interval time.Duration, task Task) {
	s.jobs = append(s.jobs, &job{
		name: name,
		task: task,
		next: func(now time.Time) time.Time { return now.Add(interval) },
	})
}

// Start launches one goroutine per registered job. Each job loop waits for
// its next firing instant, runs the task to completion, logs any failure and
// re-arms. Running the task inline in the loop is what guarantees at most
// one concurrent execution per job.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	log.Printf("Starting scheduler with %d jobs...", len(s.jobs))
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.runJob(ctx, j)
	}
}

// Stop cancels all job loops and waits for in-flight runs to return
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) runJob(ctx context.Context, j *job) {
	defer s.wg.Done()
	for {
		now := s.clock.Now()
		fireAt := j.next(now)
		log.Printf("Job %q scheduled for %s", j.name, fireAt.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(fireAt.Sub(now)):
		}

		if err := j.task(ctx); err != nil {
			log.Printf("Job %q failed: %v", j.name, err)
		}
	}
}

// nextDailyRun returns the next occurrence of the given time of day after
// now: today if that instant is still in the future, otherwise tomorrow.
func nextDailyRun(now time.Time, at config.TimeOfDay) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
