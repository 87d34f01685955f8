// Package recurring creates the next occurrence of completed recurring
// tasks on a cron schedule.
package recurring

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taskchat/taskchat/internal/logging"
	"github.com/taskchat/taskchat/internal/metrics"
	"github.com/taskchat/taskchat/internal/store"
)

const sweepTimeout = 30 * time.Second

// Sweeper runs the recurring-task sweep on an in-process cron schedule.
type Sweeper struct {
	tasks *store.Tasks
	cron  *cron.Cron
}

// NewSweeper creates a sweeper. spec accepts standard cron expressions
// and @every durations.
func NewSweeper(tasks *store.Tasks, spec string) (*Sweeper, error) {
	s := &Sweeper{
		tasks: tasks,
		cron:  cron.New(),
	}
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins scheduling sweeps.
func (s *Sweeper) Start() {
	s.cron.Start()
	logging.Infof("[recurring] sweeper started")
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	logging.Infof("[recurring] sweeper stopped")
}

// sweep is one scheduled pass. Failures are logged, never fatal; the
// next pass retries whatever is still due.
func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.tasks.SpawnDueRecurrences(ctx)
	if err != nil {
		logging.Errorf("[recurring] sweep failed after %d spawns: %v", n, err)
	}
	if n > 0 {
		metrics.RecurringSpawns.Add(float64(n))
		logging.Infof("[recurring] created %d next occurrences", n)
	}
}
