// Package scheduling runs named tasks on a recurring schedule. Periodic event
// producers are built on it: each producer is one task that sends a single
// value per tick and removes itself once its sink disconnects.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"reflex/internal/domain"
)

// ErrStopTask may be returned by a task to unschedule itself.
var ErrStopTask = errors.New("scheduling: stop task")

// ScheduledTask defines a recurring task.
type ScheduledTask struct {
	Name     string
	Schedule string // cron expression "*/5 * * * *" OR duration "2s"
	Run      func(ctx context.Context) error
}

type entry struct {
	id   cron.EntryID
	done chan struct{}
	once sync.Once
}

func (e *entry) finish() {
	e.once.Do(func() { close(e.done) })
}

// Scheduler runs tasks using cron expressions or durations. A task never
// overlaps with itself: a tick that fires while the previous run is still in
// progress is skipped.
type Scheduler struct {
	cron    *cron.Cron
	entries map[string]*entry
	logger  *slog.Logger
	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates a scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// AddTask schedules task. The returned channel is closed when the task is
// removed: by RemoveTask, by Stop, or by the task itself returning
// ErrStopTask or domain.ErrDisconnected.
func (s *Scheduler) AddTask(task ScheduledTask) (<-chan struct{}, error) {
	if task.Run == nil {
		return nil, fmt.Errorf("scheduler: task %q has no run function", task.Name)
	}
	schedule, err := parseSchedule(task.Schedule)
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid schedule %q for task %q: %w", task.Schedule, task.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[task.Name]; exists {
		return nil, fmt.Errorf("scheduler: task %q already exists", task.Name)
	}

	e := &entry{done: make(chan struct{})}
	e.id = s.cron.Schedule(schedule, s.job(task.Name, task.Run))
	s.entries[task.Name] = e

	s.logger.Debug("task added to scheduler", "name", task.Name, "schedule", task.Schedule)
	return e.done, nil
}

func (s *Scheduler) job(name string, fn func(ctx context.Context) error) cron.FuncJob {
	return func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()

		if ctx == nil {
			s.logger.Debug("scheduler stopped, skipping task", "task", name)
			return
		}

		start := time.Now()
		err := fn(ctx)
		switch {
		case err == nil:
			s.logger.Debug("scheduled task completed", "task", name, "duration", time.Since(start))
		case errors.Is(err, ErrStopTask) || domain.IsShutdown(err):
			s.logger.Debug("scheduled task stopping", "task", name, "reason", err)
			_ = s.RemoveTask(name)
		default:
			s.logger.Warn("scheduled task failed",
				"task", name,
				"error", err,
				"duration", time.Since(start))
		}
	}
}

// RemoveTask unschedules a task by name.
func (s *Scheduler) RemoveTask(name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	if ok {
		delete(s.entries, name)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("scheduler: task %q not found", name)
	}
	s.cron.Remove(e.id)
	e.finish()
	s.logger.Debug("task removed", "name", name)
	return nil
}

// NextRun returns the next scheduled run time for a task, or nil if the task
// is unknown or the scheduler is not running.
func (s *Scheduler) NextRun(name string) *time.Time {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()

	if !ok {
		return nil
	}
	en := s.cron.Entry(e.id)
	if en.ID == 0 || en.Next.IsZero() {
		return nil
	}
	t := en.Next
	return &t
}

// Len reports the number of scheduled tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Start begins running the scheduler. Tasks receive a context derived from
// ctx that is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.started = true
	return nil
}

// Stop halts the scheduler, waits for running tasks to finish and removes
// every task.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.ctx, s.cancel = nil, nil
	entries := s.entries
	s.entries = make(map[string]*entry)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-s.cron.Stop().Done()

	for _, e := range entries {
		s.cron.Remove(e.id)
		e.finish()
	}
	return nil
}

// parseSchedule tries to parse a schedule string as a cron expression first,
// then falls back to time.ParseDuration.
func parseSchedule(schedule string) (cron.Schedule, error) {
	if schedule == "" {
		return nil, fmt.Errorf("empty schedule")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if sched, err := parser.Parse(schedule); err == nil {
		return sched, nil
	}

	dur, err := time.ParseDuration(schedule)
	if err != nil {
		return nil, fmt.Errorf("not a valid cron expression or duration: %q", schedule)
	}
	if dur <= 0 {
		return nil, fmt.Errorf("duration must be positive: %q", schedule)
	}
	return &constantDelay{delay: dur}, nil
}

// ParseSchedule exposes schedule parsing for config validation.
func ParseSchedule(schedule string) (cron.Schedule, error) {
	return parseSchedule(schedule)
}

// constantDelay implements cron.Schedule for a fixed interval.
// Unlike cron.Every(), it supports sub-second durations.
type constantDelay struct {
	delay time.Duration
}

func (d *constantDelay) Next(t time.Time) time.Time {
	return t.Add(d.delay)
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
