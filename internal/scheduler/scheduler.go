// Package scheduler runs named maintenance jobs on cron schedules. Each
// run is bounded by a timeout, panics are recovered and failures are
// logged; a failed run is simply retried on the next tick.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

type job struct {
	spec string
	fn   Job
}

// Scheduler owns a set of named jobs.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	log     *slog.Logger

	base   context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]job
}

// New creates a scheduler evaluating specs in loc. timeout bounds every
// run; zero means no bound.
func New(loc *time.Location, timeout time.Duration, log *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	log = log.With(slog.String("component", "scheduler"))
	cl := cronLogger{log: log}
	base, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		timeout: timeout,
		log:     log,
		base:    base,
		cancel:  cancel,
		jobs:    make(map[string]job),
	}
}

// Register adds a job. An empty spec registers the job for RunOnce only.
// Specs use the standard five field cron syntax or descriptors such as
// "@hourly".
func (s *Scheduler) Register(name, spec string, fn Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	if spec != "" {
		if _, err := s.cron.AddFunc(spec, func() { s.tick(name, fn) }); err != nil {
			return fmt.Errorf("job %q: invalid schedule %q: %w", name, spec, err)
		}
	}
	s.jobs[name] = job{spec: spec, fn: fn}
	return nil
}

// Names lists registered jobs in alphabetical order.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// RunOnce runs one tick of the named job synchronously and returns its
// error. A panic inside the job is returned as an error.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.run(ctx, name, j.fn)
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started", slog.Any("jobs", s.Names()))
	s.cron.Start()
}

// Stop halts the schedule, cancels running jobs and waits for them to
// return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("jobs still running at shutdown")
	}
}

func (s *Scheduler) tick(name string, fn Job) {
	if err := s.run(s.base, name, fn); err != nil {
		s.log.Error("job failed", slog.String("job", name), slog.Any("err", err))
	}
}

func (s *Scheduler) run(ctx context.Context, name string, fn Job) (err error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %q panicked: %v", name, r)
		}
	}()

	started := time.Now()
	err = fn(ctx)
	s.log.Debug("job finished", slog.String("job", name),
		slog.Duration("took", time.Since(started)), slog.Bool("ok", err == nil))
	return err
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append([]interface{}{slog.Any("err", err)}, keysAndValues...)...)
}
