package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caseflow/followup-service/internal/ports"
)

// Job is one registered periodic task.
type Job struct {
	Name         string
	InitialDelay time.Duration
	Period       time.Duration
	Run          func(ctx context.Context) error

	running atomic.Bool
}

// Scheduler runs registered jobs at a fixed rate, gated so that only the
// current leader executes a tick. Each job is single flight: a tick that
// arrives while the previous run is still going is skipped, not queued.
type Scheduler struct {
	logger    *slog.Logger
	leader    ports.LeaderProbe
	readiness ports.Readiness
	jobs      []*Job
}

func NewScheduler(logger *slog.Logger, leader ports.LeaderProbe, readiness ports.Readiness) *Scheduler {
	return &Scheduler{
		logger:    logger,
		leader:    leader,
		readiness: readiness,
	}
}

// Register adds a job. Call before Run; registration is not safe afterwards.
func (s *Scheduler) Register(name string, initialDelay, period time.Duration, run func(ctx context.Context) error) {
	s.jobs = append(s.jobs, &Job{
		Name:         name,
		InitialDelay: initialDelay,
		Period:       period,
		Run:          run,
	})
}

// Run blocks until the context ends, driving every registered job in its own
// goroutine.
func (s *Scheduler) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func(job *Job) {
			defer wg.Done()
			s.runJob(ctx, job)
		}(job)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) runJob(ctx context.Context, job *Job) {
	if job.InitialDelay > 0 {
		timer := time.NewTimer(job.InitialDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
	ticker := time.NewTicker(job.Period)
	defer ticker.Stop()

	s.tick(ctx, job)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, job)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, job *Job) {
	if !s.readiness.Ready() {
		return
	}
	isLeader, err := s.leader.IsLeader(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "leader probe failed, skipping tick",
			"module", "jobs.scheduler",
			"layer", "adapter",
			"operation", "tick",
			"outcome", "skipped",
			"job", job.Name,
			"error", err,
		)
		return
	}
	if !isLeader {
		return
	}
	if !job.running.CompareAndSwap(false, true) {
		s.logger.WarnContext(ctx, "previous run still in progress, skipping tick",
			"module", "jobs.scheduler",
			"layer", "adapter",
			"operation", "tick",
			"outcome", "skipped",
			"job", job.Name,
		)
		return
	}
	defer job.running.Store(false)

	s.execute(ctx, job)
}

// execute isolates one run so a panicking job body cannot take down the
// scheduler or its sibling jobs.
func (s *Scheduler) execute(ctx context.Context, job *Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "job panicked",
				"module", "jobs.scheduler",
				"layer", "adapter",
				"operation", "execute",
				"outcome", "failure",
				"job", job.Name,
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()
	started := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.ErrorContext(ctx, "job failed",
			"module", "jobs.scheduler",
			"layer", "adapter",
			"operation", "execute",
			"outcome", "failure",
			"job", job.Name,
			"duration", time.Since(started).String(),
			"error", err,
		)
		return
	}
	s.logger.DebugContext(ctx, "job completed",
		"module", "jobs.scheduler",
		"layer", "adapter",
		"operation", "execute",
		"outcome", "success",
		"job", job.Name,
		"duration", time.Since(started).String(),
	)
}
