// internal/generator/service.go
package generator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/classkit/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Source says where the items of a Result came from.
type Source string

const (
	SourceGenerator Source = "generator"
	SourceFallback  Source = "fallback"
)

// Result is the outcome of a successful generation.
type Result struct {
	Items  []models.Item `json:"items"`
	Source Source        `json:"source"`
	// Warning carries the backend error when fallback content was substituted.
	Warning string `json:"warning,omitempty"`
}

// JobState is the lifecycle of a background generation.
type JobState string

const (
	JobPending   JobState = "pending"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// Job is a snapshot of a background generation.
type Job struct {
	ID         uuid.UUID  `json:"id"`
	State      JobState   `json:"state"`
	Request    Request    `json:"request"`
	Result     *Result    `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

type jobEntry struct {
	job    Job
	cancel context.CancelFunc
}

// ServiceConfig tunes a Service.
type ServiceConfig struct {
	// Timeout bounds one generation. Zero means no timeout.
	Timeout time.Duration
	// Fallback substitutes built-in content when the backend fails.
	Fallback bool
	// Retention is how long finished jobs stay queryable. Zero means one hour.
	Retention time.Duration
	Clock     clockwork.Clock
}

// Service wraps a Generator with a timeout, offline fallback, metrics and a registry of
// cancellable background jobs. A failed generation never touches content the caller
// already holds: results only ever flow out through Result values.
type Service struct {
	gen Generator
	cfg ServiceConfig

	mu   sync.Mutex
	jobs map[uuid.UUID]*jobEntry
	wg   sync.WaitGroup
}

func NewService(gen Generator, cfg ServiceConfig) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = time.Hour
	}
	return &Service{
		gen:  gen,
		cfg:  cfg,
		jobs: make(map[uuid.UUID]*jobEntry),
	}
}

// Generate runs one generation synchronously.
func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	return s.run(ctx, req)
}

func (s *Service) run(ctx context.Context, req Request) (Result, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	activity := string(req.Activity)
	log := logrus.WithFields(logrus.Fields{"activity": req.Activity, "level": req.Level, "count": req.Count})

	start := s.cfg.Clock.Now()
	items, err := s.gen.Generate(ctx, req)
	generationDuration.WithLabelValues(activity).Observe(s.cfg.Clock.Since(start).Seconds())

	if err == nil {
		generationsTotal.WithLabelValues(activity, "success").Inc()
		return Result{Items: items, Source: SourceGenerator}, nil
	}

	if errors.Is(err, context.Canceled) {
		generationsTotal.WithLabelValues(activity, "cancelled").Inc()
		log.Info("generation cancelled")
		return Result{}, err
	}

	log.WithError(err).Warn("generation failed")
	if s.cfg.Fallback {
		if fb := FallbackItems(req); len(fb) > 0 {
			generationsTotal.WithLabelValues(activity, "fallback").Inc()
			return Result{Items: fb, Source: SourceFallback, Warning: err.Error()}, nil
		}
	}
	generationsTotal.WithLabelValues(activity, "failed").Inc()
	return Result{}, err
}

// StartJob validates req and runs the generation in the background. The returned id is
// used with Job and CancelJob.
func (s *Service) StartJob(req Request) (uuid.UUID, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return uuid.Nil, err
	}

	id, _ := uuid.NewRandom()
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.pruneLocked()
	s.jobs[id] = &jobEntry{
		job: Job{
			ID:        id,
			State:     JobPending,
			Request:   req,
			CreatedAt: s.cfg.Clock.Now(),
		},
		cancel: cancel,
	}
	s.mu.Unlock()

	jobsInFlight.Inc()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer jobsInFlight.Dec()
		defer cancel()

		res, err := s.run(ctx, req)
		s.finish(id, res, err)
	}()

	logrus.WithFields(logrus.Fields{"job_id": id, "activity": req.Activity}).Debug("generation job started")
	return id, nil
}

// finish records a job's outcome unless it was cancelled first.
func (s *Service) finish(id uuid.UUID, res Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok || e.job.State != JobPending {
		return
	}
	now := s.cfg.Clock.Now()
	e.job.FinishedAt = &now
	if err != nil {
		e.job.State = JobFailed
		e.job.Error = err.Error()
		return
	}
	e.job.State = JobSucceeded
	e.job.Result = &res
}

// Job returns a snapshot of a job.
func (s *Service) Job(id uuid.UUID) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return e.job, nil
}

// CancelJob stops a pending job. Cancelling a finished job leaves it unchanged.
func (s *Service) CancelJob(id uuid.UUID) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	if e.job.State == JobPending {
		now := s.cfg.Clock.Now()
		e.job.State = JobCancelled
		e.job.FinishedAt = &now
		e.cancel()
		logrus.WithField("job_id", id).Info("generation job cancelled")
	}
	return e.job, nil
}

// Close cancels every pending job and waits for the workers to exit.
func (s *Service) Close() {
	s.mu.Lock()
	for id := range s.jobs {
		e := s.jobs[id]
		if e.job.State == JobPending {
			e.job.State = JobCancelled
			e.cancel()
		}
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// pruneLocked forgets finished jobs older than the retention window. Assumes lock is held.
func (s *Service) pruneLocked() {
	cutoff := s.cfg.Clock.Now().Add(-s.cfg.Retention)
	for id, e := range s.jobs {
		if e.job.FinishedAt != nil && e.job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
}
