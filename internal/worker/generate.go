package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripmap/tripmap/internal/itinerary"
	"github.com/tripmap/tripmap/internal/planner"
)

// Generator produces an itinerary document.
type Generator interface {
	Generate(ctx context.Context, req planner.Request) (*itinerary.Document, error)
}

// Store saves a generated itinerary for a user.
type Store interface {
	Save(ctx context.Context, userID string, in itinerary.SaveInput) (*itinerary.Record, error)
}

// GenerateJobConfig holds configuration for creating a GenerateJob.
type GenerateJobConfig struct {
	Generator Generator
	Store     Store

	// Timeout bounds one generation (default: 2 minutes).
	Timeout time.Duration

	Logger zerolog.Logger
}

// GenerateJob generates itineraries and saves them under the requesting user.
type GenerateJob struct {
	generator Generator
	store     Store
	timeout   time.Duration
	logger    zerolog.Logger

	metrics *JobMetrics
}

// JobMetrics tracks job statistics.
type JobMetrics struct {
	mu sync.RWMutex

	Processed int64
	Succeeded int64
	Retried   int64
	Dropped   int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
}

// Snapshot returns a copy of the metrics.
func (m *JobMetrics) Snapshot() JobMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return JobMetrics{
		Processed:       m.Processed,
		Succeeded:       m.Succeeded,
		Retried:         m.Retried,
		Dropped:         m.Dropped,
		LastRunAt:       m.LastRunAt,
		LastRunDuration: m.LastRunDuration,
	}
}

// NewGenerateJob creates a new generation job processor.
func NewGenerateJob(cfg GenerateJobConfig) *GenerateJob {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}

	return &GenerateJob{
		generator: cfg.Generator,
		store:     cfg.Store,
		timeout:   timeout,
		logger:    cfg.Logger,
		metrics:   &JobMetrics{},
	}
}

// GetMetrics returns a snapshot of the job metrics.
func (j *GenerateJob) GetMetrics() JobMetrics {
	return j.metrics.Snapshot()
}

// Run generates and saves the itinerary described by job.
func (j *GenerateJob) Run(ctx context.Context, job Job) (*itinerary.Record, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	rec, err := j.run(ctx, job)
	j.record(start, err)
	return rec, err
}

func (j *GenerateJob) run(ctx context.Context, job Job) (*itinerary.Record, error) {
	doc, err := j.generator.Generate(ctx, job.Request)
	if err != nil {
		return nil, fmt.Errorf("generating itinerary: %w", err)
	}

	title := strings.TrimSpace(job.Title)
	if title == "" {
		title = strings.TrimSpace(doc.Title)
	}
	if title == "" {
		title = strings.TrimSpace(job.Request.Destination)
	}

	rec, err := j.store.Save(ctx, job.UserID, itinerary.SaveInput{
		Title:   title,
		Payload: doc,
	})
	if err != nil {
		return nil, fmt.Errorf("saving itinerary: %w", err)
	}

	j.logger.Info().
		Str("job_id", job.JobID).
		Str("user_id", job.UserID).
		Str("itinerary_id", rec.ID).
		Int("days", len(doc.Days)).
		Msg("itinerary job completed")

	return rec, nil
}

func (j *GenerateJob) record(start time.Time, err error) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.Processed++
	j.metrics.LastRunAt = start
	j.metrics.LastRunDuration = time.Since(start)

	switch {
	case err == nil:
		j.metrics.Succeeded++
	case Retryable(err):
		j.metrics.Retried++
	default:
		j.metrics.Dropped++
	}
}

// Retryable reports whether a failed job should be redelivered. Invalid requests
// and unusable model output are dropped; provider outages, rate limits, timeouts
// and storage errors are retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidJob) ||
		errors.Is(err, planner.ErrInvalidRequest) ||
		errors.Is(err, planner.ErrNotConfigured) ||
		errors.Is(err, planner.ErrBadModelOutput) ||
		errors.Is(err, planner.ErrUpstreamRejected) ||
		errors.Is(err, itinerary.ErrTitleRequired) ||
		errors.Is(err, itinerary.ErrPayloadRequired) {
		return false
	}
	return true
}
