package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripmap/tripmap/internal/itinerary"
	"github.com/tripmap/tripmap/internal/planner"
)

type fakeGenerator struct {
	mu    sync.Mutex
	doc   *itinerary.Document
	err   error
	calls []planner.Request
}

func (g *fakeGenerator) Generate(_ context.Context, req planner.Request) (*itinerary.Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if g.err != nil {
		return nil, g.err
	}
	return g.doc, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func newTestStore() (*itinerary.Service, *itinerary.InMemoryRepository) {
	repo := itinerary.NewInMemoryRepository()
	return itinerary.NewService(itinerary.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
	}), repo
}

func romeDoc() *itinerary.Document {
	return &itinerary.Document{
		Title:    "Three days in Rome",
		Currency: "EUR",
		Days: []itinerary.Day{
			{Date: "2025-05-01", City: "Rome"},
			{Date: "2025-05-02", City: "Rome"},
		},
	}
}

func generateJob(userID string) Job {
	return Job{
		JobType: JobTypeGenerateItinerary,
		JobID:   "job-1",
		UserID:  userID,
		Request: planner.Request{Destination: "Rome"},
	}
}

func TestGenerateJob_Run_SavesItinerary(t *testing.T) {
	gen := &fakeGenerator{doc: romeDoc()}
	store, repo := newTestStore()
	job := NewGenerateJob(GenerateJobConfig{Generator: gen, Store: store, Logger: zerolog.Nop()})

	rec, err := job.Run(context.Background(), generateJob("user-1"))
	require.NoError(t, err)
	assert.Equal(t, "Three days in Rome", rec.Title)
	assert.Equal(t, "user-1", rec.UserID)

	saved, err := repo.GetByUserAndID(context.Background(), "user-1", rec.ID)
	require.NoError(t, err)
	assert.Len(t, saved.Payload.Days, 2)

	m := job.GetMetrics()
	assert.Equal(t, int64(1), m.Processed)
	assert.Equal(t, int64(1), m.Succeeded)
	assert.False(t, m.LastRunAt.IsZero())
}

func TestGenerateJob_Run_TitleFallback(t *testing.T) {
	tests := []struct {
		name     string
		jobTitle string
		docTitle string
		want     string
	}{
		{name: "explicit title wins", jobTitle: "Honeymoon", docTitle: "Rome trip", want: "Honeymoon"},
		{name: "generated title", docTitle: "Rome trip", want: "Rome trip"},
		{name: "destination", want: "Rome"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := romeDoc()
			doc.Title = tt.docTitle
			store, _ := newTestStore()
			job := NewGenerateJob(GenerateJobConfig{
				Generator: &fakeGenerator{doc: doc},
				Store:     store,
				Logger:    zerolog.Nop(),
			})

			j := generateJob("user-1")
			j.Title = tt.jobTitle
			rec, err := job.Run(context.Background(), j)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Title)
		})
	}
}

func TestGenerateJob_Run_Failures(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantRetried int64
		wantDropped int64
	}{
		{name: "provider unavailable", err: planner.ErrProviderUnavailable, wantRetried: 1},
		{name: "rate limited", err: planner.ErrRateLimitExceeded, wantRetried: 1},
		{name: "bad output", err: planner.ErrBadModelOutput, wantDropped: 1},
		{name: "rejected", err: planner.ErrUpstreamRejected, wantDropped: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore()
			job := NewGenerateJob(GenerateJobConfig{
				Generator: &fakeGenerator{err: tt.err},
				Store:     store,
				Logger:    zerolog.Nop(),
			})

			_, err := job.Run(context.Background(), generateJob("user-1"))
			require.ErrorIs(t, err, tt.err)

			m := job.GetMetrics()
			assert.Equal(t, tt.wantRetried, m.Retried)
			assert.Equal(t, tt.wantDropped, m.Dropped)
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(ErrInvalidJob))
	assert.False(t, Retryable(planner.ErrInvalidRequest))
	assert.False(t, Retryable(planner.ErrNotConfigured))
	assert.False(t, Retryable(itinerary.ErrPayloadRequired))
	assert.True(t, Retryable(planner.ErrProviderUnavailable))
	assert.True(t, Retryable(context.DeadlineExceeded))
	assert.True(t, Retryable(errors.New("connection reset")))
}
