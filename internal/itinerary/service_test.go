package itinerary

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService(ServiceConfig{
		Repository: NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
	})
}

func TestService_Save(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	rec, err := svc.Save(ctx, "user-1", SaveInput{
		Title:   "  Lisbon weekend  ",
		Payload: &Document{Title: "Lisbon weekend"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "user-1", rec.UserID)
	assert.Equal(t, "Lisbon weekend", rec.Title)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestService_Save_Validation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	doc := &Document{Title: "x"}

	_, err := svc.Save(ctx, "user-1", SaveInput{ClaimedUserID: "user-2", Title: "t", Payload: doc})
	assert.ErrorIs(t, err, ErrUserMismatch)

	_, err = svc.Save(ctx, "user-1", SaveInput{Title: "   ", Payload: doc})
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = svc.Save(ctx, "user-1", SaveInput{Title: "t"})
	assert.ErrorIs(t, err, ErrPayloadRequired)

	_, err = svc.Save(ctx, "user-1", SaveInput{ClaimedUserID: "user-1", Title: "t", Payload: doc})
	assert.NoError(t, err)
}

func TestService_List_NewestFirst(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	_, err := svc.Save(ctx, "user-1", SaveInput{Title: "first", Payload: &Document{}})
	require.NoError(t, err)
	_, err = svc.Save(ctx, "user-1", SaveInput{Title: "second", Payload: &Document{}})
	require.NoError(t, err)
	_, err = svc.Save(ctx, "user-2", SaveInput{Title: "other", Payload: &Document{}})
	require.NoError(t, err)

	list, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title)
	assert.Equal(t, "first", list[1].Title)

	empty, err := svc.List(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestService_Get_Ownership(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	rec, err := svc.Save(ctx, "user-1", SaveInput{Title: "mine", Payload: &Document{Title: "mine"}})
	require.NoError(t, err)

	got, err := svc.Get(ctx, "user-1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Payload.Title)

	_, err = svc.Get(ctx, "user-2", rec.ID)
	assert.ErrorIs(t, err, ErrItineraryNotFound)

	_, err = svc.Get(ctx, "user-1", "not-a-uuid")
	assert.ErrorIs(t, err, ErrItineraryNotFound)
}
