package planner

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{name: "destination only", req: Request{Destination: "Kyoto"}},
		{name: "full", req: Request{Destination: "Kyoto", StartDate: "2025-04-01", EndDate: "2025-04-03"}},
		{name: "same day", req: Request{Destination: "Kyoto", StartDate: "2025-04-01", EndDate: "2025-04-01"}},
		{name: "missing destination", req: Request{StartDate: "2025-04-01"}, field: "destination"},
		{name: "bad start", req: Request{Destination: "Kyoto", StartDate: "April 1"}, field: "startDate"},
		{name: "bad end", req: Request{Destination: "Kyoto", EndDate: "2025-13-01"}, field: "endDate"},
		{name: "end before start", req: Request{Destination: "Kyoto", StartDate: "2025-04-03", EndDate: "2025-04-01"}, field: "endDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)

			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestRequest_Normalize(t *testing.T) {
	req := Request{Destination: "  Kyoto ", Prefs: "\tfood\n"}.Normalize()
	assert.Equal(t, "Kyoto", req.Destination)
	assert.Equal(t, "food", req.Prefs)
}

func TestError_IsRetryable(t *testing.T) {
	assert.True(t, (&Error{Err: ErrProviderUnavailable}).IsRetryable())
	assert.True(t, (&Error{Err: ErrRateLimitExceeded}).IsRetryable())
	assert.False(t, (&Error{Err: ErrBadModelOutput}).IsRetryable())
	assert.False(t, (&Error{Err: ErrUpstreamRejected}).IsRetryable())
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(Request{
		Destination: "Lisbon",
		StartDate:   "2025-06-01",
		EndDate:     "2025-06-03",
		Budget:      "1500 EUR",
		People:      "2",
		Prefs:       "seafood, museums",
	})

	assert.True(t, strings.HasPrefix(prompt, "You are an expert travel planner."))
	assert.Contains(t, prompt, "- Consider destination: Lisbon\n")
	assert.Contains(t, prompt, "- Dates: 2025-06-01 to 2025-06-03\n")
	assert.Contains(t, prompt, "- Budget: 1500 EUR\n")
	assert.Contains(t, prompt, "- People: 2\n")
	assert.Contains(t, prompt, "- Preferences: seafood, museums\n")
	assert.Contains(t, prompt, "use Lisbon local prices")
	assert.True(t, strings.HasSuffix(prompt, "- Keep JSON concise."))
}
