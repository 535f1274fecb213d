package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripmap/tripmap/internal/planner"
)

func TestJob_Validate(t *testing.T) {
	tests := []struct {
		name    string
		job     Job
		wantErr bool
	}{
		{name: "generate", job: generateJob("user-1")},
		{name: "health check", job: Job{JobType: JobTypeHealthCheck}},
		{name: "missing user", job: generateJob(" "), wantErr: true},
		{
			name: "missing destination",
			job: Job{
				JobType: JobTypeGenerateItinerary,
				UserID:  "user-1",
				Request: planner.Request{Destination: "  "},
			},
			wantErr: true,
		},
		{name: "unknown type", job: Job{JobType: "refresh"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidJob)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEncodeJob_AssignsID(t *testing.T) {
	j := generateJob("user-1")
	j.JobID = ""

	encoded, data, err := encodeJob(j)
	require.NoError(t, err)
	assert.NotEmpty(t, encoded.JobID)
	assert.Contains(t, string(data), `"job_type":"generate_itinerary"`)
	assert.Contains(t, string(data), encoded.JobID)
}

func TestEncodeJob_RejectsInvalid(t *testing.T) {
	_, _, err := encodeJob(Job{JobType: JobTypeGenerateItinerary})
	assert.ErrorIs(t, err, ErrInvalidJob)
}
