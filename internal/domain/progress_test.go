package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressMetricRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		count, goal int
		ratio       float64
		label       string
		pct         string
	}{
		{0, 100, 0, "0 / 100 Subscribers", "0.0%"},
		{42, 100, 0.42, "42 / 100 Subscribers", "42.0%"},
		{100, 100, 1, "100 / 100 Subscribers", "100.0%"},
		{250, 100, 1, "250 / 100 Subscribers", "100.0%"},
		{1, 3, 1.0 / 3.0, "1 / 3 Subscribers", "33.3%"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(fmt.Sprintf("%d_of_%d", tt.count, tt.goal), func(t *testing.T) {
			t.Parallel()

			m, err := NewProgressMetric(tt.count, tt.goal)
			require.NoError(t, err)
			assert.InDelta(t, tt.ratio, m.Ratio(), 1e-9)
			assert.Equal(t, tt.label, m.CountLabel())
			assert.Equal(t, tt.pct, m.PercentageLabel())
		})
	}
}

func TestProgressMetricRatioBounds(t *testing.T) {
	t.Parallel()

	for goal := 1; goal <= 50; goal += 7 {
		for count := 0; count <= 200; count += 13 {
			m, err := NewProgressMetric(count, goal)
			require.NoError(t, err)
			r := m.Ratio()
			if r < 0 || r > 1 {
				t.Fatalf("ratio %f out of range for %d/%d", r, count, goal)
			}
		}
	}
}

func TestNewProgressMetricRejectsInvalid(t *testing.T) {
	t.Parallel()

	_, err := NewProgressMetric(10, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewProgressMetric(10, -5)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewProgressMetric(-1, 100)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestUploadErrorMatchesSentinel(t *testing.T) {
	t.Parallel()

	cause := errors.New("quota exceeded")
	err := fmt.Errorf("publish: %w", &UploadError{
		Destination: DestinationDrive,
		Code:        403,
		Payload:     `{"error":{"code":403}}`,
		Err:         cause,
	})

	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "drive upload rejected (status 403)")
	assert.Contains(t, err.Error(), `{"error":{"code":403}}`)

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, 403, uploadErr.Code)
}

func TestPublicationUnchanged(t *testing.T) {
	t.Parallel()

	p := Publication{Count: 10, Goal: 100}
	assert.True(t, p.Unchanged(ProgressMetric{Count: 10, Goal: 100}))
	assert.False(t, p.Unchanged(ProgressMetric{Count: 11, Goal: 100}))
	assert.False(t, p.Unchanged(ProgressMetric{Count: 10, Goal: 200}))
	assert.True(t, DestinationDrive.Valid())
	assert.False(t, Destination("ftp").Valid())
}
