package aggregate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotQuantile(t *testing.T) {
	s := Snapshot{Timestamp: time.Now(), Samples: []float64{10, 20, 30, 40, 50}}

	cases := []struct {
		q    float64
		want float64
	}{
		{0.5, 30},  // floor(5*0.5) = 2
		{0.7, 40},  // floor(5*0.7) = 3
		{0.9, 50},  // floor(5*0.9) = 4
		{0.95, 50}, // floor(5*0.95) = 4
		{0.99, 50}, // floor(5*0.99) = 4
	}
	for _, tc := range cases {
		got, err := s.Quantile(tc.q)
		require.NoError(t, err, "q=%v", tc.q)
		assert.Equal(t, tc.want, got, "q=%v", tc.q)
	}

	assert.Equal(t, 5, s.Calls())
}

func TestSnapshotQuantileSingleSampleClamps(t *testing.T) {
	s := Snapshot{Samples: []float64{7}}

	got, err := s.Quantile(0.99)
	require.NoError(t, err)
	assert.Equal(t, 7.0, got)
}

func TestSnapshotQuantileEmptyRejected(t *testing.T) {
	s := Snapshot{}

	_, err := s.Quantile(0.5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptySnapshot))
}

func TestSnapshotQuantileRangeRejected(t *testing.T) {
	s := Snapshot{Samples: []float64{1, 2, 3}}

	for _, q := range []float64{0, 1, -0.5, 1.5} {
		_, err := s.Quantile(q)
		assert.Error(t, err, "q=%v", q)
	}
}
