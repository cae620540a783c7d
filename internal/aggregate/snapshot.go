package aggregate

import (
	"errors"
	"fmt"
	"time"
)

// Snapshot is an immutable, timestamped copy of the latency samples one
// action name accumulated during one poll cycle. Samples are sorted
// ascending at creation and never mutated afterwards.
type Snapshot struct {
	Timestamp time.Time
	Samples   []float64
}

// ErrEmptySnapshot is returned for quantile reads on a snapshot with no
// samples; there is no value to index.
var ErrEmptySnapshot = errors.New("quantile read on empty snapshot")

// Calls returns the number of calls captured in this snapshot.
func (s Snapshot) Calls() int {
	return len(s.Samples)
}

// Quantile returns the sample at index floor(n*q). q must be strictly
// between 0 and 1. An index past the end is clamped to the last sample,
// so Quantile(0.99) on a single-sample snapshot returns that sample.
func (s Snapshot) Quantile(q float64) (float64, error) {
	if len(s.Samples) == 0 {
		return 0, ErrEmptySnapshot
	}
	if q <= 0 || q >= 1 {
		return 0, fmt.Errorf("quantile %v outside (0, 1)", q)
	}
	idx := int(float64(len(s.Samples)) * q)
	if idx >= len(s.Samples) {
		idx = len(s.Samples) - 1
	}
	return s.Samples[idx], nil
}
