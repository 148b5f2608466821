package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBoundaryHour(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	next := NextBoundary(now, time.Hour)
	assert.Equal(t, time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC), next)
}

func TestNextBoundaryHalfHour(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	next := NextBoundary(now, 30*time.Minute)
	assert.Equal(t, time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC), next)

	now = time.Date(2025, 3, 14, 9, 41, 0, 0, time.UTC)
	next = NextBoundary(now, 30*time.Minute)
	assert.Equal(t, time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC), next)
}

func TestNextBoundaryExactlyOnBoundary(t *testing.T) {
	// On the boundary the next tick is a full interval away, not immediate
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	next := NextBoundary(now, time.Hour)
	assert.Equal(t, time.Date(2025, 3, 14, 11, 0, 0, 0, time.UTC), next)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New("test", time.Hour)
	err := s.Run(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
