package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsConservation(t *testing.T) {
	var s Stats
	for i := 0; i < 10; i++ {
		s.RecordArrival()
	}
	s.RecordDrop()
	s.RecordDrop()
	s.RecordCompletion(30)
	s.RecordCompletion(45)
	s.RecordCompletion(20)
	assert.Equal(t, int64(10), s.TotalArrivals)
	assert.Equal(t, int64(2), s.Dropped)
	assert.Equal(t, int64(3), s.TotalCompletions)
	assert.Equal(t, int64(5), s.InSystem())
}

func TestStatsMeans(t *testing.T) {
	var s Stats
	s.RecordWait(10)
	s.RecordWait(20)
	assert.InDelta(t, 15.0, s.MeanWaitSeconds(), 1e-9)

	s.RecordCompletion(30)
	s.RecordCompletion(50)
	assert.InDelta(t, 40.0, s.MeanServiceSeconds(), 1e-9)
}

func TestThroughputZeroBeforeElapsed(t *testing.T) {
	s := Stats{StartedAt: 100}
	assert.Equal(t, 0.0, s.ThroughputPerMinute(100))
}
