package sim

import (
	"testing"

	"github.com/gavargas22/cascabel/internal/config"
	"github.com/gavargas22/cascabel/internal/rng"
	"github.com/stretchr/testify/assert"
)

func TestArrivalSourceDueReturnsAscendingInstants(t *testing.T) {
	cfg := &config.BorderConfig{ArrivalRate: 600} // 10/sec, keeps the test fast
	stream := rng.New(7)
	src := NewArrivalSource(cfg, stream)
	due := src.Due(5.0, cfg, stream)
	assert.NotEmpty(t, due)
	for i := 1; i < len(due); i++ {
		assert.Greater(t, due[i], due[i-1])
	}
	for _, at := range due {
		assert.LessOrEqual(t, at, 5.0)
	}
}

func TestArrivalSourceAdvancesPastHorizon(t *testing.T) {
	cfg := &config.BorderConfig{ArrivalRate: 600}
	stream := rng.New(7)
	src := NewArrivalSource(cfg, stream)
	first := src.Due(2.0, cfg, stream)
	second := src.Due(4.0, cfg, stream)
	if len(first) > 0 && len(second) > 0 {
		assert.Greater(t, second[0], first[len(first)-1])
	}
}

func TestArrivalSourceRespectsDemandProfile(t *testing.T) {
	profile := make([]float64, 24)
	profile[0] = 0 // demand shut off entirely in hour 0
	cfg := &config.BorderConfig{ArrivalRate: 600, DemandProfile: profile}
	stream := rng.New(3)
	src := NewArrivalSource(cfg, stream)
	due := src.Due(3000.0, cfg, stream) // still within hour 0 (< 3600s)
	assert.Empty(t, due)
}
