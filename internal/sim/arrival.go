package sim

import (
	"github.com/gavargas22/cascabel/internal/config"
	"github.com/gavargas22/cascabel/internal/rng"
)

// ArrivalSource generates arrival instants as a Poisson process. Its rate is
// border_config.arrival_rate cars/minute, optionally modulated by an
// hour-of-day demand profile; the next inter-arrival gap is always redrawn
// immediately after the current one fires, whether or not that arrival is
// ultimately admitted downstream.
type ArrivalSource struct {
	nextAt float64
}

// NewArrivalSource schedules the first arrival.
func NewArrivalSource(cfg *config.BorderConfig, stream *rng.Stream) *ArrivalSource {
	s := &ArrivalSource{}
	s.nextAt = stream.Exp(effectiveRatePerSecond(cfg, 0))
	return s
}

// Due returns, in order, every arrival instant scheduled at or before
// horizon (a sim_time_s), advancing the source past each one it returns.
func (s *ArrivalSource) Due(horizon float64, cfg *config.BorderConfig, stream *rng.Stream) []float64 {
	var out []float64
	for s.nextAt <= horizon {
		out = append(out, s.nextAt)
		rate := effectiveRatePerSecond(cfg, s.nextAt)
		s.nextAt += stream.Exp(rate)
	}
	return out
}

func effectiveRatePerSecond(cfg *config.BorderConfig, simTimeS float64) float64 {
	return cfg.ArrivalRate * cfg.DemandMultiplierAt(simTimeS) / 60.0
}
