package model

// Stats accumulates run-level counters incrementally as the orchestrator
// processes each tick, rather than being recomputed by scanning every car
// on every snapshot.
type Stats struct {
	TotalArrivals    int64
	TotalCompletions int64
	Dropped          int64

	waitSumSeconds    float64
	waitCount         int64
	serviceSumSeconds float64
	serviceCount      int64

	StartedAt float64 // sim_time_s at which the run began, for throughput
}

// RecordArrival counts one arrival event, whether or not it was ultimately
// admitted -- the conservation law (total_arrivals = completions +
// in_system + dropped) only holds if dropped arrivals still count here.
func (s *Stats) RecordArrival() { s.TotalArrivals++ }

// RecordDrop counts one arrival that could not be queued. Call this in
// addition to RecordArrival, not instead of it.
func (s *Stats) RecordDrop() { s.Dropped++ }

// RecordWait folds one car's queue wait into the running mean.
func (s *Stats) RecordWait(seconds float64) {
	s.waitSumSeconds += seconds
	s.waitCount++
}

// RecordCompletion folds one finished service into the running mean and
// bumps the completion counter.
func (s *Stats) RecordCompletion(serviceSeconds float64) {
	s.TotalCompletions++
	s.serviceSumSeconds += serviceSeconds
	s.serviceCount++
}

// MeanWaitSeconds is the running mean queue wait across all cars that have
// started service.
func (s *Stats) MeanWaitSeconds() float64 {
	if s.waitCount == 0 {
		return 0
	}
	return s.waitSumSeconds / float64(s.waitCount)
}

// MeanServiceSeconds is the running mean booth service duration.
func (s *Stats) MeanServiceSeconds() float64 {
	if s.serviceCount == 0 {
		return 0
	}
	return s.serviceSumSeconds / float64(s.serviceCount)
}

// ThroughputPerMinute is completions per minute of elapsed sim time.
func (s *Stats) ThroughputPerMinute(simTimeS float64) float64 {
	elapsed := simTimeS - s.StartedAt
	if elapsed <= 0 {
		return 0
	}
	return float64(s.TotalCompletions) / (elapsed / 60.0)
}

// InSystem is arrivals not yet accounted for as completed or dropped -- the
// in_system term of the arrivals/completions/drops conservation law.
func (s *Stats) InSystem() int64 {
	return s.TotalArrivals - s.TotalCompletions - s.Dropped
}
