package sim

import "github.com/gavargas22/cascabel/internal/model"

// Status is the closed set of simulation lifecycle states.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// CarView is the per-car projection a snapshot exposes to subscribers --
// deliberately narrower than model.Car so a subscriber never sees phone
// config or internal telemetry bookkeeping.
type CarView struct {
	ID        int64           `json:"id"`
	PositionS float64         `json:"position_s"`
	Velocity  float64         `json:"velocity"`
	Status    model.CarStatus `json:"status"`
	QueueID   int             `json:"queue_id"`
}

// BoothView is the per-booth projection a snapshot exposes.
type BoothView struct {
	ID              int     `json:"id"`
	QueueID         int     `json:"queue_id"`
	IsBusy          bool    `json:"is_busy"`
	CurrentCarID    int64   `json:"current_car_id,omitempty"`
	ServiceRate     float64 `json:"service_rate"`
	TotalServed     int64   `json:"total_served"`
	TotalServiceSec float64 `json:"total_service_time"`
}

// StatsView is the aggregate statistics projection.
type StatsView struct {
	TotalArrivals    int64   `json:"total_arrivals"`
	TotalCompletions int64   `json:"total_completions"`
	Dropped          int64   `json:"dropped"`
	ThroughputPerMin float64 `json:"throughput_per_min"`
	MeanWaitSeconds  float64 `json:"mean_wait_seconds"`
	MeanServiceSec   float64 `json:"mean_service_seconds"`
}

// Snapshot is an internally-consistent, point-in-time copy of a
// simulation's state. It is built once per publish and never mutated after
// -- every subscriber that receives it sees the same whole snapshot, never
// a torn read.
type Snapshot struct {
	SimulationID string      `json:"simulation_id"`
	SimTimeS     float64     `json:"sim_time_s"`
	Status       Status      `json:"status"`
	Cars         []CarView   `json:"cars"`
	Booths       []BoothView `json:"booths"`
	Stats        StatsView   `json:"stats"`
	// Message carries the failure reason once Status is failed; empty
	// otherwise.
	Message string `json:"message,omitempty"`
}
