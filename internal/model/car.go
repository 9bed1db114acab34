package model

import "time"

// CarStatus is a closed set of lifecycle states. Transitions are monotonic:
// Arriving -> Queued -> Serving -> Completed, no reversals.
type CarStatus string

const (
	CarArriving  CarStatus = "arriving"
	CarQueued    CarStatus = "queued"
	CarServing   CarStatus = "serving"
	CarCompleted CarStatus = "completed"
)

// Physics tuning constants shared by every car: v_max, tau, a_max and
// t_reaction describe the car-following model itself, not any one vehicle.
const (
	MaxCruiseVelocity  = 13.4 // m/s, free-flow speed
	AccelTimeConstant  = 1.0  // tau, seconds
	MaxAcceleration    = 2.0  // m/s^2
	ReactionTime       = 1.0  // seconds
	minGapDenominator  = 0.05 // eps floor for the safe-distance braking formula
)

// Car is one vehicle moving through a queue toward a booth. PositionS is the
// arc-length distance from the queue head (the booth stop-line); it
// increases toward the queue tail.
type Car struct {
	ID           int64
	QueueID      int // -1 until assigned
	BoothID      int // -1 unless Status == CarServing
	PositionS    float64
	Velocity     float64
	Acceleration float64
	Status       CarStatus
	SpawnTime    time.Time
	ServiceStart *time.Time
	CompleteTime *time.Time
	Phone        PhoneConfig

	// NextTelemetryAt is the next sim_time_s at which the telemetry
	// synthesizer owes this car a sensor frame. Bookkeeping for the
	// synthesizer, kept on the car because it is per-car history like
	// everything else here.
	NextTelemetryAt float64
}

// NewCar constructs a car in the Arriving state, not yet owned by a queue.
func NewCar(id int64, spawn time.Time, phone PhoneConfig) *Car {
	return &Car{
		ID:        id,
		QueueID:   -1,
		BoothID:   -1,
		Status:    CarArriving,
		SpawnTime: spawn,
		Phone:     phone,
	}
}

// Step advances the car's kinematics by dt seconds of sim time given a
// target velocity and the gap (meters) to whatever is immediately ahead
// (predecessor car or the booth stop-line). safeDistance is the minimum
// gap the car tries to maintain from that obstacle.
//
// This implements the car-following model directly: desired acceleration
// toward the target velocity, overridden by a braking term whenever the gap
// has closed inside the safe distance plus a reaction-time buffer.
func (c *Car) Step(dt, targetVelocity, gap, safeDistance float64) {
	a := clamp((targetVelocity-c.Velocity)/AccelTimeConstant, -MaxAcceleration, MaxAcceleration)

	reactionBuffer := c.Velocity * ReactionTime
	if gap < safeDistance+reactionBuffer {
		denom := gap - safeDistance
		if denom < minGapDenominator {
			denom = minGapDenominator
		}
		a = -(c.Velocity * c.Velocity) / (2 * denom)
	}

	c.Acceleration = a
	newV := c.Velocity + a*dt
	if newV < 0 {
		newV = 0
	}
	if newV > MaxCruiseVelocity {
		newV = MaxCruiseVelocity
	}
	ds := c.Velocity*dt + 0.5*a*dt*dt
	if ds < 0 {
		ds = 0
	}
	// A car never overtakes: it may not close more distance than the gap
	// it started the tick with, less the safe distance it must maintain.
	maxDs := gap - safeDistance
	if maxDs < 0 {
		maxDs = 0
	}
	if ds > maxDs {
		ds = maxDs
	}
	c.Velocity = newV
	c.PositionS -= ds
	if c.PositionS < 0 {
		c.PositionS = 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// StartServing transitions Arriving/Queued -> Serving at booth id and t. The
// car has reached the stop line, so its position resets to exactly 0.
func (c *Car) StartServing(boothID int, t time.Time) {
	c.Status = CarServing
	c.BoothID = boothID
	c.PositionS = 0
	c.Velocity = 0
	st := t
	c.ServiceStart = &st
}

// Complete transitions Serving -> Completed at t.
func (c *Car) Complete(t time.Time) {
	c.Status = CarCompleted
	ct := t
	c.CompleteTime = &ct
}

// WaitSeconds returns time spent between spawn and service start, or the
// elapsed time so far if the car has not yet started service.
func (c *Car) WaitSeconds(now time.Time) float64 {
	if c.ServiceStart != nil {
		return c.ServiceStart.Sub(c.SpawnTime).Seconds()
	}
	return now.Sub(c.SpawnTime).Seconds()
}
