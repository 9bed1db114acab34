package sim

import (
	"math"
	"time"

	"github.com/gavargas22/cascabel/internal/model"
	"github.com/gavargas22/cascabel/internal/rng"
)

const gravityMPS2 = 9.80665

// SensorFrame is one synthesized telemetry sample, laid out in the exact
// order the CSV sink writes columns in.
type SensorFrame struct {
	TimestampISO8601 string
	CarID            int64
	Status           model.CarStatus
	QueueID          int
	Latitude         float64
	Longitude        float64
	HeadingDeg       float64
	SpeedMPS         float64
	AccelX           float64
	AccelY           float64
	AccelZ           float64
	GyroX            float64
	GyroY            float64
	GyroZ            float64
}

// Telemetry synthesizes sensor frames from car kinematics as if a phone
// riding along in the car were recording the trip.
type Telemetry struct{}

// NewTelemetry constructs a synthesizer. It holds no state of its own --
// per-car sampling cadence lives on the car (NextTelemetryAt) so mutating a
// car's phone_config mid-run only ever affects that car.
func NewTelemetry() *Telemetry { return &Telemetry{} }

// Due emits every sensor frame owed to c between its last emission and
// simTimeS, given the waitline its queue travels along. wallTime is used
// only to stamp the frame's timestamp column.
func (t *Telemetry) Due(c *model.Car, waitline *model.Waitline, simTimeS float64, wallTime time.Time, stream *rng.Stream) []SensorFrame {
	if waitline == nil || c.Phone.SamplingRate <= 0 {
		return nil
	}
	interval := 1.0 / c.Phone.SamplingRate
	var frames []SensorFrame
	for c.NextTelemetryAt <= simTimeS {
		frames = append(frames, t.frameAt(c, waitline, wallTime, stream))
		c.NextTelemetryAt += interval
	}
	return frames
}

func (t *Telemetry) frameAt(c *model.Car, waitline *model.Waitline, wallTime time.Time, stream *rng.Stream) SensorFrame {
	lat, lon, heading, curvature := waitline.PointAt(c.PositionS)
	// HorizontalAccuracy is in meters; the jitter is converted to degrees.
	const metersPerDegreeLat = 111320.0
	metersPerDegreeLon := metersPerDegreeLat * math.Cos(lat*math.Pi/180)
	lat += stream.Gaussian(0, c.Phone.GPSNoise.HorizontalAccuracy/2) / metersPerDegreeLat
	lon += stream.Gaussian(0, c.Phone.GPSNoise.HorizontalAccuracy/2) / metersPerDegreeLon

	longitudinal := c.Acceleration + stream.Gaussian(0, c.Phone.AccelerometerNoise)
	lateral := c.Velocity*c.Velocity*curvature + stream.Gaussian(0, c.Phone.AccelerometerNoise)
	vertical := gravityMPS2 + stream.Gaussian(0, c.Phone.AccelerometerNoise)

	var ax, ay float64
	switch c.Phone.DeviceOrientation {
	case model.OrientationLandscape:
		ax, ay = longitudinal, lateral
	default: // portrait
		ax, ay = lateral, longitudinal
	}

	yawRate := c.Velocity*curvature + stream.Gaussian(0, c.Phone.GyroNoise)
	roll := stream.Gaussian(0, c.Phone.GyroNoise)
	pitch := stream.Gaussian(0, c.Phone.GyroNoise)

	return SensorFrame{
		TimestampISO8601: wallTime.UTC().Format(time.RFC3339Nano),
		CarID:            c.ID,
		Status:           c.Status,
		QueueID:          c.QueueID,
		Latitude:         lat,
		Longitude:        lon,
		HeadingDeg:       heading,
		SpeedMPS:         c.Velocity,
		AccelX:           ax,
		AccelY:           ay,
		AccelZ:           vertical,
		GyroX:            roll,
		GyroY:            pitch,
		GyroZ:            yawRate,
	}
}
