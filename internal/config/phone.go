package config

import (
	"fmt"

	"github.com/gavargas22/cascabel/internal/model"
)

// ValidatePhoneConfig rejects a phone_config with an out-of-range sampling
// rate or an unrecognized device orientation.
func ValidatePhoneConfig(p *model.PhoneConfig) error {
	if p.SamplingRate <= 0 {
		return invalid("phone_config.sampling_rate", "must be positive")
	}
	switch p.DeviceOrientation {
	case model.OrientationPortrait, model.OrientationLandscape:
	default:
		return invalid("phone_config.device_orientation", fmt.Sprintf("unknown variant %q", p.DeviceOrientation))
	}
	if p.GPSNoise.HorizontalAccuracy < 0 || p.GPSNoise.VerticalAccuracy < 0 {
		return invalid("phone_config.gps_noise", "accuracy values must be non-negative")
	}
	if p.AccelerometerNoise < 0 {
		return invalid("phone_config.accelerometer_noise", "must be non-negative")
	}
	if p.GyroNoise < 0 {
		return invalid("phone_config.gyro_noise", "must be non-negative")
	}
	return nil
}
