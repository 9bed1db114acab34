package model

// DeviceOrientation is a closed enum controlling how the telemetry
// synthesizer remaps longitudinal/lateral acceleration onto phone axes.
type DeviceOrientation string

const (
	OrientationPortrait  DeviceOrientation = "portrait"
	OrientationLandscape DeviceOrientation = "landscape"
)

// GPSNoise bounds the Gaussian jitter applied to synthesized fixes.
type GPSNoise struct {
	HorizontalAccuracy float64 `json:"horizontal_accuracy"`
	VerticalAccuracy   float64 `json:"vertical_accuracy"`
}

// PhoneConfig controls how one car's handset telemetry is synthesized. It
// is copied onto each car at spawn time so a mid-run config change never
// retroactively alters an in-flight car's sensor profile.
type PhoneConfig struct {
	SamplingRate       float64           `json:"sampling_rate"`
	GPSNoise           GPSNoise          `json:"gps_noise"`
	AccelerometerNoise float64           `json:"accelerometer_noise"`
	GyroNoise          float64           `json:"gyro_noise"`
	DeviceOrientation  DeviceOrientation `json:"device_orientation"`
}

// DefaultPhoneConfig mirrors a typical consumer handset: 1Hz sampling,
// GPS accuracy comparable to an unaided smartphone fix.
func DefaultPhoneConfig() PhoneConfig {
	return PhoneConfig{
		SamplingRate:       1.0,
		GPSNoise:           GPSNoise{HorizontalAccuracy: 5.0, VerticalAccuracy: 8.0},
		AccelerometerNoise: 0.05,
		GyroNoise:          0.02,
		DeviceOrientation:  OrientationPortrait,
	}
}
