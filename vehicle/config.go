package vehicle

import (
	"time"

	"github.com/tiiuae/mavlink_vehicles/geo"
)

// Config holds protocol cadences and navigation policy thresholds.
type Config struct {
	// TargetSystem is the MAVLink system id of the vehicle. Zero means learn it
	// from the first autopilot heartbeat.
	TargetSystem    uint8 `yaml:"target_system"`
	TargetComponent uint8 `yaml:"target_component"`

	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	RemoteTimeout     time.Duration `yaml:"remote_timeout"`
	CommandTimeout    time.Duration `yaml:"command_timeout"`
	MissionTimeout    time.Duration `yaml:"mission_timeout"`
	MissionMaxRetries int           `yaml:"mission_max_retries"`

	RotationToleranceDeg float64       `yaml:"rotation_tolerance_deg"`
	BrakeSpeedThreshold  float64       `yaml:"brake_speed_threshold"`
	DetourArrivalRadius  float64       `yaml:"detour_arrival_radius"`
	SettleInterval       time.Duration `yaml:"settle_interval"`
	TakeoffAltitude      float64       `yaml:"takeoff_altitude"`
}

func DefaultConfig() Config {
	return Config{
		TargetSystem:         0,
		TargetComponent:      1,
		HeartbeatInterval:    time.Second,
		RemoteTimeout:        3 * time.Second,
		CommandTimeout:       time.Second,
		MissionTimeout:       1500 * time.Millisecond,
		MissionMaxRetries:    5,
		RotationToleranceDeg: 5,
		BrakeSpeedThreshold:  0.2,
		DetourArrivalRadius:  2,
		SettleInterval:       time.Second,
		TakeoffAltitude:      5,
	}
}

func (c Config) rotationTolerance() float64 {
	return geo.Deg2Rad(c.RotationToleranceDeg)
}
