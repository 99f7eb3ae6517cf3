package vehicle

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/tiiuae/mavlink_vehicles/geo"
)

// Stamped wraps an observed quantity with the time it was last updated and
// whether it has been read since. A zero Time is the "never updated" sentinel.
type Stamped[T any] struct {
	Value T
	Time  time.Time
	IsNew bool
}

func (s Stamped[T]) IsInitialized() bool {
	return !s.Time.IsZero()
}

func (s *Stamped[T]) set(v T, now time.Time) {
	s.Value = v
	s.Time = now
	s.IsNew = true
}

// take returns the value and marks the stored copy as consumed.
func (s *Stamped[T]) take() Stamped[T] {
	out := *s
	s.IsNew = false
	return out
}

// Attitude angles in radians.
type Attitude struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// MissionItem is a decoded mission item. Relative items carry an altitude
// above home instead of AMSL.
type MissionItem struct {
	Seq      uint16
	Position geo.Global
	Relative bool
}

// Heartbeat is the decoded liveness/identity message of the remote autopilot.
type Heartbeat struct {
	SystemID    uint8
	ComponentID uint8
	Autopilot   Autopilot
	CustomMode  uint32
	Armed       bool
	Active      bool
}

type Status int

const (
	StatusStandby Status = iota
	StatusActive
)

func (s Status) String() string {
	switch s {
	case StatusStandby:
		return "STANDBY"
	case StatusActive:
		return "ACTIVE"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

type Mode int

const (
	ModeGuided Mode = iota
	ModeAuto
	ModeBrake
	ModeOther
	ModeTakeoff
)

func (m Mode) String() string {
	switch m {
	case ModeGuided:
		return "GUIDED"
	case ModeAuto:
		return "AUTO"
	case ModeBrake:
		return "BRAKE"
	case ModeOther:
		return "OTHER"
	case ModeTakeoff:
		return "TAKEOFF"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a mode name into a Mode.
func ParseMode(value string) (Mode, error) {
	switch value {
	case "GUIDED", "guided":
		return ModeGuided, nil
	case "AUTO", "auto":
		return ModeAuto, nil
	case "BRAKE", "brake":
		return ModeBrake, nil
	case "TAKEOFF", "takeoff":
		return ModeTakeoff, nil
	default:
		return ModeOther, errors.Errorf("unknown mode %q", value)
	}
}

type ArmStatus int

const (
	Armed ArmStatus = iota
	NotArmed
)

func (a ArmStatus) String() string {
	if a == Armed {
		return "ARMED"
	}
	return "NOT_ARMED"
}

type GPSStatus int

const (
	GPSNoFix GPSStatus = iota
	GPSFix2DPlus
)

func (g GPSStatus) String() string {
	if g == GPSFix2DPlus {
		return "FIX_2D_PLUS"
	}
	return "NO_FIX"
}

type Autopilot int

const (
	AutopilotAPM Autopilot = iota
	AutopilotPX4
	AutopilotUnknown
)

func (a Autopilot) String() string {
	switch a {
	case AutopilotAPM:
		return "APM"
	case AutopilotPX4:
		return "PX4"
	default:
		return "UNKNOWN"
	}
}

// MissionStatus is the navigation intent currently owning the vehicle's
// position and yaw targets.
type MissionStatus int

const (
	Braking MissionStatus = iota
	Detouring
	Rotating
	Normal
)

func (s MissionStatus) String() string {
	switch s {
	case Braking:
		return "BRAKING"
	case Detouring:
		return "DETOURING"
	case Rotating:
		return "ROTATING"
	case Normal:
		return "NORMAL"
	default:
		return fmt.Sprintf("MissionStatus(%d)", int(s))
	}
}

// rank orders intents: ROTATING > DETOURING > BRAKING > NORMAL.
func (s MissionStatus) rank() int {
	switch s {
	case Rotating:
		return 3
	case Detouring:
		return 2
	case Braking:
		return 1
	default:
		return 0
	}
}
