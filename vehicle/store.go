package vehicle

import (
	"math"

	"github.com/tiiuae/mavlink_vehicles/geo"
)

// Getters return the latest stored value. Stamped getters also mark the
// stored value as consumed. Values that were never updated come back zeroed;
// check IsInitialized or IsReady before trusting them.

// Observation is a copy of the stamped telemetry for passive readers such as
// telemetry publishing. Taking it leaves IsNew untouched.
type Observation struct {
	Attitude       Stamped[Attitude]
	GlobalPosition Stamped[geo.Global]
	LocalPosition  Stamped[geo.Local]
	Velocity       Stamped[geo.Local]
	HomePosition   Stamped[geo.Global]
	MissionCurrent Stamped[uint16]
}

func (v *Vehicle) Observe() Observation {
	return Observation{
		Attitude:       v.attitude,
		GlobalPosition: v.globalPosition,
		LocalPosition:  v.localPosition,
		Velocity:       v.velocity,
		HomePosition:   v.homePosition,
		MissionCurrent: v.missionCurrent,
	}
}

func (v *Vehicle) Attitude() Stamped[Attitude] {
	return v.attitude.take()
}

func (v *Vehicle) GlobalPosition() Stamped[geo.Global] {
	return v.globalPosition.take()
}

func (v *Vehicle) LocalPosition() Stamped[geo.Local] {
	return v.localPosition.take()
}

// Velocity in m/s, NED.
func (v *Vehicle) Velocity() Stamped[geo.Local] {
	return v.velocity.take()
}

func (v *Vehicle) HomePosition() Stamped[geo.Global] {
	return v.homePosition.take()
}

// MissionWaypoint is the item the vehicle is currently flying to in its own
// mission.
func (v *Vehicle) MissionWaypoint() Stamped[geo.Global] {
	return v.missionWaypoint.take()
}

func (v *Vehicle) MissionCurrent() Stamped[uint16] {
	return v.missionCurrent.take()
}

func (v *Vehicle) DetourWaypoint() Stamped[geo.Global] {
	return v.nav.detourWaypoint.take()
}

func (v *Vehicle) LastCommandAck() Stamped[CommandAck] {
	return v.lastCommandAck.take()
}

func (v *Vehicle) Mode() Mode {
	return v.mode.Value
}

func (v *Vehicle) ArmStatus() ArmStatus {
	if !v.armStatus.IsInitialized() {
		return NotArmed
	}
	return v.armStatus.Value
}

func (v *Vehicle) Status() Status {
	return v.status.Value
}

func (v *Vehicle) GPSStatus() GPSStatus {
	return v.gpsStatus.Value
}

// IsReady reports whether enough telemetry has been observed to issue
// navigation commands.
func (v *Vehicle) IsReady() bool {
	return v.IsRemoteResponding() &&
		v.attitude.IsInitialized() &&
		v.globalPosition.IsInitialized() &&
		v.homePosition.IsInitialized() &&
		v.mode.IsInitialized() &&
		v.armStatus.IsInitialized()
}

// Speed is the magnitude of the last velocity sample.
func (v *Vehicle) Speed() float64 {
	vel := v.velocity.Value
	return math.Sqrt(vel.X*vel.X + vel.Y*vel.Y + vel.Z*vel.Z)
}
