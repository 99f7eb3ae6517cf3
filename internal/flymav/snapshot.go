package flymav

import (
	"time"

	"github.com/tiiuae/mavlink_vehicles/geo"
	"github.com/tiiuae/mavlink_vehicles/internal/types"
	"github.com/tiiuae/mavlink_vehicles/vehicle"
)

// Snapshot collects the vehicle state published as telemetry. Angles are
// reported in degrees, heading in [0, 360).
func Snapshot(v *vehicle.Vehicle, now time.Time) types.VehicleTelemetry {
	obs := v.Observe()
	att := obs.Attitude.Value
	pos := obs.GlobalPosition
	home := obs.HomePosition

	heading := geo.Rad2Deg(att.Yaw)
	if heading < 0 {
		heading += 360
	}

	t := types.VehicleTelemetry{
		Timestamp:        now,
		Autopilot:        v.Autopilot().String(),
		Responding:       v.IsRemoteResponding(),
		Ready:            v.IsReady(),
		Status:           v.Status().String(),
		Mode:             v.Mode().String(),
		ArmStatus:        v.ArmStatus().String(),
		GPSStatus:        v.GPSStatus().String(),
		Navigation:       v.NavigationStatus().String(),
		Position:         toPoint(pos.Value),
		Home:             toPoint(home.Value),
		Roll:             geo.Rad2Deg(att.Roll),
		Pitch:            geo.Rad2Deg(att.Pitch),
		Heading:          heading,
		Speed:            v.Speed(),
		MissionSeq:       -1,
		SendingMission:   v.IsSendingMission(),
		ReceivingMission: v.IsReceivingMission(),
		MissionAccepted:  v.MissionUploadAccepted(),
		HasControl:       v.HasControl(),
	}
	if cur := obs.MissionCurrent; cur.IsInitialized() {
		t.MissionSeq = int(cur.Value)
	}
	if pos.IsInitialized() && home.IsInitialized() {
		t.DistanceFromHome = geo.GreatCircleDist(home.Value, pos.Value)
	}
	return t
}
