package vehicle

import (
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/sirupsen/logrus"

	"github.com/tiiuae/mavlink_vehicles/geo"
)

// TelemetrySink is the write side of the telemetry store. The decoder calls
// it for every relevant message coming from the vehicle, in arrival order.
// Values are trusted as decoded; stale updates are not rejected.
type TelemetrySink interface {
	HandleHeartbeat(hb Heartbeat)
	HandleAttitude(att Attitude)
	HandleGlobalPosition(pos geo.Global)
	HandleLocalPosition(pos, vel geo.Local)
	HandleHomePosition(pos geo.Global)
	HandleGPSStatus(status GPSStatus)
	HandleMissionCurrent(seq uint16)
	HandleMissionCount(count uint16)
	HandleMissionItem(item MissionItem)
	HandleMissionRequest(seq uint16)
	HandleMissionAck(accepted bool)
	HandleCommandAck(ack CommandAck)
}

var _ TelemetrySink = (*Vehicle)(nil)

type CommandAck struct {
	Command common.MAV_CMD
	Result  common.MAV_RESULT
}

func (a CommandAck) Accepted() bool {
	return a.Result == common.MAV_RESULT_ACCEPTED
}

func (v *Vehicle) HandleHeartbeat(hb Heartbeat) {
	if v.targetSystem == 0 {
		v.targetSystem = hb.SystemID
		v.log.WithField("system_id", hb.SystemID).Info("Vehicle system id learned")
	}
	if hb.SystemID != v.targetSystem {
		return
	}
	if v.autopilot == AutopilotUnknown && hb.Autopilot != AutopilotUnknown {
		v.autopilot = hb.Autopilot
		v.log.WithField("autopilot", hb.Autopilot).Info("Autopilot detected")
	}

	now := v.now()
	v.lastHeartbeat = now
	v.customMode = hb.CustomMode

	mode := decodeMode(v.autopilot, hb.CustomMode)
	if v.mode.IsInitialized() && v.mode.Value != mode {
		v.log.WithFields(logrus.Fields{"from": v.mode.Value, "to": mode}).Info("Mode changed")
	}
	v.mode.set(mode, now)

	arm := NotArmed
	if hb.Armed {
		arm = Armed
	}
	v.armStatus.set(arm, now)

	status := StatusStandby
	if hb.Active {
		status = StatusActive
	}
	v.status.set(status, now)
}

func (v *Vehicle) HandleAttitude(att Attitude) {
	v.attitude.set(att, v.now())
}

func (v *Vehicle) HandleGlobalPosition(pos geo.Global) {
	v.globalPosition.set(pos, v.now())
}

func (v *Vehicle) HandleLocalPosition(pos, vel geo.Local) {
	now := v.now()
	v.localPosition.set(pos, now)
	v.velocity.set(vel, now)
}

func (v *Vehicle) HandleHomePosition(pos geo.Global) {
	if !v.homePosition.IsInitialized() {
		v.log.WithField("home", pos).Info("Home position received")
	}
	v.homePosition.set(pos, v.now())
}

func (v *Vehicle) HandleGPSStatus(status GPSStatus) {
	v.gpsStatus.set(status, v.now())
}

func (v *Vehicle) HandleMissionCurrent(seq uint16) {
	v.missionCurrent.set(seq, v.now())
}

func (v *Vehicle) HandleCommandAck(ack CommandAck) {
	if !ack.Accepted() {
		v.log.WithFields(logrus.Fields{"command": ack.Command, "result": ack.Result}).Debug("Command not accepted")
	}
	v.lastCommandAck.set(ack, v.now())
}

// absolute converts a mission item altitude to AMSL.
func (v *Vehicle) absolute(item MissionItem) geo.Global {
	pos := item.Position
	if item.Relative {
		pos.Alt += v.homePosition.Value.Alt
	}
	return pos
}
