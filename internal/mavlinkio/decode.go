package mavlinkio

import (
	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	log "github.com/sirupsen/logrus"

	"github.com/tiiuae/mavlink_vehicles/geo"
	"github.com/tiiuae/mavlink_vehicles/vehicle"
)

// Decoder feeds messages of a single vehicle into a telemetry sink. It locks
// onto the first autopilot heartbeat unless a system id is given.
type Decoder struct {
	sink     vehicle.TelemetrySink
	systemID uint8
	log      log.FieldLogger
}

func NewDecoder(sink vehicle.TelemetrySink, systemID uint8, l log.FieldLogger) *Decoder {
	return &Decoder{sink: sink, systemID: systemID, log: l}
}

func (d *Decoder) SystemID() uint8 {
	return d.systemID
}

// HandleEvent processes one node event. Non-frame events are ignored.
func (d *Decoder) HandleEvent(evt gomavlib.Event) {
	switch e := evt.(type) {
	case *gomavlib.EventFrame:
		d.HandleMessage(e.SystemID(), e.ComponentID(), e.Message())
	case *gomavlib.EventChannelOpen:
		d.log.WithField("channel", e.Channel).Info("Channel open")
	case *gomavlib.EventChannelClose:
		d.log.WithField("channel", e.Channel).Warn("Channel closed")
	case *gomavlib.EventParseError:
		d.log.WithError(e.Error).Trace("Parse error")
	}
}

func (d *Decoder) HandleMessage(systemID, componentID uint8, msg message.Message) {
	if hb, ok := msg.(*common.MessageHeartbeat); ok {
		if !isAutopilot(hb) {
			return
		}
		if d.systemID == 0 {
			d.systemID = systemID
			d.log.WithField("system_id", systemID).Info("Locked onto vehicle")
		}
	}
	if d.systemID == 0 || systemID != d.systemID {
		return
	}

	switch m := msg.(type) {
	case *common.MessageHeartbeat:
		d.sink.HandleHeartbeat(vehicle.Heartbeat{
			SystemID:    systemID,
			ComponentID: componentID,
			Autopilot:   autopilot(m.Autopilot),
			CustomMode:  m.CustomMode,
			Armed:       m.BaseMode&common.MAV_MODE_FLAG_SAFETY_ARMED != 0,
			Active:      m.SystemStatus == common.MAV_STATE_ACTIVE,
		})
	case *common.MessageAttitude:
		d.sink.HandleAttitude(vehicle.Attitude{
			Roll:  float64(m.Roll),
			Pitch: float64(m.Pitch),
			Yaw:   float64(m.Yaw),
		})
	case *common.MessageGlobalPositionInt:
		d.sink.HandleGlobalPosition(geo.Global{Lat: m.Lat, Lon: m.Lon, Alt: m.Alt})
	case *common.MessageLocalPositionNed:
		d.sink.HandleLocalPosition(
			geo.Local{X: float64(m.X), Y: float64(m.Y), Z: float64(m.Z)},
			geo.Local{X: float64(m.Vx), Y: float64(m.Vy), Z: float64(m.Vz)})
	case *common.MessageHomePosition:
		d.sink.HandleHomePosition(geo.Global{Lat: m.Latitude, Lon: m.Longitude, Alt: m.Altitude})
	case *common.MessageGpsRawInt:
		status := vehicle.GPSNoFix
		if m.FixType >= common.GPS_FIX_TYPE_2D_FIX {
			status = vehicle.GPSFix2DPlus
		}
		d.sink.HandleGPSStatus(status)
	case *common.MessageMissionCurrent:
		d.sink.HandleMissionCurrent(m.Seq)
	case *common.MessageMissionCount:
		if isMission(m.MissionType) {
			d.sink.HandleMissionCount(m.Count)
		}
	case *common.MessageMissionItemInt:
		if isMission(m.MissionType) {
			d.sink.HandleMissionItem(vehicle.MissionItem{
				Seq:      m.Seq,
				Position: geo.Global{Lat: m.X, Lon: m.Y, Alt: int32(m.Z * 1000)},
				Relative: isRelative(m.Frame),
			})
		}
	case *common.MessageMissionItem:
		if isMission(m.MissionType) {
			pos := geo.FromDegrees(float64(m.X), float64(m.Y), float64(m.Z))
			d.sink.HandleMissionItem(vehicle.MissionItem{Seq: m.Seq, Position: pos, Relative: isRelative(m.Frame)})
		}
	case *common.MessageMissionRequestInt:
		if isMission(m.MissionType) {
			d.sink.HandleMissionRequest(m.Seq)
		}
	case *common.MessageMissionRequest:
		if isMission(m.MissionType) {
			d.sink.HandleMissionRequest(m.Seq)
		}
	case *common.MessageMissionAck:
		if isMission(m.MissionType) {
			d.sink.HandleMissionAck(m.Type == common.MAV_MISSION_ACCEPTED)
		}
	case *common.MessageCommandAck:
		d.sink.HandleCommandAck(vehicle.CommandAck{Command: m.Command, Result: m.Result})
	}
}

// isAutopilot filters out ground stations and companion software sharing the
// link.
func isAutopilot(hb *common.MessageHeartbeat) bool {
	return hb.Type != common.MAV_TYPE_GCS &&
		hb.Type != common.MAV_TYPE_ONBOARD_CONTROLLER &&
		hb.Autopilot != common.MAV_AUTOPILOT_INVALID
}

func autopilot(ap common.MAV_AUTOPILOT) vehicle.Autopilot {
	switch ap {
	case common.MAV_AUTOPILOT_ARDUPILOTMEGA:
		return vehicle.AutopilotAPM
	case common.MAV_AUTOPILOT_PX4:
		return vehicle.AutopilotPX4
	default:
		return vehicle.AutopilotUnknown
	}
}

func isMission(t common.MAV_MISSION_TYPE) bool {
	return t == common.MAV_MISSION_TYPE_MISSION
}

func isRelative(frame common.MAV_FRAME) bool {
	return frame == common.MAV_FRAME_GLOBAL_RELATIVE_ALT ||
		frame == common.MAV_FRAME_GLOBAL_RELATIVE_ALT_INT
}
