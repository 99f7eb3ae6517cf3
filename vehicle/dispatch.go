package vehicle

import (
	"math"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"github.com/pkg/errors"

	"github.com/tiiuae/mavlink_vehicles/geo"
)

var ErrUnknownAutopilot = errors.New("autopilot family not detected")

// sendCustom transmits msg unless c was sent less than timeout ago. A zero
// timeout always sends. A failed transmission leaves the ledger untouched.
func (v *Vehicle) sendCustom(c CustomCommand, timeout time.Duration, msg message.Message) error {
	now := v.now()
	if !v.ledger.customDue(c, now, timeout) {
		return nil
	}
	if err := v.sender.WriteMessage(msg); err != nil {
		return errors.WithMessagef(err, "send %v", c)
	}
	v.ledger.markCustom(c, now)
	v.log.WithField("command", c).Trace("Sent")
	return nil
}

// sendCmdLong is sendCustom for COMMAND_LONG, keyed by command code.
func (v *Vehicle) sendCmdLong(cmd common.MAV_CMD, timeout time.Duration, params ...float32) error {
	now := v.now()
	if !v.ledger.longDue(cmd, now, timeout) {
		return nil
	}
	if err := v.sender.WriteMessage(v.commandLong(cmd, params...)); err != nil {
		return errors.WithMessagef(err, "send command %v", cmd)
	}
	v.ledger.markLong(cmd, now)
	v.log.WithField("command", cmd).Trace("Sent")
	return nil
}

func (v *Vehicle) commandLong(cmd common.MAV_CMD, params ...float32) *common.MessageCommandLong {
	var p [7]float32
	copy(p[:], params)
	return &common.MessageCommandLong{
		TargetSystem:    v.targetSystem,
		TargetComponent: v.targetComponent,
		Command:         cmd,
		Param1:          p[0],
		Param2:          p[1],
		Param3:          p[2],
		Param4:          p[3],
		Param5:          p[4],
		Param6:          p[5],
		Param7:          p[6],
	}
}

func (v *Vehicle) sendHeartbeat() error {
	return v.sendCustom(CmdHeartbeat, v.cfg.HeartbeatInterval, &common.MessageHeartbeat{
		Type:           common.MAV_TYPE_GCS,
		Autopilot:      common.MAV_AUTOPILOT_INVALID,
		SystemStatus:   common.MAV_STATE_ACTIVE,
		MavlinkVersion: 3,
	})
}

func (v *Vehicle) requestHomePosition() error {
	return v.sendCmdLong(common.MAV_CMD_GET_HOME_POSITION, v.cfg.CommandTimeout)
}

func (v *Vehicle) sendMode(m Mode, timeout time.Duration) error {
	custom, ok := encodeMode(v.autopilot, m)
	if !ok {
		if v.autopilot == AutopilotUnknown {
			return ErrUnknownAutopilot
		}
		return errors.Errorf("mode %v not supported by %v", m, v.autopilot)
	}

	var msg message.Message
	if v.autopilot == AutopilotPX4 {
		main, sub := px4Split(custom)
		msg = v.commandLong(common.MAV_CMD_DO_SET_MODE,
			float32(common.MAV_MODE_FLAG_CUSTOM_MODE_ENABLED), float32(main), float32(sub))
	} else {
		msg = &common.MessageSetMode{
			TargetSystem: v.targetSystem,
			BaseMode:     common.MAV_MODE(common.MAV_MODE_FLAG_CUSTOM_MODE_ENABLED),
			CustomMode:   custom,
		}
	}
	return v.sendCustom(modeCommand(m), timeout, msg)
}

// SetMode requests a mode change now. The outcome is observed through Mode().
func (v *Vehicle) SetMode(m Mode) error {
	v.log.WithField("mode", m).Info("Set mode")
	return v.sendMode(m, 0)
}

func (v *Vehicle) ArmThrottle(arm bool) error {
	var p1 float32
	if arm {
		p1 = 1
	}
	v.log.WithField("arm", arm).Info("Arm throttle")
	return v.sendCmdLong(common.MAV_CMD_COMPONENT_ARM_DISARM, 0, p1)
}

// Takeoff climbs to the configured takeoff altitude above home.
func (v *Vehicle) Takeoff() error {
	v.log.WithField("autopilot", v.autopilot).Info("Takeoff")
	switch v.autopilot {
	case AutopilotAPM:
		if err := v.sendMode(ModeGuided, 0); err != nil {
			return err
		}
		return v.sendCmdLong(common.MAV_CMD_NAV_TAKEOFF, 0,
			0, 0, 0, float32(math.NaN()), 0, 0, float32(v.cfg.TakeoffAltitude))
	case AutopilotPX4:
		return v.sendMode(ModeTakeoff, 0)
	default:
		return ErrUnknownAutopilot
	}
}

const (
	positionOnlyMask = common.POSITION_TARGET_TYPEMASK_VX_IGNORE |
		common.POSITION_TARGET_TYPEMASK_VY_IGNORE |
		common.POSITION_TARGET_TYPEMASK_VZ_IGNORE |
		common.POSITION_TARGET_TYPEMASK_AX_IGNORE |
		common.POSITION_TARGET_TYPEMASK_AY_IGNORE |
		common.POSITION_TARGET_TYPEMASK_AZ_IGNORE |
		common.POSITION_TARGET_TYPEMASK_YAW_RATE_IGNORE

	positionTargetMask = positionOnlyMask | common.POSITION_TARGET_TYPEMASK_YAW_IGNORE
)

func (v *Vehicle) positionTarget(pos geo.Global, mask common.POSITION_TARGET_TYPEMASK, yaw float64) *common.MessageSetPositionTargetGlobalInt {
	return &common.MessageSetPositionTargetGlobalInt{
		TimeBootMs:      uint32(v.now().Sub(v.started).Milliseconds()),
		TargetSystem:    v.targetSystem,
		TargetComponent: v.targetComponent,
		CoordinateFrame: common.MAV_FRAME_GLOBAL_INT,
		TypeMask:        mask,
		LatInt:          pos.Lat,
		LonInt:          pos.Lon,
		Alt:             float32(pos.Alt) / 1000,
		Yaw:             float32(yaw),
	}
}

func (v *Vehicle) sendDetourTarget(wp geo.Global) error {
	return v.sendCustom(CmdDetour, v.cfg.CommandTimeout, v.positionTarget(wp, positionTargetMask, 0))
}

// sendYawTarget points the vehicle to an absolute heading (radians, NED)
// while it holds its current position.
func (v *Vehicle) sendYawTarget(yaw float64) error {
	if v.autopilot == AutopilotAPM {
		deg := geo.Rad2Deg(yaw)
		if deg < 0 {
			deg += 360
		}
		return v.sendCmdLong(common.MAV_CMD_CONDITION_YAW, v.cfg.CommandTimeout, float32(deg), 0, 0, 0)
	}
	return v.sendCustom(CmdRotate, v.cfg.CommandTimeout, v.positionTarget(v.globalPosition.Value, positionOnlyMask, yaw))
}

func (v *Vehicle) resetYawTarget() {
	v.ledger.forget(CmdRotate)
	v.ledger.forgetLong(common.MAV_CMD_CONDITION_YAW)
}

func (v *Vehicle) missionCount(count int) *common.MessageMissionCount {
	return &common.MessageMissionCount{
		TargetSystem:    v.targetSystem,
		TargetComponent: v.targetComponent,
		Count:           uint16(count),
		MissionType:     common.MAV_MISSION_TYPE_MISSION,
	}
}

func (v *Vehicle) missionItem(seq int, pos geo.Global) *common.MessageMissionItemInt {
	return &common.MessageMissionItemInt{
		TargetSystem:    v.targetSystem,
		TargetComponent: v.targetComponent,
		Seq:             uint16(seq),
		Frame:           common.MAV_FRAME_GLOBAL_INT,
		Command:         common.MAV_CMD_NAV_WAYPOINT,
		Autocontinue:    1,
		X:               pos.Lat,
		Y:               pos.Lon,
		Z:               float32(pos.Alt) / 1000,
		MissionType:     common.MAV_MISSION_TYPE_MISSION,
	}
}

func (v *Vehicle) requestMissionItem(seq uint16, timeout time.Duration) error {
	return v.sendCustom(CmdRequestMissionItem, timeout, &common.MessageMissionRequestInt{
		TargetSystem:    v.targetSystem,
		TargetComponent: v.targetComponent,
		Seq:             seq,
		MissionType:     common.MAV_MISSION_TYPE_MISSION,
	})
}

func (v *Vehicle) requestMissionList(timeout time.Duration) error {
	return v.sendCustom(CmdRequestMissionList, timeout, &common.MessageMissionRequestList{
		TargetSystem:    v.targetSystem,
		TargetComponent: v.targetComponent,
		MissionType:     common.MAV_MISSION_TYPE_MISSION,
	})
}

func (v *Vehicle) sendMissionAck() error {
	err := v.sender.WriteMessage(&common.MessageMissionAck{
		TargetSystem:    v.targetSystem,
		TargetComponent: v.targetComponent,
		Type:            common.MAV_MISSION_ACCEPTED,
		MissionType:     common.MAV_MISSION_TYPE_MISSION,
	})
	return errors.WithMessage(err, "send mission ack")
}
