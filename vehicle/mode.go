package vehicle

// ArduCopter custom modes.
const (
	apmModeAuto   uint32 = 3
	apmModeGuided uint32 = 4
	apmModeBrake  uint32 = 17
)

// PX4 custom mode is main mode in bits 16-23 and sub mode in bits 24-31.
const (
	px4MainAuto uint32 = 4

	px4SubTakeoff uint32 = 2
	px4SubLoiter  uint32 = 3
	px4SubMission uint32 = 4
)

func px4CustomMode(main, sub uint32) uint32 {
	return main<<16 | sub<<24
}

func px4Split(custom uint32) (main, sub uint32) {
	return (custom >> 16) & 0xff, (custom >> 24) & 0xff
}

// encodeMode returns the custom mode the autopilot reports when it is in m.
// PX4 has no guided or brake mode, both are served by AUTO.LOITER.
func encodeMode(ap Autopilot, m Mode) (uint32, bool) {
	switch ap {
	case AutopilotAPM:
		switch m {
		case ModeGuided:
			return apmModeGuided, true
		case ModeAuto:
			return apmModeAuto, true
		case ModeBrake:
			return apmModeBrake, true
		}
	case AutopilotPX4:
		switch m {
		case ModeGuided, ModeBrake:
			return px4CustomMode(px4MainAuto, px4SubLoiter), true
		case ModeAuto:
			return px4CustomMode(px4MainAuto, px4SubMission), true
		case ModeTakeoff:
			return px4CustomMode(px4MainAuto, px4SubTakeoff), true
		}
	}
	return 0, false
}

func decodeMode(ap Autopilot, custom uint32) Mode {
	switch ap {
	case AutopilotAPM:
		switch custom {
		case apmModeGuided:
			return ModeGuided
		case apmModeAuto:
			return ModeAuto
		case apmModeBrake:
			return ModeBrake
		}
	case AutopilotPX4:
		main, sub := px4Split(custom)
		if main != px4MainAuto {
			return ModeOther
		}
		switch sub {
		case px4SubLoiter:
			return ModeGuided
		case px4SubMission:
			return ModeAuto
		case px4SubTakeoff:
			return ModeTakeoff
		}
	}
	return ModeOther
}

// isMode compares against the raw custom mode so that modes sharing an
// encoding (PX4 guided and brake) are both satisfied.
func (v *Vehicle) isMode(m Mode) bool {
	if !v.mode.IsInitialized() {
		return false
	}
	enc, ok := encodeMode(v.autopilot, m)
	if !ok {
		return false
	}
	if v.autopilot == AutopilotPX4 {
		return v.customMode>>16 == enc>>16
	}
	return v.customMode == enc
}

func modeCommand(m Mode) CustomCommand {
	switch m {
	case ModeAuto:
		return CmdSetModeAuto
	case ModeBrake:
		return CmdSetModeBrake
	case ModeTakeoff:
		return CmdSetModeTakeoff
	default:
		return CmdSetModeGuided
	}
}

// canControlMode reports whether mode changes can be encoded at all.
func (v *Vehicle) canControlMode() bool {
	return v.autopilot != AutopilotUnknown
}

// ensureMode requests m until the vehicle reports it. It returns true once
// the vehicle is in m, or when the autopilot family does not allow mode
// control and the caller should proceed anyway.
func (v *Vehicle) ensureMode(m Mode) (bool, error) {
	if !v.canControlMode() || v.isMode(m) {
		return true, nil
	}
	return false, v.sendMode(m, v.cfg.CommandTimeout)
}
