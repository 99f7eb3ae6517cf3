package vehicle

import (
	"testing"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeEncoding(t *testing.T) {
	tests := []struct {
		name    string
		ap      Autopilot
		mode    Mode
		custom  uint32
		decoded Mode
	}{
		{"apm guided", AutopilotAPM, ModeGuided, 4, ModeGuided},
		{"apm auto", AutopilotAPM, ModeAuto, 3, ModeAuto},
		{"apm brake", AutopilotAPM, ModeBrake, 17, ModeBrake},
		{"px4 guided", AutopilotPX4, ModeGuided, 4<<16 | 3<<24, ModeGuided},
		{"px4 brake", AutopilotPX4, ModeBrake, 4<<16 | 3<<24, ModeGuided},
		{"px4 auto", AutopilotPX4, ModeAuto, 4<<16 | 4<<24, ModeAuto},
		{"px4 takeoff", AutopilotPX4, ModeTakeoff, 4<<16 | 2<<24, ModeTakeoff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			custom, ok := encodeMode(tt.ap, tt.mode)
			require.True(t, ok)
			assert.Equal(t, tt.custom, custom)
			assert.Equal(t, tt.decoded, decodeMode(tt.ap, custom))
		})
	}

	_, ok := encodeMode(AutopilotAPM, ModeTakeoff)
	assert.False(t, ok)
	_, ok = encodeMode(AutopilotUnknown, ModeGuided)
	assert.False(t, ok)
	assert.Equal(t, ModeOther, decodeMode(AutopilotAPM, 6))
	assert.Equal(t, ModeOther, decodeMode(AutopilotPX4, 6<<16))
	assert.Equal(t, ModeOther, decodeMode(AutopilotUnknown, 4))
}

func TestIsModeComparesRawMode(t *testing.T) {
	h := newReadyHarness(t, AutopilotPX4)
	assert.True(t, h.v.isMode(ModeGuided))
	assert.True(t, h.v.isMode(ModeBrake))
	assert.False(t, h.v.isMode(ModeAuto))

	h.setMode(ModeAuto)
	assert.True(t, h.v.isMode(ModeAuto))
	assert.False(t, h.v.isMode(ModeBrake))
}

func TestSetMode(t *testing.T) {
	t.Run("apm", func(t *testing.T) {
		h := newReadyHarness(t, AutopilotAPM)
		require.NoError(t, h.v.SetMode(ModeBrake))
		msgs := filter[*common.MessageSetMode](h.sender.take())
		require.Len(t, msgs, 1)
		assert.Equal(t, uint32(17), msgs[0].CustomMode)
		assert.Equal(t, uint8(1), msgs[0].TargetSystem)
		assert.Equal(t, common.MAV_MODE(common.MAV_MODE_FLAG_CUSTOM_MODE_ENABLED), msgs[0].BaseMode)
	})

	t.Run("px4", func(t *testing.T) {
		h := newReadyHarness(t, AutopilotPX4)
		require.NoError(t, h.v.SetMode(ModeAuto))
		msgs := commands(h.sender.take(), common.MAV_CMD_DO_SET_MODE)
		require.Len(t, msgs, 1)
		assert.Equal(t, float32(1), msgs[0].Param1)
		assert.Equal(t, float32(4), msgs[0].Param2)
		assert.Equal(t, float32(4), msgs[0].Param3)
	})

	t.Run("unknown autopilot", func(t *testing.T) {
		h := newReadyHarness(t, AutopilotUnknown)
		assert.ErrorIs(t, h.v.SetMode(ModeGuided), ErrUnknownAutopilot)
		assert.Empty(t, h.sender.take())
	})

	t.Run("explicit calls are not rate limited", func(t *testing.T) {
		h := newReadyHarness(t, AutopilotAPM)
		require.NoError(t, h.v.SetMode(ModeAuto))
		require.NoError(t, h.v.SetMode(ModeAuto))
		assert.Len(t, filter[*common.MessageSetMode](h.sender.take()), 2)
	})
}

func TestTakeoff(t *testing.T) {
	h := newReadyHarness(t, AutopilotAPM)
	require.NoError(t, h.v.ArmThrottle(true))
	require.NoError(t, h.v.Takeoff())

	msgs := h.sender.take()
	arm := commands(msgs, common.MAV_CMD_COMPONENT_ARM_DISARM)
	require.Len(t, arm, 1)
	assert.Equal(t, float32(1), arm[0].Param1)
	assert.Len(t, filter[*common.MessageSetMode](msgs), 1)
	takeoff := commands(msgs, common.MAV_CMD_NAV_TAKEOFF)
	require.Len(t, takeoff, 1)
	assert.Equal(t, float32(5), takeoff[0].Param7)

	px4 := newReadyHarness(t, AutopilotPX4)
	require.NoError(t, px4.v.Takeoff())
	setMode := commands(px4.sender.take(), common.MAV_CMD_DO_SET_MODE)
	require.Len(t, setMode, 1)
	assert.Equal(t, float32(2), setMode[0].Param3)

	unknown := newReadyHarness(t, AutopilotUnknown)
	assert.ErrorIs(t, unknown.v.Takeoff(), ErrUnknownAutopilot)
}

func TestParseMode(t *testing.T) {
	for _, name := range []string{"guided", "AUTO", "brake", "TAKEOFF"} {
		_, err := ParseMode(name)
		assert.NoError(t, err, name)
	}
	m, err := ParseMode("loiter")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "loiter")
	assert.Equal(t, ModeOther, m)
}
