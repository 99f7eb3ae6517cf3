package vehicle

import (
	"testing"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendCmdLongTimeout(t *testing.T) {
	h := newHarness(t, AutopilotAPM)
	cmd := common.MAV_CMD_COMPONENT_ARM_DISARM

	require.NoError(t, h.v.sendCmdLong(cmd, time.Second, 1))
	sent := h.sender.take()
	require.Len(t, sent, 1)
	first := h.v.ledger.lastLong(cmd)
	assert.Equal(t, h.clock.now(), first)

	h.clock.advance(500 * time.Millisecond)
	require.NoError(t, h.v.sendCmdLong(cmd, time.Second, 1))
	assert.Empty(t, h.sender.take())
	assert.Equal(t, first, h.v.ledger.lastLong(cmd))

	h.clock.advance(500 * time.Millisecond)
	require.NoError(t, h.v.sendCmdLong(cmd, time.Second, 1))
	sent = h.sender.take()
	require.Len(t, sent, 1)
	assert.Equal(t, h.clock.now(), h.v.ledger.lastLong(cmd))

	long := sent[0].(*common.MessageCommandLong)
	assert.Equal(t, cmd, long.Command)
	assert.Equal(t, float32(1), long.Param1)
}

func TestSendCustomZeroTimeoutForces(t *testing.T) {
	h := newHarness(t, AutopilotAPM)

	for i := 0; i < 3; i++ {
		require.NoError(t, h.v.sendCustom(CmdHeartbeat, 0, &common.MessageHeartbeat{}))
	}
	assert.Len(t, h.sender.take(), 3)
}

func TestLedgerIdentitiesAreIndependent(t *testing.T) {
	h := newHarness(t, AutopilotAPM)

	require.NoError(t, h.v.sendCustom(CmdDetour, time.Minute, &common.MessageHeartbeat{}))
	require.NoError(t, h.v.sendCustom(CmdRotate, time.Minute, &common.MessageHeartbeat{}))
	require.NoError(t, h.v.sendCmdLong(common.MAV_CMD_CONDITION_YAW, time.Minute))
	require.NoError(t, h.v.sendCmdLong(common.MAV_CMD_NAV_TAKEOFF, time.Minute))
	assert.Len(t, h.sender.take(), 4)

	h.v.ledger.forget(CmdDetour)
	require.NoError(t, h.v.sendCustom(CmdDetour, time.Minute, &common.MessageHeartbeat{}))
	require.NoError(t, h.v.sendCustom(CmdRotate, time.Minute, &common.MessageHeartbeat{}))
	assert.Len(t, h.sender.take(), 1)
}

func TestSendFailureKeepsLedger(t *testing.T) {
	h := newHarness(t, AutopilotAPM)

	require.NoError(t, h.v.sendCustom(CmdMissionCount, time.Second, &common.MessageMissionCount{}))
	sentAt := h.v.ledger.lastCustom(CmdMissionCount)
	h.sender.take()

	h.clock.advance(2 * time.Second)
	h.sender.err = errors.New("broken pipe")
	err := h.v.sendCustom(CmdMissionCount, time.Second, &common.MessageMissionCount{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), CmdMissionCount.String())
	assert.Equal(t, sentAt, h.v.ledger.lastCustom(CmdMissionCount))

	h.sender.err = nil
	require.NoError(t, h.v.sendCustom(CmdMissionCount, time.Second, &common.MessageMissionCount{}))
	assert.Len(t, h.sender.take(), 1)
	assert.Equal(t, h.clock.now(), h.v.ledger.lastCustom(CmdMissionCount))
}

func TestCustomCommandString(t *testing.T) {
	assert.Equal(t, "HEARTBEAT", CmdHeartbeat.String())
	assert.Equal(t, "DETOUR", CmdDetour.String())
	assert.Equal(t, "UNKNOWN_COMMAND", numCustomCommands.String())
	for c := CmdHeartbeat; c < numCustomCommands; c++ {
		assert.NotEmpty(t, c.String())
	}
}
