package vehicle

import (
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
)

// CustomCommand identifies outbound traffic that has no numeric MAV_CMD of
// its own, so it can share the retry ledger with COMMAND_LONG codes.
type CustomCommand int

const (
	CmdHeartbeat CustomCommand = iota
	CmdSetModeGuided
	CmdSetModeAuto
	CmdSetModeBrake
	CmdSetModeTakeoff
	CmdRequestMissionItem
	CmdRequestMissionList
	CmdMissionCount
	CmdMissionItem
	CmdRotate
	CmdDetour
	numCustomCommands
)

var customCommandNames = [numCustomCommands]string{
	CmdHeartbeat:          "HEARTBEAT",
	CmdSetModeGuided:      "SET_MODE_GUIDED",
	CmdSetModeAuto:        "SET_MODE_AUTO",
	CmdSetModeBrake:       "SET_MODE_BRAKE",
	CmdSetModeTakeoff:     "SET_MODE_TAKEOFF",
	CmdRequestMissionItem: "REQUEST_MISSION_ITEM",
	CmdRequestMissionList: "REQUEST_MISSION_LIST",
	CmdMissionCount:       "MISSION_COUNT",
	CmdMissionItem:        "MISSION_ITEM",
	CmdRotate:             "ROTATE",
	CmdDetour:             "DETOUR",
}

func (c CustomCommand) String() string {
	if c < 0 || c >= numCustomCommands {
		return "UNKNOWN_COMMAND"
	}
	return customCommandNames[c]
}

// ledger remembers when each command identity was last transmitted. Every
// identity holds at most one timestamp; sending again overwrites it.
type ledger struct {
	custom [numCustomCommands]time.Time
	long   map[common.MAV_CMD]time.Time
}

func newLedger() ledger {
	return ledger{long: make(map[common.MAV_CMD]time.Time)}
}

func isDue(last, now time.Time, timeout time.Duration) bool {
	return timeout <= 0 || last.IsZero() || now.Sub(last) >= timeout
}

func (l *ledger) customDue(c CustomCommand, now time.Time, timeout time.Duration) bool {
	return isDue(l.custom[c], now, timeout)
}

func (l *ledger) longDue(cmd common.MAV_CMD, now time.Time, timeout time.Duration) bool {
	return isDue(l.long[cmd], now, timeout)
}

func (l *ledger) markCustom(c CustomCommand, now time.Time) {
	l.custom[c] = now
}

func (l *ledger) markLong(cmd common.MAV_CMD, now time.Time) {
	l.long[cmd] = now
}

// forget clears an identity so the next send goes out regardless of timeout.
func (l *ledger) forget(c CustomCommand) {
	l.custom[c] = time.Time{}
}

func (l *ledger) forgetLong(cmd common.MAV_CMD) {
	delete(l.long, cmd)
}

func (l *ledger) lastCustom(c CustomCommand) time.Time {
	return l.custom[c]
}

func (l *ledger) lastLong(cmd common.MAV_CMD) time.Time {
	return l.long[cmd]
}
