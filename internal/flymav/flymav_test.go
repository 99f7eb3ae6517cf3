package flymav

import (
	"context"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiiuae/mavlink_vehicles/internal/types"
	"github.com/tiiuae/mavlink_vehicles/vehicle"
)

type fakeLink struct {
	mu     sync.Mutex
	sent   []message.Message
	events chan gomavlib.Event
}

func newFakeLink() *fakeLink {
	return &fakeLink{events: make(chan gomavlib.Event, 10)}
}

func (l *fakeLink) WriteMessage(msg message.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, msg)
	return nil
}

func (l *fakeLink) Events() chan gomavlib.Event {
	return l.events
}

func (l *fakeLink) take() []message.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.sent
	l.sent = nil
	return out
}

type fakePlans struct {
	points []types.Point
	err    error
}

func (p *fakePlans) Load(deviceID string) ([]types.Point, error) {
	return p.points, p.err
}

type postbox struct {
	mu   sync.Mutex
	msgs []types.Message
}

func (p *postbox) post(msg types.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

func (p *postbox) ofType(messageType string) []types.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []types.Message
	for _, m := range p.msgs {
		if m.MessageType == messageType {
			out = append(out, m)
		}
	}
	return out
}

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig() Config {
	return Config{
		DeviceID:       "d1",
		Vehicle:        vehicle.DefaultConfig(),
		UpdateInterval: 10 * time.Millisecond,
	}
}

// feed makes the vehicle ready: an ArduPilot in GUIDED at the given position.
func feed(fm *flyMav) {
	fm.decoder.HandleMessage(1, 1, &common.MessageHeartbeat{
		Type:         common.MAV_TYPE_QUADROTOR,
		Autopilot:    common.MAV_AUTOPILOT_ARDUPILOTMEGA,
		BaseMode:     common.MAV_MODE_FLAG_SAFETY_ARMED,
		CustomMode:   4,
		SystemStatus: common.MAV_STATE_ACTIVE,
	})
	fm.decoder.HandleMessage(1, 1, &common.MessageAttitude{Yaw: float32(-math.Pi / 2)})
	fm.decoder.HandleMessage(1, 1, &common.MessageGlobalPositionInt{Lat: 601708000, Lon: 249384000, Alt: 35000})
	fm.decoder.HandleMessage(1, 1, &common.MessageHomePosition{Latitude: 601699000, Longitude: 249384000, Altitude: 25000})
	fm.decoder.HandleMessage(1, 1, &common.MessageLocalPositionNed{})
}

func TestApplyCommands(t *testing.T) {
	link := newFakeLink()
	fm := newFlyMav(testConfig(), link, nil, quiet())
	feed(fm)
	require.True(t, fm.vehicle.IsReady())

	require.NoError(t, fm.apply(types.CreateMessage(types.MsgArm, "cloud", "d1", types.Arm{Arm: true})))
	require.NoError(t, fm.apply(types.CreateMessage(types.MsgSetMode, "cloud", "d1", types.SetMode{Mode: "brake"})))
	assert.Error(t, fm.apply(types.CreateMessage(types.MsgSetMode, "cloud", "d1", types.SetMode{Mode: "loiter"})))

	sent := link.take()
	require.Len(t, sent, 2)
	assert.Equal(t, common.MAV_CMD_COMPONENT_ARM_DISARM, sent[0].(*common.MessageCommandLong).Command)
	assert.Equal(t, uint32(17), sent[1].(*common.MessageSetMode).CustomMode)

	require.NoError(t, fm.apply(types.CreateMessage(types.MsgTakeControl, "cloud", "d1", types.TakeControl{Enable: true})))
	assert.True(t, fm.vehicle.HasControl())

	require.NoError(t, fm.apply(types.CreateMessage(types.MsgRotate, "cloud", "d1", types.Rotate{Angle: 90, Autocontinue: true})))
	assert.True(t, fm.vehicle.IsRotationActive())
	assert.InDelta(t, 0, fm.vehicle.RotationGoal(), 1e-6)

	require.NoError(t, fm.apply(types.CreateMessage(types.MsgBrake, "cloud", "d1", types.Brake{})))
	require.NoError(t, fm.apply(types.CreateMessage(types.MsgDetour, "cloud", "d1", types.Detour{
		Point: types.Point{Lat: 60.1710, Lon: 24.9384, Alt: 40},
	})))
	assert.True(t, fm.vehicle.IsRotationActive())
}

func TestExecutePreplanned(t *testing.T) {
	link := newFakeLink()
	plans := &fakePlans{points: []types.Point{{Lat: 60.17, Lon: 24.94, Alt: 40}, {Lat: 60.18, Lon: 24.95, Alt: 40}}}
	fm := newFlyMav(testConfig(), link, plans, quiet())
	feed(fm)

	require.NoError(t, fm.apply(types.CreateMessage(types.MsgExecutePreplanned, "cloud", "d1", types.ExecutePreplanned{})))
	assert.True(t, fm.vehicle.IsSendingMission())
	sent := link.take()
	require.Len(t, sent, 1)
	assert.Equal(t, uint16(3), sent[0].(*common.MessageMissionCount).Count)

	plans.err = errors.New("no plan")
	assert.Error(t, fm.apply(types.CreateMessage(types.MsgExecutePreplanned, "cloud", "d1", types.ExecutePreplanned{})))

	noPlans := newFlyMav(testConfig(), newFakeLink(), nil, quiet())
	assert.Error(t, noPlans.apply(types.CreateMessage(types.MsgExecutePreplanned, "cloud", "d1", types.ExecutePreplanned{})))
}

func TestStepPostsChanges(t *testing.T) {
	link := newFakeLink()
	fm := newFlyMav(testConfig(), link, nil, quiet())
	box := &postbox{}

	fm.step(box.post)
	require.Len(t, box.ofType(types.MsgVehicleTelemetry), 1)
	assert.Empty(t, box.ofType(types.MsgLinkStatus))

	feed(fm)
	fm.vehicle.Brake(false)
	fm.step(box.post)

	status := box.ofType(types.MsgLinkStatus)
	require.Len(t, status, 1)
	assert.Equal(t, types.LinkStatus{Responding: true, SystemID: 1, Autopilot: "APM"}, status[0].Message)

	nav := box.ofType(types.MsgNavigationChanged)
	require.Len(t, nav, 1)
	assert.Equal(t, types.NavigationChanged{From: "NORMAL", To: "BRAKING"}, nav[0].Message)

	telemetry := box.ofType(types.MsgVehicleTelemetry)
	require.Len(t, telemetry, 2)
	snap := telemetry[1].Message.(types.VehicleTelemetry)
	assert.True(t, snap.Ready)
	assert.Equal(t, "GUIDED", snap.Mode)
	assert.Equal(t, "ARMED", snap.ArmStatus)
	assert.Equal(t, "BRAKING", snap.Navigation)
	assert.InDelta(t, 270, snap.Heading, 1e-3)
	assert.InDelta(t, 100, snap.DistanceFromHome, 0.5)
	assert.InDelta(t, 60.1708, snap.Position.Lat, 1e-7)

	// Publishing telemetry leaves fresh values for other readers.
	assert.True(t, fm.vehicle.GlobalPosition().IsNew)
	assert.True(t, fm.vehicle.HomePosition().IsNew)
	assert.Equal(t, -1, snap.MissionSeq)
}

func TestStepPostsDownloadedMission(t *testing.T) {
	fm := newFlyMav(testConfig(), newFakeLink(), nil, quiet())
	box := &postbox{}
	feed(fm)

	require.NoError(t, fm.apply(types.CreateMessage(types.MsgDownloadMission, "cloud", "d1", types.DownloadMission{})))
	fm.decoder.HandleMessage(1, 1, &common.MessageMissionCount{Count: 1})
	fm.decoder.HandleMessage(1, 1, &common.MessageMissionItemInt{
		Seq: 0, Frame: common.MAV_FRAME_GLOBAL_RELATIVE_ALT_INT, X: 601710000, Y: 249390000, Z: 15,
	})
	fm.step(box.post)

	done := box.ofType(types.MsgMissionDownloaded)
	require.Len(t, done, 1)
	points := done[0].Message.(types.MissionDownloaded).Points
	require.Len(t, points, 1)
	assert.InDelta(t, 60.171, points[0].Lat, 1e-7)
	assert.InDelta(t, 40, points[0].Alt, 1e-3)
}

func TestRunLoop(t *testing.T) {
	link := newFakeLink()
	fm := newFlyMav(testConfig(), link, nil, quiet())
	box := &postbox{}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	fm.Run(ctx, &wg, box.post)

	link.events <- &gomavlib.EventChannelOpen{}
	require.Eventually(t, func() bool {
		return len(box.ofType(types.MsgVehicleTelemetry)) > 2
	}, time.Second, 5*time.Millisecond)

	// Own posts and messages for other devices are not commands.
	fm.Receive(types.CreateMessage(types.MsgArm, "d1", "d1", types.Arm{Arm: true}))
	fm.Receive(types.CreateMessage(types.MsgArm, "cloud", "d2", types.Arm{Arm: true}))
	fm.Receive(types.CreateMessage(types.MsgArm, "cloud", "d1", types.Arm{Arm: false}))

	var arms []*common.MessageCommandLong
	var heartbeats int
	require.Eventually(t, func() bool {
		for _, m := range link.take() {
			switch m := m.(type) {
			case *common.MessageHeartbeat:
				heartbeats++
			case *common.MessageCommandLong:
				if m.Command == common.MAV_CMD_COMPONENT_ARM_DISARM {
					arms = append(arms, m)
				}
			}
		}
		return len(arms) > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()

	for _, m := range link.take() {
		if _, ok := m.(*common.MessageHeartbeat); ok {
			heartbeats++
		}
	}
	assert.Equal(t, 1, heartbeats)
	require.Len(t, arms, 1)
	assert.Equal(t, float32(0), arms[0].Param1)
}
