// Package flymav owns the vehicle model and its MAVLink link, and connects
// them to the message bus.
package flymav

import (
	"context"
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tiiuae/mavlink_vehicles/geo"
	"github.com/tiiuae/mavlink_vehicles/internal/mavlinkio"
	"github.com/tiiuae/mavlink_vehicles/internal/types"
	"github.com/tiiuae/mavlink_vehicles/vehicle"
)

type Link interface {
	vehicle.Sender
	Events() chan gomavlib.Event
}

type PlanLoader interface {
	Load(deviceID string) ([]types.Point, error)
}

type Config struct {
	DeviceID       string
	Vehicle        vehicle.Config
	UpdateInterval time.Duration
}

type flyMav struct {
	deviceID string
	link     Link
	vehicle  *vehicle.Vehicle
	decoder  *mavlinkio.Decoder
	plans    PlanLoader
	interval time.Duration
	inbox    chan types.Message
	log      log.FieldLogger

	navigation vehicle.MissionStatus
	receiving  bool
	responding bool
}

func New(cfg Config, link Link, plans PlanLoader, l log.FieldLogger) types.MessageHandler {
	return newFlyMav(cfg, link, plans, l)
}

func newFlyMav(cfg Config, link Link, plans PlanLoader, l log.FieldLogger, opts ...vehicle.Option) *flyMav {
	l = l.WithField("component", "flymav")
	opts = append([]vehicle.Option{vehicle.WithLogger(l)}, opts...)
	v := vehicle.New(link, cfg.Vehicle, opts...)
	return &flyMav{
		deviceID:   cfg.DeviceID,
		link:       link,
		vehicle:    v,
		decoder:    mavlinkio.NewDecoder(v, cfg.Vehicle.TargetSystem, l),
		plans:      plans,
		interval:   cfg.UpdateInterval,
		inbox:      make(chan types.Message, 10),
		log:        l,
		navigation: v.NavigationStatus(),
	}
}

func (fm *flyMav) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	go fm.runMessageLoop(ctx, wg, post)
}

// Receive queues commands addressed to this device. Our own posts are not
// commands.
func (fm *flyMav) Receive(message types.Message) {
	if message.To != fm.deviceID || message.From == fm.deviceID {
		return
	}
	fm.inbox <- message
}

// runMessageLoop is the only goroutine touching the vehicle.
func (fm *flyMav) runMessageLoop(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	defer wg.Done()

	ticker := time.NewTicker(fm.interval)
	defer ticker.Stop()

	events := fm.link.Events()
	for {
		select {
		case <-ctx.Done():
			fm.log.Info("Shutting down")
			return
		case evt, ok := <-events:
			if !ok {
				fm.log.Warn("Link closed")
				events = nil
				continue
			}
			fm.decoder.HandleEvent(evt)
		case <-ticker.C:
			fm.step(post)
		case msg := <-fm.inbox:
			if err := fm.apply(msg); err != nil {
				fm.log.WithError(err).WithField("type", msg.MessageType).Warn("Command failed")
			}
		}
	}
}

// step runs one vehicle update and posts what changed.
func (fm *flyMav) step(post types.PostFn) {
	if err := fm.vehicle.Update(); err != nil {
		fm.log.WithError(err).Warn("Update failed")
	}

	v := fm.vehicle
	if responding := v.IsRemoteResponding(); responding != fm.responding {
		fm.responding = responding
		post(types.CreateMessage(types.MsgLinkStatus, fm.deviceID, fm.deviceID, types.LinkStatus{
			Responding: responding,
			SystemID:   v.TargetSystem(),
			Autopilot:  v.Autopilot().String(),
		}))
	}

	if nav := v.NavigationStatus(); nav != fm.navigation {
		post(types.CreateMessage(types.MsgNavigationChanged, fm.deviceID, fm.deviceID, types.NavigationChanged{
			From: fm.navigation.String(),
			To:   nav.String(),
		}))
		fm.navigation = nav
	}

	receiving := v.IsReceivingMission()
	if fm.receiving && !receiving {
		post(types.CreateMessage(types.MsgMissionDownloaded, fm.deviceID, fm.deviceID, types.MissionDownloaded{
			Points: toPoints(v.ReceivedMission()),
		}))
	}
	fm.receiving = receiving

	post(types.CreateMessage(types.MsgVehicleTelemetry, fm.deviceID, fm.deviceID, Snapshot(v, time.Now().UTC())))
}

func (fm *flyMav) apply(msg types.Message) error {
	v := fm.vehicle
	switch m := msg.Message.(type) {
	case types.Arm:
		return v.ArmThrottle(m.Arm)
	case types.Takeoff:
		return v.Takeoff()
	case types.SetMode:
		mode, err := vehicle.ParseMode(m.Mode)
		if err != nil {
			return err
		}
		return v.SetMode(mode)
	case types.Rotate:
		v.Rotate(geo.Deg2Rad(m.Angle), m.Autocontinue)
	case types.Detour:
		v.SendDetourWaypoint(toGlobal(m.Point), m.Autocontinue, m.Autorotate)
	case types.GoTo:
		return v.SendMissionWaypoint(toGlobal(m.Point), m.Autorotate)
	case types.Brake:
		v.Brake(m.Autocontinue)
	case types.UploadMission:
		return v.SendMission(toGlobals(m.Points))
	case types.DownloadMission:
		err := v.RequestMissionList()
		fm.receiving = v.IsReceivingMission()
		return err
	case types.ExecutePreplanned:
		if fm.plans == nil {
			return errors.New("no flight plans configured")
		}
		points, err := fm.plans.Load(fm.deviceID)
		if err != nil {
			return err
		}
		fm.log.WithField("points", len(points)).Info("Executing preplanned path")
		return v.SendMissionWaypoints(toGlobals(points))
	case types.TakeControl:
		v.TakeControl(m.Enable)
	case types.Autorotate:
		v.SetAutorotateDuringMission(m.Mission)
		v.SetAutorotateDuringDetour(m.Detour)
	}
	return nil
}

func toGlobal(p types.Point) geo.Global {
	return geo.FromDegrees(p.Lat, p.Lon, p.Alt)
}

func toGlobals(points []types.Point) []geo.Global {
	out := make([]geo.Global, len(points))
	for i, p := range points {
		out[i] = toGlobal(p)
	}
	return out
}

func toPoint(g geo.Global) types.Point {
	lat, lon, alt := g.Degrees()
	return types.Point{Lat: lat, Lon: lon, Alt: alt}
}

func toPoints(globals []geo.Global) []types.Point {
	out := make([]types.Point, len(globals))
	for i, g := range globals {
		out[i] = toPoint(g)
	}
	return out
}
