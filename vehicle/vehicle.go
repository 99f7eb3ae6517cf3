// Package vehicle keeps a live model of a remote MAVLink autopilot and turns
// navigation intents (mission, detour, rotation, brake) into one outbound
// command stream.
//
// A Vehicle is not safe for concurrent use. Decoded telemetry is delivered
// through the TelemetrySink methods and Update is called periodically by the
// owner, all from the same goroutine.
package vehicle

import (
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"github.com/sirupsen/logrus"

	"github.com/tiiuae/mavlink_vehicles/geo"
)

// Sender transmits a MAVLink message to the vehicle.
type Sender interface {
	WriteMessage(msg message.Message) error
}

type Option func(*Vehicle)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Vehicle) {
		v.now = now
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(v *Vehicle) {
		v.log = log
	}
}

type Vehicle struct {
	sender  Sender
	cfg     Config
	now     func() time.Time
	log     logrus.FieldLogger
	started time.Time

	targetSystem    uint8
	targetComponent uint8
	autopilot       Autopilot

	// Telemetry
	lastHeartbeat   time.Time
	responding      bool
	customMode      uint32
	attitude        Stamped[Attitude]
	globalPosition  Stamped[geo.Global]
	localPosition   Stamped[geo.Local]
	velocity        Stamped[geo.Local]
	homePosition    Stamped[geo.Global]
	mode            Stamped[Mode]
	armStatus       Stamped[ArmStatus]
	status          Stamped[Status]
	gpsStatus       Stamped[GPSStatus]
	missionCurrent  Stamped[uint16]
	missionWaypoint Stamped[geo.Global]
	trackedSeq      uint16
	freshWaypoint   bool
	// waypointOutdated forces a refetch of the current item after an upload
	// replaced the mission under an unchanged sequence number.
	waypointOutdated bool
	lastCommandAck   Stamped[CommandAck]

	ledger   ledger
	upload   missionUpload
	download missionDownload
	nav      navigation

	err error
}

func New(sender Sender, cfg Config, opts ...Option) *Vehicle {
	v := &Vehicle{
		sender:          sender,
		cfg:             cfg,
		now:             time.Now,
		log:             logrus.StandardLogger().WithField("component", "vehicle"),
		targetSystem:    cfg.TargetSystem,
		targetComponent: cfg.TargetComponent,
		autopilot:       AutopilotUnknown,
		ledger:          newLedger(),
		nav:             newNavigation(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.started = v.now()
	return v
}

// Update runs one cooperative step: liveness, heartbeat, mission transfers
// and navigation. It never blocks. Every due command is attempted even after
// a transmission failure; the first failure is returned.
func (v *Vehicle) Update() error {
	v.err = nil

	v.updateLiveness()
	v.keep(v.sendHeartbeat())

	if !v.lastHeartbeat.IsZero() && !v.homePosition.IsInitialized() {
		v.keep(v.requestHomePosition())
	}

	v.updateMissionTransfer()

	if !v.IsReady() {
		return v.err
	}

	v.updateMissionTracking()
	v.updateNavigation()

	return v.err
}

func (v *Vehicle) keep(err error) {
	if err != nil && v.err == nil {
		v.err = err
	}
}

// warn logs errors from sends triggered by inbound telemetry, where there is
// no caller to return them to. The ledger makes Update retry them.
func (v *Vehicle) warn(err error) {
	if err != nil {
		v.log.WithError(err).Warn("Send failed")
	}
}

func (v *Vehicle) TargetSystem() uint8 {
	return v.targetSystem
}

func (v *Vehicle) Autopilot() Autopilot {
	return v.autopilot
}

func (v *Vehicle) Config() Config {
	return v.cfg
}
