package vehicle

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tiiuae/mavlink_vehicles/geo"
)

// navigation is the arbitration state. Exactly one intent drives outbound
// targets. While rotating, other requests are queued in afterRotation and
// run when the rotation completes with autocontinue set.
type navigation struct {
	status MissionStatus

	takeControl       bool
	autorotateMission bool
	autorotateDetour  bool

	// resumeMission makes NORMAL request AUTO until the vehicle reports it.
	resumeMission bool

	rotationGoal              float64
	autocontinueAfterRotation bool
	afterRotation             MissionStatus
	settledSince              time.Time

	detourWaypoint     Stamped[geo.Global]
	detourAutocontinue bool
	// detourSuspended is set when a brake interrupts a detour. The detour
	// resumes after the brake if the brake autocontinues.
	detourSuspended bool

	brakeAutocontinue bool
	stoppedSince      time.Time
}

func newNavigation() navigation {
	return navigation{status: Normal, afterRotation: Normal}
}

func (v *Vehicle) NavigationStatus() MissionStatus {
	return v.nav.status
}

func (v *Vehicle) IsRotationActive() bool {
	return v.nav.status == Rotating
}

func (v *Vehicle) IsDetourActive() bool {
	return v.nav.status == Detouring
}

func (v *Vehicle) IsBrakeActive() bool {
	return v.nav.status == Braking
}

// RotationGoal is the absolute heading of the current or last rotation.
func (v *Vehicle) RotationGoal() float64 {
	return v.nav.rotationGoal
}

// TakeControl allows or forbids yaw commands. Without control, rotations are
// tracked but never commanded; an external authority turns the vehicle.
func (v *Vehicle) TakeControl(enable bool) {
	if v.nav.takeControl != enable {
		v.log.WithField("enable", enable).Info("Take control")
	}
	v.nav.takeControl = enable
}

func (v *Vehicle) HasControl() bool {
	return v.nav.takeControl
}

func (v *Vehicle) SetAutorotateDuringMission(enable bool) {
	v.nav.autorotateMission = enable
}

func (v *Vehicle) SetAutorotateDuringDetour(enable bool) {
	v.nav.autorotateDetour = enable
}

func (v *Vehicle) setStatus(s MissionStatus) {
	if v.nav.status != s {
		v.log.WithFields(logrus.Fields{"from": v.nav.status, "to": s}).Info("Navigation status changed")
	}
	v.nav.status = s
}

// Rotate turns the vehicle by angle radians relative to its current heading.
// With autocontinue the interrupted or queued intent runs afterwards.
func (v *Vehicle) Rotate(angle float64, autocontinue bool) {
	after := v.nav.status
	if after == Rotating {
		after = v.nav.afterRotation
	}
	v.startRotation(geo.WrapPi(v.attitude.Value.Yaw+angle), autocontinue, after)
}

func (v *Vehicle) startRotation(goal float64, autocontinue bool, after MissionStatus) {
	n := &v.nav
	n.rotationGoal = goal
	n.autocontinueAfterRotation = autocontinue
	n.afterRotation = after
	n.settledSince = time.Time{}
	v.resetYawTarget()
	v.log.WithFields(logrus.Fields{"goal": geo.Rad2Deg(goal), "then": after}).Info("Rotation requested")
	v.setStatus(Rotating)
}

// SendDetourWaypoint flies to wp outside the mission. Without autocontinue
// the target is sent once and navigation returns to NORMAL; with it the
// mission resumes on arrival. With autorotate the vehicle first turns to face
// wp.
func (v *Vehicle) SendDetourWaypoint(wp geo.Global, autocontinue, autorotate bool) {
	n := &v.nav
	n.detourWaypoint.set(wp, v.now())
	n.detourAutocontinue = autocontinue

	if n.status == Rotating {
		n.afterRotation = Detouring
		n.detourSuspended = false
		v.log.Info("Detour deferred until rotation completes")
		return
	}
	if n.status == Braking {
		v.log.Info("Brake replaced by detour")
	}
	n.detourSuspended = false
	v.ledger.forget(CmdDetour)

	if (autorotate || n.autorotateDetour) && n.takeControl &&
		v.attitude.IsInitialized() && v.globalPosition.IsInitialized() {
		yaw := v.attitude.Value.Yaw
		angle := geo.WaypointRelAngle(wp, v.globalPosition.Value, yaw)
		if math.Abs(angle) > v.cfg.rotationTolerance() {
			v.startRotation(geo.WrapPi(yaw+angle), true, Detouring)
			return
		}
	}
	v.setStatus(Detouring)
}

// Brake stops the vehicle. With autocontinue, an interrupted detour or the
// mission resumes once the vehicle has stopped.
func (v *Vehicle) Brake(autocontinue bool) {
	n := &v.nav
	switch n.status {
	case Rotating:
		if n.afterRotation == Detouring {
			n.detourSuspended = true
		}
		n.afterRotation = Braking
		n.brakeAutocontinue = autocontinue
		v.log.Info("Brake deferred until rotation completes")
		return
	case Detouring:
		n.detourSuspended = true
	case Braking:
	default:
		n.detourSuspended = false
	}
	n.brakeAutocontinue = autocontinue
	n.stoppedSince = time.Time{}
	v.setStatus(Braking)
}

func (v *Vehicle) updateNavigation() {
	switch v.nav.status {
	case Rotating:
		v.updateRotation()
	case Detouring:
		v.updateDetour()
	case Braking:
		v.updateBrake()
	default:
		v.updateNormal()
	}
}

// activate enters a queued intent.
func (v *Vehicle) activate(s MissionStatus) {
	switch s {
	case Detouring:
		v.ledger.forget(CmdDetour)
		v.setStatus(Detouring)
	case Braking:
		v.nav.stoppedSince = time.Time{}
		v.setStatus(Braking)
	default:
		v.nav.resumeMission = true
		v.setStatus(Normal)
	}
}

func (v *Vehicle) stop(resume bool) {
	v.nav.resumeMission = resume
	v.nav.detourSuspended = false
	v.setStatus(Normal)
}

func (v *Vehicle) updateNormal() {
	n := &v.nav
	if n.resumeMission {
		if !v.canControlMode() || v.isMode(ModeAuto) {
			n.resumeMission = false
			return
		}
		v.keep(v.sendMode(ModeAuto, v.cfg.CommandTimeout))
		return
	}

	if !v.freshWaypoint {
		return
	}
	v.freshWaypoint = false
	if !n.autorotateMission || !n.takeControl || !v.isMode(ModeAuto) {
		return
	}
	yaw := v.attitude.Value.Yaw
	angle := geo.WaypointRelAngle(v.missionWaypoint.Value, v.globalPosition.Value, yaw)
	if math.Abs(angle) > v.cfg.rotationTolerance() {
		v.startRotation(geo.WrapPi(yaw+angle), true, Normal)
	}
}

func (v *Vehicle) updateRotation() {
	n := &v.nav
	if n.takeControl {
		inGuided, err := v.ensureMode(ModeGuided)
		v.keep(err)
		if inGuided {
			v.keep(v.sendYawTarget(n.rotationGoal))
		}
	}

	if !v.attitude.IsInitialized() {
		return
	}
	now := v.now()
	if math.Abs(geo.WrapPi(v.attitude.Value.Yaw-n.rotationGoal)) >= v.cfg.rotationTolerance() {
		n.settledSince = time.Time{}
		return
	}
	if n.settledSince.IsZero() {
		n.settledSince = now
	}
	if now.Sub(n.settledSince) < v.cfg.SettleInterval {
		return
	}

	v.log.WithField("yaw", geo.Rad2Deg(v.attitude.Value.Yaw)).Info("Rotation complete")
	if n.autocontinueAfterRotation {
		v.activate(n.afterRotation)
	} else {
		v.stop(false)
	}
}

func (v *Vehicle) updateDetour() {
	n := &v.nav
	inGuided, err := v.ensureMode(ModeGuided)
	v.keep(err)
	if !inGuided {
		return
	}

	wp := n.detourWaypoint.Value
	if err := v.sendDetourTarget(wp); err != nil {
		v.keep(err)
		return
	}
	if !n.detourAutocontinue {
		v.stop(false)
		return
	}
	if geo.GroundDist(v.globalPosition.Value, wp) < v.cfg.DetourArrivalRadius {
		v.log.Info("Detour waypoint reached")
		v.stop(true)
	}
}

func (v *Vehicle) updateBrake() {
	n := &v.nav
	_, err := v.ensureMode(ModeBrake)
	v.keep(err)

	if !v.velocity.IsInitialized() {
		return
	}
	now := v.now()
	if v.Speed() >= v.cfg.BrakeSpeedThreshold {
		n.stoppedSince = time.Time{}
		return
	}
	if n.stoppedSince.IsZero() {
		n.stoppedSince = now
	}
	if now.Sub(n.stoppedSince) < v.cfg.SettleInterval {
		return
	}

	v.log.Info("Brake complete")
	switch {
	case !n.brakeAutocontinue:
		v.stop(false)
	case n.detourSuspended:
		n.detourSuspended = false
		v.activate(Detouring)
	default:
		v.stop(true)
	}
}
