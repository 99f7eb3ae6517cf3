package vehicle

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tiiuae/mavlink_vehicles/geo"
)

type missionUpload struct {
	items    []geo.Global
	active   bool
	accepted bool
	// lastSent is the index of the last item pushed, -1 while only the count
	// has been declared.
	lastSent int
	retries  int
	// startAuto switches the vehicle to AUTO once the upload is accepted.
	startAuto bool
}

type missionDownload struct {
	items   []geo.Global
	active  bool
	size    int // -1 until the count arrives
	retries int
}

// SendMission uploads items as the vehicle's mission, replacing any transfer
// in progress. The result is observed through IsSendingMission and
// MissionUploadAccepted.
func (v *Vehicle) SendMission(items []geo.Global) error {
	return v.sendMission(items, false)
}

// SendMissionWaypoint uploads a single waypoint mission and switches to AUTO
// once the vehicle accepts it.
func (v *Vehicle) SendMissionWaypoint(wp geo.Global, autorotate bool) error {
	v.nav.autorotateMission = autorotate
	return v.SendMissionWaypoints([]geo.Global{wp})
}

// SendMissionWaypoints uploads a path and flies it in AUTO once accepted.
// ArduPilot reserves item 0 for home.
func (v *Vehicle) SendMissionWaypoints(wps []geo.Global) error {
	if len(wps) == 0 {
		return errors.New("empty mission")
	}
	items := wps
	if v.autopilot == AutopilotAPM {
		items = append([]geo.Global{v.homePosition.Value}, wps...)
	}
	return v.sendMission(items, true)
}

func (v *Vehicle) sendMission(items []geo.Global, startAuto bool) error {
	if len(items) == 0 {
		return errors.New("empty mission")
	}
	if v.download.active {
		v.log.Warn("Mission download interrupted by upload")
		v.download.active = false
	}

	v.upload = missionUpload{
		items:     append([]geo.Global(nil), items...),
		active:    true,
		lastSent:  -1,
		startAuto: startAuto,
	}
	v.log.WithField("count", len(items)).Info("Mission upload started")
	return v.sendCustom(CmdMissionCount, 0, v.missionCount(len(items)))
}

func (v *Vehicle) IsSendingMission() bool {
	return v.upload.active
}

// MissionUploadAccepted is true when the last upload ended with an accepted
// acknowledgment.
func (v *Vehicle) MissionUploadAccepted() bool {
	return !v.upload.active && v.upload.accepted
}

// RequestMissionList starts downloading the vehicle's mission into
// ReceivedMission.
func (v *Vehicle) RequestMissionList() error {
	if v.upload.active {
		return errors.New("mission upload in progress")
	}
	v.download = missionDownload{active: true, size: -1}
	v.log.Info("Mission download started")
	return v.requestMissionList(0)
}

func (v *Vehicle) IsReceivingMission() bool {
	return v.download.active
}

// ReceivedMission returns the items buffered by the last download.
func (v *Vehicle) ReceivedMission() []geo.Global {
	return append([]geo.Global(nil), v.download.items...)
}

func (v *Vehicle) HandleMissionRequest(seq uint16) {
	u := &v.upload
	if !u.active {
		v.log.WithField("seq", seq).Debug("Mission request without upload")
		return
	}
	if int(seq) >= len(u.items) {
		v.log.WithFields(logrus.Fields{"seq": seq, "count": len(u.items)}).Warn("Mission request out of range")
		return
	}
	if int(seq) != u.lastSent && int(seq) != u.lastSent+1 {
		v.log.WithFields(logrus.Fields{"seq": seq, "last": u.lastSent}).Debug("Mission request out of sequence")
	}

	u.lastSent = int(seq)
	u.retries = 0
	v.warn(v.sendCustom(CmdMissionItem, 0, v.missionItem(int(seq), u.items[seq])))
}

func (v *Vehicle) HandleMissionAck(accepted bool) {
	if v.download.active && !accepted {
		v.log.Warn("Mission download rejected by vehicle")
		v.download.active = false
		return
	}

	u := &v.upload
	if !u.active {
		return
	}
	u.active = false
	u.accepted = accepted
	if !accepted {
		v.log.Warn("Mission upload rejected")
		return
	}
	v.log.WithField("count", len(u.items)).Info("Mission upload accepted")
	v.waypointOutdated = true
	if u.startAuto && v.nav.status == Normal {
		v.nav.resumeMission = true
	}
}

func (v *Vehicle) HandleMissionCount(count uint16) {
	d := &v.download
	if !d.active {
		return
	}
	d.size = int(count)
	d.items = make([]geo.Global, 0, count)
	d.retries = 0
	if count == 0 {
		v.finishDownload()
		return
	}
	v.warn(v.requestMissionItem(0, 0))
}

func (v *Vehicle) HandleMissionItem(item MissionItem) {
	d := &v.download
	if d.active {
		if d.size < 0 || int(item.Seq) != len(d.items) {
			return
		}
		d.items = append(d.items, v.absolute(item))
		d.retries = 0
		if len(d.items) == d.size {
			v.finishDownload()
			return
		}
		v.warn(v.requestMissionItem(uint16(len(d.items)), 0))
		return
	}

	if v.missionCurrent.IsInitialized() && item.Seq == v.missionCurrent.Value {
		v.missionWaypoint.set(v.absolute(item), v.now())
		v.trackedSeq = item.Seq
		v.freshWaypoint = true
		v.waypointOutdated = false
	}
}

func (v *Vehicle) finishDownload() {
	v.download.active = false
	v.log.WithField("count", len(v.download.items)).Info("Mission download complete")
	v.warn(v.sendMissionAck())
}

// updateMissionTransfer reissues unanswered transfer messages and abandons a
// transfer that makes no progress.
func (v *Vehicle) updateMissionTransfer() {
	if u := &v.upload; u.active {
		tag := CmdMissionItem
		if u.lastSent < 0 {
			tag = CmdMissionCount
		}
		if v.ledger.customDue(tag, v.now(), v.cfg.MissionTimeout) {
			u.retries++
			if u.retries > v.cfg.MissionMaxRetries {
				v.log.WithField("retries", v.cfg.MissionMaxRetries).Warn("Mission upload abandoned")
				u.active = false
				u.accepted = false
			} else if tag == CmdMissionCount {
				v.keep(v.sendCustom(tag, 0, v.missionCount(len(u.items))))
			} else {
				v.keep(v.sendCustom(tag, 0, v.missionItem(u.lastSent, u.items[u.lastSent])))
			}
		}
	}

	if d := &v.download; d.active {
		tag := CmdRequestMissionItem
		if d.size < 0 {
			tag = CmdRequestMissionList
		}
		if v.ledger.customDue(tag, v.now(), v.cfg.MissionTimeout) {
			d.retries++
			if d.retries > v.cfg.MissionMaxRetries {
				v.log.WithField("retries", v.cfg.MissionMaxRetries).Warn("Mission download abandoned")
				d.active = false
			} else if tag == CmdRequestMissionList {
				v.keep(v.requestMissionList(0))
			} else {
				v.keep(v.requestMissionItem(uint16(len(d.items)), 0))
			}
		}
	}
}

// updateMissionTracking fetches the item the vehicle reports as current.
func (v *Vehicle) updateMissionTracking() {
	if v.upload.active || v.download.active || !v.missionCurrent.IsInitialized() {
		return
	}
	seq := v.missionCurrent.Value
	if v.missionWaypoint.IsInitialized() && v.trackedSeq == seq && !v.waypointOutdated {
		return
	}
	v.keep(v.requestMissionItem(seq, v.cfg.CommandTimeout))
}
