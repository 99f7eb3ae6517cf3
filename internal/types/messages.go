package types

import (
	"reflect"
	"time"
)

// Bus message types.
const (
	MsgArm               = "arm"
	MsgTakeoff           = "takeoff"
	MsgSetMode           = "set-mode"
	MsgRotate            = "rotate"
	MsgDetour            = "detour"
	MsgGoTo              = "go-to"
	MsgBrake             = "brake"
	MsgUploadMission     = "upload-mission"
	MsgDownloadMission   = "download-mission"
	MsgExecutePreplanned = "execute-preplanned"
	MsgTakeControl       = "take-control"
	MsgAutorotate        = "autorotate"
	MsgVehicleTelemetry  = "vehicle-telemetry"
	MsgMissionDownloaded = "mission-downloaded"
	MsgNavigationChanged = "navigation-changed"
	MsgLinkStatus        = "link-status"
)

// Point is a geodetic position in floating point degrees and metres AMSL.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
	Alt float64 `json:"alt" yaml:"alt"`
}

type Arm struct {
	Arm bool `json:"arm"`
}

type Takeoff struct{}

type SetMode struct {
	Mode string `json:"mode"`
}

// Rotate turns the vehicle by Angle degrees, clockwise positive. Cloud
// commands default Autocontinue to true, as for Detour.
type Rotate struct {
	Angle        float64 `json:"angle"`
	Autocontinue bool    `json:"autocontinue"`
}

type Detour struct {
	Point
	Autocontinue bool `json:"autocontinue"`
	Autorotate   bool `json:"autorotate"`
}

// GoTo uploads a single waypoint mission and flies it in AUTO.
type GoTo struct {
	Point
	Autorotate bool `json:"autorotate"`
}

type Brake struct {
	Autocontinue bool `json:"autocontinue"`
}

type UploadMission struct {
	Points []Point `json:"points"`
}

type DownloadMission struct{}

// ExecutePreplanned uploads the flight plan stored for this device.
type ExecutePreplanned struct{}

type TakeControl struct {
	Enable bool `json:"enable"`
}

type Autorotate struct {
	Mission bool `json:"mission"`
	Detour  bool `json:"detour"`
}

type VehicleTelemetry struct {
	Timestamp        time.Time `json:"timestamp"`
	Autopilot        string    `json:"autopilot"`
	Responding       bool      `json:"responding"`
	Ready            bool      `json:"ready"`
	Status           string    `json:"status"`
	Mode             string    `json:"mode"`
	ArmStatus        string    `json:"arm_status"`
	GPSStatus        string    `json:"gps_status"`
	Navigation       string    `json:"navigation"`
	Position         Point     `json:"position"`
	Home             Point     `json:"home"`
	Roll             float64   `json:"roll"`
	Pitch            float64   `json:"pitch"`
	Heading          float64   `json:"heading"`
	Speed            float64   `json:"speed"`
	MissionSeq       int       `json:"mission_seq"`
	SendingMission   bool      `json:"sending_mission"`
	ReceivingMission bool      `json:"receiving_mission"`
	MissionAccepted  bool      `json:"mission_accepted"`
	DistanceFromHome float64   `json:"distance_from_home"`
	HasControl       bool      `json:"has_control"`
}

type MissionDownloaded struct {
	Points []Point `json:"points"`
}

type NavigationChanged struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type LinkStatus struct {
	Responding bool   `json:"responding"`
	SystemID   uint8  `json:"system_id"`
	Autopilot  string `json:"autopilot"`
}

func derefPayload(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return v
}
