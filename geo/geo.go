// Package geo converts between geodetic fixed-point coordinates and a local
// North-East-Down tangent plane, and measures distances and bearings between
// them.
//
// Positions keep the MAVLink fixed-point convention: latitude and longitude in
// degrees * 1e7, altitude in millimetres above mean sea level.
//
// The projection is a flat-Earth (equirectangular) approximation around the
// reference point. Its error grows roughly with the square of the distance from
// the reference: centimetres over a few kilometres, about 0.1 % of the range at
// 10 km. Do not use it for points tens of kilometres apart or close to the poles.
package geo

import (
	"math"

	golanggeo "github.com/kellydunn/golang-geo"
)

const earthRadiusMetres float64 = 6371000

const degE7 = 1e7

// Global is a geodetic position.
type Global struct {
	Lat int32 // Degrees * 1e7
	Lon int32 // Degrees * 1e7
	Alt int32 // Millimetres (AMSL)
}

// Local is an offset in metres in the NED frame of some reference point.
type Local struct {
	X float64 // North
	Y float64 // East
	Z float64 // Down
}

// FromDegrees converts floating point degrees and metres into the fixed-point
// representation.
func FromDegrees(lat, lon, altMetres float64) Global {
	return Global{
		Lat: int32(math.Round(lat * degE7)),
		Lon: int32(math.Round(lon * degE7)),
		Alt: int32(math.Round(altMetres * 1000)),
	}
}

// Degrees returns the position as floating point degrees and metres.
func (g Global) Degrees() (lat, lon, altMetres float64) {
	return float64(g.Lat) / degE7, float64(g.Lon) / degE7, float64(g.Alt) / 1000
}

func Rad2Deg(x float64) float64 {
	return x * 180 / math.Pi
}

func Deg2Rad(x float64) float64 {
	return x * math.Pi / 180
}

// WrapPi normalizes an angle to (-pi, pi].
func WrapPi(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// GlobalToLocalNED projects point onto the tangent plane anchored at reference.
func GlobalToLocalNED(point, reference Global) Local {
	refLat := Deg2Rad(float64(reference.Lat) / degE7)
	dLat := Deg2Rad(float64(int64(point.Lat)-int64(reference.Lat)) / degE7)
	dLon := Deg2Rad(wrapDeg(float64(int64(point.Lon)-int64(reference.Lon)) / degE7))

	return Local{
		X: dLat * earthRadiusMetres,
		Y: dLon * earthRadiusMetres * math.Cos(refLat),
		Z: -float64(int64(point.Alt)-int64(reference.Alt)) / 1000,
	}
}

// LocalNEDToGlobal is the inverse of GlobalToLocalNED.
func LocalNEDToGlobal(point Local, reference Global) Global {
	refLat := float64(reference.Lat) / degE7
	refLon := float64(reference.Lon) / degE7

	lat := refLat + Rad2Deg(point.X/earthRadiusMetres)
	lon := refLon
	if c := math.Cos(Deg2Rad(refLat)); c > 1e-9 {
		lon = wrapDeg(refLon + Rad2Deg(point.Y/(earthRadiusMetres*c)))
	}
	alt := float64(reference.Alt) - point.Z*1000

	return Global{
		Lat: int32(math.Round(lat * degE7)),
		Lon: int32(math.Round(lon * degE7)),
		Alt: int32(math.Round(alt)),
	}
}

// Dist is the straight-line distance in metres between two positions,
// altitude included.
func Dist(p1, p2 Global) float64 {
	d := GlobalToLocalNED(p2, p1)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

// GroundDist is the horizontal distance in metres between two positions.
func GroundDist(p1, p2 Global) float64 {
	d := GlobalToLocalNED(p2, p1)
	return math.Hypot(d.X, d.Y)
}

// GroundDistLocal is the horizontal distance in metres between two points of
// the same local frame.
func GroundDistLocal(p1, p2 Local) float64 {
	return math.Hypot(p2.X-p1.X, p2.Y-p1.Y)
}

// GreatCircleDist is the haversine distance in metres, altitude ignored.
func GreatCircleDist(p1, p2 Global) float64 {
	lat1, lon1, _ := p1.Degrees()
	lat2, lon2, _ := p2.Degrees()
	km := golanggeo.NewPoint(lat1, lon1).GreatCircleDistance(golanggeo.NewPoint(lat2, lon2))
	return km * 1000
}

// WaypointRelAngle returns how far, in radians within (-pi, pi], a vehicle at
// refPos with heading refYaw has to turn to face wp. Positive is clockwise.
// When wp and refPos coincide the bearing is undefined and 0 is returned.
func WaypointRelAngle(wp, refPos Global, refYaw float64) float64 {
	d := GlobalToLocalNED(wp, refPos)
	if d.X == 0 && d.Y == 0 {
		return 0
	}
	return WrapPi(math.Atan2(d.Y, d.X) - refYaw)
}

func wrapDeg(d float64) float64 {
	if d >= 180 {
		return d - 360
	}
	if d < -180 {
		return d + 360
	}
	return d
}
