package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var helsinki = FromDegrees(60.1699, 24.9384, 25)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		ref   Global
		point Global
	}{
		{"same point", helsinki, helsinki},
		{"500m north east", helsinki, FromDegrees(60.1744, 24.9474, 40)},
		{"3km south west below", helsinki, FromDegrees(60.1430, 24.8900, 2)},
		{"equator", FromDegrees(0, 0, 0), FromDegrees(0.02, -0.02, 100)},
		{"southern hemisphere", FromDegrees(-33.8688, 151.2093, 58), FromDegrees(-33.8500, 151.2300, 120)},
		{"across antimeridian", FromDegrees(-16.5, 179.99, 10), FromDegrees(-16.5, -179.99, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := GlobalToLocalNED(tt.point, tt.ref)
			back := LocalNEDToGlobal(local, tt.ref)
			assert.InDelta(t, tt.point.Lat, back.Lat, 1)
			assert.InDelta(t, tt.point.Lon, back.Lon, 1)
			assert.InDelta(t, tt.point.Alt, back.Alt, 1)
		})
	}
}

func TestGroundDistZero(t *testing.T) {
	for _, p := range []Global{helsinki, {}, FromDegrees(-89.9, 179.9, -400)} {
		assert.Equal(t, 0.0, GroundDist(p, p))
		assert.Equal(t, 0.0, Dist(p, p))
	}
	assert.Equal(t, 0.0, GroundDistLocal(Local{1, 2, 3}, Local{1, 2, -7}))
}

func TestDistances(t *testing.T) {
	north := FromDegrees(60.1799, 24.9384, 25)
	// 0.01 degrees of latitude
	assert.InDelta(t, 1111.95, GroundDist(helsinki, north), 0.1)
	assert.InDelta(t, GreatCircleDist(helsinki, north), GroundDist(helsinki, north), 0.5)

	above := FromDegrees(60.1699, 24.9384, 125)
	assert.InDelta(t, 0, GroundDist(helsinki, above), 1e-9)
	assert.InDelta(t, 100, Dist(helsinki, above), 1e-6)

	local := GlobalToLocalNED(above, helsinki)
	assert.InDelta(t, -100, local.Z, 1e-9)

	assert.InDelta(t, 5, GroundDistLocal(Local{0, 0, 0}, Local{3, 4, 10}), 1e-9)
}

func TestWaypointRelAngle(t *testing.T) {
	east := FromDegrees(60.1699, 24.9484, 25)
	north := FromDegrees(60.1799, 24.9384, 25)
	west := FromDegrees(60.1699, 24.9284, 25)

	assert.InDelta(t, math.Pi/2, WaypointRelAngle(east, helsinki, 0), 1e-6)
	assert.InDelta(t, 0, WaypointRelAngle(north, helsinki, 0), 1e-6)
	assert.InDelta(t, -math.Pi/2, WaypointRelAngle(west, helsinki, 0), 1e-6)
	assert.InDelta(t, -math.Pi/2, WaypointRelAngle(north, helsinki, math.Pi/2), 1e-6)
	// Facing west, the east waypoint is straight behind.
	assert.InDelta(t, math.Pi, math.Abs(WaypointRelAngle(east, helsinki, -math.Pi/2)), 1e-6)

	assert.Equal(t, 0.0, WaypointRelAngle(helsinki, helsinki, 1.2))
}

func TestWrapPi(t *testing.T) {
	assert.InDelta(t, 0, WrapPi(2*math.Pi), 1e-12)
	assert.InDelta(t, math.Pi, WrapPi(-math.Pi), 1e-12)
	assert.InDelta(t, -math.Pi/2, WrapPi(3*math.Pi/2), 1e-12)
	assert.InDelta(t, 0.5, WrapPi(0.5+4*math.Pi), 1e-12)
}

func TestDegrees(t *testing.T) {
	lat, lon, alt := FromDegrees(60.1699, -24.9384, 25.5).Degrees()
	assert.InDelta(t, 60.1699, lat, 1e-7)
	assert.InDelta(t, -24.9384, lon, 1e-7)
	assert.InDelta(t, 25.5, alt, 1e-3)
}
