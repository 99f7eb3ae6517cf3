package flightplan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiiuae/mavlink_vehicles/internal/types"
)

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadPrefersDeviceFile(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "flightpath.json", `[{"lat": 1, "lon": 2, "alt": 3}]`)
	write(t, dir, "flightpath-d1.yaml", "- lat: 60.1\n  lon: 24.9\n  alt: 40\n- lat: 60.2\n  lon: 25.0\n  alt: 45\n")

	points, err := NewLoader(dir).Load("d1")
	require.NoError(t, err)
	assert.Equal(t, []types.Point{{Lat: 60.1, Lon: 24.9, Alt: 40}, {Lat: 60.2, Lon: 25.0, Alt: 45}}, points)

	points, err = NewLoader(dir).Load("d2")
	require.NoError(t, err)
	assert.Equal(t, []types.Point{{Lat: 1, Lon: 2, Alt: 3}}, points)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := NewLoader(dir).Load("d1")
	assert.Error(t, err)

	write(t, dir, "flightpath-d1.json", `{"lat": 1}`)
	_, err = NewLoader(dir).Load("d1")
	assert.Error(t, err, "a broken device plan is not silently replaced by the shared one")

	write(t, dir, "flightpath-d2.json", `[]`)
	_, err = NewLoader(dir).Load("d2")
	assert.Error(t, err)
}
