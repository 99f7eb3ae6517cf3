// Package flightplan loads preplanned flight paths from disk.
package flightplan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tiiuae/mavlink_vehicles/internal/types"
)

type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir}
}

// Load returns the path for deviceID, falling back to the shared
// flightpath file when the device has none.
func (l *Loader) Load(deviceID string) ([]types.Point, error) {
	var tried []string
	for _, name := range candidates(deviceID) {
		filename := filepath.Join(l.dir, name)
		points, err := loadFile(filename)
		if err == nil {
			return points, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		tried = append(tried, filename)
	}
	return nil, errors.Errorf("no flight plan found, tried %v", tried)
}

func candidates(deviceID string) []string {
	return []string{
		fmt.Sprintf("flightpath-%s.json", deviceID),
		fmt.Sprintf("flightpath-%s.yaml", deviceID),
		"flightpath.json",
		"flightpath.yaml",
	}
}

func loadFile(filename string) ([]types.Point, error) {
	text, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var path []types.Point
	if filepath.Ext(filename) == ".yaml" {
		err = yaml.Unmarshal(text, &path)
	} else {
		err = json.Unmarshal(text, &path)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "parse %s", filename)
	}
	if len(path) == 0 {
		return nil, errors.Errorf("%s is empty", filename)
	}

	return path, nil
}
