// Package config loads the vehicled configuration file.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/tiiuae/mavlink_vehicles/internal/mavlinkio"
	"github.com/tiiuae/mavlink_vehicles/vehicle"
)

const defaultServer = "ssl://mqtt.googleapis.com:8883"

type Config struct {
	DeviceID       string         `yaml:"device_id"`
	LogLevel       string         `yaml:"log_level"`
	Mavlink        Mavlink        `yaml:"mavlink"`
	MQTT           MQTT           `yaml:"mqtt"`
	Vehicle        vehicle.Config `yaml:"vehicle"`
	UpdateInterval time.Duration  `yaml:"update_interval"`
	FlightPlanDir  string         `yaml:"flightplan_dir"`
}

// Mavlink is the link configuration plus the vehicle addressing, which ends up
// in the vehicle config.
type Mavlink struct {
	mavlinkio.Config `yaml:",inline"`
	TargetSystem     uint8 `yaml:"target_system"`
	TargetComponent  uint8 `yaml:"target_component"`
}

type MQTT struct {
	Enabled    bool   `yaml:"enabled"`
	Broker     string `yaml:"broker"`
	PrivateKey string `yaml:"private_key"`
}

func Default() Config {
	v := vehicle.DefaultConfig()
	return Config{
		LogLevel: "info",
		Mavlink: Mavlink{
			Config:          mavlinkio.DefaultConfig(),
			TargetSystem:    v.TargetSystem,
			TargetComponent: v.TargetComponent,
		},
		MQTT: MQTT{
			Enabled:    true,
			Broker:     defaultServer,
			PrivateKey: "/enclave/rsa_private.pem",
		},
		Vehicle:        v,
		UpdateInterval: 50 * time.Millisecond,
		FlightPlanDir:  ".",
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.WithMessage(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.WithMessagef(err, "parse config %s", path)
	}
	return cfg, nil
}

// VehicleConfig is the vehicle config with the addressing from the mavlink
// section applied.
func (c Config) VehicleConfig() vehicle.Config {
	v := c.Vehicle
	v.TargetSystem = c.Mavlink.TargetSystem
	v.TargetComponent = c.Mavlink.TargetComponent
	return v
}

func (c Config) Level() (log.Level, error) {
	return log.ParseLevel(c.LogLevel)
}

func (c Config) Validate() error {
	if c.DeviceID == "" {
		return errors.New("device_id is required")
	}
	if c.UpdateInterval <= 0 {
		return errors.Errorf("update_interval must be positive, got %v", c.UpdateInterval)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Vehicle.MissionMaxRetries < 0 {
		return errors.New("vehicle.mission_max_retries must not be negative")
	}
	return nil
}
