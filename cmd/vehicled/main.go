package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tiiuae/mavlink_vehicles/internal/commands"
	"github.com/tiiuae/mavlink_vehicles/internal/config"
	"github.com/tiiuae/mavlink_vehicles/internal/flightplan"
	"github.com/tiiuae/mavlink_vehicles/internal/flymav"
	"github.com/tiiuae/mavlink_vehicles/internal/mavlinkio"
	"github.com/tiiuae/mavlink_vehicles/internal/telemetry"
	"github.com/tiiuae/mavlink_vehicles/internal/types"
)

type flags struct {
	configPath     string
	deviceID       string
	mqttBroker     string
	privateKeyPath string
	verbose        bool
}

func main() {
	var f flags

	rootCmd := &cobra.Command{
		Use:   "vehicled",
		Short: "MAVLink vehicle control plane",
		Long: `Connects to an ArduPilot or PX4 vehicle over MAVLink, keeps its state,
executes rotate, detour, brake and mission commands received over MQTT, and
publishes vehicle telemetry back to the cloud.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	rootCmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Path to the YAML config file")
	rootCmd.Flags().StringVar(&f.deviceID, "device_id", "", "The provisioned device id")
	rootCmd.Flags().StringVar(&f.mqttBroker, "mqtt_broker", "", "MQTT broker protocol, address and port")
	rootCmd.Flags().StringVar(&f.privateKeyPath, "private_key", "", "The private key for the MQTT authentication")
	rootCmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Verbose logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the flags that were set.
func loadConfig(cmd *cobra.Command, f flags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("device_id") {
		cfg.DeviceID = f.deviceID
	}
	if cmd.Flags().Changed("mqtt_broker") {
		cfg.MQTT.Broker = f.mqttBroker
	}
	if cmd.Flags().Changed("private_key") {
		cfg.MQTT.PrivateKey = f.privateKeyPath
	}
	if f.verbose {
		cfg.LogLevel = log.DebugLevel.String()
	}
	return cfg, cfg.Validate()
}

func run(cfg config.Config) error {
	level, _ := cfg.Level()
	logger := log.New()
	logger.SetLevel(level)
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	l := logger.WithField("device", cfg.DeviceID)

	// attach sigint & sigterm listeners
	terminationSignals := make(chan os.Signal, 1)
	signal.Notify(terminationSignals, syscall.SIGINT, syscall.SIGTERM)

	// quitFunc will be called when process is terminated
	ctx, quitFunc := context.WithCancel(context.Background())
	defer quitFunc()

	// wait group will make sure all goroutines have time to clean up
	var wg sync.WaitGroup

	link, err := mavlinkio.Open(cfg.Mavlink.Config)
	if err != nil {
		return errors.WithMessage(err, "open mavlink")
	}
	defer link.Close()
	l.WithFields(log.Fields{"endpoint": cfg.Mavlink.Endpoint, "address": cfg.Mavlink.Address}).Info("MAVLink link open")

	handlers := []types.MessageHandler{
		types.NewLogger(l),
		flymav.New(flymav.Config{
			DeviceID:       cfg.DeviceID,
			Vehicle:        cfg.VehicleConfig(),
			UpdateInterval: cfg.UpdateInterval,
		}, link, flightplan.NewLoader(cfg.FlightPlanDir), l),
	}

	if cfg.MQTT.Enabled {
		mqttClient, err := newMQTTClient(cfg.DeviceID, cfg.MQTT, l)
		if err != nil {
			return err
		}
		defer mqttClient.Disconnect(1000)
		handlers = append(handlers,
			telemetry.New(mqttClient, cfg.DeviceID, l),
			commands.New(mqttClient, cfg.DeviceID, l),
		)
	} else {
		l.Warn("MQTT disabled, running without cloud commands")
	}

	messagebus := make(chan types.Message, 100)
	bus := types.NewMessageBus(messagebus, handlers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		bus.Run(ctx, &wg)
	}()

	// wait for termination and close quit to signal all
	<-terminationSignals
	// cancel the main context
	l.Info("Shutting down..")
	quitFunc()

	// wait until goroutines have done their cleanup
	l.Info("Waiting for routines to finish..")
	wg.Wait()
	l.Info("Signing off - BYE")
	return nil
}
