// Package commands turns cloud commands received over MQTT into bus messages.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/tiiuae/mavlink_vehicles/internal/types"
)

const (
	qos    = 1
	retain = false
)

type Client interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type controlCommand struct {
	Command   string
	Payload   string
	Timestamp time.Time
}

type deviceState struct {
	StartedAt time.Time `json:"started_at"`
	Message   string    `json:"message"`
}

// runtimeConfig is the part of the device config topic this service acts on.
type runtimeConfig struct {
	TakeControl       *bool `yaml:"take-control"`
	AutorotateMission *bool `yaml:"autorotate-mission"`
	AutorotateDetour  *bool `yaml:"autorotate-detour"`
}

type handler struct {
	client   Client
	deviceID string
	log      log.FieldLogger

	mu         sync.Mutex
	autorotate types.Autorotate
}

func New(client Client, deviceID string, l log.FieldLogger) types.MessageHandler {
	return &handler{
		client:   client,
		deviceID: deviceID,
		log:      l.WithField("component", "commands"),
	}
}

func (h *handler) Receive(message types.Message) {
}

func (h *handler) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	h.log.Info("Subscribing to MQTT commands")
	commandTopic := fmt.Sprintf("/devices/%s/commands/", h.deviceID)
	token := h.client.Subscribe(commandTopic+"#", 0, func(client mqtt.Client, msg mqtt.Message) {
		subfolder := strings.TrimPrefix(msg.Topic(), commandTopic)
		h.handleCommand(subfolder, msg.Payload(), post)
	})
	if token.Wait() && token.Error() != nil {
		h.log.WithError(token.Error()).Error("Error on subscribe")
	}

	// Latest config received on startup
	configTopic := fmt.Sprintf("/devices/%s/config", h.deviceID)
	configToken := h.client.Subscribe(configTopic, 0, func(client mqtt.Client, msg mqtt.Message) {
		h.handleConfig(msg.Payload(), post)
	})
	if configToken.Wait() && configToken.Error() != nil {
		h.log.WithError(configToken.Error()).Error("Error on subscribe")
	}

	h.publishDeviceState()
}

func (h *handler) handleCommand(subfolder string, payload []byte, post types.PostFn) {
	switch subfolder {
	case "control", "mission":
		msg, err := parseControlCommand(h.deviceID, payload)
		if err != nil {
			h.log.WithError(err).WithField("payload", string(payload)).Warn("Could not parse command")
			return
		}
		h.log.WithField("command", msg.MessageType).Info("Got command")
		post(msg)
	default:
		h.log.WithField("subfolder", subfolder).Warn("Unknown command subfolder")
	}
}

func (h *handler) handleConfig(payload []byte, post types.PostFn) {
	h.log.Debugf("Got config:\n%v", string(payload))
	var cfg runtimeConfig
	if err := yaml.Unmarshal(payload, &cfg); err != nil {
		h.log.WithError(err).Warn("Failed to unmarshal config yaml")
		return
	}

	if cfg.TakeControl != nil {
		post(types.CreateMessage(types.MsgTakeControl, "cloud", h.deviceID, types.TakeControl{Enable: *cfg.TakeControl}))
	}
	if cfg.AutorotateMission == nil && cfg.AutorotateDetour == nil {
		return
	}

	h.mu.Lock()
	if cfg.AutorotateMission != nil {
		h.autorotate.Mission = *cfg.AutorotateMission
	}
	if cfg.AutorotateDetour != nil {
		h.autorotate.Detour = *cfg.AutorotateDetour
	}
	autorotate := h.autorotate
	h.mu.Unlock()
	post(types.CreateMessage(types.MsgAutorotate, "cloud", h.deviceID, autorotate))
}

func (h *handler) publishDeviceState() {
	topic := fmt.Sprintf("/devices/%s/state", h.deviceID)
	msg := deviceState{
		StartedAt: time.Now().UTC(),
		Message:   "hello world",
	}
	b, _ := json.Marshal(msg)
	h.client.Publish(topic, qos, retain, b)
}

// parseControlCommand decodes a cloud command into a bus message addressed to
// deviceID.
func parseControlCommand(deviceID string, command []byte) (types.Message, error) {
	var cmd controlCommand
	if err := json.Unmarshal(command, &cmd); err != nil {
		return types.Message{}, errors.WithMessage(err, "could not unmarshal command")
	}

	var payload interface{}
	switch cmd.Command {
	case types.MsgArm:
		payload = &types.Arm{Arm: true}
	case "disarm":
		cmd.Command = types.MsgArm
		payload = &types.Arm{Arm: false}
	case types.MsgTakeoff:
		payload = &types.Takeoff{}
	case types.MsgSetMode:
		payload = &types.SetMode{}
	case types.MsgRotate:
		payload = &types.Rotate{Autocontinue: true}
	case types.MsgDetour:
		payload = &types.Detour{Autocontinue: true}
	case types.MsgGoTo:
		payload = &types.GoTo{}
	case types.MsgBrake:
		payload = &types.Brake{}
	case types.MsgUploadMission:
		payload = &types.UploadMission{}
	case types.MsgDownloadMission:
		payload = &types.DownloadMission{}
	case types.MsgExecutePreplanned:
		payload = &types.ExecutePreplanned{}
	case types.MsgTakeControl:
		payload = &types.TakeControl{}
	default:
		return types.Message{}, errors.Errorf("unknown command %q", cmd.Command)
	}

	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	raw := types.RawMessage{
		Timestamp:   timestamp,
		From:        "cloud",
		To:          deviceID,
		ID:          uuid.New().String(),
		MessageType: cmd.Command,
		Message:     json.RawMessage(cmd.Payload),
	}
	return raw.Decode(payload)
}
