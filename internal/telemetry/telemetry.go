// Package telemetry publishes vehicle state and events to the cloud.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	uuid "github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/tiiuae/mavlink_vehicles/internal/types"
)

const (
	qos    = 1
	retain = false

	publishInterval = 100 * time.Millisecond
)

type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type telemetry struct {
	Timestamp int64                  `json:"timestamp"`
	MessageID string                 `json:"message_id"`
	Vehicle   types.VehicleTelemetry `json:"vehicle"`
}

type sender struct {
	publisher Publisher
	deviceID  string
	log       log.FieldLogger

	mu      sync.Mutex
	sent    bool
	current types.VehicleTelemetry
}

// New returns a bus handler forwarding telemetry snapshots at most 10 times
// a second and vehicle events as they happen.
func New(publisher Publisher, deviceID string, l log.FieldLogger) types.MessageHandler {
	return &sender{
		publisher: publisher,
		deviceID:  deviceID,
		log:       l.WithField("component", "telemetry"),
		sent:      true,
	}
}

func (s *sender) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.startSendingTelemetry(ctx)
	}()
}

func (s *sender) Receive(message types.Message) {
	if message.From != s.deviceID {
		return
	}

	switch m := message.Message.(type) {
	case types.VehicleTelemetry:
		s.mu.Lock()
		s.current = m
		s.sent = false
		s.mu.Unlock()
	case types.NavigationChanged, types.MissionDownloaded, types.LinkStatus:
		s.publishEvent(message.MessageType, m)
	}
}

// loop to send telemetry 10/s
func (s *sender) startSendingTelemetry(ctx context.Context) {
	ticker := time.NewTicker(publishInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-ctx.Done():
			return
		}
	}
}

// flush publishes the latest snapshot unless it has been sent already.
func (s *sender) flush() {
	s.mu.Lock()
	if s.sent {
		s.mu.Unlock()
		return
	}
	t := telemetry{
		Timestamp: time.Now().UnixNano() / 1000,
		MessageID: uuid.New().String(),
		Vehicle:   s.current,
	}
	s.sent = true
	s.mu.Unlock()

	b, err := json.Marshal(t)
	if err != nil {
		s.log.WithError(err).Error("Could not marshal telemetry")
		return
	}
	s.publisher.Publish(s.topic("telemetry"), qos, retain, string(b))
}

func (s *sender) publishEvent(name string, payload interface{}) {
	b, err := json.Marshal(payload)
	if err != nil {
		s.log.WithError(err).WithField("event", name).Error("Could not marshal event")
		return
	}
	s.log.WithField("event", name).Info("Vehicle event")
	s.publisher.Publish(s.topic(name), qos, retain, string(b))
}

func (s *sender) topic(event string) string {
	return fmt.Sprintf("/devices/%s/events/%s", s.deviceID, event)
}
