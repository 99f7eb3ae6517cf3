package types

import (
	"context"
	"encoding/json"
	"sync"

	log "github.com/sirupsen/logrus"
)

type logger struct {
	log   log.FieldLogger
	quiet map[string]bool
}

// NewLogger logs every bus message except the high rate ones.
func NewLogger(l log.FieldLogger) MessageHandler {
	return &logger{
		log:   l,
		quiet: map[string]bool{MsgVehicleTelemetry: true},
	}
}

func (l *logger) Receive(message Message) {
	if l.quiet[message.MessageType] {
		return
	}

	b, _ := json.Marshal(message.Message)
	l.log.WithFields(log.Fields{
		"type": message.MessageType,
		"from": message.From,
		"to":   message.To,
		"id":   message.ID,
	}).Debugf("Message: %s", string(b))
}

func (l *logger) Run(ctx context.Context, wg *sync.WaitGroup, post PostFn) {
}
