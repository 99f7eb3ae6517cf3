package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Message struct {
	Timestamp   time.Time   `json:"timestamp"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	ID          string      `json:"id"`
	MessageType string      `json:"message_type"`
	Message     interface{} `json:"message"`
}

// RawMessage is Message with the payload still encoded, as it arrives from
// the cloud.
type RawMessage struct {
	Timestamp   time.Time       `json:"timestamp"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	ID          string          `json:"id"`
	MessageType string          `json:"message_type"`
	Message     json.RawMessage `json:"message"`
}

// Decode unmarshals the payload into v and returns the envelope carrying it.
func (raw *RawMessage) Decode(v interface{}) (Message, error) {
	if len(raw.Message) > 0 {
		if err := json.Unmarshal(raw.Message, v); err != nil {
			return Message{}, errors.WithMessagef(err, "decode %s", raw.MessageType)
		}
	}
	return raw.Replace(derefPayload(v)), nil
}

func (raw *RawMessage) Replace(v interface{}) Message {
	return Message{
		raw.Timestamp,
		raw.From,
		raw.To,
		raw.ID,
		raw.MessageType,
		v,
	}
}

func (message *Message) Replace(v interface{}) Message {
	return Message{
		message.Timestamp,
		message.From,
		message.To,
		message.ID,
		message.MessageType,
		v,
	}
}

func CreateMessage(messageType, from, to string, message interface{}) Message {
	return Message{
		time.Now().UTC(),
		from,
		to,
		uuid.New().String(),
		messageType,
		message,
	}
}
