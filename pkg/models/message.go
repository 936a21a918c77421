package models

import (
	"time"

	"github.com/google/uuid"
)

// InboundSMS is the wire envelope for a bank SMS traveling through the
// broker. Timestamp is the device receive time in milliseconds since epoch;
// ReceivedAt is when the message entered the pipeline.
type InboundSMS struct {
	ID         string         `json:"id"`
	Sender     string         `json:"sender"`
	Body       string         `json:"body"`
	Timestamp  int64          `json:"timestamp"`
	Source     string         `json:"source"`
	ReceivedAt time.Time      `json:"received_at"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewInboundSMS(sender, body string, timestamp int64, source string) InboundSMS {
	return InboundSMS{
		ID:         uuid.New().String(),
		Sender:     sender,
		Body:       body,
		Timestamp:  timestamp,
		Source:     source,
		ReceivedAt: time.Now(),
	}
}
