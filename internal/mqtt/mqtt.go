// Package mqtt publishes note and system events with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/harp-strings/internal/harp"
)

// Topic is the MQTT topic for note events.
const Topic = "harp/strings/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "harp/strings/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a note event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event harp.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a note event.
type Payload struct {
	Note NotePayload `json:"note"`
}

// NotePayload contains the note event details.
type NotePayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	String    string `json:"string"`
	Note      uint8  `json:"note"`
	Velocity  uint8  `json:"velocity"`
	Channel   uint8  `json:"channel"`
}

// FormatPayload creates the JSON payload for a note event.
// Timestamps keep millisecond precision; plucks are closer together than a second.
func FormatPayload(event harp.Event) ([]byte, error) {
	payload := Payload{
		Note: NotePayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Event:     string(event.Type),
			String:    event.String,
			Note:      event.Note,
			Velocity:  event.Velocity,
			Channel:   event.Channel,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Sink adapts a Publisher to the instrument's event stream.
type Sink struct {
	Publisher Publisher
}

// Emit publishes one note event.
func (s Sink) Emit(event harp.Event) error {
	return s.Publisher.Publish(event)
}
