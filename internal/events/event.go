// Package events provides the in-process event bus used to broadcast state
// changes (pairing, characteristic values) to subscribers such as the
// WebSocket notification hub, the mDNS advertiser and the MQTT bridge.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the kind of event.
type Kind string

const (
	// Pairing events
	KindControllerPaired   Kind = "controller.paired"
	KindControllerUnpaired Kind = "controller.unpaired"

	// Accessory events
	KindCharacteristicValueChanged Kind = "characteristic.value_changed"
)

// Event is a fact that already happened. The set of implementations is closed;
// events are immutable once constructed.
type Event interface {
	Kind() Kind
	event()
}

// ControllerPaired is emitted after a controller pairing has been persisted.
type ControllerPaired struct {
	ID uuid.UUID `json:"id"`
}

// ControllerUnpaired is emitted after a controller pairing has been removed.
type ControllerUnpaired struct {
	ID uuid.UUID `json:"id"`
}

// CharacteristicValueChanged is emitted after a characteristic value changed.
type CharacteristicValueChanged struct {
	AID   uint64 `json:"aid"`
	IID   uint64 `json:"iid"`
	Value any    `json:"value"`
}

func (ControllerPaired) Kind() Kind { return KindControllerPaired }
func (ControllerUnpaired) Kind() Kind { return KindControllerUnpaired }
func (CharacteristicValueChanged) Kind() Kind { return KindCharacteristicValueChanged }

func (ControllerPaired) event() {}
func (ControllerUnpaired) event() {}
func (CharacteristicValueChanged) event() {}

// Envelope is the wire representation of an Event for external consumers.
type Envelope struct {
	Type      Kind            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEnvelope wraps an Event, marshaling its payload to JSON.
// If marshaling fails the Data field is set to null.
func NewEnvelope(e Event) Envelope {
	raw, err := json.Marshal(e)
	if err != nil {
		raw = []byte("null")
	}
	return Envelope{
		Type:      e.Kind(),
		Timestamp: time.Now(),
		Data:      raw,
	}
}
