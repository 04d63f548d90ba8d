package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	audit "claimledger/pkg/platform/audit"

	"github.com/google/uuid"
)

// wireEvent is the JSON layout of an audit event on the topic.
type wireEvent struct {
	ID         string   `json:"id"`
	Timestamp  string   `json:"timestamp"`
	Action     string   `json:"action"`
	TxID       string   `json:"tx_id"`
	Kind       string   `json:"kind,omitempty"`
	StateTypes []string `json:"state_types,omitempty"`
	Decision   string   `json:"decision"`
	RuleID     string   `json:"rule_id,omitempty"`
	Category   string   `json:"category,omitempty"`
	Message    string   `json:"message,omitempty"`
	RequestID  string   `json:"request_id,omitempty"`
	ClientIP   string   `json:"client_ip,omitempty"`
	Client     string   `json:"client,omitempty"`
}

// EncodeEvent renders an event as a record value.
func EncodeEvent(event audit.Event) ([]byte, error) {
	payload := wireEvent{
		ID:         event.ID.String(),
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:     string(event.Action),
		TxID:       event.TxID,
		Kind:       event.Kind,
		StateTypes: event.StateTypes,
		Decision:   string(event.Decision),
		RuleID:     event.RuleID,
		Category:   event.Category,
		Message:    event.Message,
		RequestID:  event.RequestID,
		ClientIP:   event.ClientIP,
		Client:     event.Client,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal audit event: %w", err)
	}
	return b, nil
}

// DecodeEvent parses a record value produced by EncodeEvent.
func DecodeEvent(b []byte) (audit.Event, error) {
	var payload wireEvent
	if err := json.Unmarshal(b, &payload); err != nil {
		return audit.Event{}, fmt.Errorf("unmarshal audit event: %w", err)
	}
	eventID, err := uuid.Parse(payload.ID)
	if err != nil {
		return audit.Event{}, fmt.Errorf("parse audit event id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp)
	if err != nil {
		return audit.Event{}, fmt.Errorf("parse audit event timestamp: %w", err)
	}
	return audit.Event{
		ID:         eventID,
		Timestamp:  ts,
		Action:     audit.Action(payload.Action),
		TxID:       payload.TxID,
		Kind:       payload.Kind,
		StateTypes: payload.StateTypes,
		Decision:   audit.Decision(payload.Decision),
		RuleID:     payload.RuleID,
		Category:   payload.Category,
		Message:    payload.Message,
		RequestID:  payload.RequestID,
		ClientIP:   payload.ClientIP,
		Client:     payload.Client,
	}, nil
}
