package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInfo    EventType = "info"
	EventWarn    EventType = "warn"
	EventSuccess EventType = "success"
	EventError   EventType = "error"
)

// Event names consumed by the frontend. Code, model and failed are the
// three mutually exclusive worker outcome notifications; transcript and
// status mirror the chat panel and status line.
const (
	GenerationCode   = "events:generation:code"
	GenerationModel  = "events:generation:model"
	GenerationFailed = "events:generation:failed"
	GenerationBusy   = "events:generation:busy"
	Transcript       = "events:transcript"
	Status           = "events:status"
	ViewerCleared    = "events:viewer:cleared"
)

// GenerationEvent is the payload emitted to the frontend for every
// notification.
type GenerationEvent struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Speaker   string            `json:"speaker,omitempty"`
	Mesh      any               `json:"mesh,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func newEvent(eventType EventType, message string) GenerationEvent {
	return GenerationEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewInfo creates an info event.
func NewInfo(message string) GenerationEvent {
	return newEvent(EventInfo, message)
}

// NewWarn creates a warn event.
func NewWarn(message string) GenerationEvent {
	return newEvent(EventWarn, message)
}

// NewError creates an error event.
func NewError(message string) GenerationEvent {
	return newEvent(EventError, message)
}

// NewSuccess creates a success event.
func NewSuccess(message string) GenerationEvent {
	return newEvent(EventSuccess, message)
}
