package types

import "time"

// EventType represents the type of real-time event
type EventType string

const (
	EventUploadCreated EventType = "upload.created"
	EventUploadDeleted EventType = "upload.deleted"
)

// Event represents a real-time event that can be sent over WebSocket
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// UploadCreatedEvent is sent to the uploader once a video is stored and recorded
type UploadCreatedEvent struct {
	ID       int64  `json:"id"`
	Sport    string `json:"sport"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// UploadDeletedEvent is sent to the owner after a video is removed
type UploadDeletedEvent struct {
	ID        int64  `json:"id"`
	DeletedAt string `json:"deleted_at"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
