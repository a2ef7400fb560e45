package events

import (
	"time"

	"github.com/Niyati251208/sports-performance-analyzer/internal/types"
	"github.com/Niyati251208/sports-performance-analyzer/internal/types/uploads"
)

// Publisher interface for publishing events
type Publisher interface {
	PublishUploadCreated(rec uploads.UploadRecord)
	PublishUploadDeleted(rec uploads.UploadRecord)
}

// EventPublisher implements the Publisher interface
type EventPublisher struct {
	hub WebSocketHub
}

// WebSocketHub interface for the WebSocket hub
type WebSocketHub interface {
	BroadcastToUser(userID string, event *types.Event)
	IsUserConnected(userID string) bool
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(hub WebSocketHub) *EventPublisher {
	return &EventPublisher{
		hub: hub,
	}
}

// PublishUploadCreated notifies the uploader's open connection, if any.
// Anonymous uploads have nobody to notify.
func (p *EventPublisher) PublishUploadCreated(rec uploads.UploadRecord) {
	email, ok := ownerOf(rec)
	if !ok || !p.hub.IsUserConnected(email) {
		return
	}

	p.hub.BroadcastToUser(email, types.NewEvent(types.EventUploadCreated, &types.UploadCreatedEvent{
		ID:       rec.ID,
		Sport:    rec.Sport,
		Filename: rec.Filename,
		URL:      rec.URL,
	}))
}

// PublishUploadDeleted notifies the owner's open connection, if any.
func (p *EventPublisher) PublishUploadDeleted(rec uploads.UploadRecord) {
	email, ok := ownerOf(rec)
	if !ok || !p.hub.IsUserConnected(email) {
		return
	}

	p.hub.BroadcastToUser(email, types.NewEvent(types.EventUploadDeleted, &types.UploadDeletedEvent{
		ID:        rec.ID,
		DeletedAt: time.Now().UTC().Format(time.RFC3339),
	}))
}

func ownerOf(rec uploads.UploadRecord) (string, bool) {
	if rec.UserEmail == nil || *rec.UserEmail == "" {
		return "", false
	}
	return *rec.UserEmail, true
}
