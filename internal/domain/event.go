package domain

import "time"

// EventType identifies an ingest pipeline event.
type EventType string

const (
	EventTypeDocumentUploaded EventType = "document.uploaded"
	EventTypeDocumentIndexed  EventType = "document.indexed"
	EventTypeDocumentFailed   EventType = "document.failed"
	EventTypeDocumentDeleted  EventType = "document.deleted"
)

// TopicIngest is the event bus topic carrying ingest pipeline events.
const TopicIngest = "ingest.events"

// Event is one ingest pipeline event as published on the event bus.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Document  string                 `json:"document"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
