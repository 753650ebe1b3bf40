package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the storefront.
const (
	TitleViewed    = "title.viewed"
	TitleLiked     = "title.liked"
	TitleUnliked   = "title.unliked"
	TitlePublished = "title.published"
	TitleUpdated   = "title.updated"
	TitleDeleted   = "title.deleted"
	CatalogLoaded  = "catalog.loaded"
)

// BaseEvent is the storefront implementation of interfaces.Event
type BaseEvent struct {
	ID    string                 `json:"id"`
	Type  string                 `json:"type"`
	Time  int64                  `json:"timestamp"`
	AggID string                 `json:"aggregate_id"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// NewEvent creates a new event
func NewEvent(eventType string, data map[string]interface{}) *BaseEvent {
	return NewAggregateEvent(eventType, "", data)
}

// NewAggregateEvent creates a new event with an aggregate ID
func NewAggregateEvent(eventType string, aggregateID string, data map[string]interface{}) *BaseEvent {
	return &BaseEvent{
		ID:    uuid.NewString(),
		Type:  eventType,
		Time:  time.Now().UnixNano(),
		AggID: aggregateID,
		Data:  data,
	}
}

func (e *BaseEvent) EventID() string     { return e.ID }
func (e *BaseEvent) EventType() string   { return e.Type }
func (e *BaseEvent) Timestamp() int64    { return e.Time }
func (e *BaseEvent) AggregateID() string { return e.AggID }
